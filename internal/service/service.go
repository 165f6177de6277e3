package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"savings_auth/internal/auth"
	"savings_auth/internal/metrics"
	"savings_auth/internal/models"
	"savings_auth/internal/storage"
)

const defaultRole = "member"

var (
	// ErrNilInput means the caller passed no account data at all. This is
	// a programming error on the caller side, not a validation failure.
	ErrNilInput = errors.New("service: no account data provided")

	ErrInvalidCredentials  = errors.New("service: invalid email or password")
	ErrInvalidRefreshToken = errors.New("service: invalid or expired refresh token")
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TokenIssuer turns a stored account and its roles into a credential
// pair. Single JWT-backed variant in this service; alternative signing
// schemes slot in without touching the registrar.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, account models.Account, roles []string) (models.TokenPair, error)
}

// JWTTokenIssuer combines the access-token signer with the refresh-token
// issuer: one signed JWT plus one persisted opaque refresh token.
type JWTTokenIssuer struct {
	signer    *auth.TokenSigner
	refresher *auth.RefreshTokenIssuer
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTTokenIssuer(signer *auth.TokenSigner, refresher *auth.RefreshTokenIssuer, expirationHours int) *JWTTokenIssuer {
	return &JWTTokenIssuer{
		signer:    signer,
		refresher: refresher,
		accessTTL: time.Duration(expirationHours) * time.Hour,
		now:       time.Now,
	}
}

func (i *JWTTokenIssuer) IssueTokens(ctx context.Context, account models.Account, roles []string) (models.TokenPair, error) {
	const op = "service.JWTTokenIssuer.IssueTokens"

	claims := auth.BuildClaims(account, roles, i.now())

	accessToken, err := i.signer.Sign(claims, i.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, expiresAt, err := i.refresher.Issue(account)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := i.refresher.Persist(ctx, account, refreshToken, expiresAt); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

type Service interface {
	Register(ctx context.Context, input models.AccountInput) (models.AuthResult, error)
	Login(ctx context.Context, email, password string) (models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (models.AuthResult, error)
	Profile(ctx context.Context, email string) (models.Account, error)
	CreateSaving(ctx context.Context, email string, input models.SavingInput) (models.Saving, error)
	ListSavings(ctx context.Context, email string) ([]models.Saving, error)
}

type service struct {
	storage storage.AccountStore
	tokens  TokenIssuer
	metrics metrics.Recorder
	now     func() time.Time
}

func NewService(st storage.AccountStore, tokens TokenIssuer, rec metrics.Recorder) *service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &service{
		storage: st,
		tokens:  tokens,
		metrics: rec,
		now:     time.Now,
	}
}

// Register provisions a new account and issues its first credential
// pair. There is no existence pre-check on the email: the store's unique
// constraint is the authoritative duplicate signal, so two concurrent
// registrations for the same email cannot both succeed.
//
// Recoverable failures (duplicate email, rejected input) come back as an
// AuthResult with Success=false and itemized Errors. A non-nil error
// means the operation aborted: nil input, signer misconfiguration or an
// infrastructure fault.
func (s *service) Register(ctx context.Context, input models.AccountInput) (models.AuthResult, error) {
	const op = "service.Register"

	if input == (models.AccountInput{}) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrNilInput)
	}

	if errs := validateInput(input); len(errs) > 0 {
		s.metrics.RecordRegistrationFailure("validation")
		return failure(errs...), nil
	}

	account := models.Account{
		Email:    input.Email,
		Username: input.Username,
	}

	created, err := s.storage.Create(ctx, account, input.Password)
	var verrs storage.ValidationErrors
	switch {
	case errors.Is(err, storage.ErrDuplicateAccount):
		s.metrics.RecordRegistrationFailure("duplicate")
		return failure("account with this email already exists"), nil
	case errors.As(err, &verrs):
		s.metrics.RecordRegistrationFailure("validation")
		return failure(verrs...), nil
	case err != nil:
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	role := input.Role
	if role == "" {
		role = defaultRole
	}

	if err := s.ensureRole(ctx, role); err != nil {
		s.metrics.RecordRegistrationFailure("store")
		return failure("failed to provision account role"), nil
	}

	if err := s.storage.AssignRole(ctx, created.ID, role); err != nil {
		s.metrics.RecordRegistrationFailure("store")
		return failure("failed to assign account role"), nil
	}

	pair, err := s.tokens.IssueTokens(ctx, created, []string{role})
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RecordRegistration()
	s.metrics.RecordTokensIssued("signup")

	return models.AuthResult{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Login verifies credentials and issues a fresh pair for an existing
// account.
func (s *service) Login(ctx context.Context, email, password string) (models.AuthResult, error) {
	const op = "service.Login"

	cred, err := s.storage.GetCredentialsByEmail(ctx, email)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !storage.CheckPassword(cred.PasswordHash, password) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	account, err := s.storage.FindByEmail(ctx, email)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	roles, err := s.storage.GetRoles(ctx, account.ID)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.IssueTokens(ctx, account, roles)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RecordTokensIssued("login")

	return models.AuthResult{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new pair.
// Issuing the new pair overwrites the stored record, so the presented
// token is single-use.
func (s *service) Refresh(ctx context.Context, refreshToken string) (models.AuthResult, error) {
	const op = "service.Refresh"

	if refreshToken == "" {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	account, err := s.storage.FindByAuthToken(ctx, auth.RefreshProviderKey, auth.RefreshTokenName, refreshToken)
	if errors.Is(err, storage.ErrTokenNotFound) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	expiryRaw, err := s.storage.GetAuthToken(ctx, account.ID, auth.RefreshProviderKey, auth.RefreshTokenExpiryKey)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	expiresAt, err := time.Parse(time.RFC3339, expiryRaw)
	if err != nil || s.now().After(expiresAt) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	roles, err := s.storage.GetRoles(ctx, account.ID)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.IssueTokens(ctx, account, roles)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RecordTokensIssued("refresh")

	return models.AuthResult{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *service) Profile(ctx context.Context, email string) (models.Account, error) {
	const op = "service.Profile"

	account, err := s.storage.FindByEmail(ctx, email)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	roles, err := s.storage.GetRoles(ctx, account.ID)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	account.Roles = roles

	return account, nil
}

func (s *service) CreateSaving(ctx context.Context, email string, input models.SavingInput) (models.Saving, error) {
	const op = "service.CreateSaving"

	var errs storage.ValidationErrors
	if input.Name == "" {
		errs = append(errs, "saving name must not be empty")
	}
	if input.Amount == "" {
		errs = append(errs, "saving amount must not be empty")
	}
	if len(errs) > 0 {
		return models.Saving{}, fmt.Errorf("%s: %w", op, errs)
	}

	account, err := s.storage.FindByEmail(ctx, email)
	if err != nil {
		return models.Saving{}, fmt.Errorf("%s: %w", op, err)
	}

	saving, err := s.storage.CreateSaving(ctx, models.Saving{
		AccountID:   account.ID,
		Name:        input.Name,
		Description: input.Description,
		Amount:      input.Amount,
	})
	if err != nil {
		return models.Saving{}, fmt.Errorf("%s: %w", op, err)
	}

	return saving, nil
}

func (s *service) ListSavings(ctx context.Context, email string) ([]models.Saving, error) {
	const op = "service.ListSavings"

	account, err := s.storage.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	savings, err := s.storage.ListSavings(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return savings, nil
}

// ensureRole creates the role if it does not exist yet. Losing the
// create race to a concurrent registration is fine: the role exists
// either way.
func (s *service) ensureRole(ctx context.Context, name string) error {
	exists, err := s.storage.RoleExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.storage.CreateRole(ctx, name); err != nil && !errors.Is(err, storage.ErrDuplicateRole) {
		return err
	}

	return nil
}

func validateInput(input models.AccountInput) []string {
	var errs []string

	if input.Email == "" {
		errs = append(errs, "email must not be empty")
	} else if !emailRegexp.MatchString(input.Email) {
		errs = append(errs, "email is not valid")
	}

	if input.Username == "" {
		errs = append(errs, "username must not be empty")
	}

	return errs
}

func failure(errs ...string) models.AuthResult {
	return models.AuthResult{
		Success: false,
		Errors:  errs,
	}
}
