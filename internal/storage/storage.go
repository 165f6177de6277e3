package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid"

	"savings_auth/internal/models"
)

var (
	ErrAccountNotFound  = errors.New("storage: account not found")
	ErrDuplicateAccount = errors.New("storage: account with this email already exists")
	ErrRoleNotFound     = errors.New("storage: role not found")
	ErrDuplicateRole    = errors.New("storage: role already exists")
	ErrTokenNotFound    = errors.New("storage: auth token not found")
)

// ValidationErrors carries the itemized, user-correctable reasons a
// create was rejected (password policy, malformed fields).
type ValidationErrors []string

func (e ValidationErrors) Error() string {
	return "storage: " + strings.Join(e, "; ")
}

// AccountStore is the persistence boundary for accounts, roles, auth
// tokens and savings. Create is atomic with respect to email uniqueness:
// a concurrent duplicate surfaces as ErrDuplicateAccount from the unique
// constraint, so callers need no existence pre-check.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	Create(ctx context.Context, account models.Account, password string) (models.Account, error)
	GetCredentialsByEmail(ctx context.Context, email string) (models.Credentials, error)

	RoleExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, name string) error
	AssignRole(ctx context.Context, accountID uuid.UUID, name string) error
	GetRoles(ctx context.Context, accountID uuid.UUID) ([]string, error)

	SetAuthToken(ctx context.Context, accountID uuid.UUID, providerKey, tokenName, value string) error
	SetAuthTokens(ctx context.Context, accountID uuid.UUID, providerKey string, fields []models.AuthTokenField) error
	GetAuthToken(ctx context.Context, accountID uuid.UUID, providerKey, tokenName string) (string, error)
	FindByAuthToken(ctx context.Context, providerKey, tokenName, value string) (models.Account, error)

	CreateSaving(ctx context.Context, saving models.Saving) (models.Saving, error)
	ListSavings(ctx context.Context, accountID uuid.UUID) ([]models.Saving, error)

	Close()
}
