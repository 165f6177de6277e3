package auth

import (
	"context"
	"fmt"
	"time"

	"savings_auth/internal/models"
	"savings_auth/internal/storage"
)

const (
	// RefreshProviderKey and the two field names below form the fixed
	// auth-token key a refresh token is stored under. A new issuance
	// overwrites the previous record for the same account.
	RefreshProviderKey    = "savings_auth"
	RefreshTokenName      = "refresh_token"
	RefreshTokenExpiryKey = "refresh_token_expiry"

	refreshSecretBytes = 32

	// Refresh tokens live 7 days from issuance. Fixed policy.
	refreshTokenTTL = 7 * 24 * time.Hour
)

// RefreshTokenIssuer mints opaque refresh tokens and persists them
// against an account through the store.
type RefreshTokenIssuer struct {
	store storage.AccountStore
	now   func() time.Time
}

func NewRefreshTokenIssuer(store storage.AccountStore) *RefreshTokenIssuer {
	return &RefreshTokenIssuer{
		store: store,
		now:   time.Now,
	}
}

// Issue generates a fresh refresh token and its expiry instant. Nothing
// is persisted until Persist is called.
func (i *RefreshTokenIssuer) Issue(account models.Account) (string, time.Time, error) {
	const op = "auth.RefreshTokenIssuer.Issue"

	token, err := GenerateSecret(refreshSecretBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, i.now().UTC().Add(refreshTokenTTL), nil
}

// Persist writes the token value and its expiry as one atomic pair of
// auth-token fields, replacing any prior refresh token for the account.
func (i *RefreshTokenIssuer) Persist(ctx context.Context, account models.Account, token string, expiresAt time.Time) error {
	const op = "auth.RefreshTokenIssuer.Persist"

	fields := []models.AuthTokenField{
		{Name: RefreshTokenName, Value: token},
		{Name: RefreshTokenExpiryKey, Value: expiresAt.UTC().Format(time.RFC3339)},
	}

	if err := i.store.SetAuthTokens(ctx, account.ID, RefreshProviderKey, fields); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
