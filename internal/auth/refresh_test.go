package auth

import (
	"context"
	"testing"
	"time"

	"savings_auth/internal/storage"
)

func TestRefreshTokenIssuerIssue(t *testing.T) {
	issuer := NewRefreshTokenIssuer(storage.NewMemoryStorage())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, expiresAt, err := issuer.Issue(testAccount(t))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != 44 {
		t.Fatalf("expected 44-character refresh token, got %d", len(token))
	}
	if want := now.Add(7 * 24 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiresAt)
	}
}

func TestRefreshTokenIssuerPersistWritesBothFields(t *testing.T) {
	st := storage.NewMemoryStorage()
	issuer := NewRefreshTokenIssuer(st)
	account := testAccount(t)
	ctx := context.Background()

	token, expiresAt, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := issuer.Persist(ctx, account, token, expiresAt); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := st.GetAuthToken(ctx, account.ID, RefreshProviderKey, RefreshTokenName)
	if err != nil {
		t.Fatalf("GetAuthToken(value): %v", err)
	}
	if stored != token {
		t.Fatalf("stored token mismatch: %q vs %q", stored, token)
	}

	expiryRaw, err := st.GetAuthToken(ctx, account.ID, RefreshProviderKey, RefreshTokenExpiryKey)
	if err != nil {
		t.Fatalf("GetAuthToken(expiry): %v", err)
	}
	parsed, err := time.Parse(time.RFC3339, expiryRaw)
	if err != nil {
		t.Fatalf("expiry is not RFC3339: %q", expiryRaw)
	}
	if !parsed.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("stored expiry mismatch: %v vs %v", parsed, expiresAt)
	}
}

func TestRefreshTokenIssuerPersistOverwrites(t *testing.T) {
	st := storage.NewMemoryStorage()
	issuer := NewRefreshTokenIssuer(st)
	account := testAccount(t)
	ctx := context.Background()

	first, firstExp, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := issuer.Persist(ctx, account, first, firstExp); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	second, secondExp, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := issuer.Persist(ctx, account, second, secondExp); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := st.GetAuthToken(ctx, account.ID, RefreshProviderKey, RefreshTokenName)
	if err != nil {
		t.Fatalf("GetAuthToken: %v", err)
	}
	if stored != second {
		t.Fatalf("expected the second token to replace the first")
	}
	if st.AuthTokenCount() != 2 {
		t.Fatalf("expected exactly one token/expiry pair, got %d fields", st.AuthTokenCount())
	}
}
