package storage

import (
	"context"
	"errors"
	"testing"

	"savings_auth/internal/models"
)

func TestMemoryStorageDuplicateEmailIsCaseInsensitive(t *testing.T) {
	st := NewMemoryStorage()
	ctx := context.Background()

	if _, err := st.Create(ctx, models.Account{Email: "a@x.com", Username: "a"}, "Secret1!"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := st.Create(ctx, models.Account{Email: "A@X.COM", Username: "b"}, "Secret1!")
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	if st.AccountCount() != 1 {
		t.Fatalf("expected one account, got %d", st.AccountCount())
	}
}

func TestMemoryStorageAssignRoleRequiresRole(t *testing.T) {
	st := NewMemoryStorage()
	ctx := context.Background()

	account, err := st.Create(ctx, models.Account{Email: "a@x.com", Username: "a"}, "Secret1!")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := st.AssignRole(ctx, account.ID, "member"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound before role creation, got %v", err)
	}

	if err := st.CreateRole(ctx, "member"); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := st.CreateRole(ctx, "member"); !errors.Is(err, ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}

	if err := st.AssignRole(ctx, account.ID, "member"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	// Assigning twice must not duplicate the edge.
	if err := st.AssignRole(ctx, account.ID, "member"); err != nil {
		t.Fatalf("AssignRole (repeat): %v", err)
	}

	roles, err := st.GetRoles(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetRoles: %v", err)
	}
	if len(roles) != 1 || roles[0] != "member" {
		t.Fatalf("expected roles [member], got %v", roles)
	}
}

func TestMemoryStorageAuthTokenUpsert(t *testing.T) {
	st := NewMemoryStorage()
	ctx := context.Background()

	account, err := st.Create(ctx, models.Account{Email: "a@x.com", Username: "a"}, "Secret1!")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := st.SetAuthToken(ctx, account.ID, "p", "n", "first"); err != nil {
		t.Fatalf("SetAuthToken: %v", err)
	}
	if err := st.SetAuthToken(ctx, account.ID, "p", "n", "second"); err != nil {
		t.Fatalf("SetAuthToken: %v", err)
	}

	value, err := st.GetAuthToken(ctx, account.ID, "p", "n")
	if err != nil {
		t.Fatalf("GetAuthToken: %v", err)
	}
	if value != "second" {
		t.Fatalf("expected overwrite, got %q", value)
	}
	if st.AuthTokenCount() != 1 {
		t.Fatalf("expected a single field, got %d", st.AuthTokenCount())
	}

	found, err := st.FindByAuthToken(ctx, "p", "n", "second")
	if err != nil {
		t.Fatalf("FindByAuthToken: %v", err)
	}
	if found.ID != account.ID {
		t.Fatal("FindByAuthToken returned the wrong account")
	}

	if _, err := st.FindByAuthToken(ctx, "p", "n", "first"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("replaced token must not resolve, got %v", err)
	}
}
