package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"savings_auth/internal/models"
)

type memoryAccount struct {
	account      models.Account
	passwordHash string
}

// MemoryStorage is an in-memory AccountStore with the same contract as
// the Postgres one, including case-insensitive email uniqueness and
// replace-not-append auth tokens. Used by tests and local tooling.
type MemoryStorage struct {
	mu         sync.Mutex
	accounts   map[uuid.UUID]*memoryAccount
	roles      map[string]struct{}
	assigned   map[uuid.UUID][]string
	authTokens map[string]string
	savings    map[uuid.UUID][]models.Saving
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts:   make(map[uuid.UUID]*memoryAccount),
		roles:      make(map[string]struct{}),
		assigned:   make(map[uuid.UUID][]string),
		authTokens: make(map[string]string),
		savings:    make(map[uuid.UUID][]models.Saving),
	}
}

func authTokenKey(accountID uuid.UUID, providerKey, tokenName string) string {
	return accountID.String() + "/" + providerKey + "/" + tokenName
}

func (m *MemoryStorage) findByEmailLocked(email string) (*memoryAccount, bool) {
	for _, acc := range m.accounts {
		if strings.EqualFold(acc.account.Email, email) {
			return acc, true
		}
	}
	return nil, false
}

func (m *MemoryStorage) FindByEmail(_ context.Context, email string) (models.Account, error) {
	const op = "storage.MemoryStorage.FindByEmail"

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.findByEmailLocked(email)
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}

	return acc.account, nil
}

func (m *MemoryStorage) Create(_ context.Context, account models.Account, password string) (models.Account, error) {
	const op = "storage.MemoryStorage.Create"

	if errs := ValidatePassword(password); len(errs) > 0 {
		return models.Account{}, fmt.Errorf("%s: %w", op, errs)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.findByEmailLocked(account.Email); exists {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrDuplicateAccount)
	}

	if account.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return models.Account{}, fmt.Errorf("%s: %w", op, err)
		}
		account.ID = id
	}
	account.CreatedAt = time.Now().UTC()

	m.accounts[account.ID] = &memoryAccount{
		account:      account,
		passwordHash: passwordHash,
	}

	return account, nil
}

func (m *MemoryStorage) GetCredentialsByEmail(_ context.Context, email string) (models.Credentials, error) {
	const op = "storage.MemoryStorage.GetCredentialsByEmail"

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.findByEmailLocked(email)
	if !ok {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}

	return models.Credentials{
		AccountID:    acc.account.ID,
		PasswordHash: acc.passwordHash,
	}, nil
}

func (m *MemoryStorage) RoleExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.roles[name]
	return ok, nil
}

func (m *MemoryStorage) CreateRole(_ context.Context, name string) error {
	const op = "storage.MemoryStorage.CreateRole"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[name]; ok {
		return fmt.Errorf("%s: %w", op, ErrDuplicateRole)
	}
	m.roles[name] = struct{}{}

	return nil
}

func (m *MemoryStorage) AssignRole(_ context.Context, accountID uuid.UUID, name string) error {
	const op = "storage.MemoryStorage.AssignRole"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[name]; !ok {
		return fmt.Errorf("%s: %w", op, ErrRoleNotFound)
	}

	for _, assigned := range m.assigned[accountID] {
		if assigned == name {
			return nil
		}
	}
	m.assigned[accountID] = append(m.assigned[accountID], name)

	return nil
}

func (m *MemoryStorage) GetRoles(_ context.Context, accountID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roles := make([]string, len(m.assigned[accountID]))
	copy(roles, m.assigned[accountID])

	return roles, nil
}

func (m *MemoryStorage) SetAuthToken(_ context.Context, accountID uuid.UUID, providerKey, tokenName, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.authTokens[authTokenKey(accountID, providerKey, tokenName)] = value

	return nil
}

func (m *MemoryStorage) SetAuthTokens(_ context.Context, accountID uuid.UUID, providerKey string, fields []models.AuthTokenField) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, field := range fields {
		m.authTokens[authTokenKey(accountID, providerKey, field.Name)] = field.Value
	}

	return nil
}

func (m *MemoryStorage) GetAuthToken(_ context.Context, accountID uuid.UUID, providerKey, tokenName string) (string, error) {
	const op = "storage.MemoryStorage.GetAuthToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.authTokens[authTokenKey(accountID, providerKey, tokenName)]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}

	return value, nil
}

func (m *MemoryStorage) FindByAuthToken(_ context.Context, providerKey, tokenName, value string) (models.Account, error) {
	const op = "storage.MemoryStorage.FindByAuthToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, acc := range m.accounts {
		if m.authTokens[authTokenKey(id, providerKey, tokenName)] == value {
			return acc.account, nil
		}
	}

	return models.Account{}, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
}

func (m *MemoryStorage) CreateSaving(_ context.Context, saving models.Saving) (models.Saving, error) {
	const op = "storage.MemoryStorage.CreateSaving"

	m.mu.Lock()
	defer m.mu.Unlock()

	if saving.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return models.Saving{}, fmt.Errorf("%s: %w", op, err)
		}
		saving.ID = id
	}
	now := time.Now().UTC()
	saving.CreatedAt = now
	saving.UpdatedAt = now

	m.savings[saving.AccountID] = append(m.savings[saving.AccountID], saving)

	return saving, nil
}

func (m *MemoryStorage) ListSavings(_ context.Context, accountID uuid.UUID) ([]models.Saving, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	savings := make([]models.Saving, len(m.savings[accountID]))
	copy(savings, m.savings[accountID])

	return savings, nil
}

func (m *MemoryStorage) Close() {}

// AccountCount reports the number of stored accounts.
func (m *MemoryStorage) AccountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.accounts)
}

// RoleCount reports the number of stored roles.
func (m *MemoryStorage) RoleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.roles)
}

// AuthTokenCount reports the number of stored auth-token fields.
func (m *MemoryStorage) AuthTokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.authTokens)
}
