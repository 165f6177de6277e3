package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Account is the identity record owned by the store. Roles carries the
// role names currently assigned to the account.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	Roles     []string  `json:"roles,omitempty"`
}

// AccountInput is the signup payload. Role names the single role the new
// account should be provisioned with; empty means the default role.
type AccountInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Credentials struct {
	AccountID    uuid.UUID
	PasswordHash string
}

// AuthTokenField is one named value persisted under an account's
// (provider, name) auth-token slot.
type AuthTokenField struct {
	Name  string
	Value string
}

// RefreshTokenRecord mirrors the stored auth-token row for a refresh
// token. Keyed on (AccountID, ProviderKey, TokenName); a new issuance
// replaces the previous record for the same key.
type RefreshTokenRecord struct {
	AccountID   uuid.UUID
	ProviderKey string
	TokenName   string
	Value       string
	ExpiresAt   time.Time
}

// TokenPair is the credential pair handed out on signup, login and
// refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthResult is the only value crossing the service boundary. Errors is
// populated only when Success is false.
type AuthResult struct {
	Success      bool     `json:"success"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Saving is a single savings entry belonging to an account.
type Saving struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SavingInput is the create payload for a savings entry.
type SavingInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}
