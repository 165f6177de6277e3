package auth

import (
	"time"

	"github.com/google/uuid"

	"savings_auth/internal/models"
)

const (
	ClaimID       = "id"
	ClaimSubject  = "sub"
	ClaimEmail    = "email"
	ClaimTokenID  = "jti"
	ClaimIssuedAt = "iat"
	ClaimRole     = "role"
)

// Claim is a single (type, value) pair destined for a signed token.
type Claim struct {
	Type  string
	Value string
}

// BuildClaims assembles the claim set for an account: id, sub, email, a
// fresh jti, iat rendered as RFC3339 UTC, then one role claim per role
// name in supplied order. Roles are deduplicated, first occurrence wins.
func BuildClaims(account models.Account, roles []string, now time.Time) []Claim {
	claims := []Claim{
		{Type: ClaimID, Value: account.ID.String()},
		{Type: ClaimSubject, Value: account.Email},
		{Type: ClaimEmail, Value: account.Email},
		{Type: ClaimTokenID, Value: uuid.NewString()},
		{Type: ClaimIssuedAt, Value: now.UTC().Format(time.RFC3339)},
	}

	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		claims = append(claims, Claim{Type: ClaimRole, Value: role})
	}

	return claims
}
