package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptySecret is returned when a signer is constructed without a
	// signing secret. Issuing tokens with a defaulted secret is a
	// misconfiguration, not a degraded mode.
	ErrEmptySecret = errors.New("auth: signing secret is empty")

	ErrInvalidToken = errors.New("auth: invalid token")
)

// TokenSigner signs and parses access tokens with a symmetric HS256
// secret. The clock is a field so tests can pin issuance and
// verification instants.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) (*TokenSigner, error) {
	const op = "auth.NewTokenSigner"

	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	return &TokenSigner{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// Sign encodes the claim set into a signed JWT expiring at now+expiresIn.
// Role claims are folded into a single "role" claim holding the list;
// every other claim keeps its own key.
func (s *TokenSigner) Sign(claims []Claim, expiresIn time.Duration) (string, error) {
	const op = "auth.TokenSigner.Sign"

	if expiresIn <= 0 {
		return "", fmt.Errorf("%s: expiration window must be positive, got %v", op, expiresIn)
	}

	mapClaims := jwt.MapClaims{
		"exp": jwt.NewNumericDate(s.now().Add(expiresIn)),
	}

	var roles []string
	for _, claim := range claims {
		if claim.Type == ClaimRole {
			roles = append(roles, claim.Value)
			continue
		}
		mapClaims[claim.Type] = claim.Value
	}
	if len(roles) > 0 {
		mapClaims[ClaimRole] = roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParsedClaims is the claim set recovered from a verified access token.
type ParsedClaims struct {
	AccountID string
	Subject   string
	Email     string
	TokenID   string
	IssuedAt  string
	Roles     []string
	ExpiresAt time.Time
}

// Parse verifies signature and expiry and returns the embedded claims.
// Tampered, expired and foreign-algorithm tokens all come back as
// ErrInvalidToken.
func (s *TokenSigner) Parse(tokenString string) (ParsedClaims, error) {
	const op = "auth.TokenSigner.Parse"

	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return ParsedClaims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ParsedClaims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	parsed := ParsedClaims{
		AccountID: stringClaim(mapClaims, ClaimID),
		Subject:   stringClaim(mapClaims, ClaimSubject),
		Email:     stringClaim(mapClaims, ClaimEmail),
		TokenID:   stringClaim(mapClaims, ClaimTokenID),
		IssuedAt:  stringClaim(mapClaims, ClaimIssuedAt),
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		parsed.ExpiresAt = exp.Time
	}

	if raw, ok := mapClaims[ClaimRole].([]interface{}); ok {
		for _, v := range raw {
			if role, ok := v.(string); ok {
				parsed.Roles = append(parsed.Roles, role)
			}
		}
	}

	return parsed, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
