package auth

import (
	"encoding/base64"
	"testing"
)

func TestGenerateSecretLength(t *testing.T) {
	secret, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(secret) != 44 {
		t.Fatalf("expected 44 base64 characters for 32 bytes, got %d", len(secret))
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		t.Fatalf("secret is not valid base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 decoded bytes, got %d", len(raw))
	}
}

func TestGenerateSecretRejectsNonPositiveLength(t *testing.T) {
	for _, n := range []int{0, -1, -32} {
		if _, err := GenerateSecret(n); err == nil {
			t.Fatalf("expected error for byte length %d", n)
		}
	}
}

func TestGenerateSecretDoesNotRepeat(t *testing.T) {
	const trials = 10000

	seen := make(map[string]struct{}, trials)
	for i := 0; i < trials; i++ {
		secret, err := GenerateSecret(32)
		if err != nil {
			t.Fatalf("GenerateSecret: %v", err)
		}
		if _, ok := seen[secret]; ok {
			t.Fatalf("secret repeated after %d trials", i)
		}
		seen[secret] = struct{}{}
	}
}
