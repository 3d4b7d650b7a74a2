// internal/pkg/auth/password_test.go
package auth_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/pkg/auth"
)

func newPasswordManager() *auth.PasswordManager {
	cfg := &config.Config{}
	cfg.Security.BcryptCost = bcrypt.MinCost
	return auth.NewPasswordManager(cfg)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	pm := newPasswordManager()

	hash, err := pm.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct-horse-battery" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if err := pm.VerifyPassword("correct-horse-battery", hash); err != nil {
		t.Fatalf("VerifyPassword rejected the correct password: %v", err)
	}
	if err := pm.VerifyPassword("wrong-password-here", hash); err == nil {
		t.Fatal("VerifyPassword accepted a wrong password")
	}
}

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	pm := newPasswordManager()

	hash, err := pm.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("failed to read bcrypt cost: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Fatalf("expected cost %d, got %d", bcrypt.MinCost, cost)
	}
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	pm := newPasswordManager()

	if _, err := pm.HashPassword("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}
