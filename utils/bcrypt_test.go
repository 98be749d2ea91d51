package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordUsesCostFromEnv(t *testing.T) {
	t.Setenv("BCRYPT_COST", "6")

	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != 6 {
		t.Errorf("hash cost = %d, want 6", cost)
	}
	if err := ComparePassword(string(hash), "secret"); err != nil {
		t.Errorf("ComparePassword rejected matching password: %v", err)
	}
	if err := ComparePassword(string(hash), "wrong"); err == nil {
		t.Error("ComparePassword accepted wrong password")
	}
}

func TestBcryptCostFallsBackToDefault(t *testing.T) {
	for _, v := range []string{"", "abc", "3", "99"} {
		t.Setenv("BCRYPT_COST", v)
		if got := BcryptCost(); got != bcrypt.DefaultCost {
			t.Errorf("BCRYPT_COST=%q: cost = %d, want %d", v, got, bcrypt.DefaultCost)
		}
	}
}
