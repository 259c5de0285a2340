package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt hashes always start with $2a$ or $2b$
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_PasswordLength(t *testing.T) {
	ps := NewPasswordServiceForTest()

	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Errorf("Hash() should accept a %d-byte password, got error: %v", MaxPasswordBytes, err)
	}
	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes+1)); err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
}

func TestVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, err := ps.Hash("123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
		wantNil  bool
	}{
		{name: "correct password", hash: hash, password: "123", wantNil: true},
		{name: "wrong password", hash: hash, password: "321", wantErr: ErrPasswordMismatch},
		{name: "empty password", hash: hash, password: "", wantErr: ErrPasswordMismatch},
		{name: "garbage hash", hash: "not-a-hash", password: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			switch {
			case tt.wantNil:
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err == nil || errors.Is(err, ErrPasswordMismatch) {
					t.Errorf("Verify() error = %v, want a non-mismatch error", err)
				}
			}
		})
	}
}

func TestNewPasswordServiceWithCost(t *testing.T) {
	if _, err := NewPasswordServiceWithCost(3); err == nil {
		t.Error("cost 3 should be rejected")
	}
	if _, err := NewPasswordServiceWithCost(32); err == nil {
		t.Error("cost 32 should be rejected")
	}
	if _, err := NewPasswordServiceWithCost(4); err != nil {
		t.Errorf("cost 4 error = %v", err)
	}
}

func TestVerifyMissing(t *testing.T) {
	ps, err := NewPasswordServiceWithCost(5)
	if err != nil {
		t.Fatalf("NewPasswordServiceWithCost() error = %v", err)
	}

	if err := ps.VerifyMissing("anything"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("VerifyMissing() error = %v, want ErrPasswordMismatch", err)
	}

	// The throwaway hash must cost as much as a stored one, or the unknown
	// username path is measurably faster.
	cost, err := bcrypt.Cost(ps.dummy())
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != 5 {
		t.Errorf("dummy hash cost = %d, want 5", cost)
	}

	if &ps.dummy()[0] != &ps.dummy()[0] {
		t.Error("dummy hash should be computed once")
	}
}
