// Password hashing.
//
// WHY BCRYPT?
// bcrypt is slow on purpose, and the cost factor lets that slowness grow with
// hardware. The salt is generated per hash and stored inside the hash string,
// so the users table needs only one column:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^
//	    cost (2^12 rounds)
//
// LOGIN TIMING:
// A login for an unknown username must cost as much as one with a wrong
// password. Otherwise the response time alone tells an attacker which
// usernames exist, even though both paths return the same message.
// VerifyMissing runs a real comparison against a throwaway hash for that case.

package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// MaxPasswordBytes is bcrypt's input limit. Longer passwords are rejected
// rather than silently truncated.
const MaxPasswordBytes = 72

// PasswordService hashes and verifies passwords with bcrypt.
//
// The cost is a field so tests (and low-powered dev machines) can use
// bcrypt.MinCost.
type PasswordService struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordService creates a PasswordService with DefaultCost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Costs outside bcrypt's range are rejected.
func NewPasswordServiceWithCost(cost int) (*PasswordService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &PasswordService{cost: cost}, nil
}

// NewPasswordServiceForTest returns a PasswordService with bcrypt.MinCost.
// Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Hash returns the bcrypt hash of plaintext. The salt and cost are embedded
// in the returned string.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks plaintext against a stored hash in constant time.
// Returns ErrPasswordMismatch for a wrong password.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyMissing spends the same time as Verify for a login whose account
// doesn't exist. It always returns ErrPasswordMismatch.
func (p *PasswordService) VerifyMissing(plaintext string) error {
	_ = bcrypt.CompareHashAndPassword(p.dummy(), []byte(plaintext))
	return ErrPasswordMismatch
}

// dummy is hashed at the service's own cost, once, so a comparison against
// it takes as long as one against a stored hash.
func (p *PasswordService) dummy() []byte {
	p.dummyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("no such account"), p.cost)
		if err != nil {
			// Only reachable with an out-of-range cost, which the
			// constructors reject.
			hashed = []byte{}
		}
		p.dummyHash = hashed
	})
	return p.dummyHash
}
