package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/models"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// PasswordHasher derives and checks one-way password hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(hash, plaintext string) bool
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePassword trims plaintext and applies the password policy.
func ValidatePassword(plaintext string) (string, error) {
	plaintext = strings.TrimSpace(plaintext)
	if len(plaintext) < MinPasswordLength {
		return "", apperror.Validation("Password must be at least 6 characters")
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.Validation("Password must be at most 72 bytes")
	}
	if strings.Contains(strings.ToLower(plaintext), "password") {
		return "", apperror.Validation(`Password cannot contain "password"`)
	}
	return plaintext, nil
}

// Credentials owns the password field of an account. Plaintext only passes
// through SetPassword and Verify and is never stored.
type Credentials struct {
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentials(hasher PasswordHasher) *Credentials {
	return &Credentials{hasher: hasher}
}

// SetPassword validates plaintext and replaces acc.PasswordHash with its hash.
// It is the only place a hash is derived, so saving an account without
// calling it leaves the stored hash untouched.
func (c *Credentials) SetPassword(acc *models.Account, plaintext string) error {
	plaintext, err := ValidatePassword(plaintext)
	if err != nil {
		return err
	}
	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return apperror.Internal(err)
	}
	acc.PasswordHash = hash
	return nil
}

// Verify reports whether plaintext matches acc's hash. The input is trimmed
// the same way SetPassword trims it. A nil account is checked against a
// throwaway hash so both outcomes cost the same.
func (c *Credentials) Verify(acc *models.Account, plaintext string) bool {
	plaintext = strings.TrimSpace(plaintext)
	if acc == nil || acc.PasswordHash == "" {
		c.hasher.Compare(c.dummy(), plaintext)
		return false
	}
	return c.hasher.Compare(acc.PasswordHash, plaintext)
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		c.dummyHash, _ = c.hasher.Hash(hex.EncodeToString(buf))
	})
	return c.dummyHash
}
