package service

import (
	"fmt"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"golang.org/x/crypto/bcrypt"
)

// BcryptPIN verifies PINs against a bcrypt hash.
type BcryptPIN struct {
	hash []byte
}

var _ port.PINVerifier = (*BcryptPIN)(nil)

// NewBcryptPIN builds a verifier from a stored hash, or hashes pin when
// hash is empty.
func NewBcryptPIN(pin, hash string) (*BcryptPIN, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid PIN hash: %w", err)
		}
		return &BcryptPIN{hash: []byte(hash)}, nil
	}

	if !isPIN(pin) {
		return nil, &domain.ErrValidation{Field: "pin", Message: fmt.Sprintf("PIN must be %d digits", domain.PINLength)}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash PIN: %w", err)
	}
	return &BcryptPIN{hash: h}, nil
}

// Verify reports whether pin matches.
func (b *BcryptPIN) Verify(pin string) bool {
	if !isPIN(pin) {
		return false
	}
	return bcrypt.CompareHashAndPassword(b.hash, []byte(pin)) == nil
}

func isPIN(s string) bool {
	if len(s) != domain.PINLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
