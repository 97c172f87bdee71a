package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/forgot-password/internal/domain"
)

// maxPasswordBytes is where bcrypt stops reading input. The DTO limit counts
// characters, so a multi-byte password can pass validation and still be
// too long here.
const maxPasswordBytes = 72

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost for any cost bcrypt would
// reject.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", domain.ErrWeakPassword("too_long")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns nil on a match. An over-long candidate can never match a
// hash produced by Hash.
func (h *BcryptHasher) Compare(hash string, password string) error {
	if len(password) > maxPasswordBytes {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
