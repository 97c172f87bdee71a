package auth

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/metrics"
)

// SignUp creates an account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return AuthResult{}, domain.ErrMissingField("email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, domain.ErrInvalidField("email", "invalid format")
	}
	if err := checkPassword(password); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, domain.ErrHashFailed(err)
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		metrics.RecordAuthAttempt("sign_up", "failure")
		return AuthResult{}, err
	}

	res, err := s.openSession(ctx, created)
	if err != nil {
		return AuthResult{}, err
	}
	metrics.RecordAuthAttempt("sign_up", "success")
	return res, nil
}
