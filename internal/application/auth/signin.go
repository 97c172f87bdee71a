package auth

import (
	"context"

	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/metrics"
)

// SignIn authenticates with email and password and opens a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		metrics.RecordAuthAttempt("sign_in", "failure")
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			metrics.RecordAuthAttempt("sign_in", "failure")
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		metrics.RecordAuthAttempt("sign_in", "failure")
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	res, err := s.openSession(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}
	metrics.RecordAuthAttempt("sign_in", "success")
	return res, nil
}
