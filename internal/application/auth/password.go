package auth

import (
	"context"

	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/metrics"
)

// PasswordResetRequest mints a one-time token and hands the reset URL to the
// reset handler. Unknown emails succeed silently so callers can't enumerate
// accounts. Handler errors are returned as-is.
func (s *Service) PasswordResetRequest(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return nil
		}
		return err
	}

	token, err := newOpaqueToken(resetTokenLen)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}

	if err := s.ott.Save(ctx, TokenPasswordReset, token, u.ID, s.passwordResetTTL); err != nil {
		return err
	}

	if err := s.reset.SendResetPassword(ctx, domain.ResetRequest{
		User: u,
		URL:  s.passwordResetBaseURL + token,
	}); err != nil {
		metrics.RecordAuthAttempt("password_reset_request", "failure")
		return err
	}
	metrics.RecordAuthAttempt("password_reset_request", "success")
	return nil
}

// PasswordResetValidate reports whether a reset token is still usable without consuming it.
func (s *Service) PasswordResetValidate(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	_, err := s.ott.Peek(ctx, TokenPasswordReset, token)
	return err
}

// PasswordResetConfirm consumes the token, sets the new password and signs
// the user out everywhere.
func (s *Service) PasswordResetConfirm(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if newPassword == "" {
		return domain.ErrMissingField("new_password")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	userID, err := s.ott.Consume(ctx, TokenPasswordReset, token)
	if err != nil {
		metrics.RecordAuthAttempt("password_reset_confirm", "failure")
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	metrics.RecordAuthAttempt("password_reset_confirm", "success")
	return nil
}
