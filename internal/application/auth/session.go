package auth

import (
	"context"

	"github.com/baechuer/forgot-password/internal/domain"
)

// SignOut revokes one session. An empty id is a no-op.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

// ResolveSession loads the session and its user. Anything stale
// (expired session, deleted user) is reported as ErrSessionInvalid.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (AuthResult, error) {
	if sessionID == "" {
		return AuthResult{}, domain.ErrSessionMissing()
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return AuthResult{}, err
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		return AuthResult{}, domain.ErrSessionInvalid()
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return AuthResult{}, domain.ErrSessionInvalid()
		}
		return AuthResult{}, err
	}
	return AuthResult{User: u, Session: sess}, nil
}
