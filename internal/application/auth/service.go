package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/forgot-password/internal/domain"
)

const (
	minPasswordLen = 8
	// bcrypt input limit, in bytes
	maxPasswordLen = 72
	resetTokenLen  = 32
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	sessions SessionStore
	ott      OneTimeTokenStore
	reset    ResetPasswordHandler

	sessionTTL time.Duration

	// e.g. https://app/reset-password?token=
	passwordResetBaseURL string
	passwordResetTTL     time.Duration

	now func() time.Time
}

type Config struct {
	SessionTTL            time.Duration
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	sessions SessionStore,
	ott OneTimeTokenStore,
	reset ResetPasswordHandler,
	cfg Config,
) *Service {
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		ott:      ott,
		reset:    reset,

		sessionTTL: sessionTTL,

		passwordResetBaseURL: cfg.PasswordResetBaseURL,
		passwordResetTTL:     resetTTL,

		now: time.Now,
	}
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	User    domain.User
	Session domain.Session
}

func (s *Service) openSession(ctx context.Context, u domain.User) (AuthResult, error) {
	sess, err := s.sessions.Create(ctx, u.ID, s.sessionTTL)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Session: sess}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(p string) error {
	if p == "" {
		return domain.ErrMissingField("password")
	}
	if len(p) < minPasswordLen {
		return domain.ErrWeakPassword("min length 8")
	}
	if len(p) > maxPasswordLen {
		return domain.ErrWeakPassword("max length 72 bytes")
	}
	return nil
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
