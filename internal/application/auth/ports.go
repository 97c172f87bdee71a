package auth

import (
	"context"
	"time"

	"github.com/baechuer/forgot-password/internal/domain"
)

/*
UserRepo
--------
Persistence port for users. Implementations normalize email (trim + lower)
and return domain.ErrUserNotFound / domain.ErrEmailAlreadyExists.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
SessionStore
------------
Server-side sessions referenced by the signed session cookie.
Get returns domain.ErrSessionInvalid for unknown or expired ids.
*/
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (domain.Session, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) error
}

type OneTimeTokenKind string

const TokenPasswordReset OneTimeTokenKind = "password_reset"

/*
OneTimeTokenStore
-----------------
Opaque one-time tokens. Expiry and single use are the store's job:
Consume must be atomic, and both Consume and Peek return
domain.ErrTokenInvalid for unknown, used or expired tokens.
*/
type OneTimeTokenStore interface {
	Save(ctx context.Context, kind OneTimeTokenKind, token string, userID string, ttl time.Duration) error
	Consume(ctx context.Context, kind OneTimeTokenKind, token string) (userID string, err error)
	Peek(ctx context.Context, kind OneTimeTokenKind, token string) (userID string, err error)
}

// ResetPasswordHandler receives every minted reset request. The reset
// controller implements it in direct mode, the RabbitMQ publisher in queue mode.
type ResetPasswordHandler interface {
	SendResetPassword(ctx context.Context, req domain.ResetRequest) error
}
