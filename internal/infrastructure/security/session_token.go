package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/forgot-password/internal/domain"
)

// SessionSigner turns a server-side session into the signed value carried by
// the session cookie. The JWT only references the session; revocation is
// decided by the session store.
type SessionSigner struct {
	secret []byte
	issuer string
}

func NewSessionSigner(secret string, issuer string) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		issuer: issuer,
	}
}

type SessionClaims struct {
	UserID    string
	SessionID string
	Exp       time.Time
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *SessionSigner) Sign(sess domain.Session) (string, error) {
	claims := sessionClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Every failure is ErrSessionInvalid.
func (s *SessionSigner) Verify(token string) (SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return SessionClaims{}, domain.ErrSessionInvalid()
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return SessionClaims{}, domain.ErrSessionInvalid()
	}

	return SessionClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Exp:       claims.ExpiresAt.Time,
	}, nil
}
