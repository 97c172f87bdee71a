package middleware

import (
	"context"
	"net/http"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
)

type SessionVerifier interface {
	Verify(token string) (security.SessionClaims, error)
}

type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (auth.AuthResult, error)
}

type sessionCtxKey struct{}

// LoadSession attaches the caller's session, if the cookie is present and
// still valid, to the request context. It never rejects a request; handlers
// decide what an absent session means.
func LoadSession(verifier SessionVerifier, resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := security.ReadSessionCookie(r)
			if err != nil || raw == "" || verifier == nil || resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := resolver.ResolveSession(r.Context(), claims.SessionID)
			if err != nil || res.User.ID != claims.UserID {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (auth.AuthResult, bool) {
	res, ok := ctx.Value(sessionCtxKey{}).(auth.AuthResult)
	return res, ok
}

// WithSession is used by tests and by handlers that just created a session.
func WithSession(ctx context.Context, res auth.AuthResult) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, res)
}
