package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
)

type fakeResolver struct {
	res   auth.AuthResult
	err   error
	calls int
	gotID string
}

func (f *fakeResolver) ResolveSession(ctx context.Context, sessionID string) (auth.AuthResult, error) {
	f.calls++
	f.gotID = sessionID
	return f.res, f.err
}

func runLoadSession(t *testing.T, resolver SessionResolver, cookie *http.Cookie) (bool, auth.AuthResult) {
	t.Helper()

	signer := security.NewSessionSigner("test-secret", "forgot-password")
	var (
		got   auth.AuthResult
		found bool
	)
	h := LoadSession(signer, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return found, got
}

func signedCookie(t *testing.T, sess domain.Session) *http.Cookie {
	t.Helper()
	tok, err := security.NewSessionSigner("test-secret", "forgot-password").Sign(sess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return &http.Cookie{Name: security.SessionCookieName, Value: tok}
}

func TestLoadSession_Valid(t *testing.T) {
	sess := domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	res := &fakeResolver{res: auth.AuthResult{User: domain.User{ID: "u1", Email: "a@b.com"}, Session: sess}}

	found, got := runLoadSession(t, res, signedCookie(t, sess))
	if !found {
		t.Fatalf("expected session in context")
	}
	if got.User.Email != "a@b.com" || res.gotID != "s1" {
		t.Fatalf("got=%+v resolverID=%q", got, res.gotID)
	}
}

func TestLoadSession_NoCookie(t *testing.T) {
	res := &fakeResolver{}
	found, _ := runLoadSession(t, res, nil)
	if found || res.calls != 0 {
		t.Fatalf("found=%v calls=%d", found, res.calls)
	}
}

func TestLoadSession_TamperedCookie(t *testing.T) {
	res := &fakeResolver{}
	found, _ := runLoadSession(t, res, &http.Cookie{Name: security.SessionCookieName, Value: "not-a-jwt"})
	if found || res.calls != 0 {
		t.Fatalf("found=%v calls=%d", found, res.calls)
	}
}

func TestLoadSession_Revoked(t *testing.T) {
	sess := domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	res := &fakeResolver{err: domain.ErrSessionInvalid()}

	found, _ := runLoadSession(t, res, signedCookie(t, sess))
	if found {
		t.Fatalf("revoked session must not be attached")
	}
}

func TestLoadSession_UserMismatch(t *testing.T) {
	sess := domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	res := &fakeResolver{res: auth.AuthResult{User: domain.User{ID: "someone-else"}}}

	found, _ := runLoadSession(t, res, signedCookie(t, sess))
	if found {
		t.Fatalf("mismatched user must not be attached")
	}
}

func TestLoadSession_ResolverError(t *testing.T) {
	sess := domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	res := &fakeResolver{err: errors.New("boom")}
	if found, _ := runLoadSession(t, res, signedCookie(t, sess)); found {
		t.Fatalf("expected no session")
	}
}
