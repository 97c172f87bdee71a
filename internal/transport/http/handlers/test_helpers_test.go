package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/infrastructure/memory"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
	"github.com/baechuer/forgot-password/internal/transport/http/middleware"
)

const testResetBase = "http://app.test/reset-password?token="

type mockResetHandler struct {
	mock.Mock
}

func (m *mockResetHandler) SendResetPassword(ctx context.Context, req domain.ResetRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type testEnv struct {
	router http.Handler
	reset  *mockResetHandler
	svc    *auth.Service
}

// newTestEnv wires real handlers to in-memory stores; only the reset handler is mocked.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reset := &mockResetHandler{}
	svc := auth.NewService(
		memory.NewUserRepo(),
		security.NewBcryptHasher(4),
		memory.NewSessionStore(),
		memory.NewOneTimeTokenStore(),
		reset,
		auth.Config{PasswordResetBaseURL: testResetBase},
	)
	signer := security.NewSessionSigner("test-secret", "forgot-password")

	ah := NewAuthHandler(svc, signer, false)
	ph, err := NewPageHandler(svc, false)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.LoadSession(signer, svc))

	r.Post("/api/auth/sign-up/email", ah.SignUp)
	r.Post("/api/auth/sign-in/email", ah.SignIn)
	r.Post("/api/auth/sign-out", ah.SignOut)
	r.Get("/api/auth/session", ah.Session)
	r.Post("/api/auth/forget-password", ah.ForgetPassword)
	r.Get("/api/auth/reset-password/validate", ah.ValidateResetToken)
	r.Post("/api/auth/reset-password", ah.ResetPassword)

	r.Get("/", ph.Home)
	r.Get("/login", ph.Login)
	r.Get("/signup", ph.SignUp)
	r.Get("/forgot-password", ph.ForgotPassword)
	r.Get("/reset-password", ph.ResetPassword)
	r.Get("/dashboard", ph.Dashboard)
	r.Post("/dashboard/sign-out", ph.DashboardSignOut)

	return &testEnv{router: r, reset: reset, svc: svc}
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		rdr = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	c := readCookie(rr.Result(), security.SessionCookieName)
	require.NotNil(t, c, "expected session cookie")
	require.NotEmpty(t, c.Value)
	return c
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body=%s", rr.Body.String())
	return env.Error.Code
}

func (e *testEnv) signUp(t *testing.T, name, email, password string) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rr.Code, "body=%s", rr.Body.String())
	return sessionCookie(t, rr)
}
