package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// ---------- fakes ----------

func write(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg))
}

type fakeHealth struct{}

func (fakeHealth) Healthz(w http.ResponseWriter, r *http.Request) { write(w, "ok") }
func (fakeHealth) Readyz(w http.ResponseWriter, r *http.Request)  { write(w, "ready") }

type fakeAuth struct{}

func (fakeAuth) SignUp(w http.ResponseWriter, r *http.Request)  { write(w, "sign_up") }
func (fakeAuth) SignIn(w http.ResponseWriter, r *http.Request)  { write(w, "sign_in") }
func (fakeAuth) SignOut(w http.ResponseWriter, r *http.Request) { write(w, "sign_out") }
func (fakeAuth) Session(w http.ResponseWriter, r *http.Request) { write(w, "session") }
func (fakeAuth) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	write(w, "forget_password")
}
func (fakeAuth) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	write(w, "validate")
}
func (fakeAuth) ResetPassword(w http.ResponseWriter, r *http.Request) { write(w, "reset_password") }

type fakePages struct{}

func (fakePages) Home(w http.ResponseWriter, r *http.Request)           { write(w, "home") }
func (fakePages) Login(w http.ResponseWriter, r *http.Request)          { write(w, "login") }
func (fakePages) SignUp(w http.ResponseWriter, r *http.Request)         { write(w, "signup") }
func (fakePages) ForgotPassword(w http.ResponseWriter, r *http.Request) { write(w, "forgot") }
func (fakePages) ResetPassword(w http.ResponseWriter, r *http.Request)  { write(w, "reset_page") }
func (fakePages) Dashboard(w http.ResponseWriter, r *http.Request)      { write(w, "dashboard") }
func (fakePages) DashboardSignOut(w http.ResponseWriter, r *http.Request) {
	write(w, "dashboard_sign_out")
}

func passMW(next http.Handler) http.Handler { return next }

func headerMW(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-MW", name)
			next.ServeHTTP(w, r)
		})
	}
}

func validDeps() Deps {
	return Deps{
		Health:    fakeHealth{},
		Auth:      fakeAuth{},
		Pages:     fakePages{},
		SessionMW: passMW,
	}
}

func TestNew_RejectsMissingDeps(t *testing.T) {
	for name, mutate := range map[string]func(*Deps){
		"health":  func(d *Deps) { d.Health = nil },
		"auth":    func(d *Deps) { d.Auth = nil },
		"pages":   func(d *Deps) { d.Pages = nil },
		"session": func(d *Deps) { d.SessionMW = nil },
	} {
		d := validDeps()
		mutate(&d)
		if _, err := New(d); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNew_Routes(t *testing.T) {
	h, err := New(validDeps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/healthz", "ok"},
		{http.MethodGet, "/readyz", "ready"},
		{http.MethodPost, "/api/auth/sign-up/email", "sign_up"},
		{http.MethodPost, "/api/auth/sign-in/email", "sign_in"},
		{http.MethodPost, "/api/auth/sign-out", "sign_out"},
		{http.MethodGet, "/api/auth/session", "session"},
		{http.MethodPost, "/api/auth/forget-password", "forget_password"},
		{http.MethodGet, "/api/auth/reset-password/validate?token=x", "validate"},
		{http.MethodPost, "/api/auth/reset-password", "reset_password"},
		{http.MethodGet, "/", "home"},
		{http.MethodGet, "/login", "login"},
		{http.MethodGet, "/signup", "signup"},
		{http.MethodGet, "/forgot-password", "forgot"},
		{http.MethodGet, "/reset-password?token=x", "reset_page"},
		{http.MethodGet, "/dashboard", "dashboard"},
		{http.MethodPost, "/dashboard/sign-out", "dashboard_sign_out"},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusOK || rr.Body.String() != tc.want {
			t.Fatalf("%s %s: code=%d body=%q want %q", tc.method, tc.path, rr.Code, rr.Body.String(), tc.want)
		}
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	h, err := New(validDeps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestNew_RateLimitOnlyOnItsRoute(t *testing.T) {
	d := validDeps()
	d.RLForgetPassword = headerMW("rl")
	h, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/forget-password", nil))
	if rr.Header().Get("X-MW") != "rl" {
		t.Fatalf("expected limiter on forget-password")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/email", nil))
	if rr.Header().Get("X-MW") != "" {
		t.Fatalf("limiter leaked onto sign-in")
	}
}

func TestNew_SessionMiddlewareSkipsOps(t *testing.T) {
	d := validDeps()
	d.SessionMW = headerMW("session")
	h, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-MW") != "" {
		t.Fatalf("session middleware should not run on /healthz")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Header().Get("X-MW") != "session" {
		t.Fatalf("session middleware should run on /dashboard")
	}
}
