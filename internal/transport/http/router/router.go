package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	SignUp(w http.ResponseWriter, r *http.Request)
	SignIn(w http.ResponseWriter, r *http.Request)
	SignOut(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)

	// Password reset
	ForgetPassword(w http.ResponseWriter, r *http.Request)
	ValidateResetToken(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type PageHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	SignUp(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	Dashboard(w http.ResponseWriter, r *http.Request)
	DashboardSignOut(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Pages  PageHandler

	RequestIDMW func(http.Handler) http.Handler
	MetricsMW   func(http.Handler) http.Handler
	SessionMW   func(http.Handler) http.Handler

	// nil disables limiting for that route
	RLSignUp         func(http.Handler) http.Handler
	RLSignIn         func(http.Handler) http.Handler
	RLForgetPassword func(http.Handler) http.Handler
	RLResetPassword  func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Pages == nil {
		return nil, fmt.Errorf("nil Pages handler")
	}
	if deps.SessionMW == nil {
		return nil, fmt.Errorf("nil Session middleware")
	}

	r := chi.NewRouter()
	if deps.RequestIDMW != nil {
		r.Use(deps.RequestIDMW)
	}
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionMW)

		r.Route("/api/auth", func(r chi.Router) {
			r.With(opt(deps.RLSignUp)...).Post("/sign-up/email", deps.Auth.SignUp)
			r.With(opt(deps.RLSignIn)...).Post("/sign-in/email", deps.Auth.SignIn)
			r.Post("/sign-out", deps.Auth.SignOut)
			r.Get("/session", deps.Auth.Session)

			// --- Password reset ---
			r.With(opt(deps.RLForgetPassword)...).Post("/forget-password", deps.Auth.ForgetPassword)
			r.Get("/reset-password/validate", deps.Auth.ValidateResetToken) // ?token=...
			r.With(opt(deps.RLResetPassword)...).Post("/reset-password", deps.Auth.ResetPassword)
		})

		r.Get("/", deps.Pages.Home)
		r.Get("/login", deps.Pages.Login)
		r.Get("/signup", deps.Pages.SignUp)
		r.Get("/forgot-password", deps.Pages.ForgotPassword)
		r.Get("/reset-password", deps.Pages.ResetPassword) // ?token=...
		r.Get("/dashboard", deps.Pages.Dashboard)
		r.Post("/dashboard/sign-out", deps.Pages.DashboardSignOut)
	})

	return r, nil
}

func opt(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}
