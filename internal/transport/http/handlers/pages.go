package http_handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
	"github.com/baechuer/forgot-password/internal/logger"
	"github.com/baechuer/forgot-password/internal/session"
	"github.com/baechuer/forgot-password/internal/transport/http/middleware"
)

//go:embed pages/*.html
var pageFS embed.FS

var pageNames = []string{"home", "login", "signup", "forgot_password", "reset_password", "dashboard"}

type pageData struct {
	Title string
	Data  any
}

type dashboardView struct {
	Name  string
	Email string
}

type resetView struct {
	Valid bool
	Token string
}

type PageHandler struct {
	svc           *auth.Service
	pages         map[string]*template.Template
	secureCookies bool
}

func NewPageHandler(svc *auth.Service, secureCookies bool) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(pageFS, "pages/layout.html", "pages/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &PageHandler{svc: svc, pages: pages, secureCookies: secureCookies}, nil
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", pageData{Title: title, Data: data}); err != nil {
		logger.WithCtx(r.Context()).Error().Err(err).Str("page", name).Msg("page render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home", "Forgot Password Demo", nil)
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", "Login", nil)
}

func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup", "Sign Up", nil)
}

func (h *PageHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "forgot_password", "Forgot Password", nil)
}

// ResetPassword checks the token up front so a dead link never shows the form.
func (h *PageHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	view := resetView{Token: token}
	if token != "" {
		view.Valid = h.svc.PasswordResetValidate(r.Context(), token) == nil
	}
	h.render(w, r, "reset_password", "Reset Password", view)
}

// Dashboard is gated by session.Guard: the session has already been resolved
// by the LoadSession middleware, so the guard sees Pending then the outcome.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	redirect := ""
	guard := session.NewGuard(func(path string) { redirect = path })
	guard.Observe(session.Status{Pending: true})

	var st session.Status
	if res, ok := middleware.SessionFromContext(r.Context()); ok {
		st.Session = &session.Session{User: res.User, Session: res.Session}
	}

	view := guard.Observe(st)
	switch view.State {
	case session.Authenticated:
		h.render(w, r, "dashboard", "Dashboard", dashboardView{
			Name:  view.Session.User.DisplayName(),
			Email: view.Session.User.Email,
		})
	default:
		if redirect == "" {
			redirect = session.LoginPath
		}
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	}
}

func (h *PageHandler) DashboardSignOut(w http.ResponseWriter, r *http.Request) {
	if res, ok := middleware.SessionFromContext(r.Context()); ok {
		if err := h.svc.SignOut(r.Context(), res.Session.ID); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Msg("sign out failed")
		}
	}
	security.ClearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
