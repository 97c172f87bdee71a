package http_handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/infrastructure/security"
	"github.com/baechuer/forgot-password/internal/logger"
	"github.com/baechuer/forgot-password/internal/transport/http/dto"
	"github.com/baechuer/forgot-password/internal/transport/http/middleware"
	"github.com/baechuer/forgot-password/internal/transport/http/response"
)

type SessionSigner interface {
	Sign(sess domain.Session) (string, error)
}

type AuthHandler struct {
	svc           *auth.Service
	signer        SessionSigner
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, signer SessionSigner, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		signer:        signer,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.setSession(w, res.Session); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Str("email", res.User.Email).
		Msg("user_signed_up")

	response.Created(w, dto.NewSessionResponse(res.User, res.Session))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.setSession(w, res.Session); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_signed_in")

	response.OK(w, dto.NewSessionResponse(res.User, res.Session))
}

// SignOut always clears the cookie, even when there is no live session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if res, ok := middleware.SessionFromContext(r.Context()); ok {
		if err := h.svc.SignOut(r.Context(), res.Session.ID); err != nil {
			response.WriteError(w, r, err)
			return
		}
		logger.WithCtx(r.Context()).Info().Str("user_id", res.User.ID).Msg("user_signed_out")
	}

	security.ClearSessionCookie(w, h.secureCookies)
	response.NoContent(w)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		if raw, err := security.ReadSessionCookie(r); err != nil || raw == "" {
			response.WriteError(w, r, domain.ErrSessionMissing())
			return
		}
		response.WriteError(w, r, domain.ErrSessionInvalid())
		return
	}

	response.OK(w, dto.NewSessionResponse(res.User, res.Session))
}

// ForgetPassword answers 204 whether or not the email is registered, and
// whether or not the email went out. Only malformed input is reported; a
// dispatch failure would otherwise tell the caller the address has an account.
func (h *AuthHandler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgetPasswordRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PasswordResetRequest(r.Context(), req.Email); err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Kind == domain.KindValidation {
			response.WriteError(w, r, err)
			return
		}
		logger.WithCtx(r.Context()).Error().Err(err).Msg("password_reset_request_failed")
	}

	response.NoContent(w)
}

func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	if err := h.svc.PasswordResetValidate(r.Context(), token); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.ValidateTokenResponse{Valid: true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PasswordResetConfirm(r.Context(), req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	// every session of the user was revoked, including this browser's
	security.ClearSessionCookie(w, h.secureCookies)
	logger.WithCtx(r.Context()).Info().Msg("password_reset_completed")
	response.NoContent(w)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, sess domain.Session) error {
	tok, err := h.signer.Sign(sess)
	if err != nil {
		return err
	}
	security.SetSessionCookie(w, tok, sess.ExpiresAt, h.secureCookies)
	return nil
}
