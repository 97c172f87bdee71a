// Package reset sends the password reset email for a reset request.
package reset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/metrics"
)

const Subject = "Reset Your Password"

const defaultTimeout = 10 * time.Second

// Mailer delivers one rendered email and reports the outcome.
type Mailer interface {
	Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult
}

// RenderFunc produces the HTML body for (recipient email, reset url).
type RenderFunc func(email, url string) (string, error)

type Config struct {
	From string
	// Development enables logging of the raw reset URL.
	Development bool
	Timeout     time.Duration
}

type Controller struct {
	mailer  Mailer
	render  RenderFunc
	from    string
	dev     bool
	timeout time.Duration
	lg      zerolog.Logger
}

func NewController(mailer Mailer, render RenderFunc, cfg Config, lg zerolog.Logger) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Controller{
		mailer:  mailer,
		render:  render,
		from:    cfg.From,
		dev:     cfg.Development,
		timeout: timeout,
		lg:      lg.With().Str("component", "reset_controller").Logger(),
	}
}

var (
	errDispatchTimeout = errors.New("reset email dispatch timed out")
	errDispatchPanic   = errors.New("mailer panicked")
)

// SendResetPassword renders and dispatches exactly one reset email for req.
// Every failure is logged here and surfaces as domain.ErrResetEmailFailed.
func (c *Controller) SendResetPassword(ctx context.Context, req domain.ResetRequest) (err error) {
	start := time.Now()
	to := req.User.Email

	defer func() {
		if r := recover(); r != nil {
			c.lg.Error().
				Str("to", to).
				Interface("panic", r).
				Msg("reset password email panicked")
			metrics.RecordResetDispatch(metrics.OutcomePanic, time.Since(start))
			err = domain.ErrResetEmailFailed()
		}
	}()

	// whitespace-only input is rejected but the address goes out as given
	if strings.TrimSpace(to) == "" || strings.TrimSpace(req.URL) == "" {
		c.lg.Error().
			Str("user_id", req.User.ID).
			Bool("has_email", strings.TrimSpace(to) != "").
			Bool("has_url", req.URL != "").
			Msg("reset password request incomplete")
		metrics.RecordResetDispatch(metrics.OutcomeInvalid, time.Since(start))
		return domain.ErrResetEmailFailed()
	}

	html, err := c.render(to, req.URL)
	if err != nil {
		c.lg.Error().Err(err).Str("to", to).Msg("reset password email render failed")
		metrics.RecordResetDispatch(metrics.OutcomeFailed, time.Since(start))
		return domain.ErrResetEmailFailed()
	}

	res := c.dispatch(ctx, domain.OutgoingEmail{
		From:    c.from,
		To:      to,
		Subject: Subject,
		HTML:    html,
	})
	if !res.Success || res.Err != nil {
		cause := res.Err
		if cause == nil {
			cause = errors.New("mailer reported failure without cause")
		}
		outcome := metrics.OutcomeFailed
		switch {
		case errors.Is(cause, errDispatchTimeout):
			outcome = metrics.OutcomeTimeout
		case errors.Is(cause, errDispatchPanic):
			outcome = metrics.OutcomePanic
		}
		c.lg.Error().Err(cause).Str("to", to).Msg("failed to send reset password email")
		metrics.RecordResetDispatch(outcome, time.Since(start))
		return domain.ErrResetEmailFailed()
	}

	c.lg.Info().
		Str("to", to).
		Str("email_id", res.MessageID).
		Msg("reset password email sent")
	if c.dev {
		c.lg.Info().Str("reset_url", req.URL).Msg("reset url (dev only)")
	}
	metrics.RecordResetDispatch(metrics.OutcomeSent, time.Since(start))
	return nil
}

// dispatch runs the mailer under the controller timeout. A mailer that ignores
// ctx is abandoned at the deadline; its goroutine finishes on its own.
func (c *Controller) dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan domain.DispatchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.DispatchFailed(fmt.Errorf("%w: %v", errDispatchPanic, r))
			}
		}()
		done <- c.mailer.Dispatch(ctx, msg)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return domain.DispatchFailed(fmt.Errorf("%w after %s: %w", errDispatchTimeout, c.timeout, ctx.Err()))
	}
}
