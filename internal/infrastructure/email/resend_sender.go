package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	resend "github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/domain"
)

type ResendConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint (proxies, tests). Empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	lg     zerolog.Logger
}

func NewResendSender(cfg ResendConfig, lg zerolog.Logger) (*ResendSender, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("resend: missing api key")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	client := resend.NewCustomClient(hc, key)

	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		client.BaseURL = u
	}

	return &ResendSender{
		client: client,
		lg:     lg.With().Str("component", "resend_sender").Logger(),
	}, nil
}

func (s *ResendSender) Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		s.lg.Debug().Err(err).Str("to", msg.To).Msg("resend send failed")
		return domain.DispatchFailed(fmt.Errorf("resend send: %w", err))
	}
	if sent == nil || sent.Id == "" {
		return domain.DispatchFailed(errors.New("resend send: empty message id"))
	}
	return domain.Dispatched(sent.Id)
}
