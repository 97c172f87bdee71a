package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/baechuer/forgot-password/internal/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	Insecure bool
}

type SMTPSender struct {
	lg zerolog.Logger

	host     string
	port     int
	user     string
	pass     string
	insecure bool

	timeout time.Duration
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		lg:       lg.With().Str("component", "smtp_sender").Logger(),
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.Username,
		pass:     cfg.Password,
		insecure: cfg.Insecure,
		timeout:  cfg.Timeout,
	}
}

func (s *SMTPSender) Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return domain.DispatchFailed(fmt.Errorf("smtp: invalid from address: %w", err))
	}
	if err := m.To(msg.To); err != nil {
		return domain.DispatchFailed(fmt.Errorf("smtp: invalid to address: %w", err))
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	id := s.messageID()
	m.SetMessageIDWithValue(id)

	tlsPolicy := mail.TLSMandatory
	if s.insecure {
		tlsPolicy = mail.TLSOpportunistic
	}
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.user != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.user), mail.WithPassword(s.pass))
	}

	c, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return domain.DispatchFailed(fmt.Errorf("smtp: client init: %w", err))
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		if containsAny(err.Error(), "535", "5.7.8", "authentication") {
			return domain.DispatchFailed(fmt.Errorf("smtp: auth failed: %w", err))
		}
		return domain.DispatchFailed(fmt.Errorf("smtp: send: %w", err))
	}

	s.lg.Debug().Str("host", s.host).Str("to", msg.To).Msg("smtp send ok")
	return domain.Dispatched(id)
}

func (s *SMTPSender) messageID() string {
	host := s.host
	if host == "" {
		host = "localhost"
	}
	return uuid.NewString() + "@" + host
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if x != "" && strings.Contains(s, x) {
			return true
		}
	}
	return false
}
