package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/baechuer/forgot-password/internal/application/reset"
	"github.com/baechuer/forgot-password/internal/bootstrap"
	"github.com/baechuer/forgot-password/internal/config"
	"github.com/baechuer/forgot-password/internal/domain"
	"github.com/baechuer/forgot-password/internal/logger"
)

// NewSendCmd creates the send subcommand.
func NewSendCmd() *cobra.Command {
	var (
		f    resetFlags
		name string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one reset password email through the configured provider",
		Long: `Sends a reset password email through the same controller the server
uses, with the provider selected by MAIL_PROVIDER. Prints the provider
message id on success. Useful to verify mail credentials:

  MAIL_PROVIDER=resend RESEND_API_KEY=re_... resetctl send --email you@example.com --url https://app/reset-password?token=test`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadMail()
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), cmd, cfg, domain.ResetRequest{
				User: domain.User{Email: f.email, Name: name},
				URL:  f.url,
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "recipient display name")
	return cmd
}

func runSend(ctx context.Context, cmd *cobra.Command, cfg *config.Config, req domain.ResetRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.Logger

	mailer, err := bootstrap.NewMailer(cfg, lg)
	if err != nil {
		return err
	}
	rec := &recordingMailer{next: mailer}

	ctrl := bootstrap.NewResetController(cfg, rec, lg)
	if err := ctrl.SendResetPassword(ctx, req); err != nil {
		return err
	}

	res, ok := rec.result()
	if !ok {
		return errors.New("mailer was not called")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.MessageID)
	return err
}

// recordingMailer keeps the last dispatch result so the CLI can print the
// provider message id, which the controller only logs.
type recordingMailer struct {
	next reset.Mailer

	mu   sync.Mutex
	last *domain.DispatchResult
}

func (m *recordingMailer) Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	res := m.next.Dispatch(ctx, msg)
	m.mu.Lock()
	m.last = &res
	m.mu.Unlock()
	return res
}

func (m *recordingMailer) result() (domain.DispatchResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return domain.DispatchResult{}, false
	}
	return *m.last, true
}
