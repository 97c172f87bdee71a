package main

import (
	"github.com/spf13/cobra"

	"github.com/baechuer/forgot-password/internal/logger"
)

// Flags shared by render and send.
type resetFlags struct {
	email string
	url   string
}

func (f *resetFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "recipient email address")
	cmd.Flags().StringVar(&f.url, "url", "", "reset link to embed in the email")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("url")
}

// NewRootCmd creates the root command for the resetctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resetctl",
		Short:        "Password reset email tooling",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// logs go to stderr so stdout stays clean for piping
			logger.InitWithWriter(cmd.ErrOrStderr())
		},
	}

	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewSendCmd())

	return cmd
}
