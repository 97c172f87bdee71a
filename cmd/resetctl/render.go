package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baechuer/forgot-password/internal/templates"
)

// NewRenderCmd creates the render subcommand.
func NewRenderCmd() *cobra.Command {
	var f resetFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the reset password email HTML",
		Long: `Renders the reset password email for the given recipient and link
and prints the HTML to stdout. Nothing is sent.

  resetctl render --email a@b.com --url "https://app/reset-password?token=xyz" > preview.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			html, err := templates.RenderResetPassword(f.email, f.url)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		},
	}
	f.bind(cmd)
	return cmd
}
