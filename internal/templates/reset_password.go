// Package templates renders transactional email bodies.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed reset_password.html
var files embed.FS

var resetPasswordTmpl = template.Must(template.ParseFS(files, "reset_password.html"))

// RenderResetPassword renders the reset email for email, linking to url.
// The url is embedded as given; html/template escapes it for the attribute and text contexts.
func RenderResetPassword(email, url string) (string, error) {
	data := struct {
		Email string
		URL   string
	}{
		Email: email,
		URL:   url,
	}

	var buf strings.Builder
	if err := resetPasswordTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset password email: %w", err)
	}
	return buf.String(), nil
}
