package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/forgot-password/internal/domain"
)

func metaField(t *testing.T, err error) string {
	t.Helper()
	de, ok := err.(*domain.Error)
	require.True(t, ok, "expected *domain.Error, got %T", err)
	return de.Meta["field"]
}

func TestSignUpRequest_Validate(t *testing.T) {
	ok := SignUpRequest{Name: " Ada ", Email: " a@b.com ", Password: "12345678"}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "Ada", ok.Name)
	assert.Equal(t, "a@b.com", ok.Email)

	r := SignUpRequest{Password: "12345678"}
	err := r.Validate()
	assert.True(t, domain.Is(err, "missing_field"))
	assert.Equal(t, "email", metaField(t, err))

	r = SignUpRequest{Email: "nope", Password: "12345678"}
	assert.True(t, domain.Is(r.Validate(), "invalid_field"))

	r = SignUpRequest{Email: "a@b.com", Password: "short"}
	assert.True(t, domain.Is(r.Validate(), "weak_password"))

	r = SignUpRequest{Email: "a@b.com", Password: strings.Repeat("x", 73)}
	assert.True(t, domain.Is(r.Validate(), "invalid_field"))
}

func TestSignInRequest_Validate(t *testing.T) {
	r := SignInRequest{Email: "whatever", Password: "x"}
	assert.NoError(t, r.Validate())

	r = SignInRequest{Email: "a@b.com"}
	err := r.Validate()
	assert.True(t, domain.Is(err, "missing_field"))
	assert.Equal(t, "password", metaField(t, err))
}

func TestForgetPasswordRequest_Validate(t *testing.T) {
	r := ForgetPasswordRequest{Email: "a@b.com", RedirectTo: "/reset-password"}
	assert.NoError(t, r.Validate())

	r = ForgetPasswordRequest{}
	assert.True(t, domain.Is(r.Validate(), "missing_field"))
}

func TestResetPasswordRequest_Validate(t *testing.T) {
	r := ResetPasswordRequest{Token: "tok", NewPassword: "new-password"}
	assert.NoError(t, r.Validate())

	r = ResetPasswordRequest{NewPassword: "new-password"}
	err := r.Validate()
	assert.True(t, domain.Is(err, "missing_field"))
	assert.Equal(t, "token", metaField(t, err))

	r = ResetPasswordRequest{Token: "tok", NewPassword: "short"}
	assert.True(t, domain.Is(r.Validate(), "weak_password"))
}
