package email

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/domain"
)

// FakeSender is a development sender: it logs instead of delivering.
// FailMode "fail" makes every dispatch fail, for exercising error paths locally.
type FakeSender struct {
	lg       zerolog.Logger
	failMode string
}

func NewFakeSender(failMode string, lg zerolog.Logger) *FakeSender {
	return &FakeSender{
		lg:       lg.With().Str("component", "fake_sender").Logger(),
		failMode: strings.ToLower(strings.TrimSpace(failMode)),
	}
}

func (s *FakeSender) Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	if err := ctx.Err(); err != nil {
		return domain.DispatchFailed(err)
	}

	s.lg.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("FAKE send email")

	if s.failMode == "fail" {
		return domain.DispatchFailed(errors.New("fake sender: forced failure"))
	}
	return domain.Dispatched("fake_" + uuid.NewString())
}
