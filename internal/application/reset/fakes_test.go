package reset

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/baechuer/forgot-password/internal/domain"
)

var errBoom = errors.New("boom")

type fakeMailer struct {
	mu sync.Mutex

	calls []domain.OutgoingEmail

	result   domain.DispatchResult
	panicV   any
	block    chan struct{} // when set, Dispatch waits for close(block) and ignores ctx
	honorCtx bool          // when set, Dispatch waits for ctx.Done()
}

func newFakeMailer(res domain.DispatchResult) *fakeMailer {
	return &fakeMailer{result: res}
}

func (m *fakeMailer) Dispatch(ctx context.Context, msg domain.OutgoingEmail) domain.DispatchResult {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	res, p, block, honor := m.result, m.panicV, m.block, m.honorCtx
	m.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if block != nil {
		<-block
	}
	if honor {
		<-ctx.Done()
		return domain.DispatchFailed(ctx.Err())
	}
	return res
}

func (m *fakeMailer) Calls() []domain.OutgoingEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OutgoingEmail, len(m.calls))
	copy(out, m.calls)
	return out
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferLogger() (zerolog.Logger, *syncBuffer) {
	sb := &syncBuffer{}
	return zerolog.New(sb), sb
}

func echoRender(email, url string) (string, error) {
	return "<p>" + email + "</p><a href=\"" + url + "\">reset</a>", nil
}
