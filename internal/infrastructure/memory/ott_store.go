package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
)

// OneTimeTokenStore keeps tokens in a go-cache with per-item expiry.
// Consume holds mu across get+delete so a token can only be used once.
type OneTimeTokenStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewOneTimeTokenStore() *OneTimeTokenStore {
	return &OneTimeTokenStore{c: gocache.New(time.Hour, time.Minute)}
}

func ottKey(kind auth.OneTimeTokenKind, token string) string {
	return string(kind) + ":" + token
}

func (s *OneTimeTokenStore) Save(ctx context.Context, kind auth.OneTimeTokenKind, token, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return domain.ErrMissingField("token")
	case strings.TrimSpace(userID) == "":
		return domain.ErrMissingField("user_id")
	case ttl <= 0:
		return domain.ErrMissingField("ttl")
	}

	s.c.Set(ottKey(kind, token), userID, ttl)
	return nil
}

func (s *OneTimeTokenStore) Consume(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := ottKey(kind, token)
	v, ok := s.c.Get(k)
	if !ok {
		return "", domain.ErrTokenInvalid()
	}
	s.c.Delete(k)

	uid, _ := v.(string)
	if uid == "" {
		return "", domain.ErrTokenInvalid()
	}
	return uid, nil
}

func (s *OneTimeTokenStore) Peek(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}

	v, ok := s.c.Get(ottKey(kind, token))
	if !ok {
		return "", domain.ErrTokenInvalid()
	}
	uid, _ := v.(string)
	if uid == "" {
		return "", domain.ErrTokenInvalid()
	}
	return uid, nil
}
