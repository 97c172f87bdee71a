package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/baechuer/forgot-password/internal/domain"
)

type SessionStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewSessionStore() *SessionStore {
	return &SessionStore{c: gocache.New(24*time.Hour, 5*time.Minute)}
}

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Session{}, domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.Session{}, domain.ErrMissingField("ttl")
	}

	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}
	s.c.Set(sess.ID, sess, ttl)
	return sess, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	v, ok := s.c.Get(sessionID)
	if !ok {
		return domain.Session{}, domain.ErrSessionInvalid()
	}
	sess, ok := v.(domain.Session)
	if !ok {
		return domain.Session{}, domain.ErrSessionInvalid()
	}
	return sess, nil
}

func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	s.c.Delete(sessionID)
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, item := range s.c.Items() {
		if sess, ok := item.Object.(domain.Session); ok && sess.UserID == userID {
			s.c.Delete(id)
		}
	}
	return nil
}
