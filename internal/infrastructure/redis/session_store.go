package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/forgot-password/internal/domain"
)

// SessionStore implements auth.SessionStore with per-user versioning:
//
//	sess:<id>       -> "<uid>:<ver>:<expires unix ms>" with TTL
//	sessver:<uid>   -> <ver>
//
// RevokeAll bumps sessver:<uid>, which invalidates every older session
// without scanning keys.
type SessionStore struct {
	rdb *goredis.Client

	sessPrefix string
	verPrefix  string
	idBytes    int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:        rdb,
		sessPrefix: "sess:",
		verPrefix:  "sessver:",
		idBytes:    32,
	}
}

var errSessionsNotConfigured = errors.New("redis session store not configured")

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Session{}, domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.Session{}, domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return domain.Session{}, errSessionsNotConfigured
	}

	ver, err := s.userVersion(ctx, userID)
	if err != nil {
		return domain.Session{}, err
	}

	id, err := s.newSessionID()
	if err != nil {
		return domain.Session{}, domain.ErrRandomFailed(err)
	}

	exp := time.Now().Add(ttl).UTC()
	val := fmt.Sprintf("%s:%d:%d", userID, ver, exp.UnixMilli())
	if err := s.rdb.Set(ctx, s.sessPrefix+id, val, ttl).Err(); err != nil {
		return domain.Session{}, domain.ErrRedisUnavailable(err)
	}

	return domain.Session{ID: id, UserID: userID, ExpiresAt: exp}, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Session{}, domain.ErrSessionInvalid()
	}
	if s.rdb == nil {
		return domain.Session{}, errSessionsNotConfigured
	}

	val, err := s.rdb.Get(ctx, s.sessPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Session{}, domain.ErrSessionInvalid()
		}
		return domain.Session{}, domain.ErrRedisUnavailable(err)
	}

	uid, ver, exp, err := parseSessionValue(val)
	if err != nil {
		return domain.Session{}, domain.ErrSessionInvalid()
	}

	cur, err := s.userVersion(ctx, uid)
	if err != nil {
		return domain.Session{}, err
	}
	if ver != cur {
		return domain.Session{}, domain.ErrSessionInvalid()
	}

	return domain.Session{ID: sessionID, UserID: uid, ExpiresAt: exp}, nil
}

// Revoke is idempotent.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	if s.rdb == nil {
		return errSessionsNotConfigured
	}
	if err := s.rdb.Del(ctx, s.sessPrefix+sessionID).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return errSessionsNotConfigured
	}
	if err := s.rdb.Incr(ctx, s.verPrefix+userID).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) userVersion(ctx context.Context, userID string) (int64, error) {
	v, err := s.rdb.Get(ctx, s.verPrefix+userID).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, domain.ErrRedisUnavailable(err)
	}
	return v, nil
}

func (s *SessionStore) newSessionID() (string, error) {
	b := make([]byte, s.idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func parseSessionValue(v string) (uid string, ver int64, exp time.Time, err error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, time.Time{}, errors.New("invalid session value")
	}
	ver, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	return parts[0], ver, time.UnixMilli(ms).UTC(), nil
}
