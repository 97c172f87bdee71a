package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
)

// OneTimeTokenStore keeps ott:<kind>:<token> -> user id with a TTL.
// Expiry is Redis' job; single use comes from an atomic GET+DEL.
type OneTimeTokenStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewOneTimeTokenStore(c *Client) *OneTimeTokenStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &OneTimeTokenStore{rdb: rdb, prefix: "ott:"}
}

var errOTTNotConfigured = errors.New("redis one-time-token store not configured")

const consumeLua = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
return v
`

func (s *OneTimeTokenStore) Save(ctx context.Context, kind auth.OneTimeTokenKind, token, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	switch {
	case token == "":
		return domain.ErrMissingField("token")
	case userID == "":
		return domain.ErrMissingField("user_id")
	case ttl <= 0:
		return domain.ErrMissingField("ttl")
	case s.rdb == nil:
		return errOTTNotConfigured
	}

	if err := s.rdb.Set(ctx, s.key(kind, token), userID, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *OneTimeTokenStore) Consume(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return "", errOTTNotConfigured
	}

	res, err := s.rdb.Eval(ctx, consumeLua, []string{s.key(kind, token)}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrTokenInvalid()
		}
		return "", domain.ErrRedisUnavailable(err)
	}
	uid, ok := res.(string)
	if !ok || strings.TrimSpace(uid) == "" {
		return "", domain.ErrTokenInvalid()
	}
	return uid, nil
}

func (s *OneTimeTokenStore) Peek(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return "", errOTTNotConfigured
	}

	uid, err := s.rdb.Get(ctx, s.key(kind, token)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrTokenInvalid()
		}
		return "", domain.ErrRedisUnavailable(err)
	}
	if strings.TrimSpace(uid) == "" {
		return "", domain.ErrTokenInvalid()
	}
	return uid, nil
}

func (s *OneTimeTokenStore) key(kind auth.OneTimeTokenKind, token string) string {
	return s.prefix + string(kind) + ":" + token
}
