package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/forgot-password/internal/application/auth"
	"github.com/baechuer/forgot-password/internal/domain"
)

func TestUserRepo_CreateAndLookup(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	u, err := r.Create(ctx, domain.User{ID: "u1", Email: " A@B.com ", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	got, err := r.GetByEmail(ctx, "a@B.COM")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = r.Create(ctx, domain.User{ID: "u2", Email: "a@b.com"})
	assert.True(t, domain.Is(err, "email_already_exists"))

	_, err = r.Create(ctx, domain.User{Email: "c@d.com"})
	assert.True(t, domain.Is(err, "missing_field"))

	require.NoError(t, r.UpdatePasswordHash(ctx, "u1", "h2"))
	got, _ = r.GetByID(ctx, "u1")
	assert.Equal(t, "h2", got.PasswordHash)

	assert.True(t, domain.Is(r.UpdatePasswordHash(ctx, "nope", "h"), "user_not_found"))
	_, err = r.GetByID(ctx, "nope")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestOTT_SingleUse(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", time.Hour))

	uid, err := s.Peek(ctx, auth.TokenPasswordReset, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	uid, err = s.Consume(ctx, auth.TokenPasswordReset, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = s.Consume(ctx, auth.TokenPasswordReset, "tok")
	assert.True(t, domain.Is(err, "token_invalid"))
}

func TestOTT_ConcurrentConsume_OnlyOneWins(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", time.Hour))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, auth.TokenPasswordReset, "tok"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestOTT_Expiry(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := s.Peek(ctx, auth.TokenPasswordReset, "tok")
	assert.True(t, domain.Is(err, "token_invalid"))
}

func TestOTT_KindsAreSeparate(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", time.Hour))
	_, err := s.Peek(ctx, auth.OneTimeTokenKind("other"), "tok")
	assert.True(t, domain.Is(err, "token_invalid"))
}

func TestSessionStore_RevokeAll(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	a, err := s.Create(ctx, "u1", time.Hour)
	require.NoError(t, err)
	b, _ := s.Create(ctx, "u2", time.Hour)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, s.RevokeAll(ctx, "u1"))
	_, err = s.Get(ctx, a.ID)
	assert.True(t, domain.Is(err, "session_invalid"))
	_, err = s.Get(ctx, b.ID)
	assert.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, b.ID))
	_, err = s.Get(ctx, b.ID)
	assert.True(t, domain.Is(err, "session_invalid"))
}
