package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/baechuer/forgot-password/internal/domain"
)

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]domain.User

	getByEmailErr error
	createErr     error
	updatePwdErr  error

	updatedPwd []struct{ id, hash string }
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[string]domain.User{},
		byEmail: map[string]domain.User{},
	}
}

func (f *fakeUserRepo) seed(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{userID, newHash})
	return nil
}

// fakeHasher stores "hash:<password>".
type fakeHasher struct {
	hashErr error
}

func (h fakeHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + password, nil
}

func (h fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSessionStore struct {
	mu sync.Mutex

	byID map[string]domain.Session
	seq  int

	createErr error

	revoked    []string
	revokedAll []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byID: map[string]domain.Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.Session{}, f.createErr
	}
	f.seq++
	s := domain.Session{
		ID:        fmt.Sprintf("sess-%d", f.seq),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	f.byID[s.ID] = s
	return s, nil
}

func (f *fakeSessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.byID[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionInvalid()
	}
	return s, nil
}

func (f *fakeSessionStore) Revoke(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.byID, id)
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeSessionStore) RevokeAll(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

type ottEntry struct {
	userID string
	exp    time.Time
}

type fakeOTT struct {
	mu sync.Mutex

	data map[string]ottEntry
	now  func() time.Time

	saveErr error

	saved []struct {
		kind  OneTimeTokenKind
		token string
		user  string
		ttl   time.Duration
	}
}

func newFakeOTT() *fakeOTT {
	return &fakeOTT{data: map[string]ottEntry{}, now: time.Now}
}

func (f *fakeOTT) key(kind OneTimeTokenKind, token string) string {
	return string(kind) + ":" + token
}

func (f *fakeOTT) Save(ctx context.Context, kind OneTimeTokenKind, token, userID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.data[f.key(kind, token)] = ottEntry{userID: userID, exp: f.now().Add(ttl)}
	f.saved = append(f.saved, struct {
		kind  OneTimeTokenKind
		token string
		user  string
		ttl   time.Duration
	}{kind, token, userID, ttl})
	return nil
}

func (f *fakeOTT) lookup(kind OneTimeTokenKind, token string, consume bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := f.key(kind, token)
	e, ok := f.data[k]
	if !ok || !f.now().Before(e.exp) {
		return "", domain.ErrTokenInvalid()
	}
	if consume {
		delete(f.data, k)
	}
	return e.userID, nil
}

func (f *fakeOTT) Consume(ctx context.Context, kind OneTimeTokenKind, token string) (string, error) {
	return f.lookup(kind, token, true)
}

func (f *fakeOTT) Peek(ctx context.Context, kind OneTimeTokenKind, token string) (string, error) {
	return f.lookup(kind, token, false)
}

type fakeResetHandler struct {
	mu sync.Mutex

	err  error
	reqs []domain.ResetRequest
}

func (f *fakeResetHandler) SendResetPassword(ctx context.Context, req domain.ResetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = append(f.reqs, req)
	return f.err
}

func (f *fakeResetHandler) calls() []domain.ResetRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ResetRequest(nil), f.reqs...)
}

type harness struct {
	svc      *Service
	users    *fakeUserRepo
	sessions *fakeSessionStore
	ott      *fakeOTT
	reset    *fakeResetHandler
}

const testResetBase = "https://app/reset-password?token="

func newHarness() *harness {
	h := &harness{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionStore(),
		ott:      newFakeOTT(),
		reset:    &fakeResetHandler{},
	}
	h.svc = NewService(h.users, fakeHasher{}, h.sessions, h.ott, h.reset, Config{
		SessionTTL:            time.Hour,
		PasswordResetBaseURL:  testResetBase,
		PasswordResetTokenTTL: time.Hour,
	})
	return h
}
