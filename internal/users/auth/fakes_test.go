// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/sec"
	"github.com/taibuivan/apisegura/internal/platform/validate"
)

// # Clock

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *testClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(d)
}

// # Users

type memoryUsers struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*User
	err    error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{rows: make(map[int64]*User)}
}

func (store *memoryUsers) copyOf(user *User) *User {
	clone := *user
	return &clone
}

func (store *memoryUsers) FindByID(_ context.Context, id int64) (*User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if store.err != nil {
		return nil, store.err
	}
	if user, ok := store.rows[id]; ok {
		return store.copyOf(user), nil
	}
	return nil, nil
}

func (store *memoryUsers) FindByUsernameOrEmail(_ context.Context, credential string) (*User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if store.err != nil {
		return nil, store.err
	}
	for _, user := range store.rows {
		if user.Username == credential {
			return store.copyOf(user), nil
		}
	}
	for _, user := range store.rows {
		if strings.EqualFold(user.Email, credential) {
			return store.copyOf(user), nil
		}
	}
	return nil, nil
}

func (store *memoryUsers) Create(_ context.Context, user *User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	for _, existing := range store.rows {
		if existing.Username == user.Username {
			return apperr.Conflict("Username is already taken")
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("Email is already registered")
		}
	}
	store.nextID++
	user.ID = store.nextID
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	store.rows[user.ID] = store.copyOf(user)
	return nil
}

func (store *memoryUsers) UpdatePassword(_ context.Context, userID int64, newHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if user, ok := store.rows[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (store *memoryUsers) SetActive(_ context.Context, userID int64, active bool) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.rows[userID]
	if !ok {
		return nil, nil
	}
	user.Active = active
	return store.copyOf(user), nil
}

func (store *memoryUsers) SetRole(_ context.Context, userID int64, role sec.Role) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.rows[userID]
	if !ok {
		return nil, nil
	}
	user.Role = role
	return store.copyOf(user), nil
}

func (store *memoryUsers) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	ids := make([]int64, 0, len(store.rows))
	for id := range store.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := make([]*User, 0, limit)
	for i := offset; i < len(ids) && len(users) < limit; i++ {
		users = append(users, store.copyOf(store.rows[ids[i]]))
	}
	return users, len(ids), nil
}

// # Refresh Tokens

type memoryRefreshTokens struct {
	mu   sync.RWMutex
	rows map[string]RefreshToken
}

func newMemoryRefreshTokens() *memoryRefreshTokens {
	return &memoryRefreshTokens{rows: make(map[string]RefreshToken)}
}

func (store *memoryRefreshTokens) Save(_ context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.rows[tokenHash] = RefreshToken{TokenHash: tokenHash, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (store *memoryRefreshTokens) FindValid(_ context.Context, tokenHash string, userID int64, now time.Time) (*RefreshToken, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	row, ok := store.rows[tokenHash]
	if !ok || row.UserID != userID || !row.ExpiresAt.After(now) {
		return nil, nil
	}
	return &row, nil
}

func (store *memoryRefreshTokens) Delete(_ context.Context, tokenHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.rows, tokenHash)
	return nil
}

func (store *memoryRefreshTokens) DeleteAllForUser(_ context.Context, userID int64) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for hash, row := range store.rows {
		if row.UserID == userID {
			delete(store.rows, hash)
		}
	}
	return nil
}

func (store *memoryRefreshTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var removed int64
	for hash, row := range store.rows {
		if !row.ExpiresAt.After(now) {
			delete(store.rows, hash)
			removed++
		}
	}
	return removed, nil
}

func (store *memoryRefreshTokens) countFor(userID int64) int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	count := 0
	for _, row := range store.rows {
		if row.UserID == userID {
			count++
		}
	}
	return count
}

// # Login Attempts

type memoryAttempts struct {
	mu   sync.RWMutex
	rows []LoginAttempt
}

func (store *memoryAttempts) Record(_ context.Context, attempt LoginAttempt) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.rows = append(store.rows, attempt)
	return nil
}

func (store *memoryAttempts) CountRecentFailures(_ context.Context, ipAddress string, since time.Time) (int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	count := 0
	for _, attempt := range store.rows {
		if attempt.IPAddress == ipAddress && !attempt.Successful && attempt.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (store *memoryAttempts) all() []LoginAttempt {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return append([]LoginAttempt(nil), store.rows...)
}

// # Hasher

// flakyHasher fails the first failures Hash calls and remembers every hash
// passed to Verify.
type flakyHasher struct {
	sec.PasswordHasher

	mu       sync.Mutex
	failures int
	verified []string
}

func (hasher *flakyHasher) Hash(plaintext string) (string, error) {
	hasher.mu.Lock()
	defer hasher.mu.Unlock()
	if hasher.failures > 0 {
		hasher.failures--
		return "", errors.New("entropy source unavailable")
	}
	return hasher.PasswordHasher.Hash(plaintext)
}

func (hasher *flakyHasher) Verify(plaintext, hash string) bool {
	hasher.mu.Lock()
	hasher.verified = append(hasher.verified, hash)
	hasher.mu.Unlock()
	return hasher.PasswordHasher.Verify(plaintext, hash)
}

// # Recorder

type spyRecorder struct {
	mu       sync.Mutex
	logins   map[string]int
	register int
	issued   map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{logins: make(map[string]int), issued: make(map[string]int)}
}

func (spy *spyRecorder) LoginAttempt(outcome string) {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	spy.logins[outcome]++
}

func (spy *spyRecorder) UserRegistered() {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	spy.register++
}

func (spy *spyRecorder) TokensIssued(kind string) {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	spy.issued[kind]++
}

// # Fixture

const (
	testIP       = "203.0.113.7"
	testPassword = "Sup3r!Secret"
)

type fixture struct {
	service  *Service
	tokens   *sec.TokenService
	users    *memoryUsers
	refresh  *memoryRefreshTokens
	attempts *memoryAttempts
	recorder *spyRecorder
	clock    *testClock
	hasher   *sec.BcryptHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newTestClock()
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-9876543210",
		Issuer:        "api-segura",
		Audience:      "api-segura-users",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, sec.WithClock(clock.Now))
	require.NoError(t, err)

	// Minimum cost keeps the suite fast.
	hasher := sec.NewBcryptHasher(4)

	users := newMemoryUsers()
	refresh := newMemoryRefreshTokens()
	attempts := &memoryAttempts{}
	recorder := newSpyRecorder()

	throttle := NewThrottle(attempts, nil, DefaultMaxLoginAttempts, DefaultLoginWindow).WithClock(clock.Now)
	service := NewService(users, refresh, throttle, hasher, tokens, validate.DefaultPasswordPolicy(),
		WithRecorder(recorder),
		WithServiceClock(clock.Now),
	)

	return &fixture{
		service:  service,
		tokens:   tokens,
		users:    users,
		refresh:  refresh,
		attempts: attempts,
		recorder: recorder,
		clock:    clock,
		hasher:   hasher,
	}
}

func (f *fixture) register(t *testing.T, username, email string) *AuthResult {
	t.Helper()
	result, err := f.service.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) login(username, password string) (*AuthResult, error) {
	return f.service.Login(context.Background(), LoginInput{
		Username:  username,
		Password:  password,
		IPAddress: testIP,
	})
}
