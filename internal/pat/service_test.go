package pat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/diary-api/internal/logging"
)

var tokenPattern = regexp.MustCompile(`^p_[A-Za-z0-9_-]+$`)

// memoryStore is an in-memory Store that counts lookups
type memoryStore struct {
	mu       sync.Mutex
	tokens   map[string]*Token
	getCalls int
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: make(map[string]*Token)}
}

func (m *memoryStore) Create(_ context.Context, token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tokens[token.ID]; ok {
		return ErrTokenExists
	}
	copied := *token
	m.tokens[token.ID] = &copied
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	token, ok := m.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID string) ([]*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var tokens []*Token
	for _, t := range m.tokens {
		if t.UserID == userID {
			copied := *t
			tokens = append(tokens, &copied)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (m *memoryStore) Revoke(_ context.Context, id, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	token, ok := m.tokens[id]
	if !ok || token.UserID != userID || !token.IsActive {
		return ErrNotFound
	}
	token.IsActive = false
	token.RevokedAt = &at
	return nil
}

func (m *memoryStore) PurgeRevoked(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tokens {
		if !t.IsActive && t.RevokedAt != nil && t.RevokedAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

var fixedNow = time.Date(2025, 4, 6, 14, 2, 0, 0, time.UTC)

func newTestService(store Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, logging.Discard(), opts...)
}

func TestCreateToken_Format(t *testing.T) {
	svc := newTestService(newMemoryStore())

	result, err := svc.CreateToken(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Regexp(t, tokenPattern, result.Token)
	assert.Len(t, result.Token, 2+54, "40 random bytes encode to 54 unpadded base64 chars")
	assert.Equal(t, result.Token[:PrefixLength], result.TokenPrefix)
	assert.Equal(t, HashToken(result.Token), result.ID)
	assert.NotContains(t, result.ID, "=")
	assert.Equal(t, fixedNow, result.CreatedAt)
	assert.Equal(t, CreateWarning, result.Warning)
}

func TestCreateToken_RequiresUser(t *testing.T) {
	svc := newTestService(newMemoryStore())

	_, err := svc.CreateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestCreateToken_CollisionIsSurfaced(t *testing.T) {
	store := newMemoryStore()
	entropy := bytes.Repeat([]byte{7}, secretBytes*2)
	svc := newTestService(store, WithRandom(bytes.NewReader(entropy)))

	first, err := svc.CreateToken(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.CreateToken(context.Background(), "user-2")
	require.ErrorIs(t, err, ErrTokenExists)

	stored, err := store.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID, "existing record must not be overwritten")
}

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		created, err := svc.CreateToken(ctx, userID)
		require.NoError(t, err)

		record, err := svc.ValidateToken(ctx, created.Token)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, userID, record.UserID)
		assert.True(t, record.IsActive)
		assert.True(t, record.IsValid())
	}
}

func TestValidateToken_PrefixRejectionSkipsStore(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	for _, token := range []string{"", "abc", "P_abcdef", "pat_abc", " p_abc", "Bearer p_abc"} {
		record, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Nil(t, record, token)
	}

	assert.Zero(t, store.getCalls)
}

func TestValidateToken_UnknownToken(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	record, err := svc.ValidateToken(context.Background(), "p_doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, store.getCalls)
}

func TestValidateToken_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	svc := newTestService(store)

	record, err := svc.ValidateToken(context.Background(), "p_something")
	assert.Error(t, err)
	assert.Nil(t, record)
}

func TestRevokeToken(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	created, err := svc.CreateToken(ctx, "user-1")
	require.NoError(t, err)

	assert.False(t, svc.RevokeToken(ctx, created.ID, "user-2"), "other users cannot revoke")

	assert.True(t, svc.RevokeToken(ctx, created.ID, "user-1"))

	record, err := svc.ValidateToken(ctx, created.Token)
	require.NoError(t, err)
	assert.Nil(t, record, "revoked token must not validate")

	assert.False(t, svc.RevokeToken(ctx, created.ID, "user-1"), "second revoke finds no active token")
	assert.False(t, svc.RevokeToken(ctx, "unknown", "user-1"))

	tokens, err := svc.GetUserTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.False(t, tokens[0].IsActive, "revoked tokens are still listed")
}

func TestRevokeToken_StoreErrorReturnsFalse(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.CreateToken(context.Background(), "user-1")
	require.NoError(t, err)

	store.err = errors.New("timeout")
	assert.False(t, svc.RevokeToken(context.Background(), created.ID, "user-1"))
}

func TestGetUserTokens_NeverExposesSecret(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	var secrets []string
	for i := 0; i < 3; i++ {
		created, err := svc.CreateToken(ctx, "user-1")
		require.NoError(t, err)
		secrets = append(secrets, created.Token)
	}
	_, err := svc.CreateToken(ctx, "user-2")
	require.NoError(t, err)

	tokens, err := svc.GetUserTokens(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, tokens, 3)

	encoded, err := json.Marshal(tokens)
	require.NoError(t, err)
	for _, secret := range secrets {
		assert.NotContains(t, string(encoded), secret)
	}
	for _, summary := range tokens {
		assert.Len(t, summary.TokenPrefix, PrefixLength)
	}
}

func TestPurgeRevoked(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	kept, err := svc.CreateToken(ctx, "user-1")
	require.NoError(t, err)
	revoked, err := svc.CreateToken(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, svc.RevokeToken(ctx, revoked.ID, "user-1"))

	n, err := svc.PurgeRevoked(ctx, fixedNow.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tokens, err := svc.GetUserTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, kept.ID, tokens[0].ID)
}
