package pat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// createScript writes the record and its index entry in one step and refuses
// to overwrite an existing id. The index is written first so a failure there
// leaves no half-written hash behind.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[1], 'user_id', ARGV[2], 'token_prefix', ARGV[3], 'created_at', ARGV[4], 'is_active', ARGV[5])
return 1
`)

// revokeScript deactivates a token only when it is active and owned by ARGV[1]
var revokeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'user_id') ~= ARGV[1] then
	return 0
end
if redis.call('HGET', KEYS[1], 'is_active') ~= '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'is_active', '0', 'revoked_at', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// RedisStore keeps tokens as Redis hashes with a per-user index set
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// getTokenKey generates the Redis key for a token record
func getTokenKey(id string) string {
	return fmt.Sprintf("pat:%s", id)
}

// getUserTokensKey generates the Redis key for a user's token set
func getUserTokensKey(userID string) string {
	return fmt.Sprintf("pat:user:%s", userID)
}

// revokedIndexKey orders revoked token ids by revocation time
const revokedIndexKey = "pat:revoked"

func (s *RedisStore) Create(ctx context.Context, token *Token) error {
	keys := []string{getTokenKey(token.ID), getUserTokensKey(token.UserID)}
	created, err := createScript.Run(ctx, s.client, keys,
		token.ID,
		token.UserID,
		token.TokenPrefix,
		token.CreatedAt.UnixNano(),
		boolField(token.IsActive),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if created == 0 {
		return ErrTokenExists
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Token, error) {
	data, err := s.client.HGetAll(ctx, getTokenKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	return parseToken(id, data)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	ids, err := s.client.SMembers(ctx, getUserTokensKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user tokens: %w", err)
	}
	if len(ids) == 0 {
		return []*Token{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, getTokenKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get user tokens: %w", err)
	}

	tokens := make([]*Token, 0, len(ids))
	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			continue
		}
		token, err := parseToken(ids[i], data)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id, userID string, at time.Time) error {
	keys := []string{getTokenKey(id), revokedIndexKey}
	revoked, err := revokeScript.Run(ctx, s.client, keys, userID, at.UnixNano(), id).Int()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if revoked == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) PurgeRevoked(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, revokedIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixNano(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find revoked tokens: %w", err)
	}

	for _, id := range ids {
		key := getTokenKey(id)
		userID, err := s.client.HGet(ctx, key, "user_id").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("failed to read token owner: %w", err)
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, key)
		if userID != "" {
			pipe.SRem(ctx, getUserTokensKey(userID), id)
		}
		pipe.ZRem(ctx, revokedIndexKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to purge token: %w", err)
		}
	}

	return len(ids), nil
}

func parseToken(id string, data map[string]string) (*Token, error) {
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at for token %s: %w", id, err)
	}

	token := &Token{
		ID:          id,
		UserID:      data["user_id"],
		TokenPrefix: data["token_prefix"],
		CreatedAt:   time.Unix(0, createdAt).UTC(),
		IsActive:    data["is_active"] == "1",
	}

	if raw, ok := data["revoked_at"]; ok && raw != "" {
		revokedAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid revoked_at for token %s: %w", id, err)
		}
		t := time.Unix(0, revokedAt).UTC()
		token.RevokedAt = &t
	}

	return token, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
