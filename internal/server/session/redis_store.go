package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a JSON string whose key TTL matches the
// session expiry, so Redis drops idle sessions on its own.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:session:",
		now:    time.Now,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.ID == "" || s.UserID == 0 {
		return fmt.Errorf("session: missing id or user_id")
	}
	return r.put(ctx, s)
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	if !s.ExpiresAt.After(r.now()) {
		return nil, common.ErrorNotFound
	}

	return &s, nil
}

func (r *RedisStore) Update(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing id")
	}
	if !s.ExpiresAt.After(r.now()) {
		return r.Delete(ctx, s.ID)
	}

	ttl, data, err := r.encode(s)
	if err != nil {
		return err
	}
	// XX: a session deleted by a concurrent logout must stay deleted.
	ok, err := r.client.SetXX(ctx, r.key(s.ID), data, ttl).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis set: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) encode(s Session) (time.Duration, []byte, error) {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0, nil, fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return 0, nil, fmt.Errorf("session: failed to marshal: %w", err)
	}
	return ttl, data, nil
}

func (r *RedisStore) put(ctx context.Context, s Session) error {
	ttl, data, err := r.encode(s)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}
