package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:v1:"

// RedisStore persists sessions in Redis, one value per device. When a sealer
// is provided the stored payload is encrypted so tokens never sit in the
// clear on the cache node.
type RedisStore struct {
	client *redis.Client
	sealer *Sealer
}

// NewRedisStore builds a Redis-backed session store. sealer may be nil.
func NewRedisStore(client *redis.Client, sealer *Sealer) *RedisStore {
	return &RedisStore{client: client, sealer: sealer}
}

// Get loads the session for the device.
func (r *RedisStore) Get(ctx context.Context, deviceID string) (Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+deviceID).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionMissing
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	if r.sealer != nil {
		raw, err = r.sealer.Open(raw)
		if err != nil {
			return Session{}, fmt.Errorf("unseal session: %w", err)
		}
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Put stores the session, replacing any previous one for the device.
func (r *RedisStore) Put(ctx context.Context, deviceID string, s Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if r.sealer != nil {
		payload, err = r.sealer.Seal(payload)
		if err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
	}

	if err := r.client.Set(ctx, keyPrefix+deviceID, payload, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Clear deletes the session. Idempotent.
func (r *RedisStore) Clear(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, keyPrefix+deviceID).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
