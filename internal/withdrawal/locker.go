package withdrawal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "withdrawal:inflight:"

// Locker serializes withdrawal attempts per account: a second submission is
// rejected while one is in flight.
type Locker interface {
	TryAcquire(ctx context.Context, accountID string) (bool, error)
	Release(ctx context.Context, accountID string) error
}

// RedisLocker implements the in-flight lock with SETNX, so the guarantee
// holds across bridge instances. The TTL caps orphaned locks if a process
// dies mid-attempt.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker builds a Redis-backed locker.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, accountID string) (bool, error) {
	return l.client.SetNX(ctx, lockPrefix+accountID, "1", l.ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, accountID string) error {
	return l.client.Del(ctx, lockPrefix+accountID).Err()
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker constructs an in-process locker for tests and dev mode.
func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]bool)}
}

func (l *memoryLocker) TryAcquire(_ context.Context, accountID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[accountID] {
		return false, nil
	}
	l.held[accountID] = true
	return true, nil
}

func (l *memoryLocker) Release(_ context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, accountID)
	return nil
}
