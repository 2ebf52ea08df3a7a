package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	submitGuardPrefix    = "submit:inflight:"
)

// SubmitGuard rejects duplicate unsafe requests while a matching one is being
// processed. Unlike a response-caching idempotency layer, it never replays a
// result: withdrawal submission is at-most-once and a duplicate tap must be
// refused, not satisfied.
func SubmitGuard(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}

		cacheKey := submitGuardPrefix + key
		acquired, err := cache.SetNX(c.UserContext(), cacheKey, "1", ttl).Result()
		if err != nil {
			logger.Error("submit guard reservation failed", slog.String("key", key), slog.Any("error", err))
			return c.Next() // fail-open on cache errors
		}
		if !acquired {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		err = c.Next()

		// Release so an explicit user retry is possible; the per-account
		// attempt lock still serializes actual withdrawals.
		if delErr := cache.Del(c.UserContext(), cacheKey).Err(); delErr != nil {
			logger.Warn("submit guard release failed", slog.String("key", key), slog.Any("error", delErr))
		}
		return err
	}
}
