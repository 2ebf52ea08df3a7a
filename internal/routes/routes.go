package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/instantransfer/instantransfer/internal/auth"
	"github.com/instantransfer/instantransfer/internal/config"
	"github.com/instantransfer/instantransfer/internal/deposit"
	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/history"
	"github.com/instantransfer/instantransfer/internal/middleware"
	"github.com/instantransfer/instantransfer/internal/notification"
	"github.com/instantransfer/instantransfer/internal/session"
	"github.com/instantransfer/instantransfer/internal/withdrawal"
)

const attemptLockTTL = 15 * time.Minute

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Session store, optionally sealing tokens at rest.
	var store session.Store
	if d.Cache != nil {
		var sealer *session.Sealer
		if len(d.Cfg.SessionCipherKey) > 0 {
			var err error
			sealer, err = session.NewSealer(d.Cfg.SessionCipherKey)
			if err != nil {
				return err
			}
		}
		store = session.NewRedisStore(d.Cache, sealer)
	} else {
		store = session.NewMemoryStore()
	}

	client := gateway.NewClient(d.Cfg.GatewayBaseURL, d.Cfg.HTTPTimeout, d.Logger)

	var locks withdrawal.Locker
	if d.Cache != nil {
		locks = withdrawal.NewRedisLocker(d.Cache, attemptLockTTL)
	} else {
		locks = withdrawal.NewMemoryLocker()
	}

	var recorder history.Recorder
	if d.DB != nil {
		recorder = history.NewPostgresRecorder(d.DB)
	} else {
		recorder = history.NewMemoryRecorder()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	withdrawalSvc := withdrawal.NewService(withdrawal.Policy{
		MinimumUSD:      d.Cfg.MinimumUSD,
		PollInterval:    d.Cfg.PollInterval,
		MaxPolls:        d.Cfg.MaxPolls,
		MaxPollFailures: d.Cfg.MaxPollFailures,
	}, locks, recorder, notifier, d.Logger)
	depositSvc := deposit.NewService(d.Cfg.ExchangeRateKES, d.Cfg.MinimumUSD, notifier, d.Logger)

	authHandler := auth.NewHandler(client, store)
	withdrawalHandler := withdrawal.NewHandler(withdrawalSvc, client, store)
	depositHandler := deposit.NewHandler(depositSvc, client, store)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.AuthRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	protected := api.Group("", session.RequireSession(store))
	RegisterAccountRoutes(protected, client, store)
	RegisterTransactionRoutes(protected, client, store)

	var submitGuard fiber.Handler
	if d.Cache != nil {
		submitGuard = middleware.SubmitGuard(d.Cache, attemptLockTTL, d.Logger)
	}
	RegisterWithdrawalRoutes(protected, withdrawalHandler, submitGuard)
	RegisterDepositRoutes(protected, depositHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
