package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/auth"
)

// RegisterAuthRoutes wires the token-exchange and logout endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/deriv", rateLimiter, h.Login)
	} else {
		group.Post("/deriv", h.Login)
	}
	group.Post("/logout", h.Logout)
}
