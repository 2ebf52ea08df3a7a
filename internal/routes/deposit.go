package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/deposit"
)

// RegisterDepositRoutes wires the STK push deposit endpoints.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler) {
	group := r.Group("/deposits")
	group.Get("/quote", h.Quote)
	group.Post("/", h.Initiate)
}
