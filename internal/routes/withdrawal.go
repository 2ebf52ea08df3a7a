package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires the verification and withdrawal endpoints.
// submitGuard, when present, rejects duplicate concurrent submissions that
// carry the same Idempotency-Key.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler, submitGuard fiber.Handler) {
	group := r.Group("/withdrawals")
	group.Post("/verification", h.RequestCode)
	if submitGuard != nil {
		group.Post("/", submitGuard, h.Submit)
	} else {
		group.Post("/", h.Submit)
	}
	group.Get("/:transactionId", h.Status)
}
