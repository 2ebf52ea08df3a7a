package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/session"
)

// RegisterTransactionRoutes wires the transaction history passthrough.
func RegisterTransactionRoutes(r fiber.Router, client *gateway.Client, store session.Store) {
	r.Get("/transactions", func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not logged in")
		}
		bound := client.Bind(gateway.NewAuthenticator(store, client, session.DeviceFromCtx(c)))

		txs, err := bound.Transactions(c.UserContext(), sess.AccountID)
		if err != nil {
			return remoteError(err)
		}
		if txs == nil {
			txs = []gateway.Transaction{}
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":      true,
			"transactions": txs,
		})
	})
}
