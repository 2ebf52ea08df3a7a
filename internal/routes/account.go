package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/session"
)

// RegisterAccountRoutes wires the authenticated account profile endpoint.
func RegisterAccountRoutes(r fiber.Router, client *gateway.Client, store session.Store) {
	r.Get("/account", func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not logged in")
		}
		deviceID := session.DeviceFromCtx(c)
		bound := client.Bind(gateway.NewAuthenticator(store, client, deviceID))

		profile, err := bound.User(c.UserContext(), sess.AccountID)
		if err != nil {
			return remoteError(err)
		}

		// Refresh the cached balance used by pre-flight withdrawal checks.
		if sess.Balance != profile.Balance {
			sess.Balance = profile.Balance
			if putErr := store.Put(c.UserContext(), deviceID, sess); putErr != nil {
				return fiber.NewError(http.StatusInternalServerError, "failed to persist session")
			}
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"user":    profile,
		})
	})
}

// remoteError maps upstream failures onto HTTP responses, preserving the
// server-sent message verbatim so the UI can show it.
func remoteError(err error) error {
	if errors.Is(err, session.ErrSessionMissing) || errors.Is(err, gateway.ErrUnauthorized) {
		return fiber.NewError(http.StatusUnauthorized, "session expired, log in again")
	}
	if se, ok := gateway.AsServiceError(err); ok {
		// A {success:false} body can arrive on a 2xx; never relay that as
		// success.
		status := se.HTTPStatus
		if status < 400 {
			status = http.StatusBadGateway
		}
		return fiber.NewError(status, se.Error())
	}
	return fiber.NewError(http.StatusBadGateway, "upstream service unavailable")
}
