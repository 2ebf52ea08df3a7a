package session

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const (
	deviceIDHeader = "X-Device-ID"

	// LocalsKey is where RequireSession stores the loaded session.
	LocalsKey = "session"
	// DeviceLocalsKey is where RequireSession stores the device identifier.
	DeviceLocalsKey = "device_id"
)

// RequireSession loads the device session into request locals. A missing
// session yields 401 with a reauth hint so the UI can redirect to the
// authentication flow instead of showing a raw error.
func RequireSession(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Get(deviceIDHeader)
		if deviceID == "" {
			return fiber.NewError(http.StatusBadRequest, "missing X-Device-ID header")
		}

		s, err := store.Get(c.UserContext(), deviceID)
		if err != nil {
			if errors.Is(err, ErrSessionMissing) {
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
					"error":  "not logged in",
					"action": "reauthenticate",
				})
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		c.Locals(LocalsKey, s)
		c.Locals(DeviceLocalsKey, deviceID)
		return c.Next()
	}
}

// FromCtx returns the session placed in locals by RequireSession.
func FromCtx(c *fiber.Ctx) (Session, bool) {
	s, ok := c.Locals(LocalsKey).(Session)
	return s, ok
}

// DeviceFromCtx returns the device id placed in locals by RequireSession.
func DeviceFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(DeviceLocalsKey).(string)
	return id
}
