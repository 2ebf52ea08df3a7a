// Package auth handles the OAuth deep-link token exchange and logout. Token
// issuance itself is external; this package only persists the resulting
// session for the device.
package auth

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/session"
)

const deviceIDHeader = "X-Device-ID"

// Handler exposes login and logout endpoints.
type Handler struct {
	client   *gateway.Client
	store    session.Store
	validate *validator.Validate
}

// NewHandler constructs an auth handler.
func NewHandler(client *gateway.Client, store session.Store) *Handler {
	return &Handler{client: client, store: store, validate: validator.New()}
}

type loginRequest struct {
	DerivToken string `json:"deriv_token" validate:"required"`
}

type loginResponse struct {
	AccountID string  `json:"deriv_account"`
	Balance   float64 `json:"deriv_balance"`
	LoggedIn  bool    `json:"is_logged_in"`
}

// Login exchanges the deep-link token and persists the session.
func (h *Handler) Login(c *fiber.Ctx) error {
	deviceID := c.Get(deviceIDHeader)
	if deviceID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing X-Device-ID header")
	}

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "deriv_token is required")
	}

	grant, err := h.client.ExchangeToken(c.UserContext(), req.DerivToken)
	if err != nil {
		if se, ok := gateway.AsServiceError(err); ok {
			return fiber.NewError(http.StatusUnauthorized, se.Error())
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	s := session.Session{
		AccountID:    grant.AccountID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		Balance:      grant.Balance,
		LoggedIn:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.Put(c.UserContext(), deviceID, s); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(loginResponse{AccountID: s.AccountID, Balance: s.Balance, LoggedIn: true})
}

// Logout clears the device session. Idempotent: logging out twice is fine.
func (h *Handler) Logout(c *fiber.Ctx) error {
	deviceID := c.Get(deviceIDHeader)
	if deviceID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing X-Device-ID header")
	}
	if err := h.store.Clear(c.UserContext(), deviceID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
