package deposit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/phone"
	"github.com/instantransfer/instantransfer/internal/session"
)

// Handler exposes the deposit endpoints.
type Handler struct {
	svc      *Service
	client   *gateway.Client
	store    session.Store
	validate *validator.Validate
}

// NewHandler constructs a deposit handler.
func NewHandler(svc *Service, client *gateway.Client, store session.Store) *Handler {
	return &Handler{svc: svc, client: client, store: store, validate: validator.New()}
}

// Quote previews the USD to KES conversion for the UI.
func (h *Handler) Quote(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		return fiber.NewError(http.StatusBadRequest, ErrInvalidAmount.Error())
	}
	return c.JSON(h.svc.Quote(amount))
}

type initiateRequest struct {
	Amount string `json:"amount" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

// Initiate triggers the STK push prompt on the user's phone.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}

	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount and phone are required")
	}

	bound := h.client.Bind(gateway.NewAuthenticator(h.store, h.client, session.DeviceFromCtx(c)))
	quote, err := h.svc.Initiate(c.UserContext(), bound, sess, Input{AmountUSD: req.Amount, Phone: req.Phone})
	if err != nil {
		var bm *BelowMinimumError
		switch {
		case errors.As(err, &bm), errors.Is(err, ErrInvalidAmount), errors.Is(err, phone.ErrInvalid):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, session.ErrSessionMissing), errors.Is(err, gateway.ErrUnauthorized):
			return fiber.NewError(http.StatusUnauthorized, "session expired, log in again")
		default:
			if se, ok := gateway.AsServiceError(err); ok {
				return fiber.NewError(http.StatusBadRequest, se.Error())
			}
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"quote":   quote,
	})
}
