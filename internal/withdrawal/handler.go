package withdrawal

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/phone"
	"github.com/instantransfer/instantransfer/internal/session"
)

// Handler exposes the withdrawal endpoints to the thin mobile UI.
type Handler struct {
	svc      *Service
	client   *gateway.Client
	store    session.Store
	validate *validator.Validate
}

// NewHandler constructs a withdrawal handler.
func NewHandler(svc *Service, client *gateway.Client, store session.Store) *Handler {
	return &Handler{svc: svc, client: client, store: store, validate: validator.New()}
}

func (h *Handler) bound(c *fiber.Ctx) *gateway.Bound {
	return h.client.Bind(gateway.NewAuthenticator(h.store, h.client, session.DeviceFromCtx(c)))
}

// RequestCode relays the one-time verification code request.
func (h *Handler) RequestCode(c *fiber.Ctx) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}

	if err := h.svc.RequestCode(c.UserContext(), h.bound(c), sess.AccountID); err != nil {
		if errors.Is(err, ErrCodeAlreadyRequested) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return mapRemoteError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":      true,
		"verification": h.svc.VerificationState(sess.AccountID).String(),
	})
}

type submitRequest struct {
	Amount           string `json:"amount" validate:"required"`
	Phone            string `json:"phone" validate:"required"`
	VerificationCode string `json:"verification_code" validate:"required"`
	PaymentAgent     string `json:"payment_agent"`
}

type submitResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Status        Status `json:"status"`
}

// Submit validates and forwards a withdrawal, then starts settlement polling.
func (h *Handler) Submit(c *fiber.Ctx) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount, phone and verification_code are required")
	}

	attempt, err := h.svc.Submit(c.UserContext(), h.bound(c), sess, Input{
		AmountUSD:        req.Amount,
		Phone:            req.Phone,
		VerificationCode: req.VerificationCode,
		PaymentAgent:     req.PaymentAgent,
	})
	if err != nil {
		return mapSubmitError(err)
	}

	return c.Status(http.StatusCreated).JSON(submitResponse{
		Success:       true,
		TransactionID: attempt.TransactionID,
		Status:        attempt.Current().Status,
	})
}

type statusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        Status `json:"status"`
	Message       string `json:"message,omitempty"`
}

// Status reports the latest observed state of an attempt. Attempts from a
// previous process are resolved against the gateway directly.
func (h *Handler) Status(c *fiber.Ctx) error {
	if _, ok := session.FromCtx(c); !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	txID := c.Params("transactionId")

	attempt, err := h.svc.Attempt(txID)
	if err == nil {
		cur := attempt.Current()
		return c.JSON(statusResponse{TransactionID: txID, Status: cur.Status, Message: cur.Message})
	}
	if !errors.Is(err, ErrUnknownAttempt) {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	res, err := h.bound(c).WithdrawStatus(c.UserContext(), txID)
	if err != nil {
		return mapRemoteError(err)
	}
	status, err := ParseStatus(res.Status)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(statusResponse{TransactionID: txID, Status: status, Message: res.Error})
}

func mapSubmitError(err error) error {
	var bm *BelowMinimumError
	switch {
	case errors.As(err, &bm),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrExceedsBalance),
		errors.Is(err, ErrCodeTooShort),
		errors.Is(err, phone.ErrInvalid):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAttemptInFlight):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return mapRemoteError(err)
	}
}

func mapRemoteError(err error) error {
	if errors.Is(err, session.ErrSessionMissing) || errors.Is(err, gateway.ErrUnauthorized) {
		return fiber.NewError(http.StatusUnauthorized, "session expired, log in again")
	}
	if se, ok := gateway.AsServiceError(err); ok {
		status := se.HTTPStatus
		if status < 400 {
			status = http.StatusBadGateway
		}
		return fiber.NewError(status, se.Error())
	}
	return fiber.NewError(http.StatusBadGateway, err.Error())
}
