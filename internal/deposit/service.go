// Package deposit implements the STK-push deposit flow: a fixed-rate USD to
// KES conversion, phone validation and a one-shot initiation call. The push
// prompt and payment completion happen entirely on the gateway side.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/notification"
	"github.com/instantransfer/instantransfer/internal/phone"
	"github.com/instantransfer/instantransfer/internal/session"
)

// ErrInvalidAmount covers unparseable or non-positive deposit amounts.
var ErrInvalidAmount = errors.New("enter a valid amount")

// BelowMinimumError reports an amount under the deposit floor.
type BelowMinimumError struct {
	Minimum float64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("Minimum deposit is $%s", strconv.FormatFloat(e.Minimum, 'f', -1, 64))
}

// Gateway is the single remote operation the deposit flow needs.
type Gateway interface {
	Deposit(ctx context.Context, req gateway.DepositRequest) error
}

// Quote is a USD to KES conversion preview at the configured fixed rate.
type Quote struct {
	AmountUSD float64 `json:"amount_usd"`
	Rate      float64 `json:"exchange_rate"`
	AmountKES float64 `json:"amount_kes"`
}

// Input is the raw deposit form data.
type Input struct {
	AmountUSD string
	Phone     string
}

// Service converts and relays deposit initiations.
type Service struct {
	rate       float64
	minimumUSD float64
	notifier   notification.Notifier
	logger     *slog.Logger
}

// NewService builds the deposit flow. notifier may be nil.
func NewService(rate, minimumUSD float64, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{rate: rate, minimumUSD: minimumUSD, notifier: notifier, logger: logger}
}

// Quote converts a USD amount at the fixed rate, rounded to cents.
func (s *Service) Quote(amountUSD float64) Quote {
	kes := math.Round(amountUSD*s.rate*100) / 100
	return Quote{AmountUSD: amountUSD, Rate: s.rate, AmountKES: kes}
}

// Initiate validates the input and asks the gateway to send the push prompt.
// Success confirms the prompt was sent; completion is observed later via the
// transaction list.
func (s *Service) Initiate(ctx context.Context, gw Gateway, sess session.Session, input Input) (Quote, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(input.AmountUSD), 64)
	if err != nil || amount <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	if amount < s.minimumUSD {
		return Quote{}, &BelowMinimumError{Minimum: s.minimumUSD}
	}

	normalized, err := phone.Normalize(input.Phone)
	if err != nil {
		return Quote{}, err
	}

	quote := s.Quote(amount)
	if err := gw.Deposit(ctx, gateway.DepositRequest{
		Amount:    quote.AmountKES,
		Phone:     normalized,
		AccountID: sess.AccountID,
	}); err != nil {
		return Quote{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositInitiated,
			Destination: sess.AccountID,
			Body:        fmt.Sprintf("Deposit prompt for KES %.2f sent to %s", quote.AmountKES, normalized),
		})
	}

	s.logger.Info("deposit initiated", "account", sess.AccountID, "amount_usd", amount, "amount_kes", quote.AmountKES)
	return quote, nil
}
