package withdrawal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/instantransfer/instantransfer/internal/phone"
)

const minCodeLength = 8

var (
	// ErrInvalidAmount covers unparseable or non-positive amounts.
	ErrInvalidAmount = errors.New("enter a valid amount")
	// ErrExceedsBalance means the cached balance cannot cover the amount.
	// The cache may be stale; the server remains authoritative.
	ErrExceedsBalance = errors.New("amount exceeds available balance")
	// ErrCodeTooShort rejects obviously truncated verification codes. This is
	// a sanity check only; the service validates the code itself.
	ErrCodeTooShort = fmt.Errorf("verification code must be at least %d characters", minCodeLength)
)

// BelowMinimumError reports an amount under the service-defined floor.
type BelowMinimumError struct {
	Minimum float64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("Minimum withdrawal is $%s", strconv.FormatFloat(e.Minimum, 'f', -1, 64))
}

// ValidateInput checks every precondition before any network traffic. The
// first failing check is returned and the submission aborted, saving a round
// trip. balance is the cached view of the account balance.
func ValidateInput(input Input, minimumUSD, balance float64) (Request, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(input.AmountUSD), 64)
	if err != nil || amount <= 0 {
		return Request{}, ErrInvalidAmount
	}
	if amount < minimumUSD {
		return Request{}, &BelowMinimumError{Minimum: minimumUSD}
	}
	if amount > balance {
		return Request{}, ErrExceedsBalance
	}

	normalized, err := phone.Normalize(input.Phone)
	if err != nil {
		return Request{}, err
	}

	code := strings.TrimSpace(input.VerificationCode)
	if len(code) < minCodeLength {
		return Request{}, ErrCodeTooShort
	}

	return Request{
		AmountUSD:        amount,
		Phone:            normalized,
		VerificationCode: code,
		PaymentAgent:     strings.TrimSpace(input.PaymentAgent),
	}, nil
}
