package withdrawal

import "fmt"

// Status is the lifecycle state of a withdrawal as observed from the gateway.
// Pending -> {Received, Error}; Received -> {Sent, Error}. Sent, Error and
// TimedOut are terminal. Received means funds sit in the payment agent's
// custodial account, not yet in the user's mobile wallet.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReceived Status = "received"
	StatusSent     Status = "sent"
	StatusError    Status = "error"

	// StatusTimedOut is issued locally when the gateway never reaches a
	// terminal state within the polling budget.
	StatusTimedOut Status = "timed_out"
)

// ParseStatus maps a gateway status string onto the enum.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusReceived, StatusSent, StatusError:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown withdrawal status %q", s)
}

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusError || s == StatusTimedOut
}

// Update is one observation delivered to subscribers. Message carries the
// server-provided error verbatim for StatusError, or a local explanation for
// StatusTimedOut.
type Update struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// VerificationState tracks the client-side view of the one-time code. The
// service is the source of truth for code validity and expiry; this is only
// the local "request once" gate.
type VerificationState int

const (
	VerificationNotRequested VerificationState = iota
	VerificationRequested
	VerificationConsumed
)

func (v VerificationState) String() string {
	switch v {
	case VerificationRequested:
		return "requested"
	case VerificationConsumed:
		return "consumed"
	default:
		return "not_requested"
	}
}

// Input is the raw, user-supplied withdrawal form data.
type Input struct {
	AmountUSD        string
	Phone            string
	VerificationCode string
	PaymentAgent     string
}

// Request is a validated, normalized withdrawal ready for submission. It is
// built transiently per attempt and never persisted.
type Request struct {
	AmountUSD        float64
	Phone            string
	VerificationCode string
	PaymentAgent     string
}
