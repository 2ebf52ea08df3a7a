// Package history keeps an audit trail of withdrawal attempts: one row per
// submission, updated once when the attempt reaches a terminal state. The
// withdrawal request itself (code, full payload) is never persisted.
package history

import (
	"context"
	"time"
)

// Attempt is the audit record of a single withdrawal attempt.
type Attempt struct {
	ID            string
	AccountID     string
	TransactionID string
	AmountUSD     float64
	Phone         string
	Status        string
	Error         string
	CreatedAt     time.Time
	SettledAt     *time.Time
}

// Recorder persists attempt lifecycle events.
type Recorder interface {
	Created(ctx context.Context, a Attempt) error
	Settled(ctx context.Context, id, status, errMsg string, at time.Time) error
}
