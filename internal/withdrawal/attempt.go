package withdrawal

import (
	"context"
	"sync"
	"time"
)

// Attempt is one in-flight withdrawal: the submitted request's identifiers
// plus the polling lifecycle. The poll timer is owned by the attempt and is
// released on every exit path: terminal state, poll budget, or Cancel.
type Attempt struct {
	ID            string
	AccountID     string
	TransactionID string
	AmountUSD     float64
	Phone         string
	StartedAt     time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current Update
	closed  bool
	updates chan Update
	done    chan struct{}
}

func newAttempt(id, accountID, transactionID string, amountUSD float64, phoneNumber string) *Attempt {
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{
		ID:            id,
		AccountID:     accountID,
		TransactionID: transactionID,
		AmountUSD:     amountUSD,
		Phone:         phoneNumber,
		StartedAt:     time.Now().UTC(),
		ctx:           ctx,
		cancel:        cancel,
		current:       Update{Status: StatusPending},
		updates:       make(chan Update, 16),
		done:          make(chan struct{}),
	}
}

// Updates delivers status observations in arrival order. The channel is
// closed after a terminal update or Cancel.
func (a *Attempt) Updates() <-chan Update {
	return a.updates
}

// Done is closed when the polling goroutine has fully exited.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Current returns the latest observed state.
func (a *Attempt) Current() Update {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Cancel stops polling. No state is mutated and no update is delivered after
// Cancel returns; a poll already in flight has its result discarded.
func (a *Attempt) Cancel() {
	a.cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.updates)
	}
}

// publish records and delivers an observation. Returns false when the attempt
// was already closed, in which case nothing was mutated.
func (a *Attempt) publish(u Update) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.current = u
	select {
	case a.updates <- u:
	default:
		// Slow subscriber; Current() still reflects the latest state.
	}
	if u.Status.Terminal() {
		a.closed = true
		close(a.updates)
	}
	return true
}
