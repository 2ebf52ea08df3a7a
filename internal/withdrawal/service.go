// Package withdrawal orchestrates the verification, submission and
// settlement-polling flow for mobile-money withdrawals. All money movement
// happens on the remote gateway; this package coordinates it.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/history"
	"github.com/instantransfer/instantransfer/internal/notification"
	"github.com/instantransfer/instantransfer/internal/session"
)

var (
	// ErrAttemptInFlight rejects a submission while another attempt for the
	// same account is still being settled.
	ErrAttemptInFlight = errors.New("a withdrawal is already in progress for this account")
	// ErrCodeAlreadyRequested is the local "request once" gate. It is a UI
	// convenience, not a server-enforced guarantee.
	ErrCodeAlreadyRequested = errors.New("verification code already requested, check your email")
	// ErrUnknownAttempt indicates no attempt is tracked for the transaction id.
	ErrUnknownAttempt = errors.New("unknown withdrawal attempt")
)

const timedOutMessage = "timed out waiting for settlement, check your transaction history"

// defaultSettledRetention is how long a finished attempt stays queryable in
// the registry. After that the status endpoint falls back to the gateway.
const defaultSettledRetention = 10 * time.Minute

// Gateway is the subset of remote operations the orchestrator needs.
type Gateway interface {
	RequestVerification(ctx context.Context, accountID string) error
	Withdraw(ctx context.Context, req gateway.WithdrawRequest) (string, error)
	WithdrawStatus(ctx context.Context, transactionID string) (gateway.StatusResult, error)
}

// Policy carries the deployment-tunable orchestration parameters.
type Policy struct {
	MinimumUSD      float64
	PollInterval    time.Duration
	MaxPolls        int
	MaxPollFailures int

	// SettledRetention bounds how long finished attempts are kept in memory.
	// Zero selects the default.
	SettledRetention time.Duration
}

// Service coordinates withdrawal attempts. At most one attempt per account is
// in flight at a time, enforced through the locker.
type Service struct {
	policy   Policy
	locks    Locker
	recorder history.Recorder
	notifier notification.Notifier
	logger   *slog.Logger

	mu           sync.Mutex
	verification map[string]VerificationState
	attempts     map[string]*Attempt
}

// NewService constructs the orchestrator. recorder and notifier may be nil.
func NewService(policy Policy, locks Locker, recorder history.Recorder, notifier notification.Notifier, logger *slog.Logger) *Service {
	if policy.SettledRetention <= 0 {
		policy.SettledRetention = defaultSettledRetention
	}
	return &Service{
		policy:       policy,
		locks:        locks,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logger,
		verification: make(map[string]VerificationState),
		attempts:     make(map[string]*Attempt),
	}
}

// VerificationState reports the tracked code state for an account.
func (s *Service) VerificationState(accountID string) VerificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verification[accountID]
}

// RequestCode asks the gateway to email a one-time code. Repeat requests are
// blocked locally until the outstanding code is consumed by a submission.
func (s *Service) RequestCode(ctx context.Context, gw Gateway, accountID string) error {
	s.mu.Lock()
	if s.verification[accountID] == VerificationRequested {
		s.mu.Unlock()
		return ErrCodeAlreadyRequested
	}
	s.mu.Unlock()

	if err := gw.RequestVerification(ctx, accountID); err != nil {
		return err
	}

	s.mu.Lock()
	s.verification[accountID] = VerificationRequested
	s.mu.Unlock()
	return nil
}

// Submit validates the input against the cached session balance, submits the
// withdrawal and starts polling for settlement. Validation failures return
// before any network call. Submission itself is at-most-once: a failure is
// surfaced to the user, never retried automatically.
func (s *Service) Submit(ctx context.Context, gw Gateway, sess session.Session, input Input) (*Attempt, error) {
	req, err := ValidateInput(input, s.policy.MinimumUSD, sess.Balance)
	if err != nil {
		return nil, err
	}

	ok, err := s.locks.TryAcquire(ctx, sess.AccountID)
	if err != nil {
		return nil, fmt.Errorf("acquire attempt lock: %w", err)
	}
	if !ok {
		return nil, ErrAttemptInFlight
	}

	// The outstanding code is spent by this submission whether or not it
	// succeeds; a retry needs the user to supply a code again.
	s.mu.Lock()
	s.verification[sess.AccountID] = VerificationConsumed
	s.mu.Unlock()

	txID, err := gw.Withdraw(ctx, gateway.WithdrawRequest{
		Amount:           req.AmountUSD,
		Phone:            req.Phone,
		AccountID:        sess.AccountID,
		VerificationCode: req.VerificationCode,
		PaymentAgent:     req.PaymentAgent,
	})
	if err != nil {
		if rerr := s.locks.Release(ctx, sess.AccountID); rerr != nil {
			s.logger.Warn("release attempt lock", "account", sess.AccountID, "error", rerr)
		}
		return nil, err
	}

	attempt := newAttempt(uuid.NewString(), sess.AccountID, txID, req.AmountUSD, req.Phone)

	s.mu.Lock()
	s.attempts[txID] = attempt
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Created(ctx, history.Attempt{
			ID:            attempt.ID,
			AccountID:     attempt.AccountID,
			TransactionID: txID,
			AmountUSD:     attempt.AmountUSD,
			Phone:         attempt.Phone,
			Status:        string(StatusPending),
			CreatedAt:     attempt.StartedAt,
		}); err != nil {
			s.logger.Warn("record attempt", "transaction_id", txID, "error", err)
		}
	}

	s.logger.Info("withdrawal submitted", "account", sess.AccountID, "transaction_id", txID, "amount_usd", req.AmountUSD)

	go s.poll(gw, attempt)

	return attempt, nil
}

// Attempt returns the tracked attempt for a transaction id.
func (s *Service) Attempt(transactionID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[transactionID]
	if !ok {
		return nil, ErrUnknownAttempt
	}
	return a, nil
}

// poll drives the status state machine at a fixed interval until a terminal
// state, the poll budget, or cancellation. The ticker is released on every
// exit path.
func (s *Service) poll(gw Gateway, a *Attempt) {
	defer close(a.done)
	defer func() {
		if err := s.locks.Release(context.Background(), a.AccountID); err != nil {
			s.logger.Warn("release attempt lock", "account", a.AccountID, "error", err)
		}
		time.AfterFunc(s.policy.SettledRetention, func() { s.evict(a) })
	}()

	ticker := time.NewTicker(s.policy.PollInterval)
	defer ticker.Stop()

	failures := 0
	for polls := 0; polls < s.policy.MaxPolls; polls++ {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := gw.WithdrawStatus(a.ctx, a.TransactionID)
		if err != nil {
			if a.ctx.Err() != nil {
				return
			}
			failures++
			s.logger.Warn("status poll failed", "transaction_id", a.TransactionID, "failures", failures, "error", err)
			if failures >= s.policy.MaxPollFailures {
				s.finish(a, Update{Status: StatusError, Message: "unable to reach the payment service, check your transaction history"})
				return
			}
			continue
		}
		failures = 0

		status, err := ParseStatus(res.Status)
		if err != nil {
			s.logger.Warn("status poll returned unknown state", "transaction_id", a.TransactionID, "status", res.Status)
			continue
		}

		switch status {
		case StatusPending, StatusReceived:
			a.publish(Update{Status: status})
		case StatusSent:
			s.finish(a, Update{Status: StatusSent})
			return
		case StatusError:
			s.finish(a, Update{Status: StatusError, Message: res.Error})
			return
		}
	}

	s.finish(a, Update{Status: StatusTimedOut, Message: timedOutMessage})
}

// evict drops a finished attempt from the registry, unless the transaction id
// has since been reused by a newer attempt.
func (s *Service) evict(a *Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts[a.TransactionID] == a {
		delete(s.attempts, a.TransactionID)
	}
}

func (s *Service) finish(a *Attempt, u Update) {
	if !a.publish(u) {
		// Attempt was cancelled; drop the late result.
		return
	}

	now := time.Now().UTC()
	if s.recorder != nil {
		if err := s.recorder.Settled(context.Background(), a.ID, string(u.Status), u.Message, now); err != nil {
			s.logger.Warn("record settlement", "transaction_id", a.TransactionID, "error", err)
		}
	}

	if s.notifier != nil {
		kind := notification.KindWithdrawalSettled
		body := fmt.Sprintf("Withdrawal of $%.2f to %s completed", a.AmountUSD, a.Phone)
		if u.Status != StatusSent {
			kind = notification.KindWithdrawalFailed
			body = fmt.Sprintf("Withdrawal of $%.2f failed: %s", a.AmountUSD, u.Message)
		}
		_ = s.notifier.Send(context.Background(), notification.Message{
			Kind:        kind,
			Destination: a.AccountID,
			Body:        body,
		})
	}

	s.logger.Info("withdrawal settled", "transaction_id", a.TransactionID, "status", u.Status, "message", u.Message)
}
