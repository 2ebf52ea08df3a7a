package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/history"
	"github.com/instantransfer/instantransfer/internal/logging"
	"github.com/instantransfer/instantransfer/internal/session"
)

// stubGateway records every remote call and replays a scripted status
// sequence. The last scripted result repeats once the script is exhausted.
type stubGateway struct {
	mu            sync.Mutex
	verifyCalls   int
	withdrawCalls []gateway.WithdrawRequest
	statusCalls   []string
	statusScript  []gateway.StatusResult
	statusErr     error
	withdrawErr   error
	verifyErr     error
	txID          string
}

func (g *stubGateway) RequestVerification(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	return g.verifyErr
}

func (g *stubGateway) Withdraw(_ context.Context, req gateway.WithdrawRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withdrawCalls = append(g.withdrawCalls, req)
	if g.withdrawErr != nil {
		return "", g.withdrawErr
	}
	return g.txID, nil
}

func (g *stubGateway) WithdrawStatus(_ context.Context, transactionID string) (gateway.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls = append(g.statusCalls, transactionID)
	if g.statusErr != nil {
		return gateway.StatusResult{}, g.statusErr
	}
	idx := len(g.statusCalls) - 1
	if idx >= len(g.statusScript) {
		idx = len(g.statusScript) - 1
	}
	return g.statusScript[idx], nil
}

func (g *stubGateway) remoteCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls + len(g.withdrawCalls) + len(g.statusCalls)
}

func (g *stubGateway) polls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.statusCalls)
}

func testPolicy() Policy {
	return Policy{
		MinimumUSD:      2,
		PollInterval:    2 * time.Millisecond,
		MaxPolls:        60,
		MaxPollFailures: 5,
	}
}

func newTestService(policy Policy) (*Service, history.Recorder) {
	recorder := history.NewMemoryRecorder()
	return NewService(policy, NewMemoryLocker(), recorder, nil, logging.Discard()), recorder
}

func testSess(balance float64) session.Session {
	return session.Session{AccountID: "CR1", Balance: balance, LoggedIn: true}
}

func validInput() Input {
	return Input{AmountUSD: "5", Phone: "0712345678", VerificationCode: "abcdef1234"}
}

func drain(t *testing.T, a *Attempt) []Update {
	t.Helper()
	var updates []Update
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-a.Updates():
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("timed out draining updates")
		}
	}
}

func TestSubmitRejectsBelowMinimumWithoutNetworkCall(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1"}

	input := validInput()
	input.AmountUSD = "1"
	_, err := svc.Submit(context.Background(), gw, testSess(100), input)

	var bm *BelowMinimumError
	require.ErrorAs(t, err, &bm)
	assert.Contains(t, err.Error(), "Minimum")
	assert.Zero(t, gw.remoteCalls(), "local rejection must not hit the network")
}

func TestSubmitRejectsAboveBalanceWithoutNetworkCall(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1"}

	input := validInput()
	input.AmountUSD = "150"
	_, err := svc.Submit(context.Background(), gw, testSess(100), input)

	require.ErrorIs(t, err, ErrExceedsBalance)
	assert.Zero(t, gw.remoteCalls())
}

func TestSubmitRejectsMalformedPhone(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	for _, bad := range []string{"12345678", "0812345678", "071234567", "phone"} {
		gw := &stubGateway{txID: "T1"}
		input := validInput()
		input.Phone = bad
		_, err := svc.Submit(context.Background(), gw, testSess(100), input)
		require.Error(t, err, "phone %q", bad)
		assert.Zero(t, gw.remoteCalls(), "phone %q", bad)
	}
}

func TestSubmitRejectsShortCode(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1"}

	input := validInput()
	input.VerificationCode = "short"
	_, err := svc.Submit(context.Background(), gw, testSess(100), input)

	require.ErrorIs(t, err, ErrCodeTooShort)
	assert.Zero(t, gw.remoteCalls())
}

func TestSubmitNormalizesPhoneBeforeTransmission(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "sent"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), Input{
		AmountUSD:        "5",
		Phone:            "0712345678",
		VerificationCode: "abcdef1234",
	})
	require.NoError(t, err)
	defer attempt.Cancel()

	require.Len(t, gw.withdrawCalls, 1)
	sent := gw.withdrawCalls[0]
	assert.Equal(t, "254712345678", sent.Phone)
	assert.Equal(t, 5.0, sent.Amount)
	assert.Equal(t, "CR1", sent.AccountID)
	assert.Equal(t, "abcdef1234", sent.VerificationCode)
}

func TestPollSequenceReachesSentExactlyOnce(t *testing.T) {
	svc, recorder := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{
		{Status: "pending"},
		{Status: "pending"},
		{Status: "received"},
		{Status: "sent"},
	}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, attempt.Current().Status)

	updates := drain(t, attempt)
	<-attempt.Done()

	assert.Equal(t, 4, gw.polls(), "terminal success after exactly four polls")
	assert.Equal(t, "T1", gw.statusCalls[0], "first poll must use the returned transaction id")

	terminal := 0
	for _, u := range updates {
		if u.Status.Terminal() {
			terminal++
			assert.Equal(t, StatusSent, u.Status)
		}
	}
	assert.Equal(t, 1, terminal, "terminal success reported exactly once")

	// Once Sent is observed, polling stops.
	time.Sleep(10 * testPolicy().PollInterval)
	assert.Equal(t, 4, gw.polls())

	rec, ok := history.Snapshot(recorder, attempt.ID)
	require.True(t, ok)
	assert.Equal(t, string(StatusSent), rec.Status)
	require.NotNil(t, rec.SettledAt)
}

func TestPollErrorSurfacesServerMessageAndStops(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{
		{Status: "error", Error: "insufficient agent float"},
	}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)

	updates := drain(t, attempt)
	<-attempt.Done()

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, StatusError, last.Status)
	assert.Equal(t, "insufficient agent float", last.Message)

	polls := gw.polls()
	time.Sleep(10 * testPolicy().PollInterval)
	assert.Equal(t, polls, gw.polls(), "polling must stop on terminal error")
}

func TestCancelStopsPollingAndStateWrites(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "pending"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)

	// Let a couple of polls land, then navigate away.
	time.Sleep(5 * testPolicy().PollInterval)
	attempt.Cancel()
	<-attempt.Done()

	before := attempt.Current()
	polls := gw.polls()
	time.Sleep(10 * testPolicy().PollInterval)

	assert.Equal(t, polls, gw.polls(), "no polls after cancel")
	assert.Equal(t, before, attempt.Current(), "no state writes after cancel")

	// The updates channel is closed; no further delivery is possible.
	_, open := <-attempt.Updates()
	for open {
		_, open = <-attempt.Updates()
	}
}

func TestSecondSubmitRejectedWhileInFlight(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "pending"}}}

	first, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), gw, testSess(100), validInput())
	assert.ErrorIs(t, err, ErrAttemptInFlight)

	first.Cancel()
	<-first.Done()

	// The lock is released once the first attempt winds down.
	gw2 := &stubGateway{txID: "T2", statusScript: []gateway.StatusResult{{Status: "sent"}}}
	second, err := svc.Submit(context.Background(), gw2, testSess(100), validInput())
	require.NoError(t, err)
	second.Cancel()
	<-second.Done()
}

func TestSubmitFailureReleasesLockAndDoesNotRetry(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{withdrawErr: &gateway.ServiceError{HTTPStatus: 400, Message: "code expired"}}

	_, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.Error(t, err)
	assert.Equal(t, "code expired", err.Error())
	assert.Len(t, gw.withdrawCalls, 1, "submission is at-most-once")

	// The user may explicitly re-submit.
	gw2 := &stubGateway{txID: "T3", statusScript: []gateway.StatusResult{{Status: "sent"}}}
	attempt, err := svc.Submit(context.Background(), gw2, testSess(100), validInput())
	require.NoError(t, err)
	attempt.Cancel()
	<-attempt.Done()
}

func TestPollingBudgetYieldsTimedOut(t *testing.T) {
	policy := testPolicy()
	policy.MaxPolls = 3
	svc, _ := newTestService(policy)
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "pending"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)

	updates := drain(t, attempt)
	<-attempt.Done()

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, StatusTimedOut, last.Status)
	assert.Contains(t, last.Message, "transaction history")
	assert.Equal(t, 3, gw.polls())
}

func TestRepeatedPollFailuresTerminate(t *testing.T) {
	policy := testPolicy()
	policy.MaxPollFailures = 3
	svc, _ := newTestService(policy)
	gw := &stubGateway{txID: "T1", statusErr: errors.New("connection refused")}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)

	updates := drain(t, attempt)
	<-attempt.Done()

	require.NotEmpty(t, updates)
	assert.Equal(t, StatusError, updates[len(updates)-1].Status)
	assert.Equal(t, 3, gw.polls(), "polling must not continue on a dead connection")
}

func TestRequestCodeGate(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "sent"}}}
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, gw, "CR1"))
	assert.Equal(t, VerificationRequested, svc.VerificationState("CR1"))

	err := svc.RequestCode(ctx, gw, "CR1")
	assert.ErrorIs(t, err, ErrCodeAlreadyRequested)
	assert.Equal(t, 1, gw.verifyCalls, "re-request blocked locally")

	// Submission consumes the outstanding code; a new one may be requested.
	attempt, err := svc.Submit(ctx, gw, testSess(100), validInput())
	require.NoError(t, err)
	<-attempt.Done()
	assert.Equal(t, VerificationConsumed, svc.VerificationState("CR1"))

	require.NoError(t, svc.RequestCode(ctx, gw, "CR1"))
	assert.Equal(t, 2, gw.verifyCalls)
}

func TestSettledAttemptsEvictedAfterRetention(t *testing.T) {
	policy := testPolicy()
	policy.SettledRetention = 5 * time.Millisecond
	svc, _ := newTestService(policy)
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "sent"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)
	<-attempt.Done()

	assert.Eventually(t, func() bool {
		_, err := svc.Attempt("T1")
		return errors.Is(err, ErrUnknownAttempt)
	}, 2*time.Second, 2*time.Millisecond, "settled attempt must leave the registry")
}

func TestCancelledAttemptsEvictedAfterRetention(t *testing.T) {
	policy := testPolicy()
	policy.SettledRetention = 5 * time.Millisecond
	svc, _ := newTestService(policy)
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "pending"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)
	attempt.Cancel()
	<-attempt.Done()

	assert.Eventually(t, func() bool {
		_, err := svc.Attempt("T1")
		return errors.Is(err, ErrUnknownAttempt)
	}, 2*time.Second, 2*time.Millisecond)
}

func TestAttemptLookup(t *testing.T) {
	svc, _ := newTestService(testPolicy())
	gw := &stubGateway{txID: "T1", statusScript: []gateway.StatusResult{{Status: "sent"}}}

	attempt, err := svc.Submit(context.Background(), gw, testSess(100), validInput())
	require.NoError(t, err)
	<-attempt.Done()

	got, err := svc.Attempt("T1")
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, got.ID)
	assert.Equal(t, StatusSent, got.Current().Status)

	_, err = svc.Attempt("missing")
	assert.ErrorIs(t, err, ErrUnknownAttempt)
}
