package deposit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instantransfer/instantransfer/internal/gateway"
	"github.com/instantransfer/instantransfer/internal/logging"
	"github.com/instantransfer/instantransfer/internal/session"
)

type stubGateway struct {
	calls []gateway.DepositRequest
	err   error
}

func (g *stubGateway) Deposit(_ context.Context, req gateway.DepositRequest) error {
	g.calls = append(g.calls, req)
	return g.err
}

func testSess() session.Session {
	return session.Session{AccountID: "CR1", LoggedIn: true}
}

func TestQuoteConvertsAtFixedRate(t *testing.T) {
	svc := NewService(129, 2, nil, logging.Discard())
	q := svc.Quote(5)
	assert.Equal(t, 645.0, q.AmountKES)
	assert.Equal(t, 129.0, q.Rate)
}

func TestInitiateSendsConvertedAmountAndNormalizedPhone(t *testing.T) {
	svc := NewService(129, 2, nil, logging.Discard())
	gw := &stubGateway{}

	quote, err := svc.Initiate(context.Background(), gw, testSess(), Input{
		AmountUSD: "5",
		Phone:     "0712345678",
	})
	require.NoError(t, err)

	require.Len(t, gw.calls, 1)
	assert.Equal(t, 645.0, gw.calls[0].Amount)
	assert.Equal(t, "254712345678", gw.calls[0].Phone)
	assert.Equal(t, "CR1", gw.calls[0].AccountID)
	assert.Equal(t, 645.0, quote.AmountKES)
}

func TestInitiateRejectsLocallyWithoutNetworkCall(t *testing.T) {
	svc := NewService(129, 2, nil, logging.Discard())

	for name, input := range map[string]Input{
		"garbage amount": {AmountUSD: "abc", Phone: "0712345678"},
		"zero amount":    {AmountUSD: "0", Phone: "0712345678"},
		"below minimum":  {AmountUSD: "1", Phone: "0712345678"},
		"bad phone":      {AmountUSD: "5", Phone: "12345"},
	} {
		gw := &stubGateway{}
		_, err := svc.Initiate(context.Background(), gw, testSess(), input)
		require.Error(t, err, name)
		assert.Empty(t, gw.calls, name)
	}
}

func TestInitiateSurfacesServerErrorVerbatim(t *testing.T) {
	svc := NewService(129, 2, nil, logging.Discard())
	gw := &stubGateway{err: &gateway.ServiceError{HTTPStatus: 400, Message: "stk push unavailable"}}

	_, err := svc.Initiate(context.Background(), gw, testSess(), Input{AmountUSD: "5", Phone: "0712345678"})
	require.Error(t, err)
	assert.Equal(t, "stk push unavailable", err.Error())
}
