// Package gateway implements the HTTP client for the mobile-money gateway
// and identity/balance service. All settlement and balance logic lives on
// the remote side; this package is a relay with a fixed, env-driven base URL.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the remote services. Authenticated calls go through Bind.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient constructs a gateway client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// TokenSource supplies bearer tokens for outgoing calls and knows how to
// refresh them when the remote side rejects one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// ExchangeToken swaps a deep-link/OAuth token for a session grant.
func (c *Client) ExchangeToken(ctx context.Context, derivToken string) (TokenGrant, error) {
	var grant TokenGrant
	err := c.do(ctx, http.MethodPost, "/deriv_auth/", "", map[string]string{"deriv_token": derivToken}, &grant)
	return grant, err
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var resp refreshResponse
	if err := c.do(ctx, http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": refreshToken}, &resp); err != nil {
		return "", err
	}
	return resp.Access, nil
}

// Bind pairs the client with a token source for authenticated calls.
func (c *Client) Bind(ts TokenSource) *Bound {
	return &Bound{client: c, tokens: ts}
}

// Bound is the authenticated view of the client. Every call injects the
// bearer token; a 401 triggers exactly one refresh-and-retry.
type Bound struct {
	client *Client
	tokens TokenSource
}

// User fetches the account profile and balance.
func (b *Bound) User(ctx context.Context, accountID string) (Profile, error) {
	var resp userResponse
	err := b.do(ctx, http.MethodGet, "/mpesa/user/"+url.PathEscape(accountID), nil, &resp)
	return resp.User, err
}

// RequestVerification asks the service to email a one-time code to the
// account holder. Not idempotent: a repeat call may issue a fresh code that
// invalidates the previous one.
func (b *Bound) RequestVerification(ctx context.Context, accountID string) error {
	return b.do(ctx, http.MethodPost, "/mpesa/request-verification", map[string]string{"deriv_account": accountID}, nil)
}

// Withdraw submits a withdrawal and returns the server-issued transaction id.
func (b *Bound) Withdraw(ctx context.Context, req WithdrawRequest) (string, error) {
	var resp withdrawResponse
	if err := b.do(ctx, http.MethodPost, "/mpesa/withdraw", req, &resp); err != nil {
		return "", err
	}
	return resp.Data.TransactionID, nil
}

// WithdrawStatus fetches the current lifecycle state of a withdrawal.
func (b *Bound) WithdrawStatus(ctx context.Context, transactionID string) (StatusResult, error) {
	var resp StatusResult
	err := b.do(ctx, http.MethodGet, "/mpesa/withdraw/status/"+url.PathEscape(transactionID), nil, &resp)
	return resp, err
}

// Deposit initiates an STK push. Success means the prompt was sent; the
// payment itself completes out of band.
func (b *Bound) Deposit(ctx context.Context, req DepositRequest) error {
	return b.do(ctx, http.MethodPost, "/mpesa/deposit", req, nil)
}

// Transactions lists the account's transaction history.
func (b *Bound) Transactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var resp transactionsResponse
	err := b.do(ctx, http.MethodGet, "/mpesa/transactions/"+url.PathEscape(accountID), nil, &resp)
	return resp.Transactions, err
}

func (b *Bound) do(ctx context.Context, method, path string, body, out any) error {
	token, err := b.tokens.Token(ctx)
	if err != nil {
		return err
	}

	err = b.client.do(ctx, method, path, token, body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	token, rerr := b.tokens.Refresh(ctx)
	if rerr != nil {
		// Refresh failed; surface the original auth failure so the UI
		// re-authenticates.
		return ErrUnauthorized
	}
	return b.client.do(ctx, method, path, token, body, out)
}

// envelope is the common success/error wrapper most gateway responses carry.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	// Some endpoints return bare objects with no envelope; a decode failure
	// here only matters when the HTTP status is also bad.
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("gateway call failed", "method", method, "path", path, "status", resp.StatusCode)
		return &ServiceError{HTTPStatus: resp.StatusCode, Message: env.Error}
	}
	if env.Success != nil && !*env.Success {
		return &ServiceError{HTTPStatus: resp.StatusCode, Message: env.Error}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
