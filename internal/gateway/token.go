package gateway

import (
	"context"

	"github.com/instantransfer/instantransfer/internal/session"
)

// Authenticator is a session-backed TokenSource. Refreshing persists the new
// access token so every flow sees it; screens never refresh on their own.
type Authenticator struct {
	store    session.Store
	client   *Client
	deviceID string
}

// NewAuthenticator binds a device's session to the gateway client.
func NewAuthenticator(store session.Store, client *Client, deviceID string) *Authenticator {
	return &Authenticator{store: store, client: client, deviceID: deviceID}
}

// Token returns the current access token, or session.ErrSessionMissing.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	s, err := a.store.Get(ctx, a.deviceID)
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it before returning.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	s, err := a.store.Get(ctx, a.deviceID)
	if err != nil {
		return "", err
	}

	access, err := a.client.RefreshAccessToken(ctx, s.RefreshToken)
	if err != nil {
		return "", err
	}

	s.AccessToken = access
	if err := a.store.Put(ctx, a.deviceID, s); err != nil {
		return "", err
	}
	return access, nil
}
