// Package session persists the authenticated session for each device and
// exposes it to outgoing gateway calls. Callers must treat a missing session
// as a signal to re-authenticate, never as a generic failure.
package session

import (
	"context"
	"errors"
)

// ErrSessionMissing indicates no session is stored for the device. The HTTP
// layer maps it to a 401 with a re-authentication hint.
var ErrSessionMissing = errors.New("session missing")

// Store abstracts the persisted session state.
type Store interface {
	Get(ctx context.Context, deviceID string) (Session, error)
	Put(ctx context.Context, deviceID string, s Session) error
	// Clear removes the session. Clearing an absent session is not an error.
	Clear(ctx context.Context, deviceID string) error
}
