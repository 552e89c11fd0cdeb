// Package session holds server-side session state keyed by opaque tokens.
// A session carries exactly one attribute: the authenticated member identity.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotAuthenticated is returned when a token resolves to no identity,
// whether it never existed, expired, or was terminated.
var ErrNotAuthenticated = errors.New("session: no authenticated identity")

// Store is the session gate's backing state.
type Store interface {
	// Establish creates a new session for identity and returns its opaque token.
	Establish(ctx context.Context, identity string) (string, error)
	// Identity resolves a token to the identity it was established with.
	Identity(ctx context.Context, token string) (string, error)
	// Terminate invalidates the session. Terminating an unknown token is a no-op.
	Terminate(ctx context.Context, token string) error
}

const defaultTTL = 24 * time.Hour
