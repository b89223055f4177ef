package domain

import (
	"context"
	"time"
)

// Identity is the opaque token the identity provider yields. It scopes the
// record collection path; records of different identities never mix.
type Identity string

// Session is the active sign-in for this process. At most one session
// exists at a time.
type Session struct {
	Identity  Identity
	CreatedAt time.Time
}

// IdentityProvider is the port for the external identity/authentication
// provider.
type IdentityProvider interface {
	// SignIn authenticates and yields an identity.
	SignIn(ctx context.Context) (Identity, error)

	// OnIdentityChanged registers a callback invoked whenever the
	// provider switches to a new identity. The returned func cancels
	// the registration.
	OnIdentityChanged(fn func(Identity)) (cancel func())
}
