// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"earnlog/internal/domain"

	"github.com/sirupsen/logrus"
)

var (
	// ErrAuthFailed indicates that the identity provider rejected the sign-in.
	ErrAuthFailed = errors.New("sign-in failed")
	// ErrNoActiveSession indicates an operation that needs an identity was
	// attempted without one.
	ErrNoActiveSession = errors.New("no active session")
)

// SessionService owns the identity lifecycle. It is the only consumer of
// the external identity provider; everything else asks it for the current
// identity.
type SessionService struct {
	provider domain.IdentityProvider
	log      *logrus.Logger

	mu      sync.Mutex
	current *domain.Session
}

// NewSessionService creates a SessionService backed by the given provider.
func NewSessionService(provider domain.IdentityProvider, log *logrus.Logger) *SessionService {
	return &SessionService{provider: provider, log: log}
}

// SignIn authenticates against the provider and establishes the session.
// A failed sign-in leaves any prior session untouched.
func (s *SessionService) SignIn(ctx context.Context) (domain.Identity, error) {
	identity, err := s.provider.SignIn(ctx)
	if err != nil {
		s.log.WithError(err).Error("sign-in rejected by identity provider")
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	s.mu.Lock()
	s.current = &domain.Session{Identity: identity, CreatedAt: time.Now().UTC()}
	s.mu.Unlock()

	s.log.WithField("identity", string(identity)).Info("session established")
	return identity, nil
}

// SignOut destroys the active session, if any.
func (s *SessionService) SignOut() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the identity of the active session.
func (s *SessionService) Current() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", ErrNoActiveSession
	}
	return s.current.Identity, nil
}

// OnIdentityChanged forwards provider-initiated identity changes, swapping
// the session before the callback runs. A change to the empty identity is
// an invalidation and destroys the session.
func (s *SessionService) OnIdentityChanged(fn func(domain.Identity)) (cancel func()) {
	return s.provider.OnIdentityChanged(func(identity domain.Identity) {
		s.mu.Lock()
		if identity == "" {
			s.current = nil
		} else {
			s.current = &domain.Session{Identity: identity, CreatedAt: time.Now().UTC()}
		}
		s.mu.Unlock()
		fn(identity)
	})
}
