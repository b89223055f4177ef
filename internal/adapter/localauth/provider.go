// Package localauth implements the identity provider port without an
// external issuer: either a single configured credential checked against a
// bcrypt hash, or an anonymous random identity when no credential is set.
package localauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"

	"earnlog/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials indicates the configured credential did not match.
var ErrBadCredentials = errors.New("localauth: invalid credentials")

// Provider implements domain.IdentityProvider from static configuration.
type Provider struct {
	username     string
	password     string
	passwordHash string

	mu        sync.Mutex
	anonymous domain.Identity
	listeners map[int]func(domain.Identity)
	nextID    int
}

var _ domain.IdentityProvider = (*Provider)(nil)

// New creates a credential-checking provider. The hash is a bcrypt hash of
// the expected password.
func New(username, password, passwordHash string) *Provider {
	return &Provider{
		username:     username,
		password:     password,
		passwordHash: passwordHash,
		listeners:    make(map[int]func(domain.Identity)),
	}
}

// NewAnonymous creates a provider that yields a random identity, stable
// for the lifetime of the provider.
func NewAnonymous() *Provider {
	return &Provider{listeners: make(map[int]func(domain.Identity))}
}

// SignIn checks the configured credential, or mints the anonymous identity
// when none is configured.
func (p *Provider) SignIn(ctx context.Context) (domain.Identity, error) {
	if p.username == "" {
		p.mu.Lock()
		if p.anonymous == "" {
			tok, err := generateToken()
			if err != nil {
				p.mu.Unlock()
				return "", err
			}
			p.anonymous = domain.Identity("anon-" + tok)
		}
		identity := p.anonymous
		p.mu.Unlock()
		p.notify(identity)
		return identity, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.passwordHash), []byte(p.password)); err != nil {
		return "", ErrBadCredentials
	}
	identity := domain.Identity(p.username)
	p.notify(identity)
	return identity, nil
}

// OnIdentityChanged registers a listener for identity changes.
func (p *Provider) OnIdentityChanged(fn func(domain.Identity)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(identity domain.Identity) {
	p.mu.Lock()
	fns := make([]func(domain.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
