// Package oidcauth implements the identity provider port against an OIDC
// issuer. Sign-in yields the verified ID token's subject as the opaque
// identity that scopes the record collection.
package oidcauth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"earnlog/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Config carries the issuer coordinates and one of two credentials: a
// refresh token to exchange for a fresh ID token, or a pre-issued raw ID
// token to verify as-is.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RefreshToken string
	RawIDToken   string
}

// Provider implements domain.IdentityProvider on OIDC.
type Provider struct {
	cfg      Config
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier

	mu        sync.Mutex
	listeners map[int]func(domain.Identity)
	nextID    int
}

var _ domain.IdentityProvider = (*Provider)(nil)

// New discovers the issuer and prepares a verifier for its ID tokens.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.RefreshToken == "" && cfg.RawIDToken == "" {
		return nil, errors.New("oidcauth: either a refresh token or a raw ID token is required")
	}
	p, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidcauth: discover issuer: %w", err)
	}
	return &Provider{
		cfg:       cfg,
		provider:  p,
		verifier:  p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		listeners: make(map[int]func(domain.Identity)),
	}, nil
}

// SignIn obtains and verifies an ID token, then notifies identity-changed
// listeners with the subject claim.
func (p *Provider) SignIn(ctx context.Context) (domain.Identity, error) {
	raw := p.cfg.RawIDToken
	if p.cfg.RefreshToken != "" {
		oauthCfg := oauth2.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			Endpoint:     p.provider.Endpoint(),
		}
		tok, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: p.cfg.RefreshToken}).Token()
		if err != nil {
			return "", fmt.Errorf("oidcauth: token exchange: %w", err)
		}
		var ok bool
		raw, ok = tok.Extra("id_token").(string)
		if !ok {
			return "", errors.New("oidcauth: token response carried no id_token")
		}
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("oidcauth: verify id token: %w", err)
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("oidcauth: parse claims: %w", err)
	}
	if claims.Sub == "" {
		return "", errors.New("oidcauth: id token carried no subject")
	}

	identity := domain.Identity(claims.Sub)
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
