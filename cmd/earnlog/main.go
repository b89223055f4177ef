package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	adapthttp "earnlog/internal/adapter/http"
	"earnlog/internal/adapter/localauth"
	"earnlog/internal/adapter/memory"
	"earnlog/internal/adapter/oidcauth"
	"earnlog/internal/adapter/postgres"
	"earnlog/internal/app"
	"earnlog/internal/config"
	"earnlog/internal/domain"

	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := env("EARNLOG_CONFIG", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}

	log := config.NewLogger(cfg.LogLevel)
	ctx := context.Background()

	registry, err := cfg.Registry()
	if err != nil {
		log.WithError(err).Fatal("branch configuration")
	}

	var store domain.RecordStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("db open")
		}
		defer func() { _ = pg.Close() }()
		store = pg
	} else {
		log.Warn("no DATABASE_URL, records are held in memory only")
		store = memory.New()
	}

	provider, err := buildProvider(ctx, cfg.Auth)
	if err != nil {
		log.WithError(err).Fatal("identity provider")
	}

	sessions := app.NewSessionService(provider, log)
	records := app.NewRecordService(registry, store, sessions, log)

	identity, err := sessions.SignIn(ctx)
	if err != nil {
		log.WithError(err).Fatal("sign-in")
	}

	engine := app.NewSyncEngine(store, log)
	if err := engine.Start(ctx, identity); err != nil {
		log.WithError(err).Fatal("start sync")
	}

	var mu sync.Mutex
	currentEngine := func() *app.SyncEngine {
		mu.Lock()
		defer mu.Unlock()
		return engine
	}
	defer func() { _ = currentEngine().Stop() }()

	// A provider-initiated identity switch tears the old engine down and
	// brings a fresh one up; Stopped engines stay stopped.
	sessions.OnIdentityChanged(func(next domain.Identity) {
		mu.Lock()
		defer mu.Unlock()
		if next == engine.Identity() {
			return
		}
		_ = engine.Stop()
		if next == "" {
			log.Warn("session invalidated by provider")
			return
		}
		engine = app.NewSyncEngine(store, log)
		if err := engine.Start(ctx, next); err != nil {
			log.WithError(err).Error("restart sync for new identity")
		}
	})

	h := adapthttp.New(records, currentEngine, sessions, registry, log).Handler()
	log.WithField("addr", cfg.Addr).Info("listening")
	if err := http.ListenAndServe(cfg.Addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("serve")
	}
}

func buildProvider(ctx context.Context, cfg config.AuthConfig) (domain.IdentityProvider, error) {
	switch cfg.Mode {
	case "oidc":
		return oidcauth.New(ctx, oidcauth.Config{
			IssuerURL:    cfg.IssuerURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RefreshToken: cfg.RefreshToken,
			RawIDToken:   cfg.RawIDToken,
		})
	case "local":
		return localauth.New(cfg.Username, os.Getenv("EARNLOG_PASSWORD"), cfg.PasswordHash), nil
	case "", "anonymous":
		return localauth.NewAnonymous(), nil
	default:
		return nil, errors.New("unknown auth mode: " + cfg.Mode)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
