package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/century/internal/auth"
	"github.com/lox/century/internal/config"
	"github.com/lox/century/internal/store"
	"github.com/lox/century/internal/store/redis"
	"github.com/lox/century/internal/store/sqlite"
)

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Store != "" {
		cfg.Store.Backend = g.Store
	}
	if g.Spectate != "" {
		cfg.Spectate.Address = g.Spectate
	}
	if g.Debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured backend
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	path := cfg.StorePath()
	logger.Debug().
		Str("backend", cfg.Store.Backend).
		Str("path", path).
		Msg("Opening store")

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.OpenFileStore(path)
	case config.BackendSQLite:
		return sqlite.Open(path)
	case config.BackendRedis:
		return redis.New(ctx, redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// validator returns the HTTP validator when an auth service is configured
// and the fixed local identity otherwise.
func validator(cfg *config.Config) auth.Validator {
	if cfg.Auth.URL != "" {
		return auth.NewHTTPValidator(cfg.Auth.URL, cfg.Auth.AdminSecret)
	}
	return auth.NewStaticValidator(cfg.Auth.UserID, cfg.Auth.Email)
}

func signIn(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*auth.Identity, error) {
	id, err := validator(cfg).Validate(ctx, cfg.Auth.Token)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	logger.Debug().Str("user_id", id.UserID).Str("email", id.Email).Msg("Identity validated")
	return id, nil
}
