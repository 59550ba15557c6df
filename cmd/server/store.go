package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"prescription-chatbot/internal/config"
	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/db"
	"prescription-chatbot/internal/jobs"
)

// sessionBackend is the store picked by STORE_BACKEND plus the optional
// capabilities of that backend.
type sessionBackend struct {
	Store    core.SessionStore
	Sweeper  jobs.Sweeper
	Notifier core.CompletionNotifier
	closers  []func() error
}

func (b *sessionBackend) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			logrus.WithError(err).Warn("closing session store")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	switch cfg.StoreBackend {
	case "", "memory":
		return &sessionBackend{Store: db.NewMemoryStore(cfg.SessionTTL)}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		conn, err := db.OpenPostgres(pingCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		repo := db.NewRepository(conn)
		return &sessionBackend{
			Store:    repo,
			Sweeper:  repo,
			Notifier: db.NewNotifier(conn, cfg.DatabaseURL, cfg.NotifyChannel),
			closers:  []func() error{conn.Close},
		}, nil

	case "sqlite":
		s, err := db.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &sessionBackend{Store: s, Sweeper: s, closers: []func() error{s.Close}}, nil

	case "redis":
		s, err := db.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		return &sessionBackend{Store: s, closers: []func() error{s.Close}}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// newSweeper returns the retention job for backends that need one, or nil
// when the backend expires sessions itself or SESSION_TTL keeps them forever.
func newSweeper(b *sessionBackend, cfg *config.Config, obs jobs.SweepObserver) (*jobs.SessionSweeper, error) {
	if b.Sweeper == nil {
		return nil, nil
	}
	if cfg.SessionTTL <= 0 {
		logrus.Info("SESSION_TTL is not positive, sessions are kept forever")
		return nil, nil
	}
	return jobs.NewSessionSweeper(b.Sweeper, cfg.SessionTTL, cfg.SweepInterval, obs)
}
