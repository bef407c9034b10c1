package store

import (
	"context"

	"github.com/pkg/errors"

	"asistencia/internal/config"
)

// Backend is a Medium that holds resources.
type Backend interface {
	Medium
	Close() error
}

// HealthChecker is implemented by backends that talk to a remote server.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Open builds the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.App) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendBolt:
		return OpenBolt(cfg.BoltPath)
	case config.BackendRedis:
		r := NewRedis(cfg.RedisAddr, cfg.RedisPrefix)
		if !r.Healthy(ctx) {
			r.Close()
			return nil, errors.Errorf("store.redis: %s not reachable", cfg.RedisAddr)
		}
		return r, nil
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, errors.Errorf("store: unknown backend %q", cfg.StoreBackend)
	}
}
