package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ent0n29/gadgetdesk/internal/reliability"
)

const (
	ModeInMemory = "in-memory"
	ModePostgres = "postgres"
	ModeRedis    = "redis"

	connectBackoffBase = 250 * time.Millisecond
	connectBackoffCap  = 4 * time.Second
)

// Options selects and configures a Store backend.
type Options struct {
	DatabaseURL     string
	Redis           RedisConfig
	MaxTurns        int
	ConnectAttempts int
}

// NewStore creates a postgres-backed store when DatabaseURL is set, a
// redis-backed one when Redis.Addr is set, otherwise in-memory.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	dsn := strings.TrimSpace(opts.DatabaseURL)
	addr := strings.TrimSpace(opts.Redis.Addr)
	switch {
	case dsn != "" && addr != "":
		return nil, errors.New("configure either a postgres or a redis history backend, not both")
	case dsn != "":
		var store *PostgresStore
		err := reliability.Retry(ctx, opts.ConnectAttempts, connectBackoffBase, connectBackoffCap, func(ctx context.Context) error {
			s, err := NewPostgresStore(ctx, dsn, opts.MaxTurns)
			store = s
			return err
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case addr != "":
		cfg := opts.Redis
		cfg.Addr = addr
		cfg.MaxTurns = opts.MaxTurns
		var store *RedisStore
		err := reliability.Retry(ctx, opts.ConnectAttempts, connectBackoffBase, connectBackoffCap, func(ctx context.Context) error {
			s, err := NewRedisStore(ctx, cfg)
			store = s
			return err
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return NewInMemoryStore(opts.MaxTurns), nil
	}
}

// ModeOf names the backend behind a store.
func ModeOf(s Store) string {
	switch s.(type) {
	case *InMemoryStore:
		return ModeInMemory
	case *PostgresStore:
		return ModePostgres
	case *RedisStore:
		return ModeRedis
	default:
		return "custom"
	}
}
