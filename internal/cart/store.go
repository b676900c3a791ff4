package cart

import (
	"context"
	"fmt"
	"time"
)

// Store is a string key/value store with synchronous writes, the server
// side stand-in for browser local storage.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

// Open builds the store named by kind ("memory", "sqlite" or "postgres").
func Open(ctx context.Context, kind, sqlitePath, databaseURL string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath)
	case "postgres":
		return OpenPostgres(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unknown cart store %q", kind)
	}
}
