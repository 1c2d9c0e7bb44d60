// Package backend selects and opens the key-value store implementation.
package backend

import (
	"fmt"

	"spendbook/internal/config"
	"spendbook/internal/kv"
	applog "spendbook/internal/log"
)

const (
	SQLiteBackend Type = config.BackendSQLite
	MemoryBackend Type = config.BackendMemory
)

// Type identifies a store implementation.
type Type string

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Result holds the opened store and its cleanup function.
type Result struct {
	Store   kv.Store
	Cleanup func() error
}

// Open creates the store named by the configuration.
func Open(cfg *config.Config, logger *applog.Logger) (*Result, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentBackend)
	}

	t := Type(cfg.Backend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Backend)
	}

	switch t {
	case SQLiteBackend:
		store, err := kv.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		store := kv.NewMemoryStore()
		logger.Info("Initialized memory backend")
		return &Result{Store: store, Cleanup: store.Close}, nil
	}
}
