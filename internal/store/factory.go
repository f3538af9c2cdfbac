package store

import (
	"fmt"
	"log/slog"

	"bilancio/internal/feed"
)

// Backend selects a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// IsValid returns true for a known backend type.
func (b Backend) IsValid() bool {
	switch b {
	case BackendMemory, BackendSQLite:
		return true
	default:
		return false
	}
}

func (b Backend) String() string { return string(b) }

// Open creates the configured Store, wiring every mutation to bus.
func Open(backend Backend, sqlitePath string, bus feed.Bus, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch backend {
	case BackendSQLite:
		s, err := NewSQLiteStore(sqlitePath, bus)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite store", "db_path", sqlitePath)
		return s, nil
	case BackendMemory:
		logger.Info("Initialized memory store")
		return NewMemoryStore(bus), nil
	default:
		return nil, fmt.Errorf("invalid store backend: %s", backend)
	}
}
