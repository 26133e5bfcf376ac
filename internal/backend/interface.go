package backend

import (
	"context"

	"pinledger/internal/seed"
	"pinledger/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the dataset it was seeded from and an
// optional cleanup function.
type BackendResult struct {
	Store store.Store
	// Dataset is the generated demo data. The mock rewards provider serves
	// its offers even when the store already held data.
	Dataset seed.Dataset
	// Seeded is false when an existing SQLite database was reused.
	Seeded  bool
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Seed drives the demo data generator. Zero picks a random seed.
	Seed int64

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
