package backend

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	applog "pinledger/internal/log"
	"pinledger/internal/seed"
	"pinledger/internal/storage"
	"pinledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, now: time.Now}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seedValue := config.Seed
	if seedValue == 0 {
		seedValue = rand.Int64N(1<<62) + 1
	}
	dataset := seed.Generate(seedValue, f.now())

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config, dataset)
	case MemoryBackend:
		return f.createMemoryBackend(dataset, seedValue)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config, dataset seed.Dataset) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	seeded, err := repo.SeedIfEmpty(ctx, dataset)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed sqlite database: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		applog.FieldComponent, applog.ComponentBackend,
		"db_path", config.SQLiteDBPath,
		"seeded", seeded)

	return &BackendResult{
		Store:   repo,
		Dataset: dataset,
		Seeded:  seeded,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(dataset seed.Dataset, seedValue int64) (*BackendResult, error) {
	st := memory.NewFromDataset(dataset)

	f.logger.Info("Initialized memory backend",
		applog.FieldComponent, applog.ComponentBackend,
		"seed", seedValue,
		"transactions", len(dataset.Mine)+len(dataset.Friends)+len(dataset.Global))

	return &BackendResult{
		Store:   st,
		Dataset: dataset,
		Seeded:  true,
	}, nil
}
