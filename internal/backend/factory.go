package backend

import (
	"context"
	"fmt"
	"log/slog"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
	"moneydrain/internal/ledger/memory"
	"moneydrain/internal/storage"
	"moneydrain/internal/storage/postgres"
)

// Factory opens the store a Config describes.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}

type opener func(ctx context.Context, cfg Config, seed []core.NewCategory) (*BackendResult, error)

type factory struct {
	logger  *slog.Logger
	openers map[BackendType]opener
}

// NewFactory returns a Factory that logs to logger, or to the default
// slog logger when nil.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &factory{
		logger: logger,
		openers: map[BackendType]opener{
			SQLiteBackend:   openSQLite,
			PostgresBackend: openPostgres,
			MemoryBackend:   openMemory,
		},
	}
}

func (f *factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	open, ok := f.openers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported data backend %q", cfg.Type)
	}

	seed, err := ledger.LoadSeed(cfg.SeedCategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("load category seed: %w", err)
	}

	res, err := open(ctx, cfg, seed)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Ledger backend opened", "backend", cfg.Type, "seed_categories", len(seed))
	return res, nil
}

func openSQLite(_ context.Context, cfg Config, seed []core.NewCategory) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, seed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger %s: %w", cfg.SQLiteDBPath, err)
	}
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func openPostgres(ctx context.Context, cfg Config, seed []core.NewCategory) (*BackendResult, error) {
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres ledger: %w", err)
	}
	store := postgres.New(pool, seed)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func openMemory(_ context.Context, _ Config, seed []core.NewCategory) (*BackendResult, error) {
	store := memory.New(seed)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
