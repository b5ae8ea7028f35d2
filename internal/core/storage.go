package core

import (
	"context"
	"fmt"
	"log/slog"

	"aquasync/internal/infra/persistence/badger"
	"aquasync/internal/infra/persistence/memory"
	"aquasync/internal/infra/persistence/postgres"
	"aquasync/internal/infra/persistence/sqlite"
	"aquasync/pkg/domain"
)

// StorageDriver identifies a concrete verdict store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded key-value directory
)

// StorageConfig selects and configures the verdict store.
type StorageConfig struct {
	Driver      StorageDriver `json:"driver" yaml:"driver" validate:"required,oneof=memory sqlite postgres badger"`
	SQLitePath  string        `json:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string        `json:"postgres_dsn" yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
	BadgerPath  string        `json:"badger_path" yaml:"badger_path" validate:"required_if=Driver badger"`
}

// DefaultStorageConfig uses a sqlite file in the working directory.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{Driver: StorageSQLite, SQLitePath: sqlite.DefaultPath}
}

// OpenVerdictStore opens the configured backend. Defaults to sqlite when the
// driver is unset.
func OpenVerdictStore(ctx context.Context, cfg StorageConfig, logger *slog.Logger) (domain.VerdictStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	var (
		store domain.VerdictStore
		err   error
	)
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		store, err = sqlite.NewStore(ctx, cfg.SQLitePath)
	case StoragePostgres:
		store, err = postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageBadger:
		store, err = badger.NewStore(badger.Config{Path: cfg.BadgerPath, SyncWrites: true, Logger: logger})
	default:
		return nil, &ConfigError{Op: "open verdict store", Err: fmt.Errorf("unknown storage driver %q", driver)}
	}
	if err != nil {
		return nil, &ConfigError{Op: fmt.Sprintf("open %s verdict store", driver), Err: err}
	}
	return store, nil
}
