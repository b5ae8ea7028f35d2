package catalog

import (
	"aquasync/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Driver names a catalog backend.
type Driver string

// Supported catalog drivers.
const (
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config selects the catalog backend.
type Config struct {
	Driver Driver `json:"driver" yaml:"driver" validate:"required,oneof=file sqlite postgres"`
	// Path is the catalog file for the file driver.
	Path string `json:"path" yaml:"path" validate:"required_if=Driver file"`
	// DSN is the database path or connection string for the SQL drivers.
	DSN string `json:"dsn" yaml:"dsn" validate:"required_unless=Driver file"`
	// Table is the SQL catalog table; defaults to "species".
	Table string `json:"table" yaml:"table"`
}

// DefaultConfig reads species.yaml from the working directory.
func DefaultConfig() Config {
	return Config{Driver: DriverFile, Path: "species.yaml"}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured source and a closer for its resources.
func Open(ctx context.Context, cfg Config) (domain.CatalogSource, io.Closer, error) {
	switch cfg.Driver {
	case DriverFile, "":
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("catalog path is required for the file driver")
		}
		return NewFileSource(cfg.Path), nopCloser{}, nil
	case DriverSQLite, DriverPostgres:
		driverName, placeholder := "sqlite", "?"
		if cfg.Driver == DriverPostgres {
			driverName, placeholder = "pgx", "$1"
		}
		db, err := sql.Open(driverName, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s catalog: %w", cfg.Driver, err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping %s catalog: %w", cfg.Driver, err)
		}
		src, err := NewSQLSource(db, cfg.Table, placeholder)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return src, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}
