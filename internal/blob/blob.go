// Package blob selects the object store used for snapshot exports and
// re-exports the core contract for callers outside internal/infra.
package blob

import (
	"aquasync/internal/blob/core"
	"aquasync/internal/infra/blob/fs"
	"aquasync/internal/infra/blob/memory"
	"aquasync/internal/infra/blob/s3"
	"context"
	"fmt"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is the blob storage contract.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = s3.Config
)

// Supported drivers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Sentinel errors shared by all drivers.
var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrInvalidKey  = core.ErrInvalidKey
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver   `json:"driver" yaml:"driver" validate:"omitempty,oneof=fs s3 memory"`
	FSRoot string   `json:"fs_root" yaml:"fs_root"`
	S3     S3Config `json:"s3" yaml:"s3" validate:"-"`
}

// DefaultConfig writes snapshots to the local filesystem.
func DefaultConfig() Config {
	return Config{Driver: DriverFilesystem, FSRoot: fs.DefaultRoot}
}

// Open returns the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
