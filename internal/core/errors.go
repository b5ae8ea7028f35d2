package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass groups failures by how the engine reacts to them.
type ErrorClass int

const (
	// ClassDataQuality covers missing or invalid attributes. These degrade
	// confidence and are never returned as errors by the evaluator.
	ClassDataQuality ErrorClass = iota
	// ClassPersistence covers store failures; they are retried and then the
	// affected chunk is skipped.
	ClassPersistence
	// ClassConfiguration covers unreachable catalogs and invalid input; fatal.
	ClassConfiguration
	// ClassEnrichment covers explanation service failures; always swallowed.
	ClassEnrichment
	// ClassCancelled marks cooperative cancellation.
	ClassCancelled
)

func (c ErrorClass) String() string {
	switch c {
	case ClassDataQuality:
		return "data_quality"
	case ClassPersistence:
		return "persistence"
	case ClassConfiguration:
		return "configuration"
	case ClassEnrichment:
		return "enrichment"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrInvalidTank is wrapped by every tank geometry or stocking validation failure.
var ErrInvalidTank = errors.New("invalid tank")

// ErrNotFound is returned when a species or verdict lookup has no match.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConfigError is a fatal configuration or input failure.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

// PersistenceError is a store failure that survived the retry policy.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// ChunkError records a matrix chunk whose upsert failed after every retry.
type ChunkError struct {
	Chunk int    `json:"chunk"`
	Pairs int    `json:"pairs"`
	First string `json:"first_pair"`
	Err   error  `json:"-"`
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%d pairs from %s): %v", e.Chunk, e.Pairs, e.First, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Classify maps an error onto the engine's error taxonomy.
func Classify(err error) ErrorClass {
	var cfgErr *ConfigError
	var persistErr *PersistenceError
	var chunkErr *ChunkError
	var notFound ErrNotFound
	switch {
	case err == nil:
		return ClassDataQuality
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCancelled
	case errors.As(err, &cfgErr), errors.Is(err, ErrInvalidTank), errors.As(err, &notFound):
		return ClassConfiguration
	case errors.As(err, &persistErr), errors.As(err, &chunkErr):
		return ClassPersistence
	default:
		return ClassPersistence
	}
}
