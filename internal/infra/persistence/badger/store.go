// Package badger provides an embedded key-value verdict store on BadgerDB.
//
// Verdicts live under "verdict/<a>\x00<b>" and profiles under
// "profile/<name>", so prefix iteration yields both in canonical order.
package badger

import (
	"aquasync/internal/infra/persistence/memory"
	"aquasync/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.VerdictStore = (*Store)(nil)

var (
	verdictPrefix = []byte("verdict/")
	profilePrefix = []byte("profile/")
)

// Config controls how the database is opened.
type Config struct {
	// Path is the database directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store persists verdicts and profiles in BadgerDB.
type Store struct {
	db *badger.DB
}

// NewStore opens the database described by cfg.
func NewStore(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewInMemoryStore opens a throwaway in-memory database.
func NewInMemoryStore() (*Store, error) {
	return NewStore(Config{InMemory: true})
}

func verdictKey(p domain.PairKey) []byte {
	return append(append([]byte{}, verdictPrefix...), p.A+"\x00"+p.B...)
}

func profileKey(name string) []byte {
	return append(append([]byte{}, profilePrefix...), name...)
}

func pairFromKey(key []byte) (domain.PairKey, bool) {
	a, b, ok := strings.Cut(string(key[len(verdictPrefix):]), "\x00")
	if !ok {
		return domain.PairKey{}, false
	}
	return domain.PairKey{A: a, B: b}, true
}

// UpsertVerdicts writes the batch in one transaction.
func (s *Store) UpsertVerdicts(ctx context.Context, verdicts []domain.Verdict) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := memory.ValidateVerdicts(verdicts); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, v := range verdicts {
			payload, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode verdict %s: %w", v.Pair, err)
			}
			if err := txn.Set(verdictKey(v.Pair), payload); err != nil {
				return fmt.Errorf("set verdict %s: %w", v.Pair, err)
			}
		}
		return nil
	})
}

// GetVerdict returns the verdict for the pair in either order.
func (s *Store) GetVerdict(_ context.Context, pair domain.PairKey) (domain.Verdict, bool, error) {
	pair = domain.NewPairKey(pair.A, pair.B)
	var v domain.Verdict
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(verdictKey(pair))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &v) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Verdict{}, false, nil
	}
	if err != nil {
		return domain.Verdict{}, false, fmt.Errorf("get verdict %s: %w", pair, err)
	}
	return v, true, nil
}

// ListVerdicts returns every verdict ordered by pair.
func (s *Store) ListVerdicts(_ context.Context) ([]domain.Verdict, error) {
	return s.scanVerdicts(func(domain.PairKey) bool { return true })
}

// VerdictsFor returns the verdicts involving the species, ordered by pair.
func (s *Store) VerdictsFor(_ context.Context, species string) ([]domain.Verdict, error) {
	return s.scanVerdicts(func(p domain.PairKey) bool { return p.Involves(species) })
}

func (s *Store) scanVerdicts(keep func(domain.PairKey) bool) ([]domain.Verdict, error) {
	var out []domain.Verdict
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(verdictPrefix); it.ValidForPrefix(verdictPrefix); it.Next() {
			item := it.Item()
			pair, ok := pairFromKey(item.Key())
			if !ok || !keep(pair) {
				continue
			}
			var v domain.Verdict
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
				return fmt.Errorf("decode verdict %s: %w", pair, err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fingerprints returns the stored fingerprint per pair.
func (s *Store) Fingerprints(ctx context.Context) (map[domain.PairKey]string, error) {
	verdicts, err := s.ListVerdicts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.PairKey]string, len(verdicts))
	for _, v := range verdicts {
		out[v.Pair] = v.Fingerprint
	}
	return out, nil
}

// DeletePairs removes the verdicts in one transaction.
func (s *Store) DeletePairs(ctx context.Context, pairs []domain.PairKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range pairs {
			if err := txn.Delete(verdictKey(domain.NewPairKey(p.A, p.B))); err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
		}
		return nil
	})
}

// Clear drops every verdict and profile.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropPrefix(verdictPrefix, profilePrefix); err != nil {
		return fmt.Errorf("drop prefixes: %w", err)
	}
	return nil
}

// ReplaceProfiles swaps the full profile set in one transaction.
func (s *Store) ReplaceProfiles(ctx context.Context, profiles []domain.TankmateProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Seek(profilePrefix); it.ValidForPrefix(profilePrefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete profile: %w", err)
			}
		}
		for _, p := range profiles {
			payload, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode profile %s: %w", p.Name, err)
			}
			if err := txn.Set(profileKey(p.Name), payload); err != nil {
				return fmt.Errorf("set profile %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

// GetProfile returns the stored profile for the species.
func (s *Store) GetProfile(_ context.Context, species string) (domain.TankmateProfile, bool, error) {
	var p domain.TankmateProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(species))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &p) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.TankmateProfile{}, false, nil
	}
	if err != nil {
		return domain.TankmateProfile{}, false, fmt.Errorf("get profile %s: %w", species, err)
	}
	return p, true, nil
}

// ListProfiles returns every profile ordered by species name.
func (s *Store) ListProfiles(_ context.Context) ([]domain.TankmateProfile, error) {
	var out []domain.TankmateProfile
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(profilePrefix); it.ValidForPrefix(profilePrefix); it.Next() {
			var p domain.TankmateProfile
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &p) }); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
