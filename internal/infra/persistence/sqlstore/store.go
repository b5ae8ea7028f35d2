// Package sqlstore implements the verdict store on database/sql. Rows are
// written inside one transaction per batch and mirrored into an in-memory
// read model once the transaction commits. The sqlite and postgres packages
// supply the driver and dialect.
package sqlstore

import (
	"aquasync/internal/infra/persistence/memory"
	"aquasync/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.VerdictStore = (*Store)(nil)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name     string
	JSONType string
	RealType string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses ? placeholders and stores JSON as TEXT.
var SQLite = Dialect{
	Name:        "sqlite",
	JSONType:    "TEXT",
	RealType:    "REAL",
	Placeholder: func(int) string { return "?" },
}

// Postgres uses $n placeholders and JSONB columns.
var Postgres = Dialect{
	Name:        "postgres",
	JSONType:    "JSONB",
	RealType:    "DOUBLE PRECISION",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

func (d Dialect) params(from, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = d.Placeholder(from + i)
	}
	return strings.Join(out, ", ")
}

// Schema returns the DDL statements for the dialect.
func (d Dialect) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS compatibility_verdicts (
			species_a TEXT NOT NULL,
			species_b TEXT NOT NULL,
			level TEXT NOT NULL,
			reasons %[1]s NOT NULL,
			conditions %[1]s NOT NULL,
			compatibility_score %[2]s NOT NULL,
			confidence %[2]s NOT NULL,
			evaluation_method TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			PRIMARY KEY (species_a, species_b),
			CHECK (species_a < species_b)
		)`, d.JSONType, d.RealType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tankmate_profiles (
			species TEXT PRIMARY KEY,
			payload %s NOT NULL
		)`, d.JSONType),
	}
}

func (d Dialect) upsertVerdict() string {
	return `INSERT INTO compatibility_verdicts (species_a, species_b, level, reasons, conditions, compatibility_score, confidence, evaluation_method, fingerprint)
		VALUES (` + d.params(1, 9) + `)
		ON CONFLICT (species_a, species_b) DO UPDATE SET
			level = excluded.level,
			reasons = excluded.reasons,
			conditions = excluded.conditions,
			compatibility_score = excluded.compatibility_score,
			confidence = excluded.confidence,
			evaluation_method = excluded.evaluation_method,
			fingerprint = excluded.fingerprint`
}

func (d Dialect) deleteVerdict() string {
	return `DELETE FROM compatibility_verdicts WHERE species_a = ` + d.Placeholder(1) + ` AND species_b = ` + d.Placeholder(2)
}

func (d Dialect) insertProfile() string {
	return `INSERT INTO tankmate_profiles (species, payload) VALUES (` + d.params(1, 2) + `)`
}

// Store is the database/sql verdict store.
type Store struct {
	*memory.Store
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

// Open applies the schema, hydrates the read model and returns the store.
// The store owns db and closes it on Close.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s schema: %w", dialect.Name, err)
		}
	}
	s := &Store{Store: memory.NewStore(), db: db, dialect: dialect}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Refresh reloads the read model from the database so rows committed by
// another process become visible.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT species_a, species_b, level, reasons, conditions, compatibility_score, confidence, evaluation_method, fingerprint
		FROM compatibility_verdicts ORDER BY species_a, species_b`)
	if err != nil {
		return fmt.Errorf("select verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	for rows.Next() {
		var (
			v                  domain.Verdict
			level              string
			reasons, condition []byte
		)
		if err := rows.Scan(&v.Pair.A, &v.Pair.B, &level, &reasons, &condition, &v.Score, &v.Confidence, &v.Method, &v.Fingerprint); err != nil {
			return fmt.Errorf("scan verdict: %w", err)
		}
		v.Level = domain.Level(level)
		if err := json.Unmarshal(reasons, &v.Reasons); err != nil {
			return fmt.Errorf("decode reasons for %s: %w", v.Pair, err)
		}
		if err := json.Unmarshal(condition, &v.Conditions); err != nil {
			return fmt.Errorf("decode conditions for %s: %w", v.Pair, err)
		}
		snapshot.Verdicts = append(snapshot.Verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate verdicts: %w", err)
	}

	profileRows, err := s.db.QueryContext(ctx, `SELECT payload FROM tankmate_profiles ORDER BY species`)
	if err != nil {
		return fmt.Errorf("select profiles: %w", err)
	}
	defer func() { _ = profileRows.Close() }()
	for profileRows.Next() {
		var payload []byte
		if err := profileRows.Scan(&payload); err != nil {
			return fmt.Errorf("scan profile: %w", err)
		}
		var p domain.TankmateProfile
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		snapshot.Profiles = append(snapshot.Profiles, p)
	}
	if err := profileRows.Err(); err != nil {
		return fmt.Errorf("iterate profiles: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

// withTx runs fn in a transaction and commits it. Writers are serialized so
// the read model is updated in commit order.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpsertVerdicts writes the batch in one transaction keyed by canonical pair.
func (s *Store) UpsertVerdicts(ctx context.Context, verdicts []domain.Verdict) error {
	if err := memory.ValidateVerdicts(verdicts); err != nil {
		return err
	}
	if len(verdicts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := s.dialect.upsertVerdict()
		for _, v := range verdicts {
			reasons, err := json.Marshal(nonNil(v.Reasons))
			if err != nil {
				return err
			}
			conditions, err := json.Marshal(nonNil(v.Conditions))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, v.Pair.A, v.Pair.B, string(v.Level), string(reasons), string(conditions),
				v.Score, v.Confidence, v.Method, v.Fingerprint); err != nil {
				return fmt.Errorf("upsert %s: %w", v.Pair, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ApplyVerdicts(verdicts)
	return nil
}

// DeletePairs removes the verdicts in one transaction.
func (s *Store) DeletePairs(ctx context.Context, pairs []domain.PairKey) error {
	if len(pairs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range pairs {
			p = domain.NewPairKey(p.A, p.B)
			if _, err := tx.ExecContext(ctx, s.dialect.deleteVerdict(), p.A, p.B); err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Store.DeletePairs(context.WithoutCancel(ctx), pairs)
}

// Clear truncates both tables.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"compatibility_verdicts", "tankmate_profiles"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Store.Clear(context.WithoutCancel(ctx))
}

// ReplaceProfiles swaps the profile table in one transaction.
func (s *Store) ReplaceProfiles(ctx context.Context, profiles []domain.TankmateProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tankmate_profiles"); err != nil {
			return fmt.Errorf("clear profiles: %w", err)
		}
		for _, p := range profiles {
			payload, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode profile %s: %w", p.Name, err)
			}
			if _, err := tx.ExecContext(ctx, s.dialect.insertProfile(), p.Name, string(payload)); err != nil {
				return fmt.Errorf("insert profile %s: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ApplyProfiles(profiles)
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
