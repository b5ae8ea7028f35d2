package core

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"aquasync/pkg/domain"
)

// DefaultBatchSize is the number of pairs per chunk when none is configured.
const DefaultBatchSize = 500

// RecomputeOptions controls one matrix run.
type RecomputeOptions struct {
	// Limit keeps only the first Limit species by name; zero means all.
	Limit int
	// Force clears every stored verdict and profile before recomputing.
	Force bool
	// BatchSize is the number of pairs per chunk; zero uses the builder default.
	BatchSize int
	// RunID tags log lines and snapshot keys.
	RunID string
}

// RecomputeReport summarizes a matrix run.
type RecomputeReport struct {
	RunID     string               `json:"run_id"`
	Species   int                  `json:"species"`
	Pairs     int                  `json:"pairs"`
	Chunks    int                  `json:"chunks"`
	Evaluated int                  `json:"evaluated"`
	Skipped   int                  `json:"skipped"`
	Upserted  int                  `json:"upserted"`
	Pruned    int                  `json:"pruned"`
	Levels    map[domain.Level]int `json:"levels"`
	Failed    []*ChunkError        `json:"failed_chunks,omitempty"`
	Cancelled bool                 `json:"cancelled"`
	// PruneError is set when verdicts of removed species could not be deleted.
	PruneError string `json:"prune_error,omitempty"`
	// ProfilesError is set when the verdicts were stored but the derived
	// profiles could not be replaced.
	ProfilesError string `json:"profiles_error,omitempty"`
}

// Complete reports whether every chunk committed, stale pairs were pruned and
// the run was not cancelled.
func (r RecomputeReport) Complete() bool {
	return len(r.Failed) == 0 && !r.Cancelled && r.PruneError == "" && r.ProfilesError == ""
}

// MatrixBuilder evaluates every unordered species pair and upserts the
// verdicts in fixed-size chunks.
type MatrixBuilder struct {
	engine    *Engine
	store     domain.VerdictStore
	logger    *slog.Logger
	metrics   MetricsRecorder
	retry     RetryPolicy
	workers   int
	batchSize int
}

// MatrixOption customizes a MatrixBuilder.
type MatrixOption func(*MatrixBuilder)

// WithMatrixLogger sets the structured logger.
func WithMatrixLogger(l *slog.Logger) MatrixOption {
	return func(b *MatrixBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMatrixMetrics sets the metrics recorder.
func WithMatrixMetrics(m MetricsRecorder) MatrixOption {
	return func(b *MatrixBuilder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithMatrixRetry sets the upsert retry policy.
func WithMatrixRetry(p RetryPolicy) MatrixOption {
	return func(b *MatrixBuilder) { b.retry = p }
}

// WithWorkers bounds parallel pair evaluation within a chunk.
func WithWorkers(n int) MatrixOption {
	return func(b *MatrixBuilder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBatchSize sets the default chunk size.
func WithBatchSize(n int) MatrixOption {
	return func(b *MatrixBuilder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// NewMatrixBuilder constructs a builder around an engine and a verdict store.
func NewMatrixBuilder(engine *Engine, store domain.VerdictStore, opts ...MatrixOption) *MatrixBuilder {
	b := &MatrixBuilder{
		engine:    engine,
		store:     store,
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		retry:     DefaultRetryPolicy(),
		workers:   runtime.GOMAXPROCS(0),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PrepareSpecies sorts by name, drops repeated names and applies the limit.
func PrepareSpecies(species []domain.Species, limit int) []domain.Species {
	sorted := make([]domain.Species, 0, len(species))
	seen := make(map[string]struct{}, len(species))
	for _, s := range species {
		if s.Name == "" {
			continue
		}
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = struct{}{}
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// CanonicalPairs enumerates every unordered pair of the name-sorted species
// exactly once, in a deterministic order.
func CanonicalPairs(sorted []domain.Species) []domain.PairKey {
	if len(sorted) < 2 {
		return nil
	}
	pairs := make([]domain.PairKey, 0, len(sorted)*(len(sorted)-1)/2)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			pairs = append(pairs, domain.NewPairKey(sorted[i].Name, sorted[j].Name))
		}
	}
	return pairs
}

// Run recomputes the matrix for the given species. A returned error means
// the run could not start; chunk-level failures are reported in the
// RecomputeReport and do not stop the run.
func (b *MatrixBuilder) Run(ctx context.Context, species []domain.Species, opts RecomputeOptions) (RecomputeReport, error) {
	sorted := PrepareSpecies(species, opts.Limit)
	pairs := CanonicalPairs(sorted)
	report := RecomputeReport{
		RunID:   opts.RunID,
		Species: len(sorted),
		Pairs:   len(pairs),
		Levels:  map[domain.Level]int{},
	}
	logger := b.logger.With("run_id", opts.RunID)

	existing := map[domain.PairKey]string{}
	if opts.Force {
		if err := b.retry.Do(ctx, b.store.Clear); err != nil {
			return report, &PersistenceError{Op: "clear verdict store", Err: err}
		}
		logger.Info("cleared verdict store")
	} else {
		err := b.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			existing, err = b.store.Fingerprints(ctx)
			return err
		})
		if err != nil {
			return report, &PersistenceError{Op: "load fingerprints", Err: err}
		}
	}

	bySpecies := make(map[string]domain.Species, len(sorted))
	digests := make(map[string]uint64, len(sorted))
	for _, s := range sorted {
		bySpecies[s.Name] = s
		digests[s.Name] = speciesDigest(s)
	}
	signature := b.engine.Signature()

	if !opts.Force && opts.Limit == 0 {
		pruned, err := b.prune(ctx, logger, existing, bySpecies)
		if err != nil {
			report.PruneError = err.Error()
		}
		report.Pruned = pruned
	}

	size := opts.BatchSize
	if size <= 0 {
		size = b.batchSize
	}
	for chunk, start := 0, 0; start < len(pairs); chunk, start = chunk+1, start+size {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			logger.Warn("recompute cancelled", "next_chunk", chunk, "error", err)
			break
		}
		report.Chunks++
		end := min(start+size, len(pairs))
		began := time.Now()

		var stale []domain.PairKey
		fingerprints := make(map[domain.PairKey]string, end-start)
		for _, pair := range pairs[start:end] {
			fp := pairFingerprint(signature, digests[pair.A], digests[pair.B])
			if existing[pair] == fp {
				continue
			}
			fingerprints[pair] = fp
			stale = append(stale, pair)
		}
		report.Skipped += (end - start) - len(stale)
		if len(stale) == 0 {
			b.metrics.ObserveChunk(ChunkSkipped, end-start, time.Since(began))
			continue
		}

		verdicts := b.evaluate(stale, bySpecies, fingerprints)
		report.Evaluated += len(verdicts)
		err := b.retry.Do(ctx, func(ctx context.Context) error {
			return b.store.UpsertVerdicts(ctx, verdicts)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				report.Cancelled = true
				logger.Warn("recompute cancelled during upsert", "chunk", chunk, "error", err)
				break
			}
			chunkErr := &ChunkError{Chunk: chunk, Pairs: len(verdicts), First: stale[0].String(), Err: err}
			report.Failed = append(report.Failed, chunkErr)
			b.metrics.ObserveChunk(ChunkFailed, len(verdicts), time.Since(began))
			logger.Error("chunk upsert failed", "chunk", chunk, "pairs", len(verdicts), "error", err)
			continue
		}
		report.Upserted += len(verdicts)
		for _, v := range verdicts {
			report.Levels[v.Level]++
			b.metrics.ObserveVerdict(v.Level)
		}
		b.metrics.ObserveChunk(ChunkCommitted, len(verdicts), time.Since(began))
		logger.Debug("chunk committed", "chunk", chunk, "pairs", len(verdicts))
	}

	logger.Info("recompute finished",
		"species", report.Species,
		"pairs", report.Pairs,
		"upserted", report.Upserted,
		"skipped", report.Skipped,
		"pruned", report.Pruned,
		"failed_chunks", len(report.Failed),
		"cancelled", report.Cancelled,
		"prune_error", report.PruneError,
	)
	return report, nil
}

// evaluate runs the pure rule engine over the pairs in parallel. Results
// keep the pair order.
func (b *MatrixBuilder) evaluate(pairs []domain.PairKey, species map[string]domain.Species, fingerprints map[domain.PairKey]string) []domain.Verdict {
	out := make([]domain.Verdict, len(pairs))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, pair := range pairs {
		g.Go(func() error {
			v := b.engine.Evaluate(species[pair.A], species[pair.B])
			v.Fingerprint = fingerprints[pair]
			out[i] = v
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// prune deletes stored verdicts for pairs whose species left the catalog.
// A failure leaves the stale rows for the next run and marks the report
// incomplete.
func (b *MatrixBuilder) prune(ctx context.Context, logger *slog.Logger, existing map[domain.PairKey]string, species map[string]domain.Species) (int, error) {
	var gone []domain.PairKey
	for pair := range existing {
		_, okA := species[pair.A]
		_, okB := species[pair.B]
		if !okA || !okB {
			gone = append(gone, pair)
		}
	}
	if len(gone) == 0 {
		return 0, nil
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].String() < gone[j].String() })
	err := b.retry.Do(ctx, func(ctx context.Context) error {
		return b.store.DeletePairs(ctx, gone)
	})
	if err != nil {
		err = &PersistenceError{Op: "delete pairs", Err: err}
		logger.Error("prune removed species failed", "pairs", len(gone), "error", err)
		return 0, err
	}
	b.metrics.ObservePruned(len(gone))
	logger.Info("pruned verdicts for removed species", "pairs", len(gone))
	return len(gone), nil
}
