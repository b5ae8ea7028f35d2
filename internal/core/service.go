package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"aquasync/pkg/domain"
)

// Service ties the catalog, the rule engine, the matrix builder and the
// planner to a verdict store.
type Service struct {
	catalog domain.CatalogSource
	store   domain.VerdictStore
	engine  *Engine
	planner *Planner
	builder *MatrixBuilder
	retry   RetryPolicy
	logger  *slog.Logger
	metrics MetricsRecorder
	workers int
	batch   int
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithEngine replaces the default rule engine.
func WithEngine(e *Engine) ServiceOption {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithPlanner replaces the default planner.
func WithPlanner(p *Planner) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.planner = p
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the recompute metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRetryPolicy sets the retry policy for store and catalog I/O.
func WithRetryPolicy(p RetryPolicy) ServiceOption {
	return func(s *Service) { s.retry = p }
}

// WithRecomputeDefaults sets the worker count and default chunk size.
func WithRecomputeDefaults(workers, batchSize int) ServiceOption {
	return func(s *Service) {
		s.workers = workers
		s.batch = batchSize
	}
}

// NewService constructs a service over the catalog and verdict store.
func NewService(catalog domain.CatalogSource, store domain.VerdictStore, opts ...ServiceOption) *Service {
	s := &Service{
		catalog: catalog,
		store:   store,
		retry:   DefaultRetryPolicy(),
		logger:  slog.Default(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewDefaultEngine(DefaultThresholds())
	}
	if s.planner == nil {
		s.planner = NewPlanner(DefaultPlannerConfig(), s.engine)
	}
	s.builder = NewMatrixBuilder(s.engine, s.store,
		WithMatrixLogger(s.logger),
		WithMatrixMetrics(s.metrics),
		WithMatrixRetry(s.retry),
		WithWorkers(s.workers),
		WithBatchSize(s.batch),
	)
	return s
}

// Store returns the underlying verdict store.
func (s *Service) Store() domain.VerdictStore { return s.store }

// Engine returns the rule engine.
func (s *Service) Engine() *Engine { return s.engine }

// Planner returns the capacity planner.
func (s *Service) Planner() *Planner { return s.planner }

// LoadCatalog reads and normalizes the full catalog. An unreachable catalog
// is a configuration error.
func (s *Service) LoadCatalog(ctx context.Context) ([]domain.Species, error) {
	var records []domain.SpeciesRecord
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.catalog.ListSpecies(ctx)
		return err
	})
	if err != nil {
		return nil, &ConfigError{Op: "load catalog", Err: err}
	}
	species, dropped := NormalizeCatalog(records)
	if len(dropped) > 0 {
		s.logger.Warn("dropped catalog records", "count", len(dropped), "names", dropped)
	}
	return species, nil
}

// Species returns the normalized catalog record for name.
func (s *Service) Species(ctx context.Context, name string) (domain.Species, error) {
	rec, ok, err := s.catalog.GetSpecies(ctx, name)
	if err != nil {
		return domain.Species{}, &ConfigError{Op: "read catalog", Err: err}
	}
	if !ok {
		return domain.Species{}, ErrNotFound{Entity: "species", ID: name}
	}
	return Normalize(rec), nil
}

// Recompute rebuilds the verdict matrix and the tankmate profiles.
func (s *Service) Recompute(ctx context.Context, opts RecomputeOptions) (RecomputeReport, error) {
	species, err := s.LoadCatalog(ctx)
	if err != nil {
		return RecomputeReport{RunID: opts.RunID}, err
	}
	report, err := s.builder.Run(ctx, species, opts)
	if err != nil || report.Cancelled {
		return report, err
	}
	if err := s.RefreshProfiles(ctx, PrepareSpecies(species, opts.Limit)); err != nil {
		report.ProfilesError = err.Error()
		s.logger.Error("refresh tankmate profiles failed", "run_id", opts.RunID, "error", err)
	}
	return report, nil
}

// RefreshProfiles rebuilds and stores every profile from the stored verdicts.
func (s *Service) RefreshProfiles(ctx context.Context, species []domain.Species) error {
	var verdicts []domain.Verdict
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		verdicts, err = s.store.ListVerdicts(ctx)
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "list verdicts", Err: err}
	}
	included := make(map[string]struct{}, len(species))
	for _, sp := range species {
		included[sp.Name] = struct{}{}
	}
	// Verdicts left over from a wider earlier run are not part of this
	// catalog view.
	scoped := verdicts[:0]
	for _, v := range verdicts {
		_, okA := included[v.Pair.A]
		_, okB := included[v.Pair.B]
		if okA && okB {
			scoped = append(scoped, v)
		}
	}
	profiles := BuildProfiles(species, scoped)
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.store.ReplaceProfiles(ctx, profiles)
	})
	if err != nil {
		return &PersistenceError{Op: "replace profiles", Err: err}
	}
	return nil
}

// Tankmates returns the profile for a species. Stored profiles are served
// directly; otherwise the profile is aggregated from the stored verdicts.
func (s *Service) Tankmates(ctx context.Context, name string) (domain.TankmateProfile, error) {
	if p, ok, err := s.store.GetProfile(ctx, name); err != nil {
		return domain.TankmateProfile{}, &PersistenceError{Op: "get profile", Err: err}
	} else if ok {
		return p, nil
	}
	sp, err := s.Species(ctx, name)
	if err != nil {
		return domain.TankmateProfile{}, err
	}
	verdicts, err := s.store.VerdictsFor(ctx, sp.Name)
	if err != nil {
		return domain.TankmateProfile{}, &PersistenceError{Op: "list verdicts", Err: err}
	}
	return BuildProfile(sp, verdicts), nil
}

// Compatibility returns the verdict for a pair, evaluating it on the fly when
// the matrix has no fresh entry.
func (s *Service) Compatibility(ctx context.Context, a, b string) (domain.Verdict, error) {
	sa, sb, err := s.resolvePair(ctx, a, b)
	if err != nil {
		return domain.Verdict{}, err
	}
	fp := s.engine.Fingerprint(sa, sb)
	if v, ok, err := s.store.GetVerdict(ctx, domain.NewPairKey(sa.Name, sb.Name)); err != nil {
		s.logger.Warn("verdict lookup failed; evaluating on the fly", "pair", domain.NewPairKey(sa.Name, sb.Name).String(), "error", err)
	} else if ok && v.Fingerprint == fp {
		return v, nil
	}
	v := s.engine.Evaluate(sa, sb)
	v.Fingerprint = fp
	return v, nil
}

// CompatibilityInTank evaluates a pair with the tank-context rules applied
// to the stocking list.
func (s *Service) CompatibilityInTank(ctx context.Context, a, b string, stocking map[string]int) (domain.Verdict, error) {
	sa, sb, err := s.resolvePair(ctx, a, b)
	if err != nil {
		return domain.Verdict{}, err
	}
	return s.engine.EvaluateInTank(sa, sb, stocking), nil
}

// resolvePair looks up both species and rejects names that resolve to the
// same catalog entry.
func (s *Service) resolvePair(ctx context.Context, a, b string) (domain.Species, domain.Species, error) {
	sa, err := s.Species(ctx, a)
	if err != nil {
		return domain.Species{}, domain.Species{}, err
	}
	sb, err := s.Species(ctx, b)
	if err != nil {
		return domain.Species{}, domain.Species{}, err
	}
	if sa.Name == sb.Name {
		return domain.Species{}, domain.Species{}, &ConfigError{Op: "compatibility", Err: fmt.Errorf("%s is not paired with itself", sa.Name)}
	}
	return sa, sb, nil
}

// Plan runs the capacity planner for a tank, using stored verdicts where
// available. Unknown species produce warnings rather than errors.
func (s *Service) Plan(ctx context.Context, tank domain.Tank) (domain.Plan, error) {
	if err := s.planner.ValidateTank(tank); err != nil {
		return domain.Plan{}, err
	}
	// Stocking keys are resolved against the catalog so that spelling
	// variants of one species share a single entry.
	var species []domain.Species
	stocking := make(map[string]int, len(tank.Stocking))
	for name, qty := range tank.Stocking {
		sp, err := s.Species(ctx, name)
		var missing ErrNotFound
		if errors.As(err, &missing) {
			stocking[name] += qty
			continue
		}
		if err != nil {
			return domain.Plan{}, err
		}
		if _, seen := stocking[sp.Name]; !seen {
			species = append(species, sp)
		}
		stocking[sp.Name] += qty
	}
	tank.Stocking = stocking
	var verdicts []domain.Verdict
	for i := 0; i < len(species); i++ {
		for j := i + 1; j < len(species); j++ {
			pair := domain.NewPairKey(species[i].Name, species[j].Name)
			v, ok, err := s.store.GetVerdict(ctx, pair)
			if err != nil {
				s.logger.Warn("verdict lookup failed; evaluating on the fly", "pair", pair.String(), "error", err)
				continue
			}
			if ok && v.Fingerprint == s.engine.Fingerprint(species[i], species[j]) {
				verdicts = append(verdicts, v)
			}
		}
	}
	return s.planner.Plan(tank, species, verdicts)
}

// Refresher is implemented by stores that cache rows other processes write.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Refresh reloads the store's read model when it has one.
func (s *Service) Refresh(ctx context.Context) error {
	r, ok := s.store.(Refresher)
	if !ok {
		return nil
	}
	if err := r.Refresh(ctx); err != nil {
		return &PersistenceError{Op: "refresh", Err: err}
	}
	return nil
}

// Snapshot returns every stored verdict and profile.
func (s *Service) Snapshot(ctx context.Context) ([]domain.Verdict, []domain.TankmateProfile, error) {
	verdicts, err := s.store.ListVerdicts(ctx)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "list verdicts", Err: err}
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "list profiles", Err: err}
	}
	return verdicts, profiles, nil
}
