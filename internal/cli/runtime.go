package cli

import (
	"aquasync/internal/adapters/export"
	"aquasync/internal/blob"
	"aquasync/internal/catalog"
	"aquasync/internal/config"
	"aquasync/internal/core"
	"aquasync/internal/enrich"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// runtime holds everything a command needs once configuration is loaded.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	service  *core.Service
	closers  []io.Closer
}

func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	src, closer, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		return nil, &core.ConfigError{Op: "open catalog", Err: err}
	}
	rt.closers = append(rt.closers, closer)
	store, err := core.OpenVerdictStore(ctx, cfg.Storage, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, store)

	engine := core.NewDefaultEngine(cfg.Thresholds)
	rt.service = core.NewService(src, store,
		core.WithEngine(engine),
		core.WithPlanner(core.NewPlanner(cfg.Planner, engine)),
		core.WithLogger(logger),
		core.WithMetrics(core.NewPrometheusMetrics(rt.registry)),
		core.WithRetryPolicy(cfg.Retry),
		core.WithRecomputeDefaults(cfg.Recompute.Workers, cfg.Recompute.BatchSize),
	)
	return rt, nil
}

// enricher wires the OpenAI explainer when a key is configured.
func (rt *runtime) enricher() *enrich.Enricher {
	var explainer enrich.Explainer
	if rt.cfg.OpenAI.APIKey != "" {
		oa, err := enrich.NewOpenAIExplainer(rt.cfg.OpenAI, rt.logger)
		if err != nil {
			rt.logger.Warn("generative explanations disabled", "error", err)
		} else {
			explainer = oa
		}
	}
	return enrich.New(explainer, rt.cfg.Enrich, rt.logger)
}

func (rt *runtime) exporter(ctx context.Context) (*export.Exporter, error) {
	store, err := blob.Open(ctx, rt.cfg.Blob)
	if err != nil {
		return nil, &core.ConfigError{Op: "open blob store", Err: err}
	}
	return export.NewExporter(rt.service, store, export.WithLogger(rt.logger)), nil
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
