package cli

import (
	"aquasync/internal/adapters/httpapi"
	"aquasync/internal/catalog"
	"aquasync/internal/core"
	"aquasync/pkg/domain"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 5 * time.Second

func (st *state) recomputeCommand() *cobra.Command {
	var (
		opts     core.RecomputeOptions
		doExport bool
	)
	cmd := &cobra.Command{
		Use:   "recompute-compatibility",
		Short: "Rebuild the pairwise compatibility matrix and tankmate profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Limit < 0 || opts.BatchSize < 0 {
				return &core.ConfigError{Op: "parse flags", Err: errors.New("--limit and --batch-size must not be negative")}
			}
			ctx := cmd.Context()
			rt, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if opts.RunID == "" {
				opts.RunID = uuid.NewString()
			}
			report, err := rt.service.Recompute(ctx, opts)
			if err != nil {
				return err
			}
			if err := writeJSON(st.stdout, report); err != nil {
				return err
			}
			if !report.Complete() {
				return &exitError{code: ExitPartial, err: fmt.Errorf("recompute %s incomplete: %d failed chunks, cancelled %t, prune error %q",
					report.RunID, len(report.Failed), report.Cancelled, report.PruneError)}
			}
			if doExport {
				ex, err := rt.exporter(ctx)
				if err != nil {
					return err
				}
				if _, err := ex.Export(ctx, report.RunID); err != nil {
					return &exitError{code: ExitPartial, err: fmt.Errorf("export snapshot: %w", err)}
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Limit, "limit", 0, "only use the first N species by name (0 = all)")
	f.BoolVar(&opts.Force, "force", false, "clear stored verdicts and recompute every pair")
	f.IntVar(&opts.BatchSize, "batch-size", 0, "pairs per upsert chunk (0 = configured default)")
	f.StringVar(&opts.RunID, "run-id", "", "run identifier (default: random UUID)")
	f.BoolVar(&doExport, "export", false, "export a snapshot to the blob store after a complete run")
	return cmd
}

func (st *state) tankmatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tankmates <species>",
		Short: "Show the tankmate profile of a species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			profile, err := rt.service.Tankmates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(st.stdout, profile)
		},
	}
}

func (st *state) compatCommand() *cobra.Command {
	var (
		stock   []string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "compat <species-a> <species-b>",
		Short: "Show the compatibility verdict for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			var v domain.Verdict
			if len(stock) > 0 {
				stocking, perr := domain.ParseStocking(stock)
				if perr != nil {
					return &core.ConfigError{Op: "parse --stock", Err: perr}
				}
				v, err = rt.service.CompatibilityInTank(ctx, args[0], args[1], stocking)
			} else {
				v, err = rt.service.Compatibility(ctx, args[0], args[1])
			}
			if err != nil {
				return err
			}
			if explain {
				return writeJSON(st.stdout, rt.enricher().Explain(ctx, v))
			}
			return writeJSON(st.stdout, v)
		},
	}
	cmd.Flags().StringArrayVar(&stock, "stock", nil, "tank stocking as name:count (repeatable); enables tank-context rules")
	cmd.Flags().BoolVar(&explain, "explain", false, "print a prose explanation instead of the raw verdict")
	return cmd
}

func (st *state) planCommand() *cobra.Command {
	var tankPath string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan stocking and feed for a tank described in a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tank, err := readTank(tankPath)
			if err != nil {
				return err
			}
			rt, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			plan, err := rt.service.Plan(cmd.Context(), tank)
			if err != nil {
				return err
			}
			return writeJSON(st.stdout, plan)
		},
	}
	cmd.Flags().StringVar(&tankPath, "tank", "", "tank description file")
	_ = cmd.MarkFlagRequired("tank")
	return cmd
}

// readTank decodes a tank file. JSON is accepted since it is valid YAML.
func readTank(path string) (domain.Tank, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Tank{}, &core.ConfigError{Op: "read tank", Err: err}
	}
	var tank domain.Tank
	if err := yaml.Unmarshal(b, &tank); err != nil {
		return domain.Tank{}, &core.ConfigError{Op: "parse tank " + path, Err: err}
	}
	return tank, nil
}

func (st *state) serveCommand() *cobra.Command {
	var (
		addr    string
		watch   bool
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			if addr == "" {
				addr = st.cfg.HTTP.Addr
			}
			opts := []httpapi.Option{
				httpapi.WithLogger(st.logger),
				httpapi.WithGatherer(rt.registry),
				httpapi.WithEnricher(rt.enricher()),
			}
			if ex, err := rt.exporter(ctx); err != nil {
				st.logger.Warn("snapshot listing disabled", "error", err)
			} else {
				opts = append(opts, httpapi.WithSnapshots(ex))
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return &core.ConfigError{Op: "listen", Err: err}
			}
			srv := &http.Server{Handler: httpapi.New(rt.service, opts...).Handler(), ReadHeaderTimeout: 10 * time.Second}
			st.logger.Info("serving", "addr", ln.Addr().String())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if refresh > 0 {
				g.Go(func() error {
					st.refreshLoop(gctx, rt, refresh)
					return nil
				})
			}
			if watch {
				if st.cfg.Catalog.Driver != catalog.DriverFile {
					st.logger.Warn("--watch needs the file catalog driver; ignoring", "driver", string(st.cfg.Catalog.Driver))
				} else {
					g.Go(func() error {
						return catalog.Watch(gctx, st.cfg.Catalog.Path, catalog.DefaultDebounce, st.logger, func(ctx context.Context) {
							st.recomputeOnChange(ctx, rt)
						})
					})
				}
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "recompute incrementally when the catalog file changes")
	cmd.Flags().DurationVar(&refresh, "refresh", 30*time.Second, "reload stored verdicts written by other processes at this interval (0 disables)")
	return cmd
}

func (st *state) refreshLoop(ctx context.Context, rt *runtime, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rt.service.Refresh(ctx); err != nil && ctx.Err() == nil {
				st.logger.Warn("refresh failed", "error", err)
			}
		}
	}
}

func (st *state) recomputeOnChange(ctx context.Context, rt *runtime) {
	runID := uuid.NewString()
	report, err := rt.service.Recompute(ctx, core.RecomputeOptions{RunID: runID})
	if err != nil {
		st.logger.Error("catalog change recompute failed", "run_id", runID, "class", core.Classify(err).String(), "error", err)
		return
	}
	st.logger.Info("catalog change recomputed", "run_id", runID,
		"upserted", report.Upserted, "skipped", report.Skipped, "pruned", report.Pruned, "complete", report.Complete())
}

func (st *state) exportCommand() *cobra.Command {
	var (
		runID string
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored verdicts and profiles to the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := st.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			ex, err := rt.exporter(ctx)
			if err != nil {
				return err
			}
			if list {
				runs, err := ex.Runs(ctx)
				if err != nil {
					return err
				}
				return writeJSON(st.stdout, runs)
			}
			m, err := ex.Export(ctx, runID)
			if err != nil {
				return err
			}
			return writeJSON(st.stdout, m)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "snapshot identifier (default: random UUID)")
	cmd.Flags().BoolVar(&list, "list", false, "list existing snapshots instead of writing one")
	return cmd
}
