// Package cli implements the aquasync command tree and the standalone
// recompute-compatibility entry point.
package cli

import (
	"aquasync/internal/config"
	"aquasync/internal/core"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK = 0
	// ExitFatal covers configuration and input errors.
	ExitFatal = 1
	// ExitPartial means the run finished but some chunks failed or it was
	// cancelled.
	ExitPartial = 2
)

// exitError carries an explicit exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// state is shared by every command of one invocation.
type state struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func (st *state) setup(*cobra.Command, []string) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.logger = cfg.Logger(st.stderr)
	return nil
}

func (st *state) open(ctx context.Context) (*runtime, error) {
	return openRuntime(ctx, st.cfg, st.logger)
}

func (st *state) addConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&st.configPath, "config", "c", "",
		"configuration file (default "+config.DefaultPath+" when present)")
	cmd.PersistentPreRunE = st.setup
}

// Run executes the aquasync command tree and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	st := &state{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "aquasync",
		Short: "Fish compatibility and tankmate engine",
	}
	st.addConfigFlag(root)
	root.AddCommand(
		st.recomputeCommand(),
		st.tankmatesCommand(),
		st.compatCommand(),
		st.planCommand(),
		st.serveCommand(),
		st.exportCommand(),
	)
	return execute(ctx, root, args, stdout, stderr)
}

// RunRecompute is the standalone recompute-compatibility binary.
func RunRecompute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	st := &state{stdout: stdout, stderr: stderr}
	cmd := st.recomputeCommand()
	st.addConfigFlag(cmd)
	return execute(ctx, cmd, args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if core.Classify(err) == core.ClassCancelled {
		return ExitPartial
	}
	return ExitFatal
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
