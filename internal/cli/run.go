package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/datapreparer/internal/harness"
	"github.com/roach88/datapreparer/internal/manifest"
	"github.com/roach88/datapreparer/internal/sample"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Keep   bool
	Strict bool

	// IDs overrides the fixture id source (for testing).
	// If nil, defaults to sample.UUIDs.
	IDs sample.IDFunc
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Provision a manifest's fixtures and tear them down",
		Long: `Provision the fixtures a manifest requests in the configured store, then
delete them again. With --keep the fixtures are left in place.

Unknown template names are skipped unless --strict is set.

Example:
  datapreparer run ./fixtures/checkout.yaml
  DATAPREPARER_STORE_PATH=./fixtures.db datapreparer run --keep ./fixtures/checkout.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "leave provisioned fixtures in the store")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on unknown template names")

	return cmd
}

func runManifest(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	m, err := manifest.Load(path)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeManifest, err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids := opts.IDs
	if ids == nil {
		ids = sample.UUIDs
	}
	env, err := openEnvironment(ctx, opts.RootOptions, ids)
	if err != nil {
		return f.Report(err)
	}
	defer env.close(opts.Logger)

	runOpts := []harness.Option{
		harness.WithStore(env.store),
		harness.WithRegistries(env.registries...),
		harness.WithLogger(opts.Logger),
		harness.WithKeep(opts.Keep),
	}
	if opts.Strict {
		runOpts = append(runOpts, harness.WithStrictLookup())
	}

	opts.Logger.Info("running manifest", slog.String("name", m.Name), slog.String("path", path))
	result, err := harness.Run(ctx, m, runOpts...)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeProvision, err)
	}
	opts.Logger.Info("manifest finished",
		slog.String("name", m.Name),
		slog.Int("events", len(result.Events)),
		slog.Bool("pass", result.Pass))

	if !result.Pass {
		return f.Fail(ExitFailure, ErrCodeFailed, fmt.Errorf("%s: %d check(s) failed", m.Name, len(result.Errors)))
	}

	if f.isJSON() {
		return f.Success(result)
	}
	writeEvents(f.Writer, result)
	return nil
}

func writeEvents(w io.Writer, r *harness.Result) {
	for _, e := range r.Events {
		switch e.Type {
		case harness.EventProvision:
			fmt.Fprintf(w, "[%d] provision %s: %d requested, %d loaded\n", e.Seq, e.Template, e.Requested, e.Loaded)
		case harness.EventSkip:
			fmt.Fprintf(w, "[%d] skip %s: no such template\n", e.Seq, e.Template)
		case harness.EventRelease:
			fmt.Fprintf(w, "[%d] release %s: %d deleted\n", e.Seq, e.Template, len(e.IDs))
		}
	}
	if r.Kept {
		fmt.Fprintf(w, "✓ %s provisioned (%d fixture(s) kept)\n", r.Name, r.Remaining)
		return
	}
	fmt.Fprintf(w, "✓ %s provisioned and released\n", r.Name)
}
