package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datapreparer/internal/harness"
	"github.com/roach88/datapreparer/internal/manifest"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // manifest filter (glob pattern)
}

// ManifestResult holds the result of a single manifest run.
type ManifestResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// CheckResult holds the overall check result.
type CheckResult struct {
	Manifests []ManifestResult `json:"manifests"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <manifests-dir>",
		Short: "Run manifests against golden traces",
		Long: `Run every manifest in a directory against a fresh in-memory store with
the sample templates and deterministic ids, and compare each trace with
<manifests-dir>/golden/<file>.golden.

Manifests without a golden file pass when their trace checks hold.

Exit codes:
  0 - All manifests passed
  1 - One or more manifests failed
  2 - Command error (invalid paths, etc.)

Examples:
  datapreparer check ./fixtures
  datapreparer check ./fixtures --filter "checkout*"
  datapreparer check ./fixtures --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter manifests by glob pattern")

	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
	opts.ensure()
	f := opts.formatter(cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("manifests directory not found: %s", dir))
	}

	files, err := findManifests(dir, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}

	result := CheckResult{Manifests: make([]ManifestResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		r := checkManifest(opts, file, cmd)
		if !f.isJSON() {
			writeManifestResult(f, r)
		}
		result.Manifests = append(result.Manifests, r)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if f.isJSON() {
		return outputCheckJSON(f, result)
	}
	return outputCheckText(f, result)
}

func findManifests(dir, filter string) ([]string, error) {
	files, err := manifest.Find(dir)
	if err != nil || filter == "" {
		return files, err
	}
	var out []string
	for _, file := range files {
		match, err := filepath.Match(filter, filepath.Base(file))
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
		if match {
			out = append(out, file)
		}
	}
	return out, nil
}

// checkManifest runs a single manifest and compares its trace.
func checkManifest(opts *CheckOptions, file string, cmd *cobra.Command) ManifestResult {
	base := filepath.Base(file)
	fail := func(format string, args ...any) ManifestResult {
		return ManifestResult{Name: base, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	m, err := manifest.Load(file)
	if err != nil {
		return fail("failed to load manifest: %v", err)
	}

	result, err := harness.Run(cmd.Context(), m, harness.WithLogger(opts.Logger))
	if err != nil {
		return fail("execution failed: %v", err)
	}
	if !result.Pass {
		return ManifestResult{Name: base, Errors: result.Errors}
	}

	current, err := harness.MarshalSnapshot(result)
	if err != nil {
		return fail("failed to marshal trace: %v", err)
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := updateGoldenFile(goldenPath, current); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		return ManifestResult{Name: base, Pass: true}
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return ManifestResult{Name: base, Pass: true}
	}
	if err != nil {
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(golden, current) {
		return fail("trace does not match golden file (run with --update to regenerate)")
	}
	return ManifestResult{Name: base, Pass: true}
}

// goldenFilePath returns the path to the golden file for a manifest.
func goldenFilePath(file string) string {
	dir := filepath.Dir(file)
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func updateGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func writeManifestResult(f *OutputFormatter, r ManifestResult) {
	if r.Pass {
		fmt.Fprintf(f.Writer, "✓ %s\n", r.Name)
		return
	}
	fmt.Fprintf(f.Writer, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
}

func outputCheckJSON(f *OutputFormatter, result CheckResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeFailed,
			Message: fmt.Sprintf("%d manifest(s) failed", result.Failed),
		}
	}
	if err := f.encode(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d manifest(s) failed", result.Failed))
	}
	return nil
}

func outputCheckText(f *OutputFormatter, result CheckResult) error {
	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No manifests found.")
		return nil
	}

	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Check Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d manifest(s) failed", result.Failed))
	}
	fmt.Fprintln(f.Writer, "✓ All manifests passed")
	return nil
}
