package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datapreparer/internal/catalog"
	"github.com/roach88/datapreparer/internal/manifest"
)

// ManifestReport is the validation outcome of one manifest file.
type ManifestReport struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`

	// Unknown lists template names missing from the catalog. They are
	// skipped at provisioning time, so they do not make a manifest invalid.
	Unknown []string `json:"unknown,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Manifests []ManifestReport `json:"manifests"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for i, m := range r.Manifests {
		if i > 0 {
			b.WriteByte('\n')
		}
		if !m.Valid {
			fmt.Fprintf(&b, "✗ %s\n  %s", m.Path, m.Error)
			continue
		}
		fmt.Fprintf(&b, "✓ %s (%s)", m.Path, m.Name)
		for _, name := range m.Unknown {
			fmt.Fprintf(&b, "\n  warning: no template named %q; it will be skipped", name)
		}
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Validate fixture manifests without provisioning",
		Long: `Validate YAML or CUE fixture manifests without touching the store.

Checks syntax, schema and request rules, and warns about template names
the catalog does not know.

Exit codes:
  0 - All manifests valid
  1 - One or more manifests invalid
  2 - Command error (bad config, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	env, err := openEnvironment(cmd.Context(), opts, nil)
	if err != nil {
		return f.Report(err)
	}
	defer env.close(opts.Logger)

	result := ValidationResult{Valid: true, Manifests: make([]ManifestReport, 0, len(paths))}
	for _, path := range paths {
		f.VerboseLog("validating %s", path)
		report := validateManifest(path, env.catalog)
		if !report.Valid {
			result.Valid = false
		}
		result.Manifests = append(result.Manifests, report)
	}

	if !result.Valid {
		if f.isJSON() {
			if err := f.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeManifest, Message: "one or more manifests are invalid"},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(f.Writer, result)
		}
		return NewExitError(ExitFailure, "one or more manifests are invalid")
	}
	return f.Success(result)
}

func validateManifest(path string, cat *catalog.Catalog) ManifestReport {
	report := ManifestReport{Path: path}

	m, err := manifest.Load(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Name = m.Name
	report.Valid = true

	seen := make(map[string]bool)
	for _, item := range m.Fixtures {
		if seen[item.Template] {
			continue
		}
		seen[item.Template] = true
		if _, ok, _ := cat.Lookup(item.Template); !ok {
			report.Unknown = append(report.Unknown, item.Template)
		}
	}
	return report
}
