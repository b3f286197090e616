package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// TemplatesResult lists the catalog.
type TemplatesResult struct {
	Templates  []string `json:"templates"`
	Duplicates []string `json:"duplicates,omitempty"`
}

func (r TemplatesResult) String() string {
	var b strings.Builder
	if len(r.Templates) == 0 {
		b.WriteString("No templates found.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d template(s):", len(r.Templates))
	for _, name := range r.Templates {
		fmt.Fprintf(&b, "\n  %s", name)
	}
	for _, name := range r.Duplicates {
		fmt.Fprintf(&b, "\nwarning: %s is shadowed by an earlier template", name)
	}
	return b.String()
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the templates in the catalog",
		Long: `List every template discovered under the configured registry namespace,
in catalog order. Names shadowed by an earlier template are reported.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplates(rootOpts, cmd)
		},
	}
}

func runTemplates(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	env, err := openEnvironment(cmd.Context(), opts, nil)
	if err != nil {
		return f.Report(err)
	}
	defer env.close(opts.Logger)

	return f.Success(TemplatesResult{
		Templates:  env.catalog.Names(),
		Duplicates: env.catalog.Duplicates(),
	})
}
