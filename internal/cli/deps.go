package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/deployctl/internal/config"
	"github.com/hupe1980/deployctl/internal/deps"
	"github.com/hupe1980/deployctl/internal/logging"
)

// Output formats of the deps command.
const (
	depsFormatTable = "table"
	depsFormatPlain = "plain"
	depsFormatJSON  = "json"
	depsFormatYAML  = "yaml"
)

type depsOptions struct {
	format string
	plain  bool
}

// depsReport is the machine readable form of a dependency set.
type depsReport struct {
	Entrypoint string   `json:"entrypoint" yaml:"entrypoint"`
	Files      []string `json:"files" yaml:"files"`
}

func newDepsCommand() *cobra.Command {
	opts := &depsOptions{}

	cmd := &cobra.Command{
		Use:   "deps <entrypoint>",
		Short: "List the local files a script depends on",
		Long: `List the local files an entrypoint depends on. These are the files
"check --watch" and "run --watch" restart on.`,
		ValidArgsFunction: completeEntrypoint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "output", "o", depsFormatTable, "output format: table, plain, json, yaml")
	f.BoolVar(&opts.plain, "plain", false, "print one path per line (same as --output plain)")

	return cmd
}

func runDeps(cmd *cobra.Command, args []string, opts *depsOptions) error {
	u, err := resolveEntrypoint(args)
	if err != nil {
		return err
	}

	format := opts.format
	if opts.plain {
		format = depsFormatPlain
	}

	switch format {
	case depsFormatTable, depsFormatPlain, depsFormatJSON, depsFormatYAML:
	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("invalid output format %q: must be one of table, plain, json, yaml", format)}
	}

	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.WithEntrypoint(logging.FromContext(ctx), cmd.Name(), u)

	tracker := deps.NewTracker(deps.NewDenoAnalyzer(cfg.DenoPath), u, logger)
	if _, err := tracker.Refresh(ctx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	report := depsReport{Entrypoint: u.String(), Files: tracker.Current().Sorted()}
	if report.Files == nil {
		report.Files = []string{}
	}

	w := cmd.OutOrStdout()

	switch format {
	case depsFormatPlain:
		for _, p := range report.Files {
			fmt.Fprintln(w, p)
		}

		return nil
	case depsFormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling dependencies: %w", err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case depsFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("marshaling dependencies: %w", err)
		}

		return enc.Close()
	default:
		return renderDepsTable(w, report.Files)
	}
}

func renderDepsTable(w io.Writer, files []string) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No local dependencies")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "File", "Size")

	for i, p := range files {
		size := "-"
		if fi, err := os.Stat(p); err == nil {
			size = strconv.FormatInt(fi.Size(), 10)
		}

		if err := table.Append(strconv.Itoa(i+1), p, size); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nTotal files: %d\n", len(files))

	return err
}
