package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput bool
		short      bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Display the version, git commit, build date, Go version, and platform.

"deployctl upgrade" compares against the version printed by --short.`,
		Args: cobra.NoArgs,
		// Override parent PersistentPreRunE; version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			info := version.GetInfo()

			switch {
			case short:
				_, err := fmt.Fprintln(w, version.Current())
				return err
			case jsonOutput:
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(w, j)

				return err
			}

			_, err := fmt.Fprintln(w, info.String())

			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	f.BoolVar(&short, "short", false, "print only the release version")
	cmd.MarkFlagsMutuallyExclusive("json", "short")

	return cmd
}
