package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/config"
	"github.com/hupe1980/deployctl/internal/logging"
	"github.com/hupe1980/deployctl/internal/process"
	"github.com/hupe1980/deployctl/internal/upgrade"
	"github.com/hupe1980/deployctl/internal/version"
)

func newUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [version]",
		Short: "Upgrade deployctl to the given version (defaults to latest)",
		Long: `Upgrade deployctl to the given version (defaults to latest).

The release is installed from ` + upgrade.ModuleBase + ` with deno install.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return &ExitError{Code: 2, Err: errors.New("Too many positional arguments given.")} //nolint:staticcheck // user-facing message
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var requested string
			if len(args) == 1 {
				requested = args[0]
			}

			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := logging.FromContext(ctx)

			launcher := process.NewExecLauncher(upgrade.InstallCommand(cfg.DenoPath), logger)
			launcher.Stdout = cmd.OutOrStdout()
			launcher.Stderr = cmd.ErrOrStderr()

			u := &upgrade.Upgrader{
				Client:   upgrade.NewClient(),
				Launcher: launcher,
				Current:  version.Current(),
				Out:      cmd.OutOrStdout(),
				Logger:   logger,
			}

			if err := u.Run(ctx, requested); err != nil {
				if errors.Is(err, upgrade.ErrInvalidVersion) || errors.Is(err, upgrade.ErrUnknownVersion) {
					return &ExitError{Code: 2, Err: err}
				}

				return supervisionError(err)
			}

			return nil
		},
	}

	return cmd
}
