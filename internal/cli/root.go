// Package cli implements the cobra command tree for deployctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/config"
	"github.com/hupe1980/deployctl/internal/logging"
	"github.com/hupe1980/deployctl/internal/ui"
)

// ExitError wraps an error with a specific process exit code. A nil Err
// exits silently, e.g. when mirroring the exit code of a check.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it until it finishes or the process
// is interrupted, and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()

	return exitCode(cmd.ExecuteContext(ctx), os.Stderr)
}

// exitCode reports err on w and maps it to a process exit code.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			printError(w, exitErr.Err)
		}

		return exitErr.Code
	}

	printError(w, err)

	return 1
}

func printError(w io.Writer, err error) {
	styles := ui.New(!noColorFromEnv())
	fmt.Fprintf(w, "%s %s\n", styles.Error("error:"), err)
}

func noColorFromEnv() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok || os.Getenv("DEPLOYCTL_NO_COLOR") == "true"
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "deployctl",
		Short: "Develop Deno Deploy scripts locally",
		Long: `deployctl checks and runs Deno Deploy scripts on your machine.

Both "check" and "run" accept --watch: deployctl then follows every local
module the entrypoint imports and restarts the check or the script as soon
as one of them changes. New imports are picked up on the next change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ctx = config.NewContext(ctx, cfg)
			ctx = config.NewContextWithConfigFile(ctx, cfg.ConfigFile)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("denoPath", cfg.DenoPath),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .deployctl.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.String("deno-path", config.DefaultDenoPath, "deno executable used to analyze, check and run scripts")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newCheckCommand(),
		newRunCommand(),
		newDepsCommand(),
		newUpgradeCommand(),
		newVersionCommand(),
		newCompletionCommand(),
	)

	return cmd
}
