package cli

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/config"
	"github.com/hupe1980/deployctl/internal/entrypoint"
	"github.com/hupe1980/deployctl/internal/process"
)

// superviseOptions are shared by check and run.
type superviseOptions struct {
	reload bool
	watch  bool
}

type checkOptions struct {
	superviseOptions

	libs string
}

type runOptions struct {
	superviseOptions

	inspect bool
	noCheck bool
	addr    string
}

// DefaultListenAddress is the value of run --addr when it is not given.
const DefaultListenAddress = ":8080"

// registerSuperviseFlags adds the flags shared by check and run.
func registerSuperviseFlags(cmd *cobra.Command, opts *superviseOptions) {
	f := cmd.Flags()
	f.BoolVarP(&opts.reload, "reload", "r", false, "reload source code cache (recompile TypeScript)")
	f.BoolVar(&opts.watch, "watch", false, "watch the entrypoint's local dependencies and restart on change")
}

// registerCheckFlags adds the check specific flags.
func registerCheckFlags(cmd *cobra.Command, opts *checkOptions) {
	registerSuperviseFlags(cmd, &opts.superviseOptions)
	cmd.Flags().StringVar(&opts.libs, "libs", process.DefaultLibs, "type libraries to load: ns, window, fetchevent")
}

// registerRunFlags adds the run specific flags.
func registerRunFlags(cmd *cobra.Command, opts *runOptions) {
	registerSuperviseFlags(cmd, &opts.superviseOptions)

	f := cmd.Flags()
	f.BoolVar(&opts.inspect, "inspect", false, "activate the inspector on "+process.InspectAddress)
	f.BoolVar(&opts.noCheck, "no-check", false, "skip type checking modules")
	f.StringVar(&opts.addr, "addr", DefaultListenAddress, "address the script listens on")
}

// applyCheckDefaults fills flags that were not given on the command line
// from the config file.
func applyCheckDefaults(cmd *cobra.Command, opts *checkOptions, cd *config.CommandDefaults) {
	f := cmd.Flags()

	if !f.Changed("libs") && len(cd.Check.Libs) > 0 {
		opts.libs = strings.Join(cd.Check.Libs, ",")
	}

	if !f.Changed("reload") && cd.Check.Reload {
		opts.reload = true
	}
}

// applyRunDefaults fills flags that were not given on the command line from
// the config file.
func applyRunDefaults(cmd *cobra.Command, opts *runOptions, cd *config.CommandDefaults) {
	f := cmd.Flags()

	if !f.Changed("addr") && cd.Run.Addr != "" {
		opts.addr = cd.Run.Addr
	}

	if !f.Changed("inspect") && cd.Run.Inspect {
		opts.inspect = true
	}

	if !f.Changed("no-check") && cd.Run.NoCheck {
		opts.noCheck = true
	}

	if !f.Changed("reload") && cd.Run.Reload {
		opts.reload = true
	}
}

// commandDefaults loads the per-command defaults from the config file in
// use. Errors exit with code 2 like any other configuration error.
func commandDefaults(ctx context.Context) (*config.CommandDefaults, error) {
	cd, err := config.LoadCommandDefaults(config.ConfigFileFromContext(ctx))
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}

	return cd, nil
}

// resolveEntrypoint maps argument errors to exit code 2 and unreadable
// entrypoints to exit code 1.
func resolveEntrypoint(args []string) (*url.URL, error) {
	u, err := entrypoint.FromArgs(args)
	if err != nil {
		if errors.Is(err, entrypoint.ErrMissing) || errors.Is(err, entrypoint.ErrTooMany) {
			return nil, &ExitError{Code: 2, Err: err}
		}

		return nil, &ExitError{Code: 1, Err: err}
	}

	return u, nil
}
