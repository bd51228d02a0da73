package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/process"
)

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <entrypoint>",
		Short: "Type check a script",
		Long: `Type check a Deno Deploy script and its dependencies.

The entrypoint is a path relative to the working directory or an
http(s) URL. Without --watch the exit code of the check is returned.
With --watch the script is checked again whenever one of its local
dependencies changes.`,
		Example: `  deployctl check main.ts
  deployctl check --libs=ns,fetchevent --watch main.ts`,
		ValidArgsFunction: completeEntrypoint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	registerCheckFlags(cmd, opts)

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	applyCheckDefaults(cmd, opts, s.defaults)

	popts := process.Options{
		Libs:   process.ParseLibs(opts.libs),
		Reload: opts.reload,
	}

	onExit := func(status process.ExitStatus) {
		if status.Success {
			fmt.Fprintln(s.stdout, s.styles.OK("OK"))
		}
	}

	sup := s.supervisor(process.ModeCheck, process.DenoCheck(s.cfg.DenoPath, ""), popts, onExit)

	ctx := cmd.Context()

	if opts.watch {
		return s.watch(ctx, sup)
	}

	status, err := sup.RunOnce(ctx)
	if err != nil {
		return supervisionError(err)
	}

	if !status.Success {
		code := status.Code
		if code <= 0 {
			code = 1
		}

		return &ExitError{Code: code}
	}

	return nil
}
