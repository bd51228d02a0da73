package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/process"
)

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <entrypoint>",
		Short: "Run a script locally",
		Long: `Run a Deno Deploy script with the permissions it has on Deno Deploy.

The listen address is handed to the script in the LISTEN_ADDRESS
environment variable. Without --watch an abnormal exit of the script is
an error. With --watch the script is restarted whenever one of its local
dependencies changes, and a crash is reported until the next change.`,
		Example: `  deployctl run main.ts
  deployctl run --watch --addr=:3000 https://deno.land/x/deploy/examples/hello.js`,
		ValidArgsFunction: completeEntrypoint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	registerRunFlags(cmd, opts)

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *runOptions) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	applyRunDefaults(cmd, opts, s.defaults)

	popts := process.Options{
		NoCheck:       opts.noCheck,
		Inspect:       opts.inspect,
		Reload:        opts.reload,
		ListenAddress: opts.addr,
	}

	sup := s.supervisor(process.ModeRun, process.DenoRun(s.cfg.DenoPath), popts, nil)

	ctx := cmd.Context()

	if opts.watch {
		return s.watch(ctx, sup)
	}

	_, err = sup.RunOnce(ctx)

	return supervisionError(err)
}
