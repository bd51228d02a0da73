package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deployctl/internal/config"
	"github.com/hupe1980/deployctl/internal/deps"
	"github.com/hupe1980/deployctl/internal/entrypoint"
	"github.com/hupe1980/deployctl/internal/logging"
	"github.com/hupe1980/deployctl/internal/process"
	"github.com/hupe1980/deployctl/internal/ui"
	"github.com/hupe1980/deployctl/internal/watch"
)

// session carries what check and run share while supervising one
// entrypoint.
type session struct {
	entrypoint *url.URL
	cfg        *config.Config
	logger     *slog.Logger
	styles     *ui.Styles
	defaults   *config.CommandDefaults
	stdout     io.Writer
	stderr     io.Writer
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	u, err := resolveEntrypoint(args)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()

	cd, err := commandDefaults(ctx)
	if err != nil {
		return nil, err
	}

	cfg := config.FromContext(ctx)

	return &session{
		entrypoint: u,
		cfg:        cfg,
		logger:     logging.WithEntrypoint(logging.FromContext(ctx), cmd.Name(), u),
		styles:     ui.New(!cfg.NoColor),
		defaults:   cd,
		stdout:     cmd.OutOrStdout(),
		stderr:     cmd.ErrOrStderr(),
	}, nil
}

// launcher wires a deno command builder to the command's output streams.
func (s *session) launcher(build process.BuildFunc) *process.ExecLauncher {
	l := process.NewExecLauncher(build, s.logger)
	l.Stdout = s.stdout
	l.Stderr = s.stderr

	return l
}

func (s *session) supervisor(mode process.Mode, build process.BuildFunc, opts process.Options, onExit func(process.ExitStatus)) *process.Supervisor {
	return process.NewSupervisor(process.Config{
		Launcher:   s.launcher(build),
		Entrypoint: s.entrypoint,
		Options:    opts,
		Mode:       mode,
		OnExit:     onExit,
		Logger:     s.logger,
	})
}

// watch supervises sup until ctx is cancelled, restarting it whenever a
// local dependency of the entrypoint changes.
func (s *session) watch(ctx context.Context, sup *process.Supervisor) error {
	if !entrypoint.IsLocal(s.entrypoint) {
		s.logger.WarnContext(ctx, "remote entrypoint, only local dependencies are watched")
	}

	tracker := deps.NewTracker(deps.NewDenoAnalyzer(s.cfg.DenoPath), s.entrypoint, s.logger)

	loop := watch.NewLoop(tracker, watch.NewFSWatcher(), sup, watch.Options{
		Debounce:  s.defaults.DebounceInterval(),
		Highlight: s.styles.Warn,
		Logger:    s.logger,
		Out:       s.stderr,
	})

	return supervisionError(loop.Run(ctx))
}

// supervisionError maps errors of a supervised command to exit code 1. An
// interrupt is a regular way to end supervision.
func supervisionError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	return &ExitError{Code: 1, Err: err}
}
