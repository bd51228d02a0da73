package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/deployctl/internal/deps"
	"github.com/hupe1980/deployctl/internal/process"
)

// errStreamClosed is wrapped in a WatcherError when a subscription stops
// delivering events without being released.
var errStreamClosed = errors.New("event stream closed")

// Tracker supplies the dependency set of the entrypoint.
type Tracker interface {
	Refresh(ctx context.Context) (bool, error)
	Current() deps.Set
}

// Target is the supervised process the loop keeps fresh.
type Target interface {
	Start(ctx context.Context) error
	Restart(ctx context.Context) error
	Exited() <-chan struct{}
	Reap() (process.ExitStatus, bool)
	Shutdown() error
}

// Options configures the watch behaviour.
type Options struct {
	// Debounce is the quiet period before triggering a restart.
	Debounce time.Duration

	// Highlight styles the user-facing restart line.
	Highlight func(string) string

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce:  DefaultDebounce,
		Highlight: func(s string) string { return s },
		Logger:    slog.Default(),
		Out:       os.Stderr,
	}
}

// Loop restarts a Target whenever a file of the entrypoint's dependency set
// changes, and follows the dependency set as it evolves.
type Loop struct {
	tracker Tracker
	watcher Watcher
	target  Target
	opts    Options
}

// NewLoop wires a loop from its three collaborators.
func NewLoop(tracker Tracker, watcher Watcher, target Target, opts Options) *Loop {
	def := DefaultOptions()

	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}

	if opts.Highlight == nil {
		opts.Highlight = def.Highlight
	}

	if opts.Logger == nil {
		opts.Logger = def.Logger
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	return &Loop{
		tracker: tracker,
		watcher: watcher,
		target:  target,
		opts:    opts,
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs. The first
// dependency analysis and any failure to subscribe to file changes are
// fatal; failed re-analyses and failed restarts are not.
//
// On return the debounce timer is stopped, the subscription is released and
// the supervised process is terminated.
func (l *Loop) Run(ctx context.Context) error {
	if _, err := l.tracker.Refresh(ctx); err != nil {
		return err
	}

	// The first pass happens before subscribing and is not itself watched.
	if err := l.target.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return l.shutdown()
		}

		l.reportStartFailure(ctx, err)
	}

	stream := NewStream(l.watcher)
	if err := stream.Bind(l.tracker.Current()); err != nil {
		_ = l.shutdown()
		return err
	}

	l.opts.Logger.DebugContext(ctx, "watching dependencies",
		slog.Int("files", stream.Paths().Len()),
		slog.Duration("debounce", l.opts.Debounce),
	)

	fired := make(chan string, 1)
	done := make(chan struct{})

	debouncer := NewDebouncer(l.opts.Debounce, func(path string) {
		select {
		case fired <- path:
		case <-done:
		}
	})

	defer func() {
		close(done)
		debouncer.Stop()

		if err := stream.Close(); err != nil {
			l.opts.Logger.Warn("releasing watcher failed", slog.String("error", err.Error()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.opts.Logger.DebugContext(ctx, "shutting down watcher")
			return l.shutdown()

		case ev, ok := <-stream.Events():
			if !ok {
				_ = l.shutdown()
				return &WatcherError{Err: errStreamClosed}
			}

			debouncer.Trigger(ev.Path)

		case watchErr, ok := <-stream.Errors():
			if !ok {
				_ = l.shutdown()
				return &WatcherError{Err: errStreamClosed}
			}

			l.opts.Logger.ErrorContext(ctx, "watcher error", slog.String("error", watchErr.Error()))

		case <-l.target.Exited():
			l.reap(ctx)

		case path := <-fired:
			if err := l.restart(ctx, stream, debouncer, path); err != nil {
				_ = l.shutdown()
				return err
			}
		}
	}
}

// restart handles one settled burst of changes: restart the target, then
// re-analyze and rebind if the dependency set moved. The triggering path is
// valid even if the refresh drops it from the set.
func (l *Loop) restart(ctx context.Context, stream *Stream, debouncer *Debouncer, path string) error {
	fmt.Fprintln(l.opts.Out, l.opts.Highlight(fmt.Sprintf("%s changed. Restarting...", path)))

	if err := l.target.Restart(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		l.reportStartFailure(ctx, err)
	}

	changed, err := l.tracker.Refresh(ctx)
	if err != nil {
		l.keepPreviousDependencies(ctx, err)
		return nil
	}

	if !changed {
		return nil
	}

	carried, err := stream.Rebind(l.tracker.Current())
	if err != nil {
		return err
	}

	l.opts.Logger.DebugContext(ctx, "rebound watcher",
		slog.Int("files", stream.Paths().Len()),
		slog.Int("carried", len(carried)),
	)

	for _, ev := range carried {
		debouncer.Trigger(ev.Path)
	}

	return nil
}

// keepPreviousDependencies is the recovery path for a failed re-analysis,
// typically a module that does not parse mid-edit. The current subscription
// stays as it is; the next save triggers another attempt.
func (l *Loop) keepPreviousDependencies(ctx context.Context, err error) {
	l.opts.Logger.DebugContext(ctx, "dependency analysis failed, keeping previous set",
		slog.Int("files", l.tracker.Current().Len()),
		slog.String("error", err.Error()),
	)
}

func (l *Loop) reportStartFailure(ctx context.Context, err error) {
	var spawnErr *process.SpawnError
	if errors.As(err, &spawnErr) {
		l.opts.Logger.ErrorContext(ctx, "process failed to start, waiting for changes",
			slog.String("error", spawnErr.Err.Error()),
		)

		return
	}

	l.opts.Logger.ErrorContext(ctx, "restart failed", slog.String("error", err.Error()))
}

// reap collects a process that exited between restarts. In watch mode a
// crash is expected during development and only logged.
func (l *Loop) reap(ctx context.Context) {
	status, ok := l.target.Reap()
	if !ok {
		return
	}

	if status.Success {
		l.opts.Logger.InfoContext(ctx, "process exited, waiting for changes")
		return
	}

	l.opts.Logger.WarnContext(ctx, "process exited, waiting for changes",
		slog.Int("code", status.Code),
	)
}

func (l *Loop) shutdown() error {
	if err := l.target.Shutdown(); err != nil {
		l.opts.Logger.Warn("stopping process failed", slog.String("error", err.Error()))
		return err
	}

	return nil
}
