package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	gproc "github.com/shirou/gopsutil/v3/process"
)

// Command is a fully resolved external command line.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// BuildFunc turns an entrypoint and options into the command to execute.
type BuildFunc func(entrypoint *url.URL, opts Options) (Command, error)

// ExecLauncher spawns operating system processes. Their output is passed
// through to Stdout and Stderr unfiltered.
type ExecLauncher struct {
	Build  BuildFunc
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// NewExecLauncher returns a launcher writing to the process's own stdio.
func NewExecLauncher(build BuildFunc, logger *slog.Logger) *ExecLauncher {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecLauncher{
		Build:  build,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Spawn implements Launcher.
func (l *ExecLauncher) Spawn(ctx context.Context, entrypoint *url.URL, opts Options) (Handle, error) {
	c, err := l.Build(entrypoint, opts)
	if err != nil {
		return nil, fmt.Errorf("building command: %w", err)
	}

	h := &execHandle{done: make(chan struct{})}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.Cancel = h.Terminate
	cmd.WaitDelay = 5 * time.Second
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	l.Logger.Debug("process started",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("path", c.Path),
		slog.Any("args", c.Args),
	)

	go h.wait()

	return h, nil
}

type execHandle struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	status ExitStatus
}

func (h *execHandle) Pid() int { return h.cmd.Process.Pid }

func (h *execHandle) Done() <-chan struct{} { return h.done }

func (h *execHandle) Status() ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.status
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()

	status := ExitStatus{Code: 0, Success: true}

	if err != nil {
		status = ExitStatus{Code: 1}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			status.Code = exitErr.ExitCode()
		}
	}

	h.mu.Lock()
	h.status = status
	h.mu.Unlock()

	close(h.done)
}

// Terminate kills the process and every descendant it spawned.
func (h *execHandle) Terminate() error {
	select {
	case <-h.done:
		return nil
	default:
	}

	pid := h.cmd.Process.Pid

	if p, err := gproc.NewProcess(int32(pid)); err == nil { //nolint:gosec
		killDescendants(p)
	}

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing process %d: %w", pid, err)
	}

	return nil
}

// killDescendants kills the children of p depth first, so that no grandchild
// is re-parented to init and left running.
func killDescendants(p *gproc.Process) {
	children, err := p.Children()
	if err != nil {
		return
	}

	for _, c := range children {
		killDescendants(c)
		_ = c.Kill()
	}
}
