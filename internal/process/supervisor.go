package process

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Mode selects how a supervised process is treated when it exits.
type Mode int

const (
	// ModeCheck runs a verification pass to completion on every start.
	ModeCheck Mode = iota
	// ModeRun keeps a long-lived process alive between restarts.
	ModeRun
)

func (m Mode) String() string {
	if m == ModeRun {
		return "run"
	}

	return "check"
}

// State is the lifecycle state of a Supervisor.
type State int

// Supervisor states.
const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateTerminating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultKillTimeout bounds how long a terminated process may take to exit.
const DefaultKillTimeout = 5 * time.Second

// Config configures a Supervisor.
type Config struct {
	Launcher   Launcher
	Entrypoint *url.URL
	Options    Options
	Mode       Mode

	// OnExit, when set, is called with the status of every process that
	// exited on its own. Terminated processes are not reported.
	OnExit func(ExitStatus)

	// KillTimeout defaults to DefaultKillTimeout.
	KillTimeout time.Duration

	Logger *slog.Logger
}

// Supervisor owns at most one live process for one entrypoint.
type Supervisor struct {
	cfg Config

	mu     sync.Mutex
	state  State
	handle Handle
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = DefaultKillTimeout
	}

	return &Supervisor{cfg: cfg}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Start spawns the process. In check mode it also waits for the pass to
// finish and returns to idle; in run mode it returns once the process is
// running. A failure to spawn is returned as *SpawnError.
func (s *Supervisor) Start(ctx context.Context) error {
	h, err := s.spawn(ctx)
	if err != nil {
		return err
	}

	if s.cfg.Mode == ModeCheck {
		_, err := s.await(ctx, h)
		return err
	}

	return nil
}

// Restart terminates the live process, waits for it to exit, and starts a
// new one.
func (s *Supervisor) Restart(ctx context.Context) error {
	if err := s.terminate(); err != nil {
		return err
	}

	return s.Start(ctx)
}

// RunOnce starts the process, waits for it to exit, and stops the
// supervisor. In run mode a non-success exit is returned as
// *AbnormalExitError.
func (s *Supervisor) RunOnce(ctx context.Context) (ExitStatus, error) {
	defer s.stop()

	h, err := s.spawn(ctx)
	if err != nil {
		return ExitStatus{}, err
	}

	status, err := s.await(ctx, h)
	if err != nil {
		return status, err
	}

	if s.cfg.Mode == ModeRun && !status.Success {
		return status, &AbnormalExitError{Status: status}
	}

	return status, nil
}

// Exited returns a channel closed when the live process exits, or nil when
// no process is live.
func (s *Supervisor) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil
	}

	return s.handle.Done()
}

// Reap collects a process that exited on its own and returns the supervisor
// to idle. It reports false when there is nothing to collect.
func (s *Supervisor) Reap() (ExitStatus, bool) {
	s.mu.Lock()

	h := s.handle
	if h == nil {
		s.mu.Unlock()
		return ExitStatus{}, false
	}

	select {
	case <-h.Done():
	default:
		s.mu.Unlock()
		return ExitStatus{}, false
	}

	s.handle = nil
	if s.state != StateStopped {
		s.state = StateIdle
	}
	s.mu.Unlock()

	status := h.Status()
	s.cfg.Logger.Debug("process exited",
		slog.Int("pid", h.Pid()),
		slog.Int("code", status.Code),
	)

	if s.cfg.OnExit != nil {
		s.cfg.OnExit(status)
	}

	return status, true
}

// Shutdown terminates the live process, if any, and stops the supervisor.
// It is safe to call more than once.
func (s *Supervisor) Shutdown() error {
	err := s.terminate()
	s.stop()

	return err
}

func (s *Supervisor) stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}

func (s *Supervisor) spawn(ctx context.Context) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return nil, ErrStopped
	}

	if s.handle != nil {
		return nil, ErrAlreadyRunning
	}

	s.state = StateStarting

	h, err := s.cfg.Launcher.Spawn(ctx, s.cfg.Entrypoint, s.cfg.Options)
	if err != nil {
		s.state = StateIdle
		return nil, &SpawnError{Entrypoint: s.cfg.Entrypoint.String(), Err: err}
	}

	s.handle = h
	s.state = StateRunning

	s.cfg.Logger.Debug("process running",
		slog.String("mode", s.cfg.Mode.String()),
		slog.Int("pid", h.Pid()),
	)

	return h, nil
}

// await blocks until h exits. If ctx ends first the process is terminated.
func (s *Supervisor) await(ctx context.Context, h Handle) (ExitStatus, error) {
	select {
	case <-h.Done():
		if status, ok := s.Reap(); ok {
			return status, nil
		}

		return h.Status(), nil
	case <-ctx.Done():
		if err := s.terminate(); err != nil {
			return ExitStatus{}, err
		}

		return ExitStatus{}, ctx.Err()
	}
}

// terminate stops the live process and waits for it to exit.
func (s *Supervisor) terminate() error {
	s.mu.Lock()

	h := s.handle
	if h == nil {
		s.mu.Unlock()
		return nil
	}

	s.state = StateTerminating
	s.mu.Unlock()

	if err := h.Terminate(); err != nil {
		s.cfg.Logger.Warn("terminating process failed",
			slog.Int("pid", h.Pid()),
			slog.String("error", err.Error()),
		)
	}

	timer := time.NewTimer(s.cfg.KillTimeout)
	defer timer.Stop()

	select {
	case <-h.Done():
	case <-timer.C:
		return fmt.Errorf("process %d did not exit within %s", h.Pid(), s.cfg.KillTimeout)
	}

	s.mu.Lock()
	s.handle = nil
	if s.state != StateStopped {
		s.state = StateIdle
	}
	s.mu.Unlock()

	return nil
}
