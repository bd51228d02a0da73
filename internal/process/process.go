// Package process owns the lifecycle of the external check or run process
// supervised by deployctl: spawning it, observing its exit and terminating
// it before a restart.
package process

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrStopped is returned when a stopped supervisor is asked to start again.
var ErrStopped = errors.New("supervisor stopped")

// ErrAlreadyRunning is returned by Start while a process is still alive.
var ErrAlreadyRunning = errors.New("process already running")

// ExitStatus describes how a process ended.
type ExitStatus struct {
	Code    int
	Success bool
}

// Handle is one running external process.
type Handle interface {
	// Pid returns the operating system process id.
	Pid() int
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Status returns the exit status. Only meaningful after Done is closed.
	Status() ExitStatus
	// Terminate requests the process (and its descendants) to stop. It does
	// not wait; use Done for that.
	Terminate() error
}

// Launcher starts external processes for an entrypoint.
type Launcher interface {
	Spawn(ctx context.Context, entrypoint *url.URL, opts Options) (Handle, error)
}

// Libs selects the type libraries loaded when checking an entrypoint.
type Libs struct {
	NS         bool
	Window     bool
	FetchEvent bool
}

// DefaultLibs is the value of the --libs flag when it is not given.
const DefaultLibs = "ns,window,fetchevent"

// ParseLibs parses a comma separated list such as "ns,window".
func ParseLibs(raw string) Libs {
	var libs Libs

	for _, l := range strings.Split(raw, ",") {
		switch strings.TrimSpace(l) {
		case "ns":
			libs.NS = true
		case "window":
			libs.Window = true
		case "fetchevent":
			libs.FetchEvent = true
		}
	}

	return libs
}

// Options is passed unchanged to every (re)start of the process.
type Options struct {
	// Libs is used by check mode.
	Libs Libs
	// NoCheck skips type checking in run mode.
	NoCheck bool
	// Inspect activates the inspector on 127.0.0.1:9229 in run mode.
	Inspect bool
	// Reload forces the source cache to be rebuilt.
	Reload bool
	// ListenAddress is handed to the script in run mode.
	ListenAddress string
}

// SpawnError reports that the external process could not be started.
type SpawnError struct {
	Entrypoint string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting process for %s: %v", e.Entrypoint, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// AbnormalExitError reports a non-success exit of a supervised process.
type AbnormalExitError struct {
	Status ExitStatus
}

func (e *AbnormalExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Status.Code)
}
