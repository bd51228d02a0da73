package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"time"

	sigsyaml "sigs.k8s.io/yaml"
)

// CommandDefaults holds per-command flag defaults loaded from the config
// file (.deployctl.yaml). Flags given on the command line always win.
type CommandDefaults struct {
	Check CheckDefaults `json:"check,omitempty"`
	Run   RunDefaults   `json:"run,omitempty"`
	Watch WatchDefaults `json:"watch,omitempty"`
}

// CheckDefaults are defaults for "deployctl check".
type CheckDefaults struct {
	// Libs lists the type libraries to load (ns, window, fetchevent).
	Libs []string `json:"libs,omitempty"`

	// Reload rebuilds the source cache on every pass.
	Reload bool `json:"reload,omitempty"`
}

// RunDefaults are defaults for "deployctl run".
type RunDefaults struct {
	// Addr is the listen address handed to the script.
	Addr string `json:"addr,omitempty"`

	Inspect bool `json:"inspect,omitempty"`
	NoCheck bool `json:"noCheck,omitempty"`
	Reload  bool `json:"reload,omitempty"`
}

// WatchDefaults tune watch mode.
type WatchDefaults struct {
	// Debounce is the quiet period before a restart, e.g. "250ms".
	Debounce string `json:"debounce,omitempty"`
}

// knownLibs are the accepted entries of check.libs.
var knownLibs = []string{"ns", "window", "fetchevent"}

// ParseCommandDefaults parses the check, run and watch sections from raw
// config file bytes. Other keys are ignored.
func ParseCommandDefaults(data []byte) (*CommandDefaults, error) {
	var cd CommandDefaults
	if err := sigsyaml.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("parsing command defaults: %w", err)
	}

	if err := cd.Validate(); err != nil {
		return nil, err
	}

	return &cd, nil
}

// LoadCommandDefaults reads the command defaults from path. An empty path
// yields empty defaults.
func LoadCommandDefaults(path string) (*CommandDefaults, error) {
	if path == "" {
		return &CommandDefaults{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is the resolved config file
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return ParseCommandDefaults(data)
}

// Validate checks the command defaults for correctness.
func (c *CommandDefaults) Validate() error {
	for i, lib := range c.Check.Libs {
		if !slices.Contains(knownLibs, lib) {
			return fmt.Errorf("check.libs[%d]: unknown library %q (must be one of ns, window, fetchevent)", i, lib)
		}
	}

	if c.Run.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Run.Addr); err != nil {
			return fmt.Errorf("run.addr: invalid listen address %q: %w", c.Run.Addr, err)
		}
	}

	if c.Watch.Debounce != "" {
		d, err := time.ParseDuration(c.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watch.debounce: %w", err)
		}

		if d <= 0 {
			return fmt.Errorf("watch.debounce: must be positive, got %s", d)
		}
	}

	return nil
}

// DebounceInterval returns the configured debounce, or zero when unset.
func (c *CommandDefaults) DebounceInterval() time.Duration {
	if c.Watch.Debounce == "" {
		return 0
	}

	// Validated on load.
	d, _ := time.ParseDuration(c.Watch.Debounce)

	return d
}

// IsEmpty returns true if the config file sets no command defaults.
func (c *CommandDefaults) IsEmpty() bool {
	return len(c.Check.Libs) == 0 && !c.Check.Reload &&
		c.Run == (RunDefaults{}) &&
		c.Watch == (WatchDefaults{})
}
