// Package upgrade replaces the installed deployctl with another release.
//
// The list of releases is published as JSON on the Deno CDN. Installation
// delegates to "deno install", supervised like any other deno process.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/deployctl/internal/process"
)

// DefaultVersionsURL lists the published releases.
const DefaultVersionsURL = "https://cdn.deno.land/deploy/meta/versions.json"

// ModuleBase is the registry location of deployctl releases.
const ModuleBase = "https://deno.land/x/deploy"

var (
	// ErrInvalidVersion is returned for a requested version that is not semver.
	ErrInvalidVersion = errors.New("The provided version is invalid.") //nolint:staticcheck // user-facing message

	// ErrUnknownVersion is returned for a requested version that was never released.
	ErrUnknownVersion = errors.New("The provided version is not found.") //nolint:staticcheck // user-facing message

	errUnavailable = errors.New("couldn't fetch the latest version - try again after sometime")
)

// Versions is the release index.
type Versions struct {
	Latest   string   `json:"latest"`
	Versions []string `json:"versions"`
}

// Client fetches the release index.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a client for DefaultVersionsURL.
func NewClient() *Client {
	return &Client{
		URL:  DefaultVersionsURL,
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the release index.
func (c *Client) Fetch(ctx context.Context) (Versions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Versions{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Versions{}, fmt.Errorf("%w: %w", errUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Versions{}, fmt.Errorf("%w (status %d)", errUnavailable, resp.StatusCode)
	}

	var v Versions
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Versions{}, fmt.Errorf("decoding release index: %w", err)
	}

	return v, nil
}

// Plan is the outcome of comparing the running version with the index.
type Plan struct {
	// Target is the version to install; empty when UpToDate.
	Target string
	// UpToDate is set when no version was requested and the running one is
	// not older than the latest release.
	UpToDate bool
}

// Validate checks a requested version before anything is fetched. An empty
// request means the latest release.
func Validate(requested string) error {
	if requested == "" {
		return nil
	}

	if _, err := semver.NewVersion(requested); err != nil {
		return ErrInvalidVersion
	}

	return nil
}

// Resolve decides what to install. A running version that is not semver,
// such as a development build, is treated as older than every release.
func Resolve(current, requested string, index Versions) (Plan, error) {
	if err := Validate(requested); err != nil {
		return Plan{}, err
	}

	if requested != "" {
		if !slices.Contains(index.Versions, requested) {
			return Plan{}, ErrUnknownVersion
		}

		return Plan{Target: requested}, nil
	}

	latest, err := semver.NewVersion(index.Latest)
	if err != nil {
		return Plan{}, fmt.Errorf("parsing latest version %q: %w", index.Latest, err)
	}

	if cur, err := semver.NewVersion(current); err == nil && !cur.LessThan(latest) {
		return Plan{UpToDate: true}, nil
	}

	return Plan{Target: index.Latest}, nil
}

// ModuleURL is the entry module of a release.
func ModuleURL(version string) *url.URL {
	u, _ := url.Parse(fmt.Sprintf("%s@%s/deployctl.ts", ModuleBase, version))
	return u
}

// InstallCommand returns a BuildFunc installing the module as a script with
// the permissions deployctl needs.
func InstallCommand(denoPath string) process.BuildFunc {
	return func(module *url.URL, _ process.Options) (process.Command, error) {
		return process.Command{
			Path: denoPath,
			Args: []string{
				"install",
				"--allow-read",
				"--allow-write",
				"--allow-env",
				"--allow-net",
				"--allow-run",
				"--no-check",
				"-f",
				module.String(),
			},
		}, nil
	}
}

// Upgrader ties the release index to the installer.
type Upgrader struct {
	Client   *Client
	Launcher process.Launcher
	Current  string
	Out      io.Writer
	Logger   *slog.Logger
}

// Run installs requested, or the latest release when requested is empty.
func (u *Upgrader) Run(ctx context.Context, requested string) error {
	if err := Validate(requested); err != nil {
		return err
	}

	index, err := u.Client.Fetch(ctx)
	if err != nil {
		return err
	}

	plan, err := Resolve(u.Current, requested, index)
	if err != nil {
		return err
	}

	if plan.UpToDate {
		fmt.Fprintln(u.Out, "You're using the latest version.")
		return nil
	}

	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}

	module := ModuleURL(plan.Target)

	logger.InfoContext(ctx, "installing release",
		slog.String("version", plan.Target),
		slog.String("module", module.String()),
	)

	sup := process.NewSupervisor(process.Config{
		Launcher:   u.Launcher,
		Entrypoint: module,
		Mode:       process.ModeCheck,
		Logger:     logger,
	})

	status, err := sup.RunOnce(ctx)
	if err != nil {
		return err
	}

	if !status.Success {
		return &process.AbnormalExitError{Status: status}
	}

	return nil
}
