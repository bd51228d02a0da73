// Package entrypoint resolves the module specifier given on the command line.
package entrypoint

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissing is returned when no entrypoint specifier was given.
var ErrMissing = errors.New("No entrypoint specifier given.") //nolint:staticcheck // user-facing message

// ErrTooMany is returned when more than one positional argument was given.
var ErrTooMany = errors.New("Too many positional arguments given.") //nolint:staticcheck // user-facing message

// FromArgs resolves the single positional entrypoint argument.
func FromArgs(args []string) (*url.URL, error) {
	switch {
	case len(args) == 0:
		return nil, ErrMissing
	case len(args) > 1:
		return nil, ErrTooMany
	}

	return Parse(args[0])
}

// Parse turns a specifier into a URL. Remote http(s) specifiers are kept as
// they are; anything else is a path relative to the working directory and
// must exist.
func Parse(specifier string) (*url.URL, error) {
	if isRemote(specifier) {
		u, err := url.Parse(specifier)
		if err != nil {
			return nil, fmt.Errorf("parsing entrypoint %q: %w", specifier, err)
		}

		return u, nil
	}

	abs, err := filepath.Abs(specifier)
	if err != nil {
		return nil, fmt.Errorf("resolving entrypoint %q: %w", specifier, err)
	}

	u := FileURL(abs)

	if _, err := os.Lstat(abs); err != nil {
		return nil, fmt.Errorf("failed to open entrypoint file at '%s': %w", u, err)
	}

	return u, nil
}

// FileURL returns the file:// URL of an absolute path.
func FileURL(abs string) *url.URL {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// Windows drive letters.
		p = "/" + p
	}

	return &url.URL{Scheme: "file", Path: p}
}

// IsLocal reports whether u points at the local filesystem.
func IsLocal(u *url.URL) bool {
	return u.Scheme == "file"
}

// isRemote matches the scheme prefix case-sensitively, the way deno does.
func isRemote(specifier string) bool {
	return strings.HasPrefix(specifier, "http://") || strings.HasPrefix(specifier, "https://")
}
