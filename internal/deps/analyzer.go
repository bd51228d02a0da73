// Package deps computes and tracks the set of local files an entrypoint
// module transitively depends on. The graph walk itself is delegated to an
// external analyzer; this package only shapes its answer into a Set and
// decides when the set has changed.
package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

// Analyzer resolves the module graph of an entrypoint and returns the local
// file paths it depends on.
type Analyzer interface {
	Analyze(ctx context.Context, entrypoint *url.URL) ([]string, error)
}

// AnalysisError reports that the dependency graph of an entrypoint could not
// be computed, e.g. because of a syntax error or an unreachable import.
type AnalysisError struct {
	Entrypoint string
	Err        error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyzing dependencies of %s: %v", e.Entrypoint, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// DenoAnalyzer asks `deno info --json` for the module graph.
type DenoAnalyzer struct {
	// Path is the deno executable.
	Path string
}

// NewDenoAnalyzer returns an analyzer using the given deno executable.
func NewDenoAnalyzer(denoPath string) *DenoAnalyzer {
	if denoPath == "" {
		denoPath = "deno"
	}

	return &DenoAnalyzer{Path: denoPath}
}

// Analyze implements Analyzer.
func (a *DenoAnalyzer) Analyze(ctx context.Context, entrypoint *url.URL) ([]string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, a.Path, "info", "--json", entrypoint.String()) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, &AnalysisError{Entrypoint: entrypoint.String(), Err: fmt.Errorf("%w: %s", err, msg)}
		}

		return nil, &AnalysisError{Entrypoint: entrypoint.String(), Err: err}
	}

	paths, err := ParseInfo(stdout.Bytes())
	if err != nil {
		return nil, &AnalysisError{Entrypoint: entrypoint.String(), Err: err}
	}

	return paths, nil
}

type infoOutput struct {
	Modules []infoModule `json:"modules"`
}

type infoModule struct {
	Specifier string `json:"specifier"`
	Local     string `json:"local"`
	Error     string `json:"error"`
}

// ParseInfo extracts the local file dependencies from `deno info --json`
// output. Remote modules are skipped even though they have a cache path:
// edits never happen there.
func ParseInfo(data []byte) ([]string, error) {
	var out infoOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding module graph: %w", err)
	}

	paths := make([]string, 0, len(out.Modules))

	for _, m := range out.Modules {
		if m.Error != "" {
			return nil, fmt.Errorf("module %s: %s", m.Specifier, m.Error)
		}

		u, err := url.Parse(m.Specifier)
		if err != nil || u.Scheme != "file" {
			continue
		}

		local := m.Local
		if local == "" {
			local = u.Path
		}

		paths = append(paths, local)
	}

	return paths, nil
}
