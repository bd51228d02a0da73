package deps

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
)

// Tracker holds the most recent dependency set of one entrypoint. It is
// owned by a single watch loop and is not safe for concurrent use.
type Tracker struct {
	analyzer   Analyzer
	entrypoint *url.URL
	current    Set
	logger     *slog.Logger
}

// NewTracker creates a tracker with an empty dependency set. Call Refresh
// before relying on Current.
func NewTracker(analyzer Analyzer, entrypoint *url.URL, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		analyzer:   analyzer,
		entrypoint: entrypoint,
		current:    NewSet(),
		logger:     logger,
	}
}

// Current returns the dependency set of the last successful refresh.
func (t *Tracker) Current() Set { return t.current }

// Refresh re-analyzes the entrypoint. It reports whether the dependency set
// changed. On failure the previous set is kept and the error is returned as
// an *AnalysisError.
func (t *Tracker) Refresh(ctx context.Context) (bool, error) {
	paths, err := t.analyzer.Analyze(ctx, t.entrypoint)
	if err != nil {
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			err = &AnalysisError{Entrypoint: t.entrypoint.String(), Err: err}
		}

		return false, err
	}

	next := NewSet(paths...)
	if next.Equal(t.current) {
		return false, nil
	}

	if t.logger.Enabled(ctx, slog.LevelDebug) {
		if diff, diffErr := t.current.Diff(next); diffErr == nil {
			t.logger.DebugContext(ctx, "dependency set changed",
				slog.Int("previous", t.current.Len()),
				slog.Int("current", next.Len()),
				slog.String("diff", diff),
			)
		}
	}

	t.current = next

	return true, nil
}
