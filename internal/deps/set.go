package deps

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Set is an unordered, duplicate-free collection of local file paths.
// A Set is never edited after construction; refreshes replace it wholesale.
type Set map[string]struct{}

// NewSet builds a Set from paths. Paths are cleaned so that equal files
// compare equal regardless of how the analyzer spelled them.
func NewSet(paths ...string) Set {
	s := make(Set, len(paths))

	for _, p := range paths {
		if p == "" {
			continue
		}

		s[filepath.Clean(p)] = struct{}{}
	}

	return s
}

// Has reports whether path is a member of the set.
func (s Set) Has(path string) bool {
	_, ok := s[filepath.Clean(path)]
	return ok
}

// Len returns the number of paths in the set.
func (s Set) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}

	sort.Strings(out)

	return out
}

// SymmetricDifference returns the paths present in exactly one of s and other.
func (s Set) SymmetricDifference(other Set) []string {
	var diff []string

	for p := range s {
		if _, ok := other[p]; !ok {
			diff = append(diff, p)
		}
	}

	for p := range other {
		if _, ok := s[p]; !ok {
			diff = append(diff, p)
		}
	}

	sort.Strings(diff)

	return diff
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}

	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}

	return true
}

// Diff renders a unified diff between s (old) and next (new), one path per
// line. It returns an empty string when the sets are equal.
func (s Set) Diff(next Set) (string, error) {
	if s.Equal(next) {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        lines(s.Sorted()),
		B:        lines(next.Sorted()),
		FromFile: "previous",
		ToFile:   "current",
		Context:  1,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("computing dependency diff: %w", err)
	}

	return strings.TrimRight(unified, "\n"), nil
}

func lines(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p + "\n"
	}

	return out
}
