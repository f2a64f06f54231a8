package columns

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for loose comparison: NFKC, trimmed, case folded.
func Normalize(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return cases.Fold().String(s)
}

// Resolve returns the index of the first header matching any candidate, or
// false when none does.
func Resolve(headers, candidates []string) (int, bool) {
	if len(candidates) == 0 {
		return -1, false
	}
	want := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		want[Normalize(c)] = struct{}{}
	}
	for i, h := range headers {
		if _, ok := want[Normalize(h)]; ok {
			return i, true
		}
	}
	return -1, false
}
