// Package bounded applies the canonical dedupe, sort and cap treatment to
// every list that leaves the core.
package bounded

import (
	"sort"
	"strings"
)

// Strings trims, drops empties, deduplicates, sorts ascending and caps the
// result at max entries. A non-positive max returns an empty slice. The
// result is never nil so it encodes as [] rather than null.
func Strings(in []string, max int) []string {
	out := make([]string, 0, len(in))
	if max <= 0 {
		return out
	}
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Ordered deduplicates while keeping first-seen order, then caps at max.
func Ordered(in []string, max int) []string {
	out := make([]string, 0, len(in))
	if max <= 0 {
		return out
	}
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

// Take returns at most n leading elements. The result is never nil.
func Take[T any](xs []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(xs) < n {
		n = len(xs)
	}
	out := make([]T, n)
	copy(out, xs[:n])
	return out
}
