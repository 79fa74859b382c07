// Package common holds shared building blocks for the extraction paths:
// ordered deduplication of term lists and a generic batch execution engine.
package common

import "strings"

// UniqueTrimmed trims surrounding whitespace from every element, drops
// elements that become empty, and removes duplicates while preserving the
// order of first appearance.  The comparison is exact after trimming; case
// folding is deliberately not applied so that "RNA" and "rna" remain
// distinct terms.
func UniqueTrimmed(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		t := strings.TrimSpace(it)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Truncate returns at most n leading elements of items without copying.
// Non-positive n yields an empty slice.
func Truncate(items []string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}
