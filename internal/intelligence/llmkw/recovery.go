package llmkw

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/common"
)

// MaxRecoveredKeywords caps the list recovered from one raw generation.
const MaxRecoveredKeywords = 30

var (
	// bracketPattern captures the span from the first opening bracket to the
	// last closing bracket, newlines included.
	bracketPattern = regexp.MustCompile(`\[[\s\S]*\]`)

	// fencePattern strips a leading or trailing markdown code fence,
	// optionally tagged "json".
	fencePattern = regexp.MustCompile("^```(?:json)?|```$")

	// delimiterPattern splits on full- and half-width commas and semicolons,
	// the ideographic comma, and newlines.
	delimiterPattern = regexp.MustCompile("[，,；;、\n]")
)

// recoverStrategy attempts one way of reading a keyword list out of raw
// text.  It reports false when the strategy does not apply, handing control
// to the next strategy in the cascade.
type recoverStrategy func(raw string) ([]string, bool)

// recoverCascade is the ordered strategy list: strict JSON array first,
// delimiter splitting second.  Recover falls back to an empty list when
// every strategy declines.
var recoverCascade = []recoverStrategy{
	recoverStrictArray,
	recoverDelimited,
}

// Recover extracts the best-effort keyword list from raw model output.  It
// never fails: malformed JSON, surrounding prose, code fences, or delimiter
// lines all degrade gracefully, and unusable input yields an empty list.
// The result is trimmed, deduplicated by first occurrence, free of empty
// strings, and capped at MaxRecoveredKeywords.
func Recover(raw string) []string {
	for _, strat := range recoverCascade {
		if out, ok := strat(raw); ok {
			return out
		}
	}
	return []string{}
}

// recoverStrictArray finds the first bracketed span and parses it as a JSON
// array of strings.  An array containing any non-string element does not
// count as a success and falls through to the delimiter strategy.
func recoverStrictArray(raw string) ([]string, bool) {
	candidate := bracketPattern.FindString(strings.TrimSpace(raw))
	if candidate == "" {
		return nil, false
	}
	var arr []string
	if err := json.Unmarshal([]byte(candidate), &arr); err != nil {
		return nil, false
	}
	return common.Truncate(common.UniqueTrimmed(arr), MaxRecoveredKeywords), true
}

// recoverDelimited strips fences and stray brackets, splits on the
// delimiter set, and cleans each fragment.  Text without any delimiter
// yields a single-element list containing the whole trimmed remainder;
// succeeding with nothing left means the cascade terminates empty.
func recoverDelimited(raw string) ([]string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
	s = strings.Trim(s, "[](){}")

	parts := delimiterPattern.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		p = strings.Trim(p, "'")
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return common.Truncate(common.UniqueTrimmed(out), MaxRecoveredKeywords), true
}
