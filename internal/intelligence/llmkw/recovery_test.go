package llmkw

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecover_StrictJSONArray(t *testing.T) {
	out := Recover(`["apple","banana","cherry"]`)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, out)
}

func TestRecover_RoundTripDeduplicates(t *testing.T) {
	out := Recover(`["apple","apple","banana"]`)
	assert.Equal(t, []string{"apple", "banana"}, out)
}

func TestRecover_ArraySurroundedByProse(t *testing.T) {
	raw := "Sure! Here are the keywords:\n[\"mitosis\", \"chromosome\"]\nHope that helps."
	assert.Equal(t, []string{"mitosis", "chromosome"}, Recover(raw))
}

func TestRecover_ArrayWithNewlines(t *testing.T) {
	raw := "[\n  \"alpha\",\n  \"beta\"\n]"
	assert.Equal(t, []string{"alpha", "beta"}, Recover(raw))
}

func TestRecover_ElementsTrimmed(t *testing.T) {
	out := Recover(`["  spaced  ", "plain"]`)
	assert.Equal(t, []string{"spaced", "plain"}, out)
}

func TestRecover_EmptyElementsDropped(t *testing.T) {
	out := Recover(`["", "  ", "kept"]`)
	assert.Equal(t, []string{"kept"}, out)
}

func TestRecover_NonStringElementFallsThrough(t *testing.T) {
	// The array parses as JSON but fails the all-strings requirement, so the
	// delimiter strategy handles the stripped text instead.
	out := Recover(`["word", 42]`)
	assert.Equal(t, []string{"word", "42"}, out)
}

func TestRecover_DelimiterFallbackCJK(t *testing.T) {
	assert.Equal(t, []string{"苹果", "香蕉", "橙子"}, Recover("苹果，香蕉；橙子"))
}

func TestRecover_DelimiterFallbackMixed(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, Recover("a, b; c、d"))
}

func TestRecover_FencedJSON(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Recover("```json\n[\"x\",\"y\"]\n```"))
}

func TestRecover_FencedWithoutTag(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Recover("```\n[\"x\",\"y\"]\n```"))
}

func TestRecover_MalformedJSONFallsBack(t *testing.T) {
	// Unbalanced quotes break the JSON parse; splitting on the comma still
	// recovers both fragments.
	out := Recover(`["apple", "banana]`)
	assert.Equal(t, []string{"apple", "banana"}, out)
}

func TestRecover_QuotedFragmentsStripped(t *testing.T) {
	out := Recover("\"alpha\", 'beta'\n\"gamma\"")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, out)
}

func TestRecover_ProseWithoutDelimiters(t *testing.T) {
	// A run-on phrase with no brackets and no delimiters resolves to a
	// single-element list holding the trimmed sentence.
	out := Recover("I cannot extract anything.")
	assert.Equal(t, []string{"I cannot extract anything."}, out)
}

func TestRecover_EmptyInput(t *testing.T) {
	assert.Equal(t, []string{}, Recover(""))
	assert.Equal(t, []string{}, Recover("   \n\t  "))
}

func TestRecover_EmptyArray(t *testing.T) {
	assert.Equal(t, []string{}, Recover("[]"))
}

func TestRecover_CappedAtThirty(t *testing.T) {
	var parts []string
	for i := 0; i < 50; i++ {
		parts = append(parts, fmt.Sprintf("term%02d", i))
	}

	fromArray := Recover(`["` + strings.Join(parts, `","`) + `"]`)
	assert.Len(t, fromArray, MaxRecoveredKeywords)
	assert.Equal(t, "term00", fromArray[0])
	assert.Equal(t, "term29", fromArray[29])

	fromDelims := Recover(strings.Join(parts, "，"))
	assert.Len(t, fromDelims, MaxRecoveredKeywords)
}

func TestRecover_NeverEmptyStringsNorDuplicates(t *testing.T) {
	inputs := []string{
		`["a","a","","b"]`,
		"a,,b，，a\n\nb",
		"```json\n[\"x\",\"\",\"x\"]\n```",
		"{garbage} (mixed) [stuff",
		string([]byte{0xff, 0xfe, 0x00, ','}),
	}
	for _, raw := range inputs {
		out := Recover(raw)
		assert.LessOrEqual(t, len(out), MaxRecoveredKeywords)
		seen := map[string]struct{}{}
		for _, s := range out {
			assert.NotEmpty(t, strings.TrimSpace(s), "input %q", raw)
			_, dup := seen[s]
			assert.False(t, dup, "duplicate %q for input %q", s, raw)
			seen[s] = struct{}{}
		}
	}
}

func TestRecover_GreedyBracketSpan(t *testing.T) {
	// The span runs from the first "[" to the last "]".  Two arrays in one
	// response therefore fail the JSON parse and land in the delimiter
	// fallback, which sees no delimiter and keeps the remainder whole.
	out := Recover(`["outer"] and ["second"]`)
	assert.Equal(t, []string{`outer"] and ["second`}, out)
}
