// Package record defines the data types that flow through the keyword
// extraction pipeline: the flat per-attempt Record, the nested source-file
// layout it is converted from, and the Language tag that drives per-language
// extraction policy.
package record

import (
	"fmt"
	"regexp"
	"strings"
)

// Language identifies the extraction policy applied to a record.
type Language string

const (
	// LangEN selects the English policy: dependency-rule filtering with the
	// full rule set, plus generative extraction with the English prompt.
	LangEN Language = "en"

	// LangZH selects the Chinese policy: POS-only filtering and the Chinese
	// prompt.
	LangZH Language = "zh"
)

// cjkPattern matches any character in the CJK Unified Ideographs block.
var cjkPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)

// ParseLanguage normalizes a raw language tag. Tags like "zh-CN" or "ZH"
// map to LangZH; everything else, including the empty string, falls back to
// fallback.
func ParseLanguage(raw string, fallback Language) Language {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case tag == "zh" || strings.HasPrefix(tag, "zh-") || strings.HasPrefix(tag, "zh_"):
		return LangZH
	case tag == "en" || strings.HasPrefix(tag, "en-") || strings.HasPrefix(tag, "en_"):
		return LangEN
	default:
		return fallback
	}
}

// DetectLanguage classifies text as Chinese when it contains at least one
// CJK ideograph, English otherwise.
func DetectLanguage(text string) Language {
	if cjkPattern.MatchString(text) {
		return LangZH
	}
	return LangEN
}

// Record is one model attempt at one problem, the unit the pipeline
// operates on. Input fields come from the source JSONL; output fields are
// populated by the extraction stages and omitted from serialization until
// set.
type Record struct {
	ProblemID string   `json:"problem_id"`
	Problem   string   `json:"problem"`
	Model     string   `json:"model"`
	Attempt   int      `json:"attempt"`
	Answer    string   `json:"answer"`
	Lang      Language `json:"lang"`

	// Rule-path outputs.
	Nouns            []string `json:"nouns,omitempty"`
	Adjectives       []string `json:"adjectives,omitempty"`
	NominalizedVerbs []string `json:"nominalized_verbs,omitempty"`

	// Generative-path outputs. KeywordsRaw preserves the unparsed engine
	// output for audit when the pipeline is configured to keep it.
	Keywords    []string `json:"keywords,omitempty"`
	KeywordsRaw string   `json:"keywords_raw,omitempty"`
}

// Validate checks the invariants every record must satisfy before entering
// an extraction stage.
func (r *Record) Validate() error {
	if r.ProblemID == "" {
		return fmt.Errorf("record: empty problem_id")
	}
	if r.Model == "" {
		return fmt.Errorf("record %s: empty model", r.ProblemID)
	}
	if r.Attempt < 0 {
		return fmt.Errorf("record %s: negative attempt %d", r.ProblemID, r.Attempt)
	}
	if r.Lang != LangEN && r.Lang != LangZH {
		return fmt.Errorf("record %s: unsupported lang %q", r.ProblemID, r.Lang)
	}
	return nil
}

// Key returns the identity of a record within a corpus, unique per
// (problem, model, attempt) triple.
func (r *Record) Key() string {
	return fmt.Sprintf("%s/%s/%d", r.ProblemID, r.Model, r.Attempt)
}

// SourceAttempt is one model answer in the nested source layout.
type SourceAttempt struct {
	Answer  string `json:"answer"`
	Attempt int    `json:"attempt"`
}

// SourceProblem is one entry of the nested source layout: a problem
// statement plus per-model attempt lists.
type SourceProblem struct {
	ProblemID string                     `json:"problem_id,omitempty"`
	Problem   string                     `json:"problem"`
	Models    map[string][]SourceAttempt `json:"models"`
}

// ProblemIDFor formats the canonical problem ID for a zero-based source
// position. IDs number from 1, so the first problem is p000001.
func ProblemIDFor(index int) string {
	return fmt.Sprintf("p%06d", index+1)
}
