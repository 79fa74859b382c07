package deprule

import (
	"bufio"
	"os"
	"strings"

	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/common"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ExtractionResult holds the ordered term lists produced for one text.
// Under the English policy Nouns, Adjectives, and NominalizedVerbs are each
// deduplicated and Keywords is their order-preserving union.  Under the
// Chinese policy only Keywords is populated, in document order and without
// deduplication.
type ExtractionResult struct {
	Nouns            []string `json:"nouns"`
	Adjectives       []string `json:"adjectives"`
	NominalizedVerbs []string `json:"nominalized_verbs"`
	Keywords         []string `json:"keywords"`
}

// Filter applies the per-language extraction policy to annotated tokens.
// A Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	stoplist map[string]struct{}
}

// NewFilter builds a Filter with the built-in English stoplist.
func NewFilter() *Filter {
	return NewFilterWithStoplist(DefaultStopTokens)
}

// NewFilterWithStoplist builds a Filter with a custom stoplist.  Entries are
// lower-cased and trimmed; empty entries are ignored.
func NewFilterWithStoplist(stopTokens []string) *Filter {
	set := make(map[string]struct{}, len(stopTokens))
	for _, s := range stopTokens {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return &Filter{stoplist: set}
}

// LoadStoplist reads a newline-delimited stoplist file.  Blank lines and
// lines starting with "#" are skipped.
func LoadStoplist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open stoplist file")
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read stoplist file")
	}
	return words, nil
}

// Extract applies the policy selected by lang.  Unrecognised languages use
// the English policy.
func (f *Filter) Extract(tokens []AnnotatedToken, lang record.Language) ExtractionResult {
	if lang == record.LangZH {
		return f.extractZH(tokens)
	}
	return f.extractEN(tokens)
}

// extractEN is the richly filtered English policy: a token is content only
// when it passes the POS exclusion, the dependency exclusion, the numeric
// exclusion, and the stoplist.  Content NOUN/PROPN tokens become nouns;
// content ADJ tokens in an adjectival-function relation become adjectives;
// VERB tokens in nominal argument position (or conjuncts of one) become
// nominalised verbs.
func (f *Filter) extractEN(tokens []AnnotatedToken) ExtractionResult {
	var nouns, adjectives, nomVerbs []string

	retained := make([]bool, len(tokens))
	for i, t := range tokens {
		retained[i] = f.isContent(t)
	}

	// Direct nominalised-verb candidates, then conjunct chains.  A conjunct
	// inherits candidacy from its head, so iterate to a fixed point to cover
	// chains regardless of token order.
	nominal := make([]bool, len(tokens))
	for i, t := range tokens {
		if retained[i] && t.POS == POSVerb {
			if _, ok := nominalDeps[t.Dep]; ok {
				nominal[i] = true
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for i, t := range tokens {
			if nominal[i] || !retained[i] || t.POS != POSVerb || t.Dep != DepConjunct {
				continue
			}
			if t.Head >= 0 && t.Head < len(tokens) && t.Head != i && nominal[t.Head] {
				nominal[i] = true
				changed = true
			}
		}
	}

	for i, t := range tokens {
		if !retained[i] {
			continue
		}
		switch t.POS {
		case POSNoun, POSProperNoun:
			nouns = append(nouns, t.Text)
		case POSAdjective:
			if _, ok := keepAdjDeps[t.Dep]; ok {
				adjectives = append(adjectives, t.Text)
			}
		case POSVerb:
			if nominal[i] {
				nomVerbs = append(nomVerbs, t.Text)
			}
		}
	}

	nouns = common.UniqueTrimmed(nouns)
	adjectives = common.UniqueTrimmed(adjectives)
	nomVerbs = common.UniqueTrimmed(nomVerbs)

	merged := make([]string, 0, len(nouns)+len(adjectives)+len(nomVerbs))
	merged = append(merged, nouns...)
	merged = append(merged, adjectives...)
	merged = append(merged, nomVerbs...)

	return ExtractionResult{
		Nouns:            nouns,
		Adjectives:       adjectives,
		NominalizedVerbs: nomVerbs,
		Keywords:         common.UniqueTrimmed(merged),
	}
}

// extractZH is the unfiltered Chinese policy: every non-space,
// non-punctuation NOUN, PROPN, or ADJ token joins the keyword list in
// document order.  No stoplist and no deduplication; downstream consumers
// deduplicate when they need to.
func (f *Filter) extractZH(tokens []AnnotatedToken) ExtractionResult {
	keywords := []string{}
	for _, t := range tokens {
		if t.IsSpace || t.IsPunct {
			continue
		}
		switch t.POS {
		case POSNoun, POSProperNoun, POSAdjective:
			keywords = append(keywords, t.Text)
		}
	}
	return ExtractionResult{
		Nouns:            []string{},
		Adjectives:       []string{},
		NominalizedVerbs: []string{},
		Keywords:         keywords,
	}
}

// isContent applies the shared English exclusion rules.
func (f *Filter) isContent(t AnnotatedToken) bool {
	if t.IsSpace || t.IsPunct || t.LikeNum {
		return false
	}
	if _, drop := dropPOS[t.POS]; drop {
		return false
	}
	if _, drop := dropDeps[t.Dep]; drop {
		return false
	}
	if _, stop := f.stoplist[t.Lower]; stop {
		return false
	}
	return true
}
