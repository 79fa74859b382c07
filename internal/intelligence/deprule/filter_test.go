package deprule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// tok builds a minimal annotated token for filter tests.
func tok(text, pos, dep string) AnnotatedToken {
	return AnnotatedToken{Text: text, Lower: lower(text), POS: pos, Dep: dep}
}

func lower(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + 32
		}
	}
	return string(b)
}

func TestExtractEN_NounsAndAdjectives(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("The", "DET", "det"),
		tok("blue", "ADJ", "amod"),
		tok("whale", "NOUN", "nsubj"),
		tok("is", "AUX", "cop"),
		tok("enormous", "ADJ", "acomp"),
		{Text: ".", POS: "PUNCT", Dep: "punct", IsPunct: true},
	}

	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"whale"}, res.Nouns)
	assert.Equal(t, []string{"blue", "enormous"}, res.Adjectives)
	assert.Equal(t, []string{"whale", "blue", "enormous"}, res.Keywords)
}

func TestExtractEN_NounListOnlyNounTags(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("Paris", "PROPN", "nsubj"),
		tok("shine", "VERB", "root"),
		tok("bright", "ADJ", "amod"),
		tok("city", "NOUN", "obj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"Paris", "city"}, res.Nouns)
}

func TestExtractEN_AdjectiveRequiresAdjectivalRelation(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("red", "ADJ", "amod"),
		tok("tall", "ADJ", "acomp"),
		tok("alone", "ADJ", "appos"),
		tok("upset", "ADJ", "conj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"red", "tall"}, res.Adjectives)
}

func TestExtractEN_FunctionPOSDropped(t *testing.T) {
	f := NewFilter()
	for _, pos := range []string{"DET", "PRON", "NUM", "AUX", "ADP", "SCONJ", "CCONJ", "PART"} {
		tokens := []AnnotatedToken{tok("word", pos, "nsubj")}
		res := f.Extract(tokens, record.LangEN)
		assert.Empty(t, res.Keywords, "POS %s must be excluded", pos)
	}
}

func TestExtractEN_DeterminerRelationsDropped(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("all", "NOUN", "predet"),
		tok("which", "NOUN", "det"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Empty(t, res.Nouns)
}

func TestExtractEN_NumericLikeDropped(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		{Text: "seven", Lower: "seven", POS: "NOUN", Dep: "obj", LikeNum: true},
		tok("samples", "NOUN", "obj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"samples"}, res.Nouns)
}

func TestExtractEN_StoplistExcluded(t *testing.T) {
	f := NewFilter()
	for _, w := range DefaultStopTokens {
		tokens := []AnnotatedToken{{Text: w, Lower: w, POS: "NOUN", Dep: "obj"}}
		res := f.Extract(tokens, record.LangEN)
		assert.Empty(t, res.Keywords, "stop token %q must be excluded", w)
	}
}

func TestExtractEN_StoplistMatchesLowerForm(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{{Text: "Thing", Lower: "thing", POS: "NOUN", Dep: "obj"}}
	res := f.Extract(tokens, record.LangEN)
	assert.Empty(t, res.Nouns)
}

func TestExtractEN_CustomStoplist(t *testing.T) {
	f := NewFilterWithStoplist([]string{"Whale", " "})
	tokens := []AnnotatedToken{
		tok("whale", "NOUN", "nsubj"),
		tok("ocean", "NOUN", "obj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"ocean"}, res.Nouns)
}

func TestExtractEN_NominalizedVerbs(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("running", "VERB", "nsubj"),
		tok("helps", "VERB", "root"),
		tok("breathing", "VERB", "obj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"running", "breathing"}, res.NominalizedVerbs)
	assert.NotContains(t, res.NominalizedVerbs, "helps", "root verbs are not nominal")
}

func TestExtractEN_NominalizedVerbConjunctChain(t *testing.T) {
	f := NewFilter()
	// "running and jumping and spinning": the conjuncts point back along the
	// chain and inherit candidacy from the nsubj head.
	tokens := []AnnotatedToken{
		tok("running", "VERB", "nsubj"),                             // 0
		tok("and", "CCONJ", "cc"),                                   // 1
		{Text: "jumping", Lower: "jumping", POS: "VERB", Dep: "conj", Head: 0},  // 2
		tok("and", "CCONJ", "cc"),                                   // 3
		{Text: "spinning", Lower: "spinning", POS: "VERB", Dep: "conj", Head: 2}, // 4
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"running", "jumping", "spinning"}, res.NominalizedVerbs)
}

func TestExtractEN_ConjunctOfNonNominalVerbExcluded(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("ran", "VERB", "root"), // 0
		{Text: "jumped", Lower: "jumped", POS: "VERB", Dep: "conj", Head: 0}, // 1
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Empty(t, res.NominalizedVerbs)
}

func TestExtractEN_KeywordsDeduplicated(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("cell", "NOUN", "nsubj"),
		tok("cell", "NOUN", "obj"),
		tok("membrane", "NOUN", "obj"),
	}
	res := f.Extract(tokens, record.LangEN)
	assert.Equal(t, []string{"cell", "membrane"}, res.Nouns)
	assert.Equal(t, []string{"cell", "membrane"}, res.Keywords)
}

func TestExtractEN_EmptyInput(t *testing.T) {
	f := NewFilter()
	res := f.Extract(nil, record.LangEN)
	assert.Empty(t, res.Nouns)
	assert.Empty(t, res.Adjectives)
	assert.Empty(t, res.NominalizedVerbs)
	assert.Empty(t, res.Keywords)
}

func TestExtractZH_POSOnly(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("光合作用", "NOUN", "nsubj"),
		tok("是", "VERB", "cop"),
		tok("重要", "ADJ", "amod"),
		tok("的", "PART", "mark"),
		tok("过程", "NOUN", "root"),
		{Text: "。", POS: "PUNCT", Dep: "punct", IsPunct: true},
	}
	res := f.Extract(tokens, record.LangZH)
	assert.Equal(t, []string{"光合作用", "重要", "过程"}, res.Keywords)
	assert.Empty(t, res.Nouns)
	assert.Empty(t, res.Adjectives)
}

func TestExtractZH_NoDeduplication(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{
		tok("细胞", "NOUN", "nsubj"),
		tok("细胞", "NOUN", "obj"),
	}
	res := f.Extract(tokens, record.LangZH)
	assert.Equal(t, []string{"细胞", "细胞"}, res.Keywords)
}

func TestExtractZH_NoStoplist(t *testing.T) {
	// The Chinese policy never consults the stoplist, even for entries that
	// happen to match.
	f := NewFilterWithStoplist([]string{"过程"})
	tokens := []AnnotatedToken{tok("过程", "NOUN", "root")}
	res := f.Extract(tokens, record.LangZH)
	assert.Equal(t, []string{"过程"}, res.Keywords)
}

func TestExtract_UnknownLanguageUsesEnglishPolicy(t *testing.T) {
	f := NewFilter()
	tokens := []AnnotatedToken{tok("atom", "NOUN", "obj")}
	res := f.Extract(tokens, record.Language("fr"))
	assert.Equal(t, []string{"atom"}, res.Nouns)
}
