// Package deprule implements the rule-based extraction path: a linguistic
// filter over dependency-annotated tokens that selects content nouns,
// content adjectives, and nominalised verbs per language policy, plus the
// HTTP client for the external annotation service that produces the tokens.
package deprule

// AnnotatedToken is one token of an annotated text as returned by the
// annotation service.  POS carries a coarse universal tag (NOUN, PROPN, ADJ,
// VERB, DET, ...); Dep carries the dependency relation to the token's
// syntactic head; Head is the index of that head within the same token
// sequence, with the root pointing at itself.
type AnnotatedToken struct {
	Text    string `json:"text"`
	Lower   string `json:"lower"`
	POS     string `json:"pos"`
	Dep     string `json:"dep"`
	Head    int    `json:"head"`
	IsSpace bool   `json:"is_space"`
	IsPunct bool   `json:"is_punct"`
	LikeNum bool   `json:"like_num"`
}

// Coarse part-of-speech tags the filter branches on.
const (
	POSNoun       = "NOUN"
	POSProperNoun = "PROPN"
	POSAdjective  = "ADJ"
	POSVerb       = "VERB"
)

// DepConjunct is the relation linking a conjunct to the first element of its
// coordination, used to extend nominalised-verb candidacy along chains like
// "the running and jumping".
const DepConjunct = "conj"
