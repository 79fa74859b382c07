package deprule

// Rule data for the English policy.  The sets live here as plain data rather
// than inline conditions so deployments can inspect them and swap the
// stoplist without touching filter logic.

// DefaultStopTokens is the closed-class stoplist applied to lower-cased
// English forms: quantifying and vague determiners used pronominally, light
// be/have forms, the modal "may", the generic noun "thing", the negator
// "not", and the possessive clitic.
var DefaultStopTokens = []string{
	"few", "little", "many", "much", "other", "such",
	"that", "it", "thing", "not",
	"be", "was", "have", "has", "had", "may",
	"'s",
}

// dropPOS are function-word part-of-speech tags excluded from content terms.
var dropPOS = map[string]struct{}{
	"DET":   {},
	"PRON":  {},
	"NUM":   {},
	"AUX":   {},
	"ADP":   {},
	"SCONJ": {},
	"CCONJ": {},
	"PART":  {},
}

// dropDeps are determiner-like dependency relations excluded from content
// terms even when the POS tag alone would pass.
var dropDeps = map[string]struct{}{
	"det":    {},
	"predet": {},
}

// keepAdjDeps are the adjectival-function relations that qualify a retained
// ADJ token for the adjective list.  Predicative-but-atypical and appositive
// adjective uses fall outside this set and are dropped.
var keepAdjDeps = map[string]struct{}{
	"amod":  {},
	"acomp": {},
}

// nominalDeps are the nominal argument relations that make a VERB token a
// nominalised-verb candidate.
var nominalDeps = map[string]struct{}{
	"nsubj":      {},
	"nsubj:pass": {},
	"obj":        {},
	"iobj":       {},
	"obl":        {},
	"obl:arg":    {},
	"obl:agent":  {},
	"obl:tmod":   {},
	"pobj":       {},
	"nmod":       {},
	"appos":      {},
}
