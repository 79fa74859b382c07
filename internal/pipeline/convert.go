package pipeline

import (
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ConvertOptions controls the nested-to-flat conversion.
type ConvertOptions struct {
	// KeepEmpty emits records for blank answers instead of dropping them.
	KeepEmpty bool

	// ForceLang tags every record with this language instead of detecting
	// it from the problem statement by CJK scan.
	ForceLang record.Language
}

// ReadSourceProblems decodes the nested source layout: a JSON array of
// problems, each carrying per-model answer lists.
func ReadSourceProblems(r io.Reader) ([]record.SourceProblem, error) {
	var problems []record.SourceProblem
	dec := json.NewDecoder(r)
	if err := dec.Decode(&problems); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "failed to decode source problems")
	}
	return problems, nil
}

// Convert flattens nested source problems into one record per
// (problem, model, attempt). Problems without an explicit ID get a
// positional one, numbered from 1; language is detected once per problem
// from its statement by CJK scan and shared by every attempt.
func Convert(problems []record.SourceProblem, opts ConvertOptions) []*Item {
	var items []*Item
	line := 0
	for i, p := range problems {
		problemID := p.ProblemID
		if problemID == "" {
			problemID = record.ProblemIDFor(i)
		}

		lang := opts.ForceLang
		if lang == "" {
			lang = record.DetectLanguage(p.Problem)
		}

		// Deterministic output order regardless of map iteration.
		models := make([]string, 0, len(p.Models))
		for model := range p.Models {
			models = append(models, model)
		}
		sort.Strings(models)

		for _, model := range models {
			for _, a := range p.Models[model] {
				if strings.TrimSpace(a.Answer) == "" && !opts.KeepEmpty {
					continue
				}

				line++
				item := &Item{
					Line: line,
					Record: record.Record{
						ProblemID: problemID,
						Problem:   p.Problem,
						Model:     model,
						Attempt:   a.Attempt,
						Answer:    a.Answer,
						Lang:      lang,
					},
				}
				items = append(items, item)
			}
		}
	}
	return items
}
