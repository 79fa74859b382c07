package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

func TestReadSourceProblems(t *testing.T) {
	input := `[
		{"problem_id":"gsm-17","problem":"What is a stack?","models":{"qwen2-7b":[{"answer":"A LIFO structure.","attempt":1},{"answer":"Push and pop.","attempt":2}]}},
		{"problem":"栈是什么?","models":{"glm4-9b":[{"answer":"后进先出的结构。","attempt":1}]}}
	]`
	problems, err := ReadSourceProblems(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "gsm-17", problems[0].ProblemID)
	require.Len(t, problems[0].Models["qwen2-7b"], 2)
	assert.Equal(t, 2, problems[0].Models["qwen2-7b"][1].Attempt)
}

func TestReadSourceProblems_Malformed(t *testing.T) {
	_, err := ReadSourceProblems(strings.NewReader(`{"not":"an array"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceParseError))
}

func TestConvert_FlattensOneRecordPerAttempt(t *testing.T) {
	problems := []record.SourceProblem{
		{
			ProblemID: "gsm-17",
			Problem:   "What is a stack?",
			Models: map[string][]record.SourceAttempt{
				"qwen2-7b": {
					{Answer: "A LIFO structure.", Attempt: 1},
					{Answer: "Push and pop.", Attempt: 2},
				},
			},
		},
	}

	items := Convert(problems, ConvertOptions{})
	require.Len(t, items, 2)

	assert.Equal(t, "gsm-17", items[0].Record.ProblemID)
	assert.Equal(t, "qwen2-7b", items[0].Record.Model)
	assert.Equal(t, 1, items[0].Record.Attempt)
	assert.Equal(t, 2, items[1].Record.Attempt)
	assert.Equal(t, record.LangEN, items[0].Record.Lang)
}

func TestConvert_PositionalIDsNumberFromOne(t *testing.T) {
	problems := []record.SourceProblem{
		{Problem: "first", Models: map[string][]record.SourceAttempt{"m": {{Answer: "a", Attempt: 1}}}},
		{Problem: "second", Models: map[string][]record.SourceAttempt{"m": {{Answer: "b", Attempt: 1}}}},
	}

	items := Convert(problems, ConvertOptions{})
	require.Len(t, items, 2)
	assert.Equal(t, "p000001", items[0].Record.ProblemID)
	assert.Equal(t, "p000002", items[1].Record.ProblemID)
}

func TestConvert_ModelsInSortedOrder(t *testing.T) {
	problems := []record.SourceProblem{
		{
			ProblemID: "p1",
			Models: map[string][]record.SourceAttempt{
				"zeta":  {{Answer: "z", Attempt: 1}},
				"alpha": {{Answer: "a", Attempt: 1}},
				"mid":   {{Answer: "m", Attempt: 1}},
			},
		},
	}

	items := Convert(problems, ConvertOptions{})
	require.Len(t, items, 3)
	assert.Equal(t, "alpha", items[0].Record.Model)
	assert.Equal(t, "mid", items[1].Record.Model)
	assert.Equal(t, "zeta", items[2].Record.Model)
}

func TestConvert_DetectsLanguageFromProblem(t *testing.T) {
	problems := []record.SourceProblem{
		// A Chinese problem statement tags the record zh even when the
		// model answered in English.
		{ProblemID: "p1", Problem: "栈是什么?", Models: map[string][]record.SourceAttempt{"m": {{Answer: "A LIFO structure.", Attempt: 1}}}},
		{ProblemID: "p2", Problem: "What is a stack?", Models: map[string][]record.SourceAttempt{"m": {{Answer: "后进先出。", Attempt: 1}}}},
	}

	items := Convert(problems, ConvertOptions{})
	require.Len(t, items, 2)
	assert.Equal(t, record.LangZH, items[0].Record.Lang)
	assert.Equal(t, record.LangEN, items[1].Record.Lang)
}

func TestConvert_ForceLangOverridesDetection(t *testing.T) {
	problems := []record.SourceProblem{
		{ProblemID: "p1", Problem: "栈是什么?", Models: map[string][]record.SourceAttempt{"m": {{Answer: "后进先出。", Attempt: 1}}}},
	}

	items := Convert(problems, ConvertOptions{ForceLang: record.LangEN})
	require.Len(t, items, 1)
	assert.Equal(t, record.LangEN, items[0].Record.Lang)
}

func TestConvert_BlankAnswers(t *testing.T) {
	problems := []record.SourceProblem{
		{ProblemID: "p1", Models: map[string][]record.SourceAttempt{"m": {
			{Answer: "real", Attempt: 1},
			{Answer: "  \n ", Attempt: 2},
		}}},
	}

	dropped := Convert(problems, ConvertOptions{})
	require.Len(t, dropped, 1)
	assert.Equal(t, "real", dropped[0].Record.Answer)

	kept := Convert(problems, ConvertOptions{KeepEmpty: true})
	require.Len(t, kept, 2)
	// The source attempt number rides along even when siblings are dropped
	// in other modes.
	assert.Equal(t, 2, kept[1].Record.Attempt)
}

func TestConvert_LineNumbersAreSequential(t *testing.T) {
	problems := []record.SourceProblem{
		{ProblemID: "p1", Models: map[string][]record.SourceAttempt{"m": {
			{Answer: "a", Attempt: 1},
			{Answer: "b", Attempt: 2},
		}}},
		{ProblemID: "p2", Models: map[string][]record.SourceAttempt{"m": {{Answer: "c", Attempt: 1}}}},
	}

	items := Convert(problems, ConvertOptions{})
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+1, item.Line)
	}
}
