// Shared fixtures for the end-to-end tests: in-process HTTP doubles for the
// annotation and completion services, runner construction over the real HTTP
// clients, and JSONL file helpers. Every test in this package depends on
// this file.
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/turtacn/KeyTerm-Intelligence/internal/config"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/deprule"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Annotation service double
// ---------------------------------------------------------------------------

// posLexicon drives the fake annotator. Unlisted words come back as verbs
// with a root relation, which the English rule filter drops.
var posLexicon = map[string][2]string{
	"stack":     {deprule.POSNoun, "nsubj"},
	"frames":    {deprule.POSNoun, "obj"},
	"queue":     {deprule.POSNoun, "obj"},
	"recursion": {deprule.POSNoun, "nsubj"},
	"linear":    {deprule.POSAdjective, "amod"},
	"mutable":   {deprule.POSAdjective, "amod"},
	"the":       {"DET", "det"},
	"a":         {"DET", "det"},
}

type annotateRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type annotateResponse struct {
	Tokens []deprule.AnnotatedToken `json:"tokens"`
}

// newAnnotatorServer serves POST /annotate with a whitespace tokenizer over
// posLexicon.
func newAnnotatorServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/annotate" {
			http.NotFound(w, r)
			return
		}
		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var resp annotateResponse
		for i, word := range strings.Fields(req.Text) {
			lower := strings.ToLower(word)
			pos, dep := "VERB", "ROOT"
			if entry, ok := posLexicon[lower]; ok {
				pos, dep = entry[0], entry[1]
			}
			resp.Tokens = append(resp.Tokens, deprule.AnnotatedToken{
				Text:  word,
				Lower: lower,
				POS:   pos,
				Dep:   dep,
				Head:  i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode annotate response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// Completion service double
// ---------------------------------------------------------------------------

type completionRequest struct {
	Model  string   `json:"model"`
	Prompt []string `json:"prompt"`
}

type completionChoice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
}

// newEngineServer serves POST /v1/completions, mapping each prompt through
// respond. Choices are returned in reverse order so the client has to slot
// them by index.
func newEngineServer(t *testing.T, respond func(prompt string) string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/completions" {
			http.NotFound(w, r)
			return
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model == "" {
			http.Error(w, "missing model", http.StatusBadRequest)
			return
		}

		var resp completionResponse
		for i := len(req.Prompt) - 1; i >= 0; i-- {
			resp.Choices = append(resp.Choices, completionChoice{
				Index: i,
				Text:  respond(req.Prompt[i]),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode completion response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// Runner construction over the real HTTP clients
// ---------------------------------------------------------------------------

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		DefaultLang: "en",
		BatchSize:   2,
		Concurrency: 2,
	}
}

func newRuleRunner(t *testing.T, annotatorURL string) *pipeline.Runner {
	t.Helper()

	annotator, err := deprule.NewHTTPAnnotator(deprule.AnnotatorConfig{
		BaseURL: annotatorURL,
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("build annotator: %v", err)
	}
	return pipeline.NewRunner(testPipelineConfig(), annotator, deprule.NewFilter(), nil, nil)
}

func newGenerativeRunner(t *testing.T, engineURL string, keepRaw bool) *pipeline.Runner {
	t.Helper()

	engine, err := llmkw.NewHTTPEngine(llmkw.EngineConfig{
		BaseURL: engineURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	extractor, err := llmkw.NewExtractor(engine, 2, nil)
	if err != nil {
		t.Fatalf("build extractor: %v", err)
	}
	cfg := testPipelineConfig()
	cfg.KeepRaw = keepRaw
	return pipeline.NewRunner(cfg, nil, nil, extractor, nil)
}

// ---------------------------------------------------------------------------
// JSONL file helpers
// ---------------------------------------------------------------------------

func writeInputFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "records.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	return path
}

func readOutputRecords(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("parse output line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func stringList(t *testing.T, rec map[string]interface{}, key string) []string {
	t.Helper()

	raw, ok := rec[key]
	if !ok {
		t.Fatalf("record has no %q field: %v", key, rec)
	}
	items, ok := raw.([]interface{})
	if !ok {
		t.Fatalf("field %q is not a list: %v", key, raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}
