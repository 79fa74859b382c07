// End-to-end extraction tests: real HTTP clients, real runner, real JSONL
// files, with only the annotation and completion services replaced by
// in-process doubles.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/deprule"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	httpiface "github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http"
	"github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ---------------------------------------------------------------------------
// Test: rule path over a JSONL file
// ---------------------------------------------------------------------------

func TestRulePath_FileRoundTrip(t *testing.T) {
	annotator := newAnnotatorServer(t)
	runner := newRuleRunner(t, annotator.URL)

	input := writeInputFile(t,
		`{"problem_id":"p000000","problem":"q1","model":"m1","attempt":0,"answer":"the stack stores linear frames","lang":"en","source_split":"train"}`,
		`{"problem_id":"p000001","problem":"q2","model":"m1","attempt":0,"answer":"   ","lang":"en"}`,
	)
	output := filepath.Join(t.TempDir(), "out.jsonl")

	stats, err := runner.RunFile(context.Background(), input, output, pipeline.PathRule)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if stats.Total != 2 || stats.Processed != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	records := readOutputRecords(t, output)
	if len(records) != 2 {
		t.Fatalf("expected 2 output records, got %d", len(records))
	}

	first := records[0]
	if got := stringList(t, first, "nouns"); !reflect.DeepEqual(got, []string{"stack", "frames"}) {
		t.Errorf("nouns = %v", got)
	}
	if got := stringList(t, first, "adjectives"); !reflect.DeepEqual(got, []string{"linear"}) {
		t.Errorf("adjectives = %v", got)
	}
	if got := stringList(t, first, "keywords"); !reflect.DeepEqual(got, []string{"stack", "frames", "linear"}) {
		t.Errorf("keywords = %v", got)
	}
	if got := first["source_split"]; got != "train" {
		t.Errorf("unknown input field not preserved, source_split = %v", got)
	}

	// A blank answer yields pinned empty lists, not omitted fields.
	second := records[1]
	for _, key := range []string{"nouns", "adjectives", "keywords"} {
		if got := stringList(t, second, key); len(got) != 0 {
			t.Errorf("%s of blank answer = %v, want empty", key, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Test: generative path with messy engine output
// ---------------------------------------------------------------------------

func TestGenerativePath_RecoversMessyOutput(t *testing.T) {
	engine := newEngineServer(t, func(prompt string) string {
		switch {
		case bytes.Contains([]byte(prompt), []byte("binary search")):
			return "Here are the keywords:\n```json\n[\"binary search\", \"sorted array\", \"binary search\"]\n```"
		case bytes.Contains([]byte(prompt), []byte("栈的特点")):
			return "关键词：栈，后进先出"
		default:
			return "[]"
		}
	})
	runner := newGenerativeRunner(t, engine.URL, true)

	input := writeInputFile(t,
		`{"problem_id":"p000000","problem":"q1","model":"m1","attempt":0,"answer":"binary search over an array","lang":"en"}`,
		`{"problem_id":"p000001","problem":"q2","model":"m1","attempt":0,"answer":"栈的特点是什么","lang":"zh"}`,
		`{"problem_id":"p000002","problem":"q3","model":"m1","attempt":0,"answer":"","lang":"en"}`,
	)
	output := filepath.Join(t.TempDir(), "out.jsonl")

	if _, err := runner.RunFile(context.Background(), input, output, pipeline.PathGenerative); err != nil {
		t.Fatalf("RunFile: %v", err)
	}

	records := readOutputRecords(t, output)
	if len(records) != 3 {
		t.Fatalf("expected 3 output records, got %d", len(records))
	}

	// Fenced JSON array: parsed strictly, deduplicated.
	if got := stringList(t, records[0], "keywords"); !reflect.DeepEqual(got, []string{"binary search", "sorted array"}) {
		t.Errorf("keywords[0] = %v", got)
	}
	if _, ok := records[0]["keywords_raw"].(string); !ok {
		t.Errorf("keywords_raw missing on record 0: %v", records[0])
	}

	// Bracketless prose: split on CJK delimiters.
	if got := stringList(t, records[1], "keywords"); !reflect.DeepEqual(got, []string{"关键词：栈", "后进先出"}) {
		t.Errorf("keywords[1] = %v", got)
	}

	// Empty answer skips the engine and pins an empty list.
	if got := stringList(t, records[2], "keywords"); len(got) != 0 {
		t.Errorf("keywords[2] = %v, want empty", got)
	}
}

// The prompt for "binary search over an array" must contain the answer
// verbatim; this is what the engine double keys on. Guard it here so a
// prompt-template change fails loudly instead of silently rerouting the
// doubles.
func TestPromptEmbedsAnswer(t *testing.T) {
	prompt := llmkw.BuildPrompt("binary search over an array", record.LangEN)
	if !bytes.Contains([]byte(prompt), []byte("binary search over an array")) {
		t.Fatalf("prompt does not embed the answer: %q", prompt)
	}
}

// ---------------------------------------------------------------------------
// Test: HTTP API over the full router
// ---------------------------------------------------------------------------

func TestServeAPI_EndToEnd(t *testing.T) {
	annotatorSrv := newAnnotatorServer(t)
	engineSrv := newEngineServer(t, func(string) string {
		return `["recursion", "base case"]`
	})

	annotator, err := deprule.NewHTTPAnnotator(deprule.AnnotatorConfig{
		BaseURL: annotatorSrv.URL,
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("build annotator: %v", err)
	}
	engine, err := llmkw.NewHTTPEngine(llmkw.EngineConfig{
		BaseURL: engineSrv.URL,
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
	runner := pipeline.NewRunner(testPipelineConfig(), annotator, deprule.NewFilter(), extractor, nil)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "keyterm",
		Subsystem: "e2e",
	}, nil)
	if err != nil {
		t.Fatalf("build collector: %v", err)
	}

	router := httpiface.NewRouter(httpiface.RouterConfig{
		Mode:           "test",
		ExtractHandler: handlers.NewExtractHandler(runner, record.LangEN, nil),
		HealthHandler:  handlers.NewHealthHandler("test", nil),
		Metrics:        prometheus.NewAppMetrics(collector),
		MetricsSrv:     collector.Handler(),
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	post := func(path, body string) (int, map[string]interface{}) {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer resp.Body.Close()
		var payload map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
		return resp.StatusCode, payload
	}

	status, payload := post("/api/v1/extract", `{"answer":"the stack stores linear frames"}`)
	if status != http.StatusOK {
		t.Fatalf("extract status = %d, body %v", status, payload)
	}
	if got := stringList(t, payload, "keywords"); !reflect.DeepEqual(got, []string{"stack", "frames", "linear"}) {
		t.Errorf("extract keywords = %v", got)
	}

	status, payload = post("/api/v1/keywords", `{"answer":"explain recursion"}`)
	if status != http.StatusOK {
		t.Fatalf("keywords status = %d, body %v", status, payload)
	}
	if got := stringList(t, payload, "keywords"); !reflect.DeepEqual(got, []string{"recursion", "base case"}) {
		t.Errorf("keywords = %v", got)
	}

	recoverBody, err := json.Marshal(map[string]string{
		"raw": "```json\n[\"heap\", \"heap\"]\n```",
	})
	if err != nil {
		t.Fatalf("marshal recover body: %v", err)
	}
	status, payload = post("/api/v1/keywords/recover", string(recoverBody))
	if status != http.StatusOK {
		t.Fatalf("recover status = %d, body %v", status, payload)
	}
	if got := stringList(t, payload, "keywords"); !reflect.DeepEqual(got, []string{"heap"}) {
		t.Errorf("recover keywords = %v", got)
	}

	status, _ = post("/api/v1/extract", `{"lang":"en"}`)
	if status != http.StatusBadRequest {
		t.Errorf("extract without answer: status = %d, want 400", status)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}
