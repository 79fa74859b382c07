package deprule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

func newTestAnnotator(t *testing.T, handler http.HandlerFunc) Annotator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ann, err := NewHTTPAnnotator(AnnotatorConfig{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return ann
}

func TestHTTPAnnotator_Success(t *testing.T) {
	ann := newTestAnnotator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/annotate", r.URL.Path)

		var req annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the cell divides", req.Text)
		assert.Equal(t, "en", req.Lang)

		json.NewEncoder(w).Encode(annotateResponse{Tokens: []AnnotatedToken{
			{Text: "the", Lower: "the", POS: "DET", Dep: "det"},
			{Text: "cell", Lower: "cell", POS: "NOUN", Dep: "nsubj", Head: 2},
			{Text: "divides", Lower: "divides", POS: "VERB", Dep: "root", Head: 2},
		}})
	})

	tokens, err := ann.Annotate(context.Background(), "the cell divides", record.LangEN)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "cell", tokens[1].Text)
	assert.Equal(t, "nsubj", tokens[1].Dep)
}

func TestHTTPAnnotator_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	ann := newTestAnnotator(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(annotateResponse{Tokens: []AnnotatedToken{}})
	})

	_, err := ann.Annotate(context.Background(), "x", record.LangEN)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPAnnotator_ServerErrorExhaustsRetries(t *testing.T) {
	var calls int32
	ann := newTestAnnotator(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := ann.Annotate(context.Background(), "x", record.LangEN)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnnotationFailed))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestHTTPAnnotator_MalformedResponseNotRetried(t *testing.T) {
	var calls int32
	ann := newTestAnnotator(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("not json"))
	})

	_, err := ann.Annotate(context.Background(), "x", record.LangEN)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnnotatorParseError))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPAnnotator_ContextCancelled(t *testing.T) {
	ann := newTestAnnotator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ann.Annotate(ctx, "x", record.LangEN)
	assert.Error(t, err)
}

func TestNewHTTPAnnotator_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPAnnotator(AnnotatorConfig{}, nil)
	assert.Error(t, err)
}

func TestAnnotatorConfig_Defaults(t *testing.T) {
	cfg := AnnotatorConfig{BaseURL: "http://localhost:8081"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
}

func TestLoadStoplist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.txt")
	content := "# custom stop tokens\nfoo\n\n  bar  \nbaz\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	words, err := LoadStoplist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, words)
}

func TestLoadStoplist_MissingFile(t *testing.T) {
	_, err := LoadStoplist("does_not_exist.txt")
	assert.Error(t, err)
}
