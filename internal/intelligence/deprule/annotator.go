package deprule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// Annotator maps a text and language to its dependency-annotated token
// sequence.  Implementations must populate every token's POS tag, relation,
// lower-cased form, and the three boolean flags.
type Annotator interface {
	Annotate(ctx context.Context, text string, lang record.Language) ([]AnnotatedToken, error)
}

// AnnotatorConfig configures the HTTP annotator client.
type AnnotatorConfig struct {
	// BaseURL is the root of the annotation service, e.g. "http://localhost:8081".
	BaseURL string

	// Timeout bounds one annotate request including body read.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after a failed request.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// Validate checks the config for required fields and applies defaults.
func (c *AnnotatorConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New(errors.ErrCodeBadRequest, "annotator: base URL is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return nil
}

// annotateRequest is the wire format of POST /annotate.
type annotateRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// annotateResponse is the wire format of the annotation service reply.
type annotateResponse struct {
	Tokens []AnnotatedToken `json:"tokens"`
}

type httpAnnotator struct {
	cfg    AnnotatorConfig
	client *http.Client
	logger logging.Logger
}

// NewHTTPAnnotator builds an Annotator backed by the external annotation
// service.
func NewHTTPAnnotator(cfg AnnotatorConfig, logger logging.Logger) (Annotator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &httpAnnotator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("annotator"),
	}, nil
}

func (a *httpAnnotator) Annotate(ctx context.Context, text string, lang record.Language) ([]AnnotatedToken, error) {
	// Mixed-form input produces unstable token boundaries, so normalize
	// before the annotator sees it.
	text = norm.NFC.String(text)

	body, err := json.Marshal(annotateRequest{Text: text, Lang: string(lang)})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "annotator: failed to encode request")
	}

	url := a.cfg.BaseURL + "/annotate"

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			a.logger.Debug("retrying annotate request",
				logging.Int("attempt", attempt),
				logging.Err(lastErr),
			)
			select {
			case <-time.After(a.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeAnnotatorUnavailable, "annotator: request cancelled")
			}
		}

		tokens, err := a.doAnnotate(ctx, url, body)
		if err == nil {
			return tokens, nil
		}
		lastErr = err

		// Client-side errors will not improve on retry.
		if errors.IsCode(err, errors.ErrCodeAnnotatorParseError) {
			break
		}
	}
	return nil, lastErr
}

func (a *httpAnnotator) doAnnotate(ctx context.Context, url string, body []byte) ([]AnnotatedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "annotator: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnnotatorUnavailable, "annotator: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.ErrCodeAnnotationFailed,
			"annotator: unexpected status %d", resp.StatusCode).
			WithDetail(fmt.Sprintf("body: %.200s", payload))
	}

	var ar annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnnotatorParseError, "annotator: failed to decode response")
	}
	return ar.Tokens, nil
}
