package llmkw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

// CompletionEngine maps a batch of prompts to a batch of raw completions,
// output[i] corresponding to prompt[i].
type CompletionEngine interface {
	Complete(ctx context.Context, prompts []string) ([]string, error)
}

// EngineConfig configures the HTTP completion engine client.
type EngineConfig struct {
	// BaseURL is the root of the completion service, e.g. "http://localhost:8000".
	BaseURL string

	// Model is the model identifier sent with every request.
	Model string

	// Timeout bounds one completion request including body read.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after a failed request.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// MaxTokens caps the generated output length per prompt.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// TopP is the nucleus sampling parameter.
	TopP float64
}

// Validate checks required fields and applies defaults.
func (c *EngineConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New(errors.ErrCodeBadRequest, "engine: base URL is required")
	}
	if c.Model == "" {
		return errors.New(errors.ErrCodeBadRequest, "engine: model is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	if c.TopP <= 0 {
		c.TopP = 0.9
	}
	return nil
}

// completionRequest is the OpenAI-style wire format of POST /v1/completions
// with a prompt array.
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      []string `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
}

type completionChoice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
}

type httpEngine struct {
	cfg    EngineConfig
	client *http.Client
	logger logging.Logger
}

// NewHTTPEngine builds a CompletionEngine backed by an OpenAI-compatible
// completion endpoint such as a vLLM server.
func NewHTTPEngine(cfg EngineConfig, logger logging.Logger) (CompletionEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &httpEngine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("engine"),
	}, nil
}

func (e *httpEngine) Complete(ctx context.Context, prompts []string) ([]string, error) {
	if len(prompts) == 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(completionRequest{
		Model:       e.cfg.Model,
		Prompt:      prompts,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		TopP:        e.cfg.TopP,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "engine: failed to encode request")
	}

	url := e.cfg.BaseURL + "/v1/completions"

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.logger.Debug("retrying completion request",
				logging.Int("attempt", attempt),
				logging.Err(lastErr),
			)
			select {
			case <-time.After(e.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeEngineUnavailable, "engine: request cancelled")
			}
		}

		outputs, err := e.doComplete(ctx, url, body, len(prompts))
		if err == nil {
			return outputs, nil
		}
		lastErr = err

		if errors.IsCode(err, errors.ErrCodeEngineInputInvalid) {
			break
		}
	}
	return nil, lastErr
}

func (e *httpEngine) doComplete(ctx context.Context, url string, body []byte, n int) ([]string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "engine: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEngineUnavailable, "engine: request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.ErrCodeEngineInputInvalid,
			"engine: rejected request with status %d", resp.StatusCode).
			WithDetail(fmt.Sprintf("body: %.200s", payload))
	default:
		return nil, errors.Newf(errors.ErrCodeInferenceFailed,
			"engine: unexpected status %d", resp.StatusCode)
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInferenceFailed, "engine: failed to decode response")
	}

	// Choices arrive keyed by index; place each into its prompt slot.
	outputs := make([]string, n)
	for _, ch := range cr.Choices {
		if ch.Index < 0 || ch.Index >= n {
			return nil, errors.Newf(errors.ErrCodeInferenceFailed,
				"engine: choice index %d out of range for %d prompts", ch.Index, n)
		}
		outputs[ch.Index] = ch.Text
	}

	e.logger.Debug("completion batch finished",
		logging.Int("prompts", n),
		logging.Duration("elapsed", time.Since(start)),
	)
	return outputs, nil
}
