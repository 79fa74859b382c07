package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ExtractRequest is the body of the one-off extraction endpoints.
type ExtractRequest struct {
	Answer string `json:"answer" binding:"required"`
	Lang   string `json:"lang"`
}

// ExtractResponse carries the rule-path term lists.
type ExtractResponse struct {
	Lang             string   `json:"lang"`
	Nouns            []string `json:"nouns"`
	Adjectives       []string `json:"adjectives"`
	NominalizedVerbs []string `json:"nominalized_verbs"`
	Keywords         []string `json:"keywords"`
}

// KeywordsResponse carries the generative-path keyword list.
type KeywordsResponse struct {
	Lang     string   `json:"lang"`
	Keywords []string `json:"keywords"`
	Raw      string   `json:"raw,omitempty"`
}

// RecoverRequest is the body of the raw-output recovery endpoint.
type RecoverRequest struct {
	Raw string `json:"raw" binding:"required"`
}

// RecoverResponse carries the recovered keyword list.
type RecoverResponse struct {
	Keywords []string `json:"keywords"`
}

// ExtractHandler serves one-off extraction requests through the pipeline
// runner, so HTTP traffic shares the cache and metrics of batch runs.
type ExtractHandler struct {
	runner      *pipeline.Runner
	defaultLang record.Language
	logger      logging.Logger
}

// NewExtractHandler builds an ExtractHandler.
func NewExtractHandler(runner *pipeline.Runner, defaultLang record.Language, log logging.Logger) *ExtractHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ExtractHandler{
		runner:      runner,
		defaultLang: defaultLang,
		logger:      log.Named("http"),
	}
}

// resolveLang applies the tag-then-detect language policy to one request.
func (h *ExtractHandler) resolveLang(req *ExtractRequest) record.Language {
	if lang := record.ParseLanguage(req.Lang, ""); lang != "" {
		return lang
	}
	if h.defaultLang != "" {
		return h.defaultLang
	}
	return record.DetectLanguage(req.Answer)
}

// Extract handles POST /api/v1/extract: the dependency-rule path.
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if !bindJSON(c, &req) {
		return
	}

	rec := record.Record{Answer: req.Answer, Lang: h.resolveLang(&req)}
	if err := h.runner.ProcessRecord(c.Request.Context(), &rec, pipeline.PathRule); err != nil {
		h.logger.Error("Rule extraction failed", logging.Err(err))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{
		Lang:             string(rec.Lang),
		Nouns:            rec.Nouns,
		Adjectives:       rec.Adjectives,
		NominalizedVerbs: rec.NominalizedVerbs,
		Keywords:         rec.Keywords,
	})
}

// Keywords handles POST /api/v1/keywords: the generative path.
func (h *ExtractHandler) Keywords(c *gin.Context) {
	var req ExtractRequest
	if !bindJSON(c, &req) {
		return
	}

	rec := record.Record{Answer: req.Answer, Lang: h.resolveLang(&req)}
	if err := h.runner.ProcessRecord(c.Request.Context(), &rec, pipeline.PathGenerative); err != nil {
		h.logger.Error("Generative extraction failed", logging.Err(err))
		writeAppError(c, err)
		return
	}

	keywords := rec.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	c.JSON(http.StatusOK, KeywordsResponse{
		Lang:     string(rec.Lang),
		Keywords: keywords,
		Raw:      rec.KeywordsRaw,
	})
}

// Recover handles POST /api/v1/keywords/recover: it applies the recovery
// cascade to raw model output without calling the engine.
func (h *ExtractHandler) Recover(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	c.JSON(http.StatusOK, RecoverResponse{Keywords: llmkw.Recover(req.Raw)})
}
