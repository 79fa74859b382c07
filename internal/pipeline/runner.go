package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyTerm-Intelligence/internal/config"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/common"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/deprule"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// Path selects which extraction path a run uses.
type Path string

const (
	// PathRule runs the dependency-rule filter over annotated tokens.
	PathRule Path = "rule"

	// PathGenerative prompts the completion engine and recovers a keyword
	// list from its output.
	PathGenerative Path = "generative"
)

// RecordSink receives the augmented records of a completed run.
type RecordSink interface {
	SaveBatch(ctx context.Context, recs []*record.Record) error
}

// RunStats summarizes one run.
type RunStats struct {
	RunID     string
	Total     int
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Runner executes an extraction path over a set of records.
type Runner struct {
	cfg       config.PipelineConfig
	annotator deprule.Annotator
	filter    *deprule.Filter
	extractor *llmkw.Extractor
	cache     *redis.ExtractionCache
	sink      RecordSink
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithCache enables the per-answer extraction cache.
func WithCache(cache *redis.ExtractionCache) RunnerOption {
	return func(r *Runner) { r.cache = cache }
}

// WithSink persists augmented records after each run.
func WithSink(sink RecordSink) RunnerOption {
	return func(r *Runner) { r.sink = sink }
}

// WithMetrics records per-record and per-batch metrics.
func WithMetrics(m *prometheus.AppMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner builds a Runner. The annotator is required for the rule path and
// the extractor for the generative path; either may be nil when the
// corresponding path is never used.
func NewRunner(cfg config.PipelineConfig, annotator deprule.Annotator, filter *deprule.Filter, extractor *llmkw.Extractor, log logging.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if filter == nil {
		filter = deprule.NewFilter()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}

	r := &Runner{
		cfg:       cfg,
		annotator: annotator,
		filter:    filter,
		extractor: extractor,
		logger:    log.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes items in place and returns run statistics. Item order is
// never changed. With SkipInvalid set, records whose extraction fails are
// left unmodified and counted as failed; otherwise the first failure aborts
// the run.
func (r *Runner) Run(ctx context.Context, items []*Item, path Path) (*RunStats, error) {
	stats := &RunStats{RunID: uuid.New().String(), Total: len(items)}
	start := time.Now()

	logger := r.logger.With(
		logging.String("run_id", stats.RunID),
		logging.String("path", string(path)),
	)
	logger.Info("Run started", logging.Int("records", len(items)))

	if r.metrics != nil {
		r.metrics.PipelineActiveBatches.WithLabelValues(string(path)).Inc()
		defer r.metrics.PipelineActiveBatches.WithLabelValues(string(path)).Dec()
		timer := prometheus.NewTimer(r.metrics.BatchDuration.WithLabelValues(string(path)))
		defer timer.ObserveDuration()
	}

	for _, item := range items {
		r.normalizeLang(&item.Record)
	}

	var err error
	switch path {
	case PathRule:
		err = r.runRule(ctx, items, stats)
	case PathGenerative:
		err = r.runGenerative(ctx, items, stats)
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown extraction path %q", path)
	}
	if err != nil {
		return nil, err
	}

	if r.sink != nil {
		recs := make([]*record.Record, len(items))
		for i, item := range items {
			recs[i] = &item.Record
		}
		if err := r.sink.SaveBatch(ctx, recs); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	logger.Info("Run finished",
		logging.Int("processed", stats.Processed),
		logging.Int("failed", stats.Failed),
		logging.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// runRule fans records out over the batch processor; the annotator is the
// bottleneck, not the filter.
func (r *Runner) runRule(ctx context.Context, items []*Item, stats *RunStats) error {
	if r.annotator == nil {
		return errors.New(errors.ErrCodeValidation, "rule path requires an annotator")
	}

	processor := common.NewBatchProcessor[*Item, *deprule.ExtractionResult](
		common.WithMaxConcurrency(r.cfg.Concurrency),
		common.WithBatchLogger(r.logger),
	)
	defer processor.Shutdown(context.Background())

	result, err := processor.Process(ctx, items, func(ctx context.Context, item *Item) (*deprule.ExtractionResult, error) {
		return r.ruleExtract(ctx, &item.Record)
	})
	if err != nil {
		return err
	}

	for _, ir := range result.Results {
		item := items[ir.Index]
		if ir.Error != nil {
			stats.Failed++
			r.observeRecord(PathRule, item.Record.Lang, "error", 0)
			if !r.cfg.SkipInvalid {
				return errors.Wrap(ir.Error, errors.ErrCodeAnnotationFailed, "rule extraction failed")
			}
			r.logger.Warn("Rule extraction failed, record left unmodified",
				logging.String("key", item.Record.Key()),
				logging.Err(ir.Error))
			continue
		}
		item.applyRuleResult(ir.Result)
		stats.Processed++
		r.observeRecord(PathRule, item.Record.Lang, "success", len(ir.Result.Keywords))
	}
	return nil
}

// ruleExtract annotates and filters one answer, consulting the cache when
// configured. Blank answers never reach the annotator.
func (r *Runner) ruleExtract(ctx context.Context, rec *record.Record) (*deprule.ExtractionResult, error) {
	if strings.TrimSpace(rec.Answer) == "" {
		return &deprule.ExtractionResult{
			Nouns:            []string{},
			Adjectives:       []string{},
			NominalizedVerbs: []string{},
			Keywords:         []string{},
		}, nil
	}

	load := func(ctx context.Context) (*deprule.ExtractionResult, error) {
		tokens, err := r.annotator.Annotate(ctx, rec.Answer, rec.Lang)
		if err != nil {
			return nil, err
		}
		res := r.filter.Extract(tokens, rec.Lang)
		return &res, nil
	}

	if r.cache != nil {
		return r.cache.RuleResult(ctx, rec.Lang, rec.Answer, load)
	}
	return load(ctx)
}

// runGenerative mirrors the batch shape of the engine: prompts go out in
// batchSize groups, one engine call per group.
func (r *Runner) runGenerative(ctx context.Context, items []*Item, stats *RunStats) error {
	if r.extractor == nil {
		return errors.New(errors.ErrCodeValidation, "generative path requires an extractor")
	}

	// The cache changes the unit of work from batch to record, so the two
	// modes are separate loops.
	if r.cache != nil {
		return r.runGenerativeCached(ctx, items, stats)
	}

	for begin := 0; begin < len(items); begin += r.cfg.BatchSize {
		end := begin + r.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[begin:end]

		inputs := make([]llmkw.Input, len(chunk))
		for i, item := range chunk {
			inputs[i] = llmkw.Input{Answer: item.Record.Answer, Lang: item.Record.Lang}
		}

		outputs, err := r.extractor.ExtractBatch(ctx, inputs)
		if err != nil {
			stats.Failed += len(chunk)
			if !r.cfg.SkipInvalid {
				return err
			}
			r.logger.Warn("Generative batch failed, records left unmodified",
				logging.Int("from_line", chunk[0].Line),
				logging.Err(err))
			continue
		}

		for i, out := range outputs {
			chunk[i].applyKeywords(out.Keywords, out.Raw, r.cfg.KeepRaw)
			stats.Processed++
			r.observeRecord(PathGenerative, chunk[i].Record.Lang, "success", len(out.Keywords))
		}
	}
	return nil
}

func (r *Runner) runGenerativeCached(ctx context.Context, items []*Item, stats *RunStats) error {
	for _, item := range items {
		rec := &item.Record
		keywords, err := r.cache.Keywords(ctx, rec.Lang, rec.Answer, func(ctx context.Context) ([]string, error) {
			out, err := r.extractor.Extract(ctx, rec.Answer, rec.Lang)
			if err != nil {
				return nil, err
			}
			if r.cfg.KeepRaw {
				rec.KeywordsRaw = out.Raw
			}
			return out.Keywords, nil
		})
		if err != nil {
			stats.Failed++
			r.observeRecord(PathGenerative, rec.Lang, "error", 0)
			if !r.cfg.SkipInvalid {
				return err
			}
			continue
		}
		item.applyKeywords(keywords, rec.KeywordsRaw, r.cfg.KeepRaw)
		stats.Processed++
		r.observeRecord(PathGenerative, rec.Lang, "success", len(keywords))
	}
	return nil
}

// defaultLang resolves the configured fallback language tag.
func (r *Runner) defaultLang() record.Language {
	return record.ParseLanguage(r.cfg.DefaultLang, record.LangEN)
}

// normalizeLang canonicalizes a record's language tag before policy
// dispatch. Tags differing only in case, whitespace, or a region suffix map
// to their canonical form; anything else falls back to the configured
// default.
func (r *Runner) normalizeLang(rec *record.Record) {
	rec.Lang = record.ParseLanguage(string(rec.Lang), r.defaultLang())
}

// ProcessRecord runs one record through the given path in place. Used by the
// streaming source and the HTTP API, where records arrive one at a time.
func (r *Runner) ProcessRecord(ctx context.Context, rec *record.Record, path Path) error {
	r.normalizeLang(rec)
	item := &Item{Record: *rec}
	switch path {
	case PathRule:
		res, err := r.ruleExtract(ctx, rec)
		if err != nil {
			r.observeRecord(PathRule, rec.Lang, "error", 0)
			return err
		}
		item.applyRuleResult(res)
		r.observeRecord(PathRule, rec.Lang, "success", len(res.Keywords))
	case PathGenerative:
		if r.extractor == nil {
			return errors.New(errors.ErrCodeValidation, "generative path requires an extractor")
		}
		out, err := r.extractor.Extract(ctx, rec.Answer, rec.Lang)
		if err != nil {
			r.observeRecord(PathGenerative, rec.Lang, "error", 0)
			return err
		}
		item.applyKeywords(out.Keywords, out.Raw, r.cfg.KeepRaw)
		r.observeRecord(PathGenerative, rec.Lang, "success", len(out.Keywords))
	default:
		return errors.Newf(errors.ErrCodeValidation, "unknown extraction path %q", path)
	}
	*rec = item.Record
	return nil
}

func (r *Runner) observeRecord(path Path, lang record.Language, status string, keywords int) {
	if r.metrics == nil {
		return
	}
	prometheus.RecordProcessed(r.metrics, string(path), string(lang), status, keywords)
}

// applyRuleResult merges rule-path output into the record and pins the
// output fields so empty lists survive serialization.
func (it *Item) applyRuleResult(res *deprule.ExtractionResult) {
	it.Record.Nouns = res.Nouns
	it.Record.Adjectives = res.Adjectives
	it.Record.NominalizedVerbs = res.NominalizedVerbs
	it.Record.Keywords = res.Keywords

	it.setOutput("nouns", res.Nouns)
	it.setOutput("adjectives", res.Adjectives)
	it.setOutput("nominalized_verbs", res.NominalizedVerbs)
	it.setOutput("keywords", res.Keywords)
}

// applyKeywords merges generative-path output into the record. Raw engine
// output is only kept when there is some: cache hits and skipped engine
// calls carry no raw text, and an empty keywords_raw field would be noise.
func (it *Item) applyKeywords(keywords []string, raw string, keepRaw bool) {
	if keywords == nil {
		keywords = []string{}
	}
	it.Record.Keywords = keywords
	it.setOutput("keywords", keywords)
	if keepRaw && raw != "" {
		it.Record.KeywordsRaw = raw
		it.setOutput("keywords_raw", raw)
	}
}
