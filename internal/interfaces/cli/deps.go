package cli

import (
	"context"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/deprule"
	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
)

// buildAnnotator constructs the HTTP annotator client from configuration.
func buildAnnotator(cliCtx *CLIContext) (deprule.Annotator, error) {
	cfg := cliCtx.Config.Annotator
	return deprule.NewHTTPAnnotator(deprule.AnnotatorConfig{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}, cliCtx.Logger)
}

// buildFilter constructs the rule filter, honoring a stoplist override.
func buildFilter(cliCtx *CLIContext, stoplistPath string) (*deprule.Filter, error) {
	if stoplistPath == "" {
		stoplistPath = cliCtx.Config.Pipeline.StoplistPath
	}
	if stoplistPath == "" {
		return deprule.NewFilter(), nil
	}
	words, err := deprule.LoadStoplist(stoplistPath)
	if err != nil {
		return nil, err
	}
	return deprule.NewFilterWithStoplist(words), nil
}

// buildExtractor constructs the generative extractor over the completion
// engine client.
func buildExtractor(cliCtx *CLIContext) (*llmkw.Extractor, error) {
	cfg := cliCtx.Config.Engine
	engine, err := llmkw.NewHTTPEngine(llmkw.EngineConfig{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, cliCtx.Logger)
	if err != nil {
		return nil, err
	}
	return llmkw.NewExtractor(engine, cfg.BatchSize, cliCtx.Logger)
}

// openCache connects to Redis and wraps it in the extraction cache. The
// returned closer must be called when the run finishes.
func openCache(cliCtx *CLIContext) (*redis.ExtractionCache, func() error, error) {
	client, err := redis.NewClient(cliCtx.Config.Redis, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cache := redis.NewRedisCache(client, cliCtx.Logger,
		redis.WithPrefix(cliCtx.Config.Redis.KeyPrefix),
		redis.WithDefaultTTL(cliCtx.Config.Redis.DefaultTTL),
	)
	return redis.NewExtractionCache(cache, cliCtx.Config.Redis.DefaultTTL), client.Close, nil
}

// openSink connects to PostgreSQL and returns the record repository as a run
// sink. The returned closer must be called when the run finishes.
func openSink(ctx context.Context, cliCtx *CLIContext) (pipeline.RecordSink, func(), error) {
	pool, err := postgres.NewPool(ctx, cliCtx.Config.Database, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	repo := repositories.NewRecordRepository(pool, logging.NewKVLogger(cliCtx.Logger))
	return repo, pool.Close, nil
}

// runnerOptions assembles the optional cache and sink for a file run, and
// returns a cleanup function releasing whatever was opened.
func runnerOptions(ctx context.Context, cliCtx *CLIContext, useCache, save bool) ([]pipeline.RunnerOption, func(), error) {
	var opts []pipeline.RunnerOption
	var closers []func()

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if useCache {
		cache, closeCache, err := openCache(cliCtx)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = closeCache() })
		opts = append(opts, pipeline.WithCache(cache))
	}

	if save {
		sink, closeSink, err := openSink(ctx, cliCtx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeSink)
		opts = append(opts, pipeline.WithSink(sink))
	}

	return opts, cleanup, nil
}
