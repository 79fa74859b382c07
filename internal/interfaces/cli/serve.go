package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpiface "github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http"
	"github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
)

var (
	serveCache bool
	serveDB    bool
)

// NewServeCmd creates the API server command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction API server",
		Long:  "Serve the HTTP extraction API: one-off rule and generative extraction,\nraw-output recovery, record queries, health checks, and Prometheus metrics.",
		RunE:  runServe,
	}

	cmd.Flags().BoolVar(&serveCache, "cache", false, "cache per-answer results in Redis")
	cmd.Flags().BoolVar(&serveDB, "db", false, "connect PostgreSQL and expose the records endpoints")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	log := cliCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "keyterm"}, log)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	annotator, err := buildAnnotator(cliCtx)
	if err != nil {
		return err
	}
	filter, err := buildFilter(cliCtx, "")
	if err != nil {
		return err
	}
	extractor, err := buildExtractor(cliCtx)
	if err != nil {
		return err
	}

	runnerOpts := []pipeline.RunnerOption{pipeline.WithMetrics(metrics)}
	checks := map[string]handlers.HealthCheck{}

	if serveCache {
		client, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			return err
		}
		defer client.Close()

		cache := redis.NewRedisCache(client, log,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
		)
		runnerOpts = append(runnerOpts, pipeline.WithCache(redis.NewExtractionCache(cache, cfg.Redis.DefaultTTL)))
		checks["redis"] = client.Ping
	}

	var recordsHandler *handlers.RecordsHandler
	if serveDB {
		pool, err := postgres.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := repositories.NewRecordRepository(pool, logging.NewKVLogger(log))
		recordsHandler = handlers.NewRecordsHandler(repo)
		runnerOpts = append(runnerOpts, pipeline.WithSink(repo))
		checks["postgres"] = pool.Ping
	}

	runner := pipeline.NewRunner(cfg.Pipeline, annotator, filter, extractor, log, runnerOpts...)

	router := httpiface.NewRouter(httpiface.RouterConfig{
		Mode:           cfg.Server.Mode,
		ExtractHandler: handlers.NewExtractHandler(runner, cfg.DefaultLanguage(), log),
		RecordsHandler: recordsHandler,
		HealthHandler:  handlers.NewHealthHandler(Version, checks),
		Logger:         log,
		Metrics:        metrics,
		MetricsSrv:     collector.Handler(),
	})

	server := httpiface.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return server.Shutdown(context.Background())
}
