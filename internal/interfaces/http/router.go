// Package http wires the gin route tree and the HTTP server for the
// extraction API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyTerm-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// mounts. Nil handlers leave their routes unregistered, so a deployment
// without a database simply has no records endpoints.
type RouterConfig struct {
	Mode string // gin mode: "debug" | "release" | "test"

	ExtractHandler *handlers.ExtractHandler
	RecordsHandler *handlers.RecordsHandler
	HealthHandler  *handlers.HealthHandler

	Logger     logging.Logger
	Metrics    *prometheus.AppMetrics
	MetricsSrv http.Handler // the /metrics scrape endpoint
}

// NewRouter constructs the complete route tree as a gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestMetrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsSrv != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsSrv))
	}

	api := r.Group("/api/v1")
	{
		if cfg.ExtractHandler != nil {
			api.POST("/extract", cfg.ExtractHandler.Extract)
			api.POST("/keywords", cfg.ExtractHandler.Keywords)
			api.POST("/keywords/recover", cfg.ExtractHandler.Recover)
		}
		if cfg.RecordsHandler != nil {
			records := api.Group("/records")
			records.GET("/search", cfg.RecordsHandler.Search)
			records.GET("/stats/models", cfg.RecordsHandler.Stats)
			records.GET("/:problem_id", cfg.RecordsHandler.ListByProblem)
			records.GET("/:problem_id/:model/:attempt", cfg.RecordsHandler.Get)
			records.DELETE("/:problem_id", cfg.RecordsHandler.DeleteByProblem)
		}
	}

	return r
}
