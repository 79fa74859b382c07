// Package config provides configuration loading, defaults, and validation for
// KeyTerm-Intelligence.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "keyterm"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "keyterm"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "keyterm-pipeline"
	DefaultKafkaInputTopic  = "keyterm.records.raw"
	DefaultKafkaOutputTopic = "keyterm.records.extracted"

	DefaultAnnotatorURL      = "http://localhost:8081"
	DefaultAnnotatorParallel = 4

	DefaultEngineURL       = "http://localhost:8000"
	DefaultEngineModel     = "Qwen2-7B-Instruct"
	DefaultEngineMaxTokens = 256
	DefaultEngineBatchSize = 32

	DefaultPipelineLang        = "en"
	DefaultPipelineBatchSize   = 64
	DefaultPipelineConcurrency = 4

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the project default.
// Fields already set by the caller are left unchanged so explicit
// configuration always wins.  Call after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.InputTopic == "" {
		cfg.Kafka.InputTopic = DefaultKafkaInputTopic
	}
	if cfg.Kafka.OutputTopic == "" {
		cfg.Kafka.OutputTopic = DefaultKafkaOutputTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}

	// ── Annotator ─────────────────────────────────────────────────────────────
	if cfg.Annotator.BaseURL == "" {
		cfg.Annotator.BaseURL = DefaultAnnotatorURL
	}
	if cfg.Annotator.Timeout == 0 {
		cfg.Annotator.Timeout = 30 * time.Second
	}
	if cfg.Annotator.MaxRetries == 0 {
		cfg.Annotator.MaxRetries = 3
	}
	if cfg.Annotator.RetryDelay == 0 {
		cfg.Annotator.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Annotator.MaxParallel == 0 {
		cfg.Annotator.MaxParallel = DefaultAnnotatorParallel
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = DefaultEngineURL
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = DefaultEngineModel
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = 120 * time.Second
	}
	if cfg.Engine.MaxRetries == 0 {
		cfg.Engine.MaxRetries = 3
	}
	if cfg.Engine.RetryDelay == 0 {
		cfg.Engine.RetryDelay = time.Second
	}
	if cfg.Engine.MaxTokens == 0 {
		cfg.Engine.MaxTokens = DefaultEngineMaxTokens
	}
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = DefaultEngineBatchSize
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.DefaultLang == "" {
		cfg.Pipeline.DefaultLang = DefaultPipelineLang
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = DefaultPipelineBatchSize
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultPipelineConcurrency
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
