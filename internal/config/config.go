// Package config defines all configuration structures for
// KeyTerm-Intelligence.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the record store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the extraction cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka parameters for the streaming record source and the
// extracted-record sink.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	InputTopic      string   `mapstructure:"input_topic"`
	OutputTopic     string   `mapstructure:"output_topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
}

// AnnotatorConfig holds parameters for the dependency annotation service used
// by the rule-based extraction path.
type AnnotatorConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	MaxParallel int           `mapstructure:"max_parallel"`
}

// EngineConfig holds parameters for the completion engine used by the
// generative extraction path.
type EngineConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	BatchSize   int           `mapstructure:"batch_size"`
}

// PipelineConfig holds record-pipeline behaviour knobs.
type PipelineConfig struct {
	// DefaultLang is applied to records whose source omits a language tag.
	DefaultLang string `mapstructure:"default_lang"` // "en" | "zh"

	// BatchSize is the number of records processed per batch.
	BatchSize int `mapstructure:"batch_size"`

	// Concurrency bounds the number of batches in flight.
	Concurrency int `mapstructure:"concurrency"`

	// KeepRaw preserves the unparsed engine output on each record.
	KeepRaw bool `mapstructure:"keep_raw"`

	// SkipInvalid drops malformed input lines instead of aborting the run.
	SkipInvalid bool `mapstructure:"skip_invalid"`

	// ValidateSchema runs every output record through the JSON schema before
	// it reaches the sink.
	ValidateSchema bool `mapstructure:"validate_schema"`

	// StoplistPath optionally overrides the built-in English stop-token list
	// with a newline-delimited file.
	StoplistPath string `mapstructure:"stoplist_path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every component reads its
// settings from the relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Annotator AnnotatorConfig `mapstructure:"annotator"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Log       LogConfig       `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Annotator
	if c.Annotator.BaseURL == "" {
		return fmt.Errorf("config: annotator.base_url is required")
	}
	if c.Annotator.MaxParallel < 1 {
		return fmt.Errorf("config: annotator.max_parallel must be >= 1, got %d", c.Annotator.MaxParallel)
	}

	// Engine
	if c.Engine.BaseURL == "" {
		return fmt.Errorf("config: engine.base_url is required")
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("config: engine.model is required")
	}
	if c.Engine.BatchSize < 1 {
		return fmt.Errorf("config: engine.batch_size must be >= 1, got %d", c.Engine.BatchSize)
	}

	// Pipeline
	switch record.Language(c.Pipeline.DefaultLang) {
	case record.LangEN, record.LangZH:
	default:
		return fmt.Errorf("config: pipeline.default_lang %q is invalid; expected en|zh", c.Pipeline.DefaultLang)
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("config: pipeline.batch_size must be >= 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// DefaultLanguage returns the pipeline fallback language as a typed value.
func (c *Config) DefaultLanguage() record.Language {
	return record.Language(c.Pipeline.DefaultLang)
}
