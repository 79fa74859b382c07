package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// validConfig returns a Config that passes Validate, for per-field mutation
// in the tests below.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_ServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RedisAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_AnnotatorRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Annotator.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Annotator.MaxParallel = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_EngineRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.Model = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_PipelineLang(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.DefaultLang = "fr"
	assert.Error(t, cfg.Validate())

	cfg.Pipeline.DefaultLang = "zh"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, record.LangZH, cfg.DefaultLanguage())
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "trace"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Log.Format = "text"
	assert.Error(t, cfg.Validate())
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
