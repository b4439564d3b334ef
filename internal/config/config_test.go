package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "financial.db", cfg.Store.Path)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, "dataset", cfg.Ingest.DataDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINQA_STORE_DRIVER", "postgres")
	t.Setenv("FINQA_STORE_DATABASE_URL", "postgres://localhost/finqa")
	t.Setenv("FINQA_LLM_PROVIDER", "openai")
	t.Setenv("FINQA_LLM_KEY", "sk-test")
	t.Setenv("FINQA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/finqa", cfg.Store.DatabaseURL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.Key)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
