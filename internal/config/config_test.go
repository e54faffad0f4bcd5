package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/humanizer"
	"github.com/valpere/peredit/internal/rewriter"
)

func loadFile(t *testing.T, body string) *Config {
	t.Helper()
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "peredit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Backend)
	assert.Equal(t, "strong", cfg.Strength)
	assert.Equal(t, rewriter.DefaultOpenRouterModel, cfg.OpenRouter.Model)
	assert.Equal(t, 0.9, cfg.OpenRouter.Temperature)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 12000, cfg.Chunk.MaxChars)
	assert.Equal(t, 2, cfg.Chunk.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join("data", "peredit.db"), cfg.DBPath)
}

func TestLoad_File(t *testing.T) {
	cfg := loadFile(t, `
backend: ollama
strength: mild
timeout: 30s
ollama:
  model: qwen2.5
chunk:
  max_chars: 5000
log:
  level: debug
  json: true
profiles:
  gentle:
    chance: 0.05
    hedge_min_words: 12
`)

	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, "mild", cfg.Strength)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5000, cfg.Chunk.MaxChars)
	assert.True(t, cfg.Log.JSON)
	require.Contains(t, cfg.Profiles, "gentle")
	assert.Equal(t, 0.05, cfg.Profiles["gentle"].Chance)
	assert.Equal(t, 12, cfg.Profiles["gentle"].HedgeMinWords)

	rc := cfg.RewriterConfig()
	assert.Equal(t, "qwen2.5", rc.Model)
	assert.Equal(t, rewriter.DefaultOllamaURL, rc.BaseURL)
	assert.Equal(t, 30*time.Second, rc.Timeout)

	cfg.SetModel("mistral")
	assert.Equal(t, "mistral", cfg.RewriterConfig().Model)
	assert.Equal(t, rewriter.DefaultOpenRouterModel, cfg.OpenRouter.Model)

	oc := cfg.OrchestratorConfig()
	assert.Equal(t, 5000, oc.MaxChars)
	assert.Equal(t, 30*time.Second, oc.Timeout)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PEREDIT_STRENGTH", "extreme")
	t.Setenv("PEREDIT_CHUNK_CONCURRENCY", "4")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg := loadFile(t, "backend: openrouter\n")

	assert.Equal(t, "extreme", cfg.Strength)
	assert.Equal(t, 4, cfg.Chunk.Concurrency)
	assert.Equal(t, "sk-test", cfg.OpenRouter.APIKey)
	assert.Equal(t, "sk-test", cfg.RewriterConfig().APIKey)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	err := Init(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsProfileChanceOutOfRange(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "peredit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  wild:\n    chance: 7\n"), 0644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "wild"`)
}

func TestConfig_Humanizer(t *testing.T) {
	cfg := &Config{Profiles: map[string]humanizer.Profile{"gentle": {Chance: 0.05}}}
	h, err := cfg.Humanizer(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0.05, h.Profile("gentle").Chance)

	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Humanizer(zap.NewNop())
	assert.Error(t, err)
}
