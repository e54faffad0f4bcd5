// Package config loads peredit settings from a YAML file, PEREDIT_*
// environment variables and a local .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/humanizer"
	"github.com/valpere/peredit/internal/orchestrator"
	"github.com/valpere/peredit/internal/rewriter"
)

const (
	AppName   = "peredit"
	EnvPrefix = "PEREDIT"
)

type OpenRouterConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type ChunkConfig struct {
	MaxChars    int `mapstructure:"max_chars"`
	Concurrency int `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type Config struct {
	Backend   string        `mapstructure:"backend"`
	Strength  string        `mapstructure:"strength"`
	RulesFile string        `mapstructure:"rules_file"`
	DBPath    string        `mapstructure:"db_path"`
	NoCache   bool          `mapstructure:"no_cache"`
	Timeout   time.Duration `mapstructure:"timeout"`

	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Server     ServerConfig     `mapstructure:"server"`
	Chunk      ChunkConfig      `mapstructure:"chunk"`
	Log        LogConfig        `mapstructure:"log"`

	// Profiles add or override humanizer strength levels.
	Profiles map[string]humanizer.Profile `mapstructure:"profiles"`
}

// SetDefaults registers every key so environment variables are picked up
// by Unmarshal even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", "openrouter")
	v.SetDefault("strength", humanizer.DefaultProfileName)
	v.SetDefault("rules_file", "")
	v.SetDefault("db_path", filepath.Join("data", AppName+".db"))
	v.SetDefault("no_cache", false)
	v.SetDefault("timeout", rewriter.DefaultTimeout)

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", rewriter.DefaultOpenRouterModel)
	v.SetDefault("openrouter.base_url", rewriter.DefaultOpenRouterURL)
	v.SetDefault("openrouter.temperature", rewriter.DefaultTemperature)

	v.SetDefault("ollama.base_url", rewriter.DefaultOllamaURL)
	v.SetDefault("ollama.model", rewriter.DefaultOllamaModel)

	v.SetDefault("server.addr", ":8000")

	v.SetDefault("chunk.max_chars", 12000)
	v.SetDefault("chunk.concurrency", orchestrator.DefaultConcurrency)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Init wires v to its sources: an explicit cfgFile, or peredit.yaml in the
// working directory or ~/.config/peredit; PEREDIT_* variables (dots become
// underscores); OPENROUTER_API_KEY as a fallback for the key; and .env.
// A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openrouter.api_key", EnvPrefix+"_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load unmarshals v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for name, p := range cfg.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return &cfg, nil
}

func (c *Config) usesOllama() bool {
	return strings.EqualFold(c.Backend, "ollama")
}

// SetModel overrides the model of the configured backend.
func (c *Config) SetModel(model string) {
	if c.usesOllama() {
		c.Ollama.Model = model
	} else {
		c.OpenRouter.Model = model
	}
}

// RewriterConfig returns the settings of the configured backend.
func (c *Config) RewriterConfig() rewriter.ServiceConfig {
	if c.usesOllama() {
		return rewriter.ServiceConfig{
			Model:       c.Ollama.Model,
			BaseURL:     c.Ollama.BaseURL,
			Temperature: c.OpenRouter.Temperature,
			Timeout:     c.Timeout,
		}
	}
	return rewriter.ServiceConfig{
		APIKey:      c.OpenRouter.APIKey,
		Model:       c.OpenRouter.Model,
		BaseURL:     c.OpenRouter.BaseURL,
		Temperature: c.OpenRouter.Temperature,
		Timeout:     c.Timeout,
	}
}

func (c *Config) OrchestratorConfig() orchestrator.OrchestratorConfig {
	return orchestrator.OrchestratorConfig{
		MaxChars:    c.Chunk.MaxChars,
		Concurrency: c.Chunk.Concurrency,
		Timeout:     c.Timeout,
		NoCache:     c.NoCache,
	}
}

// Humanizer builds a humanizer from the rule file (embedded rules when
// unset) and the profile overrides.
func (c *Config) Humanizer(logger *zap.Logger, opts ...humanizer.Option) (*humanizer.Humanizer, error) {
	base := []humanizer.Option{humanizer.WithLogger(logger), humanizer.WithProfiles(c.Profiles)}
	if c.RulesFile != "" {
		rs, err := humanizer.LoadRules(c.RulesFile)
		if err != nil {
			return nil, err
		}
		base = append(base, humanizer.WithRules(rs))
	}
	return humanizer.New(append(base, opts...)...), nil
}
