// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// TelegramConfig holds the chat transport credentials and poll settings.
type TelegramConfig struct {
	Token           string  `yaml:"token" mapstructure:"token"`
	PollTimeoutSecs int     `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	SendRPS         float64 `yaml:"send_rps" mapstructure:"send_rps"`
}

// AnthropicConfig holds the model API settings for the summarizer.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// DiscoveryConfig configures offer discovery sources and memoization.
type DiscoveryConfig struct {
	SourcesFile      string `yaml:"sources_file" mapstructure:"sources_file"`
	CacheEnabled     bool   `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheSize        int    `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLSecs     int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int    `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PipelineConfig bounds the per-request pipeline.
type PipelineConfig struct {
	MaxOffers         int `yaml:"max_offers" mapstructure:"max_offers"`
	TopK              int `yaml:"top_k" mapstructure:"top_k"`
	Workers           int `yaml:"workers" mapstructure:"workers"`
	FetchTimeoutSecs  int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	ScoreTimeoutSecs  int `yaml:"score_timeout_secs" mapstructure:"score_timeout_secs"`
	AdviseTimeoutSecs int `yaml:"advise_timeout_secs" mapstructure:"advise_timeout_secs"`
	ProgressEvery     int `yaml:"progress_every" mapstructure:"progress_every"`
}

// ServerConfig configures the HTTP chat endpoint.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them:
	// viper only unmarshals keys it already knows about.
	v.SetDefault("telegram.token", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("telegram.poll_timeout_secs", 30)
	v.SetDefault("telegram.send_rps", 25)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 500)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("discovery.sources_file", "sources.yaml")
	v.SetDefault("discovery.cache_enabled", false)
	v.SetDefault("discovery.cache_size", 128)
	v.SetDefault("discovery.cache_ttl_secs", 300)
	v.SetDefault("discovery.failure_threshold", 5)
	v.SetDefault("discovery.reset_timeout_secs", 30)
	v.SetDefault("pipeline.max_offers", 20)
	v.SetDefault("pipeline.top_k", 3)
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.fetch_timeout_secs", 15)
	v.SetDefault("pipeline.score_timeout_secs", 5)
	v.SetDefault("pipeline.advise_timeout_secs", 10)
	v.SetDefault("pipeline.progress_every", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// RequireTelegram verifies the chat transport token is present. Missing
// secrets are a fatal startup error, not a per-request error.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return eris.New("config: telegram.token is required (set DEALSCOUT_TELEGRAM_TOKEN)")
	}
	return nil
}

// RequireAnthropic verifies the model API key is present.
func (c *Config) RequireAnthropic() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (set DEALSCOUT_ANTHROPIC_KEY)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
