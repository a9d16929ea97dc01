// Package config loads adaptiq settings from an optional YAML file and
// ADAPTIQ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/adaptiq/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. ADAPTIQ_STORE_DSN.
const EnvPrefix = "ADAPTIQ"

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	SourceTemplates = "templates"
	SourceLLM       = "llm"
)

type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Questions  QuestionsConfig  `mapstructure:"questions"`
	LLM        llm.Config       `mapstructure:"llm"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN is a SQLite path or URI. Empty means the default data path.
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rotated JSON log next to the console output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type EngineConfig struct {
	Shards         int     `mapstructure:"shards"`
	AdaptiveWindow int     `mapstructure:"adaptive_window"`
	RaiseThreshold float64 `mapstructure:"raise_threshold"`
	LowerThreshold float64 `mapstructure:"lower_threshold"`
	MinEssayWords  int     `mapstructure:"min_essay_words"`
	// Seed makes question order and generation reproducible when non-zero.
	Seed        uint64 `mapstructure:"seed"`
	EventBuffer int    `mapstructure:"event_buffer"`
	AllowDraft  bool   `mapstructure:"allow_draft"`
}

type TemplatesConfig struct {
	// Path is an optional JSON template pack merged over the built-ins.
	Path string `mapstructure:"path"`
}

type QuestionsConfig struct {
	Source string `mapstructure:"source"`
	// Fallback switches to templates when the llm source fails.
	Fallback bool `mapstructure:"fallback"`
}

type SupervisorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Grace    time.Duration `mapstructure:"grace"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: DriverSQLite},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			AllowedOrigins: []string{"*"},
			RequestTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Shards:         64,
			AdaptiveWindow: 3,
			RaiseThreshold: 0.8,
			LowerThreshold: 0.3,
			MinEssayWords:  50,
			EventBuffer:    256,
		},
		Questions:  QuestionsConfig{Source: SourceTemplates, Fallback: true},
		LLM:        llm.DefaultConfig(),
		Supervisor: SupervisorConfig{Enabled: true, Interval: 15 * time.Second},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.rate_limit_rps", d.HTTP.RateLimitRPS)
	v.SetDefault("http.rate_limit_burst", d.HTTP.RateLimitBurst)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)
	v.SetDefault("http.request_timeout", d.HTTP.RequestTimeout)

	v.SetDefault("engine.shards", d.Engine.Shards)
	v.SetDefault("engine.adaptive_window", d.Engine.AdaptiveWindow)
	v.SetDefault("engine.raise_threshold", d.Engine.RaiseThreshold)
	v.SetDefault("engine.lower_threshold", d.Engine.LowerThreshold)
	v.SetDefault("engine.min_essay_words", d.Engine.MinEssayWords)
	v.SetDefault("engine.seed", d.Engine.Seed)
	v.SetDefault("engine.event_buffer", d.Engine.EventBuffer)
	v.SetDefault("engine.allow_draft", d.Engine.AllowDraft)

	v.SetDefault("templates.path", d.Templates.Path)
	v.SetDefault("questions.source", d.Questions.Source)
	v.SetDefault("questions.fallback", d.Questions.Fallback)

	v.SetDefault("llm.provider", d.LLM.Provider)
	for name, model := range map[string]string{
		"anthropic": d.LLM.Anthropic.Model,
		"openai":    d.LLM.OpenAI.Model,
		"gemini":    d.LLM.Gemini.Model,
	} {
		v.SetDefault("llm."+name+".api_key", "")
		v.SetDefault("llm."+name+".model", model)
		v.SetDefault("llm."+name+".base_url", "")
	}
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("supervisor.enabled", d.Supervisor.Enabled)
	v.SetDefault("supervisor.interval", d.Supervisor.Interval)
	v.SetDefault("supervisor.grace", d.Supervisor.Grace)
}

// Load reads path when it is set, otherwise the first adaptiq.yaml found in
// the working directory or $XDG_CONFIG_HOME/adaptiq. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The providers' own variable names work too.
	for key, env := range map[string]string{
		"llm.anthropic.api_key": "ANTHROPIC_API_KEY",
		"llm.openai.api_key":    "OPENAI_API_KEY",
		"llm.gemini.api_key":    "GEMINI_API_KEY",
	} {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("adaptiq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "adaptiq"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("http: rate limits must not be negative"))
	}
	if c.Engine.Shards <= 0 {
		errs = append(errs, fmt.Errorf("engine.shards: must be positive, got %d", c.Engine.Shards))
	}
	if c.Engine.AdaptiveWindow <= 0 {
		errs = append(errs, fmt.Errorf("engine.adaptive_window: must be positive, got %d", c.Engine.AdaptiveWindow))
	}
	if !(0 <= c.Engine.LowerThreshold && c.Engine.LowerThreshold < c.Engine.RaiseThreshold && c.Engine.RaiseThreshold <= 1) {
		errs = append(errs, fmt.Errorf("engine: need 0 <= lower_threshold < raise_threshold <= 1, got %v and %v",
			c.Engine.LowerThreshold, c.Engine.RaiseThreshold))
	}
	switch c.Questions.Source {
	case SourceTemplates:
	case SourceLLM:
		if err := c.LLM.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("questions.source: unknown source %q", c.Questions.Source))
	}
	if c.Supervisor.Enabled && c.Supervisor.Interval <= 0 {
		errs = append(errs, errors.New("supervisor.interval: must be positive when the supervisor is enabled"))
	}
	return errors.Join(errs...)
}
