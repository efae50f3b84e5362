package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"xau-signal-bot/internal/types"
)

type Config struct {
	Data struct {
		Provider string   `yaml:"provider" default:"YAHOO" validate:"oneof=YAHOO BINANCE KITE STATIC"`
		Symbol   string   `yaml:"symbol" default:"GC=F" validate:"required"`
		Interval string   `yaml:"interval" default:"15m" validate:"required"`
		Limit    int      `yaml:"limit" default:"60" validate:"gt=0"`
		Periods  []string `yaml:"periods" default:"[\"60d\",\"30d\",\"7d\",\"5d\"]" validate:"min=1"`
		Yahoo    struct {
			BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
			Timeout time.Duration `yaml:"timeout" default:"20s"`
		} `yaml:"yahoo"`
		Binance struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"binance"`
		Kite struct {
			InstrumentToken int  `yaml:"instrument_token"`
			Continuous      bool `yaml:"continuous"`
		} `yaml:"kite"`
	} `yaml:"data"`
	Fetch struct {
		MaxAttempts   int           `yaml:"max_attempts" default:"3" validate:"gt=0"`
		PeriodDelay   time.Duration `yaml:"period_delay" default:"3s" validate:"gte=0"`
		AttemptDelay  time.Duration `yaml:"attempt_delay" default:"5s" validate:"gte=0"`
		BackoffFactor float64       `yaml:"backoff_factor" default:"1" validate:"gte=1"`
		MaxDelay      time.Duration `yaml:"max_delay" default:"1m"`
		StaleAfter    time.Duration `yaml:"stale_after" default:"24h"`
	} `yaml:"fetch"`
	LLM struct {
		Provider    string        `yaml:"provider" default:"DEEPSEEK" validate:"oneof=DEEPSEEK OPENAI CLAUDE"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url"`
		APIKeyEnv   string        `yaml:"api_key_env"`
		Temperature float32       `yaml:"temperature" default:"0.2" validate:"gte=0,lte=2"`
		MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
		Timeout     time.Duration `yaml:"timeout" default:"3m"`
		Schema      string        `yaml:"schema" default:"basic" validate:"oneof=basic extended"`
	} `yaml:"llm"`
	SignalLog struct {
		Path        string        `yaml:"path" default:"ai_signals.csv" validate:"required"`
		MaxRows     int           `yaml:"max_rows" default:"500" validate:"gt=0"`
		LockTimeout time.Duration `yaml:"lock_timeout" default:"30s"`
	} `yaml:"signal_log"`
	RunLog struct {
		Dir           string `yaml:"dir" default:"logs/runs"`
		RetentionDays int    `yaml:"retention_days" default:"14"`
	} `yaml:"runlog"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Run struct {
		Timeout time.Duration `yaml:"timeout" default:"5m"`
	} `yaml:"run"`
}

var validate = validator.New()

// Periods returns the parsed fallback lookback list.
func (c *Config) Periods() ([]types.Period, error) {
	return types.ParsePeriods(c.Data.Periods)
}

// Extended reports whether the model is asked for horizon projections.
func (c *Config) Extended() bool {
	return c.LLM.Schema == "extended"
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Periods(); err != nil {
		return fmt.Errorf("data.periods: %w", err)
	}
	if _, err := types.IntervalDuration(c.Data.Interval); err != nil {
		return fmt.Errorf("data.interval: %w", err)
	}
	if c.Data.Provider == "KITE" && c.Data.Kite.InstrumentToken <= 0 {
		return errors.New("data.kite.instrument_token is required for the KITE provider")
	}
	return nil
}

// applyEnv overrides config values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("XAU_SYMBOL"); v != "" {
		c.Data.Symbol = v
	}
	if v := os.Getenv("XAU_PROVIDER"); v != "" {
		c.Data.Provider = strings.ToUpper(v)
	}
	if v := os.Getenv("XAU_INTERVAL"); v != "" {
		c.Data.Interval = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToUpper(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SIGNAL_LOG_PATH"); v != "" {
		c.SignalLog.Path = v
	}
}

// applyProviderDefaults fills LLM settings that depend on the chosen provider.
func (c *Config) applyProviderDefaults() {
	switch c.LLM.Provider {
	case "DEEPSEEK":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = "https://api.deepseek.com"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "deepseek-reasoner"
		}
		if c.LLM.APIKeyEnv == "" {
			c.LLM.APIKeyEnv = "DEEPSEEK_API_KEY"
		}
	case "OPENAI":
		if c.LLM.Model == "" {
			c.LLM.Model = "gpt-4o-mini"
		}
		if c.LLM.APIKeyEnv == "" {
			c.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	case "CLAUDE":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = "https://api.anthropic.com"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "claude-3-5-sonnet-latest"
		}
		if c.LLM.APIKeyEnv == "" {
			c.LLM.APIKeyEnv = "CLAUDE_API_KEY"
		}
		if c.LLM.MaxTokens == 0 {
			c.LLM.MaxTokens = 1024
		}
	}
}

// APIKey returns the LLM credential named by llm.api_key_env.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// LoadConfig reads path (a missing file yields pure defaults), applies
// defaults and environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	// YAML overlays the defaults, so explicit zero values survive.
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.applyEnv()
	c.applyProviderDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
