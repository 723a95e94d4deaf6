package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Asset is one configured (symbol, source, interval) series to analyze.
type Asset struct {
	Symbol   string `yaml:"symbol"`
	Source   string `yaml:"source"`
	Interval string `yaml:"interval"`
	Limit    int    `yaml:"limit"`
	Period   string `yaml:"period"`
}

// Config holds all application configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Defaults struct {
		Interval string `yaml:"interval"`
		Limit    int    `yaml:"limit"`
		Period   string `yaml:"period"`
	} `yaml:"defaults"`
	Cache struct {
		MaxAgeHours int `yaml:"max_age_hours"`
	} `yaml:"cache"`
	Signals struct {
		RSILow         float64 `yaml:"rsi_low"`
		RSIHigh        float64 `yaml:"rsi_high"`
		VolumeWindow   int     `yaml:"volume_window"`
		ATRMult        float64 `yaml:"atr_mult"`
		EnterThreshold int     `yaml:"enter_threshold"`
	} `yaml:"signals"`
	Agent struct {
		Mode        string `yaml:"mode"` // "local" or "llm"
		LLMProvider string `yaml:"llm_provider"`
		LLMModel    string `yaml:"llm_model"`
	} `yaml:"agent"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Proxy  string  `yaml:"proxy"`
	Assets []Asset `yaml:"assets"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("STOCKLENS_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DEFAULT_INTERVAL"); v != "" {
		cfg.Defaults.Interval = v
	}
	if v := os.Getenv("DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.Limit = n
		}
	}
	if v := os.Getenv("DEFAULT_PERIOD"); v != "" {
		cfg.Defaults.Period = v
	}
	if v := os.Getenv("AGENT_MODE"); v != "" {
		cfg.Agent.Mode = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Agent.LLMProvider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Agent.LLMModel = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/stocklens.db"
	}
	if cfg.Defaults.Interval == "" {
		cfg.Defaults.Interval = "1d"
	}
	if cfg.Defaults.Limit == 0 {
		cfg.Defaults.Limit = 1000
	}
	if cfg.Defaults.Period == "" {
		cfg.Defaults.Period = "1y"
	}
	if cfg.Cache.MaxAgeHours == 0 {
		cfg.Cache.MaxAgeHours = 24
	}
	if cfg.Signals.RSILow == 0 {
		cfg.Signals.RSILow = 30
	}
	if cfg.Signals.RSIHigh == 0 {
		cfg.Signals.RSIHigh = 70
	}
	if cfg.Signals.VolumeWindow == 0 {
		cfg.Signals.VolumeWindow = 20
	}
	if cfg.Signals.ATRMult == 0 {
		cfg.Signals.ATRMult = 2.0
	}
	if cfg.Signals.EnterThreshold == 0 {
		cfg.Signals.EnterThreshold = 2
	}
	if cfg.Agent.Mode == "" {
		cfg.Agent.Mode = "local"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 22 * * 1-5"
	}

	// Fill per-asset gaps from defaults.
	for i := range cfg.Assets {
		a := &cfg.Assets[i]
		if a.Interval == "" {
			a.Interval = cfg.Defaults.Interval
		}
		if a.Limit == 0 {
			a.Limit = cfg.Defaults.Limit
		}
		if a.Period == "" && a.Source == "yahoo" {
			a.Period = cfg.Defaults.Period
		}
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	for i, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("assets[%d]: symbol is required", i)
		}
		if a.Source == "" {
			return fmt.Errorf("assets[%d] (%s): source is required", i, a.Symbol)
		}
		if a.Source == "yahoo" && a.Period == "" {
			return fmt.Errorf("assets[%d] (%s): period is required for yahoo", i, a.Symbol)
		}
		if a.Limit <= 0 {
			return fmt.Errorf("assets[%d] (%s): limit must be positive", i, a.Symbol)
		}
	}
	if c.Agent.Mode != "local" && c.Agent.Mode != "llm" {
		return fmt.Errorf("agent.mode must be \"local\" or \"llm\", got %q", c.Agent.Mode)
	}
	return nil
}
