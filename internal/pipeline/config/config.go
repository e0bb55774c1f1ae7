package config

import (
	"time"

	"market-sentiment-pipeline/pkg/config"
)

// Pipeline holds processing loop, cache, alert and retention configuration.
type Pipeline struct {
	BatchSize          int           `mapstructure:"batch_size"`
	BatchInterval      time.Duration `mapstructure:"batch_interval"`
	RealtimeTTL        time.Duration `mapstructure:"realtime_ttl"`
	AggregateTTL       time.Duration `mapstructure:"aggregate_ttl"`
	AlertMinConfidence float64       `mapstructure:"alert_min_confidence"`
	AlertMinAbsScore   float64       `mapstructure:"alert_min_abs_score"`
	AlertCapacity      int           `mapstructure:"alert_capacity"`
	RetentionWindow    time.Duration `mapstructure:"retention_window"`
	SweepSchedule      string        `mapstructure:"sweep_schedule"`
	AnalyzerTimeout    time.Duration `mapstructure:"analyzer_timeout"`
}

// Gemini holds the configuration for the Gemini analyzer.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Telegram holds configuration for the alert notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Ingestor holds configuration for the RSS feed producer.
type Ingestor struct {
	Enabled       bool          `mapstructure:"enabled"`
	Schedule      string        `mapstructure:"schedule"`
	Feeds         []string      `mapstructure:"feeds"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	DedupeTTL     time.Duration `mapstructure:"dedupe_ttl"`
}

// Config holds the full configuration for the sentiment service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Pipeline Pipeline        `mapstructure:"pipeline"`
	Gemini   Gemini          `mapstructure:"gemini"`
	Telegram Telegram        `mapstructure:"telegram"`
	Ingestor Ingestor        `mapstructure:"ingestor"`
}

// Load loads the sentiment service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = 100
	}
	if c.Pipeline.BatchInterval <= 0 {
		c.Pipeline.BatchInterval = 5 * time.Second
	}
	if c.Pipeline.RealtimeTTL <= 0 {
		c.Pipeline.RealtimeTTL = 24 * time.Hour
	}
	if c.Pipeline.AggregateTTL <= 0 {
		c.Pipeline.AggregateTTL = time.Hour
	}
	if c.Pipeline.AlertMinConfidence <= 0 {
		c.Pipeline.AlertMinConfidence = 0.7
	}
	if c.Pipeline.AlertMinAbsScore <= 0 {
		c.Pipeline.AlertMinAbsScore = 0.8
	}
	if c.Pipeline.AlertCapacity <= 0 {
		c.Pipeline.AlertCapacity = 1000
	}
	if c.Pipeline.RetentionWindow <= 0 {
		c.Pipeline.RetentionWindow = 7 * 24 * time.Hour
	}
	if c.Pipeline.SweepSchedule == "" {
		c.Pipeline.SweepSchedule = "@every 1h"
	}
	if c.Pipeline.AnalyzerTimeout <= 0 {
		c.Pipeline.AnalyzerTimeout = 90 * time.Second
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	// The request limiter divides by this; zero must never reach it.
	if c.Gemini.MaxRequestPerMinute <= 0 {
		c.Gemini.MaxRequestPerMinute = 15
	}
	if c.Gemini.MaxTokenPerMinute <= 0 {
		c.Gemini.MaxTokenPerMinute = 1000000
	}
}
