package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, 100, cfg.Pipeline.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.BatchInterval)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.RealtimeTTL)
	assert.Equal(t, time.Hour, cfg.Pipeline.AggregateTTL)
	assert.Equal(t, 0.7, cfg.Pipeline.AlertMinConfidence)
	assert.Equal(t, 0.8, cfg.Pipeline.AlertMinAbsScore)
	assert.Equal(t, 1000, cfg.Pipeline.AlertCapacity)
	assert.Equal(t, 7*24*time.Hour, cfg.Pipeline.RetentionWindow)
	assert.Equal(t, "@every 1h", cfg.Pipeline.SweepSchedule)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.AnalyzerTimeout)

	assert.NotEmpty(t, cfg.Gemini.BaseURL)
	assert.NotEmpty(t, cfg.Gemini.Model)
	assert.Equal(t, 15, cfg.Gemini.MaxRequestPerMinute, "an unset request quota must never divide by zero")
	assert.Equal(t, 1000000, cfg.Gemini.MaxTokenPerMinute)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Pipeline: Pipeline{
			BatchSize:       25,
			BatchInterval:   time.Second,
			RetentionWindow: 48 * time.Hour,
		},
		Gemini: Gemini{
			Model:               "gemini-1.5-pro",
			MaxRequestPerMinute: 5,
		},
	}
	cfg.applyDefaults()

	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.Equal(t, time.Second, cfg.Pipeline.BatchInterval)
	assert.Equal(t, 48*time.Hour, cfg.Pipeline.RetentionWindow)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 5, cfg.Gemini.MaxRequestPerMinute)
}
