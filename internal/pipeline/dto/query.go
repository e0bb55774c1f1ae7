package dto

import (
	"market-sentiment-pipeline/internal/entity"
)

// TrendDirection describes the half-split trend of a sentiment series.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// SentimentSummary summarizes the returned slice of a symbol's series.
type SentimentSummary struct {
	AvgScore      float64        `json:"avg_score"`
	AvgConfidence float64        `json:"avg_confidence"`
	Positive      int            `json:"positive"`
	Negative      int            `json:"negative"`
	Neutral       int            `json:"neutral"`
	Trend         TrendDirection `json:"trend"`
}

// SymbolSentimentResponse is the full read-side view for one symbol.
type SymbolSentimentResponse struct {
	Symbol     string                      `json:"symbol"`
	Timeframe  string                      `json:"timeframe"`
	Timeseries []entity.TimeSeriesPoint    `json:"timeseries"`
	Aggregated *entity.AggregatedSentiment `json:"aggregated,omitempty"`
	Realtime   *entity.RealtimeSnapshot    `json:"realtime,omitempty"`
	Summary    SentimentSummary            `json:"summary"`
}

// MarketSentimentResponse is the cross-symbol market view.
type MarketSentimentResponse struct {
	MarketSentiment string  `json:"market_sentiment"`
	AvgScore        float64 `json:"avg_score"`
	SymbolCount     int     `json:"symbol_count"`
	PositiveSymbols int     `json:"positive_symbols"`
	NegativeSymbols int     `json:"negative_symbols"`
	NeutralSymbols  int     `json:"neutral_symbols"`
}

// SentimentTrendResponse is the half-split trend of a symbol's raw series.
type SentimentTrendResponse struct {
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"timeframe"`
	Direction TrendDirection `json:"direction"`
	Strength  float64        `json:"strength"`
	Change    float64        `json:"change"`
}

// SentimentAlertsResponse is the filtered alert list.
type SentimentAlertsResponse struct {
	Alerts []entity.Alert `json:"alerts"`
	Count  int            `json:"count"`
}
