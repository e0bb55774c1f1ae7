package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/pkg/logger"
)

const (
	// trendDelta is the half-period average difference needed before a
	// series counts as improving or declining.
	trendDelta = 0.1
	// pointClassifyThreshold splits points and symbols into
	// positive/negative/neutral buckets.
	pointClassifyThreshold = 0.1
	// marketClassifyThreshold classifies the market-wide mean score.
	marketClassifyThreshold = 0.2
)

var timeframes = map[string]time.Duration{
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// QueryService is the read-only view over the sentiment cache. It is safe to
// call concurrently with all writers.
type QueryService interface {
	GetSymbolSentiment(ctx context.Context, symbol, timeframe string, limit int) (*dto.SymbolSentimentResponse, error)
	GetMarketSentiment(ctx context.Context, timeframe string, limit int) (*dto.MarketSentimentResponse, error)
	GetSentimentTrends(ctx context.Context, symbol, timeframe string) (*dto.SentimentTrendResponse, error)
	GetSentimentAlerts(ctx context.Context, symbol string, minConfidence float64) (*dto.SentimentAlertsResponse, error)
}

// NewQueryService creates a new QueryService.
func NewQueryService(cacheStore *cache.Store, log *logger.Logger) QueryService {
	return &queryService{
		cache:  cacheStore,
		logger: log,
	}
}

type queryService struct {
	cache  *cache.Store
	logger *logger.Logger
}

// GetSymbolSentiment returns the bounded newest-first series within the
// timeframe plus the live aggregate, realtime snapshot and a summary over the
// returned slice. An expired symbol reads as "no data", not as stale values.
func (s *queryService) GetSymbolSentiment(ctx context.Context, symbol, timeframe string, limit int) (*dto.SymbolSentimentResponse, error) {
	window, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-window)
	points := s.cache.Series(symbol, since, limit)

	resp := &dto.SymbolSentimentResponse{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Timeseries: points,
		Summary:    summarize(points),
	}

	if agg, found := s.cache.Aggregate(symbol); found {
		resp.Aggregated = &agg
	}
	if snap, found := s.cache.Snapshot(symbol); found {
		resp.Realtime = &snap
	}
	return resp, nil
}

// GetMarketSentiment scans live aggregates and classifies the unweighted mean
// of per-symbol average scores.
func (s *queryService) GetMarketSentiment(ctx context.Context, timeframe string, limit int) (*dto.MarketSentimentResponse, error) {
	if _, err := parseTimeframe(timeframe); err != nil {
		return nil, err
	}

	aggs := s.cache.ActiveAggregates()
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Symbol < aggs[j].Symbol })
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}

	resp := &dto.MarketSentimentResponse{
		MarketSentiment: "neutral",
	}
	if len(aggs) == 0 {
		return resp, nil
	}

	var sum float64
	for _, agg := range aggs {
		sum += agg.AvgScore
		switch {
		case agg.AvgScore > pointClassifyThreshold:
			resp.PositiveSymbols++
		case agg.AvgScore < -pointClassifyThreshold:
			resp.NegativeSymbols++
		default:
			resp.NeutralSymbols++
		}
	}

	resp.SymbolCount = len(aggs)
	resp.AvgScore = sum / float64(len(aggs))
	switch {
	case resp.AvgScore > marketClassifyThreshold:
		resp.MarketSentiment = "positive"
	case resp.AvgScore < -marketClassifyThreshold:
		resp.MarketSentiment = "negative"
	}
	return resp, nil
}

// GetSentimentTrends computes the half-split trend over the raw series.
func (s *queryService) GetSentimentTrends(ctx context.Context, symbol, timeframe string) (*dto.SentimentTrendResponse, error) {
	window, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	points := s.cache.Series(symbol, time.Now().Add(-window), 0)
	direction, change := trendOf(points)

	return &dto.SentimentTrendResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Direction: direction,
		Strength:  math.Abs(change),
		Change:    change,
	}, nil
}

// GetSentimentAlerts filters the bounded alert list.
func (s *queryService) GetSentimentAlerts(ctx context.Context, symbol string, minConfidence float64) (*dto.SentimentAlertsResponse, error) {
	alerts := s.cache.Alerts(symbol, minConfidence)
	return &dto.SentimentAlertsResponse{
		Alerts: alerts,
		Count:  len(alerts),
	}, nil
}

func parseTimeframe(timeframe string) (time.Duration, error) {
	window, ok := timeframes[timeframe]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe: %q", timeframe)
	}
	return window, nil
}

// summarize computes the summary over the returned (newest-first) slice.
func summarize(points []entity.TimeSeriesPoint) dto.SentimentSummary {
	summary := dto.SentimentSummary{Trend: dto.TrendStable}
	if len(points) == 0 {
		return summary
	}

	var sumScore, sumConfidence float64
	for _, p := range points {
		sumScore += p.Score
		sumConfidence += p.Confidence
		switch {
		case p.Score > pointClassifyThreshold:
			summary.Positive++
		case p.Score < -pointClassifyThreshold:
			summary.Negative++
		default:
			summary.Neutral++
		}
	}
	summary.AvgScore = sumScore / float64(len(points))
	summary.AvgConfidence = sumConfidence / float64(len(points))
	summary.Trend, _ = trendOf(points)
	return summary
}

// trendOf splits the slice into chronological halves and compares the
// half-period average scores. Change is recent-half average minus older-half
// average; |change| must exceed trendDelta to leave "stable".
func trendOf(points []entity.TimeSeriesPoint) (dto.TrendDirection, float64) {
	if len(points) < 2 {
		return dto.TrendStable, 0
	}

	chronological := make([]entity.TimeSeriesPoint, len(points))
	copy(chronological, points)
	sort.Slice(chronological, func(i, j int) bool {
		return chronological[i].Timestamp.Before(chronological[j].Timestamp)
	})

	mid := len(chronological) / 2
	olderAvg := avgScore(chronological[:mid])
	recentAvg := avgScore(chronological[mid:])
	change := recentAvg - olderAvg

	switch {
	case change > trendDelta:
		return dto.TrendImproving, change
	case change < -trendDelta:
		return dto.TrendDeclining, change
	default:
		return dto.TrendStable, change
	}
}

func avgScore(points []entity.TimeSeriesPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Score
	}
	return sum / float64(len(points))
}
