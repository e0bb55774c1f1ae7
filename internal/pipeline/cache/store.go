package cache

import (
	"fmt"
	"sync"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/dto"

	gocache "github.com/patrickmn/go-cache"
)

// Config holds the cache TTLs and the alert list capacity.
type Config struct {
	RealtimeTTL   time.Duration
	AggregateTTL  time.Duration
	AlertCapacity int
}

// Store is the in-process sentiment cache: per-symbol realtime snapshot,
// time series, rolling aggregate, and the bounded alert list. It is safe for
// concurrent readers and writers. A symbol silent past its TTL reads as
// absent, never as a stale value.
type Store struct {
	cfg Config

	snapshots  *gocache.Cache
	aggregates *gocache.Cache

	// Serializes the aggregate read-modify-write per symbol; a naive
	// read-then-write under concurrent writers silently loses counts.
	symbolMu    sync.Mutex
	symbolLocks map[string]*sync.Mutex

	seriesMu sync.RWMutex
	series   map[string][]entity.TimeSeriesPoint

	alertMu sync.RWMutex
	alerts  []entity.Alert // newest-first
}

// New creates a Store with the given TTLs and alert capacity.
func New(cfg Config) *Store {
	if cfg.RealtimeTTL <= 0 {
		cfg.RealtimeTTL = 24 * time.Hour
	}
	if cfg.AggregateTTL <= 0 {
		cfg.AggregateTTL = time.Hour
	}
	if cfg.AlertCapacity <= 0 {
		cfg.AlertCapacity = 1000
	}

	return &Store{
		cfg:         cfg,
		snapshots:   gocache.New(cfg.RealtimeTTL, 10*time.Minute),
		aggregates:  gocache.New(cfg.AggregateTTL, 10*time.Minute),
		symbolLocks: make(map[string]*sync.Mutex),
		series:      make(map[string][]entity.TimeSeriesPoint),
	}
}

// UpdateRealtime overwrites the symbol's snapshot, appends a time-series
// point, and folds the reading into the rolling aggregate. Every write resets
// the snapshot and aggregate TTLs.
func (s *Store) UpdateRealtime(symbol string, analysis dto.Analysis, at time.Time) error {
	if analysis.Score < -1 || analysis.Score > 1 {
		return fmt.Errorf("score out of range [-1,1]: %f", analysis.Score)
	}
	if analysis.Confidence < 0 || analysis.Confidence > 1 {
		return fmt.Errorf("confidence out of range [0,1]: %f", analysis.Confidence)
	}

	s.snapshots.Set(symbol, entity.RealtimeSnapshot{
		Score:        analysis.Score,
		Confidence:   analysis.Confidence,
		Polarity:     analysis.Polarity,
		Subjectivity: analysis.Subjectivity,
		UpdatedAt:    at,
	}, s.cfg.RealtimeTTL)

	s.appendPoint(symbol, entity.TimeSeriesPoint{
		Timestamp:    at,
		Score:        analysis.Score,
		Confidence:   analysis.Confidence,
		Polarity:     analysis.Polarity,
		Subjectivity: analysis.Subjectivity,
	})

	s.updateAggregated(symbol, analysis, at)
	return nil
}

func (s *Store) appendPoint(symbol string, point entity.TimeSeriesPoint) {
	s.seriesMu.Lock()
	defer s.seriesMu.Unlock()

	points := s.series[symbol]
	// Appends arrive at "now"; keep timestamp order if one slips in late.
	idx := len(points)
	for idx > 0 && points[idx-1].Timestamp.After(point.Timestamp) {
		idx--
	}
	points = append(points, entity.TimeSeriesPoint{})
	copy(points[idx+1:], points[idx:])
	points[idx] = point
	s.series[symbol] = points
}

// updateAggregated does the O(1) read-modify-write on the running counters
// under the symbol's lock. Expired or absent aggregates start from zero.
func (s *Store) updateAggregated(symbol string, analysis dto.Analysis, at time.Time) {
	lock := s.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	agg := entity.AggregatedSentiment{Symbol: symbol}
	if cached, found := s.aggregates.Get(symbol); found {
		agg = cached.(entity.AggregatedSentiment)
	}
	agg.Add(analysis.Score, analysis.Confidence, at)
	s.aggregates.Set(symbol, agg, s.cfg.AggregateTTL)
}

func (s *Store) lockFor(symbol string) *sync.Mutex {
	s.symbolMu.Lock()
	defer s.symbolMu.Unlock()
	lock, ok := s.symbolLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.symbolLocks[symbol] = lock
	}
	return lock
}

// Snapshot returns the realtime snapshot for a symbol, if one is live.
func (s *Store) Snapshot(symbol string) (entity.RealtimeSnapshot, bool) {
	cached, found := s.snapshots.Get(symbol)
	if !found {
		return entity.RealtimeSnapshot{}, false
	}
	return cached.(entity.RealtimeSnapshot), true
}

// Aggregate returns the rolling aggregate for a symbol, if one is live.
func (s *Store) Aggregate(symbol string) (entity.AggregatedSentiment, bool) {
	cached, found := s.aggregates.Get(symbol)
	if !found {
		return entity.AggregatedSentiment{}, false
	}
	return cached.(entity.AggregatedSentiment), true
}

// ActiveAggregates returns all unexpired aggregates with at least one reading.
func (s *Store) ActiveAggregates() []entity.AggregatedSentiment {
	items := s.aggregates.Items()
	aggs := make([]entity.AggregatedSentiment, 0, len(items))
	for _, item := range items {
		agg := item.Object.(entity.AggregatedSentiment)
		if agg.Count > 0 {
			aggs = append(aggs, agg)
		}
	}
	return aggs
}

// Series returns up to limit points for the symbol at or after since,
// newest-first. limit <= 0 means no bound.
func (s *Store) Series(symbol string, since time.Time, limit int) []entity.TimeSeriesPoint {
	s.seriesMu.RLock()
	defer s.seriesMu.RUnlock()

	points := s.series[symbol]
	result := make([]entity.TimeSeriesPoint, 0)
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Timestamp.Before(since) {
			break
		}
		result = append(result, points[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// PushAlert prepends an alert, dropping the oldest past capacity.
func (s *Store) PushAlert(alert entity.Alert) {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()

	s.alerts = append([]entity.Alert{alert}, s.alerts...)
	if len(s.alerts) > s.cfg.AlertCapacity {
		s.alerts = s.alerts[:s.cfg.AlertCapacity]
	}
}

// Alerts returns the alerts matching the optional symbol filter and minimum
// confidence, newest-first.
func (s *Store) Alerts(symbol string, minConfidence float64) []entity.Alert {
	s.alertMu.RLock()
	defer s.alertMu.RUnlock()

	result := make([]entity.Alert, 0)
	for _, alert := range s.alerts {
		if symbol != "" && alert.Symbol != symbol {
			continue
		}
		if alert.Confidence < minConfidence {
			continue
		}
		result = append(result, alert)
	}
	return result
}

// TrimBefore removes time-series points and alerts strictly older than
// cutoff. Safe to interleave with writers: appends always add at "now".
func (s *Store) TrimBefore(cutoff time.Time) (pointsRemoved, alertsRemoved int) {
	s.seriesMu.Lock()
	for symbol, points := range s.series {
		idx := 0
		for idx < len(points) && points[idx].Timestamp.Before(cutoff) {
			idx++
		}
		if idx == 0 {
			continue
		}
		pointsRemoved += idx
		if idx == len(points) {
			delete(s.series, symbol)
			continue
		}
		s.series[symbol] = append([]entity.TimeSeriesPoint(nil), points[idx:]...)
	}
	s.seriesMu.Unlock()

	s.alertMu.Lock()
	kept := s.alerts[:0]
	for _, alert := range s.alerts {
		if alert.Timestamp.Before(cutoff) {
			alertsRemoved++
			continue
		}
		kept = append(kept, alert)
	}
	s.alerts = kept
	s.alertMu.Unlock()

	return pointsRemoved, alertsRemoved
}
