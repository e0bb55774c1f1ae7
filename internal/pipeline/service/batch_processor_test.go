package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStaging is an in-memory StagingRepository.
type fakeStaging struct {
	nextID      int
	pending     []repository.PendingMessage
	deadLetters []repository.DeadLetterMessage
	removeErr   error
}

func (f *fakeStaging) Enqueue(ctx context.Context, item *entity.PendingItem) error {
	f.nextID++
	f.pending = append(f.pending, repository.PendingMessage{
		ID:   fmt.Sprintf("%d-0", f.nextID),
		Item: *item,
	})
	return nil
}

func (f *fakeStaging) FetchPending(ctx context.Context, limit int) ([]repository.PendingMessage, error) {
	if len(f.pending) > limit {
		return append([]repository.PendingMessage(nil), f.pending[:limit]...), nil
	}
	return append([]repository.PendingMessage(nil), f.pending...), nil
}

func (f *fakeStaging) Remove(ctx context.Context, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, msg := range f.pending {
		if msg.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStaging) MoveToDeadLetter(ctx context.Context, msg repository.PendingMessage, cause error) error {
	f.deadLetters = append(f.deadLetters, repository.DeadLetterMessage{
		ID: msg.ID,
		DeadLetter: entity.DeadLetterItem{
			Item:     msg.Item,
			Error:    cause.Error(),
			FailedAt: time.Now(),
		},
	})
	return f.Remove(ctx, msg.ID)
}

func (f *fakeStaging) ListDeadLetters(ctx context.Context, limit int) ([]repository.DeadLetterMessage, error) {
	return append([]repository.DeadLetterMessage(nil), f.deadLetters...), nil
}

func (f *fakeStaging) ReplayDeadLetters(ctx context.Context) (int, error) {
	replayed := 0
	for _, msg := range f.deadLetters {
		if err := f.Enqueue(ctx, &msg.DeadLetter.Item); err != nil {
			return replayed, err
		}
		replayed++
	}
	f.deadLetters = nil
	return replayed, nil
}

// fakeRecords keys upserts by (symbol, source, created_at) like the real table.
type fakeRecords struct {
	records map[string]*entity.SentimentRecord
	err     error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[string]*entity.SentimentRecord)}
}

func (f *fakeRecords) Upsert(ctx context.Context, record *entity.SentimentRecord) error {
	if f.err != nil {
		return f.err
	}
	key := fmt.Sprintf("%s|%s|%d", record.Symbol, record.Source, record.CreatedAt.UnixNano())
	f.records[key] = record
	return nil
}

// stubAnalyzer scores by fixed per-text results. It honors its context like
// the real client, and onAnalyze runs at the start of each call.
type stubAnalyzer struct {
	results   map[string]*dto.Analysis
	err       error
	onAnalyze func()
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string, analyzeCtx dto.AnalyzeContext) (*dto.Analysis, error) {
	if s.onAnalyze != nil {
		s.onAnalyze()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if result, ok := s.results[text]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("no stub result for text: %q", text)
}

func newTestProcessor(staging repository.StagingRepository, records repository.SentimentRecordRepository, analyzer repository.AnalyzerRepository) (BatchProcessor, *cacheBundle) {
	store := newTestCache()
	engine := NewAlertEngine(store, nil, logger.NewNop(), 0.7, 0.8)
	processor := NewBatchProcessor(staging, records, analyzer, store, engine, logger.NewNop(), 100, 5*time.Second, time.Second)
	return processor, &cacheBundle{store: store}
}

type cacheBundle struct {
	store interface {
		Snapshot(symbol string) (entity.RealtimeSnapshot, bool)
		Aggregate(symbol string) (entity.AggregatedSentiment, bool)
		Alerts(symbol string, minConfidence float64) []entity.Alert
	}
}

func enqueueItem(t *testing.T, staging *fakeStaging, text, symbol string, source entity.Source, at time.Time) {
	t.Helper()
	item := entity.PendingItem{
		Text:       text,
		Symbol:     symbol,
		Source:     source,
		EnqueuedAt: at,
	}
	require.NoError(t, staging.Enqueue(context.Background(), &item))
}

func TestProcessPendingBatchEndToEnd(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"Strong earnings beat": {Score: 0.9, Confidence: 0.85, Polarity: 0.8, Subjectivity: 0.4},
	}}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, time.Now())
	processor.ProcessPendingBatch(context.Background())

	assert.Empty(t, staging.pending, "processed item is removed from the queue")
	assert.Empty(t, staging.deadLetters)
	require.Len(t, records.records, 1)

	snap, found := bundle.store.Snapshot("NVDA")
	require.True(t, found)
	assert.InDelta(t, 0.9, snap.Score, 1e-9)

	agg, found := bundle.store.Aggregate("NVDA")
	require.True(t, found)
	assert.Equal(t, int64(1), agg.Count)
	assert.InDelta(t, 0.9, agg.AvgScore, 1e-9)
	assert.Equal(t, entity.CategoryPositive, agg.Category)

	alerts := bundle.store.Alerts("NVDA", 0)
	require.Len(t, alerts, 1, "exactly one positive_spike alert")
	assert.Equal(t, entity.AlertPositiveSpike, alerts[0].Type)
}

func TestProcessPendingBatchAnalyzerFailureDeadLetters(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"good news": {Score: 0.4, Confidence: 0.6},
	}}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	now := time.Now()
	enqueueItem(t, staging, "unparseable rant", "TSLA", entity.SourceReddit, now)
	enqueueItem(t, staging, "good news", "NVDA", entity.SourceNews, now.Add(time.Millisecond))

	processor.ProcessPendingBatch(context.Background())

	assert.Empty(t, staging.pending, "failed item removed from pending regardless")
	require.Len(t, staging.deadLetters, 1, "one item dead-lettered, batch continues")
	assert.Equal(t, "unparseable rant", staging.deadLetters[0].DeadLetter.Item.Text, "dead letter keeps the original payload")
	assert.NotEmpty(t, staging.deadLetters[0].DeadLetter.Error)

	require.Len(t, records.records, 1, "the healthy item is still persisted")
	_, found := bundle.store.Snapshot("NVDA")
	assert.True(t, found)
	_, found = bundle.store.Snapshot("TSLA")
	assert.False(t, found, "failed item is never partially applied")
}

func TestProcessPendingBatchStoreFailureDeadLetters(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	records.err = errors.New("connection refused")
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"Strong earnings beat": {Score: 0.9, Confidence: 0.85},
	}}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, time.Now())
	processor.ProcessPendingBatch(context.Background())

	require.Len(t, staging.deadLetters, 1)
	_, found := bundle.store.Snapshot("NVDA")
	assert.False(t, found, "a scored-but-unpersisted item must not touch the cache")
	assert.Empty(t, bundle.store.Alerts("", 0))
}

func TestProcessPendingBatchReprocessUpserts(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"Strong earnings beat": {Score: 0.9, Confidence: 0.85},
	}}
	processor, _ := newTestProcessor(staging, records, analyzer)

	enqueuedAt := time.Now()
	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, enqueuedAt)
	processor.ProcessPendingBatch(context.Background())

	// manual replay of the identical item
	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, enqueuedAt)
	processor.ProcessPendingBatch(context.Background())

	assert.Len(t, records.records, 1, "same (symbol, source, created_at) upserts, never duplicates")
}

func TestProcessPendingBatchRespectsBatchSize(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"item": {Score: 0.1, Confidence: 0.5},
	}}
	store := newTestCache()
	engine := NewAlertEngine(store, nil, logger.NewNop(), 0.7, 0.8)
	processor := NewBatchProcessor(staging, records, analyzer, store, engine, logger.NewNop(), 3, 5*time.Second, time.Second)

	now := time.Now()
	for i := 0; i < 5; i++ {
		enqueueItem(t, staging, "item", "NVDA", entity.SourceGeneral, now.Add(time.Duration(i)*time.Millisecond))
	}

	processor.ProcessPendingBatch(context.Background())
	assert.Len(t, staging.pending, 2, "one run drains at most the batch size")

	processor.ProcessPendingBatch(context.Background())
	assert.Empty(t, staging.pending)
}

func TestProcessPendingBatchFinishesInFlightItemOnCancel(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	analyzer := &stubAnalyzer{
		results: map[string]*dto.Analysis{
			"Strong earnings beat": {Score: 0.9, Confidence: 0.85},
		},
		onAnalyze: cancel,
	}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	now := time.Now()
	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, now)
	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, now.Add(time.Millisecond))

	processor.ProcessPendingBatch(ctx)

	assert.Empty(t, staging.deadLetters, "cancellation mid-analysis must not dead-letter a healthy item")
	assert.Len(t, records.records, 1, "the in-flight item runs to completion")
	_, found := bundle.store.Snapshot("NVDA")
	assert.True(t, found)
	assert.Len(t, staging.pending, 1, "the stop is observed before the next item")
}

func TestProcessPendingBatchRemoveFailureNeverDoubleCounts(t *testing.T) {
	staging := &fakeStaging{removeErr: errors.New("redis timeout")}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{results: map[string]*dto.Analysis{
		"Strong earnings beat": {Score: 0.9, Confidence: 0.85},
	}}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, time.Now())
	processor.ProcessPendingBatch(context.Background())

	assert.Len(t, records.records, 1, "the item is persisted even when Remove fails")
	_, found := bundle.store.Snapshot("NVDA")
	assert.False(t, found, "the cache fold waits for a successful Remove")
	assert.Len(t, staging.pending, 1)

	// Remove recovers; the re-read entry re-upserts and folds once
	staging.removeErr = nil
	processor.ProcessPendingBatch(context.Background())

	assert.Len(t, records.records, 1)
	assert.Empty(t, staging.pending)
	agg, found := bundle.store.Aggregate("NVDA")
	require.True(t, found)
	assert.Equal(t, int64(1), agg.Count, "the re-read entry folds into the aggregate exactly once")
	assert.Len(t, bundle.store.Alerts("NVDA", 0), 1)
}

func TestProcessPendingBatchReplayedDeadLettersFlowThrough(t *testing.T) {
	staging := &fakeStaging{}
	records := newFakeRecords()
	analyzer := &stubAnalyzer{err: errors.New("analyzer offline")}
	processor, bundle := newTestProcessor(staging, records, analyzer)

	enqueueItem(t, staging, "Strong earnings beat", "NVDA", entity.SourceEarnings, time.Now())
	processor.ProcessPendingBatch(context.Background())
	require.Len(t, staging.deadLetters, 1)

	// analyzer recovers; operator replays
	analyzer.err = nil
	analyzer.results = map[string]*dto.Analysis{
		"Strong earnings beat": {Score: 0.9, Confidence: 0.85},
	}
	replayed, err := staging.ReplayDeadLetters(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	processor.ProcessPendingBatch(context.Background())
	assert.Len(t, records.records, 1)
	_, found := bundle.store.Snapshot("NVDA")
	assert.True(t, found)
}
