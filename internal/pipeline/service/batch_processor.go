package service

import (
	"context"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/pkg/logger"
	"market-sentiment-pipeline/pkg/utils"

	"gorm.io/datatypes"
)

// BatchProcessor drains the pending queue in bounded batches: each item is
// analyzed, persisted, applied to the cache and checked for alerts, or moved
// whole to the dead-letter store on failure.
type BatchProcessor interface {
	Start(ctx context.Context)
	ProcessPendingBatch(ctx context.Context)
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(
	staging repository.StagingRepository,
	records repository.SentimentRecordRepository,
	analyzer repository.AnalyzerRepository,
	cacheStore *cache.Store,
	alertEngine AlertEngine,
	log *logger.Logger,
	batchSize int,
	interval time.Duration,
	analyzerTimeout time.Duration,
) BatchProcessor {
	return &batchProcessor{
		staging:         staging,
		records:         records,
		analyzer:        analyzer,
		cache:           cacheStore,
		alertEngine:     alertEngine,
		logger:          log,
		batchSize:       batchSize,
		interval:        interval,
		analyzerTimeout: analyzerTimeout,
	}
}

type batchProcessor struct {
	staging         repository.StagingRepository
	records         repository.SentimentRecordRepository
	analyzer        repository.AnalyzerRepository
	cache           *cache.Store
	alertEngine     AlertEngine
	logger          *logger.Logger
	batchSize       int
	interval        time.Duration
	analyzerTimeout time.Duration
}

// Start begins the fixed-interval processing loop. Batches run synchronously
// on the ticker, so runs never overlap; cancellation stops future runs while
// the in-flight item always completes.
func (s *batchProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Batch processor stopping")
			return
		case <-ticker.C:
			s.ProcessPendingBatch(ctx)
		}
	}
}

// ProcessPendingBatch reads up to the batch size from the pending queue and
// processes items sequentially in queue order, so same-symbol items hit the
// cache in order. A single item's failure never halts the batch.
func (s *batchProcessor) ProcessPendingBatch(ctx context.Context) {
	messages, err := s.staging.FetchPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to fetch pending items", logger.ErrorField(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	s.logger.Info("Processing pending batch", logger.IntField("items", len(messages)))

	processed, failed := 0, 0
	for _, msg := range messages {
		// The stop check sits between items: the current item always
		// finishes, so the cache is never left mid-item.
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}
		if s.processItem(ctx, msg) {
			processed++
		} else {
			failed++
		}
	}

	s.logger.Info("Batch completed",
		logger.IntField("processed", processed),
		logger.IntField("dead_lettered", failed),
	)
}

// processItem runs one item through analyze -> persist -> cache -> alerts.
// Returns false when the item was dead-lettered.
func (s *batchProcessor) processItem(ctx context.Context, msg repository.PendingMessage) bool {
	// Detached from the loop's cancellation: stop is only observed between
	// items, so the in-flight item always runs to completion.
	itemCtx := context.WithoutCancel(ctx)
	item := msg.Item

	analyzeCtx := dto.AnalyzeContext{
		Symbol:   item.Symbol,
		Source:   item.Source,
		Metadata: item.Metadata,
		UserID:   item.UserID,
	}

	analysisCtx, cancel := context.WithTimeout(itemCtx, s.analyzerTimeout)
	analysis, err := s.analyzer.Analyze(analysisCtx, item.Text, analyzeCtx)
	cancel()
	if err != nil {
		s.deadLetter(itemCtx, msg, err)
		return false
	}

	record := &entity.SentimentRecord{
		Symbol:       item.Symbol,
		Source:       item.Source,
		Text:         item.Text,
		Score:        analysis.Score,
		Confidence:   analysis.Confidence,
		Polarity:     analysis.Polarity,
		Subjectivity: analysis.Subjectivity,
		Keywords:     analysis.Keywords,
		Metadata:     datatypes.JSON(item.Metadata),
		UserID:       item.UserID,
		CreatedAt:    item.EnqueuedAt,
	}
	if err := s.records.Upsert(itemCtx, record); err != nil {
		s.deadLetter(itemCtx, msg, err)
		return false
	}

	// The record is durable from here on. Removing the entry gates the
	// cache fold: a failed Remove means the entry is re-read next run,
	// which re-upserts the same row but must not double-count the
	// aggregate or duplicate a series point.
	if err := s.staging.Remove(itemCtx, msg.ID); err != nil {
		s.logger.Error("Failed to remove processed pending entry",
			logger.ErrorField(err),
			logger.StringField("entry_id", msg.ID),
		)
		return true
	}

	// Cache and alert problems are logged non-fatal, the realtime view
	// catches up on the next item.
	if item.Symbol != "" {
		if err := s.cache.UpdateRealtime(item.Symbol, *analysis, item.EnqueuedAt); err != nil {
			s.logger.Error("Failed to update sentiment cache",
				logger.ErrorField(err),
				logger.StringField("symbol", item.Symbol),
			)
		} else {
			s.alertEngine.Check(item.Symbol, *analysis, item.EnqueuedAt)
		}
	}
	return true
}

func (s *batchProcessor) deadLetter(ctx context.Context, msg repository.PendingMessage, cause error) {
	s.logger.Error("Item failed, moving to dead letter",
		logger.ErrorField(cause),
		logger.StringField("entry_id", msg.ID),
		logger.StringField("symbol", msg.Item.Symbol),
	)
	if err := s.staging.MoveToDeadLetter(ctx, msg, cause); err != nil {
		s.logger.Error("Failed to move item to dead letter",
			logger.ErrorField(err),
			logger.StringField("entry_id", msg.ID),
		)
	}
}
