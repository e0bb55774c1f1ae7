package repository

import (
	"context"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/dto"
)

// AnalyzerRepository scores text for sentiment. Implementations are external
// collaborators; failures propagate as item failures.
type AnalyzerRepository interface {
	Analyze(ctx context.Context, text string, analyzeCtx dto.AnalyzeContext) (*dto.Analysis, error)
}

// SentimentRecordRepository persists scored items durably.
type SentimentRecordRepository interface {
	Upsert(ctx context.Context, record *entity.SentimentRecord) error
}

// PendingMessage is a staged item together with its staging identifier.
type PendingMessage struct {
	ID   string
	Item entity.PendingItem
}

// DeadLetterMessage is a dead-lettered item together with its identifier.
type DeadLetterMessage struct {
	ID         string
	DeadLetter entity.DeadLetterItem
}

// StagingRepository holds pending items and the dead-letter store.
type StagingRepository interface {
	Enqueue(ctx context.Context, item *entity.PendingItem) error
	FetchPending(ctx context.Context, limit int) ([]PendingMessage, error)
	Remove(ctx context.Context, id string) error
	MoveToDeadLetter(ctx context.Context, msg PendingMessage, cause error) error
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetterMessage, error)
	ReplayDeadLetters(ctx context.Context) (int, error)
}
