package repository

import (
	"context"

	"market-sentiment-pipeline/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewSentimentRecordRepository creates a new instance of SentimentRecordRepository.
func NewSentimentRecordRepository(db *gorm.DB) SentimentRecordRepository {
	return &sentimentRecordRepository{
		db: db,
	}
}

type sentimentRecordRepository struct {
	db *gorm.DB
}

// Upsert writes a sentiment record keyed by (symbol, source, created_at) so
// reprocessing the same item updates in place instead of duplicating.
func (r *sentimentRecordRepository) Upsert(ctx context.Context, record *entity.SentimentRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "source"},
			{Name: "created_at"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"text", "score", "confidence", "polarity", "subjectivity",
			"keywords", "metadata", "user_id", "updated_at",
		}),
	}).Create(record).Error
}
