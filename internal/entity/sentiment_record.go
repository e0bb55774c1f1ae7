package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SentimentRecord is the durable result of analyzing one item. Records are
// upserted keyed by (symbol, source, created_at) so reprocessing the same item
// never duplicates.
type SentimentRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Symbol       string         `gorm:"type:varchar(10);not null;uniqueIndex:idx_sentiment_records_identity" json:"symbol"`
	Source       Source         `gorm:"type:varchar(20);not null;uniqueIndex:idx_sentiment_records_identity" json:"source"`
	Text         string         `gorm:"type:text;not null" json:"text"`
	Score        float64        `gorm:"not null" json:"score"`
	Confidence   float64        `gorm:"not null" json:"confidence"`
	Polarity     float64        `json:"polarity"`
	Subjectivity float64        `json:"subjectivity"`
	Keywords     pq.StringArray `gorm:"type:text[]" json:"keywords"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	UserID       string         `gorm:"type:varchar(64)" json:"user_id"`
	CreatedAt    time.Time      `gorm:"not null;uniqueIndex:idx_sentiment_records_identity" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the SentimentRecord model.
func (SentimentRecord) TableName() string {
	return "sentiment_records"
}
