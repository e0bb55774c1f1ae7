package entity

import "time"

// Category classifies aggregated sentiment by weighted score.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNeutral  Category = "neutral"
	CategoryNegative Category = "negative"
)

const (
	// CategoryThreshold is the weighted-score cutoff for positive/negative
	// classification. Exactly +-CategoryThreshold resolves to neutral.
	CategoryThreshold = 0.3
)

// CategoryFor classifies a weighted score.
func CategoryFor(weightedScore float64) Category {
	switch {
	case weightedScore > CategoryThreshold:
		return CategoryPositive
	case weightedScore < -CategoryThreshold:
		return CategoryNegative
	default:
		return CategoryNeutral
	}
}

// RealtimeSnapshot is the latest single reading for a symbol. It is
// overwritten on every new item and expires after a period of inactivity.
type RealtimeSnapshot struct {
	Score        float64   `json:"score"`
	Confidence   float64   `json:"confidence"`
	Polarity     float64   `json:"polarity"`
	Subjectivity float64   `json:"subjectivity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TimeSeriesPoint is one timestamped reading in a symbol's series.
type TimeSeriesPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Score        float64   `json:"score"`
	Confidence   float64   `json:"confidence"`
	Polarity     float64   `json:"polarity"`
	Subjectivity float64   `json:"subjectivity"`
}

// AggregatedSentiment is the running statistical summary for a symbol within
// its TTL window. Counters are incremental; averages are derived.
type AggregatedSentiment struct {
	Symbol        string    `json:"symbol"`
	Count         int64     `json:"count"`
	SumScore      float64   `json:"sum_score"`
	SumConfidence float64   `json:"sum_confidence"`
	AvgScore      float64   `json:"avg_score"`
	AvgConfidence float64   `json:"avg_confidence"`
	WeightedScore float64   `json:"weighted_score"`
	Category      Category  `json:"category"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Add folds one reading into the counters and recomputes the derived fields.
func (a *AggregatedSentiment) Add(score, confidence float64, at time.Time) {
	a.Count++
	a.SumScore += score
	a.SumConfidence += confidence
	a.AvgScore = a.SumScore / float64(a.Count)
	a.AvgConfidence = a.SumConfidence / float64(a.Count)
	a.WeightedScore = a.AvgScore * a.AvgConfidence
	a.Category = CategoryFor(a.WeightedScore)
	a.LastUpdated = at
}

// AlertType distinguishes the direction of a sentiment spike.
type AlertType string

const (
	AlertPositiveSpike AlertType = "positive_spike"
	AlertNegativeSpike AlertType = "negative_spike"
)

// Alert is a flagged high-confidence, strongly-polarized reading.
type Alert struct {
	Symbol     string    `json:"symbol"`
	Sentiment  float64   `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Type       AlertType `json:"type"`
}
