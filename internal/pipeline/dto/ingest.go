package dto

import "encoding/json"

// EnqueueSentimentRequest is the ingress payload for a validated item.
type EnqueueSentimentRequest struct {
	Text     string          `json:"text"`
	Symbol   string          `json:"symbol,omitempty"`
	Source   string          `json:"source"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
}

// EnqueueSentimentResponse acknowledges a staged item.
type EnqueueSentimentResponse struct {
	Status     string `json:"status"`
	EnqueuedAt string `json:"enqueued_at"`
}

// ReplayDeadLettersResponse reports how many items were re-enqueued.
type ReplayDeadLettersResponse struct {
	Replayed int `json:"replayed"`
}
