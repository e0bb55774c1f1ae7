package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MaxTextLength bounds the snippet size accepted at the ingress boundary.
	MaxTextLength = 10000
	// MaxSymbolLength bounds the symbol identifier.
	MaxSymbolLength = 10
	// MaxMetadataBytes bounds the opaque producer metadata payload.
	MaxMetadataBytes = 8192
)

// PendingItem is a validated snippet staged for analysis. It is ephemeral:
// removed on success or moved whole to the dead-letter stream on failure.
type PendingItem struct {
	Text       string          `json:"text"`
	Symbol     string          `json:"symbol,omitempty"`
	Source     Source          `json:"source"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Validate enforces the ingress contract.
func (p *PendingItem) Validate() error {
	if len(p.Text) == 0 || len(p.Text) > MaxTextLength {
		return fmt.Errorf("text length must be between 1 and %d characters", MaxTextLength)
	}
	if len(p.Symbol) > MaxSymbolLength {
		return fmt.Errorf("symbol must be at most %d characters", MaxSymbolLength)
	}
	if !p.Source.Valid() {
		return fmt.Errorf("unknown sentiment source: %q", p.Source)
	}
	if len(p.Metadata) > MaxMetadataBytes {
		return fmt.Errorf("metadata must be at most %d bytes", MaxMetadataBytes)
	}
	return nil
}

// DeadLetterItem wraps a failed PendingItem with its failure context so it can
// be replayed manually through the same pipeline entry point.
type DeadLetterItem struct {
	Item     PendingItem `json:"item"`
	Error    string      `json:"error"`
	FailedAt time.Time   `json:"failed_at"`
}
