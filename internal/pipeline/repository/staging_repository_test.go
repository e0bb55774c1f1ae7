package repository

import (
	"encoding/json"
	"testing"
	"time"

	"market-sentiment-pipeline/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePendingEntry(t *testing.T) {
	item := entity.PendingItem{
		Text:       "Strong earnings beat",
		Symbol:     "NVDA",
		Source:     entity.SourceEarnings,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(&item)
	require.NoError(t, err)

	msg, deadLetter := parsePendingEntry("1-0", map[string]interface{}{"payload": string(payload)})
	require.Nil(t, deadLetter)
	assert.Equal(t, "1-0", msg.ID)
	assert.Equal(t, "NVDA", msg.Item.Symbol)
	assert.Equal(t, entity.SourceEarnings, msg.Item.Source)
}

func TestParsePendingEntryKeepsRawPayloadOnDecodeFailure(t *testing.T) {
	raw := `{"text": "truncated`

	_, deadLetter := parsePendingEntry("1-0", map[string]interface{}{"payload": raw})
	require.NotNil(t, deadLetter)
	assert.Equal(t, raw, deadLetter.Item.Text, "the raw payload survives for manual inspection")
	assert.NotEmpty(t, deadLetter.Error)
	assert.False(t, deadLetter.FailedAt.IsZero())
}

func TestParsePendingEntryMissingPayloadField(t *testing.T) {
	_, deadLetter := parsePendingEntry("1-0", map[string]interface{}{"body": "not a payload"})
	require.NotNil(t, deadLetter)
	assert.NotEmpty(t, deadLetter.Error)
	assert.NotEmpty(t, deadLetter.Item.Text)
}
