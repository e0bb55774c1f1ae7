package entity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForBoundaries(t *testing.T) {
	assert.Equal(t, CategoryNeutral, CategoryFor(0.3))
	assert.Equal(t, CategoryNeutral, CategoryFor(-0.3))
	assert.Equal(t, CategoryPositive, CategoryFor(0.3000001))
	assert.Equal(t, CategoryNegative, CategoryFor(-0.3000001))
	assert.Equal(t, CategoryNeutral, CategoryFor(0))
}

func TestAggregatedSentimentAdd(t *testing.T) {
	now := time.Now()
	agg := AggregatedSentiment{Symbol: "NVDA"}

	agg.Add(0.9, 0.85, now)
	require.Equal(t, int64(1), agg.Count)
	assert.InDelta(t, 0.9, agg.AvgScore, 1e-9)
	assert.InDelta(t, 0.85, agg.AvgConfidence, 1e-9)
	assert.Equal(t, CategoryPositive, agg.Category)

	agg.Add(-0.9, 0.85, now.Add(time.Second))
	require.Equal(t, int64(2), agg.Count)
	assert.InDelta(t, 0.0, agg.AvgScore, 1e-9)
	assert.Equal(t, CategoryNeutral, agg.Category)
}

func TestParseSource(t *testing.T) {
	for _, raw := range []string{"news", "twitter", "reddit", "youtube", "analyst", "earnings", "press_release", "general"} {
		source, err := ParseSource(raw)
		require.NoError(t, err)
		assert.Equal(t, Source(raw), source)
	}

	_, err := ParseSource("carrier_pigeon")
	assert.Error(t, err)
}

func TestPendingItemValidate(t *testing.T) {
	valid := PendingItem{
		Text:       "Strong earnings beat",
		Symbol:     "NVDA",
		Source:     SourceEarnings,
		EnqueuedAt: time.Now(),
	}
	assert.NoError(t, valid.Validate())

	empty := valid
	empty.Text = ""
	assert.Error(t, empty.Validate())

	long := valid
	long.Text = strings.Repeat("a", MaxTextLength+1)
	assert.Error(t, long.Validate())

	longSymbol := valid
	longSymbol.Symbol = "ABCDEFGHIJK"
	assert.Error(t, longSymbol.Validate())

	badSource := valid
	badSource.Source = "telepathy"
	assert.Error(t, badSource.Validate())

	bigMetadata := valid
	bigMetadata.Metadata = json.RawMessage(`"` + strings.Repeat("x", MaxMetadataBytes) + `"`)
	assert.Error(t, bigMetadata.Validate())
}
