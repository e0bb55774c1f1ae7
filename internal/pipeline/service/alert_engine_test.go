package service

import (
	"errors"
	"testing"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) SendMessage(text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func newTestCache() *cache.Store {
	return cache.New(cache.Config{
		RealtimeTTL:   time.Minute,
		AggregateTTL:  time.Minute,
		AlertCapacity: 1000,
	})
}

func TestAlertEngineFiresNegativeSpike(t *testing.T) {
	store := newTestCache()
	engine := NewAlertEngine(store, nil, logger.NewNop(), 0.7, 0.8)

	alert := engine.Check("TSLA", dto.Analysis{Score: -0.85, Confidence: 0.75}, time.Now())
	require.NotNil(t, alert)
	assert.Equal(t, entity.AlertNegativeSpike, alert.Type)
	assert.InDelta(t, -0.85, alert.Sentiment, 1e-9)

	alerts := store.Alerts("TSLA", 0)
	require.Len(t, alerts, 1, "exactly one alert recorded")
}

func TestAlertEngineBelowThresholdsDoesNotFire(t *testing.T) {
	store := newTestCache()
	engine := NewAlertEngine(store, nil, logger.NewNop(), 0.7, 0.8)

	assert.Nil(t, engine.Check("TSLA", dto.Analysis{Score: -0.85, Confidence: 0.5}, time.Now()))
	assert.Nil(t, engine.Check("TSLA", dto.Analysis{Score: -0.79, Confidence: 0.9}, time.Now()))
	assert.Empty(t, store.Alerts("", 0))
}

func TestAlertEngineNoCooldown(t *testing.T) {
	store := newTestCache()
	engine := NewAlertEngine(store, nil, logger.NewNop(), 0.7, 0.8)

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NotNil(t, engine.Check("NVDA", dto.Analysis{Score: 0.9, Confidence: 0.9}, now))
	}
	assert.Len(t, store.Alerts("NVDA", 0), 3, "repeated qualifying items each produce a new alert")
}

func TestAlertEngineNotifies(t *testing.T) {
	store := newTestCache()
	notifier := &fakeNotifier{}
	engine := NewAlertEngine(store, notifier, logger.NewNop(), 0.7, 0.8)

	require.NotNil(t, engine.Check("NVDA", dto.Analysis{Score: 0.9, Confidence: 0.9}, time.Now()))
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "NVDA")
}

func TestAlertEngineNotifierFailureIsNonFatal(t *testing.T) {
	store := newTestCache()
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	engine := NewAlertEngine(store, notifier, logger.NewNop(), 0.7, 0.8)

	alert := engine.Check("NVDA", dto.Analysis{Score: 0.9, Confidence: 0.9}, time.Now())
	require.NotNil(t, alert)
	assert.Len(t, store.Alerts("NVDA", 0), 1, "alert is recorded even when notification fails")
}
