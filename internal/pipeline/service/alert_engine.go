package service

import (
	"math"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/pkg/logger"
	"market-sentiment-pipeline/pkg/telegram"
)

// AlertEngine evaluates freshly scored items against the spike thresholds.
// The rule is one-shot per item: repeated qualifying items each produce a new
// alert, with no de-duplication or cooldown window.
type AlertEngine interface {
	Check(symbol string, analysis dto.Analysis, at time.Time) *entity.Alert
}

// NewAlertEngine creates a new AlertEngine. notifier may be nil.
func NewAlertEngine(cacheStore *cache.Store, notifier telegram.Notifier, log *logger.Logger, minConfidence, minAbsScore float64) AlertEngine {
	return &alertEngine{
		cache:         cacheStore,
		notifier:      notifier,
		logger:        log,
		minConfidence: minConfidence,
		minAbsScore:   minAbsScore,
	}
}

type alertEngine struct {
	cache         *cache.Store
	notifier      telegram.Notifier
	logger        *logger.Logger
	minConfidence float64
	minAbsScore   float64
}

// Check fires an alert when confidence and absolute score both clear their
// thresholds. Returns the recorded alert, or nil when nothing fired.
func (e *alertEngine) Check(symbol string, analysis dto.Analysis, at time.Time) *entity.Alert {
	if analysis.Confidence < e.minConfidence || math.Abs(analysis.Score) < e.minAbsScore {
		return nil
	}

	alertType := entity.AlertPositiveSpike
	if analysis.Score < 0 {
		alertType = entity.AlertNegativeSpike
	}

	alert := entity.Alert{
		Symbol:     symbol,
		Sentiment:  analysis.Score,
		Confidence: analysis.Confidence,
		Timestamp:  at,
		Type:       alertType,
	}
	e.cache.PushAlert(alert)

	e.logger.Info("Sentiment alert recorded",
		logger.StringField("symbol", symbol),
		logger.StringField("type", string(alertType)),
		logger.Float64Field("score", analysis.Score),
		logger.Float64Field("confidence", analysis.Confidence),
	)

	if e.notifier != nil {
		msg := telegram.FormatSentimentAlert(symbol, analysis.Score, analysis.Confidence, string(alertType), at)
		if err := e.notifier.SendMessage(msg); err != nil {
			e.logger.Error("Failed to send alert notification", logger.ErrorField(err), logger.StringField("symbol", symbol))
		}
	}

	return &alert
}
