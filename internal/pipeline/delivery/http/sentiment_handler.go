package http

import (
	"net/http"
	"strconv"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/internal/pipeline/service"
	"market-sentiment-pipeline/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultTimeframe = "24h"
	defaultLimit     = 100
)

// SentimentHandler handles HTTP requests for the sentiment pipeline.
type SentimentHandler struct {
	queryService service.QueryService
	staging      repository.StagingRepository
	logger       *logger.Logger
}

// NewSentimentHandler creates a new SentimentHandler.
func NewSentimentHandler(queryService service.QueryService, staging repository.StagingRepository, logger *logger.Logger) *SentimentHandler {
	return &SentimentHandler{queryService: queryService, staging: staging, logger: logger}
}

// RegisterRoutes registers the sentiment routes to the Echo group.
func (h *SentimentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sentiment", h.EnqueueSentiment)
	g.GET("/sentiment/market", h.GetMarketSentiment)
	g.GET("/sentiment/alerts", h.GetSentimentAlerts)
	g.GET("/sentiment/:symbol", h.GetSymbolSentiment)
	g.GET("/sentiment/:symbol/trend", h.GetSentimentTrends)
}

// EnqueueSentiment stages one validated item for the batch processor.
func (h *SentimentHandler) EnqueueSentiment(c echo.Context) error {
	var req dto.EnqueueSentimentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}

	source, err := entity.ParseSource(req.Source)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	item := entity.PendingItem{
		Text:       req.Text,
		Symbol:     req.Symbol,
		Source:     source,
		Metadata:   req.Metadata,
		UserID:     req.UserID,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	if err := h.staging.Enqueue(c.Request().Context(), &item); err != nil {
		h.logger.Error("Failed to enqueue sentiment item", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue item"})
	}

	return c.JSON(http.StatusAccepted, dto.EnqueueSentimentResponse{
		Status:     "queued",
		EnqueuedAt: item.EnqueuedAt.Format(time.RFC3339Nano),
	})
}

// GetSymbolSentiment returns the series, aggregate, snapshot and summary for
// one symbol.
func (h *SentimentHandler) GetSymbolSentiment(c echo.Context) error {
	symbol := c.Param("symbol")
	timeframe := queryOrDefault(c, "timeframe", defaultTimeframe)
	limit := intQueryOrDefault(c, "limit", defaultLimit)

	resp, err := h.queryService.GetSymbolSentiment(c.Request().Context(), symbol, timeframe, limit)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetMarketSentiment returns the cross-symbol market view.
func (h *SentimentHandler) GetMarketSentiment(c echo.Context) error {
	timeframe := queryOrDefault(c, "timeframe", defaultTimeframe)
	limit := intQueryOrDefault(c, "limit", defaultLimit)

	resp, err := h.queryService.GetMarketSentiment(c.Request().Context(), timeframe, limit)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSentimentTrends returns the half-split trend for one symbol.
func (h *SentimentHandler) GetSentimentTrends(c echo.Context) error {
	symbol := c.Param("symbol")
	timeframe := queryOrDefault(c, "timeframe", defaultTimeframe)

	resp, err := h.queryService.GetSentimentTrends(c.Request().Context(), symbol, timeframe)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSentimentAlerts returns the filtered alert list.
func (h *SentimentHandler) GetSentimentAlerts(c echo.Context) error {
	symbol := c.QueryParam("symbol")

	minConfidence := 0.0
	if raw := c.QueryParam("min_confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid min_confidence"})
		}
		minConfidence = parsed
	}

	resp, err := h.queryService.GetSentimentAlerts(c.Request().Context(), symbol, minConfidence)
	if err != nil {
		h.logger.Error("Failed to get sentiment alerts", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get alerts"})
	}
	return c.JSON(http.StatusOK, resp)
}

func queryOrDefault(c echo.Context, name, fallback string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return fallback
}

func intQueryOrDefault(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
