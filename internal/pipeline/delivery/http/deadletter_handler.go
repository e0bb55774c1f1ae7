package http

import (
	"net/http"

	"market-sentiment-pipeline/internal/pipeline/dto"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeadLetterHandler exposes the dead-letter store for inspection and manual
// replay through the normal pipeline entry point.
type DeadLetterHandler struct {
	staging repository.StagingRepository
	logger  *logger.Logger
}

// NewDeadLetterHandler creates a new DeadLetterHandler.
func NewDeadLetterHandler(staging repository.StagingRepository, logger *logger.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{staging: staging, logger: logger}
}

// RegisterRoutes registers the dead-letter routes to the Echo group.
func (h *DeadLetterHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/deadletter", h.ListDeadLetters)
	g.POST("/deadletter/replay", h.ReplayDeadLetters)
}

// ListDeadLetters returns dead-lettered items with their failure context.
func (h *DeadLetterHandler) ListDeadLetters(c echo.Context) error {
	limit := intQueryOrDefault(c, "limit", defaultLimit)

	messages, err := h.staging.ListDeadLetters(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list dead letters", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list dead letters"})
	}
	return c.JSON(http.StatusOK, messages)
}

// ReplayDeadLetters re-enqueues all dead-lettered items.
func (h *DeadLetterHandler) ReplayDeadLetters(c echo.Context) error {
	replayed, err := h.staging.ReplayDeadLetters(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to replay dead letters", logger.ErrorField(err), logger.IntField("replayed", replayed))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to replay dead letters"})
	}
	return c.JSON(http.StatusOK, dto.ReplayDeadLettersResponse{Replayed: replayed})
}
