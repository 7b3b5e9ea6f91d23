package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
)

// MetricsStore supplies entity counts for the metrics endpoint.
type MetricsStore interface {
	CollectStats(ctx context.Context) (*models.PlatformStats, error)
}

// MetricsHandler handles metrics requests.
type MetricsHandler struct {
	store  MetricsStore
	logger logging.Logger
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(store MetricsStore, logger logging.Logger) *MetricsHandler {
	return &MetricsHandler{store: store, logger: logger}
}

// Metrics godoc
// @Summary Get platform metrics
// @Description Returns entity counts across triggers, rules, actions, instances and executions
// @Tags System
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=models.PlatformStats}
// @Router /metrics [get]
func (h *MetricsHandler) Metrics(c *gin.Context) {
	stats, err := h.store.CollectStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, stats)
}
