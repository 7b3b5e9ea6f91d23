package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
)

// InstanceHandler exposes recorded trigger instances over HTTP.
type InstanceHandler struct {
	service *ingestion.Service
	logger  logging.Logger
}

// NewInstanceHandler creates an instance handler.
func NewInstanceHandler(service *ingestion.Service, logger logging.Logger) *InstanceHandler {
	return &InstanceHandler{service: service, logger: logger}
}

// List godoc
// @Summary List trigger instances
// @Tags instances
// @Produce json
// @Param trigger_id query string false "Filter by trigger"
// @Param status query string false "Filter by status" Enums(pending, processed, failed)
// @Param source query string false "Filter by source" Enums(webhook, timer, manual)
// @Param retention_status query string false "Filter by retention" Enums(active, archived)
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.SuccessResponse{data=models.TriggerInstanceListResponse}
// @Router /api/v1/instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	var query models.ListInstancesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, err := h.service.ListInstances(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, list)
}

// Get godoc
// @Summary Get a trigger instance
// @Tags instances
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} response.SuccessResponse{data=models.TriggerInstanceResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/instances/{id} [get]
func (h *InstanceHandler) Get(c *gin.Context) {
	instance, err := h.service.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if instance == nil {
		response.NotFound(c, "trigger instance not found")
		return
	}

	response.OK(c, instance)
}
