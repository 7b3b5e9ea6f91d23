package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
)

// ExecutionHandler exposes execution operations over HTTP.
type ExecutionHandler struct {
	service *executions.Service
	logger  logging.Logger
}

// NewExecutionHandler creates an execution handler.
func NewExecutionHandler(service *executions.Service, logger logging.Logger) *ExecutionHandler {
	return &ExecutionHandler{service: service, logger: logger}
}

// Create godoc
// @Summary Request a manual execution
// @Tags executions
// @Accept json
// @Produce json
// @Param execution body models.CreateExecutionRequest true "Execution request"
// @Success 202 {object} response.SuccessResponse{data=models.ExecutionResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/executions [post]
func (h *ExecutionHandler) Create(c *gin.Context) {
	var req models.CreateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	execution, err := h.service.CreateManual(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Accepted(c, execution, "execution requested")
}

// List godoc
// @Summary List executions
// @Tags executions
// @Produce json
// @Param status query string false "Filter by status" Enums(requested, scheduled, running, succeeded, failed, timeout, canceled)
// @Param rule_id query string false "Filter by rule"
// @Param trigger_instance_id query string false "Filter by trigger instance"
// @Param action_name query string false "Filter by action"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.SuccessResponse{data=models.ExecutionListResponse}
// @Router /api/v1/executions [get]
func (h *ExecutionHandler) List(c *gin.Context) {
	var query models.ListExecutionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, err := h.service.ListExecutions(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, list)
}

// Get godoc
// @Summary Get an execution
// @Tags executions
// @Produce json
// @Param id path string true "Execution ID"
// @Success 200 {object} response.SuccessResponse{data=models.ExecutionResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionHandler) Get(c *gin.Context) {
	execution, err := h.service.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, execution)
}

// Cancel godoc
// @Summary Cancel an execution
// @Description Cancels a pending execution immediately or flags a running one for cancellation
// @Tags executions
// @Produce json
// @Param id path string true "Execution ID"
// @Success 202 {object} response.SuccessResponse{data=models.ExecutionResponse}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/executions/{id}/cancel [post]
func (h *ExecutionHandler) Cancel(c *gin.Context) {
	execution, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Accepted(c, execution, "cancellation requested")
}

// Rerun godoc
// @Summary Rerun a finished execution
// @Description Creates a fresh execution of the same action with the same parameters
// @Tags executions
// @Produce json
// @Param id path string true "Execution ID"
// @Success 202 {object} response.SuccessResponse{data=models.ExecutionResponse}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/executions/{id}/rerun [post]
func (h *ExecutionHandler) Rerun(c *gin.Context) {
	execution, err := h.service.Rerun(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Accepted(c, execution, "execution requested")
}
