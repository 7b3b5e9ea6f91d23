package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/actions"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
)

// ActionHandler exposes the action registry over HTTP.
type ActionHandler struct {
	service *actions.Service
	logger  logging.Logger
}

// NewActionHandler creates an action handler.
func NewActionHandler(service *actions.Service, logger logging.Logger) *ActionHandler {
	return &ActionHandler{service: service, logger: logger}
}

// Create godoc
// @Summary Register an action
// @Tags actions
// @Accept json
// @Produce json
// @Param action body models.CreateActionRequest true "Action definition"
// @Success 201 {object} response.SuccessResponse{data=models.Action}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/actions [post]
func (h *ActionHandler) Create(c *gin.Context) {
	var req models.CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	action, err := h.service.CreateAction(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, action, "action registered")
}

// List godoc
// @Summary List actions
// @Tags actions
// @Produce json
// @Param runner_type query string false "Filter by runner type" Enums(http, noop)
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.SuccessResponse{data=models.ActionListResponse}
// @Router /api/v1/actions [get]
func (h *ActionHandler) List(c *gin.Context) {
	var query models.ListActionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, err := h.service.ListActions(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, list)
}

// Get godoc
// @Summary Get an action
// @Tags actions
// @Produce json
// @Param name path string true "Action name"
// @Success 200 {object} response.SuccessResponse{data=models.Action}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/actions/{name} [get]
func (h *ActionHandler) Get(c *gin.Context) {
	action, err := h.service.GetAction(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, action)
}

// Update godoc
// @Summary Update an action
// @Tags actions
// @Accept json
// @Produce json
// @Param name path string true "Action name"
// @Param action body models.UpdateActionRequest true "Fields to update"
// @Success 200 {object} response.SuccessResponse{data=models.Action}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/actions/{name} [put]
func (h *ActionHandler) Update(c *gin.Context) {
	var req models.UpdateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	action, err := h.service.UpdateAction(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, action)
}

// Delete godoc
// @Summary Delete an action
// @Tags actions
// @Param name path string true "Action name"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/actions/{name} [delete]
func (h *ActionHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteAction(c.Request.Context(), c.Param("name")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}
