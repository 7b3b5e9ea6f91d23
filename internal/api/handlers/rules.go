package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/rules"
)

// RuleHandler exposes rule CRUD over HTTP.
type RuleHandler struct {
	service *rules.Service
	logger  logging.Logger
}

// NewRuleHandler creates a rule handler.
func NewRuleHandler(service *rules.Service, logger logging.Logger) *RuleHandler {
	return &RuleHandler{service: service, logger: logger}
}

// Create godoc
// @Summary Create a rule
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body models.CreateRuleRequest true "Rule definition"
// @Success 201 {object} response.SuccessResponse{data=models.RuleResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	var req models.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, rule, "rule created")
}

// List godoc
// @Summary List rules
// @Tags rules
// @Produce json
// @Param trigger_id query string false "Filter by trigger"
// @Param enabled query bool false "Filter by enabled flag"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.SuccessResponse{data=models.RuleListResponse}
// @Router /api/v1/rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	var query models.ListRulesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, err := h.service.ListRules(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, list)
}

// Get godoc
// @Summary Get a rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.SuccessResponse{data=models.RuleResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.service.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, rule)
}

// Update godoc
// @Summary Update a rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body models.UpdateRuleRequest true "Fields to update"
// @Success 200 {object} response.SuccessResponse{data=models.RuleResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	var req models.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, rule)
}

// Delete godoc
// @Summary Delete a rule
// @Tags rules
// @Param id path string true "Rule ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}
