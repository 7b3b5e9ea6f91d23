package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/triggers"
)

// TriggerHandler exposes trigger CRUD over HTTP.
type TriggerHandler struct {
	service *triggers.Service
	logger  logging.Logger
	baseURL string
}

// NewTriggerHandler creates a trigger handler. baseURL is used to decorate
// webhook triggers with their inbound URL.
func NewTriggerHandler(service *triggers.Service, logger logging.Logger, baseURL string) *TriggerHandler {
	return &TriggerHandler{service: service, logger: logger, baseURL: baseURL}
}

// Create godoc
// @Summary Create a trigger
// @Tags triggers
// @Accept json
// @Produce json
// @Param trigger body models.CreateTriggerRequest true "Trigger definition"
// @Success 201 {object} response.SuccessResponse{data=models.TriggerResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/triggers [post]
func (h *TriggerHandler) Create(c *gin.Context) {
	var req models.CreateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	trigger, err := h.service.CreateTrigger(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	h.decorateWebhookURL(trigger)
	response.Created(c, trigger, "trigger created")
}

// List godoc
// @Summary List triggers
// @Tags triggers
// @Produce json
// @Param type query string false "Filter by type" Enums(webhook, timer_once, timer_cron)
// @Param status query string false "Filter by status" Enums(active, inactive)
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.SuccessResponse{data=models.TriggerListResponse}
// @Router /api/v1/triggers [get]
func (h *TriggerHandler) List(c *gin.Context) {
	var query models.ListTriggersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	list, err := h.service.ListTriggers(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	for i := range list.Triggers {
		h.decorateWebhookURL(&list.Triggers[i])
	}
	response.OK(c, list)
}

// Get godoc
// @Summary Get a trigger
// @Tags triggers
// @Produce json
// @Param id path string true "Trigger ID"
// @Success 200 {object} response.SuccessResponse{data=models.TriggerResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/triggers/{id} [get]
func (h *TriggerHandler) Get(c *gin.Context) {
	trigger, err := h.service.GetTrigger(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	h.decorateWebhookURL(trigger)
	response.OK(c, trigger)
}

// Update godoc
// @Summary Update a trigger
// @Tags triggers
// @Accept json
// @Produce json
// @Param id path string true "Trigger ID"
// @Param trigger body models.UpdateTriggerRequest true "Fields to update"
// @Success 200 {object} response.SuccessResponse{data=models.TriggerResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/triggers/{id} [put]
func (h *TriggerHandler) Update(c *gin.Context) {
	var req models.UpdateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	trigger, err := h.service.UpdateTrigger(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	h.decorateWebhookURL(trigger)
	response.OK(c, trigger)
}

// Delete godoc
// @Summary Delete a trigger
// @Tags triggers
// @Param id path string true "Trigger ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/triggers/{id} [delete]
func (h *TriggerHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteTrigger(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.NoContent(c)
}

func (h *TriggerHandler) decorateWebhookURL(trigger *models.TriggerResponse) {
	if trigger != nil && trigger.Type == models.TriggerTypeWebhook {
		trigger.WebhookURL = fmt.Sprintf("%s/api/v1/webhook/%s", h.baseURL, trigger.ID)
	}
}
