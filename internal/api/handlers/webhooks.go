package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/triggers"
)

// TriggerLookup loads a trigger row for firing. The storage client
// satisfies it.
type TriggerLookup interface {
	GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, *time.Time, error)
}

// WebhookHandler receives inbound webhook calls and manual test fires and
// routes them into the ingestion pipeline.
type WebhookHandler struct {
	lookup    TriggerLookup
	ingestion *ingestion.Service
	logger    logging.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(lookup TriggerLookup, ingestionService *ingestion.Service, logger logging.Logger) *WebhookHandler {
	return &WebhookHandler{lookup: lookup, ingestion: ingestionService, logger: logger}
}

// Receive godoc
// @Summary Receive a webhook
// @Description Fires a webhook trigger with the request body as payload
// @Tags webhooks
// @Accept json
// @Produce json
// @Param trigger_id path string true "Trigger ID"
// @Param payload body object true "Event payload"
// @Success 202 {object} response.SuccessResponse{data=ingestion.FireResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/webhook/{trigger_id} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	trigger := h.loadActive(c, models.TriggerTypeWebhook)
	if trigger == nil {
		return
	}

	payload := map[string]interface{}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.BadRequest(c, "invalid JSON payload", err.Error())
			return
		}
	}

	if err := triggers.ValidatePayload(trigger.Config, payload); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	result, err := h.ingestion.Fire(c.Request.Context(), trigger, payload, models.InstanceSourceWebhook)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Accepted(c, result, "webhook accepted")
}

// TestFire godoc
// @Summary Fire a trigger manually
// @Description Runs the full ingestion pipeline with a caller-supplied payload
// @Tags triggers
// @Accept json
// @Produce json
// @Param id path string true "Trigger ID"
// @Param payload body object false "Test payload"
// @Success 202 {object} response.SuccessResponse{data=ingestion.FireResult}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/triggers/{id}/fire [post]
func (h *WebhookHandler) TestFire(c *gin.Context) {
	trigger := h.loadActive(c, "")
	if trigger == nil {
		return
	}

	payload := map[string]interface{}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.BadRequest(c, "invalid JSON payload", err.Error())
			return
		}
	}

	result, err := h.ingestion.Fire(c.Request.Context(), trigger, payload, models.InstanceSourceManual)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Accepted(c, result, "trigger fired")
}

// loadActive fetches the trigger, writing the error response itself when the
// trigger is missing, inactive or of the wrong type. Returns nil on failure.
func (h *WebhookHandler) loadActive(c *gin.Context, wantType models.TriggerType) *models.Trigger {
	id := c.Param("trigger_id")
	if id == "" {
		id = c.Param("id")
	}

	trigger, _, err := h.lookup.GetTrigger(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return nil
	}

	if wantType != "" && trigger.Type != wantType {
		response.BadRequest(c, "trigger is not a webhook trigger", nil)
		return nil
	}

	if trigger.Status != models.TriggerStatusActive {
		response.Conflict(c, "trigger is inactive", nil)
		return nil
	}

	return trigger
}
