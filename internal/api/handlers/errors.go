package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sabihatasneem/st2/internal/api/response"
	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/internal/triggers"
	"go.uber.org/zap"
)

// handleServiceError maps service layer errors onto HTTP responses.
func handleServiceError(c *gin.Context, logger logging.Logger, err error) {
	var validationErr triggers.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(c, validationErr.Error(), nil)
		return
	}

	var conflictErr executions.ConflictError
	if errors.As(err, &conflictErr) {
		response.Conflict(c, conflictErr.Error(), nil)
		return
	}

	switch {
	case errors.Is(err, storage.ErrTriggerNotFound):
		response.NotFound(c, "trigger not found")
	case errors.Is(err, storage.ErrRuleNotFound):
		response.NotFound(c, "rule not found")
	case errors.Is(err, storage.ErrActionNotFound):
		response.NotFound(c, "action not found")
	case errors.Is(err, storage.ErrExecutionNotFound):
		response.NotFound(c, "execution not found")
	default:
		logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, "internal server error")
	}
}
