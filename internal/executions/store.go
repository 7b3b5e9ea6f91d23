package executions

import (
	"context"

	"github.com/sabihatasneem/st2/internal/models"
)

// ExecutionStore defines the storage methods required by the execution service.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	GetExecution(ctx context.Context, executionID string) (*models.Execution, error)
	ListExecutions(ctx context.Context, query models.ListExecutionsQuery) ([]models.Execution, int64, error)
	TransitionExecution(ctx context.Context, executionID string, from, to models.ExecutionStatus) error
	RequestExecutionCancel(ctx context.Context, executionID string) error
	GetAction(ctx context.Context, name string) (*models.Action, error)
}
