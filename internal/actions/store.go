package actions

import (
	"context"

	"github.com/sabihatasneem/st2/internal/models"
)

// ActionStore defines the storage methods required by the action service.
type ActionStore interface {
	CreateAction(ctx context.Context, action *models.Action) error
	GetAction(ctx context.Context, name string) (*models.Action, error)
	ListActions(ctx context.Context, query models.ListActionsQuery) ([]models.Action, int64, error)
	UpdateAction(ctx context.Context, name string, updates map[string]interface{}) error
	DeleteAction(ctx context.Context, name string) error
}
