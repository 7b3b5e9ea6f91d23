package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/sabihatasneem/st2/internal/triggers"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultTimeoutSeconds = 60
	defaultHTTPMethod     = http.MethodPost
)

// Service encapsulates action registry business logic.
type Service struct {
	store ActionStore
}

// NewService creates an action service.
func NewService(store ActionStore) *Service {
	return &Service{store: store}
}

// CreateAction validates and registers an action under its name.
func (s *Service) CreateAction(ctx context.Context, req models.CreateActionRequest) (*models.Action, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, triggers.NewValidationError("name is required")
	}

	action := models.Action{
		Name:           req.Name,
		Description:    req.Description,
		RunnerType:     req.RunnerType,
		ParamsSchema:   req.ParamsSchema,
		Endpoint:       req.Endpoint,
		HTTPMethod:     strings.ToUpper(strings.TrimSpace(req.HTTPMethod)),
		Headers:        req.Headers,
		TimeoutSeconds: req.TimeoutSeconds,
		Enabled:        true,
	}

	if action.TimeoutSeconds <= 0 {
		action.TimeoutSeconds = defaultTimeoutSeconds
	}

	switch action.RunnerType {
	case models.RunnerTypeHTTP:
		if action.HTTPMethod == "" {
			action.HTTPMethod = defaultHTTPMethod
		}
		if err := validateEndpoint(action.Endpoint); err != nil {
			return nil, err
		}
	case models.RunnerTypeNoop:
		// Noop actions ignore endpoint configuration.
	default:
		return nil, triggers.NewValidationError("unsupported runner type: %s", action.RunnerType)
	}

	if len(action.ParamsSchema) > 0 {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(action.ParamsSchema)); err != nil {
			return nil, triggers.NewValidationError("invalid params schema: %v", err)
		}
	}

	if err := s.store.CreateAction(ctx, &action); err != nil {
		return nil, err
	}

	return s.store.GetAction(ctx, action.Name)
}

// GetAction fetches an action by name.
func (s *Service) GetAction(ctx context.Context, name string) (*models.Action, error) {
	return s.store.GetAction(ctx, name)
}

// ListActions returns actions with pagination metadata.
func (s *Service) ListActions(ctx context.Context, query models.ListActionsQuery) (models.ActionListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	actions, total, err := s.store.ListActions(ctx, query)
	if err != nil {
		return models.ActionListResponse{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.ActionListResponse{
		Actions: actions,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// UpdateAction updates the mutable fields of an action.
func (s *Service) UpdateAction(ctx context.Context, name string, req models.UpdateActionRequest) (*models.Action, error) {
	current, err := s.store.GetAction(ctx, name)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(req.ParamsSchema) > 0 {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(req.ParamsSchema)); err != nil {
			return nil, triggers.NewValidationError("invalid params schema: %v", err)
		}
		updates["params_schema"] = string(req.ParamsSchema)
	}

	if req.Endpoint != nil {
		if current.RunnerType == models.RunnerTypeHTTP {
			if err := validateEndpoint(*req.Endpoint); err != nil {
				return nil, err
			}
		}
		updates["endpoint"] = *req.Endpoint
	}

	if req.HTTPMethod != nil {
		updates["http_method"] = strings.ToUpper(strings.TrimSpace(*req.HTTPMethod))
	}

	if len(req.Headers) > 0 {
		b, err := json.Marshal(req.Headers)
		if err != nil {
			return nil, fmt.Errorf("marshal headers: %w", err)
		}
		updates["headers"] = string(b)
	}

	if req.TimeoutSeconds != nil {
		if *req.TimeoutSeconds <= 0 {
			return nil, triggers.NewValidationError("timeout_seconds must be positive")
		}
		updates["timeout_seconds"] = *req.TimeoutSeconds
	}

	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	if len(updates) > 0 {
		if err := s.store.UpdateAction(ctx, name, updates); err != nil {
			return nil, err
		}
	}

	return s.store.GetAction(ctx, name)
}

// DeleteAction removes an action from the registry.
func (s *Service) DeleteAction(ctx context.Context, name string) error {
	return s.store.DeleteAction(ctx, name)
}

// ValidateParams checks execution parameters against the action's params
// schema. An action without a schema accepts anything.
func ValidateParams(action *models.Action, params json.RawMessage) error {
	if len(action.ParamsSchema) == 0 {
		return nil
	}

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(action.ParamsSchema),
		gojsonschema.NewBytesLoader(params),
	)
	if err != nil {
		return fmt.Errorf("validate params schema: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return triggers.NewValidationError("params schema validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return triggers.NewValidationError("endpoint is required for http actions")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return triggers.NewValidationError("endpoint must be a valid http(s) URL")
	}

	return nil
}
