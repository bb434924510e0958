// Package tasks scopes every task operation to the account that owns it.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/repository"
)

// Repository is the task storage. Owned methods must return
// repository.ErrNotFound both when the task is missing and when it belongs
// to someone else.
type Repository interface {
	Create(ctx context.Context, t *models.Task) error
	GetOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	UpdateOwned(ctx context.Context, ownerID, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID, opts models.TaskListOptions) ([]*models.Task, error)
}

// updatableFields is the allow-list for Update.
var updatableFields = map[string]bool{
	"description": true,
	"completed":   true,
}

var errTaskNotFound = apperror.NotFound("Task not found")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a task owned by ownerID. A caller-supplied owner and unknown
// fields are ignored.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, fields map[string]any) (*models.Task, error) {
	raw, ok := fields["description"].(string)
	if !ok {
		return nil, apperror.Validation("Description is required")
	}
	desc := strings.TrimSpace(raw)
	if desc == "" {
		return nil, apperror.Validation("Description is required")
	}
	t := &models.Task{
		ID:          uuid.New(),
		Description: desc,
		OwnerID:     ownerID,
	}
	if v, ok := fields["completed"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, apperror.Validation("Completed must be a boolean")
		}
		t.Completed = b
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create task: %w", err))
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	t, err := s.repo.GetOwned(ctx, ownerID, id)
	if err != nil {
		return nil, mapErr("get task", err)
	}
	return t, nil
}

// Update applies fields to the owner's task. Any key outside the allow-list
// rejects the whole update before the store is touched.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]any) (*models.Task, error) {
	patch, err := parsePatch(fields)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.UpdateOwned(ctx, ownerID, id, patch)
	if err != nil {
		return nil, mapErr("update task", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	t, err := s.repo.DeleteOwned(ctx, ownerID, id)
	if err != nil {
		return nil, mapErr("delete task", err)
	}
	return t, nil
}

// List returns the owner's tasks narrowed and ordered by opts.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, opts models.TaskListOptions) ([]*models.Task, error) {
	list, err := s.repo.ListOwned(ctx, ownerID, opts)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list tasks: %w", err))
	}
	return list, nil
}

// TasksOwnedBy returns every task of accountID in store order.
func (s *Service) TasksOwnedBy(ctx context.Context, accountID uuid.UUID) ([]*models.Task, error) {
	return s.List(ctx, accountID, models.TaskListOptions{})
}

func parsePatch(fields map[string]any) (models.TaskPatch, error) {
	var patch models.TaskPatch
	for k := range fields {
		if !updatableFields[k] {
			return patch, apperror.ErrInvalidUpdates
		}
	}
	if v, ok := fields["description"]; ok {
		s, ok := v.(string)
		if !ok {
			return patch, apperror.Validation("Description must be a string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return patch, apperror.Validation("Description is required")
		}
		patch.Description = &s
	}
	if v, ok := fields["completed"]; ok {
		b, ok := v.(bool)
		if !ok {
			return patch, apperror.Validation("Completed must be a boolean")
		}
		patch.Completed = &b
	}
	return patch, nil
}

func mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errTaskNotFound
	}
	return apperror.Internal(fmt.Errorf("%s: %w", op, err))
}
