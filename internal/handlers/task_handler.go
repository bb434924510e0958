package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/httputil"
	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/tasks"
	"github.com/taskhub/backend/internal/validation"
)

// TaskService is the subset of tasks.Service needed by the handler.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, fields map[string]any) (*models.Task, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]any) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, opts models.TaskListOptions) ([]*models.Task, error)
}

var errTaskNotFound = apperror.NotFound("Task not found")

// TaskHandler serves /tasks endpoints. Every route runs behind BearerAuth and
// only ever sees the caller's own tasks.
type TaskHandler struct {
	Tasks     TaskService
	Validator *validation.Validator
	Logger    *slog.Logger
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	fields, ok := decodeBody(w, r, h.Validator, h.Logger, validation.TaskCreate)
	if !ok {
		return
	}
	task, err := h.Tasks.Create(r.Context(), acc.ID, fields)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /tasks?completed=&sortBy=&limit=&skip=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	list, err := h.Tasks.List(r.Context(), acc.ID, tasks.ParseListOptions(r.URL.Query()))
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.Tasks.Get(r.Context(), acc.ID, id)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

// UpdateTask handles PATCH /tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	fields, ok := decodeBody(w, r, h.Validator, h.Logger, validation.TaskUpdate)
	if !ok {
		return
	}
	task, err := h.Tasks.Update(r.Context(), acc.ID, id, fields)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{id} and returns the removed task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.Tasks.Delete(r.Context(), acc.ID, id)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

// taskID parses the {id} path value. A malformed id cannot name any task, so
// it is reported the same way as a missing one.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, nil, errTaskNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// requireAccount returns the account placed in the context by BearerAuth.
func requireAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Please authenticate.")
		return nil, false
	}
	return acc, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v *validation.Validator, log *slog.Logger, schema string) (map[string]any, bool) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		httputil.WriteError(w, log, err)
		return nil, false
	}
	fields, err := v.Decode(schema, body)
	if err != nil {
		httputil.WriteError(w, log, err)
		return nil, false
	}
	return fields, true
}
