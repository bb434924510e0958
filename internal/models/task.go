package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch carries the mutable task fields; nil means unchanged.
type TaskPatch struct {
	Description *string
	Completed   *bool
}

// Sortable task fields.
const (
	TaskSortCreatedAt   = "created_at"
	TaskSortUpdatedAt   = "updated_at"
	TaskSortDescription = "description"
	TaskSortCompleted   = "completed"
)

// TaskListOptions narrows and orders a task listing. Zero value lists
// everything in store order.
type TaskListOptions struct {
	// Completed filters on the completion flag when non-nil.
	Completed *bool
	// SortField is one of the TaskSort constants; empty means no ordering.
	SortField string
	SortDesc  bool
	// Limit of 0 means unbounded.
	Limit int
	Skip  int
}
