package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

const taskColumns = `id, description, completed, owner_id, created_at, updated_at`

// taskSortColumns whitelists ORDER BY targets.
var taskSortColumns = map[string]string{
	models.TaskSortCreatedAt:   "created_at",
	models.TaskSortUpdatedAt:   "updated_at",
	models.TaskSortDescription: "description",
	models.TaskSortCompleted:   "completed",
}

// TaskRepo stores tasks. Every read and write except Create and
// DeleteByOwner is constrained by owner_id.
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, description, completed, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, t.ID, t.Description, t.Completed, t.OwnerID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2
	`, id, ownerID))
}

// UpdateOwned applies patch in a single statement, so of two concurrent
// writers to the same row the later one sees the earlier one's result.
func (r *TaskRepo) UpdateOwned(ctx context.Context, ownerID, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET description = COALESCE($3::text, description),
		    completed = COALESCE($4::boolean, completed),
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID, patch.Description, patch.Completed))
}

func (r *TaskRepo) DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		DELETE FROM tasks WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID))
}

func (r *TaskRepo) ListOwned(ctx context.Context, ownerID uuid.UUID, opts models.TaskListOptions) ([]*models.Task, error) {
	query, args := buildListQuery(ownerID, opts)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	list := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// DeleteByOwner removes every task of ownerID inside tx and returns how many went.
func (r *TaskRepo) DeleteByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildListQuery(ownerID uuid.UUID, opts models.TaskListOptions) (string, []any) {
	var b strings.Builder
	args := []any{ownerID}
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`)

	if opts.Completed != nil {
		args = append(args, *opts.Completed)
		fmt.Fprintf(&b, ` AND completed = $%d`, len(args))
	}
	if col, ok := taskSortColumns[opts.SortField]; ok {
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY %s %s, id %s`, col, dir, dir)
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}
	return b.String(), args
}
