package tasks

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/taskhub/backend/internal/models"
)

// sortAliases maps accepted sortBy field spellings to sortable fields.
var sortAliases = map[string]string{
	"createdAt":   models.TaskSortCreatedAt,
	"created_at":  models.TaskSortCreatedAt,
	"updatedAt":   models.TaskSortUpdatedAt,
	"updated_at":  models.TaskSortUpdatedAt,
	"description": models.TaskSortDescription,
	"completed":   models.TaskSortCompleted,
}

// ParseListOptions reads completed, sortBy, limit and skip from q.
//
//   - completed: absent or empty means no filter; "true" filters to completed
//     tasks, any other value to incomplete ones.
//   - sortBy: "field:direction"; direction "desc" sorts descending, anything
//     else ascending. Unknown fields leave the result unordered.
//   - limit: positive integer; anything else means no limit.
//   - skip: non-negative integer; anything else means 0.
func ParseListOptions(q url.Values) models.TaskListOptions {
	var opts models.TaskListOptions

	if v := q.Get("completed"); v != "" {
		completed := v == "true"
		opts.Completed = &completed
	}

	if v := q.Get("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		if f, ok := sortAliases[field]; ok {
			opts.SortField = f
			opts.SortDesc = dir == "desc"
		}
	}

	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("skip")); err == nil && n > 0 {
		opts.Skip = n
	}
	return opts
}
