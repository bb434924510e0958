package tasks

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskhub/backend/internal/models"
)

func TestParseListOptions(t *testing.T) {
	yes, no := true, false

	cases := []struct {
		query string
		want  models.TaskListOptions
	}{
		{"", models.TaskListOptions{}},
		{"completed=true", models.TaskListOptions{Completed: &yes}},
		{"completed=false", models.TaskListOptions{Completed: &no}},
		{"completed=TRUE", models.TaskListOptions{Completed: &no}},
		{"completed=1", models.TaskListOptions{Completed: &no}},
		{"completed=", models.TaskListOptions{}},
		{"sortBy=createdAt:desc", models.TaskListOptions{SortField: models.TaskSortCreatedAt, SortDesc: true}},
		{"sortBy=created_at:asc", models.TaskListOptions{SortField: models.TaskSortCreatedAt}},
		{"sortBy=description", models.TaskListOptions{SortField: models.TaskSortDescription}},
		{"sortBy=completed:DESC", models.TaskListOptions{SortField: models.TaskSortCompleted}},
		{"sortBy=owner:desc", models.TaskListOptions{}},
		{"limit=10&skip=20", models.TaskListOptions{Limit: 10, Skip: 20}},
		{"limit=abc&skip=xyz", models.TaskListOptions{}},
		{"limit=-5&skip=-1", models.TaskListOptions{}},
		{"limit=0", models.TaskListOptions{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			assert.Equal(t, tc.want, ParseListOptions(q))
		})
	}
}
