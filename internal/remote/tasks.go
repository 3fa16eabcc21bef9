package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"taskdesk/internal/domain"
)

// ExportFormat selects the download produced by the export endpoints.
type ExportFormat string

const (
	ExportSpreadsheet ExportFormat = "excel"
	ExportCSV         ExportFormat = "csv"
)

// TasksClient wraps the /tasks resource.
type TasksClient struct {
	*Client
}

func NewTasksClient(c *Client) *TasksClient {
	return &TasksClient{Client: c}
}

// List returns every task.
func (c *TasksClient) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, "list tasks", http.MethodGet, "tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, validateAll("list tasks", tasks)
}

// Search returns the tasks matching f. Both parameters are optional.
func (c *TasksClient) Search(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, "search tasks", http.MethodGet, "tasks/search?"+filterQuery(f), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, validateAll("search tasks", tasks)
}

// Create creates a task.
func (c *TasksClient) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, "create task", http.MethodPost, "tasks", in, &task); err != nil {
		return domain.Task{}, err
	}
	return task, validateOne("create task", task)
}

// Update replaces the task id with in.
func (c *TasksClient) Update(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	in.ID = id
	var task domain.Task
	if err := c.do(ctx, "update task", http.MethodPut, taskPath(id), in, &task); err != nil {
		return domain.Task{}, err
	}
	return task, validateOne("update task", task)
}

// Delete removes the task id.
func (c *TasksClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil)
}

// ExportURL builds the download URL for the tasks matching f. It does not
// issue a request; the browser navigates to it.
func (c *TasksClient) ExportURL(f domain.TaskFilter, format ExportFormat) string {
	endpoint := "tasks/export"
	if format == ExportCSV {
		endpoint = "tasks/export/csv"
	}
	return c.URL(endpoint) + "?" + filterQuery(f)
}

func taskPath(id int64) string {
	return fmt.Sprintf("tasks/%d", id)
}

// filterQuery keeps the parameter order of the service's own front-end:
// onlyIncomplete first, query only when non-empty.
func filterQuery(f domain.TaskFilter) string {
	q := "onlyIncomplete=" + strconv.FormatBool(f.OnlyIncomplete)
	if f.Query != "" {
		q += "&query=" + url.QueryEscape(f.Query)
	}
	return q
}
