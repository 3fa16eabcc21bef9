// Package server is a local stand-in for the task and people services. It
// serves the same REST endpoints the console consumes, backed by SQLite.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskdesk/internal/domain"
	"taskdesk/internal/engine"
	"taskdesk/internal/repo"
)

// DefaultBasePath is where the API is mounted unless configured otherwise.
const DefaultBasePath = "/api"

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task 7 not found"`
	Details map[string]any `json:"details,omitempty"`
}

type bodyBytesKey struct{}

// apiError is the error envelope {"error":{"code","message"}}.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the tasks, users and comments API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(data))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Taskdesk local API", "1.0.0")
	hcfg.OpenAPIPath = basePath + "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerTasks(group, cfg.Engine)
	registerExports(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerComments(group, cfg.Engine)
	registerActivity(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", ve.Error(), map[string]any{"field": ve.Field})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

var defaultErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type idPath struct {
	ID int64 `path:"id"`
}

type filterQuery struct {
	Query          string `query:"query"`
	OnlyIncomplete bool   `query:"onlyIncomplete"`
}

func (q filterQuery) filter() domain.TaskFilter {
	return domain.TaskFilter{Query: q.Query, OnlyIncomplete: q.OnlyIncomplete}
}

type tasksOutput struct {
	Body []domain.Task
}

type taskOutput struct {
	Body domain.Task
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors:      defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*tasksOutput, error) {
		tasks, err := e.ListTasks(ctx, domain.TaskFilter{})
		if err != nil {
			return nil, handleError(err)
		}
		return &tasksOutput{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/search",
		Summary:     "Search tasks by text and completion",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *filterQuery) (*tasksOutput, error) {
		tasks, err := e.ListTasks(ctx, input.filter())
		if err != nil {
			return nil, handleError(err)
		}
		return &tasksOutput{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*taskOutput, error) {
		in, apiErr := decodeBody[domain.TaskInput](ctx)
		if apiErr != nil {
			return nil, apiErr
		}
		task, err := e.CreateTask(ctx, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Replace task",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		in, apiErr := decodeBody[domain.TaskInput](ctx)
		if apiErr != nil {
			return nil, apiErr
		}
		task, err := e.UpdateTask(ctx, input.ID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type usersOutput struct {
	Body []domain.User
}

type userOutput struct {
	Body domain.User
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*usersOutput, error) {
		users, err := e.ListUsers(ctx, false)
		if err != nil {
			return nil, handleError(err)
		}
		return &usersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-active-users",
		Method:      http.MethodGet,
		Path:        "/users/active",
		Summary:     "List active users",
		Errors:      defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*usersOutput, error) {
		users, err := e.ListUsers(ctx, true)
		if err != nil {
			return nil, handleError(err)
		}
		return &usersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*userOutput, error) {
		in, apiErr := decodeBody[domain.UserInput](ctx)
		if apiErr != nil {
			return nil, apiErr
		}
		user, err := e.CreateUser(ctx, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &userOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{id}",
		Summary:     "Replace user",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *idPath) (*userOutput, error) {
		in, apiErr := decodeBody[domain.UserInput](ctx)
		if apiErr != nil {
			return nil, apiErr
		}
		user, err := e.UpdateUser(ctx, input.ID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &userOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete user",
		DefaultStatus: http.StatusNoContent,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteUser(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type commentsOutput struct {
	Body []domain.Comment
}

type commentOutput struct {
	Body domain.Comment
}

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-task-comments",
		Method:      http.MethodGet,
		Path:        "/comments/task/{taskId}",
		Summary:     "List the comments of a task",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"taskId"`
	}) (*commentsOutput, error) {
		comments, err := e.ListComments(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &commentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/comments",
		Summary:       "Create comment",
		DefaultStatus: http.StatusCreated,
		Errors:        defaultErrors,
	}, func(ctx context.Context, _ *struct{}) (*commentOutput, error) {
		in, apiErr := decodeBody[domain.CommentInput](ctx)
		if apiErr != nil {
			return nil, apiErr
		}
		comment, err := e.CreateComment(ctx, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &commentOutput{Body: comment}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-comment",
		Method:        http.MethodDelete,
		Path:          "/comments/{id}",
		Summary:       "Delete comment",
		DefaultStatus: http.StatusNoContent,
		Errors:        defaultErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteComment(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Recent changes, newest first",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" maximum:"500"`
	}) (*activityOutput, error) {
		items, err := e.Events.Recent(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &activityOutput{Body: items}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	return nil
}

// decodeBody reads the request body stashed by the router middleware. Bodies
// are decoded by hand so that nullable fields keep the service's JSON shape.
func decodeBody[T any](ctx context.Context) (T, huma.StatusError) {
	var v T
	data := bytes.TrimSpace(bodyBytes(ctx))
	if len(data) == 0 {
		return v, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid body: %v", err), nil)
	}
	return v, nil
}
