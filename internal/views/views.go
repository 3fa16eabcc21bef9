// Package views holds the tasks and users controllers. Each owns its page
// elements and turns events into resource calls followed by a re-render.
package views

import (
	"context"
	"log"
	"strconv"
	"strings"

	"taskdesk/internal/domain"
	"taskdesk/internal/remote"
)

type TaskService interface {
	List(ctx context.Context) ([]domain.Task, error)
	Search(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
	ExportURL(f domain.TaskFilter, format remote.ExportFormat) string
}

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, in domain.UserInput) (domain.User, error)
	Update(ctx context.Context, id int64, in domain.UserInput) (domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type CommentService interface {
	ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error)
	Create(ctx context.Context, in domain.CommentInput) (domain.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// Notifier surfaces outcomes to the user.
type Notifier interface {
	Success(msg string)
	Alert(msg string)
	Confirm(ctx context.Context, msg string, onConfirm func(ctx context.Context))
}

// Navigator sends the browser to another URL after the current event.
type Navigator interface {
	Navigate(url string)
}

// failureMessage picks the alert text for a failed mutation.
func failureMessage(action string, err error) string {
	switch remote.KindOf(err) {
	case remote.KindNotFound:
		return action + ". It no longer exists; reload the list."
	case remote.KindValidationFailed:
		return action + ". The service rejected the input."
	case remote.KindNetworkUnavailable:
		return action + ". The service is unreachable."
	default:
		return action + ". Please try again."
	}
}

func logger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.Default()
}

// optionalID parses a select value; blank means none.
func optionalID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// keepSelection rebuilds a dropdown without losing its current choice when
// that choice is still offered.
type selectable interface {
	Value() string
	SetValue(v string)
}

func keepSelection(el selectable, rebuild func()) {
	current := el.Value()
	rebuild()
	el.SetValue(current)
}
