package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskdesk/internal/domain"
	"taskdesk/internal/events"
	"taskdesk/internal/repo"
)

// Engine applies the service's rules on top of the repository. Every
// mutation runs in one transaction together with its activity event.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

// Clock returns the engine's current time, falling back to time.Now when
// Now is unset.
func (e Engine) Clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ValidationError reports input the service refuses to store.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) requireUser(ctx context.Context, tx *sql.Tx, field string, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := e.Repo.GetUser(ctx, tx, *id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ValidationError{Field: field, Message: fmt.Sprintf("user %d does not exist", *id)}
		}
		return err
	}
	return nil
}

func checkBodyID(pathID, bodyID int64) error {
	if bodyID != 0 && bodyID != pathID {
		return ValidationError{Field: "id", Message: "does not match the path"}
	}
	return nil
}

func (e Engine) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

func (e Engine) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, ValidationError{Field: "title", Message: "is required"}
	}
	var task domain.Task
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.requireUser(ctx, tx, "assigneeId", in.AssigneeID); err != nil {
			return err
		}
		id, err := e.Repo.InsertTask(ctx, tx, in, e.Clock())
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if err := e.Events.Append(ctx, tx, "task.created", "task", id, events.Payload{"title": in.Title}); err != nil {
			return err
		}
		task, err = e.Repo.GetTask(ctx, tx, id)
		return err
	})
	return task, err
}

func (e Engine) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	if err := checkBodyID(id, in.ID); err != nil {
		return domain.Task{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Task{}, ValidationError{Field: "title", Message: "is required"}
	}
	var task domain.Task
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.requireUser(ctx, tx, "assigneeId", in.AssigneeID); err != nil {
			return err
		}
		if err := e.Repo.UpdateTask(ctx, tx, id, in); err != nil {
			return err
		}
		if err := e.Events.Append(ctx, tx, "task.updated", "task", id, events.Payload{"isCompleted": in.IsCompleted}); err != nil {
			return err
		}
		var err error
		task, err = e.Repo.GetTask(ctx, tx, id)
		return err
	})
	return task, err
}

func (e Engine) DeleteTask(ctx context.Context, id int64) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "task.deleted", "task", id, nil)
	})
}

func (e Engine) ListUsers(ctx context.Context, onlyActive bool) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx, onlyActive)
}

func validateUser(in domain.UserInput) error {
	if err := in.Validate(); err != nil {
		return ValidationError{Field: "user", Message: err.Error()}
	}
	return nil
}

func (e Engine) CreateUser(ctx context.Context, in domain.UserInput) (domain.User, error) {
	if err := validateUser(in); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertUser(ctx, tx, in, e.Clock())
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if err := e.Events.Append(ctx, tx, "user.created", "user", id, events.Payload{"name": in.Name}); err != nil {
			return err
		}
		user, err = e.Repo.GetUser(ctx, tx, id)
		return err
	})
	return user, err
}

func (e Engine) UpdateUser(ctx context.Context, id int64, in domain.UserInput) (domain.User, error) {
	if err := checkBodyID(id, in.ID); err != nil {
		return domain.User{}, err
	}
	if err := validateUser(in); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateUser(ctx, tx, id, in); err != nil {
			return err
		}
		if err := e.Events.Append(ctx, tx, "user.updated", "user", id, events.Payload{"isActive": in.IsActive}); err != nil {
			return err
		}
		var err error
		user, err = e.Repo.GetUser(ctx, tx, id)
		return err
	})
	return user, err
}

// DeleteUser removes a user. Their tasks become unassigned and their comments
// anonymous.
func (e Engine) DeleteUser(ctx context.Context, id int64) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteUser(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "user.deleted", "user", id, nil)
	})
}

func (e Engine) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	return e.Repo.ListComments(ctx, taskID)
}

func (e Engine) CreateComment(ctx context.Context, in domain.CommentInput) (domain.Comment, error) {
	if err := in.Validate(); err != nil {
		return domain.Comment{}, ValidationError{Field: "comment", Message: err.Error()}
	}
	var comment domain.Comment
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetTask(ctx, tx, in.TaskItemID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ValidationError{Field: "taskItemId", Message: fmt.Sprintf("task %d does not exist", in.TaskItemID)}
			}
			return err
		}
		if err := e.requireUser(ctx, tx, "createdByUserId", in.CreatedByUserID); err != nil {
			return err
		}
		id, err := e.Repo.InsertComment(ctx, tx, in, e.Clock())
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if err := e.Events.Append(ctx, tx, "comment.created", "comment", id, events.Payload{"taskItemId": in.TaskItemID}); err != nil {
			return err
		}
		comment, err = e.Repo.GetComment(ctx, tx, id)
		return err
	})
	return comment, err
}

func (e Engine) DeleteComment(ctx context.Context, id int64) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteComment(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "comment.deleted", "comment", id, nil)
	})
}
