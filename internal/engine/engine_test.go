package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskdesk/internal/db"
	"taskdesk/internal/domain"
	"taskdesk/internal/engine"
	"taskdesk/internal/migrate"
	"taskdesk/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Path: db.Memory})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: ctx}
}

func ptr[T any](v T) *T { return &v }

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ana, err := env.Engine.CreateUser(env.Ctx, domain.UserInput{Name: "Ana", Email: "ana@example.com", IsActive: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, domain.TaskInput{
		Title:      "Buy milk",
		Priority:   ptr(2),
		AssigneeID: &ana.ID,
		DueDate:    &domain.Date{Year: 2024, Month: time.February, Day: 3},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Assignee == nil || task.Assignee.Name != "Ana" {
		t.Fatalf("expected embedded assignee, got %+v", task.Assignee)
	}
	if !task.CreatedAt.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt %v", task.CreatedAt)
	}

	in := task.Input()
	in.IsCompleted = true
	updated, err := env.Engine.UpdateTask(env.Ctx, task.ID, in)
	if err != nil || !updated.IsCompleted {
		t.Fatalf("complete task: %v %+v", err, updated)
	}
	if updated.DueDate == nil || updated.DueDate.String() != "2024-02-03" || *updated.Priority != 2 {
		t.Fatalf("fields not kept: %+v", updated)
	}

	open, err := env.Engine.ListTasks(env.Ctx, domain.TaskFilter{OnlyIncomplete: true})
	if err != nil || len(open) != 0 {
		t.Fatalf("expected no open tasks, got %d (%v)", len(open), err)
	}

	users, err := env.Engine.ListUsers(env.Ctx, true)
	if err != nil || len(users) != 1 || users[0].AssignedTaskCount() != 1 {
		t.Fatalf("expected one assigned task, got %+v (%v)", users, err)
	}

	if err := env.Engine.DeleteUser(env.Ctx, ana.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	all, err := env.Engine.ListTasks(env.Ctx, domain.TaskFilter{})
	if err != nil || len(all) != 1 || all[0].AssigneeID != nil {
		t.Fatalf("expected task unassigned after user delete: %+v (%v)", all, err)
	}
}

func TestValidation(t *testing.T) {
	env := newTestEnv(t)
	var ve engine.ValidationError

	_, err := env.Engine.CreateTask(env.Ctx, domain.TaskInput{Title: "  "})
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, domain.TaskInput{Title: "x", AssigneeID: ptr(int64(99))})
	if !errors.As(err, &ve) || ve.Field != "assigneeId" {
		t.Fatalf("expected assignee validation error, got %v", err)
	}
	_, err = env.Engine.CreateUser(env.Ctx, domain.UserInput{Name: "No Mail"})
	if !errors.As(err, &ve) {
		t.Fatalf("expected user validation error, got %v", err)
	}
	_, err = env.Engine.CreateComment(env.Ctx, domain.CommentInput{Content: "hi", TaskItemID: 5})
	if !errors.As(err, &ve) || ve.Field != "taskItemId" {
		t.Fatalf("expected task validation error, got %v", err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, domain.TaskInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, domain.TaskInput{ID: task.ID + 1, Title: "x"})
	if !errors.As(err, &ve) || ve.Field != "id" {
		t.Fatalf("expected id mismatch, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.DeleteTask(env.Ctx, 42); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := env.Engine.UpdateUser(env.Ctx, 42, domain.UserInput{Name: "a", Email: "b"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update user: %v", err)
	}
	if err := env.Engine.DeleteComment(env.Ctx, 42); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("delete comment: %v", err)
	}
}

func TestCommentsAndActivity(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, domain.TaskInput{Title: "Write report"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	ben, err := env.Engine.CreateUser(env.Ctx, domain.UserInput{Name: "Ben", Email: "ben@example.com", IsActive: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := env.Engine.CreateComment(env.Ctx, domain.CommentInput{Content: "anon", TaskItemID: task.ID}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	c, err := env.Engine.CreateComment(env.Ctx, domain.CommentInput{Content: "signed", TaskItemID: task.ID, CreatedByUserID: &ben.ID})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.AuthorName() != "Ben" || c.IsEdited() {
		t.Fatalf("unexpected comment %+v", c)
	}
	comments, err := env.Engine.ListComments(env.Ctx, task.ID)
	if err != nil || len(comments) != 2 || comments[0].AuthorName() != "Anonymous" {
		t.Fatalf("list comments: %+v (%v)", comments, err)
	}

	if err := env.Engine.DeleteTask(env.Ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	comments, err = env.Engine.ListComments(env.Ctx, task.ID)
	if err != nil || len(comments) != 0 {
		t.Fatalf("comments should cascade: %+v (%v)", comments, err)
	}

	recent, err := env.Engine.Events.Recent(env.Ctx, 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(recent) != 5 || recent[0].Type != "task.deleted" {
		t.Fatalf("unexpected activity: %+v", recent)
	}
}
