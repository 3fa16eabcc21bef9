package domain

import (
	"errors"
	"strings"
	"time"
)

// Priority is the ordinal task priority used by the task service.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// PriorityInfo is the display label and style class for a priority value.
type PriorityInfo struct {
	Label string
	Class string
}

var priorityInfos = [...]PriorityInfo{
	{Label: "Low", Class: "priority-low"},
	{Label: "Medium", Class: "priority-medium"},
	{Label: "High", Class: "priority-high"},
}

// ResolvePriority maps a possibly absent or out-of-range value onto one of the
// three known priorities. Anything unknown is Medium.
func ResolvePriority(p *int) Priority {
	if p == nil || *p < int(PriorityLow) || *p > int(PriorityHigh) {
		return PriorityMedium
	}
	return Priority(*p)
}

// Info returns the label and class for p.
func (p Priority) Info() PriorityInfo {
	if p < PriorityLow || p > PriorityHigh {
		return priorityInfos[PriorityMedium]
	}
	return priorityInfos[p]
}

func (p Priority) String() string { return p.Info().Label }

// PriorityInfoFor is shorthand for ResolvePriority(p).Info().
func PriorityInfoFor(p *int) PriorityInfo {
	return ResolvePriority(p).Info()
}

// UserRef is the assignee summary embedded in task responses.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TaskRef is a task summary embedded in user responses.
type TaskRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
}

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"isCompleted"`
	AssigneeID  *int64    `json:"assigneeId"`
	Assignee    *UserRef  `json:"assignee,omitempty"`
	Priority    *int      `json:"priority"`
	DueDate     *Date     `json:"dueDate"`
	Category    *string   `json:"category"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// PriorityInfo resolves the display priority of the task.
func (t Task) PriorityInfo() PriorityInfo { return PriorityInfoFor(t.Priority) }

// IsOverdue reports whether the due date precedes the calendar day of now and
// the task is still open.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// Input converts the record back into its write shape with every field kept.
func (t Task) Input() TaskInput {
	in := TaskInput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		AssigneeID:  t.AssigneeID,
		Priority:    t.Priority,
		Category:    t.Category,
	}
	if t.DueDate != nil {
		d := *t.DueDate
		in.DueDate = &d
	}
	return in
}

// Validate checks the invariants a task record from the service must hold.
func (t Task) Validate() error {
	if t.ID <= 0 {
		return errors.New("task id missing")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title missing")
	}
	return nil
}

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Department    *string   `json:"department"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     Timestamp `json:"createdAt"`
	AssignedTasks []TaskRef `json:"assignedTasks,omitempty"`
}

// AssignedTaskCount is the server-computed number of tasks assigned to u.
func (u User) AssignedTaskCount() int { return len(u.AssignedTasks) }

// Input converts the record back into its write shape.
func (u User) Input() UserInput {
	return UserInput{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		IsActive:   u.IsActive,
	}
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user id missing")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("user name missing")
	}
	return nil
}

type Comment struct {
	ID                int64      `json:"id"`
	Content           string     `json:"content"`
	TaskItemID        int64      `json:"taskItemId"`
	CreatedByUserID   *int64     `json:"createdByUserId"`
	CreatedByUserName *string    `json:"createdByUserName"`
	CreatedAt         Timestamp  `json:"createdAt"`
	UpdatedAt         *Timestamp `json:"updatedAt"`
}

// IsEdited reports whether the comment carries an update timestamp that
// differs from its creation timestamp.
func (c Comment) IsEdited() bool {
	return c.UpdatedAt != nil && !c.UpdatedAt.IsZero() && !c.UpdatedAt.Equal(c.CreatedAt.Time)
}

// AuthorName is the display name of the author, "Anonymous" when unknown.
func (c Comment) AuthorName() string {
	if c.CreatedByUserName == nil || strings.TrimSpace(*c.CreatedByUserName) == "" {
		return "Anonymous"
	}
	return *c.CreatedByUserName
}

func (c Comment) Validate() error {
	if c.ID <= 0 {
		return errors.New("comment id missing")
	}
	return nil
}

// TaskInput is the body of task create and update requests.
type TaskInput struct {
	ID          int64   `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"isCompleted"`
	AssigneeID  *int64  `json:"assigneeId"`
	Priority    *int    `json:"priority"`
	DueDate     *Date   `json:"dueDate"`
	Category    *string `json:"category"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// UserInput is the body of user create and update requests.
type UserInput struct {
	ID         int64   `json:"id,omitempty"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Department *string `json:"department"`
	IsActive   bool    `json:"isActive"`
}

func (in UserInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

// CommentInput is the body of comment create requests.
type CommentInput struct {
	Content         string `json:"content"`
	TaskItemID      int64  `json:"taskItemId"`
	CreatedByUserID *int64 `json:"createdByUserId"`
}

func (in CommentInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return errors.New("content is required")
	}
	if in.TaskItemID <= 0 {
		return errors.New("task id is required")
	}
	return nil
}

// TaskFilter carries the search and export parameters.
type TaskFilter struct {
	Query          string
	OnlyIncomplete bool
}

// OptionalString returns nil for blank input.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
