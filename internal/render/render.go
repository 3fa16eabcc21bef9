// Package render turns domain records into HTML fragments and mounts them into
// page elements. Every call fully replaces the target's content.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"taskdesk/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"action": Action,
}).ParseFS(templateFS, "templates/*.tmpl"))

// ActionEndpoint receives every control rendered by this package.
const ActionEndpoint = "/events"

const (
	EmptyTasks    = "No tasks found. Add your first task above!"
	EmptyUsers    = "No users found. Add your first user above!"
	EmptyComments = "No comments yet. Be the first to comment!"
)

// Container is a mount point whose markup is replaced wholesale.
type Container interface {
	SetInnerHTML(markup string) error
}

// Counter displays the size of a rendered collection.
type Counter interface {
	SetText(s string)
}

// Dropdown is a select whose options can be rebuilt.
type Dropdown interface {
	TruncateOptions(keep int)
	AppendOption(value, label string)
}

// Renderer holds the clock and zone used for derived display fields.
type Renderer struct {
	Now      func() time.Time
	Location *time.Location
}

func New() *Renderer {
	return &Renderer{Now: time.Now, Location: time.Local}
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Action encodes a per-record control as "<scope>.<name>:<id>".
func Action(scope, name string, id int64) string {
	return scope + "." + name + ":" + strconv.FormatInt(id, 10)
}

// ParseAction splits a value produced by Action.
func ParseAction(v string) (scope, name string, id int64, err error) {
	head, rawID, ok := strings.Cut(v, ":")
	if !ok {
		return "", "", 0, fmt.Errorf("action %q: missing id", v)
	}
	scope, name, ok = strings.Cut(head, ".")
	if !ok || scope == "" || name == "" {
		return "", "", 0, fmt.Errorf("action %q: want scope.name", v)
	}
	id, err = strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("action %q: %w", v, err)
	}
	return scope, name, id, nil
}

type taskView struct {
	ID           int64
	Title        string
	Description  string
	IsCompleted  bool
	AssigneeName string
	Category     string
	Priority     domain.PriorityInfo
	DueDate      string
	Overdue      bool
	Created      string
}

func (r *Renderer) taskView(t domain.Task) taskView {
	v := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: domain.StringValue(t.Description),
		IsCompleted: t.IsCompleted,
		Category:    domain.StringValue(t.Category),
		Priority:    t.PriorityInfo(),
		Overdue:     t.IsOverdue(r.now()),
	}
	if t.Assignee != nil {
		v.AssigneeName = t.Assignee.Name
	}
	if t.DueDate != nil {
		v.DueDate = FormatDay(*t.DueDate)
	}
	if !t.CreatedAt.IsZero() {
		v.Created = r.FormatDate(t.CreatedAt.Time)
	}
	return v
}

// RenderTasksList mounts tasks into container and sets the count label.
func (r *Renderer) RenderTasksList(tasks []domain.Task, container Container, count Counter) error {
	count.SetText(plural(len(tasks), "task"))
	if len(tasks) == 0 {
		return showState(container, "empty-state", EmptyTasks)
	}
	items := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, r.taskView(t))
	}
	return mount(container, "tasks", items)
}

func ShowTasksLoading(container Container) error {
	return showState(container, "loading", "Loading tasks...")
}

func ShowTasksError(container Container, message string) error {
	return showState(container, "error", message)
}

// RenderTaskDetails mounts the summary card of one task.
func (r *Renderer) RenderTaskDetails(task domain.Task, container Container) error {
	return mount(container, "taskDetails", r.taskView(task))
}

type userView struct {
	ID            int64
	Name          string
	Email         string
	Department    string
	IsActive      bool
	Created       string
	AssignedTasks int
}

// RenderUsersList mounts users into container and sets the count label.
func (r *Renderer) RenderUsersList(users []domain.User, container Container, count Counter) error {
	count.SetText(plural(len(users), "user"))
	if len(users) == 0 {
		return showState(container, "empty-state", EmptyUsers)
	}
	items := make([]userView, 0, len(users))
	for _, u := range users {
		v := userView{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Department:    domain.StringValue(u.Department),
			IsActive:      u.IsActive,
			AssignedTasks: u.AssignedTaskCount(),
		}
		if !u.CreatedAt.IsZero() {
			v.Created = r.FormatDate(u.CreatedAt.Time)
		}
		items = append(items, v)
	}
	return mount(container, "users", items)
}

func ShowUsersLoading(container Container) error {
	return showState(container, "loading", "Loading users...")
}

func ShowUsersError(container Container, message string) error {
	return showState(container, "error", message)
}

type commentView struct {
	ID      int64
	Author  string
	Posted  string
	Edited  bool
	Content string
}

// RenderCommentsList mounts a comment thread. The count label is the bare
// number of comments.
func (r *Renderer) RenderCommentsList(comments []domain.Comment, container Container, count Counter) error {
	count.SetText(strconv.Itoa(len(comments)))
	if len(comments) == 0 {
		return showState(container, "empty-state", EmptyComments)
	}
	items := make([]commentView, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentView{
			ID:      c.ID,
			Author:  c.AuthorName(),
			Posted:  r.FormatDateTime(c.CreatedAt.Time),
			Edited:  c.IsEdited(),
			Content: c.Content,
		})
	}
	return mount(container, "comments", items)
}

func ShowCommentsLoading(container Container) error {
	return showState(container, "loading", "Loading comments...")
}

func ShowCommentsError(container Container) error {
	return showState(container, "error", "Failed to load comments.")
}

// PopulateUserDropdown keeps the first option of dropdown and replaces the
// rest with one option per user.
func PopulateUserDropdown(users []domain.User, dropdown Dropdown) {
	dropdown.TruncateOptions(1)
	for _, u := range users {
		dropdown.AppendOption(strconv.FormatInt(u.ID, 10), u.Name)
	}
}

// FormatDate renders t as a short local date, e.g. 3/14/2024.
func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.loc()).Format("1/2/2006")
}

// FormatDateTime renders t as a local date and time, e.g. 3/14/2024 9:05:00 AM.
func (r *Renderer) FormatDateTime(t time.Time) string {
	return t.In(r.loc()).Format("1/2/2006 3:04:05 PM")
}

// FormatDay renders a calendar date in the same style as FormatDate.
func FormatDay(d domain.Date) string {
	return fmt.Sprintf("%d/%d/%d", int(d.Month), d.Day, d.Year)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func showState(container Container, class, message string) error {
	return mount(container, "state", struct{ Class, Message string }{class, message})
}

func mount(container Container, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return container.SetInnerHTML(buf.String())
}
