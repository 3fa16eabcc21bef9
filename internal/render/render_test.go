package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskdesk/internal/dom"
	"taskdesk/internal/domain"
)

const skeleton = `<html><body>
<div id="list"></div><span id="count"></span>
<select id="assignee"><option value="">Unassigned</option><option value="9">Old</option></select>
</body></html>`

func mountPoints(t *testing.T) (*dom.Document, *dom.Element, *dom.Element) {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(skeleton))
	require.NoError(t, err)
	return doc, doc.GetElementByID("list"), doc.GetElementByID("count")
}

func fixedRenderer() *Renderer {
	return &Renderer{
		Now:      func() time.Time { return time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
}

func ptr[T any](v T) *T { return &v }

func TestEmptyCollections(t *testing.T) {
	r := fixedRenderer()
	_, list, count := mountPoints(t)

	require.NoError(t, r.RenderTasksList(nil, list, count))
	require.Equal(t, "0 tasks", count.Text())
	require.Equal(t, EmptyTasks, list.Text())

	require.NoError(t, r.RenderUsersList([]domain.User{}, list, count))
	require.Equal(t, "0 users", count.Text())
	require.Equal(t, EmptyUsers, list.Text())

	require.NoError(t, r.RenderCommentsList(nil, list, count))
	require.Equal(t, "0", count.Text())
	require.Equal(t, EmptyComments, list.Text())
}

func TestUntrustedFieldsAreEscaped(t *testing.T) {
	const payload = `<img src=x onerror="alert(1)"><script>alert(2)</script>`
	r := fixedRenderer()
	created := domain.NewTimestamp(time.Date(2024, 3, 2, 9, 5, 0, 0, time.UTC))
	task := func(mod func(*domain.Task)) domain.Task {
		tk := domain.Task{ID: 1, Title: "plain", CreatedAt: created}
		mod(&tk)
		return tk
	}
	user := func(mod func(*domain.User)) domain.User {
		u := domain.User{ID: 1, Name: "plain", Email: "plain@example.com", CreatedAt: created}
		mod(&u)
		return u
	}
	comment := func(mod func(*domain.Comment)) domain.Comment {
		c := domain.Comment{ID: 1, Content: "plain", CreatedAt: created}
		mod(&c)
		return c
	}

	cases := []struct {
		name   string
		render func(list, count *dom.Element) error
	}{
		{"task title", func(list, count *dom.Element) error {
			return r.RenderTasksList([]domain.Task{task(func(tk *domain.Task) { tk.Title = payload })}, list, count)
		}},
		{"task description", func(list, count *dom.Element) error {
			return r.RenderTasksList([]domain.Task{task(func(tk *domain.Task) { tk.Description = ptr(payload) })}, list, count)
		}},
		{"task category", func(list, count *dom.Element) error {
			return r.RenderTasksList([]domain.Task{task(func(tk *domain.Task) { tk.Category = ptr(payload) })}, list, count)
		}},
		{"task assignee", func(list, count *dom.Element) error {
			return r.RenderTasksList([]domain.Task{task(func(tk *domain.Task) { tk.Assignee = &domain.UserRef{ID: 2, Name: payload} })}, list, count)
		}},
		{"details title", func(list, _ *dom.Element) error {
			return r.RenderTaskDetails(task(func(tk *domain.Task) { tk.Title = payload }), list)
		}},
		{"details description", func(list, _ *dom.Element) error {
			return r.RenderTaskDetails(task(func(tk *domain.Task) { tk.Description = ptr(payload) }), list)
		}},
		{"details category", func(list, _ *dom.Element) error {
			return r.RenderTaskDetails(task(func(tk *domain.Task) { tk.Category = ptr(payload) }), list)
		}},
		{"details assignee", func(list, _ *dom.Element) error {
			return r.RenderTaskDetails(task(func(tk *domain.Task) { tk.Assignee = &domain.UserRef{ID: 2, Name: payload} }), list)
		}},
		{"user name", func(list, count *dom.Element) error {
			return r.RenderUsersList([]domain.User{user(func(u *domain.User) { u.Name = payload })}, list, count)
		}},
		{"user email", func(list, count *dom.Element) error {
			return r.RenderUsersList([]domain.User{user(func(u *domain.User) { u.Email = payload })}, list, count)
		}},
		{"user department", func(list, count *dom.Element) error {
			return r.RenderUsersList([]domain.User{user(func(u *domain.User) { u.Department = ptr(payload) })}, list, count)
		}},
		{"comment content", func(list, count *dom.Element) error {
			return r.RenderCommentsList([]domain.Comment{comment(func(c *domain.Comment) { c.Content = payload })}, list, count)
		}},
		{"comment author", func(list, count *dom.Element) error {
			return r.RenderCommentsList([]domain.Comment{comment(func(c *domain.Comment) { c.CreatedByUserName = ptr(payload) })}, list, count)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, list, count := mountPoints(t)
			require.NoError(t, tc.render(list, count))
			markup := list.InnerHTML()
			require.NotContains(t, markup, "<img")
			require.NotContains(t, markup, "<script")
			require.Contains(t, list.Text(), payload)
		})
	}
}

func TestTaskItemFields(t *testing.T) {
	r := fixedRenderer()
	doc, list, count := mountPoints(t)
	tasks := []domain.Task{
		{
			ID:          7,
			Title:       "Pay rent",
			Description: ptr("before the 1st"),
			Assignee:    &domain.UserRef{ID: 2, Name: "Dana & Co"},
			Priority:    ptr(5),
			DueDate:     &domain.Date{Year: 2020, Month: time.January, Day: 1},
			Category:    ptr("home"),
			CreatedAt:   domain.NewTimestamp(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		},
		{ID: 8, Title: "Done thing", IsCompleted: true, DueDate: &domain.Date{Year: 2020, Month: time.January, Day: 1}},
	}
	require.NoError(t, r.RenderTasksList(tasks, list, count))
	require.Equal(t, "2 tasks", count.Text())

	text := list.Text()
	require.Contains(t, text, "before the 1st")
	require.Contains(t, text, "Dana & Co")
	require.Contains(t, text, "⚡ Medium")
	require.Contains(t, text, "📅 1/1/2020 (Overdue)")
	require.Contains(t, text, "Created: 3/1/2024")
	require.Contains(t, text, "ID: 7")
	require.Contains(t, text, "✓ Completed")
	require.Len(t, doc.ElementsByClass("overdue"), 1)
	require.Len(t, doc.ElementsByClass("priority-medium"), 2)

	var actions []string
	for _, b := range doc.ElementsByClass("btn") {
		v, _ := b.Attr("value")
		actions = append(actions, v)
	}
	require.Contains(t, actions, "tasks.toggleComplete:7")
	require.Contains(t, actions, "tasks.delete:8")
}

func TestUsersAndComments(t *testing.T) {
	r := fixedRenderer()
	_, list, count := mountPoints(t)
	created := domain.NewTimestamp(time.Date(2024, 3, 2, 9, 5, 0, 0, time.UTC))

	users := []domain.User{{ID: 1, Name: "Ana", Email: "ana@example.com", Department: ptr("Ops"), IsActive: true, CreatedAt: created,
		AssignedTasks: []domain.TaskRef{{ID: 1}, {ID: 2}}}}
	require.NoError(t, r.RenderUsersList(users, list, count))
	require.Equal(t, "1 user", count.Text())
	require.Contains(t, list.Text(), "Assigned Tasks: 2")
	require.Contains(t, list.Text(), "🏢 Ops")

	edited := domain.NewTimestamp(created.Add(time.Hour))
	comments := []domain.Comment{
		{ID: 1, Content: "first", CreatedAt: created},
		{ID: 2, Content: "second", CreatedByUserName: ptr("Ana"), CreatedAt: created, UpdatedAt: &edited},
	}
	require.NoError(t, r.RenderCommentsList(comments, list, count))
	require.Equal(t, "2", count.Text())
	text := list.Text()
	require.Contains(t, text, "Anonymous")
	require.Contains(t, text, "3/2/2024 9:05:00 AM (edited)")
	require.Equal(t, 1, strings.Count(text, "(edited)"))
}

func TestPopulateUserDropdown(t *testing.T) {
	doc, _, _ := mountPoints(t)
	sel := doc.GetElementByID("assignee")
	PopulateUserDropdown([]domain.User{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Ben"}}, sel)
	require.Equal(t, []dom.Option{{Value: "", Label: "Unassigned"}, {Value: "1", Label: "Ana"}, {Value: "2", Label: "Ben"}}, sel.Options())
}

func TestLoadingAndErrorStates(t *testing.T) {
	_, list, _ := mountPoints(t)
	require.NoError(t, ShowTasksLoading(list))
	require.Equal(t, "Loading tasks...", list.Text())
	require.NoError(t, ShowUsersError(list, "<b>bad</b>"))
	require.Equal(t, "<b>bad</b>", list.Text())
	require.NoError(t, ShowCommentsError(list))
	require.Equal(t, "Failed to load comments.", list.Text())
}

func TestParseAction(t *testing.T) {
	scope, name, id, err := ParseAction(Action("comments", "delete", 42))
	require.NoError(t, err)
	require.Equal(t, "comments", scope)
	require.Equal(t, "delete", name)
	require.Equal(t, int64(42), id)

	for _, bad := range []string{"", "tasks.delete", "tasks:1", ".x:1", "tasks.delete:abc"} {
		_, _, _, err := ParseAction(bad)
		require.Error(t, err, bad)
	}
}
