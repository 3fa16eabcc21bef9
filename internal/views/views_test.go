package views

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"taskdesk/internal/dom"
	"taskdesk/internal/domain"
	"taskdesk/internal/modal"
	"taskdesk/internal/remote"
	"taskdesk/internal/state"
)

const fixturePage = `<!DOCTYPE html><html><body>
<form id="taskForm">
  <input id="taskTitle" name="taskTitle" type="text">
  <textarea id="taskDescription" name="taskDescription"></textarea>
  <select id="taskAssignee" name="taskAssignee"><option value="">Unassigned</option></select>
  <select id="taskPriority" name="taskPriority"><option value="0">Low</option><option value="1" selected>Medium</option><option value="2">High</option></select>
  <input id="taskDueDate" name="taskDueDate" type="date">
  <input id="taskCategory" name="taskCategory" type="text">
</form>
<input id="searchQuery" type="text"><input id="onlyIncomplete" type="checkbox">
<span id="taskCount"></span><div id="tasksList"></div>
<div id="editModal" class="modal"><form id="editForm">
  <input id="editTaskId" type="hidden">
  <input id="editTaskTitle" type="text">
  <textarea id="editTaskDescription"></textarea>
  <input id="editTaskCompleted" type="checkbox">
  <select id="editTaskAssignee"><option value="">Unassigned</option></select>
  <select id="editTaskPriority"><option value="0">Low</option><option value="1">Medium</option><option value="2">High</option></select>
  <input id="editTaskDueDate" type="date">
  <input id="editTaskCategory" type="text">
</form></div>
<div id="taskDetailsModal" class="modal">
  <h2 id="taskDetailsTitle"></h2><div id="taskDetailsInfo"></div>
  <span id="commentCount"></span><div id="commentsList"></div>
  <form id="addCommentForm">
    <input id="commentTaskId" type="hidden">
    <textarea id="commentContent"></textarea>
    <select id="commentUser"><option value="">Anonymous</option></select>
  </form>
</div>
<form id="userForm">
  <input id="userName" type="text"><input id="userEmail" type="email"><input id="userDepartment" type="text">
</form>
<input id="userSearchQuery" type="text"><input id="onlyActiveUsers" type="checkbox" checked>
<span id="userCount"></span><div id="usersList"></div>
<div id="editUserModal" class="modal"><form id="editUserForm">
  <input id="editUserId" type="hidden">
  <input id="editUserName" type="text"><input id="editUserEmail" type="email">
  <input id="editUserDepartment" type="text"><input id="editUserActive" type="checkbox">
</form></div>
</body></html>`

type fakeTasks struct {
	tasks   []domain.Task
	created []domain.TaskInput
	updated map[int64]domain.TaskInput
	deleted []int64
	err     error
}

func (f *fakeTasks) List(context.Context) ([]domain.Task, error) { return f.tasks, f.err }
func (f *fakeTasks) Search(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if filter.OnlyIncomplete && t.IsCompleted {
			continue
		}
		out = append(out, t)
	}
	return out, f.err
}
func (f *fakeTasks) Create(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	if f.err != nil {
		return domain.Task{}, f.err
	}
	f.created = append(f.created, in)
	return domain.Task{ID: int64(len(f.created)), Title: in.Title}, nil
}
func (f *fakeTasks) Update(_ context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	if f.err != nil {
		return domain.Task{}, f.err
	}
	if f.updated == nil {
		f.updated = map[int64]domain.TaskInput{}
	}
	f.updated[id] = in
	return domain.Task{ID: id, Title: in.Title}, nil
}
func (f *fakeTasks) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}
func (f *fakeTasks) ExportURL(filter domain.TaskFilter, format remote.ExportFormat) string {
	return "http://tasks.test/export/" + string(format) + "?q=" + filter.Query
}

type fakeUsers struct {
	users   []domain.User
	updated map[int64]domain.UserInput
	err     error
}

func (f *fakeUsers) List(context.Context) ([]domain.User, error) { return f.users, f.err }
func (f *fakeUsers) ListActive(context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, f.err
}
func (f *fakeUsers) Create(_ context.Context, in domain.UserInput) (domain.User, error) {
	return domain.User{ID: 99, Name: in.Name}, f.err
}
func (f *fakeUsers) Update(_ context.Context, id int64, in domain.UserInput) (domain.User, error) {
	if f.updated == nil {
		f.updated = map[int64]domain.UserInput{}
	}
	f.updated[id] = in
	return domain.User{ID: id, Name: in.Name}, f.err
}
func (f *fakeUsers) Delete(context.Context, int64) error { return f.err }

type fakeComments struct {
	created []domain.CommentInput
}

func (f *fakeComments) ListByTask(context.Context, int64) ([]domain.Comment, error) { return nil, nil }
func (f *fakeComments) Create(_ context.Context, in domain.CommentInput) (domain.Comment, error) {
	f.created = append(f.created, in)
	return domain.Comment{ID: 1, Content: in.Content, TaskItemID: in.TaskItemID}, nil
}
func (f *fakeComments) Delete(context.Context, int64) error { return nil }

type recorder struct {
	successes []string
	alerts    []string
	confirm   func(ctx context.Context)
	navigated []string
}

func (r *recorder) Success(msg string) { r.successes = append(r.successes, msg) }
func (r *recorder) Alert(msg string)   { r.alerts = append(r.alerts, msg) }
func (r *recorder) Confirm(_ context.Context, _ string, onConfirm func(ctx context.Context)) {
	r.confirm = onConfirm
}
func (r *recorder) Navigate(url string) { r.navigated = append(r.navigated, url) }

type fixture struct {
	doc      *dom.Document
	tasks    *fakeTasks
	users    *fakeUsers
	comments *fakeComments
	notes    *recorder
	roster   *state.Store
	tv       *TasksView
	uv       *UsersView
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(fixturePage))
	require.NoError(t, err)
	by := doc.GetElementByID
	f := &fixture{
		doc:      doc,
		tasks:    &fakeTasks{},
		users:    &fakeUsers{},
		comments: &fakeComments{},
		notes:    &recorder{},
		roster:   state.New(),
	}
	quiet := log.New(io.Discard, "", 0)
	f.tv = NewTasksView(TaskElements{
		TaskForm: by("taskForm"), TaskTitle: by("taskTitle"), TaskDescription: by("taskDescription"),
		TaskAssignee: by("taskAssignee"), TaskPriority: by("taskPriority"), TaskDueDate: by("taskDueDate"),
		TaskCategory: by("taskCategory"), TasksList: by("tasksList"), TaskCount: by("taskCount"),
		SearchQuery: by("searchQuery"), OnlyIncomplete: by("onlyIncomplete"),
		EditModal: by("editModal"), EditForm: by("editForm"), EditTaskID: by("editTaskId"),
		EditTaskTitle: by("editTaskTitle"), EditTaskDescription: by("editTaskDescription"),
		EditTaskCompleted: by("editTaskCompleted"), EditTaskAssignee: by("editTaskAssignee"),
		EditTaskPriority: by("editTaskPriority"), EditTaskDueDate: by("editTaskDueDate"),
		EditTaskCategory: by("editTaskCategory"),
		TaskDetailsModal: by("taskDetailsModal"), TaskDetailsTitle: by("taskDetailsTitle"),
		TaskDetailsInfo: by("taskDetailsInfo"), CommentsList: by("commentsList"), CommentCount: by("commentCount"),
		AddCommentForm: by("addCommentForm"), CommentTaskID: by("commentTaskId"),
		CommentContent: by("commentContent"), CommentUser: by("commentUser"),
	}, TasksDeps{
		Tasks: f.tasks, Comments: f.comments, Notifier: f.notes, Navigator: f.notes,
		Roster: f.roster, Logger: quiet,
	})
	f.uv = NewUsersView(UserElements{
		UserForm: by("userForm"), UserName: by("userName"), UserEmail: by("userEmail"),
		UserDepartment: by("userDepartment"), UsersList: by("usersList"), UserCount: by("userCount"),
		UserSearchQuery: by("userSearchQuery"), OnlyActiveUsers: by("onlyActiveUsers"),
		EditUserModal: by("editUserModal"), EditUserForm: by("editUserForm"), EditUserID: by("editUserId"),
		EditUserName: by("editUserName"), EditUserEmail: by("editUserEmail"),
		EditUserDepartment: by("editUserDepartment"), EditUserActive: by("editUserActive"),
	}, UsersDeps{
		Users: f.users, Notifier: f.notes, Roster: f.roster, Logger: quiet,
		OnRosterChange: func([]domain.User) { f.tv.UpdateUserDropdowns() },
	})
	return f
}

func TestToggleCompleteKeepsOtherFields(t *testing.T) {
	f := newFixture(t)
	assignee := int64(7)
	prio := 2
	due := domain.Date{Year: 2024, Month: 4, Day: 2}
	f.tasks.tasks = []domain.Task{{
		ID: 3, Title: "Ship", Description: domain.OptionalString("v1"), AssigneeID: &assignee,
		Priority: &prio, DueDate: &due, Category: domain.OptionalString("Work"),
	}}
	f.tv.LoadTasks(context.Background())
	require.Equal(t, "1 task", f.doc.GetElementByID("taskCount").Text())

	f.tv.ToggleComplete(context.Background(), 3)
	sent := f.tasks.updated[3]
	require.True(t, sent.IsCompleted)
	require.Equal(t, "Ship", sent.Title)
	require.Equal(t, "v1", *sent.Description)
	require.Equal(t, int64(7), *sent.AssigneeID)
	require.Equal(t, 2, *sent.Priority)
	require.Equal(t, due, *sent.DueDate)
	require.Equal(t, "Work", *sent.Category)
}

func TestToggleUnknownTaskAlerts(t *testing.T) {
	f := newFixture(t)
	f.tv.ToggleComplete(context.Background(), 42)
	require.Len(t, f.notes.alerts, 1)
	require.Empty(t, f.tasks.updated)
}

func TestAddTaskValidatesAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.doc.GetElementByID("taskTitle").SetValue("   ")
	f.tv.HandleAddTask(ctx)
	require.Equal(t, []string{"Please enter a task title"}, f.notes.alerts)
	require.Empty(t, f.tasks.created)

	f.doc.GetElementByID("taskTitle").SetValue(" Buy milk ")
	f.doc.GetElementByID("taskDueDate").SetValue("2024-05-01")
	f.doc.GetElementByID("taskPriority").SetValue("2")
	f.tv.HandleAddTask(ctx)
	require.Len(t, f.tasks.created, 1)
	in := f.tasks.created[0]
	require.Equal(t, "Buy milk", in.Title)
	require.Nil(t, in.Description)
	require.Nil(t, in.AssigneeID)
	require.Equal(t, 2, *in.Priority)
	require.Equal(t, "2024-05-01", in.DueDate.String())
	require.Equal(t, []string{"Task added successfully!"}, f.notes.successes)

	require.Equal(t, "", f.doc.GetElementByID("taskTitle").Value())
	require.Equal(t, "1", f.doc.GetElementByID("taskPriority").Value())
}

func TestAddTaskFailureKeepsForm(t *testing.T) {
	f := newFixture(t)
	f.tasks.err = &remote.RequestError{StatusCode: http.StatusBadRequest, Kind: remote.KindValidationFailed}
	f.doc.GetElementByID("taskTitle").SetValue("Keep me")
	f.tv.HandleAddTask(context.Background())
	require.Equal(t, []string{"Failed to add task. The service rejected the input."}, f.notes.alerts)
	require.Equal(t, "Keep me", f.doc.GetElementByID("taskTitle").Value())
}

func TestEditModalShowsResolvedPriority(t *testing.T) {
	f := newFixture(t)
	odd := 7
	f.tasks.tasks = []domain.Task{{ID: 5, Title: "Odd", Priority: &odd, IsCompleted: true}}
	f.tv.LoadTasks(context.Background())

	f.tv.OpenEditModal(context.Background(), 5)
	require.True(t, modal.IsOpen(f.doc.GetElementByID("editModal")))
	require.Equal(t, "5", f.doc.GetElementByID("editTaskId").Value())
	require.Equal(t, "1", f.doc.GetElementByID("editTaskPriority").Value())
	require.True(t, f.doc.GetElementByID("editTaskCompleted").Checked())

	f.doc.GetElementByID("editTaskTitle").SetValue("Even")
	f.tv.HandleEditTask(context.Background())
	require.Equal(t, "Even", f.tasks.updated[5].Title)
	require.Equal(t, 1, *f.tasks.updated[5].Priority)
	require.True(t, f.tasks.updated[5].IsCompleted)
	require.False(t, modal.IsOpen(f.doc.GetElementByID("editModal")))
}

func TestDeleteWaitsForConfirmation(t *testing.T) {
	f := newFixture(t)
	f.tv.DeleteTask(context.Background(), 9)
	require.Empty(t, f.tasks.deleted)
	require.NotNil(t, f.notes.confirm)

	f.notes.confirm(context.Background())
	require.Equal(t, []int64{9}, f.tasks.deleted)
	require.Equal(t, []string{"Task deleted successfully!"}, f.notes.successes)
}

func TestExportNavigatesWithFilter(t *testing.T) {
	f := newFixture(t)
	f.doc.GetElementByID("searchQuery").SetValue(" report ")
	f.tv.HandleExport(context.Background(), remote.ExportCSV)
	require.Equal(t, []string{"http://tasks.test/export/csv?q=report"}, f.notes.navigated)
	require.Equal(t, []string{"Exporting tasks to CSV..."}, f.notes.successes)
}

func TestRosterRefreshKeepsDropdownChoice(t *testing.T) {
	f := newFixture(t)
	f.users.users = []domain.User{
		{ID: 1, Name: "Ana", Email: "ana@example.com", IsActive: true},
		{ID: 2, Name: "Ben", Email: "ben@example.com", IsActive: true},
		{ID: 3, Name: "Cy", Email: "cy@example.com", IsActive: false},
	}
	ctx := context.Background()
	f.uv.LoadActiveUsers(ctx)
	assignee := f.doc.GetElementByID("taskAssignee")
	require.Len(t, assignee.Options(), 3)
	assignee.SetValue("2")

	f.users.users[0].IsActive = false
	f.uv.LoadActiveUsers(ctx)
	require.Equal(t, []dom.Option{{Value: "", Label: "Unassigned"}, {Value: "2", Label: "Ben"}}, assignee.Options())
	require.Equal(t, "2", assignee.Value())

	f.users.err = errors.New("down")
	f.uv.LoadActiveUsers(ctx)
	require.Empty(t, f.roster.Users())
	require.Len(t, assignee.Options(), 1)
}

func TestToggleUserActive(t *testing.T) {
	f := newFixture(t)
	f.users.users = []domain.User{{ID: 4, Name: "Dee", Email: "dee@example.com", IsActive: true}}
	f.doc.GetElementByID("onlyActiveUsers").SetChecked(false)
	f.uv.LoadUsersForDisplay(context.Background())

	f.uv.ToggleUserActive(context.Background(), 4)
	require.False(t, f.users.updated[4].IsActive)
	require.Equal(t, "dee@example.com", f.users.updated[4].Email)
	require.Equal(t, []string{"✅ User deactivated!"}, f.notes.successes)
}

func TestAddCommentRequiresContent(t *testing.T) {
	f := newFixture(t)
	f.tasks.tasks = []domain.Task{{ID: 8, Title: "Thread"}}
	ctx := context.Background()
	f.tv.LoadTasks(ctx)
	f.tv.OpenTaskDetails(ctx, 8)
	require.Equal(t, "Task: Thread", f.doc.GetElementByID("taskDetailsTitle").Text())

	f.tv.HandleAddComment(ctx)
	require.Equal(t, []string{"Please enter a comment"}, f.notes.alerts)

	f.doc.GetElementByID("commentContent").SetValue("looks good")
	f.tv.HandleAddComment(ctx)
	require.Equal(t, []domain.CommentInput{{Content: "looks good", TaskItemID: 8}}, f.comments.created)
	require.Equal(t, "", f.doc.GetElementByID("commentContent").Value())
}

func TestMatchUsers(t *testing.T) {
	users := []domain.User{
		{ID: 1, Name: "Ana Lima", Email: "ana@example.com", Department: domain.OptionalString("Engineering")},
		{ID: 2, Name: "Ben", Email: "ben@corp.io"},
	}
	require.Len(t, MatchUsers(users, ""), 2)
	require.Equal(t, int64(1), MatchUsers(users, "ENGINEER")[0].ID)
	require.Equal(t, int64(2), MatchUsers(users, "corp")[0].ID)
	require.Empty(t, MatchUsers(users, "zzz"))
}

func TestFailureMessage(t *testing.T) {
	notFound := &remote.RequestError{StatusCode: http.StatusNotFound, Kind: remote.KindNotFound}
	require.Equal(t, "Failed to delete task. It no longer exists; reload the list.", failureMessage("Failed to delete task", notFound))
	require.Equal(t, "Failed to delete task. Please try again.", failureMessage("Failed to delete task", errors.New("boom")))
}
