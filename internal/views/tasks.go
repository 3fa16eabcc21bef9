package views

import (
	"context"
	"log"
	"strconv"
	"strings"

	"taskdesk/internal/dom"
	"taskdesk/internal/domain"
	"taskdesk/internal/modal"
	"taskdesk/internal/remote"
	"taskdesk/internal/render"
	"taskdesk/internal/state"
)

// TaskElements are the page nodes owned by the tasks view.
type TaskElements struct {
	TaskForm        *dom.Element
	TaskTitle       *dom.Element
	TaskDescription *dom.Element
	TaskAssignee    *dom.Element
	TaskPriority    *dom.Element
	TaskDueDate     *dom.Element
	TaskCategory    *dom.Element
	TasksList       *dom.Element
	TaskCount       *dom.Element
	SearchQuery     *dom.Element
	OnlyIncomplete  *dom.Element

	EditModal           *dom.Element
	EditForm            *dom.Element
	EditTaskID          *dom.Element
	EditTaskTitle       *dom.Element
	EditTaskDescription *dom.Element
	EditTaskCompleted   *dom.Element
	EditTaskAssignee    *dom.Element
	EditTaskPriority    *dom.Element
	EditTaskDueDate     *dom.Element
	EditTaskCategory    *dom.Element

	TaskDetailsModal *dom.Element
	TaskDetailsTitle *dom.Element
	TaskDetailsInfo  *dom.Element
	CommentsList     *dom.Element
	CommentCount     *dom.Element
	AddCommentForm   *dom.Element
	CommentTaskID    *dom.Element
	CommentContent   *dom.Element
	CommentUser      *dom.Element
}

type TasksDeps struct {
	Tasks     TaskService
	Comments  CommentService
	Notifier  Notifier
	Navigator Navigator
	Roster    *state.Store
	Renderer  *render.Renderer
	Logger    *log.Logger
}

type TasksView struct {
	el TaskElements
	TasksDeps

	// index holds the tasks of the last successful render, keyed by id.
	index map[int64]domain.Task
}

func NewTasksView(el TaskElements, deps TasksDeps) *TasksView {
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	if deps.Roster == nil {
		deps.Roster = state.New()
	}
	return &TasksView{el: el, TasksDeps: deps, index: map[int64]domain.Task{}}
}

func (v *TasksView) logger() *log.Logger { return logger(v.Logger) }

// Task returns a record from the last rendered list.
func (v *TasksView) Task(id int64) (domain.Task, bool) {
	t, ok := v.index[id]
	return t, ok
}

func (v *TasksView) show(tasks []domain.Task) {
	index := make(map[int64]domain.Task, len(tasks))
	for _, t := range tasks {
		index[t.ID] = t
	}
	v.index = index
	if err := v.Renderer.RenderTasksList(tasks, v.el.TasksList, v.el.TaskCount); err != nil {
		v.logger().Printf("Error rendering tasks: %v", err)
	}
}

func (v *TasksView) showError(msg string) {
	if err := render.ShowTasksError(v.el.TasksList, msg); err != nil {
		v.logger().Printf("Error rendering tasks: %v", err)
	}
}

// LoadTasks fetches and renders every task.
func (v *TasksView) LoadTasks(ctx context.Context) {
	_ = render.ShowTasksLoading(v.el.TasksList)
	tasks, err := v.Tasks.List(ctx)
	if err != nil {
		v.showError("Failed to load tasks. Please try again.")
		v.logger().Printf("Error loading tasks: %v", err)
		return
	}
	v.show(tasks)
}

func (v *TasksView) filter() domain.TaskFilter {
	return domain.TaskFilter{
		Query:          strings.TrimSpace(v.el.SearchQuery.Value()),
		OnlyIncomplete: v.el.OnlyIncomplete.Checked(),
	}
}

func (v *TasksView) HandleSearch(ctx context.Context) {
	_ = render.ShowTasksLoading(v.el.TasksList)
	tasks, err := v.Tasks.Search(ctx, v.filter())
	if err != nil {
		v.showError("Failed to search tasks. Please try again.")
		v.logger().Printf("Error searching tasks: %v", err)
		return
	}
	v.show(tasks)
}

func (v *TasksView) HandleClearSearch(ctx context.Context) {
	v.el.SearchQuery.SetValue("")
	v.el.OnlyIncomplete.SetChecked(false)
	v.LoadTasks(ctx)
}

// HandleExport sends the browser to the export download for the current
// search fields.
func (v *TasksView) HandleExport(_ context.Context, format remote.ExportFormat) {
	v.Navigator.Navigate(v.Tasks.ExportURL(v.filter(), format))
	if format == remote.ExportCSV {
		v.Notifier.Success("Exporting tasks to CSV...")
		return
	}
	v.Notifier.Success("Exporting tasks to Excel...")
}

type taskFields struct {
	title, description, assignee, priority, dueDate, category *dom.Element
}

// readTask builds the write shape from a task form. The returned message is
// non-empty when the form cannot be submitted.
func readTask(f taskFields) (domain.TaskInput, string) {
	in := domain.TaskInput{
		Title:       strings.TrimSpace(f.title.Value()),
		Description: domain.OptionalString(f.description.Value()),
		Category:    domain.OptionalString(f.category.Value()),
	}
	if in.Title == "" {
		return in, "Please enter a task title"
	}
	assignee, err := optionalID(f.assignee.Value())
	if err != nil {
		return in, "Please choose a valid assignee"
	}
	in.AssigneeID = assignee
	if raw := strings.TrimSpace(f.priority.Value()); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return in, "Please choose a valid priority"
		}
		in.Priority = &p
	}
	if raw := strings.TrimSpace(f.dueDate.Value()); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return in, "Please enter a valid due date"
		}
		in.DueDate = &d
	}
	return in, ""
}

func (v *TasksView) HandleAddTask(ctx context.Context) {
	in, problem := readTask(taskFields{
		title:       v.el.TaskTitle,
		description: v.el.TaskDescription,
		assignee:    v.el.TaskAssignee,
		priority:    v.el.TaskPriority,
		dueDate:     v.el.TaskDueDate,
		category:    v.el.TaskCategory,
	})
	if problem != "" {
		v.Notifier.Alert(problem)
		return
	}
	if _, err := v.Tasks.Create(ctx, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to add task", err))
		v.logger().Printf("Error adding task: %v", err)
		return
	}
	v.el.TaskForm.Reset()
	v.LoadTasks(ctx)
	v.Notifier.Success("Task added successfully!")
}

// OpenEditModal fills the edit form from the rendered record id.
func (v *TasksView) OpenEditModal(_ context.Context, id int64) {
	task, ok := v.Task(id)
	if !ok {
		v.Notifier.Alert("Task not found. Reload the list and try again.")
		return
	}
	v.el.EditTaskID.SetValue(strconv.FormatInt(task.ID, 10))
	v.el.EditTaskTitle.SetValue(task.Title)
	v.el.EditTaskDescription.SetValue(domain.StringValue(task.Description))
	v.el.EditTaskCompleted.SetChecked(task.IsCompleted)
	v.el.EditTaskAssignee.SetValue(formatOptionalID(task.AssigneeID))
	v.el.EditTaskPriority.SetValue(strconv.Itoa(int(domain.ResolvePriority(task.Priority))))
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.String()
	}
	v.el.EditTaskDueDate.SetValue(due)
	v.el.EditTaskCategory.SetValue(domain.StringValue(task.Category))
	modal.Open(v.el.EditModal)
}

func (v *TasksView) CloseEditModal(context.Context) {
	modal.Close(v.el.EditModal, v.el.EditForm)
}

func (v *TasksView) HandleEditTask(ctx context.Context) {
	id, err := strconv.ParseInt(strings.TrimSpace(v.el.EditTaskID.Value()), 10, 64)
	if err != nil {
		v.Notifier.Alert("Task not found. Reload the list and try again.")
		v.logger().Printf("Error updating task: bad id %q", v.el.EditTaskID.Value())
		return
	}
	in, problem := readTask(taskFields{
		title:       v.el.EditTaskTitle,
		description: v.el.EditTaskDescription,
		assignee:    v.el.EditTaskAssignee,
		priority:    v.el.EditTaskPriority,
		dueDate:     v.el.EditTaskDueDate,
		category:    v.el.EditTaskCategory,
	})
	if problem != "" {
		v.Notifier.Alert(problem)
		return
	}
	in.IsCompleted = v.el.EditTaskCompleted.Checked()
	if _, err := v.Tasks.Update(ctx, id, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to update task", err))
		v.logger().Printf("Error updating task: %v", err)
		return
	}
	v.CloseEditModal(ctx)
	v.LoadTasks(ctx)
	v.Notifier.Success("Task updated successfully!")
}

// DeleteTask asks for confirmation before deleting task id.
func (v *TasksView) DeleteTask(ctx context.Context, id int64) {
	v.Notifier.Confirm(ctx, "Are you sure you want to delete this task?", func(ctx context.Context) {
		if err := v.Tasks.Delete(ctx, id); err != nil {
			v.Notifier.Alert(failureMessage("Failed to delete task", err))
			v.logger().Printf("Error deleting task: %v", err)
			return
		}
		v.LoadTasks(ctx)
		v.Notifier.Success("Task deleted successfully!")
	})
}

// ToggleComplete flips the completion flag, sending every other field as
// last rendered.
func (v *TasksView) ToggleComplete(ctx context.Context, id int64) {
	task, ok := v.Task(id)
	if !ok {
		v.Notifier.Alert("Task not found. Reload the list and try again.")
		return
	}
	in := task.Input()
	in.IsCompleted = !task.IsCompleted
	if _, err := v.Tasks.Update(ctx, id, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to update task", err))
		v.logger().Printf("Error toggling task completion: %v", err)
		return
	}
	v.LoadTasks(ctx)
}

// OpenTaskDetails shows the task card and its comment thread.
func (v *TasksView) OpenTaskDetails(ctx context.Context, id int64) {
	task, ok := v.Task(id)
	if !ok {
		v.Notifier.Alert("Task not found. Reload the list and try again.")
		return
	}
	v.el.CommentTaskID.SetValue(strconv.FormatInt(task.ID, 10))
	v.el.TaskDetailsTitle.SetText("Task: " + task.Title)
	if err := v.Renderer.RenderTaskDetails(task, v.el.TaskDetailsInfo); err != nil {
		v.logger().Printf("Error rendering task details: %v", err)
	}
	render.PopulateUserDropdown(v.Roster.Users(), v.el.CommentUser)
	v.loadComments(ctx, task.ID)
	modal.Open(v.el.TaskDetailsModal)
}

func (v *TasksView) CloseTaskDetails(context.Context) {
	modal.Close(v.el.TaskDetailsModal, v.el.AddCommentForm)
}

func (v *TasksView) loadComments(ctx context.Context, taskID int64) {
	_ = render.ShowCommentsLoading(v.el.CommentsList)
	comments, err := v.Comments.ListByTask(ctx, taskID)
	if err != nil {
		_ = render.ShowCommentsError(v.el.CommentsList)
		v.logger().Printf("Error loading comments: %v", err)
		return
	}
	if err := v.Renderer.RenderCommentsList(comments, v.el.CommentsList, v.el.CommentCount); err != nil {
		v.logger().Printf("Error rendering comments: %v", err)
	}
}

func (v *TasksView) detailsTaskID() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(v.el.CommentTaskID.Value()), 10, 64)
	return id, err == nil && id > 0
}

func (v *TasksView) HandleAddComment(ctx context.Context) {
	content := strings.TrimSpace(v.el.CommentContent.Value())
	if content == "" {
		v.Notifier.Alert("Please enter a comment")
		return
	}
	taskID, ok := v.detailsTaskID()
	if !ok {
		v.Notifier.Alert("Open a task before commenting")
		return
	}
	author, err := optionalID(v.el.CommentUser.Value())
	if err != nil {
		v.Notifier.Alert("Please choose a valid user")
		return
	}
	in := domain.CommentInput{Content: content, TaskItemID: taskID, CreatedByUserID: author}
	if _, err := v.Comments.Create(ctx, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to add comment", err))
		v.logger().Printf("Error adding comment: %v", err)
		return
	}
	v.el.CommentContent.SetValue("")
	v.loadComments(ctx, taskID)
	v.Notifier.Success("💬 Comment added successfully!")
}

// DeleteComment asks for confirmation before deleting comment id and then
// reloads the open thread.
func (v *TasksView) DeleteComment(ctx context.Context, id int64) {
	v.Notifier.Confirm(ctx, "Are you sure you want to delete this comment?", func(ctx context.Context) {
		if err := v.Comments.Delete(ctx, id); err != nil {
			v.Notifier.Alert(failureMessage("Failed to delete comment", err))
			v.logger().Printf("Error deleting comment: %v", err)
			return
		}
		if taskID, ok := v.detailsTaskID(); ok {
			v.loadComments(ctx, taskID)
		}
		v.Notifier.Success("💬 Comment deleted successfully!")
	})
}

// UpdateUserDropdowns refills the assignee selects from the roster.
func (v *TasksView) UpdateUserDropdowns() {
	users := v.Roster.Users()
	for _, el := range []*dom.Element{v.el.TaskAssignee, v.el.EditTaskAssignee} {
		keepSelection(el, func() { render.PopulateUserDropdown(users, el) })
	}
}
