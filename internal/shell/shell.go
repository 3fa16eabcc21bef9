// Package shell assembles one console page: it parses the page skeleton,
// looks up every element the views need, wires listeners and the per-record
// action tables, and turns posted browser events into dispatches.
package shell

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"taskdesk/internal/dom"
	"taskdesk/internal/domain"
	"taskdesk/internal/modal"
	"taskdesk/internal/notify"
	"taskdesk/internal/remote"
	"taskdesk/internal/render"
	"taskdesk/internal/state"
	"taskdesk/internal/views"
)

//go:embed page.html
var page []byte

// Form fields carrying event metadata.
const (
	FieldForm   = "_form"
	FieldEvent  = "_event"
	FieldTarget = "_target"
	FieldKey    = "_key"
	FieldClick  = "_click"
	FieldAction = "_action"
)

const activeClass = "active"

// NewDocument parses a fresh copy of the page skeleton.
func NewDocument() (*dom.Document, error) {
	return dom.Parse(bytes.NewReader(page))
}

// Elements are the looked-up page nodes.
type Elements struct {
	Tasks  views.TaskElements
	Users  views.UserElements
	Notify notify.Elements

	SearchBtn          *dom.Element
	ClearSearchBtn     *dom.Element
	ExportBtn          *dom.Element
	ExportCSVBtn       *dom.Element
	UserSearchBtn      *dom.Element
	ClearUserSearchBtn *dom.Element
	AlertOKBtn         *dom.Element
	ConfirmYesBtn      *dom.Element
	ConfirmNoBtn       *dom.Element

	MenuItems []*dom.Element
	Views     []*dom.Element
}

type finder struct {
	doc     *dom.Document
	missing []string
}

func (f *finder) get(id string) *dom.Element {
	el := f.doc.GetElementByID(id)
	if el == nil {
		f.missing = append(f.missing, id)
	}
	return el
}

// LookupElements finds every element the console uses. It fails when the
// document lacks any of them.
func LookupElements(doc *dom.Document) (Elements, error) {
	f := &finder{doc: doc}
	el := Elements{
		Tasks: views.TaskElements{
			TaskForm:        f.get("taskForm"),
			TaskTitle:       f.get("taskTitle"),
			TaskDescription: f.get("taskDescription"),
			TaskAssignee:    f.get("taskAssignee"),
			TaskPriority:    f.get("taskPriority"),
			TaskDueDate:     f.get("taskDueDate"),
			TaskCategory:    f.get("taskCategory"),
			TasksList:       f.get("tasksList"),
			TaskCount:       f.get("taskCount"),
			SearchQuery:     f.get("searchQuery"),
			OnlyIncomplete:  f.get("onlyIncomplete"),

			EditModal:           f.get("editModal"),
			EditForm:            f.get("editForm"),
			EditTaskID:          f.get("editTaskId"),
			EditTaskTitle:       f.get("editTaskTitle"),
			EditTaskDescription: f.get("editTaskDescription"),
			EditTaskCompleted:   f.get("editTaskCompleted"),
			EditTaskAssignee:    f.get("editTaskAssignee"),
			EditTaskPriority:    f.get("editTaskPriority"),
			EditTaskDueDate:     f.get("editTaskDueDate"),
			EditTaskCategory:    f.get("editTaskCategory"),

			TaskDetailsModal: f.get("taskDetailsModal"),
			TaskDetailsTitle: f.get("taskDetailsTitle"),
			TaskDetailsInfo:  f.get("taskDetailsInfo"),
			CommentsList:     f.get("commentsList"),
			CommentCount:     f.get("commentCount"),
			AddCommentForm:   f.get("addCommentForm"),
			CommentTaskID:    f.get("commentTaskId"),
			CommentContent:   f.get("commentContent"),
			CommentUser:      f.get("commentUser"),
		},
		Users: views.UserElements{
			UserForm:        f.get("userForm"),
			UserName:        f.get("userName"),
			UserEmail:       f.get("userEmail"),
			UserDepartment:  f.get("userDepartment"),
			UsersList:       f.get("usersList"),
			UserCount:       f.get("userCount"),
			UserSearchQuery: f.get("userSearchQuery"),
			OnlyActiveUsers: f.get("onlyActiveUsers"),

			EditUserModal:      f.get("editUserModal"),
			EditUserForm:       f.get("editUserForm"),
			EditUserID:         f.get("editUserId"),
			EditUserName:       f.get("editUserName"),
			EditUserEmail:      f.get("editUserEmail"),
			EditUserDepartment: f.get("editUserDepartment"),
			EditUserActive:     f.get("editUserActive"),
		},
		Notify: notify.Elements{
			Toast:          f.get("notification"),
			AlertModal:     f.get("alertModal"),
			AlertMessage:   f.get("alertMessage"),
			ConfirmModal:   f.get("confirmModal"),
			ConfirmMessage: f.get("confirmMessage"),
		},
		SearchBtn:          f.get("searchBtn"),
		ClearSearchBtn:     f.get("clearSearchBtn"),
		ExportBtn:          f.get("exportBtn"),
		ExportCSVBtn:       f.get("exportCsvBtn"),
		UserSearchBtn:      f.get("userSearchBtn"),
		ClearUserSearchBtn: f.get("clearUserSearchBtn"),
		AlertOKBtn:         f.get("alertOkBtn"),
		ConfirmYesBtn:      f.get("confirmYesBtn"),
		ConfirmNoBtn:       f.get("confirmNoBtn"),
		MenuItems:          doc.ElementsByClass("menu-item"),
		Views:              doc.ElementsByClass("view"),
	}
	if len(f.missing) > 0 {
		return Elements{}, fmt.Errorf("page is missing elements: %s", strings.Join(f.missing, ", "))
	}
	if len(el.MenuItems) == 0 || len(el.Views) == 0 {
		return Elements{}, errors.New("page has no menu items or views")
	}
	return el, nil
}

// Deps are the services and settings a shell is built from.
type Deps struct {
	Tasks           views.TaskService
	Users           views.UserService
	Comments        views.CommentService
	NotificationTTL time.Duration
	Renderer        *render.Renderer
	Logger          *log.Logger
	// Now overrides the notification clock in tests.
	Now func() time.Time
}

type handler func(ctx context.Context, id int64)

// Shell is one page session. It is not safe for concurrent use; callers
// serialize events per session.
type Shell struct {
	doc      *dom.Document
	el       Elements
	state    *state.Store
	notifier *notify.Notifier
	tasks    *views.TasksView
	users    *views.UsersView
	actions  map[string]map[string]handler
	logger   *log.Logger

	pending string
}

// New parses a fresh page and wires it to deps.
func New(deps Deps) (*Shell, error) {
	doc, err := NewDocument()
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	el, err := LookupElements(doc)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Shell{
		doc:      doc,
		el:       el,
		state:    state.New(),
		notifier: notify.New(el.Notify, deps.NotificationTTL),
		logger:   logger,
	}
	if deps.Now != nil {
		s.notifier.Now = deps.Now
	}
	s.tasks = views.NewTasksView(el.Tasks, views.TasksDeps{
		Tasks:     deps.Tasks,
		Comments:  deps.Comments,
		Notifier:  s.notifier,
		Navigator: s,
		Roster:    s.state,
		Renderer:  deps.Renderer,
		Logger:    logger,
	})
	s.users = views.NewUsersView(el.Users, views.UsersDeps{
		Users:    deps.Users,
		Notifier: s.notifier,
		Roster:   s.state,
		Renderer: deps.Renderer,
		Logger:   logger,
		OnRosterChange: func([]domain.User) {
			s.tasks.UpdateUserDropdowns()
		},
	})
	s.actions = map[string]map[string]handler{
		"tasks": {
			"openDetails":    s.tasks.OpenTaskDetails,
			"toggleComplete": s.tasks.ToggleComplete,
			"openEdit":       s.tasks.OpenEditModal,
			"delete":         s.tasks.DeleteTask,
			"closeEdit":      func(ctx context.Context, _ int64) { s.tasks.CloseEditModal(ctx) },
			"closeDetails":   func(ctx context.Context, _ int64) { s.tasks.CloseTaskDetails(ctx) },
		},
		"users": {
			"toggleActive": s.users.ToggleUserActive,
			"openEdit":     s.users.OpenEditUserModal,
			"delete":       s.users.DeleteUser,
			"closeEdit":    func(ctx context.Context, _ int64) { s.users.CloseEditUserModal(ctx) },
		},
		"comments": {
			"delete": s.tasks.DeleteComment,
		},
	}
	s.attachListeners()
	return s, nil
}

func onSubmit(el *dom.Element, fn func(ctx context.Context)) {
	el.AddEventListener(dom.EventSubmit, func(ctx context.Context, _ dom.Event) { fn(ctx) })
}

func onClick(el *dom.Element, fn func(ctx context.Context)) {
	el.AddEventListener(dom.EventClick, func(ctx context.Context, _ dom.Event) { fn(ctx) })
}

func onEnter(el *dom.Element, fn func(ctx context.Context)) {
	el.AddEventListener(dom.EventKeypress, func(ctx context.Context, ev dom.Event) {
		if ev.Key == "Enter" {
			fn(ctx)
		}
	})
}

func (s *Shell) attachListeners() {
	for _, item := range s.el.MenuItems {
		view := state.View(item.Data("view"))
		onClick(item, func(ctx context.Context) { s.SwitchView(ctx, view) })
	}

	t, u := s.el.Tasks, s.el.Users
	onSubmit(t.TaskForm, s.tasks.HandleAddTask)
	onSubmit(t.EditForm, s.tasks.HandleEditTask)
	onClick(s.el.SearchBtn, s.tasks.HandleSearch)
	onClick(s.el.ClearSearchBtn, s.tasks.HandleClearSearch)
	onClick(s.el.ExportBtn, func(ctx context.Context) { s.tasks.HandleExport(ctx, remote.ExportSpreadsheet) })
	onClick(s.el.ExportCSVBtn, func(ctx context.Context) { s.tasks.HandleExport(ctx, remote.ExportCSV) })

	onSubmit(u.UserForm, s.users.HandleAddUser)
	onSubmit(u.EditUserForm, s.users.HandleEditUser)
	onClick(s.el.UserSearchBtn, s.users.HandleUserSearch)
	onClick(s.el.ClearUserSearchBtn, s.users.HandleClearUserSearch)

	onSubmit(t.AddCommentForm, s.tasks.HandleAddComment)

	onEnter(t.SearchQuery, s.tasks.HandleSearch)
	onEnter(u.UserSearchQuery, s.users.HandleUserSearch)

	modal.BindOutsideDismiss(t.EditModal, s.tasks.CloseEditModal)
	modal.BindOutsideDismiss(u.EditUserModal, s.users.CloseEditUserModal)
	modal.BindOutsideDismiss(t.TaskDetailsModal, s.tasks.CloseTaskDetails)

	onClick(s.el.AlertOKBtn, s.notifier.DismissAlert)
	onClick(s.el.ConfirmYesBtn, s.notifier.Accept)
	onClick(s.el.ConfirmNoBtn, s.notifier.Decline)
}

// Init performs the first load: the task list, then the roster, which in
// turn fills the assignee dropdowns.
func (s *Shell) Init(ctx context.Context) {
	s.tasks.LoadTasks(ctx)
	s.users.LoadActiveUsers(ctx)
}

// SwitchView shows exactly one top-level view and loads its list.
func (s *Shell) SwitchView(ctx context.Context, v state.View) {
	if v != state.ViewTasks && v != state.ViewUsers {
		s.logger.Printf("Unknown view %q", v)
		return
	}
	for _, item := range s.el.MenuItems {
		item.ToggleClass(activeClass, item.Data("view") == string(v))
	}
	for _, view := range s.el.Views {
		view.ToggleClass(activeClass, view.ID() == string(v)+"View")
	}
	s.state.SetCurrentView(v)
	switch v {
	case state.ViewUsers:
		s.users.LoadUsersForDisplay(ctx)
	case state.ViewTasks:
		s.tasks.LoadTasks(ctx)
	}
}

// HandleEvent applies one posted browser event. Form fields are synced into
// the document first so handlers read what the user typed.
func (s *Shell) HandleEvent(ctx context.Context, values url.Values) error {
	var form *dom.Element
	if id := values.Get(FieldForm); id != "" {
		form = s.doc.GetElementByID(id)
		if form == nil {
			return fmt.Errorf("unknown form %q", id)
		}
		s.doc.SyncForm(form, values)
	}
	if v := values.Get(FieldAction); v != "" {
		return s.RunAction(ctx, v)
	}
	if id := values.Get(FieldClick); id != "" {
		target := s.doc.GetElementByID(id)
		if target == nil {
			return fmt.Errorf("unknown element %q", id)
		}
		s.doc.Dispatch(ctx, dom.Event{Type: dom.EventClick, Target: target})
		return nil
	}
	if form == nil {
		return errors.New("event has no target")
	}
	typ := values.Get(FieldEvent)
	if typ == "" {
		typ = dom.EventSubmit
	}
	target := form
	if id := values.Get(FieldTarget); id != "" {
		if target = s.doc.GetElementByID(id); target == nil {
			return fmt.Errorf("unknown element %q", id)
		}
	}
	s.doc.Dispatch(ctx, dom.Event{Type: typ, Target: target, Key: values.Get(FieldKey)})
	return nil
}

// RunAction routes an encoded per-record action to its handler.
func (s *Shell) RunAction(ctx context.Context, encoded string) error {
	scope, name, id, err := render.ParseAction(encoded)
	if err != nil {
		return err
	}
	fn, ok := s.actions[scope][name]
	if !ok {
		return fmt.Errorf("unknown action %s.%s", scope, name)
	}
	fn(ctx, id)
	return nil
}

// Navigate records a URL the browser should be sent to after this event.
func (s *Shell) Navigate(url string) { s.pending = url }

// TakeNavigation returns and clears the pending navigation.
func (s *Shell) TakeNavigation() string {
	u := s.pending
	s.pending = ""
	return u
}

// Render expires a stale toast and writes the page.
func (s *Shell) Render(w io.Writer) error {
	s.notifier.Expire()
	return s.doc.Render(w)
}

func (s *Shell) Document() *dom.Document    { return s.doc }
func (s *Shell) State() *state.Store        { return s.state }
func (s *Shell) Tasks() *views.TasksView    { return s.tasks }
func (s *Shell) Users() *views.UsersView    { return s.users }
func (s *Shell) Notifier() *notify.Notifier { return s.notifier }
