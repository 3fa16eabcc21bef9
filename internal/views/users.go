package views

import (
	"context"
	"log"
	"strconv"
	"strings"

	"taskdesk/internal/dom"
	"taskdesk/internal/domain"
	"taskdesk/internal/modal"
	"taskdesk/internal/render"
	"taskdesk/internal/state"
)

// UserElements are the page nodes owned by the users view.
type UserElements struct {
	UserForm        *dom.Element
	UserName        *dom.Element
	UserEmail       *dom.Element
	UserDepartment  *dom.Element
	UsersList       *dom.Element
	UserCount       *dom.Element
	UserSearchQuery *dom.Element
	OnlyActiveUsers *dom.Element

	EditUserModal      *dom.Element
	EditUserForm       *dom.Element
	EditUserID         *dom.Element
	EditUserName       *dom.Element
	EditUserEmail      *dom.Element
	EditUserDepartment *dom.Element
	EditUserActive     *dom.Element
}

type UsersDeps struct {
	Users    UserService
	Notifier Notifier
	Roster   *state.Store
	Renderer *render.Renderer
	Logger   *log.Logger
	// OnRosterChange runs after every roster refresh.
	OnRosterChange func(users []domain.User)
}

// UsersView is the only writer of the roster in its session.
type UsersView struct {
	el UserElements
	UsersDeps

	index map[int64]domain.User
}

func NewUsersView(el UserElements, deps UsersDeps) *UsersView {
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	if deps.Roster == nil {
		deps.Roster = state.New()
	}
	return &UsersView{el: el, UsersDeps: deps, index: map[int64]domain.User{}}
}

func (v *UsersView) logger() *log.Logger { return logger(v.Logger) }

// User returns a record from the last rendered list.
func (v *UsersView) User(id int64) (domain.User, bool) {
	u, ok := v.index[id]
	return u, ok
}

func (v *UsersView) show(users []domain.User) {
	index := make(map[int64]domain.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	v.index = index
	if err := v.Renderer.RenderUsersList(users, v.el.UsersList, v.el.UserCount); err != nil {
		v.logger().Printf("Error rendering users: %v", err)
	}
}

func (v *UsersView) showError(msg string) {
	if err := render.ShowUsersError(v.el.UsersList, msg); err != nil {
		v.logger().Printf("Error rendering users: %v", err)
	}
}

func (v *UsersView) fetch(ctx context.Context) ([]domain.User, error) {
	if v.el.OnlyActiveUsers.Checked() {
		return v.Users.ListActive(ctx)
	}
	return v.Users.List(ctx)
}

// LoadUsersForDisplay renders all users, or only active ones when the filter
// is ticked.
func (v *UsersView) LoadUsersForDisplay(ctx context.Context) {
	_ = render.ShowUsersLoading(v.el.UsersList)
	users, err := v.fetch(ctx)
	if err != nil {
		v.showError("Failed to load users. Please try again.")
		v.logger().Printf("Error loading users: %v", err)
		return
	}
	v.show(users)
}

// LoadActiveUsers replaces the roster. A failed fetch leaves it empty.
func (v *UsersView) LoadActiveUsers(ctx context.Context) []domain.User {
	users, err := v.Users.ListActive(ctx)
	if err != nil {
		v.logger().Printf("Error loading users: %v", err)
		users = nil
	}
	v.Roster.SetUsers(users)
	if v.OnRosterChange != nil {
		v.OnRosterChange(v.Roster.Users())
	}
	return users
}

func (v *UsersView) refresh(ctx context.Context) {
	v.LoadUsersForDisplay(ctx)
	v.LoadActiveUsers(ctx)
}

func readUser(name, email, department *dom.Element) (domain.UserInput, string) {
	in := domain.UserInput{
		Name:       strings.TrimSpace(name.Value()),
		Email:      strings.TrimSpace(email.Value()),
		Department: domain.OptionalString(department.Value()),
	}
	if err := in.Validate(); err != nil {
		return in, "Please enter a name and an email"
	}
	return in, ""
}

func (v *UsersView) HandleAddUser(ctx context.Context) {
	in, problem := readUser(v.el.UserName, v.el.UserEmail, v.el.UserDepartment)
	if problem != "" {
		v.Notifier.Alert(problem)
		return
	}
	in.IsActive = true
	if _, err := v.Users.Create(ctx, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to add user", err))
		v.logger().Printf("Error adding user: %v", err)
		return
	}
	v.el.UserForm.Reset()
	v.refresh(ctx)
	v.Notifier.Success("✅ User added successfully!")
}

func (v *UsersView) OpenEditUserModal(_ context.Context, id int64) {
	user, ok := v.User(id)
	if !ok {
		v.Notifier.Alert("User not found. Reload the list and try again.")
		return
	}
	v.el.EditUserID.SetValue(strconv.FormatInt(user.ID, 10))
	v.el.EditUserName.SetValue(user.Name)
	v.el.EditUserEmail.SetValue(user.Email)
	v.el.EditUserDepartment.SetValue(domain.StringValue(user.Department))
	v.el.EditUserActive.SetChecked(user.IsActive)
	modal.Open(v.el.EditUserModal)
}

func (v *UsersView) CloseEditUserModal(context.Context) {
	modal.Close(v.el.EditUserModal, v.el.EditUserForm)
}

func (v *UsersView) HandleEditUser(ctx context.Context) {
	id, err := strconv.ParseInt(strings.TrimSpace(v.el.EditUserID.Value()), 10, 64)
	if err != nil {
		v.Notifier.Alert("User not found. Reload the list and try again.")
		v.logger().Printf("Error updating user: bad id %q", v.el.EditUserID.Value())
		return
	}
	in, problem := readUser(v.el.EditUserName, v.el.EditUserEmail, v.el.EditUserDepartment)
	if problem != "" {
		v.Notifier.Alert(problem)
		return
	}
	in.IsActive = v.el.EditUserActive.Checked()
	if _, err := v.Users.Update(ctx, id, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to update user", err))
		v.logger().Printf("Error updating user: %v", err)
		return
	}
	v.CloseEditUserModal(ctx)
	v.refresh(ctx)
	v.Notifier.Success("✅ User updated successfully!")
}

func (v *UsersView) DeleteUser(ctx context.Context, id int64) {
	v.Notifier.Confirm(ctx, "Are you sure you want to delete this user? This action cannot be undone.", func(ctx context.Context) {
		if err := v.Users.Delete(ctx, id); err != nil {
			v.Notifier.Alert(failureMessage("Failed to delete user", err))
			v.logger().Printf("Error deleting user: %v", err)
			return
		}
		v.refresh(ctx)
		v.Notifier.Success("✅ User deleted successfully!")
	})
}

// ToggleUserActive flips the active flag of a rendered user.
func (v *UsersView) ToggleUserActive(ctx context.Context, id int64) {
	user, ok := v.User(id)
	if !ok {
		v.Notifier.Alert("User not found. Reload the list and try again.")
		return
	}
	in := user.Input()
	in.IsActive = !user.IsActive
	if _, err := v.Users.Update(ctx, id, in); err != nil {
		v.Notifier.Alert(failureMessage("Failed to update user status", err))
		v.logger().Printf("Error toggling user active: %v", err)
		return
	}
	v.refresh(ctx)
	if in.IsActive {
		v.Notifier.Success("✅ User activated!")
		return
	}
	v.Notifier.Success("✅ User deactivated!")
}

// HandleUserSearch filters the fetched users by name, email or department.
func (v *UsersView) HandleUserSearch(ctx context.Context) {
	query := strings.TrimSpace(v.el.UserSearchQuery.Value())
	_ = render.ShowUsersLoading(v.el.UsersList)
	users, err := v.fetch(ctx)
	if err != nil {
		v.showError("Failed to search users. Please try again.")
		v.logger().Printf("Error searching users: %v", err)
		return
	}
	v.show(MatchUsers(users, query))
}

// HandleClearUserSearch resets the search to active users only.
func (v *UsersView) HandleClearUserSearch(ctx context.Context) {
	v.el.UserSearchQuery.SetValue("")
	v.el.OnlyActiveUsers.SetChecked(true)
	v.LoadUsersForDisplay(ctx)
}

// MatchUsers keeps users whose name, email or department contains query,
// ignoring case. An empty query matches everyone.
func MatchUsers(users []domain.User, query string) []domain.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users
	}
	var out []domain.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(domain.StringValue(u.Department)), q) {
			out = append(out, u)
		}
	}
	return out
}
