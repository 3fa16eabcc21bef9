package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

const taskColumns = `t.id,t.title,t.description,t.is_completed,t.assignee_id,t.priority,t.due_date,t.category,t.created_at,u.name,u.email`

const taskFrom = ` FROM tasks t LEFT JOIN users u ON u.id = t.assignee_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                          domain.Task
		desc, due, category        sql.NullString
		assigneeName, assigneeMail sql.NullString
		assignee, priority         sql.NullInt64
		createdAt                  string
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &t.IsCompleted, &assignee, &priority, &due, &category, &createdAt, &assigneeName, &assigneeMail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	t.Description = stringPtr(desc)
	t.Category = stringPtr(category)
	if assignee.Valid {
		id := assignee.Int64
		t.AssigneeID = &id
		if assigneeName.Valid {
			t.Assignee = &domain.UserRef{ID: id, Name: assigneeName.String, Email: assigneeMail.String}
		}
	}
	if priority.Valid {
		p := int(priority.Int64)
		t.Priority = &p
	}
	if due.Valid {
		d, err := domain.ParseDate(due.String)
		if err != nil {
			return t, fmt.Errorf("task %d: %w", t.ID, err)
		}
		t.DueDate = &d
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return t, fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.CreatedAt = ts
	return t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListTasks returns tasks matching f, oldest first. Query matches title,
// description and category case-insensitively.
func (r Repo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.OnlyIncomplete {
		where = append(where, "t.is_completed = 0")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(lower(t.title) LIKE ? ESCAPE '\' OR lower(COALESCE(t.description,'')) LIKE ? ESCAPE '\' OR lower(COALESCE(t.category,'')) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	query := `SELECT ` + taskColumns + taskFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.id"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id=?`, id))
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, in domain.TaskInput, createdAt time.Time) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(title,description,is_completed,assignee_id,priority,due_date,category,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		in.Title, nullableStringPtr(in.Description), in.IsCompleted, nullableInt64Ptr(in.AssigneeID), nullableIntPtr(in.Priority), nullableDate(in.DueDate), nullableStringPtr(in.Category), formatTime(createdAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, id int64, in domain.TaskInput) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE tasks SET title=?,description=?,is_completed=?,assignee_id=?,priority=?,due_date=?,category=? WHERE id=?`,
		in.Title, nullableStringPtr(in.Description), in.IsCompleted, nullableInt64Ptr(in.AssigneeID), nullableIntPtr(in.Priority), nullableDate(in.DueDate), nullableStringPtr(in.Category), id)
	return affectedOne(res, err)
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	return affectedOne(res, err)
}

const userColumns = `id,name,email,department,is_active,created_at`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u          domain.User
		department sql.NullString
		createdAt  string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &department, &u.IsActive, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, err
	}
	u.Department = stringPtr(department)
	ts, err := parseTime(createdAt)
	if err != nil {
		return u, fmt.Errorf("user %d: %w", u.ID, err)
	}
	u.CreatedAt = ts
	return u, nil
}

// ListUsers returns users ordered by name, each with its assigned tasks.
func (r Repo) ListUsers(ctx context.Context, onlyActive bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if onlyActive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	assigned, err := r.assignedTasks(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].AssignedTasks = assigned[res[i].ID]
	}
	return res, nil
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id int64) (domain.User, error) {
	u, err := scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if err != nil {
		return u, err
	}
	assigned, err := r.assignedTasks(ctx, tx, id)
	if err != nil {
		return u, err
	}
	u.AssignedTasks = assigned[id]
	return u, nil
}

// assignedTasks maps assignee ids to their task summaries. A non-zero userID
// limits the lookup to that user.
func (r Repo) assignedTasks(ctx context.Context, tx *sql.Tx, userID int64) (map[int64][]domain.TaskRef, error) {
	query := `SELECT assignee_id,id,title FROM tasks WHERE assignee_id IS NOT NULL`
	var args []any
	if userID != 0 {
		query += ` AND assignee_id=?`
		args = append(args, userID)
	}
	rows, err := r.q(tx).QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[int64][]domain.TaskRef{}
	for rows.Next() {
		var owner int64
		var ref domain.TaskRef
		if err := rows.Scan(&owner, &ref.ID, &ref.Title); err != nil {
			return nil, err
		}
		res[owner] = append(res[owner], ref)
	}
	return res, rows.Err()
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, in domain.UserInput, createdAt time.Time) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO users(name,email,department,is_active,created_at) VALUES (?,?,?,?,?)`,
		in.Name, in.Email, nullableStringPtr(in.Department), in.IsActive, formatTime(createdAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateUser(ctx context.Context, tx *sql.Tx, id int64, in domain.UserInput) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE users SET name=?,email=?,department=?,is_active=? WHERE id=?`,
		in.Name, in.Email, nullableStringPtr(in.Department), in.IsActive, id)
	return affectedOne(res, err)
}

func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	return affectedOne(res, err)
}

const commentColumns = `c.id,c.content,c.task_item_id,c.created_by_user_id,u.name,c.created_at,c.updated_at`

const commentFrom = ` FROM comments c LEFT JOIN users u ON u.id = c.created_by_user_id`

func scanComment(row rowScanner) (domain.Comment, error) {
	var (
		c         domain.Comment
		author    sql.NullInt64
		name      sql.NullString
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Content, &c.TaskItemID, &author, &name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, ErrNotFound
		}
		return c, err
	}
	if author.Valid {
		id := author.Int64
		c.CreatedByUserID = &id
	}
	c.CreatedByUserName = stringPtr(name)
	ts, err := parseTime(createdAt)
	if err != nil {
		return c, fmt.Errorf("comment %d: %w", c.ID, err)
	}
	c.CreatedAt = ts
	if updatedAt.Valid {
		ts, err := parseTime(updatedAt.String)
		if err != nil {
			return c, fmt.Errorf("comment %d: %w", c.ID, err)
		}
		c.UpdatedAt = &ts
	}
	return c, nil
}

// ListComments returns the comments of a task, oldest first.
func (r Repo) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+commentColumns+commentFrom+` WHERE c.task_item_id=? ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) GetComment(ctx context.Context, tx *sql.Tx, id int64) (domain.Comment, error) {
	return scanComment(r.q(tx).QueryRowContext(ctx, `SELECT `+commentColumns+commentFrom+` WHERE c.id=?`, id))
}

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, in domain.CommentInput, createdAt time.Time) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO comments(content,task_item_id,created_by_user_id,created_at) VALUES (?,?,?,?)`,
		in.Content, in.TaskItemID, nullableInt64Ptr(in.CreatedByUserID), formatTime(createdAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) DeleteComment(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (domain.Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return domain.Timestamp{}, err
	}
	return domain.NewTimestamp(t), nil
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableStringPtr(v *string) any {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
