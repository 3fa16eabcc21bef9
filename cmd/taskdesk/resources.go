package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskdesk/internal/app"
	"taskdesk/internal/domain"
	"taskdesk/internal/remote"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks on the tasks service",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskSearchCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskCompleteCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskExportURLCmd())
	return task
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(func(c app.Clients) error {
				tasks, err := c.Tasks.List(cmd.Context())
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
}

func taskSearchCmd() *cobra.Command {
	var f domain.TaskFilter
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search tasks by text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(func(c app.Clients) error {
				tasks, err := c.Tasks.Search(cmd.Context(), f)
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "search text")
	cmd.Flags().BoolVar(&f.OnlyIncomplete, "only-incomplete", false, "exclude completed tasks")
	return cmd
}

type taskFlags struct {
	title       string
	description string
	assigneeID  int64
	priority    int
	due         string
	category    string
}

func (tf *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tf.title, "title", "", "task title")
	cmd.Flags().StringVar(&tf.description, "description", "", "task description")
	cmd.Flags().Int64Var(&tf.assigneeID, "assignee-id", 0, "assigned user id (0 for none)")
	cmd.Flags().IntVar(&tf.priority, "priority", int(domain.PriorityMedium), "0 low, 1 medium, 2 high")
	cmd.Flags().StringVar(&tf.due, "due", "", "due date (YYYY-MM-DD, empty for none)")
	cmd.Flags().StringVar(&tf.category, "category", "", "category")
}

// apply copies the flags the user set onto in.
func (tf *taskFlags) apply(cmd *cobra.Command, in *domain.TaskInput) error {
	set := cmd.Flags().Changed
	if set("title") {
		in.Title = tf.title
	}
	if set("description") {
		in.Description = domain.OptionalString(tf.description)
	}
	if set("assignee-id") {
		in.AssigneeID = nil
		if tf.assigneeID > 0 {
			id := tf.assigneeID
			in.AssigneeID = &id
		}
	}
	if set("priority") || in.Priority == nil {
		p := int(domain.ResolvePriority(&tf.priority))
		in.Priority = &p
	}
	if set("due") {
		in.DueDate = nil
		if tf.due != "" {
			d, err := domain.ParseDate(tf.due)
			if err != nil {
				return err
			}
			in.DueDate = &d
		}
	}
	if set("category") {
		in.Category = domain.OptionalString(tf.category)
	}
	return nil
}

func taskCreateCmd() *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in domain.TaskInput
			if err := tf.apply(cmd, &in); err != nil {
				return err
			}
			if err := in.Validate(); err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				t, err := c.Tasks.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	tf.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a task, keeping the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				current, err := findTask(cmd.Context(), c.Tasks, id)
				if err != nil {
					return err
				}
				in := current.Input()
				if err := tf.apply(cmd, &in); err != nil {
					return err
				}
				if err := in.Validate(); err != nil {
					return err
				}
				t, err := c.Tasks.Update(cmd.Context(), id, in)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed (or pending with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				current, err := findTask(cmd.Context(), c.Tasks, id)
				if err != nil {
					return err
				}
				in := current.Input()
				in.IsCompleted = !undo
				t, err := c.Tasks.Update(cmd.Context(), id, in)
				if err != nil {
					return err
				}
				return printTasks([]domain.Task{t})
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the task pending again")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				if err := c.Tasks.Delete(cmd.Context(), id); err != nil {
					return err
				}
				return printDeleted("task", id)
			})
		},
	}
}

func taskExportURLCmd() *cobra.Command {
	var f domain.TaskFilter
	var csv bool
	cmd := &cobra.Command{
		Use:   "export-url",
		Short: "Print the download URL of a task export",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(func(c app.Clients) error {
				format := remote.ExportSpreadsheet
				if csv {
					format = remote.ExportCSV
				}
				u := c.Tasks.ExportURL(f, format)
				if viper.GetBool("json") {
					return printJSON(map[string]string{"url": u, "format": string(format)})
				}
				fmt.Println(u)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "search text")
	cmd.Flags().BoolVar(&f.OnlyIncomplete, "only-incomplete", false, "exclude completed tasks")
	cmd.Flags().BoolVar(&csv, "csv", false, "CSV instead of a spreadsheet")
	return cmd
}

func findTask(ctx context.Context, tasks *remote.TasksClient, id int64) (domain.Task, error) {
	all, err := tasks.List(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, fmt.Errorf("task %d not found", id)
}

func printTasks(tasks []domain.Task) error {
	if viper.GetBool("json") {
		return printJSON(tasks)
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Assignee", "Priority", "Due", "Category"})
	for _, task := range tasks {
		status := "Pending"
		if task.IsCompleted {
			status = "Completed"
		}
		assignee := ""
		if task.Assignee != nil {
			assignee = task.Assignee.Name
		}
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.String()
		}
		t.AppendRow(table.Row{task.ID, task.Title, status, assignee, task.PriorityInfo().Label, due, deref(task.Category)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d task(s)", len(tasks))})
	t.Render()
	return nil
}

func userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage users on the people service",
	}
	user.AddCommand(userListCmd())
	user.AddCommand(userCreateCmd())
	user.AddCommand(userUpdateCmd())
	user.AddCommand(userDeleteCmd())
	return user
}

func userListCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(func(c app.Clients) error {
				list := c.Users.List
				if active {
					list = c.Users.ListActive
				}
				users, err := list(cmd.Context())
				if err != nil {
					return err
				}
				return printUsers(users)
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only active users")
	return cmd
}

type userFlags struct {
	name       string
	email      string
	department string
	inactive   bool
}

func (uf *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&uf.name, "name", "", "full name")
	cmd.Flags().StringVar(&uf.email, "email", "", "email address")
	cmd.Flags().StringVar(&uf.department, "department", "", "department")
	cmd.Flags().BoolVar(&uf.inactive, "inactive", false, "mark the user inactive")
}

func (uf *userFlags) apply(cmd *cobra.Command, in *domain.UserInput) {
	set := cmd.Flags().Changed
	if set("name") {
		in.Name = uf.name
	}
	if set("email") {
		in.Email = uf.email
	}
	if set("department") {
		in.Department = domain.OptionalString(uf.department)
	}
	if set("inactive") {
		in.IsActive = !uf.inactive
	}
}

func userCreateCmd() *cobra.Command {
	var uf userFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := domain.UserInput{IsActive: true}
			uf.apply(cmd, &in)
			if err := in.Validate(); err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				u, err := c.Users.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printUsers([]domain.User{u})
			})
		},
	}
	uf.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var uf userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a user, keeping the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				users, err := c.Users.List(cmd.Context())
				if err != nil {
					return err
				}
				var current *domain.User
				for i := range users {
					if users[i].ID == id {
						current = &users[i]
						break
					}
				}
				if current == nil {
					return fmt.Errorf("user %d not found", id)
				}
				in := current.Input()
				uf.apply(cmd, &in)
				if err := in.Validate(); err != nil {
					return err
				}
				u, err := c.Users.Update(cmd.Context(), id, in)
				if err != nil {
					return err
				}
				return printUsers([]domain.User{u})
			})
		},
	}
	uf.register(cmd)
	return cmd
}

func userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				if err := c.Users.Delete(cmd.Context(), id); err != nil {
					return err
				}
				return printDeleted("user", id)
			})
		},
	}
}

func printUsers(users []domain.User) error {
	if viper.GetBool("json") {
		return printJSON(users)
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Email", "Department", "Active", "Tasks"})
	for _, u := range users {
		t.AppendRow(table.Row{u.ID, u.Name, u.Email, deref(u.Department), u.IsActive, u.AssignedTaskCount()})
	}
	t.Render()
	return nil
}

func commentCmd() *cobra.Command {
	comment := &cobra.Command{
		Use:   "comment",
		Short: "Manage task comments on the people service",
	}
	comment.AddCommand(commentListCmd())
	comment.AddCommand(commentAddCmd())
	comment.AddCommand(commentDeleteCmd())
	return comment
}

func commentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List the comments on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				comments, err := c.Comments.ListByTask(cmd.Context(), taskID)
				if err != nil {
					return err
				}
				return printComments(comments)
			})
		},
	}
}

func commentAddCmd() *cobra.Command {
	var content string
	var userID int64
	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := domain.CommentInput{Content: content, TaskItemID: taskID}
			if userID > 0 {
				in.CreatedByUserID = &userID
			}
			if err := in.Validate(); err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				created, err := c.Comments.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printComments([]domain.Comment{created})
			})
		},
	}
	cmd.Flags().StringVarP(&content, "content", "m", "", "comment text")
	cmd.Flags().Int64Var(&userID, "user-id", 0, "author user id (0 for anonymous)")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func commentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClients(func(c app.Clients) error {
				if err := c.Comments.Delete(cmd.Context(), id); err != nil {
					return err
				}
				return printDeleted("comment", id)
			})
		},
	}
}

func printComments(comments []domain.Comment) error {
	if viper.GetBool("json") {
		return printJSON(comments)
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Author", "Posted", "Content"})
	for _, c := range comments {
		posted := c.CreatedAt.Format("2006-01-02 15:04")
		if c.IsEdited() {
			posted += " (edited)"
		}
		t.AppendRow(table.Row{c.ID, c.AuthorName(), posted, c.Content})
	}
	t.Render()
	return nil
}

func printDeleted(kind string, id int64) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{"deleted": kind, "id": id})
	}
	fmt.Printf("deleted %s %d\n", kind, id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
