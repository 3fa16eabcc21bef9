package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"taskdesk/internal/config"
	"taskdesk/internal/remote"
	"taskdesk/internal/render"
	"taskdesk/internal/shell"
	"taskdesk/internal/web"
)

// Clients are the resource clients for the two service origins: tasks on the
// tasks service; users and comments on the people service.
type Clients struct {
	Tasks    *remote.TasksClient
	Users    *remote.UsersClient
	Comments *remote.CommentsClient
}

func newClient(cfg *config.Config, baseURL string) *remote.Client {
	c := remote.New(baseURL)
	c.BearerToken = cfg.Services.Token
	if cfg.Services.Timeout > 0 {
		c.Timeout = cfg.Services.Timeout
	}
	c.HTTPClient = &http.Client{Timeout: c.Timeout}
	return c
}

// NewClients builds the resource clients described by cfg.
func NewClients(cfg *config.Config) Clients {
	tasks := newClient(cfg, cfg.Services.Tasks.BaseURL)
	people := newClient(cfg, cfg.Services.People.BaseURL)
	return Clients{
		Tasks:    remote.NewTasksClient(tasks),
		Users:    remote.NewUsersClient(people),
		Comments: remote.NewCommentsClient(people),
	}
}

// ShellFactory returns a constructor for initialized page sessions.
func ShellFactory(cfg *config.Config, clients Clients, logger *log.Logger) web.NewShell {
	renderer := render.New()
	return func(ctx context.Context) (*shell.Shell, error) {
		sh, err := shell.New(shell.Deps{
			Tasks:           clients.Tasks,
			Users:           clients.Users,
			Comments:        clients.Comments,
			NotificationTTL: cfg.Console.NotificationTTL,
			Renderer:        renderer,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		sh.Init(ctx)
		return sh, nil
	}
}

// NewConsole wires the browser console for cfg and returns its handler.
func NewConsole(cfg *config.Config, logger *log.Logger) (http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	sessions := web.NewSessions(cfg.Console.SessionTTL, ShellFactory(cfg, NewClients(cfg), logger))
	return web.New(web.Config{Sessions: sessions, Logger: logger}).Handler()
}
