package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"taskdesk/internal/app"
	"taskdesk/internal/config"
	"taskdesk/internal/db"
	"taskdesk/internal/domain"
	"taskdesk/internal/engine"
	"taskdesk/internal/migrate"
	"taskdesk/internal/server"
)

const envPrefix = "TASKDESK"

var rootCmd = &cobra.Command{
	Use:   "taskdesk",
	Short: "Taskdesk console and CLI",
	Long: `Taskdesk is a browser console for a task tracker backed by two REST services:
- Tasks service: tasks, search and spreadsheet/CSV exports.
- People service: users and the comments on tasks.
'taskdesk serve' runs the console; 'taskdesk dev-backend' runs a local stand-in
for both services. The task, user and comment commands talk to the services
directly.`,
	SilenceUsage: true,
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", config.Path(""), "config file")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("tasks-url", "", "tasks service base URL (overrides config)")
	rootCmd.PersistentFlags().String("people-url", "", "people service base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "bearer token for both services (overrides config)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("tasks-url", rootCmd.PersistentFlags().Lookup("tasks-url"))
	_ = viper.BindPFlag("people-url", rootCmd.PersistentFlags().Lookup("people-url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(devBackendCmd())
	rootCmd.AddCommand(devTokenCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(commentCmd())
}

// loadConfig reads the config file and applies flag and environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("tasks-url"); v != "" {
		cfg.Services.Tasks.BaseURL = v
	}
	if v := viper.GetString("people-url"); v != "" {
		cfg.Services.People.BaseURL = v
	}
	if v := viper.GetString("token"); v != "" {
		cfg.Services.Token = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Console.Addr = addr
			}
			handler, err := app.NewConsole(cfg, log.Default())
			if err != nil {
				return err
			}
			fmt.Printf("Serving console on http://%s (tasks: %s, people: %s)\n",
				cfg.Console.Addr, cfg.Services.Tasks.BaseURL, cfg.Services.People.BaseURL)
			return listen(cmd.Context(), cfg.Console.Addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides console.addr)")
	return cmd
}

func devBackendCmd() *cobra.Command {
	var addr, path string
	var seed bool
	cmd := &cobra.Command{
		Use:   "dev-backend",
		Short: "Run a local stand-in for the tasks and people services",
		Long: `Serves the tasks, users and comments endpoints under /api from one SQLite
store. Point both services.tasks.base_url and services.people.base_url at it.
Bearer auth is enforced when TASKDESK_JWT_SECRET (or --jwt-secret) is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Path: path})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			e := engine.New(conn)
			if seed {
				if err := seedSample(cmd.Context(), e); err != nil {
					return err
				}
			}
			handler, err := server.New(server.Config{
				Engine: e,
				Auth:   server.AuthConfig{JWTSecret: jwtSecret(cmd)},
			})
			if err != nil {
				return err
			}
			fmt.Printf("Serving local API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, server.DefaultBasePath, server.DefaultBasePath)
			return listen(cmd.Context(), addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5050", "listen address")
	cmd.Flags().StringVar(&path, "db", db.Memory, "SQLite database file")
	cmd.Flags().BoolVar(&seed, "seed", false, "insert sample users and tasks")
	cmd.Flags().String("jwt-secret", "", "HS256 secret; enables bearer auth")
	return cmd
}

func devTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	var save bool
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Mint a bearer token for a dev-backend started with a JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := server.IssueToken(jwtSecret(cmd), subject, ttl, time.Now())
			if err != nil {
				return err
			}
			if save {
				if err := setEnvValue(".env", envPrefix+"_TOKEN", token); err != nil {
					return err
				}
				fmt.Println("saved TASKDESK_TOKEN to .env")
				return nil
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "console", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "write the token to .env as TASKDESK_TOKEN")
	cmd.Flags().String("jwt-secret", "", "HS256 secret shared with dev-backend")
	return cmd
}

// jwtSecret prefers the command's --jwt-secret flag over TASKDESK_JWT_SECRET.
func jwtSecret(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("jwt-secret"); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString("jwt-secret")
}

func seedSample(ctx context.Context, e engine.Engine) error {
	people := []domain.UserInput{
		{Name: "Ana Lima", Email: "ana@example.com", Department: domain.OptionalString("Engineering"), IsActive: true},
		{Name: "Ben Okafor", Email: "ben@example.com", Department: domain.OptionalString("Design"), IsActive: true},
		{Name: "Chen Wei", Email: "chen@example.com", IsActive: false},
	}
	var ids []int64
	for _, in := range people {
		u, err := e.CreateUser(ctx, in)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", in.Name, err)
		}
		ids = append(ids, u.ID)
	}
	high, low := int(domain.PriorityHigh), int(domain.PriorityLow)
	due := domain.DateOf(time.Now().AddDate(0, 0, 7))
	tasks := []domain.TaskInput{
		{Title: "Prepare release notes", Category: domain.OptionalString("Work"), Priority: &high, AssigneeID: &ids[0], DueDate: &due},
		{Title: "Review onboarding flow", Description: domain.OptionalString("Check the new signup screens"), AssigneeID: &ids[1]},
		{Title: "Water the plants", Priority: &low, IsCompleted: true},
	}
	for _, in := range tasks {
		if _, err := e.CreateTask(ctx, in); err != nil {
			return fmt.Errorf("seed task %s: %w", in.Title, err)
		}
	}
	return nil
}

func listen(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage taskdesk.yml",
		Long:  "The config file names the two service origins, the bearer token, and console settings. Missing keys fall back to the defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force, effective bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if effective {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
			} else if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&effective, "effective", false, "write the config with flag and environment overrides applied")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrYAML(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

// --- helpers ---

func withClients(fn func(app.Clients) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return fn(app.NewClients(cfg))
}

func printJSONOrYAML(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
