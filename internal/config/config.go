package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "taskdesk.yml"

// Config models taskdesk.yml.
type Config struct {
	Services struct {
		Tasks  Service `yaml:"tasks"`
		People Service `yaml:"people"`
		// Token is sent as a bearer token to both services when set.
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"services"`
	Console struct {
		Addr            string        `yaml:"addr"`
		NotificationTTL time.Duration `yaml:"notification_ttl"`
		SessionTTL      time.Duration `yaml:"session_ttl"`
	} `yaml:"console"`
}

// Service is one remote origin. BaseURL includes the API prefix, e.g.
// http://localhost:5050/api.
type Service struct {
	BaseURL string `yaml:"base_url"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := validateBaseURL("services.tasks.base_url", c.Services.Tasks.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("services.people.base_url", c.Services.People.BaseURL); err != nil {
		return err
	}
	if c.Services.Timeout < 0 {
		return fmt.Errorf("services.timeout must not be negative")
	}
	if strings.TrimSpace(c.Console.Addr) == "" {
		return fmt.Errorf("console.addr is required")
	}
	if c.Console.NotificationTTL <= 0 {
		return fmt.Errorf("console.notification_ttl must be positive")
	}
	if c.Console.SessionTTL <= 0 {
		return fmt.Errorf("console.session_ttl must be positive")
	}
	return nil
}

func validateBaseURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("config.%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config.%s is invalid: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config.%s must be an http(s) URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("config.%s is missing a host", field)
	}
	return nil
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, DefaultFileName)
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type fileServices struct {
	Tasks   Service `yaml:"tasks"`
	People  Service `yaml:"people"`
	Token   string  `yaml:"token"`
	Timeout string  `yaml:"timeout"`
}

type fileConsole struct {
	Addr            string `yaml:"addr"`
	NotificationTTL string `yaml:"notification_ttl"`
	SessionTTL      string `yaml:"session_ttl"`
}

// MarshalYAML writes durations as strings ("10s"); yaml.v3 will not read a
// bare integer back into a time.Duration.
func (c Config) MarshalYAML() (any, error) {
	return struct {
		Services fileServices `yaml:"services"`
		Console  fileConsole  `yaml:"console"`
	}{
		Services: fileServices{
			Tasks:   c.Services.Tasks,
			People:  c.Services.People,
			Token:   c.Services.Token,
			Timeout: c.Services.Timeout.String(),
		},
		Console: fileConsole{
			Addr:            c.Console.Addr,
			NotificationTTL: c.Console.NotificationTTL.String(),
			SessionTTL:      c.Console.SessionTTL.String(),
		},
	}, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const defaultTemplate = `services:
  tasks:
    base_url: http://localhost:5050/api
  people:
    base_url: http://localhost:5000/api
  token: ""
  timeout: 10s

console:
  addr: 127.0.0.1:8080
  notification_ttl: 3s
  session_ttl: 30m
`
