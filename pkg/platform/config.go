// Package platform wires the answer engine, the plugin service and their
// HTTP and MCP surfaces together from one configuration file.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wsf"
)

// Answer store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Server transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the complete platform configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Answers  AnswersConfig  `yaml:"answers"`
	Audit    AuditConfig    `yaml:"audit"`
	Auth     AuthConfig     `yaml:"auth"`
	Plugins  PluginsConfig  `yaml:"plugins"`
}

// ServerConfig configures the MCP and HTTP server.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Description     string        `yaml:"description"`
	Transport       string        `yaml:"transport"` // "stdio", "http"
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PromptsDir      string        `yaml:"prompts_dir"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// DatabaseConfig configures the platform the model queries run on.
type DatabaseConfig struct {
	Platform        string        `yaml:"platform"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ModelConfig locates the model definition.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// AnswersConfig configures answer persistence.
type AnswersConfig struct {
	Store         string `yaml:"store"` // "memory", "postgres"
	DSN           string `yaml:"dsn"`
	Migrate       bool   `yaml:"migrate"`
	RetentionDays int    `yaml:"retention_days"`
}

// AuditConfig configures the MCP tool call audit trail. The postgres
// store shares the answer store's database.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Store         string `yaml:"store"` // "memory", "postgres"
	Capacity      int    `yaml:"capacity"`
	RetentionDays int    `yaml:"retention_days"`
}

// AuthConfig configures the login cookie check.
type AuthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	CookieName string `yaml:"cookie_name"`
}

// PluginsConfig configures the WSF plugins.
type PluginsConfig struct {
	// ProjectID is sent with every plugin request.
	ProjectID string `yaml:"project_id"`

	// Definitions maps plugin names to their kind and settings.
	Definitions map[string]PluginConfig `yaml:"definitions"`
}

// PluginConfig configures one plugin.
type PluginConfig struct {
	Kind           string   `yaml:"kind"`
	Command        []string `yaml:"command"`
	Timeout        string   `yaml:"timeout"`
	Columns        []string `yaml:"columns"`
	RequiredParams []string `yaml:"required_params"`
	ParamPrefix    *string  `yaml:"param_prefix"`
}

// settings returns the factory configuration map.
func (p PluginConfig) settings() map[string]any {
	m := map[string]any{
		"command":         p.Command,
		"columns":         p.Columns,
		"required_params": p.RequiredParams,
	}
	if p.Timeout != "" {
		m["timeout"] = p.Timeout
	}
	if p.ParamPrefix != nil {
		m["param_prefix"] = *p.ParamPrefix
	}
	return m
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "wdk-server"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 25 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Answers.Store == "" {
		cfg.Answers.Store = StoreMemory
	}
	if cfg.Answers.Store == StorePostgres && cfg.Answers.DSN == "" && cfg.Database.Platform == dbms.PlatformPostgres {
		cfg.Answers.DSN = cfg.Database.DSN
	}
	if cfg.Audit.Store == "" {
		cfg.Audit.Store = StoreMemory
	}
	for name, p := range cfg.Plugins.Definitions {
		if p.Kind == "" {
			p.Kind = wsf.KindCommand
			cfg.Plugins.Definitions[name] = p
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Transport != TransportStdio && c.Server.Transport != TransportHTTP {
		errs = append(errs, fmt.Sprintf("server.transport must be %s or %s", TransportStdio, TransportHTTP))
	}
	if !slices.Contains(dbms.DialectNames(), c.Database.Platform) {
		errs = append(errs, fmt.Sprintf("database.platform must be one of %s", strings.Join(dbms.DialectNames(), ", ")))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Model.Path == "" {
		errs = append(errs, "model.path is required")
	}

	switch c.Answers.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Answers.DSN == "" {
			errs = append(errs, "answers.dsn is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("answers.store must be %s or %s", StoreMemory, StorePostgres))
	}
	if c.Answers.RetentionDays < 0 {
		errs = append(errs, "answers.retention_days may not be negative")
	}

	if c.Audit.Enabled {
		switch c.Audit.Store {
		case StoreMemory:
		case StorePostgres:
			if c.Answers.Store != StorePostgres {
				errs = append(errs, "audit.store postgres requires answers.store postgres")
			}
		default:
			errs = append(errs, fmt.Sprintf("audit.store must be %s or %s", StoreMemory, StorePostgres))
		}
		if c.Audit.Capacity < 0 || c.Audit.RetentionDays < 0 {
			errs = append(errs, "audit.capacity and audit.retention_days may not be negative")
		}
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		errs = append(errs, "auth.secret is required when auth is enabled")
	}

	names := make([]string, 0, len(c.Plugins.Definitions))
	for name := range c.Plugins.Definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p := c.Plugins.Definitions[name]
		if p.Kind == wsf.KindCommand && len(p.Command) == 0 {
			errs = append(errs, fmt.Sprintf("plugins.definitions.%s.command is required", name))
		}
		if len(p.Columns) == 0 {
			errs = append(errs, fmt.Sprintf("plugins.definitions.%s.columns is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
