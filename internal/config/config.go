// ABOUTME: Configuration loading and parsing for the botdesk console
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/botdesk/botdesk/internal/widget"
)

// Config represents the complete botdesk configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	BotAPI    BotAPIConfig    `yaml:"botapi"`
	Widget    WidgetConfig    `yaml:"widget"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TokenTTLRaw string `yaml:"token_ttl"`
}

// BotAPIConfig holds the upstream bot backend endpoints and timing
type BotAPIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	SocketURL    string        `yaml:"socket_url"`
	SendTimeout  time.Duration `yaml:"-"`
	CloseTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SendTimeoutRaw  string `yaml:"send_timeout"`
	CloseTimeoutRaw string `yaml:"close_timeout"`
}

// WidgetConfig holds widget tuning
type WidgetConfig struct {
	DedupWindow time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	DedupWindowRaw string `yaml:"dedup_window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
	if c.BotAPI.SendTimeout == 0 {
		c.BotAPI.SendTimeout = widget.DefaultSendTimeout
	}
	if c.Widget.DedupWindow == 0 {
		c.Widget.DedupWindow = widget.DefaultDedupWindow
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The server address is required unless Tailscale provides the listener
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.BotAPI.SendTimeoutRaw != "" {
		cfg.BotAPI.SendTimeout, err = time.ParseDuration(cfg.BotAPI.SendTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing send_timeout %q: %w", cfg.BotAPI.SendTimeoutRaw, err)
		}
	}

	if cfg.BotAPI.CloseTimeoutRaw != "" {
		cfg.BotAPI.CloseTimeout, err = time.ParseDuration(cfg.BotAPI.CloseTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing close_timeout %q: %w", cfg.BotAPI.CloseTimeoutRaw, err)
		}
	}

	if cfg.Widget.DedupWindowRaw != "" {
		cfg.Widget.DedupWindow, err = time.ParseDuration(cfg.Widget.DedupWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing dedup_window %q: %w", cfg.Widget.DedupWindowRaw, err)
		}
	}

	return nil
}
