package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the client, CLI and stub server
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	MailerSend MailerSendConfig `yaml:"mailersend"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration for the stub API
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server
func (c ServerConfig) Addr() string {
	return c.GetHost() + ":" + strconv.Itoa(c.Port)
}

// MailerSendConfig holds MailerSend API configuration
type MailerSendConfig struct {
	APIToken       string       `yaml:"api_token"`
	BaseURL        string       `yaml:"base_url"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	DefaultFrom    SenderConfig `yaml:"default_from"`
}

// SenderConfig is the sender used for emails created by the client
type SenderConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Timeout returns the configured timeout as a duration
func (c MailerSendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level            string `yaml:"level"`              // debug, info, warn, error
	DisableRedaction bool   `yaml:"disable_redaction"` // emails are redacted unless set
}

const (
	DefaultBaseURL        = "https://api.mailersend.com/v1"
	DefaultTimeoutSeconds = 30
)

// ErrMissingToken is returned by Validate when no API token is configured.
var ErrMissingToken = errors.New("mailersend api_token is required")

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.MailerSend.BaseURL == "" {
		cfg.MailerSend.BaseURL = DefaultBaseURL
	}
	cfg.MailerSend.BaseURL = strings.TrimRight(cfg.MailerSend.BaseURL, "/")
	if cfg.MailerSend.TimeoutSeconds == 0 {
		cfg.MailerSend.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so local development can keep the API token out of the yaml file.
// An empty path skips the yaml file and starts from defaults.
func LoadFromEnv(path string, envFiles ...string) (*Config, error) {
	// Missing .env files are fine; real env vars still apply
	_ = godotenv.Load(envFiles...)

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := os.Getenv("MAILERSEND_API_TOKEN"); v != "" {
		cfg.MailerSend.APIToken = v
	}
	if v := os.Getenv("MAILERSEND_BASE_URL"); v != "" {
		cfg.MailerSend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("MAILERSEND_FROM_EMAIL"); v != "" {
		cfg.MailerSend.DefaultFrom.Email = v
	}
	if v := os.Getenv("MAILERSEND_FROM_NAME"); v != "" {
		cfg.MailerSend.DefaultFrom.Name = v
	}
	if v := os.Getenv("MAILERSEND_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.MailerSend.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate checks the settings required to talk to the API
func (c *Config) Validate() error {
	if c.MailerSend.APIToken == "" {
		return ErrMissingToken
	}
	return nil
}
