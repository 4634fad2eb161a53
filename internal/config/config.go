package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Auth    AuthConfig    `yaml:"auth"`
	Client  ClientConfig  `yaml:"client"`
	Mock    MockConfig    `yaml:"mock"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type CatalogConfig struct {
	// DataDir holds catalog.json; empty means the XDG state directory.
	DataDir string `yaml:"data_dir"`
	// Seed populates an empty catalog with sample titles.
	Seed bool `yaml:"seed"`
}

// UserConfig declares an account created at startup when missing.
type UserConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
	// FederatedTokens maps an identity-provider token to the email it vouches for.
	FederatedTokens map[string]string `yaml:"federated_tokens"`
	Users           []UserConfig      `yaml:"users"`
}

type ClientConfig struct {
	BaseURL         string        `yaml:"base_url"`
	WSURL           string        `yaml:"ws_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	FeedbackTimeout time.Duration `yaml:"feedback_timeout"`
	LogFile         string        `yaml:"log_file"`
}

type MockConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	// Email is the account whose list the simulator edits.
	Email string `yaml:"email"`
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Catalog: CatalogConfig{
			Seed: true,
		},
		Auth: AuthConfig{
			SessionTTL:      24 * time.Hour,
			FederatedTokens: map[string]string{},
		},
		Client: ClientConfig{
			BaseURL:         "http://127.0.0.1:8080",
			RequestTimeout:  10 * time.Second,
			FeedbackTimeout: 3 * time.Second,
			LogFile:         "streamverse.log",
		},
		Mock: MockConfig{
			Interval: 20 * time.Second,
		},
	}
}

// Validate rejects values the programs cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Client.FeedbackTimeout <= 0 {
		return fmt.Errorf("client.feedback_timeout must be positive")
	}
	if c.Mock.Enabled && c.Mock.Interval <= 0 {
		return fmt.Errorf("mock.interval must be positive when mock is enabled")
	}
	for i, u := range c.Auth.Users {
		if u.Email == "" || u.Password == "" {
			return fmt.Errorf("auth.users[%d]: email and password are required", i)
		}
	}
	return nil
}

// WebSocketURL returns the configured WebSocket URL, deriving it from BaseURL when unset.
func (c ClientConfig) WebSocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	return DeriveWSURL(c.BaseURL)
}
