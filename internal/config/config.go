package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
	EnvSettingsPath  = "CLAUDE_SETTINGS_PATH"
	EnvProvidersPath = "CLAUDE_PROVIDERS_PATH"
	EnvSupervisorURL = "SUPERVISOR_URL"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// TLSConfig holds the TLS listener settings.
type TLSConfig struct {
	Enable bool   `yaml:"enable"`
	Cert   string `yaml:"cert"`
	Key    string `yaml:"key"`
}

// ServerConfig holds the listener settings of the hub server.
type ServerConfig struct {
	Host          string    `yaml:"host"`
	Port          int       `yaml:"port"`
	Debug         bool      `yaml:"debug"`
	LoggingToFile bool      `yaml:"logging-to-file"`
	TLS           TLSConfig `yaml:"tls"`
}

// LoadServerConfig reads the listener settings from the YAML config file.
// A missing or unreadable file yields zero values for the caller to
// default.
func LoadServerConfig(configPath string) ServerConfig {
	var result ServerConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg ServerConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg
		}
	}
	return result
}

// HubConfig holds the switching and admin settings of the hub.
type HubConfig struct {
	SettingsPath      string
	ProvidersPath     string
	SupervisorURL     string
	AdminPasswordHash string
}

// LoadHubConfig loads hub settings from the YAML config file with
// environment overrides. Unset paths default to files under ~/.claude.
func LoadHubConfig(configPath string) (HubConfig, error) {
	// fileConfig maps the YAML fields needed for hub settings.
	type fileConfig struct {
		Claude struct {
			SettingsPath  string `yaml:"settings-path"`
			ProvidersPath string `yaml:"providers-path"`
		} `yaml:"claude"`
		SupervisorURL string `yaml:"supervisor-url"`
		Auth          struct {
			PasswordHash string `yaml:"password-hash"`
		} `yaml:"auth"`
	}

	var result HubConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result.SettingsPath = strings.TrimSpace(cfg.Claude.SettingsPath)
			result.ProvidersPath = strings.TrimSpace(cfg.Claude.ProvidersPath)
			result.SupervisorURL = strings.TrimSpace(cfg.SupervisorURL)
			result.AdminPasswordHash = strings.TrimSpace(cfg.Auth.PasswordHash)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvSettingsPath)); v != "" {
		result.SettingsPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProvidersPath)); v != "" {
		result.ProvidersPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSupervisorURL)); v != "" {
		result.SupervisorURL = v
	}

	if result.SettingsPath == "" {
		result.SettingsPath = defaultClaudePath("settings.json")
	}
	if result.ProvidersPath == "" {
		result.ProvidersPath = defaultClaudePath("providers.json")
	}
	return result, nil
}

// defaultClaudePath resolves a file name under the user's ~/.claude.
func defaultClaudePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", name)
	}
	return filepath.Join(home, ".claude", name)
}
