package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/router-for-me/RelayStationHub/internal/security"
)

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "stationhub.db"

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// buildSQLiteDSN constructs a SQLite DSN with the driver's pragma
// parameters for WAL journaling and foreign keys.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
	}, "&")
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host          string    `yaml:"host"`
	Port          int       `yaml:"port"`
	DatabaseDSN   string    `yaml:"database-dsn"`
	Debug         bool      `yaml:"debug"`
	LoggingToFile bool      `yaml:"logging-to-file"`
	JWT           jwtCfg    `yaml:"jwt"`
	Claude        claudeCfg `yaml:"claude"`
	SupervisorURL string    `yaml:"supervisor-url"`
	Auth          authCfg   `yaml:"auth"`
	TLS           tlsCfg    `yaml:"tls"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// claudeCfg holds the Claude Code file paths for the generated config
// file. Empty values fall back to ~/.claude at load time.
type claudeCfg struct {
	SettingsPath  string `yaml:"settings-path"`
	ProvidersPath string `yaml:"providers-path"`
}

// authCfg holds admin auth settings for the generated config file. An
// empty password hash leaves the API open.
type authCfg struct {
	PasswordHash string `yaml:"password-hash"`
}

// tlsCfg holds TLS settings for the generated config file.
type tlsCfg struct {
	Enable bool   `yaml:"enable"`
	Cert   string `yaml:"cert"`
	Key    string `yaml:"key"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() string {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "change-me-to-a-secure-random-string"
	}
	return secret
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	cfg := configFile{
		Host:          "",
		Port:          port,
		DatabaseDSN:   dsn,
		Debug:         false,
		LoggingToFile: false,
		JWT: jwtCfg{
			Secret: generateJWTSecret(),
			Expiry: "720h",
		},
		TLS: tlsCfg{
			Enable: false,
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// EnsureConfig generates a default config file on first run: a SQLite
// database next to the config and a fresh JWT secret. An existing file is
// left alone.
func EnsureConfig(configPath string, port int) error {
	if ConfigExists(configPath) {
		return nil
	}
	dbPath := filepath.Join(filepath.Dir(configPath), defaultSQLitePath)
	dsn := buildSQLiteDSN(dbPath)
	if errWrite := WriteConfigFile(configPath, dsn, port); errWrite != nil {
		return errWrite
	}
	log.Infof("config not found, generated default at %s", configPath)
	return nil
}
