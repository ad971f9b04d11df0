// Package config provides application configuration management with support for environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	domainerrors "github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/validation"
)

// Catalog sources.
const (
	SourceXML      = "xml"
	SourceCSV      = "csv"
	SourceSnapshot = "snapshot"
	SourceBadger   = "badger"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Catalog CatalogConfig
	Report  ReportConfig
	Data    DataConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" validate:"required,oneof=debug info warn warning error"`
}

// CatalogConfig selects the catalog the report reads.
type CatalogConfig struct {
	Source string `env:"CATALOG_SOURCE" validate:"required,oneof=xml csv snapshot badger"`
	// Path is the export file, snapshot database or mirror directory.
	// Empty means the default for the source; csv has none.
	Path string `env:"CATALOG_PATH" validate:"required_if=Source csv"`
	// SnapshotDate picks a day from snapshot history (latest when empty).
	SnapshotDate string `env:"CATALOG_SNAPSHOT_DATE" validate:"omitempty,datetime=2006-01-02"`
}

// ReportConfig holds report rendering configuration.
type ReportConfig struct {
	Limit int `env:"REPORT_LIMIT" validate:"gte=1,lte=1000"`
}

// DataConfig holds where loaded snapshots are kept.
type DataConfig struct {
	Path string `env:"DATA_PATH" validate:"required"`
}

// SnapshotDBPath is the default snapshot history database.
func (d DataConfig) SnapshotDBPath() string {
	return filepath.Join(d.Path, "snapshots.db")
}

// MirrorPath is the default Badger library mirror.
func (d DataConfig) MirrorPath() string {
	return filepath.Join(d.Path, "library")
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Environment variables (highest priority).
// 2. .env file (path from ENV_FILE, default ".env").
// 3. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	// godotenv never overrides variables that are already set.
	envFile := getConfigValue("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.Validationf("cannot read env file %s", envFile).WithCause(err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: strings.ToLower(getConfigValue("LOG_LEVEL", "info")),
		},
		Catalog: CatalogConfig{
			Source:       strings.ToLower(getConfigValue("CATALOG_SOURCE", SourceXML)),
			Path:         getConfigValue("CATALOG_PATH", ""),
			SnapshotDate: getConfigValue("CATALOG_SNAPSHOT_DATE", ""),
		},
		Data: DataConfig{
			Path: getConfigValue("DATA_PATH", ""),
		},
	}

	limit, err := getIntConfigValue("REPORT_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	cfg.Report.Limit = limit

	// Expand and default the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, domainerrors.Validationf("invalid DATA_PATH").WithCause(err)
	}

	// Expand the catalog path and fill in the per-source default.
	if err := cfg.expandCatalogPath(); err != nil {
		return nil, domainerrors.Validationf("invalid CATALOG_PATH").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/LibraryReport.
func (c *Config) expandDataPath() error {
	defaultPath := ""
	if c.Data.Path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, "LibraryReport")
	}

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}

// expandCatalogPath expands ~ and makes the path absolute. An empty path
// becomes the default for snapshot and badger sources; xml keeps it empty
// so the library export is located at open time.
func (c *Config) expandCatalogPath() error {
	var defaultPath string
	switch c.Catalog.Source {
	case SourceSnapshot:
		defaultPath = c.Data.SnapshotDBPath()
	case SourceBadger:
		defaultPath = c.Data.MirrorPath()
	}

	expanded, err := expandPath(c.Catalog.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Catalog.Path = expanded
	return nil
}

// getConfigValue returns the env var when set and non-empty, else the default.
func getConfigValue(envKey, defaultValue string) string {
	if envValue := strings.TrimSpace(os.Getenv(envKey)); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from env var or default.
// A value that is set but not an integer is a Validation error.
func getIntConfigValue(envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, domainerrors.Validationf("invalid configuration: %s must be an integer, got %q", envKey, strValue)
	}
	return result, nil
}
