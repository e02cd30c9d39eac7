package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything mediakit reads from config.toml.
type Config struct {
	Storage  Storage
	History  History
	Autosave Autosave
	Backup   Backup
	Watch    Watch
	Log      Log
}

type Storage struct {
	Driver        string // sqlite | mysql | postgres | mongodb
	DSN           string
	MongoDatabase string
}

type History struct {
	Limit int
}

type Autosave struct {
	Enabled          bool
	Debounce         time.Duration
	MaxDocumentBytes int
}

type Backup struct {
	Schedule string // cron spec; empty disables scheduled snapshots
	Keep     int
}

type Watch struct {
	Dir string // empty disables the import watcher
}

type Log struct {
	Level       string
	Development bool
}

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

const (
	defaultConfigPath       = "~/.config/mediakit/config.toml"
	defaultSQLitePath       = "~/.local/share/mediakit/mediakit.db"
	defaultMongoDatabase    = "mediakit"
	defaultHistoryLimit     = 50
	defaultDebounce         = time.Second
	defaultMaxDocumentBytes = 1 << 20
	defaultBackupSchedule   = "@hourly"
	defaultBackupKeep       = 20
	defaultLogLevel         = "info"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver:        DriverSQLite,
			DSN:           mustExpand(defaultSQLitePath),
			MongoDatabase: defaultMongoDatabase,
		},
		History: History{Limit: defaultHistoryLimit},
		Autosave: Autosave{
			Enabled:          true,
			Debounce:         defaultDebounce,
			MaxDocumentBytes: defaultMaxDocumentBytes,
		},
		Backup: Backup{Schedule: defaultBackupSchedule, Keep: defaultBackupKeep},
		Log:    Log{Level: defaultLogLevel},
	}
}

// fileConfig mirrors the TOML layout. Pointers tell "absent" from "zero".
type fileConfig struct {
	Storage struct {
		Driver        string `toml:"driver"`
		DSN           string `toml:"dsn"`
		MongoDatabase string `toml:"mongo_database"`
	} `toml:"storage"`
	History struct {
		Limit *int `toml:"limit"`
	} `toml:"history"`
	Autosave struct {
		Enabled          *bool  `toml:"enabled"`
		Debounce         string `toml:"debounce"`
		MaxDocumentBytes *int   `toml:"max_document_bytes"`
	} `toml:"autosave"`
	Backup struct {
		Schedule *string `toml:"schedule"`
		Keep     *int    `toml:"keep"`
	} `toml:"backup"`
	Watch struct {
		Dir string `toml:"dir"`
	} `toml:"watch"`
	Log struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. An empty path means the default location.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if d := strings.ToLower(strings.TrimSpace(raw.Storage.Driver)); d != "" {
		cfg.Storage.Driver = d
	}
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres, DriverMongo:
	default:
		return Config{}, fmt.Errorf("storage.driver: unsupported driver %q", cfg.Storage.Driver)
	}
	if dsn := strings.TrimSpace(raw.Storage.DSN); dsn != "" {
		cfg.Storage.DSN = dsn
	} else if cfg.Storage.Driver != DriverSQLite {
		return Config{}, fmt.Errorf("storage.dsn is required for driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == DriverSQLite {
		cfg.Storage.DSN = mustExpand(cfg.Storage.DSN)
	}
	if db := strings.TrimSpace(raw.Storage.MongoDatabase); db != "" {
		cfg.Storage.MongoDatabase = db
	}

	if raw.History.Limit != nil {
		if *raw.History.Limit <= 0 {
			return Config{}, fmt.Errorf("history.limit must be positive, got %d", *raw.History.Limit)
		}
		cfg.History.Limit = *raw.History.Limit
	}

	if raw.Autosave.Enabled != nil {
		cfg.Autosave.Enabled = *raw.Autosave.Enabled
	}
	if d := strings.TrimSpace(raw.Autosave.Debounce); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return Config{}, fmt.Errorf("autosave.debounce: %w", err)
		}
		cfg.Autosave.Debounce = parsed
	}
	if raw.Autosave.MaxDocumentBytes != nil {
		cfg.Autosave.MaxDocumentBytes = *raw.Autosave.MaxDocumentBytes
	}

	if raw.Backup.Schedule != nil {
		cfg.Backup.Schedule = strings.TrimSpace(*raw.Backup.Schedule)
	}
	if raw.Backup.Keep != nil {
		cfg.Backup.Keep = *raw.Backup.Keep
	}

	if dir := strings.TrimSpace(raw.Watch.Dir); dir != "" {
		cfg.Watch.Dir = mustExpand(dir)
	}

	if lvl := strings.TrimSpace(raw.Log.Level); lvl != "" {
		cfg.Log.Level = strings.ToLower(lvl)
	}
	cfg.Log.Development = raw.Log.Development

	return cfg, nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
