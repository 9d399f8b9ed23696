// Package config loads process configuration from the environment and opens
// the storage backend it selects.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/goliatone/go-staged/pkg/baseline"
	"github.com/goliatone/go-staged/pkg/storage"
	"github.com/goliatone/go-staged/pkg/storage/badger"
	"github.com/goliatone/go-staged/pkg/storage/sqlite"
)

// Storage drivers accepted by STAGED_STORAGE_DRIVER.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// ErrNoBaseline is returned when neither a URL nor a file is configured.
var ErrNoBaseline = errors.New("config: no baseline configured (set STAGED_BASELINE_URL or STAGED_BASELINE_FILE)")

type Config struct {
	BaselineURL   string        `env:"STAGED_BASELINE_URL"`
	BaselineFile  string        `env:"STAGED_BASELINE_FILE"`
	StorageDriver string        `env:"STAGED_STORAGE_DRIVER" envDefault:"file"`
	StoragePath   string        `env:"STAGED_STORAGE_PATH"   envDefault:".staged"`
	StorageKey    string        `env:"STAGED_STORAGE_KEY"    envDefault:"appState"`
	FetchTimeout  time.Duration `env:"STAGED_FETCH_TIMEOUT"  envDefault:"10s"`
	LogLevel      string        `env:"STAGED_LOG_LEVEL"      envDefault:"info"`
	Actor         string        `env:"STAGED_ACTOR"`
}

// Load parses the environment and checks the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverFile, DriverSQLite, DriverBadger:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("config: fetch timeout must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto slog.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}

// Source returns the configured baseline. A URL wins over a file.
func (c Config) Source() (baseline.Source, error) {
	switch {
	case strings.TrimSpace(c.BaselineURL) != "":
		return baseline.NewHTTPSource(c.BaselineURL, c.FetchTimeout), nil
	case strings.TrimSpace(c.BaselineFile) != "":
		return baseline.FileSource{Path: c.BaselineFile}, nil
	default:
		return nil, ErrNoBaseline
	}
}

// OpenStore opens the backend named by StorageDriver. Callers close it with
// storage.Close.
func OpenStore(cfg Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case DriverMemory:
		return storage.NewMemoryStore(), nil
	case DriverFile:
		return storage.NewFileStore(cfg.StoragePath)
	case DriverSQLite:
		path := cfg.StoragePath
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "staged.db")
		}
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return sqlite.Open(path)
	case DriverBadger:
		bcfg := badger.DefaultConfig(cfg.StoragePath)
		bcfg.Logger = logger
		return badger.Open(bcfg)
	default:
		return nil, fmt.Errorf("config: unknown storage driver %q", cfg.StorageDriver)
	}
}
