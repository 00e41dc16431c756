package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/activity/internal/feed"
)

// Default config file path.
const DefaultConfigPath = "~/.config/activity/config.yaml"

// Config holds all activity configuration.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Feed      FeedConfig      `yaml:"feed"`
	TopSites  TopSitesConfig  `yaml:"top_sites"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type RetentionConfig struct {
	Days int `yaml:"days"`
}

type CaptureConfig struct {
	DenylistDomains []string `yaml:"denylist_domains"`
	DenylistRegex   []string `yaml:"denylist_regex"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

// FeedConfig controls how the activity feed is built and shown.
type FeedConfig struct {
	// Length caps how many matching visits are grouped and shown.
	Length int `yaml:"length"`
	// DateKey is the timestamp visits are grouped by: last_visit or
	// bookmark_date.
	DateKey string `yaml:"date_key"`
	// Timezone decides calendar days. "Local" or an IANA zone name.
	Timezone string `yaml:"timezone"`
	// MaxPreviews limits inline media previews; negative is unlimited.
	MaxPreviews      int  `yaml:"max_previews"`
	ShowDateHeadings bool `yaml:"show_date_headings"`
	// MatchWorkers > 1 runs the query matcher concurrently.
	MatchWorkers int `yaml:"match_workers"`
	// Window is how many stored visits are loaded before filtering.
	Window int `yaml:"window"`
}

type TopSitesConfig struct {
	Length int `yaml:"length"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Location resolves the feed timezone.
func (f FeedConfig) Location() (*time.Location, error) {
	if f.Timezone == "" || f.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("feed.timezone: %w", err)
	}
	return loc, nil
}

// Validate checks values that would otherwise fail later at feed time.
func (c *Config) Validate() error {
	var errs []error
	if _, err := feed.DateKey(c.Feed.DateKey).Timestamp(); err != nil {
		errs = append(errs, fmt.Errorf("feed.date_key: %w", err))
	}
	if _, err := c.Feed.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Feed.Length < 0 {
		errs = append(errs, fmt.Errorf("feed.length must not be negative"))
	}
	if c.Feed.MatchWorkers < 0 {
		errs = append(errs, fmt.Errorf("feed.match_workers must not be negative"))
	}
	if c.Retention.Days <= 0 {
		errs = append(errs, fmt.Errorf("retention.days must be positive"))
	}
	return errors.Join(errs...)
}

// DBPath returns the SQLite file path with ~ expanded.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the log file path, relative to the storage directory
// unless absolute. Empty means log to stderr.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	p, err := expandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML, or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
