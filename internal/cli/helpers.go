package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/activity/internal/config"
	"github.com/runnerr0/activity/internal/logging"
	"github.com/runnerr0/activity/internal/storage"
)

// env is everything a command needs once config, logging and the database
// are set up.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	db     *sql.DB
	store  *storage.SQLiteStore
	dbPath string
}

// loadConfig reads --config, or the default config file (created on first
// use).
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// resolveDBPath determines the SQLite database file path.
// Priority: --db-path flag > config file.
func resolveDBPath(globals *GlobalFlags, cfg *config.Config) (string, error) {
	if globals != nil && globals.DBPath != "" {
		return globals.DBPath, nil
	}
	return cfg.DBPath()
}

// openEnv loads config, sets up logging and opens the migrated store. The
// returned func releases all of it.
func openEnv(globals *GlobalFlags) (*env, func(), error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, nil, err
	}

	verbose := globals != nil && globals.Verbose
	logger, closeLog, err := logging.Setup(cfg, verbose)
	if err != nil {
		return nil, nil, err
	}

	dbPath, err := resolveDBPath(globals, cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	e, err := newEnv(context.Background(), cfg, logger, db)
	if err != nil {
		db.Close()
		closeLog()
		return nil, nil, err
	}
	e.dbPath = dbPath
	logger.Debug("opened database", "path", dbPath)

	return e, func() {
		e.store.Close()
		db.Close()
		closeLog()
	}, nil
}

// newEnv migrates db and builds a store honoring the config's exclusion
// rules.
func newEnv(ctx context.Context, cfg *config.Config, logger *log.Logger, db *sql.DB) (*env, error) {
	runner := storage.NewMigrationRunner(db)
	if err := runner.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db,
		storage.WithLogger(logger),
		storage.WithExclusions(cfg.Capture.DenylistDomains, cfg.Capture.DenylistRegex),
	)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &env{cfg: cfg, logger: logger, db: db, store: store}, nil
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, m or s suffix)", s)
	}
}

// parseVisitTime accepts RFC3339 or epoch milliseconds.
func parseVisitTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or epoch milliseconds", s)
	}
	return t, nil
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// prettyURL drops the scheme, a leading "www." and a trailing slash.
func prettyURL(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

// hostname returns the URL's host, or "" when it has none.
func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func millisRFC3339(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format(time.RFC3339)
}
