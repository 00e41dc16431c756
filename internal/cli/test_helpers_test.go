package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/activity/internal/config"
	"github.com/runnerr0/activity/internal/feed"
	"github.com/runnerr0/activity/internal/logging"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testEnv builds an env over a migrated in-memory database and the default
// config with the feed timezone pinned to UTC.
func testEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Feed.Timezone = "UTC"
	return testEnvWith(t, cfg)
}

func testEnvWith(t *testing.T, cfg *config.Config) *env {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every pooled connection to :memory: would be its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	e, err := newEnv(context.Background(), cfg, logging.Discard(), db)
	require.NoError(t, err)
	t.Cleanup(func() { e.store.Close() })
	return e
}

// seedVisit stores a visit last seen at the given time.
func seedVisit(t *testing.T, e *env, url, title string, at time.Time) *feed.Visit {
	t.Helper()
	v := &feed.Visit{URL: url, Title: title, LastVisitDate: feed.Millis(at.UnixMilli())}
	require.NoError(t, e.store.AddVisit(context.Background(), v))
	require.NotEmpty(t, v.ID)
	return v
}
