package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 90, cfg.Retention.Days)
	assert.Equal(t, "~/.config/activity", cfg.Storage.Path)
	assert.Equal(t, "activity.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, 50, cfg.Feed.Length)
	assert.Equal(t, "last_visit", cfg.Feed.DateKey)
	assert.Equal(t, "Local", cfg.Feed.Timezone)
	assert.Equal(t, -1, cfg.Feed.MaxPreviews)
	assert.True(t, cfg.Feed.ShowDateHeadings)
	assert.Equal(t, 0, cfg.Feed.MatchWorkers)
	assert.Equal(t, 6, cfg.TopSites.Length)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultDenylistIsPopulated(t *testing.T) {
	domains := DefaultDenylistDomains()
	assert.Greater(t, len(domains), 10)
	assert.Contains(t, domains, "chase.com")
	assert.Contains(t, domains, "1password.com")
	assert.Contains(t, domains, "mychart.com")

	seen := make(map[string]bool)
	for _, d := range domains {
		assert.False(t, seen[d], "duplicate %s", d)
		seen[d] = true
	}
}

func TestDefaultDenylistReturnsFreshSlice(t *testing.T) {
	domains := DefaultDenylistDomains()
	domains[0] = "changed.example"

	assert.NotContains(t, DefaultDenylistDomains(), "changed.example")
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	cfgPath := writeConfig(t, `
retention:
  days: 30
feed:
  length: 20
  date_key: bookmark_date
  timezone: UTC
  max_previews: 3
  show_date_headings: false
logging:
  level: debug
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Retention.Days)
	assert.Equal(t, 20, cfg.Feed.Length)
	assert.Equal(t, "bookmark_date", cfg.Feed.DateKey)
	assert.Equal(t, 3, cfg.Feed.MaxPreviews)
	assert.False(t, cfg.Feed.ShowDateHeadings)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain defaults
	assert.Equal(t, 6, cfg.TopSites.Length)
	assert.Equal(t, "activity.db", cfg.Storage.SQLiteFile)
	assert.NotEmpty(t, cfg.Capture.DenylistDomains)

	loc, err := cfg.Feed.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, ":::not valid yaml{{{"))
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"date key":  "feed:\n  date_key: first_seen\n",
		"timezone":  "feed:\n  timezone: Mars/Olympus\n",
		"length":    "feed:\n  length: -1\n",
		"workers":   "feed:\n  match_workers: -2\n",
		"retention": "retention:\n  days: 0\n",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, name)
	}
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Feed.Length)

	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Feed, cfg2.Feed)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	cfg, err := LoadOrCreateAt(writeConfig(t, "retention:\n  days: 7\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retention.Days)
	assert.Equal(t, "last_visit", cfg.Feed.DateKey)
}

func TestLoadWithDenylistOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
capture:
  denylist_domains:
    - "example.com"
    - "secret.org"
  denylist_regex:
    - "^internal\\."
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "secret.org"}, cfg.Capture.DenylistDomains)
	assert.Equal(t, []string{`^internal\.`}, cfg.Capture.DenylistRegex)
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/data/activity"

	db, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/data/activity/activity.db", db)

	logPath, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Empty(t, logPath)

	cfg.Logging.File = "activity.log"
	logPath, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/data/activity/activity.log", logPath)

	cfg.Logging.File = "/var/log/activity.log"
	logPath, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/activity.log", logPath)

	cfg.Storage.Path = "~/act"
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	db, err = cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "act", "activity.db"), db)
}
