package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/activity/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	SchemaVersion     int               `json:"schema_version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalVisits       int64             `json:"total_visits"`
	TotalBookmarks    int64             `json:"total_bookmarks"`
	UndatedVisits     int64             `json:"undated_visits"`
	OldestVisit       string            `json:"oldest_visit,omitempty"`
	NewestVisit       string            `json:"newest_visit,omitempty"`
	LastPrune         string            `json:"last_prune,omitempty"`
	RetentionDays     int               `json:"retention_days"`
	FeedLength        int               `json:"feed_length"`
	DateKey           string            `json:"date_key"`
	Timezone          string            `json:"timezone"`
	TopDomains        []domainCountJSON `json:"top_domains"`
}

type domainCountJSON struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e)
}

func (c *StatusCommand) run(e *env) error {
	ctx := context.Background()

	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	schema, err := storage.NewMigrationRunner(e.db).Version(ctx)
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}

	dbSize := getDatabaseSize(e.db, e.dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(e, stats, schema, dbSize)
	}
	return c.printStatusHuman(e, stats, schema, dbSize)
}

func (c *StatusCommand) printStatusHuman(e *env, stats *storage.Stats, schema int, dbSize int64) error {
	dbPath := e.dbPath
	if dbPath == "" {
		dbPath = "(in memory)"
	}

	fmt.Println("Activity Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Schema:        v%d\n", schema)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Visits:        %s\n", formatNumber(stats.TotalVisits))
	fmt.Printf("Bookmarks:     %s\n", formatNumber(stats.TotalBookmarks))
	if stats.UndatedVisits > 0 {
		fmt.Printf("Undated:       %s\n", formatNumber(stats.UndatedVisits))
	}

	if !stats.OldestVisit.IsZero() {
		fmt.Printf("Oldest:        %s\n", stats.OldestVisit.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestVisit.Local().Format("2006-01-02"))
	}

	fmt.Printf("Retention:     %d days\n", e.cfg.Retention.Days)
	if stats.LastPrune.IsZero() {
		fmt.Println("Last prune:    never")
	} else {
		fmt.Printf("Last prune:    %s\n", stats.LastPrune.Local().Format("2006-01-02 15:04"))
	}

	fmt.Printf("Denylist:      %d domains, %d patterns\n", len(e.cfg.Capture.DenylistDomains), len(e.cfg.Capture.DenylistRegex))

	fmt.Println()
	fmt.Printf("Feed:          %d visits, grouped by %s (%s)\n", e.cfg.Feed.Length, e.cfg.Feed.DateKey, e.cfg.Feed.Timezone)

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-24s %s\n", d.Domain, formatNumber(d.Count))
		}
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(e *env, stats *storage.Stats, schema int, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		SchemaVersion:     schema,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: dbSize,
		TotalVisits:       stats.TotalVisits,
		TotalBookmarks:    stats.TotalBookmarks,
		UndatedVisits:     stats.UndatedVisits,
		RetentionDays:     e.cfg.Retention.Days,
		FeedLength:        e.cfg.Feed.Length,
		DateKey:           e.cfg.Feed.DateKey,
		Timezone:          e.cfg.Feed.Timezone,
		TopDomains:        make([]domainCountJSON, len(stats.TopDomains)),
	}

	if !stats.OldestVisit.IsZero() {
		out.OldestVisit = stats.OldestVisit.UTC().Format(time.RFC3339)
		out.NewestVisit = stats.NewestVisit.UTC().Format(time.RFC3339)
	}
	if !stats.LastPrune.IsZero() {
		out.LastPrune = stats.LastPrune.UTC().Format(time.RFC3339)
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainCountJSON{Domain: d.Domain, Count: d.Count}
	}

	return printJSON(out)
}

// getDatabaseSize returns the database file size in bytes. For in-memory
// databases it falls back to page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			return info.Size()
		}
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
