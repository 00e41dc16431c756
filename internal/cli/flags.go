package cli

import "time"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// FeedCommand prints the activity feed, optionally filtered by a query.
type FeedCommand struct {
	Since      string `long:"since" description:"Only visits newer than duration (e.g., 7d, 24h, 2w)"`
	Until      string `long:"until" description:"Only visits older than duration"`
	Domain     string `long:"domain" description:"Only visits to this domain"`
	Length     int    `long:"length" description:"Override feed.length"`
	DateKey    string `long:"date-key" description:"Group by last_visit or bookmark_date"`
	NoHeadings bool   `long:"no-headings" description:"Label the first visit of each day instead of printing day headings"`

	globals *GlobalFlags
	version string
	now     func() time.Time // injectable for testing; nil means time.Now
}

// AddCommand records a visit by hand.
type AddCommand struct {
	URL      string `long:"url" description:"URL to record (required)"`
	Title    string `long:"title" description:"Page title"`
	Provider string `long:"provider" description:"Provider name, shown when the title is empty"`
	At       string `long:"at" description:"Visit time as RFC3339 or epoch milliseconds (default now)"`
	Bookmark bool   `long:"bookmark" description:"Also mark the visit as a bookmark"`

	globals *GlobalFlags
	version string
}

// ImportCommand loads visit records from a JSON file.
type ImportCommand struct {
	File   string `long:"file" description:"JSON array or JSON lines file of visits (required, - for stdin)"`
	Source string `long:"source" description:"Source label for imported visits" default:"import"`

	globals *GlobalFlags
	version string
}

// TopCommand lists the most visited sites.
type TopCommand struct {
	Length int `long:"length" description:"Override top_sites.length"`

	globals *GlobalFlags
	version string
}

// OpenCommand prints one stored visit.
type OpenCommand struct {
	ID string `long:"id" description:"Visit ID (required)"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows database statistics and a config summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// PruneCommand applies retention pruning.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
	now     func() time.Time
}

// PurgeCommand deletes all visits after a safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}
