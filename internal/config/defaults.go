package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			Days: 90,
		},
		Capture: CaptureConfig{
			DenylistDomains: DefaultDenylistDomains(),
			DenylistRegex:   []string{},
		},
		Storage: StorageConfig{
			Path:       "~/.config/activity",
			SQLiteFile: "activity.db",
		},
		Feed: FeedConfig{
			Length:           50,
			DateKey:          "last_visit",
			Timezone:         "Local",
			MaxPreviews:      -1,
			ShowDateHeadings: true,
			MatchWorkers:     0,
			Window:           2000,
		},
		TopSites: TopSitesConfig{
			Length: 6,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}
