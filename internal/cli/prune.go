package cli

import (
	"context"
	"fmt"
	"time"
)

type pruneJSON struct {
	DryRun    bool   `json:"dry_run"`
	OlderThan string `json:"older_than"`
	Cutoff    string `json:"cutoff"`
	Count     int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e)
}

func (c *PruneCommand) run(e *env) error {
	retention := time.Duration(e.cfg.Retention.Days) * 24 * time.Hour
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		retention = d
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	cutoff := now.Add(-retention)

	ctx := context.Background()
	var (
		n   int64
		err error
	)
	if c.DryRun {
		n, err = e.store.CountExpired(ctx, cutoff)
	} else {
		n, err = e.store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(pruneJSON{
			DryRun:    c.DryRun,
			OlderThan: formatDurationHuman(retention),
			Cutoff:    cutoff.UTC().Format(time.RFC3339),
			Count:     n,
		})
	}

	if c.DryRun {
		fmt.Printf("Would prune %s visits older than %s (before %s)\n",
			formatNumber(n), formatDurationHuman(retention), cutoff.Local().Format("2006-01-02"))
		return nil
	}
	fmt.Printf("Pruned %s visits older than %s\n", formatNumber(n), formatDurationHuman(retention))
	return nil
}
