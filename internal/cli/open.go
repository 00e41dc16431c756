package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/runnerr0/activity/internal/feed"
	"github.com/runnerr0/activity/internal/storage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}

	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e)
}

func (c *OpenCommand) run(e *env) error {
	visit, err := e.store.GetVisit(context.Background(), c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("visit not found: %s", c.ID)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(visit)
	}

	printVisit(visit)
	return nil
}

func printVisit(v *feed.Visit) {
	fmt.Println(v.ID)
	fmt.Printf("Title:     %s\n", itemTitle(*v))
	fmt.Printf("URL:       %s\n", v.URL)
	if v.ProviderName != "" {
		fmt.Printf("Provider:  %s\n", v.ProviderName)
	}
	fmt.Printf("Visited:   %s\n", localTime(v.LastVisitDate))
	if v.IsBookmark() {
		fmt.Printf("Bookmark:  %s (%s)\n", v.BookmarkGUID, localTime(v.BookmarkDate))
	}
	if v.Media != nil && v.Media.Type == "" {
		fmt.Printf("Media:     %s\n", v.Media.Raw)
	} else if v.Media != nil {
		fmt.Printf("Media:     %s", v.Media.Type)
		if v.Media.PreviewURL != "" {
			fmt.Printf(" (%s)", v.Media.PreviewURL)
		}
		fmt.Println()
	}
	if len(v.Extra) > 0 {
		keys := make([]string, 0, len(v.Extra))
		for k := range v.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println()
		fmt.Println("--- Extra ---")
		for _, k := range keys {
			fmt.Printf("%s: %s\n", k, v.Extra[k])
		}
	}
}

func localTime(ms *int64) string {
	if ms == nil {
		return "unknown"
	}
	return time.UnixMilli(*ms).Local().Format("2006-01-02 15:04:05")
}
