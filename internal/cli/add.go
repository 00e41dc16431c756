package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/runnerr0/activity/internal/feed"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}

	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e)
}

// run records the visit against a prepared env (used by tests).
func (c *AddCommand) run(e *env) error {
	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	at := time.Now()
	if c.At != "" {
		at, err = parseVisitTime(c.At)
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
	}

	visit := &feed.Visit{
		URL:           c.URL,
		Title:         c.Title,
		ProviderName:  c.Provider,
		LastVisitDate: feed.Millis(at.UnixMilli()),
	}
	if c.Bookmark {
		guid, err := newGUID()
		if err != nil {
			return err
		}
		visit.BookmarkGUID = guid
		visit.BookmarkDate = feed.Millis(at.UnixMilli())
	}

	// The store skips excluded domains silently; the CLI user gets told.
	domain := parsed.Hostname()
	if e.store.IsExcluded(domain) {
		return fmt.Errorf("domain %q is excluded by exclusion rules", domain)
	}

	if err := e.store.AddVisit(context.Background(), visit); err != nil {
		return fmt.Errorf("storing visit: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"id":       visit.ID,
			"url":      visit.URL,
			"title":    visit.Title,
			"visited":  at.UTC().Format(time.RFC3339),
			"bookmark": visit.IsBookmark(),
		})
	}

	bookmark := "no"
	if visit.IsBookmark() {
		bookmark = "yes"
	}

	fmt.Printf("Added visit %s (%s)\n", visit.ID, at.Format(time.RFC3339))
	fmt.Printf("  URL: %s\n", visit.URL)
	fmt.Printf("  Title: %s\n", itemTitle(*visit))
	fmt.Printf("  Bookmark: %s\n", bookmark)

	return nil
}

// newGUID returns a random 12-character bookmark guid.
func newGUID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}
	return hex.EncodeToString(b), nil
}
