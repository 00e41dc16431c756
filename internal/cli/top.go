package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/activity/internal/storage"
)

type topSiteJSON struct {
	Position   int    `json:"position"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Domain     string `json:"domain"`
	VisitCount int64  `json:"visit_count"`
	LastVisit  string `json:"last_visit,omitempty"`
}

// Execute implements the go-flags Commander interface for TopCommand.
func (c *TopCommand) Execute(args []string) error {
	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e)
}

func (c *TopCommand) run(e *env) error {
	limit := e.cfg.TopSites.Length
	if c.Length > 0 {
		limit = c.Length
	}

	sites, err := e.store.TopSites(context.Background(), limit)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]topSiteJSON, len(sites))
		for i, s := range sites {
			out[i] = topSiteJSON{
				Position:   i,
				URL:        s.URL,
				Title:      siteTitle(s),
				Domain:     s.Domain,
				VisitCount: s.VisitCount,
				LastVisit:  millisRFC3339(s.LastVisit),
			}
		}
		return printJSON(out)
	}

	if len(sites) == 0 {
		fmt.Println("No top sites yet")
		return nil
	}

	for i, s := range sites {
		fmt.Printf("%d. %s\n", i+1, siteTitle(s))
		meta := fmt.Sprintf("%s · %s", prettyURL(s.URL), pluralVisits(s.VisitCount))
		if s.LastVisit != nil {
			meta += " · last " + time.UnixMilli(*s.LastVisit).Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("   %s\n", meta)
	}
	return nil
}

func siteTitle(s storage.TopSite) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.ProviderName != "":
		return s.ProviderName
	default:
		return s.Domain
	}
}

func pluralVisits(n int64) string {
	if n == 1 {
		return "1 visit"
	}
	return formatNumber(n) + " visits"
}
