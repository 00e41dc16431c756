package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/activity/internal/feed"
	"github.com/runnerr0/activity/internal/storage"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Execute implements the go-flags Commander interface for FeedCommand.
func (c *FeedCommand) Execute(args []string) error {
	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e, args)
}

// run builds and prints the feed against a prepared env (used by tests).
func (c *FeedCommand) run(e *env, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")
	now := time.Now()
	if c.now != nil {
		now = c.now()
	}

	lq := storage.ListQuery{Domain: c.Domain, Limit: e.cfg.Feed.Window}
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		lq.Since = now.Add(-dur)
	}
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		lq.Until = now.Add(-dur)
	}

	visits, err := e.store.ListVisits(ctx, lq)
	if err != nil {
		return fmt.Errorf("list visits: %w", err)
	}

	loc, err := e.cfg.Feed.Location()
	if err != nil {
		return err
	}

	opts := feed.Options{
		Query:    query,
		Length:   e.cfg.Feed.Length,
		DateKey:  feed.DateKey(e.cfg.Feed.DateKey),
		Location: loc,
		Workers:  e.cfg.Feed.MatchWorkers,
	}
	if c.Length > 0 {
		opts.Length = c.Length
	}
	if c.DateKey != "" {
		opts.DateKey = feed.DateKey(c.DateKey)
	}

	res, err := feed.Build(ctx, visits, opts)
	if err != nil {
		return fmt.Errorf("build feed: %w", err)
	}

	headings := e.cfg.Feed.ShowDateHeadings && !c.NoHeadings
	items := feed.Flatten(res.Days, feed.FlattenOptions{
		MaxPreviews:  e.cfg.Feed.MaxPreviews,
		Previews:     feed.MediaPreviews{},
		DateHeadings: headings,
	})

	e.logger.Debug("built feed",
		"loaded", len(visits), "matched", len(res.Matched), "days", len(res.Days), "items", len(items))

	if c.globals != nil && c.globals.JSON {
		return printJSON(feedToJSON(query, res, items, now, loc))
	}
	printFeed(query, res.Days, items, headings, now, loc)
	return nil
}

func printFeed(query string, days []feed.DayBucket, items []feed.Item, headings bool, now time.Time, loc *time.Location) {
	if len(items) == 0 {
		if query != "" {
			fmt.Printf("No activity found for %q\n", query)
		} else {
			fmt.Println("No activity found")
		}
		return
	}

	for n, item := range items {
		newDay := n == 0 || item.Day != items[n-1].Day
		newSession := newDay || item.Session != items[n-1].Session

		if newDay && headings {
			if n > 0 {
				fmt.Println()
			}
			fmt.Println(headingStyle.Render(dayHeading(days[item.Day].Day, now, loc)))
		} else if newSession && n > 0 {
			fmt.Println()
		}

		v := item.Visit
		marker := " "
		if v.IsBookmark() {
			marker = "★"
		}
		fmt.Printf("%s %3d. %s\n", marker, item.Index+1, itemTitle(v))

		meta := prettyURL(v.URL)
		if label := timeLabel(v, item.ShowDate, now, loc); label != "" {
			meta += " · " + label
		}
		if item.Preview != nil {
			meta += " · ▶ " + item.Preview.PreviewURL
		}
		fmt.Printf("       %s\n", faintStyle.Render(meta))
	}
}

// itemTitle picks the title, then the provider name, then the hostname.
func itemTitle(v feed.Visit) string {
	if t := v.DisplayTitle(); t != "" {
		return t
	}
	return hostname(v.URL)
}

// timeLabel is the clock time of the visit, or a calendar label when the
// item also stands in for its day heading.
func timeLabel(v feed.Visit, showDate bool, now time.Time, loc *time.Location) string {
	if v.DateDisplay == nil {
		return ""
	}
	t := time.UnixMilli(*v.DateDisplay).In(loc)
	if !showDate {
		return t.Format("3:04 PM")
	}
	return calendarLabel(t, now, loc)
}

// dayHeading names a day relative to now: Today, Yesterday, Tomorrow, a
// weekday within the surrounding week, otherwise the full date.
func dayHeading(day, now time.Time, loc *time.Location) string {
	switch diff := daysBetween(now, day, loc); {
	case diff == 0:
		return "Today"
	case diff == -1:
		return "Yesterday"
	case diff == 1:
		return "Tomorrow"
	case diff < -1 && diff >= -6:
		return "Last " + day.In(loc).Weekday().String()
	case diff > 1 && diff < 7:
		return day.In(loc).Weekday().String()
	default:
		return day.In(loc).Format("Monday January 2, 2006")
	}
}

// calendarLabel is a visit time with its day: "Yesterday at 3:04 PM", or
// the numeric date beyond the surrounding week.
func calendarLabel(t, now time.Time, loc *time.Location) string {
	diff := daysBetween(now, t, loc)
	if diff < -6 || diff >= 7 {
		return t.In(loc).Format("01/02/2006")
	}
	return dayHeading(t, now, loc) + " at " + t.In(loc).Format("3:04 PM")
}

// daysBetween counts calendar days from now to t in loc; negative is past.
func daysBetween(now, t time.Time, loc *time.Location) int {
	a := midnight(now, loc)
	b := midnight(t, loc)
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

type feedItemJSON struct {
	Position int        `json:"position"`
	Label    string     `json:"label,omitempty"`
	Preview  *previewJS `json:"preview,omitempty"`
	Visit    feed.Visit `json:"visit"`
}

type previewJS struct {
	Type       string `json:"type"`
	PreviewURL string `json:"preview_url"`
}

type feedDayJSON struct {
	Date     string           `json:"date"`
	Heading  string           `json:"heading"`
	Sessions [][]feedItemJSON `json:"sessions"`
}

type feedJSON struct {
	Query   string        `json:"query"`
	Matched int           `json:"matched"`
	Shown   int           `json:"shown"`
	Days    []feedDayJSON `json:"days"`
}

func feedToJSON(query string, res feed.Result, items []feed.Item, now time.Time, loc *time.Location) feedJSON {
	out := feedJSON{
		Query:   query,
		Matched: len(res.Matched),
		Shown:   len(items),
		Days:    make([]feedDayJSON, len(res.Days)),
	}
	for d, day := range res.Days {
		out.Days[d] = feedDayJSON{
			Date:     day.Day.Format("2006-01-02"),
			Heading:  dayHeading(day.Day, now, loc),
			Sessions: make([][]feedItemJSON, len(day.Sessions)),
		}
	}
	for _, item := range items {
		ij := feedItemJSON{
			Position: item.Index,
			Label:    timeLabel(item.Visit, item.ShowDate, now, loc),
			Visit:    item.Visit,
		}
		if item.Preview != nil {
			ij.Preview = &previewJS{Type: item.Preview.Type, PreviewURL: item.Preview.PreviewURL}
		}
		sessions := out.Days[item.Day].Sessions
		sessions[item.Session] = append(sessions[item.Session], ij)
	}
	return out
}
