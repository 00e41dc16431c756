package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/activity/internal/feed"
)

// Monday noon.
var feedNow = time.Date(2024, time.March, 11, 12, 0, 0, 0, time.UTC)

func seedFeed(t *testing.T, e *env) {
	t.Helper()
	seedVisit(t, e, "https://github.com/golang/go", "Go Programming", feedNow.Add(-1*time.Hour))
	seedVisit(t, e, "https://go.dev/doc/", "Go Docs", feedNow.Add(-65*time.Minute))
	seedVisit(t, e, "https://news.ycombinator.com/", "Hacker News", feedNow.Add(-3*time.Hour))
	seedVisit(t, e, "https://lancedb.github.io/", "LanceDB Basics", time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC))
	seedVisit(t, e, "https://docs.python.org/3/", "Python 3 Docs", time.Date(2024, time.March, 7, 9, 30, 0, 0, time.UTC))
	seedVisit(t, e, "https://old.example.com/", "Old Page", time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC))
}

func newFeedCommand(asJSON bool) *FeedCommand {
	return &FeedCommand{
		globals: &GlobalFlags{JSON: asJSON},
		version: "test",
		now:     func() time.Time { return feedNow },
	}
}

func runFeedJSON(t *testing.T, c *FeedCommand, e *env, args ...string) feedJSON {
	t.Helper()
	var err error
	output := captureOutput(t, func() {
		err = c.run(e, args)
	})
	require.NoError(t, err)

	var out feedJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	return out
}

// --- Human output ---

func TestFeed_HumanOutputGroupsByDay(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	var err error
	output := captureOutput(t, func() {
		err = newFeedCommand(false).run(e, nil)
	})
	require.NoError(t, err)

	assert.Contains(t, output, "Today")
	assert.Contains(t, output, "Yesterday")
	assert.Contains(t, output, "Last Thursday")
	assert.Contains(t, output, "Thursday February 1, 2024")
	assert.Contains(t, output, "1. Go Programming")
	assert.Contains(t, output, "6. Old Page")
	assert.Contains(t, output, "github.com/golang/go · 11:00 AM")
	assert.Contains(t, output, "go.dev/doc · 10:55 AM")
	assert.Less(t, strings.Index(output, "Today"), strings.Index(output, "Yesterday"))
}

func TestFeed_NoHeadingsLabelsFirstVisitOfDay(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	c := newFeedCommand(false)
	c.NoHeadings = true
	output := captureOutput(t, func() {
		require.NoError(t, c.run(e, nil))
	})

	assert.Contains(t, output, "Today at 11:00 AM")
	assert.Contains(t, output, "go.dev/doc · 10:55 AM")
	assert.Contains(t, output, "Yesterday at 3:00 PM")
	assert.Contains(t, output, "02/01/2024")
	assert.NotContains(t, output, "Thursday February 1, 2024")
}

func TestFeed_EmptyStore(t *testing.T) {
	e := testEnv(t)

	output := captureOutput(t, func() {
		require.NoError(t, newFeedCommand(false).run(e, nil))
	})
	assert.Contains(t, output, "No activity found")
}

func TestFeed_QueryWithoutMatches(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	output := captureOutput(t, func() {
		require.NoError(t, newFeedCommand(false).run(e, []string{"zzz"}))
	})
	assert.Contains(t, output, `No activity found for "zzz"`)
}

func TestFeed_ShowsPreviewAndBookmark(t *testing.T) {
	e := testEnv(t)
	v := &feed.Visit{
		URL:           "https://video.example.com/watch?v=1",
		Title:         "A Talk",
		BookmarkGUID:  "bm-1",
		LastVisitDate: feed.Millis(feedNow.Add(-time.Hour).UnixMilli()),
		Media:         &feed.Media{Type: "video", PreviewURL: "https://video.example.com/embed/1"},
	}
	require.NoError(t, e.store.AddVisit(context.Background(), v))

	output := captureOutput(t, func() {
		require.NoError(t, newFeedCommand(false).run(e, nil))
	})
	assert.Contains(t, output, "★")
	assert.Contains(t, output, "▶ https://video.example.com/embed/1")
}

// --- JSON output ---

func TestFeed_JSONStructure(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	out := runFeedJSON(t, newFeedCommand(true), e)

	assert.Equal(t, 6, out.Matched)
	assert.Equal(t, 6, out.Shown)
	require.Len(t, out.Days, 4)

	assert.Equal(t, "2024-03-11", out.Days[0].Date)
	assert.Equal(t, "Today", out.Days[0].Heading)
	assert.Equal(t, "Yesterday", out.Days[1].Heading)
	assert.Equal(t, "Last Thursday", out.Days[2].Heading)
	assert.Equal(t, "2024-02-01", out.Days[3].Date)

	// 11:00 and 10:55 share a session; 9:00 starts a new one.
	today := out.Days[0].Sessions
	require.Len(t, today, 2)
	require.Len(t, today[0], 2)
	require.Len(t, today[1], 1)
	assert.Equal(t, "Go Programming", today[0][0].Visit.Title)
	assert.Equal(t, "Hacker News", today[1][0].Visit.Title)

	var positions []int
	for _, day := range out.Days {
		for _, session := range day.Sessions {
			for _, item := range session {
				positions = append(positions, item.Position)
			}
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, positions)
}

func TestFeed_QueryFilters(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	out := runFeedJSON(t, newFeedCommand(true), e, "go")

	assert.Equal(t, "go", out.Query)
	assert.Equal(t, 2, out.Matched)
	require.Len(t, out.Days, 1)
	require.Len(t, out.Days[0].Sessions, 1)
	assert.Len(t, out.Days[0].Sessions[0], 2)
}

func TestFeed_UppercaseQueryIsCaseSensitive(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	out := runFeedJSON(t, newFeedCommand(true), e, "Docs")
	assert.Equal(t, 2, out.Matched)

	out = runFeedJSON(t, newFeedCommand(true), e, "DOCS")
	assert.Equal(t, 0, out.Matched)
	assert.Empty(t, out.Days)
}

func TestFeed_LengthCapsShownVisits(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	c := newFeedCommand(true)
	c.Length = 3
	out := runFeedJSON(t, c, e)

	assert.Equal(t, 6, out.Matched)
	assert.Equal(t, 3, out.Shown)
	require.Len(t, out.Days, 1)
}

func TestFeed_DomainAndSince(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)

	c := newFeedCommand(true)
	c.Domain = "github.com"
	out := runFeedJSON(t, c, e)
	assert.Equal(t, 1, out.Matched)

	c = newFeedCommand(true)
	c.Since = "2d"
	out = runFeedJSON(t, c, e)
	assert.Equal(t, 4, out.Matched)

	c = newFeedCommand(true)
	c.Until = "1d"
	out = runFeedJSON(t, c, e)
	assert.Equal(t, 2, out.Matched)
}

func TestFeed_BookmarkDateKey(t *testing.T) {
	e := testEnv(t)
	seedFeed(t, e)
	bm := &feed.Visit{
		URL:           "https://example.org/saved",
		Title:         "Saved",
		BookmarkGUID:  "bm-2",
		LastVisitDate: feed.Millis(feedNow.Add(-30 * time.Minute).UnixMilli()),
		BookmarkDate:  feed.Millis(time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC).UnixMilli()),
	}
	require.NoError(t, e.store.AddVisit(context.Background(), bm))

	c := newFeedCommand(true)
	c.DateKey = string(feed.DateKeyBookmark)
	out := runFeedJSON(t, c, e)

	// Only the bookmark has a bookmark date; the rest are dropped from days.
	assert.Equal(t, 7, out.Matched)
	require.Len(t, out.Days, 1)
	assert.Equal(t, "Yesterday", out.Days[0].Heading)
}

func TestFeed_InvalidInputs(t *testing.T) {
	e := testEnv(t)

	c := newFeedCommand(false)
	c.Since = "soon"
	assert.Error(t, c.run(e, nil))

	c = newFeedCommand(false)
	c.DateKey = "first_seen"
	assert.Error(t, c.run(e, nil))
}

// --- Calendar labels ---

func TestDayHeading(t *testing.T) {
	day := func(m time.Month, d int) time.Time {
		return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
	}
	cases := []struct {
		day  time.Time
		want string
	}{
		{day(time.March, 11), "Today"},
		{day(time.March, 10), "Yesterday"},
		{day(time.March, 12), "Tomorrow"},
		{day(time.March, 14), "Thursday"},
		{day(time.March, 5), "Last Tuesday"},
		{day(time.March, 4), "Monday March 4, 2024"},
		{day(time.March, 18), "Monday March 18, 2024"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, dayHeading(tc.day, feedNow, time.UTC), tc.day.String())
	}
}

func TestDayHeading_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 14:00 UTC Monday is 23:00 in Tokyo; two hours later Tokyo is on Tuesday.
	now := time.Date(2024, time.March, 11, 14, 0, 0, 0, time.UTC)
	later := now.Add(2 * time.Hour)

	assert.Equal(t, "Today", dayHeading(later, now, time.UTC))
	assert.Equal(t, "Tomorrow", dayHeading(later, now, tokyo))
}

func TestCalendarLabel(t *testing.T) {
	at := time.Date(2024, time.March, 10, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Yesterday at 3:04 PM", calendarLabel(at, feedNow, time.UTC))

	old := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "03/01/2024", calendarLabel(old, feedNow, time.UTC))
}
