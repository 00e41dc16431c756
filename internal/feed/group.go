package feed

import (
	"fmt"
	"time"
)

// TimestampFunc resolves the timestamp a visit is grouped by. ok is false
// when the visit has no usable timestamp.
type TimestampFunc func(Visit) (ms int64, ok bool)

// DateKey names the visit field the feed groups by.
type DateKey string

const (
	DateKeyLastVisit DateKey = "last_visit"
	DateKeyBookmark  DateKey = "bookmark_date"
)

// Timestamp returns the accessor for k.
func (k DateKey) Timestamp() (TimestampFunc, error) {
	switch k {
	case DateKeyLastVisit, "":
		return optional(func(v Visit) *int64 { return v.LastVisitDate }), nil
	case DateKeyBookmark:
		return optional(func(v Visit) *int64 { return v.BookmarkDate }), nil
	default:
		return nil, fmt.Errorf("unknown date key %q", string(k))
	}
}

// ByDateDisplay reads the normalized DateDisplay field.
var ByDateDisplay = optional(func(v Visit) *int64 { return v.DateDisplay })

func optional(field func(Visit) *int64) TimestampFunc {
	return func(v Visit) (int64, bool) {
		p := field(v)
		if p == nil {
			return 0, false
		}
		return *p, true
	}
}

// DayBucket holds the sessions of one calendar day.
type DayBucket struct {
	// Day is local midnight of the bucket's calendar day.
	Day      time.Time
	Sessions []Session
}

// Key is the bucket's identity, stable across calls for the same day and
// location.
func (b DayBucket) Key() string {
	return b.Day.Format(time.RFC3339)
}

// Len counts the visits in the bucket.
func (b DayBucket) Len() int {
	n := 0
	for _, s := range b.Sessions {
		n += len(s)
	}
	return n
}

// BucketByDay groups visits by the calendar day of their timestamp in loc,
// then splits each day into sessions. Days appear in the order they are
// first seen in visits, not sorted. Visits without a timestamp are dropped.
// A nil loc means time.Local.
func BucketByDay(visits []Visit, ts TimestampFunc, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.Local
	}

	var days []time.Time
	grouped := make(map[time.Time][]Visit)
	for _, v := range visits {
		ms, ok := ts(v)
		if !ok {
			continue
		}
		day := startOfDay(time.UnixMilli(ms), loc)
		if _, seen := grouped[day]; !seen {
			days = append(days, day)
		}
		grouped[day] = append(grouped[day], v)
	}

	buckets := make([]DayBucket, len(days))
	for i, day := range days {
		buckets[i] = DayBucket{
			Day:      day,
			Sessions: Segment(grouped[day], ts),
		}
	}
	return buckets
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
