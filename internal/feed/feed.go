package feed

import (
	"context"
	"time"
)

// Options controls Build.
type Options struct {
	Query string
	// Length caps the number of matched visits that get grouped. Zero or
	// negative means no cap.
	Length   int
	DateKey  DateKey
	Location *time.Location
	// Workers > 1 runs the matcher concurrently.
	Workers int
}

// Result is a built feed.
type Result struct {
	// Matched is every visit that passed the filter, before the length cap.
	Matched []Visit
	Days    []DayBucket
}

// Build runs the whole pipeline: filter by query, cap to Length, stamp
// DateDisplay from the DateKey field, group into days and sessions.
func Build(ctx context.Context, visits []Visit, opts Options) (Result, error) {
	ts, err := opts.DateKey.Timestamp()
	if err != nil {
		return Result{}, err
	}

	matched, err := FilterConcurrent(ctx, opts.Query, visits, opts.Workers)
	if err != nil {
		return Result{}, err
	}

	capped := matched
	if opts.Length > 0 && len(capped) > opts.Length {
		capped = capped[:opts.Length]
	}

	display := make([]Visit, len(capped))
	for i, v := range capped {
		if ms, ok := ts(v); ok {
			v.DateDisplay = Millis(ms)
		} else {
			v.DateDisplay = nil
		}
		display[i] = v
	}

	return Result{
		Matched: matched,
		Days:    BucketByDay(display, ByDateDisplay, opts.Location),
	}, nil
}

// Preview is media shown inline with a feed item.
type Preview struct {
	Type       string
	PreviewURL string
}

// PreviewResolver looks up the preview for a visit. It returns nil when the
// visit has none.
type PreviewResolver interface {
	ResolvePreview(v Visit) *Preview
}

// MediaPreviews resolves previews from the visit's own media field.
type MediaPreviews struct{}

// ResolvePreview implements PreviewResolver.
func (MediaPreviews) ResolvePreview(v Visit) *Preview {
	if v.Media == nil {
		return nil
	}
	return &Preview{Type: v.Media.Type, PreviewURL: v.Media.PreviewURL}
}

// FlattenOptions controls Flatten.
type FlattenOptions struct {
	// MaxPreviews is how many items may carry a preview. Negative means
	// unlimited.
	MaxPreviews int
	Previews    PreviewResolver
	// DateHeadings is set when the renderer prints a heading per day; items
	// then never show their own date.
	DateHeadings bool
}

// Item is one visit in feed order.
type Item struct {
	Visit Visit
	// Index is the zero-based position across the whole feed.
	Index   int
	Day     int
	Session int
	// ShowDate marks the first item of a day when there are no day headings.
	ShowDate bool
	Preview  *Preview
}

// Flatten walks days, then sessions, then visits, assigning each item its
// feed position and preview. The preview budget is spent in that order and
// only on video media with a preview URL.
func Flatten(days []DayBucket, opts FlattenOptions) []Item {
	budget := opts.MaxPreviews
	var items []Item
	for d, day := range days {
		for s, session := range day.Sessions {
			for i, v := range session {
				item := Item{
					Visit:    v,
					Index:    len(items),
					Day:      d,
					Session:  s,
					ShowDate: !opts.DateHeadings && s == 0 && i == 0,
				}
				if opts.Previews != nil && budget != 0 && v.Media != nil && v.Media.Type == "video" {
					if p := opts.Previews.ResolvePreview(v); p != nil && p.PreviewURL != "" {
						item.Preview = p
						if budget > 0 {
							budget--
						}
					}
				}
				items = append(items, item)
			}
		}
	}
	return items
}
