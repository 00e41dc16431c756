// Package feed turns a list of browsing visits into the activity feed: the
// visits matching a free-text query, grouped by calendar day and split into
// sessions of time-adjacent visits.
//
// Nothing in this package does I/O or keeps state between calls. Callers
// supply visits in the order they want them shown (usually most recent
// first); the package never re-sorts.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Media describes a playable or viewable resource attached to a visit.
// Type and PreviewURL are read from the record; Raw holds the record's media
// value exactly as it arrived, including keys this package never reads, and
// is what gets encoded when set.
type Media struct {
	Type       string
	PreviewURL string
	Raw        json.RawMessage
}

// UnmarshalJSON keeps data verbatim and picks out type and preview_url when
// data is an object holding them as strings.
func (m *Media) UnmarshalJSON(data []byte) error {
	*m = Media{Raw: append(json.RawMessage(nil), data...)}
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) == nil {
		m.Type = rawString(fields["type"])
		m.PreviewURL = rawString(fields["preview_url"])
	}
	return nil
}

// MarshalJSON writes Raw back unchanged, or builds an object from Type and
// PreviewURL for media created in code.
func (m Media) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	out := map[string]string{"type": m.Type}
	if m.PreviewURL != "" {
		out["preview_url"] = m.PreviewURL
	}
	return json.Marshal(out)
}

// Visit is one browsing-history entry. Timestamps are milliseconds since the
// Unix epoch; a nil timestamp means the value was missing or unusable.
type Visit struct {
	ID            string
	URL           string
	Title         string
	ProviderName  string
	LastVisitDate *int64
	BookmarkDate  *int64
	GUID          string
	BookmarkGUID  string
	Media         *Media

	// DateDisplay is the timestamp the feed groups by, copied from the field
	// selected by a DateKey when the feed is built.
	DateDisplay *int64

	// Extra holds fields this package does not interpret. They are kept
	// verbatim and written back out on encode.
	Extra map[string]json.RawMessage
}

// DisplayTitle returns the title, falling back to the provider name.
func (v Visit) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.ProviderName
}

// IsBookmark reports whether the visit is also a bookmark.
func (v Visit) IsBookmark() bool {
	return v.BookmarkGUID != ""
}

// Millis returns a pointer to ms, for filling optional timestamps.
func Millis(ms int64) *int64 {
	return &ms
}

var knownKeys = map[string]bool{
	"id":              true,
	"url":             true,
	"title":           true,
	"provider_name":   true,
	"last_visit_date": true,
	"bookmark_date":   true,
	"guid":            true,
	"bookmark_guid":   true,
	"media":           true,
	"date_display":    true,
}

// UnmarshalJSON decodes a visit record. Known fields that have the wrong
// JSON type are treated as absent rather than failing the whole record;
// only a missing url is an error.
func (v *Visit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = Visit{}
	v.ID = rawString(raw["id"])
	v.URL = rawString(raw["url"])
	v.Title = rawString(raw["title"])
	v.ProviderName = rawString(raw["provider_name"])
	v.LastVisitDate = rawMillis(raw["last_visit_date"])
	v.BookmarkDate = rawMillis(raw["bookmark_date"])
	v.DateDisplay = rawMillis(raw["date_display"])
	v.GUID = rawString(raw["guid"])
	v.BookmarkGUID = rawString(raw["bookmark_guid"])

	if m, ok := raw["media"]; ok {
		v.Media = new(Media)
		if err := v.Media.UnmarshalJSON(m); err != nil {
			return err
		}
	}

	for k, val := range raw {
		if knownKeys[k] {
			continue
		}
		if v.Extra == nil {
			v.Extra = make(map[string]json.RawMessage)
		}
		v.Extra[k] = val
	}

	if v.URL == "" {
		return fmt.Errorf("visit record has no url")
	}
	return nil
}

// MarshalJSON encodes the visit with its passthrough fields merged back in.
func (v Visit) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Extra)+10)
	for k, val := range v.Extra {
		out[k] = val
	}
	out["url"] = v.URL
	if v.ID != "" {
		out["id"] = v.ID
	}
	if v.Title != "" {
		out["title"] = v.Title
	}
	if v.ProviderName != "" {
		out["provider_name"] = v.ProviderName
	}
	if v.LastVisitDate != nil {
		out["last_visit_date"] = *v.LastVisitDate
	}
	if v.BookmarkDate != nil {
		out["bookmark_date"] = *v.BookmarkDate
	}
	if v.DateDisplay != nil {
		out["date_display"] = *v.DateDisplay
	}
	if v.GUID != "" {
		out["guid"] = v.GUID
	}
	if v.BookmarkGUID != "" {
		out["bookmark_guid"] = v.BookmarkGUID
	}
	if v.Media != nil {
		out["media"] = v.Media
	}
	return json.Marshal(out)
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// rawMillis accepts only integral JSON numbers that fit in an int64, in
// any notation ("1e16" included). Strings, fractions, null and out-of-range
// values all come back nil.
func rawMillis(raw json.RawMessage) *int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return &i
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	i := int64(f)
	return &i
}
