package storage

import "time"

// ListQuery defines filters for listing visits. Since and Until compare
// against the last visit time; visits without one are only returned when
// neither bound is set.
type ListQuery struct {
	Domain string
	Source string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// TopSite is a URL ranked by how often it was visited.
type TopSite struct {
	URL          string
	Title        string
	ProviderName string
	Domain       string
	VisitCount   int64
	LastVisit    *int64
}

// Stats holds aggregate statistics about the activity database.
type Stats struct {
	TotalVisits    int64
	TotalBookmarks int64
	UndatedVisits  int64
	OldestVisit    time.Time
	NewestVisit    time.Time
	LastPrune      time.Time
	TopDomains     []DomainCount
}

// DomainCount pairs a domain with its visit count.
type DomainCount struct {
	Domain string
	Count  int64
}
