package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/runnerr0/activity/internal/feed"
)

// ErrNotFound is returned when a visit does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for activity data operations.
type Store interface {
	AddVisit(ctx context.Context, visit *feed.Visit) error
	AddVisitFrom(ctx context.Context, visit *feed.Visit, source string) error
	GetVisit(ctx context.Context, id string) (*feed.Visit, error)
	ListVisits(ctx context.Context, query ListQuery) ([]feed.Visit, error)
	DeleteVisit(ctx context.Context, id string) error
	TopSites(ctx context.Context, limit int) ([]TopSite, error)
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore) error

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(s *SQLiteStore) error {
		s.logger = l
		return nil
	}
}

// WithExclusions adds domain and regex exclusion rules on top of the ones
// stored in the database.
func WithExclusions(domains, patterns []string) Option {
	return func(s *SQLiteStore) error {
		for _, d := range domains {
			s.domainExclusions[strings.ToLower(d)] = true
		}
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("exclusion pattern %q: %w", p, err)
			}
			s.regexExclusions = append(s.regexExclusions, re)
		}
		return nil
	}
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger

	// Prepared statements
	insertVisit *sql.Stmt
	getVisit    *sql.Stmt
	deleteVisit *sql.Stmt
	insertAudit *sql.Stmt

	// Exclusion rules (loaded once at init)
	domainExclusions map[string]bool
	regexExclusions  []*regexp.Regexp
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		db:               db,
		logger:           log.Default(),
		domainExclusions: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	if err := s.loadExclusions(); err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	return s, nil
}

const visitColumns = `id, url, title, provider_name, domain, guid, bookmark_guid,
	last_visit_date, bookmark_date, media, extra, source`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertVisit, err = s.db.Prepare(`
		INSERT INTO visits (` + visitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getVisit, err = s.db.Prepare(`SELECT ` + visitColumns + ` FROM visits WHERE id = ?`)
	if err != nil {
		return err
	}

	s.deleteVisit, err = s.db.Prepare(`DELETE FROM visits WHERE id = ?`)
	if err != nil {
		return err
	}

	s.insertAudit, err = s.db.Prepare(`INSERT INTO audit_log (action, detail, visit_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}

	return nil
}

// loadExclusions loads domain and regex exclusion rules from the database.
func (s *SQLiteStore) loadExclusions() error {
	rows, err := s.db.Query("SELECT rule_type, rule_value FROM exclusions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ruleType, ruleValue string
		if err := rows.Scan(&ruleType, &ruleValue); err != nil {
			return err
		}
		switch ruleType {
		case "domain":
			s.domainExclusions[strings.ToLower(ruleValue)] = true
		case "regex":
			re, err := regexp.Compile(ruleValue)
			if err != nil {
				s.logger.Warn("skipping invalid exclusion regex", "pattern", ruleValue, "err", err)
				continue
			}
			s.regexExclusions = append(s.regexExclusions, re)
		}
	}

	return rows.Err()
}

// IsExcluded reports whether a domain, or any parent domain, is blocked by
// an exclusion rule.
func (s *SQLiteStore) IsExcluded(domain string) bool {
	domain = strings.ToLower(domain)
	for d := domain; d != ""; {
		if s.domainExclusions[d] {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	for _, re := range s.regexExclusions {
		if re.MatchString(domain) {
			return true
		}
	}
	return false
}

// generateID creates a visit ID: VIS- + 8 random hex chars.
func generateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "VIS-" + hex.EncodeToString(b), nil
}

// extractDomain pulls the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func nullMillis(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func millisPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return feed.Millis(n.Int64)
}

// AddVisit inserts a visit. Its ID is generated unless already set. If the
// domain is excluded, the visit is silently skipped (ID remains empty, no
// error). Missing timestamps are stored as NULL.
func (s *SQLiteStore) AddVisit(ctx context.Context, visit *feed.Visit) error {
	return s.AddVisitFrom(ctx, visit, "")
}

// AddVisitFrom is AddVisit with a source label for visits whose record
// carries no "source" field of its own. The label is stored alongside the
// visit and never added to the record.
func (s *SQLiteStore) AddVisitFrom(ctx context.Context, visit *feed.Visit, source string) error {
	if visit.URL == "" {
		return fmt.Errorf("visit has no url")
	}

	domain := extractDomain(visit.URL)
	if s.IsExcluded(domain) {
		s.logger.Debug("skipping excluded visit", "domain", domain)
		visit.ID = ""
		return nil
	}

	if visit.ID == "" {
		id, err := generateID()
		if err != nil {
			return fmt.Errorf("generate ID: %w", err)
		}
		visit.ID = id
	}

	extra := []byte("{}")
	if len(visit.Extra) > 0 {
		var err error
		extra, err = json.Marshal(visit.Extra)
		if err != nil {
			return fmt.Errorf("encode extra fields: %w", err)
		}
	}

	var media []byte
	if visit.Media != nil {
		var err error
		media, err = json.Marshal(visit.Media)
		if err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
	}

	_, err := s.insertVisit.ExecContext(ctx,
		visit.ID, visit.URL, visit.Title, visit.ProviderName, domain,
		visit.GUID, visit.BookmarkGUID,
		nullMillis(visit.LastVisitDate), nullMillis(visit.BookmarkDate),
		string(media), string(extra), sourceOf(visit, source),
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}

	return nil
}

// sourceOf prefers the record's own "source" field, then fallback, then
// "manual".
func sourceOf(v *feed.Visit, fallback string) string {
	var src string
	if raw, ok := v.Extra["source"]; ok && json.Unmarshal(raw, &src) == nil && src != "" {
		return src
	}
	if fallback != "" {
		return fallback
	}
	return "manual"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*feed.Visit, error) {
	var (
		v                     feed.Visit
		domain, source        string
		media, extra          string
		lastVisit, bookmarked sql.NullInt64
	)
	if err := row.Scan(
		&v.ID, &v.URL, &v.Title, &v.ProviderName, &domain, &v.GUID, &v.BookmarkGUID,
		&lastVisit, &bookmarked, &media, &extra, &source,
	); err != nil {
		return nil, err
	}

	v.LastVisitDate = millisPtr(lastVisit)
	v.BookmarkDate = millisPtr(bookmarked)
	if media != "" {
		v.Media = new(feed.Media)
		if err := v.Media.UnmarshalJSON([]byte(media)); err != nil {
			return nil, err
		}
	}
	if extra != "" && extra != "{}" {
		// A corrupt blob loses only the passthrough fields.
		_ = json.Unmarshal([]byte(extra), &v.Extra)
	}
	return &v, nil
}

// GetVisit retrieves a single visit by ID.
func (s *SQLiteStore) GetVisit(ctx context.Context, id string) (*feed.Visit, error) {
	v, err := scanVisit(s.getVisit.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("visit %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

// ListVisits returns visits most recent first. Visits without a last visit
// time sort after all dated ones, newest insert first.
func (s *SQLiteStore) ListVisits(ctx context.Context, q ListQuery) ([]feed.Visit, error) {
	if q.Limit <= 0 {
		q.Limit = 500
	}

	var clauses []string
	var args []any

	if q.Domain != "" {
		clauses = append(clauses, "domain = ?")
		args = append(args, q.Domain)
	}
	if q.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, q.Source)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "last_visit_date >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "last_visit_date <= ?")
		args = append(args, q.Until.UnixMilli())
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := `SELECT ` + visitColumns + ` FROM visits` + where +
		` ORDER BY last_visit_date IS NULL, last_visit_date DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	visits := []feed.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("listed visits", "count", len(visits), "limit", q.Limit, "offset", q.Offset)
	return visits, nil
}

// DeleteVisit removes a visit by ID.
func (s *SQLiteStore) DeleteVisit(ctx context.Context, id string) error {
	res, err := s.deleteVisit.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete visit: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("visit %s: %w", id, ErrNotFound)
	}

	return s.audit(ctx, "delete", "", id)
}

// TopSites returns the most visited URLs, each with the title of its most
// recent visit. Ties go to the more recently visited URL.
func (s *SQLiteStore) TopSites(ctx context.Context, limit int) ([]TopSite, error) {
	if limit <= 0 {
		limit = 6
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.url, COUNT(*) AS cnt, MAX(v.last_visit_date) AS latest,
			(SELECT title FROM visits t WHERE t.url = v.url
				ORDER BY t.last_visit_date IS NULL, t.last_visit_date DESC LIMIT 1),
			(SELECT provider_name FROM visits t WHERE t.url = v.url
				ORDER BY t.last_visit_date IS NULL, t.last_visit_date DESC LIMIT 1),
			MAX(v.domain)
		FROM visits v
		GROUP BY v.url
		ORDER BY cnt DESC, latest IS NULL, latest DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top sites: %w", err)
	}
	defer rows.Close()

	sites := []TopSite{}
	for rows.Next() {
		var ts TopSite
		var latest sql.NullInt64
		if err := rows.Scan(&ts.URL, &ts.VisitCount, &latest, &ts.Title, &ts.ProviderName, &ts.Domain); err != nil {
			return nil, fmt.Errorf("scan top site: %w", err)
		}
		ts.LastVisit = millisPtr(latest)
		sites = append(sites, ts)
	}
	return sites, rows.Err()
}

// CountExpired counts the visits PruneExpired would delete.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM visits WHERE last_visit_date < ?", olderThan.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PruneExpired deletes visits last seen before olderThan. Undated visits
// are kept.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE last_visit_date < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune visits: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	s.logger.Debug("pruned visits", "count", n, "older_than", olderThan.Format(time.RFC3339))
	if err := s.audit(ctx, "prune", fmt.Sprintf("%d visits before %s", n, olderThan.UTC().Format(time.RFC3339)), ""); err != nil {
		return n, err
	}
	return n, nil
}

// PurgeAll deletes every visit.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM visits"); err != nil {
		return fmt.Errorf("purge visits: %w", err)
	}
	return s.audit(ctx, "purge", "all visits", "")
}

func (s *SQLiteStore) audit(ctx context.Context, action, detail, visitID string) error {
	id := sql.NullString{String: visitID, Valid: visitID != ""}
	if _, err := s.insertAudit.ExecContext(ctx, action, detail, id); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(NULLIF(bookmark_guid, '')),
			COUNT(*) - COUNT(last_visit_date),
			MIN(last_visit_date),
			MAX(last_visit_date)
		FROM visits
	`).Scan(&stats.TotalVisits, &stats.TotalBookmarks, &stats.UndatedVisits, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	if oldest.Valid {
		stats.OldestVisit = time.UnixMilli(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestVisit = time.UnixMilli(newest.Int64)
	}

	var lastPrune sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT MAX(ts) FROM audit_log WHERE action = 'prune'").Scan(&lastPrune)
	if err != nil {
		return nil, fmt.Errorf("last prune: %w", err)
	}
	if lastPrune.Valid {
		if t, err := parseTimestamp(lastPrune.String); err != nil {
			s.logger.Debug("ignoring unreadable prune timestamp", "ts", lastPrune.String, "err", err)
		} else {
			stats.LastPrune = t
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT domain, COUNT(*) AS cnt FROM visits GROUP BY domain ORDER BY cnt DESC, domain LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, err
		}
		stats.TopDomains = append(stats.TopDomains, dc)
	}

	return stats, rows.Err()
}

// parseTimestamp tries the formats SQLite and the driver produce for
// DATETIME columns.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.insertVisit, s.getVisit, s.deleteVisit, s.insertAudit}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
