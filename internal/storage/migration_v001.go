package storage

import "database/sql"

// migrateV001 creates the initial activity schema: tables, indexes and the
// built-in exclusion rules. Every statement uses IF NOT EXISTS for
// idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS visits (
			id              TEXT PRIMARY KEY,
			url             TEXT NOT NULL,
			title           TEXT NOT NULL DEFAULT '',
			provider_name   TEXT NOT NULL DEFAULT '',
			domain          TEXT NOT NULL DEFAULT '',
			guid            TEXT NOT NULL DEFAULT '',
			bookmark_guid   TEXT NOT NULL DEFAULT '',
			last_visit_date INTEGER,
			bookmark_date   INTEGER,
			media_type      TEXT NOT NULL DEFAULT '',
			preview_url     TEXT NOT NULL DEFAULT '',
			extra           TEXT NOT NULL DEFAULT '{}',
			source          TEXT NOT NULL DEFAULT 'manual',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS exclusions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_type  TEXT NOT NULL CHECK (rule_type IN ('domain', 'regex')),
			rule_value TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			is_default BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(rule_type, rule_value)
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			action   TEXT NOT NULL,
			detail   TEXT NOT NULL DEFAULT '',
			visit_id TEXT,
			ts       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_visits_last_visit ON visits(last_visit_date)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_domain     ON visits(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_url        ON visits(url)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_source     ON visits(source)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_rule   ON exclusions(rule_type, rule_value)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action  ON audit_log(action, ts)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// ── Default exclusion rules ────────────────────────────────
	return seedDefaultExclusions(tx)
}

// seedDefaultExclusions inserts the built-in rules. Uses INSERT OR IGNORE
// so re-running is safe. The long domain denylist lives in config and is
// applied by the store at open time.
func seedDefaultExclusions(tx *sql.Tx) error {
	type rule struct {
		RuleType  string
		RuleValue string
		Reason    string
	}

	defaults := []rule{
		{"domain", "accounts.google.com", "Auth provider - credential privacy"},
		{"domain", "login.microsoftonline.com", "Auth provider - credential privacy"},
		{"domain", "localhost", "Local development"},
		{"regex", `.*\.xxx$`, "Adult content exclusion"},
		{"regex", `.*pornhub\.com$`, "Adult content exclusion"},
	}

	const insertSQL = `INSERT OR IGNORE INTO exclusions (rule_type, rule_value, reason, is_default) VALUES (?, ?, ?, 1)`

	for _, r := range defaults {
		if _, err := tx.Exec(insertSQL, r.RuleType, r.RuleValue, r.Reason); err != nil {
			return err
		}
	}

	return nil
}
