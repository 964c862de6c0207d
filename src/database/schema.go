package database

import (
	"fmt"
	"strings"
)

// SchemaVersion is bumped whenever the table layout changes
const SchemaVersion = 1

// schemaTemplate uses %[1]s for the auto-incrementing key column type, which
// differs per driver. Timestamps are stored as RFC 3339 UTC text so range
// comparisons behave identically on every supported database.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_users (
	userkey %[1]s,
	username TEXT NOT NULL,
	network TEXT NOT NULL,
	language TEXT NOT NULL,
	subscribed BOOLEAN NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (username, network)
);

CREATE TABLE IF NOT EXISTS alert_locations (
	location_key %[1]s,
	userkey BIGINT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_log (
	id %[1]s,
	userkey BIGINT NOT NULL,
	location_key BIGINT NOT NULL,
	event TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	pkey %[1]s,
	created_at TEXT NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	url TEXT NOT NULL,
	image_url TEXT NOT NULL,
	disaster_type TEXT NOT NULL,
	report_data TEXT NOT NULL,
	tags TEXT NOT NULL,
	city TEXT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at);

CREATE INDEX IF NOT EXISTS idx_reports_city ON reports (city);

CREATE INDEX IF NOT EXISTS idx_alert_locations_userkey ON alert_locations (userkey);
`

// keyColumn returns the auto-incrementing primary key column type per driver
func keyColumn(driver string) string {
	switch driver {
	case "pgx":
		return "BIGSERIAL PRIMARY KEY"
	case "mysql":
		return "BIGINT PRIMARY KEY AUTO_INCREMENT"
	case "mssql":
		return "BIGINT IDENTITY(1,1) PRIMARY KEY"
	default: // sqlite
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// InitSchema creates the tables and records the schema version on first run
func (db *DB) InitSchema() error {
	schema := fmt.Sprintf(schemaTemplate, keyColumn(db.driver))

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	var current int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if current == 0 {
		if _, err := db.Exec(db.Rebind("INSERT INTO schema_version (version) VALUES (?)"), SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}
