package manifest

import (
	"database/sql"
	"fmt"
)

// Schema versions:
// 1 - files table keyed by (file, dir), dir index, schema_info table
const CurrentSchemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS files (
		file TEXT NOT NULL,
		dir TEXT NOT NULL,
		type INTEGER NOT NULL,
		size INTEGER,
		last_modified INTEGER,
		digest BLOB,
		PRIMARY KEY (file, dir))`,
	`CREATE INDEX IF NOT EXISTS dir_idx ON files (dir)`,
	`CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL)`,
}

// initSchema establishes the schema on a fresh database and validates the
// version on an existing one.
func initSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	var version int
	err := db.QueryRow(`SELECT version FROM schema_info`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_info (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case version != CurrentSchemaVersion:
		return fmt.Errorf("unsupported schema version %d (want %d)", version, CurrentSchemaVersion)
	}
	return nil
}
