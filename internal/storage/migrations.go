package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					venue_slug TEXT NOT NULL,
					venue_name TEXT NOT NULL,
					starts_at DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'scheduled',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_events_venue ON events(venue_slug)`,
				`CREATE INDEX idx_events_starts_at ON events(starts_at)`,

				`CREATE TABLE IF NOT EXISTS catalog_entries (
					id TEXT PRIMARY KEY,
					venue_slug TEXT NOT NULL,
					name TEXT NOT NULL,
					url TEXT,
					local_date TEXT NOT NULL,
					starts_at DATETIME NOT NULL,
					ends_at DATETIME,
					status_code TEXT,
					price_min REAL,
					price_max REAL,
					price_currency TEXT,
					onsale_start DATETIME,
					onsale_end DATETIME,
					sale_windows TEXT,
					image_url TEXT,
					performer_id TEXT,
					performer_name TEXT,
					supporting_acts TEXT,
					segment TEXT,
					genre TEXT,
					subgenre TEXT,
					links TEXT,
					notes TEXT,
					fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_catalog_venue_day ON catalog_entries(venue_slug, local_date)`,

				`CREATE TABLE IF NOT EXISTS match_decisions (
					event_id TEXT PRIMARY KEY,
					external_id TEXT,
					external_name TEXT,
					matched INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					prefer_external_title INTEGER NOT NULL DEFAULT 0,
					last_checked_at DATETIME NOT NULL,
					external_url TEXT,
					ends_at DATETIME,
					price_min REAL,
					price_max REAL,
					price_currency TEXT,
					onsale_start DATETIME,
					onsale_end DATETIME,
					sale_windows TEXT,
					image_url TEXT,
					supporting_acts TEXT,
					segment TEXT,
					genre TEXT,
					subgenre TEXT,
					links TEXT,
					notes TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (event_id) REFERENCES events(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add decision history for auditing",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS decision_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					event_id TEXT NOT NULL,
					external_id TEXT,
					external_name TEXT,
					matched INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (event_id) REFERENCES events(id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_decision_history_event_id ON decision_history(event_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index decisions by matched flag for reporting",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_match_decisions_matched ON match_decisions(matched, source)`)
			return err
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
