// Package store is the persistence layer (spec §4.8): team channels,
// templates, settings, event groups, managed channels, match cache, run
// history, condition presets, exception keywords, and league->provider
// mappings, all in one SQLite database with versioned forward migrations.
// Teams and the team/league cache are not stored: team channels resolve
// their team through a caller-supplied lookup, and the team/league index is
// held in memory by internal/teamcache.
//
// Grounded on the teacher's direct use of modernc.org/sqlite for its own
// channel database, and on internal/catalog.go's atomic-write discipline
// (here expressed as SQL transactions rather than temp-file-then-rename,
// since the storage medium is now relational).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite connection pool. All exported methods are
// safe for concurrent use; database/sql pools connections internally and
// SQLite itself serializes writers.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// reconciles its schema to the latest version.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer discipline avoids SQLITE_BUSY churn

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// migration is one forward step in schema evolution.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS team_channels (
				channel_id TEXT PRIMARY KEY, team_provider TEXT NOT NULL, team_provider_id TEXT NOT NULL,
				league_slug TEXT NOT NULL, template_id TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS templates (
				id TEXT PRIMARY KEY, title_pattern TEXT, subtitle_pattern TEXT,
				conditions_json TEXT, filler_json TEXT, categories_json TEXT,
				channel_name_pattern TEXT, duration_override_ns INTEGER
			)`,
			`CREATE TABLE IF NOT EXISTS settings (id INTEGER PRIMARY KEY CHECK (id = 1), data_json TEXT NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS event_groups (
				id TEXT PRIMARY KEY, enabled INTEGER NOT NULL DEFAULT 1, data_json TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS managed_channels (
				id TEXT PRIMARY KEY, downstream_channel_id TEXT, event_id TEXT NOT NULL,
				home_team_name TEXT, away_team_name TEXT, group_id TEXT,
				name TEXT, number TEXT, m3u_group TEXT, profile TEXT,
				scheduled_delete_at TEXT, created_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_managed_channels_event ON managed_channels(event_id)`,
			`CREATE TABLE IF NOT EXISTS match_cache (
				group_id TEXT NOT NULL, stream_id TEXT NOT NULL, stream_name TEXT NOT NULL,
				event_id TEXT NOT NULL, league_slug TEXT NOT NULL, last_seen_generation INTEGER NOT NULL,
				PRIMARY KEY (group_id, stream_id)
			)`,
			`CREATE TABLE IF NOT EXISTS run_history (
				id TEXT PRIMARY KEY, generation INTEGER NOT NULL, status TEXT NOT NULL,
				started_at TEXT NOT NULL, ended_at TEXT, programmes_emitted INTEGER,
				events_processed INTEGER, streams_matched INTEGER, streams_missed INTEGER,
				issues_json TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS condition_presets (id TEXT PRIMARY KEY, data_json TEXT NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS exception_keywords (group_id TEXT NOT NULL, keyword TEXT NOT NULL, PRIMARY KEY (group_id, keyword))`,
			`CREATE TABLE IF NOT EXISTS league_provider_mappings (league_slug TEXT NOT NULL, provider TEXT NOT NULL, priority INTEGER NOT NULL, enabled INTEGER NOT NULL, PRIMARY KEY (league_slug, provider))`,
		},
	},
}

// migrate applies every migration whose version exceeds the database's
// current schema_meta row, in order, each inside its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("store: create schema_meta: %w", err)
	}

	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("store: migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) currentVersion(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta LIMIT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return v, nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_meta`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}
