package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teamarr/teamarr/internal/model"
)

// SaveRunRecord inserts or replaces one generation run's audit record.
func (s *Store) SaveRunRecord(ctx context.Context, r model.RunRecord) error {
	issuesJSON, err := json.Marshal(r.Issues)
	if err != nil {
		return fmt.Errorf("store: marshal run issues: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_history (id, generation, status, started_at, ended_at, programmes_emitted, events_processed, streams_matched, streams_missed, issues_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, ended_at = excluded.ended_at, programmes_emitted = excluded.programmes_emitted,
			events_processed = excluded.events_processed, streams_matched = excluded.streams_matched,
			streams_missed = excluded.streams_missed, issues_json = excluded.issues_json`,
		r.ID, r.Generation, r.Status, formatTime(r.StartedAt), formatTime(r.EndedAt),
		r.ProgrammesEmitted, r.EventsProcessed, r.StreamsMatched, r.StreamsMissed, string(issuesJSON))
	if err != nil {
		return fmt.Errorf("store: save run record %s: %w", r.ID, err)
	}
	return nil
}

// ListRunHistory returns the most recent runs, newest first, capped at
// limit (0 means no cap).
func (s *Store) ListRunHistory(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := `SELECT id, generation, status, started_at, ended_at, programmes_emitted, events_processed, streams_matched, streams_missed, issues_json FROM run_history ORDER BY started_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list run history: %w", err)
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var startedAt, endedAt, issuesJSON string
		if err := rows.Scan(&r.ID, &r.Generation, &r.Status, &startedAt, &endedAt, &r.ProgrammesEmitted, &r.EventsProcessed, &r.StreamsMatched, &r.StreamsMissed, &issuesJSON); err != nil {
			return nil, fmt.Errorf("store: scan run history row: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		r.EndedAt = parseTime(endedAt)
		if err := json.Unmarshal([]byte(issuesJSON), &r.Issues); err != nil {
			return nil, fmt.Errorf("store: unmarshal run issues for %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
