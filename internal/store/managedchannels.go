package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// SyncManagedChannels applies one reconciler pass's worth of changes
// (creates, syncs, deletes) in a single transaction, so a crash mid-sync
// never leaves the table half-applied against what the downstream IPTV
// manager actually holds.
func (s *Store) SyncManagedChannels(ctx context.Context, creates, updates []model.ManagedChannel, deleteIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin managed channel sync: %w", err)
	}
	defer tx.Rollback()

	for _, mc := range creates {
		if err := insertManagedChannel(ctx, tx, mc); err != nil {
			return err
		}
	}
	for _, mc := range updates {
		if err := updateManagedChannel(ctx, tx, mc); err != nil {
			return err
		}
	}
	for _, id := range deleteIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM managed_channels WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete managed channel %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func insertManagedChannel(ctx context.Context, tx *sql.Tx, mc model.ManagedChannel) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO managed_channels (id, downstream_channel_id, event_id, home_team_name, away_team_name, group_id, name, number, m3u_group, profile, scheduled_delete_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mc.ID, mc.DownstreamChannelID, mc.EventID, mc.HomeTeamName, mc.AwayTeamName, mc.GroupID,
		mc.Name, mc.Number, mc.M3UGroup, mc.Profile, formatTime(mc.ScheduledDeleteAt), formatTime(mc.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: insert managed channel %s: %w", mc.ID, err)
	}
	return nil
}

func updateManagedChannel(ctx context.Context, tx *sql.Tx, mc model.ManagedChannel) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE managed_channels SET downstream_channel_id = ?, home_team_name = ?, away_team_name = ?,
			group_id = ?, name = ?, number = ?, m3u_group = ?, profile = ?, scheduled_delete_at = ?
		WHERE id = ?`,
		mc.DownstreamChannelID, mc.HomeTeamName, mc.AwayTeamName, mc.GroupID, mc.Name, mc.Number,
		mc.M3UGroup, mc.Profile, formatTime(mc.ScheduledDeleteAt), mc.ID)
	if err != nil {
		return fmt.Errorf("store: update managed channel %s: %w", mc.ID, err)
	}
	return nil
}

// ListManagedChannels loads every managed channel, for the reconciler's next
// pass.
func (s *Store) ListManagedChannels(ctx context.Context) ([]model.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, downstream_channel_id, event_id, home_team_name, away_team_name, group_id, name, number, m3u_group, profile, scheduled_delete_at, created_at FROM managed_channels`)
	if err != nil {
		return nil, fmt.Errorf("store: list managed channels: %w", err)
	}
	defer rows.Close()

	var out []model.ManagedChannel
	for rows.Next() {
		var mc model.ManagedChannel
		var scheduledDeleteAt, createdAt string
		if err := rows.Scan(&mc.ID, &mc.DownstreamChannelID, &mc.EventID, &mc.HomeTeamName, &mc.AwayTeamName,
			&mc.GroupID, &mc.Name, &mc.Number, &mc.M3UGroup, &mc.Profile, &scheduledDeleteAt, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan managed channel row: %w", err)
		}
		mc.ScheduledDeleteAt = parseTime(scheduledDeleteAt)
		mc.CreatedAt = parseTime(createdAt)
		out = append(out, mc)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
