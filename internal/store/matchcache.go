package store

import (
	"context"
	"fmt"

	"github.com/teamarr/teamarr/internal/model"
)

// PutMatchCacheEntry upserts a fingerprint's resolved event, so it survives
// process restarts (internal/matcher.FingerprintCache is in-memory only;
// this is its durable backing).
func (s *Store) PutMatchCacheEntry(ctx context.Context, e model.MatchCacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_cache (group_id, stream_id, stream_name, event_id, league_slug, last_seen_generation)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, stream_id) DO UPDATE SET
			stream_name = excluded.stream_name, event_id = excluded.event_id,
			league_slug = excluded.league_slug, last_seen_generation = excluded.last_seen_generation`,
		e.Fingerprint.GroupID, e.Fingerprint.StreamID, e.Fingerprint.StreamName, e.EventID, e.LeagueSlug, e.LastSeenGeneration)
	if err != nil {
		return fmt.Errorf("store: put match cache entry %s/%s: %w", e.Fingerprint.GroupID, e.Fingerprint.StreamID, err)
	}
	return nil
}

// LoadMatchCache reads every entry, for seeding a fresh
// internal/matcher.FingerprintCache on startup.
func (s *Store) LoadMatchCache(ctx context.Context) ([]model.MatchCacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id, stream_id, stream_name, event_id, league_slug, last_seen_generation FROM match_cache`)
	if err != nil {
		return nil, fmt.Errorf("store: load match cache: %w", err)
	}
	defer rows.Close()

	var out []model.MatchCacheEntry
	for rows.Next() {
		var e model.MatchCacheEntry
		if err := rows.Scan(&e.Fingerprint.GroupID, &e.Fingerprint.StreamID, &e.Fingerprint.StreamName, &e.EventID, &e.LeagueSlug, &e.LastSeenGeneration); err != nil {
			return nil, fmt.Errorf("store: scan match cache row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeMatchCache deletes entries stale by maxAge generations or more,
// mirroring internal/matcher.FingerprintCache.Purge's in-memory rule.
func (s *Store) PurgeMatchCache(ctx context.Context, currentGeneration, maxAge int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM match_cache WHERE ? - last_seen_generation >= ?`, currentGeneration, maxAge)
	if err != nil {
		return 0, fmt.Errorf("store: purge match cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge match cache rows affected: %w", err)
	}
	return int(n), nil
}
