package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teamarr/teamarr/internal/model"
)

// ConditionPreset is a named, reusable ConditionRule set a user can attach
// to multiple templates.
type ConditionPreset struct {
	ID    string
	Rules []model.ConditionRule
}

// SaveConditionPreset upserts one named condition preset.
func (s *Store) SaveConditionPreset(ctx context.Context, p ConditionPreset) error {
	blob, err := json.Marshal(p.Rules)
	if err != nil {
		return fmt.Errorf("store: marshal condition preset %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO condition_presets (id, data_json) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data_json = excluded.data_json`, p.ID, string(blob))
	if err != nil {
		return fmt.Errorf("store: save condition preset %s: %w", p.ID, err)
	}
	return nil
}

// ListConditionPresets loads every stored condition preset.
func (s *Store) ListConditionPresets(ctx context.Context) ([]ConditionPreset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data_json FROM condition_presets`)
	if err != nil {
		return nil, fmt.Errorf("store: list condition presets: %w", err)
	}
	defer rows.Close()

	var out []ConditionPreset
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("store: scan condition preset row: %w", err)
		}
		var rules []model.ConditionRule
		if err := json.Unmarshal([]byte(blob), &rules); err != nil {
			return nil, fmt.Errorf("store: unmarshal condition preset %s: %w", id, err)
		}
		out = append(out, ConditionPreset{ID: id, Rules: rules})
	}
	return out, rows.Err()
}

// AddExceptionKeyword registers one keyword the matcher's bracketed-tag
// stripper (§4.4.1) must preserve for a given event group, e.g. a league
// abbreviation that would otherwise be stripped as generic noise.
func (s *Store) AddExceptionKeyword(ctx context.Context, groupID, keyword string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO exception_keywords (group_id, keyword) VALUES (?, ?)`, groupID, keyword)
	if err != nil {
		return fmt.Errorf("store: add exception keyword %q for %s: %w", keyword, groupID, err)
	}
	return nil
}

// RemoveExceptionKeyword un-registers one keyword.
func (s *Store) RemoveExceptionKeyword(ctx context.Context, groupID, keyword string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exception_keywords WHERE group_id = ? AND keyword = ?`, groupID, keyword)
	if err != nil {
		return fmt.Errorf("store: remove exception keyword %q for %s: %w", keyword, groupID, err)
	}
	return nil
}

// ExceptionKeywords lists the keywords registered for one event group.
func (s *Store) ExceptionKeywords(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT keyword FROM exception_keywords WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: list exception keywords for %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("store: scan exception keyword row: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// LeagueProviderMapping records which provider serves a league and at what
// priority, so the Data Service's registry resolution (§4.1) has a
// user-overridable source of truth instead of a hardcoded table.
type LeagueProviderMapping struct {
	LeagueSlug string
	Provider   string
	Priority   int
	Enabled    bool
}

// SaveLeagueProviderMapping upserts one league/provider pairing.
func (s *Store) SaveLeagueProviderMapping(ctx context.Context, m LeagueProviderMapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO league_provider_mappings (league_slug, provider, priority, enabled) VALUES (?, ?, ?, ?)
		ON CONFLICT(league_slug, provider) DO UPDATE SET priority = excluded.priority, enabled = excluded.enabled`,
		m.LeagueSlug, m.Provider, m.Priority, m.Enabled)
	if err != nil {
		return fmt.Errorf("store: save league provider mapping %s/%s: %w", m.LeagueSlug, m.Provider, err)
	}
	return nil
}

// LeagueProviderMappings lists every mapping for one league, ordered by
// priority ascending (lowest tried first).
func (s *Store) LeagueProviderMappings(ctx context.Context, leagueSlug string) ([]LeagueProviderMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT league_slug, provider, priority, enabled FROM league_provider_mappings WHERE league_slug = ? ORDER BY priority ASC`, leagueSlug)
	if err != nil {
		return nil, fmt.Errorf("store: list league provider mappings for %s: %w", leagueSlug, err)
	}
	defer rows.Close()

	var out []LeagueProviderMapping
	for rows.Next() {
		var m LeagueProviderMapping
		if err := rows.Scan(&m.LeagueSlug, &m.Provider, &m.Priority, &m.Enabled); err != nil {
			return nil, fmt.Errorf("store: scan league provider mapping row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
