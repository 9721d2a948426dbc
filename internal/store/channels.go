package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teamarr/teamarr/internal/epg"
	"github.com/teamarr/teamarr/internal/model"
)

// SaveTeamChannel upserts one active team channel (a TeamConfig in the
// persistence layer's vocabulary, §2). Its template must already exist.
func (s *Store) SaveTeamChannel(ctx context.Context, tc epg.TeamChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_channels (channel_id, team_provider, team_provider_id, league_slug, template_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			team_provider = excluded.team_provider, team_provider_id = excluded.team_provider_id,
			league_slug = excluded.league_slug, template_id = excluded.template_id`,
		tc.ChannelID, tc.Team.Provider, tc.Team.ProviderID, tc.League, tc.Template.ID)
	if err != nil {
		return fmt.Errorf("store: save team channel %s: %w", tc.ChannelID, err)
	}
	return nil
}

// DeleteTeamChannel removes one team channel definition.
func (s *Store) DeleteTeamChannel(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM team_channels WHERE channel_id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("store: delete team channel %s: %w", channelID, err)
	}
	return nil
}

// ListTeamChannels loads every configured team channel, resolving its team
// via resolveTeam (the team/league cache or a provider lookup, since teams
// themselves are read-through and not stored here) and its template inline.
func (s *Store) ListTeamChannels(ctx context.Context, resolveTeam func(provider, providerID, league string) (model.Team, bool)) ([]epg.TeamChannel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, team_provider, team_provider_id, league_slug, template_id FROM team_channels`)
	if err != nil {
		return nil, fmt.Errorf("store: list team channels: %w", err)
	}
	defer rows.Close()

	var out []epg.TeamChannel
	for rows.Next() {
		var channelID, provider, providerID, league, templateID string
		if err := rows.Scan(&channelID, &provider, &providerID, &league, &templateID); err != nil {
			return nil, fmt.Errorf("store: scan team channel row: %w", err)
		}
		cfg, err := s.GetTemplate(ctx, templateID)
		if err != nil {
			return nil, err
		}
		team, _ := resolveTeam(provider, providerID, league)
		out = append(out, epg.TeamChannel{ChannelID: channelID, Team: team, League: league, Template: cfg})
	}
	return out, rows.Err()
}

// eventGroupRow is the JSON blob for an event group's non-relational parts
// (stream list, include_final flag); the group's id/enabled flag and
// template are relational columns.
type eventGroupRow struct {
	Streams      []epg.StreamRef `json:"streams"`
	IncludeFinal bool            `json:"include_final"`
	TemplateID   string          `json:"template_id"`
}

// SaveEventGroup upserts one event group.
func (s *Store) SaveEventGroup(ctx context.Context, groupID string, enabled bool, streams []epg.StreamRef, includeFinal bool, templateID string) error {
	blob, err := json.Marshal(eventGroupRow{Streams: streams, IncludeFinal: includeFinal, TemplateID: templateID})
	if err != nil {
		return fmt.Errorf("store: marshal event group %s: %w", groupID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_groups (id, enabled, data_json) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET enabled = excluded.enabled, data_json = excluded.data_json`,
		groupID, enabled, string(blob))
	if err != nil {
		return fmt.Errorf("store: save event group %s: %w", groupID, err)
	}
	return nil
}

// DeleteEventGroup removes one event group.
func (s *Store) DeleteEventGroup(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM event_groups WHERE id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("store: delete event group %s: %w", groupID, err)
	}
	return nil
}

// ListEnabledEventGroups loads every enabled event group, ready for Phase 2
// of the orchestrator.
func (s *Store) ListEnabledEventGroups(ctx context.Context) ([]epg.EventGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data_json FROM event_groups WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("store: list event groups: %w", err)
	}
	defer rows.Close()

	var out []epg.EventGroup
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("store: scan event group row: %w", err)
		}
		var row eventGroupRow
		if err := json.Unmarshal([]byte(blob), &row); err != nil {
			return nil, fmt.Errorf("store: unmarshal event group %s: %w", id, err)
		}
		cfg, err := s.GetTemplate(ctx, row.TemplateID)
		if err != nil {
			return nil, err
		}
		out = append(out, epg.EventGroup{GroupID: id, Streams: row.Streams, Template: cfg, IncludeFinal: row.IncludeFinal})
	}
	return out, rows.Err()
}
