package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teamarr/teamarr/internal/model"
)

// SaveTemplate upserts a TemplateConfig, keyed by cfg.ID.
func (s *Store) SaveTemplate(ctx context.Context, cfg model.TemplateConfig) error {
	conditionsJSON, err := json.Marshal(cfg.Conditions)
	if err != nil {
		return fmt.Errorf("store: marshal conditions: %w", err)
	}
	categoriesJSON, err := json.Marshal(cfg.Categories)
	if err != nil {
		return fmt.Errorf("store: marshal categories: %w", err)
	}
	filler := fillerBlob{
		PregameEnabled: cfg.FillerPregameEnabled, PostgameEnabled: cfg.FillerPostgameEnabled, IdleEnabled: cfg.FillerIdleEnabled,
		PregameTitle: cfg.FillerPregameTitle, PregameDesc: cfg.FillerPregameDesc,
		PostgameTitle: cfg.FillerPostgameTitle, PostgameDesc: cfg.FillerPostgameDesc,
		IdleTitle: cfg.FillerIdleTitle, IdleDesc: cfg.FillerIdleDesc,
	}
	fillerJSON, err := json.Marshal(filler)
	if err != nil {
		return fmt.Errorf("store: marshal filler: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, title_pattern, subtitle_pattern, conditions_json, filler_json, categories_json, channel_name_pattern, duration_override_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title_pattern = excluded.title_pattern, subtitle_pattern = excluded.subtitle_pattern,
			conditions_json = excluded.conditions_json, filler_json = excluded.filler_json,
			categories_json = excluded.categories_json, channel_name_pattern = excluded.channel_name_pattern,
			duration_override_ns = excluded.duration_override_ns`,
		cfg.ID, cfg.TitlePattern, cfg.SubtitlePattern, string(conditionsJSON), string(fillerJSON), string(categoriesJSON),
		cfg.ChannelNamePattern, int64(cfg.DurationOverride))
	if err != nil {
		return fmt.Errorf("store: save template %s: %w", cfg.ID, err)
	}
	return nil
}

// fillerBlob is the JSON-serialized shape of a TemplateConfig's filler
// fields, kept separate from model.TemplateConfig so schema evolution here
// doesn't ripple into the template package.
type fillerBlob struct {
	PregameEnabled  bool   `json:"pregame_enabled"`
	PostgameEnabled bool   `json:"postgame_enabled"`
	IdleEnabled     bool   `json:"idle_enabled"`
	PregameTitle    string `json:"pregame_title"`
	PregameDesc     string `json:"pregame_desc"`
	PostgameTitle   string `json:"postgame_title"`
	PostgameDesc    string `json:"postgame_desc"`
	IdleTitle       string `json:"idle_title"`
	IdleDesc        string `json:"idle_desc"`
}

// GetTemplate loads one TemplateConfig by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (model.TemplateConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT title_pattern, subtitle_pattern, conditions_json, filler_json, categories_json, channel_name_pattern, duration_override_ns FROM templates WHERE id = ?`, id)
	return scanTemplate(row, id)
}

// ListTemplates loads every stored TemplateConfig.
func (s *Store) ListTemplates(ctx context.Context) ([]model.TemplateConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title_pattern, subtitle_pattern, conditions_json, filler_json, categories_json, channel_name_pattern, duration_override_ns FROM templates`)
	if err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}
	defer rows.Close()

	var out []model.TemplateConfig
	for rows.Next() {
		var id string
		var titlePattern, subtitlePattern, conditionsJSON, fillerJSON, categoriesJSON, channelNamePattern string
		var durationNS int64
		if err := rows.Scan(&id, &titlePattern, &subtitlePattern, &conditionsJSON, &fillerJSON, &categoriesJSON, &channelNamePattern, &durationNS); err != nil {
			return nil, fmt.Errorf("store: scan template row: %w", err)
		}
		cfg, err := buildTemplate(id, titlePattern, subtitlePattern, conditionsJSON, fillerJSON, categoriesJSON, channelNamePattern, durationNS)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTemplate(row scannable, id string) (model.TemplateConfig, error) {
	var titlePattern, subtitlePattern, conditionsJSON, fillerJSON, categoriesJSON, channelNamePattern string
	var durationNS int64
	if err := row.Scan(&titlePattern, &subtitlePattern, &conditionsJSON, &fillerJSON, &categoriesJSON, &channelNamePattern, &durationNS); err != nil {
		if err == sql.ErrNoRows {
			return model.TemplateConfig{}, fmt.Errorf("store: template %s: %w", id, ErrNotFound)
		}
		return model.TemplateConfig{}, fmt.Errorf("store: scan template %s: %w", id, err)
	}
	return buildTemplate(id, titlePattern, subtitlePattern, conditionsJSON, fillerJSON, categoriesJSON, channelNamePattern, durationNS)
}

func buildTemplate(id, titlePattern, subtitlePattern, conditionsJSON, fillerJSON, categoriesJSON, channelNamePattern string, durationNS int64) (model.TemplateConfig, error) {
	var conditions []model.ConditionRule
	if err := json.Unmarshal([]byte(conditionsJSON), &conditions); err != nil {
		return model.TemplateConfig{}, fmt.Errorf("store: unmarshal conditions for %s: %w", id, err)
	}
	var categories []string
	if err := json.Unmarshal([]byte(categoriesJSON), &categories); err != nil {
		return model.TemplateConfig{}, fmt.Errorf("store: unmarshal categories for %s: %w", id, err)
	}
	var filler fillerBlob
	if err := json.Unmarshal([]byte(fillerJSON), &filler); err != nil {
		return model.TemplateConfig{}, fmt.Errorf("store: unmarshal filler for %s: %w", id, err)
	}
	return model.TemplateConfig{
		ID: id, TitlePattern: titlePattern, SubtitlePattern: subtitlePattern, Conditions: conditions,
		FillerPregameEnabled: filler.PregameEnabled, FillerPostgameEnabled: filler.PostgameEnabled, FillerIdleEnabled: filler.IdleEnabled,
		FillerPregameTitle: filler.PregameTitle, FillerPregameDesc: filler.PregameDesc,
		FillerPostgameTitle: filler.PostgameTitle, FillerPostgameDesc: filler.PostgameDesc,
		FillerIdleTitle: filler.IdleTitle, FillerIdleDesc: filler.IdleDesc,
		Categories: categories, ChannelNamePattern: channelNamePattern, DurationOverride: durationNSToDuration(durationNS),
	}, nil
}
