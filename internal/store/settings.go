package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// AppSettings is the single user-owned configuration row (§6 Configuration).
// It is stored as one JSON blob since it has no independent keys to query
// by; every field is read as a whole on startup and after edits.
type AppSettings struct {
	EPGOutputDaysAhead     int               `json:"epg_output_days_ahead"`
	TeamScheduleDaysAhead  int               `json:"team_schedule_days_ahead"`
	EventMatchDaysAhead    int               `json:"event_match_days_ahead"`
	EPGLookbackHours       int               `json:"epg_lookback_hours"`
	EPGTimezone            string            `json:"epg_timezone"`
	DurationHoursBySport   map[string]float64 `json:"duration_hours_by_sport"`
	MidnightCrossoverMode  string            `json:"midnight_crossover_mode"`
	MaxProgramHours        float64           `json:"max_program_hours"`
	ChannelCreateTiming    string            `json:"channel_create_timing"`
	ChannelDeleteTiming    string            `json:"channel_delete_timing"`
	LogLevel               string            `json:"log_level"`
	LogDir                 string            `json:"log_dir"`
	LogFormat              string            `json:"log_format"`
	IPTVBaseURL            string            `json:"iptv_base_url"`
	IPTVUsername           string            `json:"iptv_username"`
	IPTVPassword           string            `json:"iptv_password"`
}

// DefaultSettings returns the documented defaults (§6), used the first time
// a fresh database is opened.
func DefaultSettings() AppSettings {
	return AppSettings{
		EPGOutputDaysAhead:    14,
		TeamScheduleDaysAhead: 30,
		EventMatchDaysAhead:   7,
		EPGLookbackHours:      6,
		EPGTimezone:           "UTC",
		DurationHoursBySport: map[string]float64{
			"football": 3.5, "basketball": 3, "hockey": 3, "baseball": 3.5,
			"soccer": 2.5, "mma": 5, "rugby": 2.5, "boxing": 4,
			"tennis": 3, "golf": 6, "racing": 3, "cricket": 4,
		},
		MidnightCrossoverMode: "postgame",
		MaxProgramHours:       6.0,
		ChannelCreateTiming:   "day_of",
		ChannelDeleteTiming:   "end_of_day",
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// GetSettings loads the singleton settings row, seeding it with
// DefaultSettings on first access.
func (s *Store) GetSettings(ctx context.Context) (AppSettings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data_json FROM settings WHERE id = 1`)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			defaults := DefaultSettings()
			if err := s.SaveSettings(ctx, defaults); err != nil {
				return AppSettings{}, err
			}
			return defaults, nil
		}
		return AppSettings{}, fmt.Errorf("store: read settings: %w", err)
	}
	var out AppSettings
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return AppSettings{}, fmt.Errorf("store: unmarshal settings: %w", err)
	}
	return out, nil
}

// SaveSettings overwrites the singleton settings row.
func (s *Store) SaveSettings(ctx context.Context, settings AppSettings) error {
	blob, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, data_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data_json = excluded.data_json`, string(blob))
	if err != nil {
		return fmt.Errorf("store: save settings: %w", err)
	}
	return nil
}
