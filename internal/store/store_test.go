package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/epg"
	"github.com/teamarr/teamarr/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teamarr.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_appliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamarr.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open (re-migrate): %v", err)
	}
	defer s2.Close()

	v, err := s2.currentVersion(ctx)
	if err != nil {
		t.Fatalf("currentVersion: %v", err)
	}
	if v != migrations[len(migrations)-1].version {
		t.Errorf("version = %d, want %d", v, migrations[len(migrations)-1].version)
	}
}

func TestSettings_defaultsSeedOnFirstAccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.EPGOutputDaysAhead != 14 {
		t.Errorf("EPGOutputDaysAhead = %d, want 14", got.EPGOutputDaysAhead)
	}

	got.EPGOutputDaysAhead = 21
	if err := s.SaveSettings(ctx, got); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	reread, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings after save: %v", err)
	}
	if reread.EPGOutputDaysAhead != 21 {
		t.Errorf("EPGOutputDaysAhead after save = %d, want 21", reread.EPGOutputDaysAhead)
	}
}

func TestTemplate_roundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := model.TemplateConfig{
		ID: "tpl-1", TitlePattern: "{home} vs {away}",
		Conditions: []model.ConditionRule{{Kind: model.CondIsHome, Priority: 10, Template: "Home game"}},
		FillerPostgameEnabled: true, FillerPostgameTitle: "Postgame",
		Categories: []string{"Sports"}, DurationOverride: 2 * time.Hour,
	}
	if err := s.SaveTemplate(ctx, cfg); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	got, err := s.GetTemplate(ctx, "tpl-1")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.TitlePattern != cfg.TitlePattern || len(got.Conditions) != 1 || got.DurationOverride != cfg.DurationOverride {
		t.Errorf("round-tripped template = %+v", got)
	}
}

func TestGetTemplate_missingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetTemplate(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestManagedChannels_syncIsTransactional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	creates := []model.ManagedChannel{
		{ID: "mc-1", EventID: "ev-1", Name: "Giants vs Patriots", ScheduledDeleteAt: now.Add(6 * time.Hour), CreatedAt: now},
		{ID: "mc-2", EventID: "ev-2", Name: "Bulls vs Celtics", ScheduledDeleteAt: now.Add(8 * time.Hour), CreatedAt: now},
	}
	if err := s.SyncManagedChannels(ctx, creates, nil, nil); err != nil {
		t.Fatalf("SyncManagedChannels create: %v", err)
	}

	list, err := s.ListManagedChannels(ctx)
	if err != nil {
		t.Fatalf("ListManagedChannels: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}

	updated := creates[0]
	updated.Name = "Giants vs Patriots (ESPN)"
	if err := s.SyncManagedChannels(ctx, nil, []model.ManagedChannel{updated}, []string{"mc-2"}); err != nil {
		t.Fatalf("SyncManagedChannels update+delete: %v", err)
	}

	list, err = s.ListManagedChannels(ctx)
	if err != nil {
		t.Fatalf("ListManagedChannels after sync: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1 after delete", len(list))
	}
	if list[0].Name != "Giants vs Patriots (ESPN)" {
		t.Errorf("name = %q", list[0].Name)
	}
}

func TestMatchCache_putLoadPurge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := model.MatchCacheEntry{
		Fingerprint:        model.StreamFingerprint{GroupID: "g1", StreamID: "s1", StreamName: "Giants at Patriots"},
		EventID:            "ev-1", LeagueSlug: "nfl", LastSeenGeneration: 5,
	}
	if err := s.PutMatchCacheEntry(ctx, entry); err != nil {
		t.Fatalf("PutMatchCacheEntry: %v", err)
	}

	loaded, err := s.LoadMatchCache(ctx)
	if err != nil {
		t.Fatalf("LoadMatchCache: %v", err)
	}
	if len(loaded) != 1 || loaded[0].EventID != "ev-1" {
		t.Fatalf("loaded = %+v", loaded)
	}

	purged, err := s.PurgeMatchCache(ctx, 20, 10)
	if err != nil {
		t.Fatalf("PurgeMatchCache: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1 (20-5=15 >= maxAge 10)", purged)
	}
}

func TestRunHistory_listedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := model.RunRecord{ID: "run-1", Generation: 1, Status: "success", StartedAt: time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)}
	newer := model.RunRecord{ID: "run-2", Generation: 2, Status: "success", StartedAt: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)}
	if err := s.SaveRunRecord(ctx, older); err != nil {
		t.Fatalf("SaveRunRecord older: %v", err)
	}
	if err := s.SaveRunRecord(ctx, newer); err != nil {
		t.Fatalf("SaveRunRecord newer: %v", err)
	}

	list, err := s.ListRunHistory(ctx, 0)
	if err != nil {
		t.Fatalf("ListRunHistory: %v", err)
	}
	if len(list) != 2 || list[0].ID != "run-2" {
		t.Fatalf("list = %+v", list)
	}
}

func TestEventGroups_listEnabledOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveTemplate(ctx, model.TemplateConfig{ID: "tpl-evt"}); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	streams := []epg.StreamRef{{StreamID: "s1", Name: "Giants at Patriots"}}
	if err := s.SaveEventGroup(ctx, "g-enabled", true, streams, false, "tpl-evt"); err != nil {
		t.Fatalf("SaveEventGroup enabled: %v", err)
	}
	if err := s.SaveEventGroup(ctx, "g-disabled", false, streams, false, "tpl-evt"); err != nil {
		t.Fatalf("SaveEventGroup disabled: %v", err)
	}

	groups, err := s.ListEnabledEventGroups(ctx)
	if err != nil {
		t.Fatalf("ListEnabledEventGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].GroupID != "g-enabled" {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestLeagueProviderMappings_orderedByPriority(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveLeagueProviderMapping(ctx, LeagueProviderMapping{LeagueSlug: "nfl", Provider: "statfeed", Priority: 2, Enabled: true}); err != nil {
		t.Fatalf("save statfeed: %v", err)
	}
	if err := s.SaveLeagueProviderMapping(ctx, LeagueProviderMapping{LeagueSlug: "nfl", Provider: "thesportsdb", Priority: 1, Enabled: true}); err != nil {
		t.Fatalf("save thesportsdb: %v", err)
	}

	mappings, err := s.LeagueProviderMappings(ctx, "nfl")
	if err != nil {
		t.Fatalf("LeagueProviderMappings: %v", err)
	}
	if len(mappings) != 2 || mappings[0].Provider != "thesportsdb" {
		t.Fatalf("mappings = %+v", mappings)
	}
}
