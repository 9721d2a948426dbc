package epg

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

type stubDataSource struct {
	schedule map[string][]model.Event
	stats    *model.TeamStats
}

func (s *stubDataSource) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	return s.schedule[teamID], nil
}

func (s *stubDataSource) GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error) {
	return s.stats, nil
}

type stubMatcher struct {
	result MatchOutcome
	err    error
}

func (m *stubMatcher) Match(ctx context.Context, rawName string, opts MatchOptionsLike, generation int64) (MatchOutcome, error) {
	return m.result, m.err
}

func TestRun_teamChannelProducesProgrammes(t *testing.T) {
	now := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
	ev := model.Event{ProviderID: "ev1", Sport: "football", Start: now.Add(4 * time.Hour), Home: model.Team{ProviderID: "giants", Name: "Giants"}, Away: model.Team{ProviderID: "patriots", Name: "Patriots"}}
	data := &stubDataSource{schedule: map[string][]model.Event{"giants": {ev}}}
	orch := New(data, &stubMatcher{})

	settings := Settings{
		TeamChannels: []TeamChannel{{
			ChannelID: "ch1", Team: model.Team{ProviderID: "giants", Name: "Giants"}, League: "nfl",
			Template: model.TemplateConfig{TitlePattern: "{focal_team} vs {opponent}"},
		}},
		EPGOutputDaysAhead:    3,
		TeamScheduleDaysAhead: 14,
		Now:                   now,
		DurationForSport:      func(sport string) time.Duration { return 3*time.Hour + 30*time.Minute },
		FillerPolicy:          FillerPolicy{MaxProgramHours: 6, PostgameMaxHours: 1, Timezone: time.UTC},
	}

	record, progs, err := orch.Run(context.Background(), settings, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Status != "success" {
		t.Errorf("status = %q", record.Status)
	}
	chanProgs := progs["ch1"]
	if len(chanProgs) == 0 {
		t.Fatal("expected programmes for ch1")
	}
	found := false
	for _, p := range chanProgs {
		if p.Title == "Giants vs Patriots" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected rendered game programme, got %+v", chanProgs)
	}
}

func TestRun_rejectsConcurrentRuns(t *testing.T) {
	data := &stubDataSource{}
	orch := New(data, &stubMatcher{})
	orch.running = 1 // simulate an in-flight run

	_, _, err := orch.Run(context.Background(), Settings{Now: time.Now()}, nil)
	if err != ErrAlreadyRunning {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestRun_abortsOnCancellation(t *testing.T) {
	data := &stubDataSource{}
	orch := New(data, &stubMatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	settings := Settings{
		TeamChannels: []TeamChannel{{ChannelID: "ch1", Team: model.Team{ProviderID: "t1"}}},
		Now:          time.Now(),
	}
	record, _, err := orch.Run(ctx, settings, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Status != "aborted" {
		t.Errorf("status = %q, want aborted", record.Status)
	}
}

func TestRun_matchedStreamCountsTowardRecord(t *testing.T) {
	data := &stubDataSource{}
	ev := model.Event{ProviderID: "ev1", Start: time.Now(), Home: model.Team{Name: "A"}, Away: model.Team{Name: "B"}}
	orch := New(data, &stubMatcher{result: MatchOutcome{EventID: "ev1", League: "nfl", Event: ev}})

	settings := Settings{
		EventGroups: []EventGroup{{GroupID: "g1", Streams: []StreamRef{{StreamID: "s1", Name: "A at B"}}}},
		Now:         time.Now(),
	}
	record, progs, err := orch.Run(context.Background(), settings, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.StreamsMatched != 1 {
		t.Errorf("StreamsMatched = %d, want 1", record.StreamsMatched)
	}
	if len(progs["g1:ev1"]) != 1 {
		t.Errorf("progs[g1:ev1] = %v, want 1 programme", progs["g1:ev1"])
	}
}
