package epg

import (
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

func TestAlignToNextBoundary(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"before first mark", time.Date(2026, 7, 30, 1, 0, 0, 0, loc), time.Date(2026, 7, 30, 6, 0, 0, 0, loc)},
		{"exactly on mark", time.Date(2026, 7, 30, 12, 0, 0, 0, loc), time.Date(2026, 7, 30, 12, 0, 0, 0, loc)},
		{"after last mark", time.Date(2026, 7, 30, 19, 0, 0, 0, loc), time.Date(2026, 7, 31, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alignToNextBoundary(tt.in, loc)
			if !got.Equal(tt.want) {
				t.Errorf("alignToNextBoundary(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildFiller_betweenTwoGames(t *testing.T) {
	loc := time.UTC
	gPrev := &model.Event{ProviderID: "ev1", Start: time.Date(2026, 7, 30, 13, 0, 0, 0, loc)}
	gNext := &model.Event{ProviderID: "ev2", Start: time.Date(2026, 7, 30, 20, 0, 0, 0, loc)}
	policy := FillerPolicy{MaxProgramHours: 6, PostgameMaxHours: 2, Timezone: loc}

	slots := BuildFiller(gPrev, gNext, gPrev.Start.Add(3*time.Hour), gNext.Start, policy, false)
	if len(slots) == 0 {
		t.Fatal("expected at least one filler slot")
	}
	if slots[0].kind != "postgame" {
		t.Errorf("first slot kind = %q, want postgame", slots[0].kind)
	}
	last := slots[len(slots)-1]
	if !last.stop.Equal(gNext.Start) {
		t.Errorf("last slot stop = %v, want %v", last.stop, gNext.Start)
	}
}

func TestBuildFiller_idleDayNoGames(t *testing.T) {
	loc := time.UTC
	policy := FillerPolicy{MaxProgramHours: 6, Timezone: loc}
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, loc)
	stop := time.Date(2026, 7, 31, 0, 0, 0, 0, loc)
	slots := BuildFiller(nil, nil, start, stop, policy, true)
	for _, s := range slots {
		if s.kind != "idle" {
			t.Errorf("expected idle slot, got %q", s.kind)
		}
	}
	if len(slots) == 0 {
		t.Error("expected idle slots covering the day")
	}
}

func TestRenderFiller_disabledReturnsFalse(t *testing.T) {
	cfg := model.TemplateConfig{FillerPregameEnabled: false}
	slot := fillerSlot{kind: "pregame", start: time.Now(), stop: time.Now().Add(time.Hour)}
	_, ok := RenderFiller(slot, cfg, model.Team{}, time.Now(), time.UTC)
	if ok {
		t.Error("expected RenderFiller to report disabled filler")
	}
}

func TestRenderFiller_enabledRendersTemplate(t *testing.T) {
	cfg := model.TemplateConfig{FillerPregameEnabled: true, FillerPregameTitle: "Pregame: {focal_team}"}
	team := model.Team{Name: "Giants"}
	slot := fillerSlot{kind: "pregame", start: time.Now(), stop: time.Now().Add(time.Hour)}
	prog, ok := RenderFiller(slot, cfg, team, time.Now(), time.UTC)
	if !ok || prog.Title != "Pregame: Giants" {
		t.Errorf("prog = %+v, ok=%v", prog, ok)
	}
	if !prog.IsFiller {
		t.Error("expected IsFiller to be true")
	}
}
