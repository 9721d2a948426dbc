package teamcache

import (
	"context"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/providers"
)

// fakeAdapter serves a fixed team roster for one or more leagues.
type fakeAdapter struct {
	name    string
	leagues map[string][]model.Team
}

func (a *fakeAdapter) Name() string { return a.name }
func (a *fakeAdapter) SupportsLeague(l string) bool {
	_, ok := a.leagues[l]
	return ok
}
func (a *fakeAdapter) ListSupportedLeagues() []string {
	out := make([]string, 0, len(a.leagues))
	for l := range a.leagues {
		out = append(out, l)
	}
	return out
}
func (a *fakeAdapter) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (a *fakeAdapter) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	return nil, nil
}
func (a *fakeAdapter) GetTeam(ctx context.Context, teamID, league string) (*model.Team, error) {
	return nil, nil
}
func (a *fakeAdapter) GetEvent(ctx context.Context, eventID, league string) (*model.Event, error) {
	return nil, nil
}
func (a *fakeAdapter) GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error) {
	return nil, nil
}
func (a *fakeAdapter) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	return a.leagues[league], nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	reg := providers.NewRegistry()
	reg.Register("fake", &fakeAdapter{
		name: "fake",
		leagues: map[string][]model.Team{
			"eng.1": {{Name: "Arsenal"}, {Name: "Tottenham Hotspur"}},
			"uefa.cl": {{Name: "Arsenal"}, {Name: "Real Madrid"}},
			"nfl": {{Name: "Giants"}, {Name: "Patriots"}},
		},
	}, 0, true)

	groups := []Group{{Name: "all soccer leagues", Leagues: []string{"eng.1", "uefa.cl"}}}
	c := New(reg, groups)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return c
}

func TestExpandGroups(t *testing.T) {
	c := newTestCache(t)
	got := c.ExpandGroups([]string{"all soccer leagues", "nfl"})
	want := map[string]bool{"eng.1": true, "uefa.cl": true, "nfl": true}
	if len(got) != 3 {
		t.Fatalf("ExpandGroups = %v, want 3 entries", got)
	}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected slug %q", g)
		}
	}
}

func TestLeaguesForTeam_multipleLeagues(t *testing.T) {
	c := newTestCache(t)
	leagues := c.LeaguesForTeam("Arsenal")
	if len(leagues) != 2 {
		t.Fatalf("LeaguesForTeam(Arsenal) = %v, want 2 leagues", leagues)
	}
}

func TestLeaguesForTeam_unknown(t *testing.T) {
	c := newTestCache(t)
	if got := c.LeaguesForTeam("Nonexistent FC"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestCandidateLeagues(t *testing.T) {
	c := newTestCache(t)
	cands := c.CandidateLeagues("Arsenal", "Tottenham Hotspur")
	if len(cands) != 1 || cands[0].League != "eng.1" {
		t.Fatalf("CandidateLeagues = %+v, want single eng.1 match", cands)
	}
}

func TestCandidateLeagues_noOverlap(t *testing.T) {
	c := newTestCache(t)
	cands := c.CandidateLeagues("Arsenal", "Giants")
	if len(cands) != 0 {
		t.Errorf("expected no candidate leagues, got %+v", cands)
	}
}

func TestRefresh_isAtomicSwap(t *testing.T) {
	c := newTestCache(t)
	before := c.BuiltAt()
	time.Sleep(time.Millisecond)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !c.BuiltAt().After(before) {
		t.Error("expected BuiltAt to advance after refresh")
	}
	// Reads remain valid throughout (no panics, no partial state).
	if got := c.LeaguesForTeam("Arsenal"); len(got) != 2 {
		t.Errorf("LeaguesForTeam(Arsenal) after refresh = %v", got)
	}
}
