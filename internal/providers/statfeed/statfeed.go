// Package statfeed is the narrow-coverage secondary provider adapter
// (spec §4.1): a single-league JSON client, grounded on the teacher's
// internal/provider/probe.go HTTP idiom (plain client.Do, explicit status
// classification, no retry machinery of its own — that lives in
// internal/httpclient.Client).
package statfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/model"
)

// Adapter serves exactly one league from a small JSON feed; it exists to
// demonstrate that adding a backend touches only its registration call site.
type Adapter struct {
	client     *httpclient.Client
	baseURL    string
	apiKey     string
	leagueSlug string
	sport      string
}

// New builds an Adapter bound to a single league slug.
func New(baseURL, apiKey, leagueSlug, sport string, client *httpclient.Client) *Adapter {
	if client == nil {
		client = httpclient.NewClient(60, time.Minute, httpclient.DefaultRetryPolicy)
	}
	return &Adapter{
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		leagueSlug: strings.ToLower(leagueSlug),
		sport:      sport,
	}
}

func (a *Adapter) Name() string { return "statfeed" }

// Stats exposes this adapter's HTTP client counters for provider_stats() (§4.2).
func (a *Adapter) Stats() httpclient.Snapshot { return a.client.Stats.Snapshot() }

// ResetStats zeroes this adapter's HTTP client counters for reset_provider_stats() (§4.2).
func (a *Adapter) ResetStats() { a.client.Stats.Reset() }

func (a *Adapter) SupportsLeague(slug string) bool {
	return strings.ToLower(slug) == a.leagueSlug
}

func (a *Adapter) ListSupportedLeagues() []string { return []string{a.leagueSlug} }

func (a *Adapter) fetch(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("statfeed: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("statfeed: decode %s: %w", path, err)
	}
	return true, nil
}

type sfEvent struct {
	ID        string    `json:"id"`
	HomeID    string    `json:"home_id"`
	AwayID    string    `json:"away_id"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}

func (e sfEvent) toEvent(league, sport string) model.Event {
	return model.Event{
		Provider:   "statfeed",
		ProviderID: e.ID,
		LeagueSlug: league,
		Sport:      sport,
		Start:      e.StartTime,
		Status:     mapStatus(e.Status),
		Home:       model.Team{Provider: "statfeed", ProviderID: e.HomeID, Name: e.Home, LeagueSlug: league, Sport: sport},
		Away:       model.Team{Provider: "statfeed", ProviderID: e.AwayID, Name: e.Away, LeagueSlug: league, Sport: sport},
	}
}

func mapStatus(raw string) model.EventStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "scheduled", "pre":
		return model.StatusScheduled
	case "live", "in_progress":
		return model.StatusInProgress
	case "final", "post":
		return model.StatusFinal
	case "postponed":
		return model.StatusPostponed
	case "canceled", "cancelled":
		return model.StatusCanceled
	default:
		return model.StatusScheduled
	}
}

func (a *Adapter) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out []sfEvent
	ok, err := a.fetch(ctx, fmt.Sprintf("/events?date=%s", date.Format("2006-01-02")), &out)
	if err != nil || !ok {
		return nil, err
	}
	events := make([]model.Event, 0, len(out))
	for _, e := range out {
		events = append(events, e.toEvent(a.leagueSlug, a.sport))
	}
	return events, nil
}

func (a *Adapter) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out []sfEvent
	ok, err := a.fetch(ctx, fmt.Sprintf("/teams/%s/schedule?days=%d", teamID, daysAhead), &out)
	if err != nil || !ok {
		return nil, err
	}
	events := make([]model.Event, 0, len(out))
	for _, e := range out {
		events = append(events, e.toEvent(a.leagueSlug, a.sport))
	}
	return events, nil
}

type sfTeam struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	Abbreviation string `json:"abbreviation"`
	LogoURL      string `json:"logo_url"`
}

func (t sfTeam) toTeam(league, sport string) model.Team {
	return model.Team{
		Provider:     "statfeed",
		ProviderID:   t.ID,
		Name:         t.Name,
		ShortName:    t.ShortName,
		Abbreviation: t.Abbreviation,
		LogoURL:      t.LogoURL,
		Sport:        sport,
		LeagueSlug:   league,
	}
}

func (a *Adapter) GetTeam(ctx context.Context, teamID, league string) (*model.Team, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out sfTeam
	ok, err := a.fetch(ctx, "/teams/"+teamID, &out)
	if err != nil || !ok {
		return nil, err
	}
	t := out.toTeam(a.leagueSlug, a.sport)
	return &t, nil
}

func (a *Adapter) GetEvent(ctx context.Context, eventID, league string) (*model.Event, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out sfEvent
	ok, err := a.fetch(ctx, "/events/"+eventID, &out)
	if err != nil || !ok {
		return nil, err
	}
	ev := out.toEvent(a.leagueSlug, a.sport)
	return &ev, nil
}

type sfTeamStats struct {
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	StreakKind   string `json:"streak_kind"`
	StreakLength int    `json:"streak_length"`
	Rank         int    `json:"rank"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
}

func (a *Adapter) GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out sfTeamStats
	ok, err := a.fetch(ctx, "/teams/"+teamID+"/stats", &out)
	if err != nil || !ok {
		return nil, err
	}
	return &model.TeamStats{
		Record:       model.RecordSnapshot{Wins: out.Wins, Losses: out.Losses, Draws: out.Draws},
		StreakKind:   model.StreakKind(out.StreakKind),
		StreakLength: out.StreakLength,
		Rank:         out.Rank,
		Conference:   out.Conference,
		Division:     out.Division,
	}, nil
}

func (a *Adapter) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	if !a.SupportsLeague(league) {
		return nil, nil
	}
	var out []sfTeam
	ok, err := a.fetch(ctx, "/teams", &out)
	if err != nil || !ok {
		return nil, err
	}
	teams := make([]model.Team, 0, len(out))
	for _, t := range out {
		teams = append(teams, t.toTeam(a.leagueSlug, a.sport))
	}
	return teams, nil
}
