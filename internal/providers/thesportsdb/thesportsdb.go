// Package thesportsdb is the broad-coverage primary provider adapter
// (spec §4.1), grounded on the teacher's internal/schedulesdirect client
// shape: a small typed HTTP client over a third-party sports catalog, with a
// static slug->upstream-id map standing in for schedulesdirect's station
// harvest/index.
package thesportsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/model"
)

const defaultBaseURL = "https://www.thesportsdb.com/api/v1/json"

// leagueMeta maps a canonical slug to the upstream numeric league id and
// sport, mirroring the predefined-sport-config tables seen across the
// retrieved pack's sports services.
type leagueMeta struct {
	upstreamID string
	sport      string
	name       string
}

var knownLeagues = map[string]leagueMeta{
	"nfl":   {upstreamID: "4391", sport: "football", name: "NFL"},
	"nba":   {upstreamID: "4387", sport: "basketball", name: "NBA"},
	"nhl":   {upstreamID: "4380", sport: "hockey", name: "NHL"},
	"mlb":   {upstreamID: "4424", sport: "baseball", name: "MLB"},
	"eng.1": {upstreamID: "4328", sport: "soccer", name: "English Premier League"},
	"ufc":   {upstreamID: "4443", sport: "mma", name: "UFC"},
}

// Adapter is the primary sports-data backend.
type Adapter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

// New builds an Adapter. apiKey may be empty to use TheSportsDB's shared
// free-tier key ("3").
func New(baseURL, apiKey string, client *httpclient.Client) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if apiKey == "" {
		apiKey = "3"
	}
	if client == nil {
		client = httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy)
	}
	return &Adapter{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (a *Adapter) Name() string { return "thesportsdb" }

// Stats exposes this adapter's HTTP client counters for provider_stats() (§4.2).
func (a *Adapter) Stats() httpclient.Snapshot { return a.client.Stats.Snapshot() }

// ResetStats zeroes this adapter's HTTP client counters for reset_provider_stats() (§4.2).
func (a *Adapter) ResetStats() { a.client.Stats.Reset() }

func (a *Adapter) SupportsLeague(slug string) bool {
	_, ok := knownLeagues[strings.ToLower(slug)]
	return ok
}

func (a *Adapter) ListSupportedLeagues() []string {
	out := make([]string, 0, len(knownLeagues))
	for slug := range knownLeagues {
		out = append(out, slug)
	}
	return out
}

func (a *Adapter) get(ctx context.Context, path string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%s/%s", a.baseURL, a.apiKey, path)
	resp, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("thesportsdb: %s: unexpected status %d: %s", path, resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// GetEvents returns the events scheduled on date in league.
func (a *Adapter) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	meta, ok := knownLeagues[strings.ToLower(league)]
	if !ok {
		return nil, nil
	}
	path := fmt.Sprintf("eventsday.php?d=%s&l=%s", date.Format("2006-01-02"), url.QueryEscape(meta.name))
	body, err := a.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	var resp tsdbEventsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: decode events: %w", err)
	}
	events := make([]model.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		ev, err := e.toEvent(strings.ToLower(league), meta.sport)
		if err != nil {
			continue // malformed upstream row; skip, don't fail the whole fetch
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetTeamSchedule returns teamID's upcoming events (TheSportsDB eventsnext)
// that start within daysAhead days; past events are not fetched.
func (a *Adapter) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	meta, ok := knownLeagues[strings.ToLower(league)]
	if !ok {
		return nil, nil
	}
	body, err := a.get(ctx, fmt.Sprintf("eventsnext.php?id=%s", url.QueryEscape(teamID)))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	var resp tsdbEventsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: decode team schedule: %w", err)
	}
	cutoff := time.Now().AddDate(0, 0, daysAhead)
	events := make([]model.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		ev, err := e.toEvent(strings.ToLower(league), meta.sport)
		if err != nil {
			continue
		}
		if daysAhead > 0 && ev.Start.After(cutoff) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetTeam looks up a single team by upstream id.
func (a *Adapter) GetTeam(ctx context.Context, teamID, league string) (*model.Team, error) {
	body, err := a.get(ctx, fmt.Sprintf("lookupteam.php?id=%s", url.QueryEscape(teamID)))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	var resp tsdbTeamsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: decode team: %w", err)
	}
	if len(resp.Teams) == 0 {
		return nil, nil
	}
	t := resp.Teams[0].toTeam(strings.ToLower(league))
	return &t, nil
}

// GetEvent looks up a single event by upstream id.
func (a *Adapter) GetEvent(ctx context.Context, eventID, league string) (*model.Event, error) {
	meta := knownLeagues[strings.ToLower(league)]
	body, err := a.get(ctx, fmt.Sprintf("lookupevent.php?id=%s", url.QueryEscape(eventID)))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	var resp tsdbEventsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: decode event: %w", err)
	}
	if len(resp.Events) == 0 {
		return nil, nil
	}
	ev, err := resp.Events[0].toEvent(strings.ToLower(league), meta.sport)
	if err != nil {
		return nil, nil
	}
	return &ev, nil
}

// GetTeamStats is unsupported by TheSportsDB's free tier (no standings
// endpoint carrying streak/record context); always returns NotFound. The
// secondary statfeed adapter, or a future adapter, may serve it instead.
func (a *Adapter) GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error) {
	return nil, nil
}

// GetLeagueTeams returns every team registered to league.
func (a *Adapter) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	meta, ok := knownLeagues[strings.ToLower(league)]
	if !ok {
		return nil, nil
	}
	body, err := a.get(ctx, fmt.Sprintf("lookup_all_teams.php?id=%s", url.QueryEscape(meta.upstreamID)))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	var resp tsdbTeamsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("thesportsdb: decode league teams: %w", err)
	}
	teams := make([]model.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		teams = append(teams, t.toTeam(strings.ToLower(league)))
	}
	return teams, nil
}

// --- wire shapes -----------------------------------------------------------

type tsdbEventsResponse struct {
	Events []tsdbEvent `json:"events"`
}

type tsdbEvent struct {
	ID           string `json:"idEvent"`
	HomeTeamID   string `json:"idHomeTeam"`
	AwayTeamID   string `json:"idAwayTeam"`
	HomeTeam     string `json:"strHomeTeam"`
	AwayTeam     string `json:"strAwayTeam"`
	Date         string `json:"dateEvent"`
	Time         string `json:"strTime"`
	Status       string `json:"strStatus"`
	HomeScore    string `json:"intHomeScore"`
	AwayScore    string `json:"intAwayScore"`
	Venue        string `json:"strVenue"`
	ShortName    string `json:"strEventAlternate"`
}

func (e tsdbEvent) toEvent(league, sport string) (model.Event, error) {
	start, err := parseUpstreamTime(e.Date, e.Time)
	if err != nil {
		return model.Event{}, err
	}
	ev := model.Event{
		Provider:   "thesportsdb",
		ProviderID: e.ID,
		LeagueSlug: league,
		Sport:      sport,
		Start:      start,
		Status:     mapStatus(e.Status),
		Home:       model.Team{Provider: "thesportsdb", ProviderID: e.HomeTeamID, Name: e.HomeTeam, LeagueSlug: league, Sport: sport},
		Away:       model.Team{Provider: "thesportsdb", ProviderID: e.AwayTeamID, Name: e.AwayTeam, LeagueSlug: league, Sport: sport},
		Venue:      e.Venue,
		ShortName:  e.ShortName,
	}
	if e.HomeScore != "" && e.AwayScore != "" {
		hs, herr := strconv.Atoi(e.HomeScore)
		as, aerr := strconv.Atoi(e.AwayScore)
		if herr == nil && aerr == nil {
			ev.Score = &model.Score{Home: hs, Away: as}
		}
	}
	return ev, nil
}

func mapStatus(raw string) model.EventStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "NS":
		return model.StatusScheduled
	case "FT", "AOT", "MATCH FINISHED":
		return model.StatusFinal
	case "1H", "2H", "LIVE", "IN PLAY":
		return model.StatusInProgress
	case "PPD", "POSTPONED":
		return model.StatusPostponed
	case "CANC", "CANCELED", "CANCELLED":
		return model.StatusCanceled
	default:
		return model.StatusScheduled
	}
}

func parseUpstreamTime(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("thesportsdb: missing dateEvent")
	}
	if clock == "" {
		clock = "00:00:00"
	}
	return time.Parse("2006-01-02 15:04:05", date+" "+clock)
}

type tsdbTeamsResponse struct {
	Teams []tsdbTeam `json:"teams"`
}

type tsdbTeam struct {
	ID           string `json:"idTeam"`
	Name         string `json:"strTeam"`
	ShortName    string `json:"strTeamShort"`
	Badge        string `json:"strBadge"`
	Stadium      string `json:"strStadium"`
}

func (t tsdbTeam) toTeam(league string) model.Team {
	return model.Team{
		Provider:     "thesportsdb",
		ProviderID:   t.ID,
		Name:         t.Name,
		ShortName:    t.ShortName,
		Abbreviation: t.ShortName,
		LogoURL:      t.Badge,
		LeagueSlug:   league,
	}
}
