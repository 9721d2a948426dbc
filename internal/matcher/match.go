package matcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// NoMatchReason is the closed failure taxonomy (§4.4.8). The matcher never
// panics or returns a bare error for unmatched input.
type NoMatchReason string

const (
	ReasonNoIndicator       NoMatchReason = "no_indicator"
	ReasonUnknownTeamLeft   NoMatchReason = "unknown_team(left)"
	ReasonUnknownTeamRight  NoMatchReason = "unknown_team(right)"
	ReasonNoCandidateLeague NoMatchReason = "no_candidate_league"
	ReasonNoEventFound      NoMatchReason = "no_event_found"
	ReasonAmbiguous         NoMatchReason = "ambiguous"
)

// NoMatch is returned when a stream cannot be resolved to an event.
type NoMatch struct {
	Reason NoMatchReason
}

func (n NoMatch) Error() string { return "no match: " + string(n.Reason) }

// MatchResult is a successful resolution of a stream to an event.
type MatchResult struct {
	EventID    string
	League     string
	Event      model.Event
	Confidence float64

	// Set only on the single-event league path (§4.4.6).
	IsSingleEvent   bool
	SegmentStart    time.Time
	SegmentDuration time.Duration
}

// CandidateLeague is one (league, provider-known team pair) hit, shaped to
// match internal/teamcache.CandidateLeague; the wiring site converts
// between the two so this package has no import on teamcache.
type CandidateLeague struct {
	League string
	TeamA  model.Team
	TeamB  model.Team
}

// DataService is the subset of internal/sportsdata.Service the matcher
// needs to resolve team-pair and single-event league candidates.
type DataService interface {
	GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error)
	GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID, league string) (*model.Event, error)
}

// SingleEventLeague describes a league that holds at most one event per
// day and is identified by keywords rather than a team pair (§4.4.6).
type SingleEventLeague struct {
	Slug     string
	Keywords []string
}

// Matcher resolves stream names to events.
type Matcher struct {
	data       DataService
	candidateLeagues func(teamA, teamB string) []CandidateLeague
	expandGroups     func(selectors []string) []string
	aliases          []Alias
	singleEventLeagues []SingleEventLeague
	eventMatchDaysAhead int

	fp *FingerprintCache
}

// New builds a Matcher. candidateLeagues and expandGroups are typically
// teamcache.Cache.CandidateLeagues / ExpandGroups.
func New(
	data DataService,
	candidateLeagues func(teamA, teamB string) []CandidateLeague,
	expandGroups func(selectors []string) []string,
	aliases []Alias,
	singleEventLeagues []SingleEventLeague,
	eventMatchDaysAhead int,
) *Matcher {
	return &Matcher{
		data:                data,
		candidateLeagues:    candidateLeagues,
		expandGroups:        expandGroups,
		aliases:             aliases,
		singleEventLeagues:  singleEventLeagues,
		eventMatchDaysAhead: eventMatchDaysAhead,
		fp:                  NewFingerprintCache(),
	}
}

// SeedFingerprintCache restores persisted cache entries on startup.
func (m *Matcher) SeedFingerprintCache(entries []model.MatchCacheEntry) {
	m.fp.Seed(entries)
}

// SnapshotFingerprintCache returns every cache entry, for persisting between runs.
func (m *Matcher) SnapshotFingerprintCache() []model.MatchCacheEntry {
	return m.fp.Snapshot()
}

// PurgeFingerprintCache evicts entries stale by at least maxAge generations (§4.4.7).
func (m *Matcher) PurgeFingerprintCache(currentGeneration, maxAge int64) int {
	return m.fp.Purge(currentGeneration, maxAge)
}

// MatchOptions carries per-stream/group configuration affecting matching.
type MatchOptions struct {
	GroupID          string
	StreamID         string
	ExplicitLeagues  []string // group's declared league list, if any (§4.4.3 step 1)
	SoccerAll        bool     // group declares soccer_all (§4.4.3 step 3)
	IncludeFinal     bool     // group opts in to matching final events
}

// Match resolves a raw stream name to an event, consulting the fingerprint
// cache first (§4.4.7).
func (m *Matcher) Match(ctx context.Context, rawName string, opts MatchOptions, generation int64) (MatchResult, error) {
	fingerprint := model.StreamFingerprint{GroupID: opts.GroupID, StreamID: opts.StreamID, StreamName: rawName}

	if entry, ok := m.fp.Get(fingerprint); ok {
		m.fp.BumpSeen(fingerprint, generation)
		// Cache hit: still refetch through the Data Service so odds/score/status
		// stay current, but the match itself (event id, league) is trusted.
		event, err := m.data.GetEvent(ctx, entry.EventID, entry.LeagueSlug)
		if err != nil || event == nil {
			return MatchResult{}, NoMatch{Reason: ReasonNoEventFound}
		}
		return MatchResult{EventID: entry.EventID, League: entry.LeagueSlug, Event: *event, Confidence: 1.00}, nil
	}

	result, err := m.matchFresh(ctx, rawName, opts)
	if err == nil {
		m.fp.Put(fingerprint, result.EventID, result.League, generation)
	}
	return result, err
}

func (m *Matcher) matchFresh(ctx context.Context, rawName string, opts MatchOptions) (MatchResult, error) {
	norm := Normalize(rawName)

	split := FindGameIndicator(norm.Text)
	if !split.Found {
		return m.matchSingleEvent(ctx, norm, opts)
	}

	candidates := m.selectCandidateLeagues(split.Left, split.Right, opts)
	if len(candidates) == 0 {
		return MatchResult{}, NoMatch{Reason: ReasonNoCandidateLeague}
	}

	type leagueAttempt struct {
		league     string
		teamLeft   TeamMatch
		teamRight  TeamMatch
		combined   float64
		orientOK   bool
	}

	var attempts []leagueAttempt
	sawUnknownLeft, sawUnknownRight := true, true
	for _, c := range candidates {
		universe := []model.Team{c.TeamA, c.TeamB}
		left, okLeft := BestTeamMatch(split.Left, c.League, universe, m.aliases)
		right, okRight := BestTeamMatch(split.Right, c.League, universe, m.aliases)
		if okLeft {
			sawUnknownLeft = false
		}
		if okRight {
			sawUnknownRight = false
		}
		if !okLeft || !okRight {
			continue
		}
		orientOK := left.Team.ProviderID == c.TeamA.ProviderID
		attempts = append(attempts, leagueAttempt{
			league: c.League, teamLeft: left, teamRight: right,
			combined: left.Confidence + right.Confidence, orientOK: orientOK,
		})
	}

	if len(attempts) == 0 {
		if sawUnknownLeft {
			return MatchResult{}, NoMatch{Reason: ReasonUnknownTeamLeft}
		}
		if sawUnknownRight {
			return MatchResult{}, NoMatch{Reason: ReasonUnknownTeamRight}
		}
		// each side resolved in some candidate league, never both in the same one
		return MatchResult{}, NoMatch{Reason: ReasonNoCandidateLeague}
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		if attempts[i].combined != attempts[j].combined {
			return attempts[i].combined > attempts[j].combined
		}
		if attempts[i].orientOK != attempts[j].orientOK {
			return attempts[i].orientOK
		}
		return false // remaining ties break on group's configured league order, preserved by selectCandidateLeagues
	})

	chosen := attempts[0]
	return m.resolveEvent(ctx, chosen.league, chosen.teamLeft.Team, chosen.teamRight.Team, norm, opts, (chosen.combined)/2)
}

// selectCandidateLeagues implements §4.4.3.
func (m *Matcher) selectCandidateLeagues(left, right string, opts MatchOptions) []CandidateLeague {
	if len(opts.ExplicitLeagues) > 0 {
		leagues := opts.ExplicitLeagues
		if opts.SoccerAll {
			leagues = m.expandGroups(append(append([]string{}, leagues...), "all soccer leagues"))
		}
		out := make([]CandidateLeague, 0, len(leagues))
		for _, l := range leagues {
			out = append(out, CandidateLeague{League: l})
		}
		return out
	}
	return m.candidateLeagues(left, right)
}

// resolveEvent implements §4.4.5: fetch events in the lookahead window,
// find the one whose competitor set matches, apply tie-breakers in order.
func (m *Matcher) resolveEvent(ctx context.Context, league string, teamA, teamB model.Team, norm Normalized, opts MatchOptions, confidence float64) (MatchResult, error) {
	today := time.Now()
	var events []model.Event
	for d := 0; d <= m.eventMatchDaysAhead; d++ {
		date := today.AddDate(0, 0, d)
		dayEvents, err := m.data.GetEvents(ctx, league, date)
		if err != nil {
			continue
		}
		events = append(events, dayEvents...)
	}

	wantA, wantB := teamA.ProviderID, teamB.ProviderID
	if wantA > wantB {
		wantA, wantB = wantB, wantA
	}
	want := [2]string{wantA, wantB}

	var matches []model.Event
	for _, ev := range events {
		if ev.CompetitorSet() != want {
			continue
		}
		if ev.Status == model.StatusFinal && !opts.IncludeFinal {
			continue
		}
		matches = append(matches, ev)
	}

	if len(matches) == 0 {
		return MatchResult{}, NoMatch{Reason: ReasonNoEventFound}
	}

	chosen := chooseByTieBreakers(matches, norm)
	return MatchResult{
		EventID:    chosen.ProviderID,
		League:     league,
		Event:      chosen,
		Confidence: confidence,
	}, nil
}

func chooseByTieBreakers(matches []model.Event, norm Normalized) model.Event {
	if len(matches) == 1 {
		return matches[0]
	}

	// Tie-break 1: explicit date must equal the event's local date.
	if norm.HasDate {
		var byDate []model.Event
		for _, ev := range matches {
			if ev.Start.Format("2006-01-02") == norm.Date {
				byDate = append(byDate, ev)
			}
		}
		if len(byDate) > 0 {
			matches = byDate
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}

	// Tie-breaks 2-4 in order: explicit time (closest start), then status
	// (in_progress > scheduled > others), then soonest upcoming start.
	sort.SliceStable(matches, func(i, j int) bool {
		if norm.HasTime {
			di, dj := timeDistance(matches[i].Start, norm.Time), timeDistance(matches[j].Start, norm.Time)
			if di != dj {
				return di < dj
			}
		}
		if ri, rj := statusRank(matches[i].Status), statusRank(matches[j].Status); ri != rj {
			return ri < rj
		}
		return matches[i].Start.Before(matches[j].Start)
	})

	return matches[0]
}

func statusRank(s model.EventStatus) int {
	switch s {
	case model.StatusInProgress:
		return 0
	case model.StatusScheduled:
		return 1
	default:
		return 2
	}
}

func timeDistance(t time.Time, clock string) time.Duration {
	pm, am := strings.HasSuffix(clock, "pm"), strings.HasSuffix(clock, "am")
	clock = strings.TrimSuffix(strings.TrimSuffix(clock, "am"), "pm")
	clock = strings.TrimSpace(clock)
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return time.Hour * 9999
	}
	hh, mm := parseIntSafe(parts[0]), parseIntSafe(parts[1])
	if pm && hh < 12 {
		hh += 12
	} else if am && hh == 12 {
		hh = 0
	}
	target := time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, t.Location())
	d := t.Sub(target)
	if d < 0 {
		d = -d
	}
	return d
}

func parseIntSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// matchSingleEvent implements §4.4.6: leagues with <=1 event/day, matched
// by keyword rather than team pair.
func (m *Matcher) matchSingleEvent(ctx context.Context, norm Normalized, opts MatchOptions) (MatchResult, error) {
	for _, sel := range m.singleEventLeagues {
		if !containsAnyKeyword(norm.Text, sel.Keywords) {
			continue
		}
		var candidate *model.Event
		for d := 0; d <= m.eventMatchDaysAhead; d++ {
			date := time.Now().AddDate(0, 0, d)
			events, err := m.data.GetEvents(ctx, sel.Slug, date)
			if err != nil || len(events) == 0 {
				continue
			}
			if len(events) > 1 {
				return MatchResult{}, NoMatch{Reason: ReasonAmbiguous}
			}
			ev := events[0]
			candidate = &ev
			break
		}
		if candidate == nil {
			continue
		}
		result := MatchResult{
			EventID: candidate.ProviderID, League: sel.Slug, Event: *candidate,
			Confidence: 1.00, IsSingleEvent: true,
			SegmentStart: candidate.Start, SegmentDuration: 0,
		}
		switch {
		case strings.Contains(norm.Text, "prelim"):
			result.SegmentStart = candidate.Start
			result.SegmentDuration = candidate.PrelimsDuration
		case strings.Contains(norm.Text, "main"):
			result.SegmentStart = candidate.MainCardStart
		}
		return result, nil
	}
	return MatchResult{}, NoMatch{Reason: ReasonNoIndicator}
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
