// Package teamcache maintains a periodically-refreshed reverse index over
// every enabled provider's get_league_teams (spec §4.3): pseudo-group
// expansion, a team's participating leagues, and a matcher prefilter
// (candidate_leagues) over pairs of team names.
//
// Grounded on the same double-checked-lock/atomic-swap idiom used by
// internal/sportsdata, generalized here to atomic.Pointer[index] because
// reads must never block behind a refresh in progress.
package teamcache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/providers"
)

// Group is a named pseudo-group of league slugs, e.g. "all soccer leagues".
type Group struct {
	Name    string
	Leagues []string
}

// index is the immutable snapshot swapped in atomically on each refresh.
type index struct {
	builtAt time.Time

	// teamsByLeague[league][normalized team name] -> Team
	teamsByLeague map[string]map[string]model.Team
	// leaguesForTeam[normalized team name] -> set of league slugs
	leaguesForTeam map[string]map[string]struct{}
}

// Cache is the team/league reverse index.
type Cache struct {
	registry *providers.Registry
	groups   map[string][]string

	current atomic.Pointer[index]

	refreshMu sync.Mutex // serializes concurrent refresh triggers
}

// New builds an empty Cache. Call Refresh before using lookups, or rely on
// a background refresh loop started via StartRefreshLoop.
func New(registry *providers.Registry, groups []Group) *Cache {
	c := &Cache{registry: registry, groups: make(map[string][]string, len(groups))}
	for _, g := range groups {
		c.groups[normalizeKey(g.Name)] = g.Leagues
	}
	c.current.Store(&index{
		builtAt:        time.Time{},
		teamsByLeague:  make(map[string]map[string]model.Team),
		leaguesForTeam: make(map[string]map[string]struct{}),
	})
	return c
}

// Refresh rebuilds the index in a shadow copy from every enabled adapter's
// GetLeagueTeams, then atomically publishes it. Concurrent readers observe
// either the old or new index, never a partial one. Idempotent: callers may
// trigger it on a timer and on demand without coordination.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	next := &index{
		builtAt:        time.Now(),
		teamsByLeague:  make(map[string]map[string]model.Team),
		leaguesForTeam: make(map[string]map[string]struct{}),
	}

	for _, adapter := range c.registry.Enabled() {
		for _, league := range adapter.ListSupportedLeagues() {
			teams, err := adapter.GetLeagueTeams(ctx, league)
			if err != nil || teams == nil {
				continue
			}
			byName := next.teamsByLeague[league]
			if byName == nil {
				byName = make(map[string]model.Team, len(teams))
				next.teamsByLeague[league] = byName
			}
			for _, t := range teams {
				key := normalizeKey(t.Name)
				byName[key] = t
				if next.leaguesForTeam[key] == nil {
					next.leaguesForTeam[key] = make(map[string]struct{})
				}
				next.leaguesForTeam[key][league] = struct{}{}
			}
		}
	}

	c.current.Store(next)
	return nil
}

// StartRefreshLoop runs Refresh once immediately, then every interval until
// ctx is canceled. interval defaults to a weekly cadence if <= 0 (§4.3).
func (c *Cache) StartRefreshLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	go func() {
		_ = c.Refresh(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.Refresh(ctx)
			}
		}
	}()
}

// BuiltAt reports when the currently-published index was built.
func (c *Cache) BuiltAt() time.Time { return c.current.Load().builtAt }

// ExpandGroups expands pseudo-group selectors (e.g. "all soccer leagues")
// and literal league slugs into a flat, deduplicated slug list.
func (c *Cache) ExpandGroups(selectors []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(slug string) {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	for _, sel := range selectors {
		if leagues, ok := c.groups[normalizeKey(sel)]; ok {
			for _, l := range leagues {
				add(l)
			}
			continue
		}
		add(sel)
	}
	return out
}

// LeaguesForTeam returns every league slug in which a team named teamName
// currently participates.
func (c *Cache) LeaguesForTeam(teamName string) []string {
	idx := c.current.Load()
	set, ok := idx.leaguesForTeam[normalizeKey(teamName)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	return out
}

// CandidateLeague is one (league, provider-known team name) hit from
// CandidateLeagues.
type CandidateLeague struct {
	League string
	TeamA  model.Team
	TeamB  model.Team
}

// CandidateLeagues returns the leagues in which both teamA and teamB exist,
// used by the matcher as a search-space prefilter (§4.3, §4.4.3).
func (c *Cache) CandidateLeagues(teamA, teamB string) []CandidateLeague {
	idx := c.current.Load()
	keyA, keyB := normalizeKey(teamA), normalizeKey(teamB)

	leaguesA := idx.leaguesForTeam[keyA]
	leaguesB := idx.leaguesForTeam[keyB]
	if len(leaguesA) == 0 || len(leaguesB) == 0 {
		return nil
	}

	var out []CandidateLeague
	for league := range leaguesA {
		if _, ok := leaguesB[league]; !ok {
			continue
		}
		out = append(out, CandidateLeague{
			League: league,
			TeamA:  idx.teamsByLeague[league][keyA],
			TeamB:  idx.teamsByLeague[league][keyB],
		})
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
