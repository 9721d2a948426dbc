// Package sportsdata is the Data Service (spec §4.2): a caching,
// league-routing facade in front of internal/providers' registry. It
// applies date-proximity TTLs, coalesces concurrent misses for the same
// key, and aggregates provider HTTP stats.
//
// Grounded on the teacher's internal/tuner/xmltv.go cache: a
// mutex-guarded map checked before the fetch, re-checked after acquiring
// a per-key lock, generalized here to a keyed, per-operation TTL cache.
package sportsdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/providers"
)

// statsReporter is implemented by adapters that expose HTTP client
// counters; not every Adapter need support it.
type statsReporter interface {
	Stats() httpclient.Snapshot
}

// statsResetter is implemented by adapters whose counters can be zeroed.
type statsResetter interface {
	ResetStats()
}

// Service is the Data Service: it resolves a league to a backend adapter
// via the registry, then caches and coalesces that backend's responses.
type Service struct {
	registry *providers.Registry
	now      func() time.Time

	mu    sync.RWMutex
	cache map[key]cacheEntry

	inflightMu sync.Mutex
	inflight   map[key]*sync.WaitGroup

	hits   int64
	misses int64
	hitMu  sync.Mutex
}

// New builds a Service routing through registry. now defaults to
// time.Now and exists as a seam for tests.
func New(registry *providers.Registry) *Service {
	return &Service{
		registry: registry,
		now:      time.Now,
		cache:    make(map[key]cacheEntry),
		inflight: make(map[key]*sync.WaitGroup),
	}
}

// resolve fetches from cache, coalescing concurrent misses for the same
// key behind a single upstream call.
func (s *Service) resolve(k key, date time.Time, fetch func() (any, error)) (any, error) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.cache[k]
	s.mu.RUnlock()
	if ok && !entry.expired(now) {
		s.recordHit()
		return entry.value, entry.err
	}

	s.inflightMu.Lock()
	if wg, inFlight := s.inflight[k]; inFlight {
		s.inflightMu.Unlock()
		wg.Wait()
		s.mu.RLock()
		entry := s.cache[k]
		s.mu.RUnlock()
		return entry.value, entry.err
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.inflight[k] = wg
	s.inflightMu.Unlock()

	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, k)
		s.inflightMu.Unlock()
		wg.Done()
	}()

	// Re-check under the inflight gate: another goroutine may have
	// populated the cache between our RUnlock and acquiring the gate.
	s.mu.RLock()
	entry, ok = s.cache[k]
	s.mu.RUnlock()
	if ok && !entry.expired(now) {
		s.recordHit()
		return entry.value, entry.err
	}

	s.recordMiss()
	value, err := fetch()
	s.mu.Lock()
	s.cache[k] = cacheEntry{value: value, err: err, fetchedAt: now, ttl: ttlFor(k.op, date, now)}
	s.mu.Unlock()
	return value, err
}

func (s *Service) recordHit() {
	s.hitMu.Lock()
	s.hits++
	s.hitMu.Unlock()
}

func (s *Service) recordMiss() {
	s.hitMu.Lock()
	s.misses++
	s.hitMu.Unlock()
}

// GetEvents returns the events scheduled on date in league.
func (s *Service) GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	k := key{op: OpGetEvents, league: league, arg: date.Format("2006-01-02")}
	v, err := s.resolve(k, date, func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetEvents(ctx, league, date)
	})
	return asEvents(v), err
}

// GetTeamSchedule returns teamID's schedule in league, looking daysAhead
// days into the future.
func (s *Service) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	k := key{op: OpGetTeamSchedule, league: league, arg: fmt.Sprintf("%s:%d", teamID, daysAhead)}
	v, err := s.resolve(k, s.now(), func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetTeamSchedule(ctx, teamID, league, daysAhead)
	})
	return asEvents(v), err
}

// GetTeam looks up teamID in league.
func (s *Service) GetTeam(ctx context.Context, teamID, league string) (*model.Team, error) {
	k := key{op: OpGetTeam, league: league, arg: teamID}
	v, err := s.resolve(k, s.now(), func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetTeam(ctx, teamID, league)
	})
	t, _ := v.(*model.Team)
	return t, err
}

// GetEvent looks up eventID in league.
func (s *Service) GetEvent(ctx context.Context, eventID, league string) (*model.Event, error) {
	k := key{op: OpGetEvent, league: league, arg: eventID}
	v, err := s.resolve(k, s.now(), func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetEvent(ctx, eventID, league)
	})
	ev, _ := v.(*model.Event)
	return ev, err
}

// GetTeamStats looks up teamID's current record/streak/rank in league.
func (s *Service) GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error) {
	k := key{op: OpGetTeamStats, league: league, arg: teamID}
	v, err := s.resolve(k, s.now(), func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetTeamStats(ctx, teamID, league)
	})
	st, _ := v.(*model.TeamStats)
	return st, err
}

// GetLeagueTeams returns every team registered to league.
func (s *Service) GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error) {
	k := key{op: OpGetLeagueTeams, league: league, arg: ""}
	v, err := s.resolve(k, s.now(), func() (any, error) {
		adapter, rerr := s.registry.Resolve(league)
		if rerr != nil {
			return nil, rerr
		}
		return adapter.GetLeagueTeams(ctx, league)
	})
	teams, _ := v.([]model.Team)
	return teams, err
}

func asEvents(v any) []model.Event {
	events, _ := v.([]model.Event)
	return events
}

// CacheStats summarizes the Data Service's own hit/miss counters.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// ProviderStats aggregates per-adapter HTTP counters plus this service's
// own cache hit/miss counters, satisfying provider_stats() (§4.2).
type ProviderStats struct {
	Cache     CacheStats
	Providers map[string]httpclient.Snapshot
}

// ProviderStats returns a snapshot of every registered adapter's HTTP
// counters alongside the service's cache hit/miss totals.
func (s *Service) ProviderStats() ProviderStats {
	s.hitMu.Lock()
	cache := CacheStats{Hits: s.hits, Misses: s.misses}
	s.hitMu.Unlock()

	out := ProviderStats{Cache: cache, Providers: make(map[string]httpclient.Snapshot)}
	for _, adapter := range s.registry.Enabled() {
		if reporter, ok := adapter.(statsReporter); ok {
			out.Providers[adapter.Name()] = reporter.Stats()
		}
	}
	return out
}

// ResetProviderStats zeroes every registered adapter's HTTP counters and
// this service's own cache counters.
func (s *Service) ResetProviderStats() {
	s.hitMu.Lock()
	s.hits, s.misses = 0, 0
	s.hitMu.Unlock()

	for _, adapter := range s.registry.Enabled() {
		if resetter, ok := adapter.(statsResetter); ok {
			resetter.ResetStats()
		}
	}
}

// InvalidateLeague drops every cached entry for league, used after a
// cache refresh forces a re-fetch (§4.3).
func (s *Service) InvalidateLeague(league string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.cache {
		if k.league == league {
			delete(s.cache, k)
		}
	}
}
