package sportsdata

import "time"

// key identifies one cache slot: (operation, league, argument) per spec §4.2.
type key struct {
	op      string
	league  string
	arg     string
}

type cacheEntry struct {
	value     any
	err       error
	fetchedAt time.Time
	ttl       time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.fetchedAt) >= e.ttl
}

// Operation name constants, used both as cache keys and provider_stats labels.
const (
	OpGetEvents       = "get_events"
	OpGetTeamSchedule = "get_team_schedule"
	OpGetTeam         = "get_team"
	OpGetEvent        = "get_event"
	OpGetTeamStats    = "get_team_stats"
	OpGetLeagueTeams  = "get_league_teams"
)

// ttlFor returns the cache TTL for op, applying the date-proximity table
// (§4.2) for get_events.
func ttlFor(op string, date time.Time, now time.Time) time.Duration {
	switch op {
	case OpGetEvents:
		return ttlForGetEvents(date, now)
	case OpGetTeamSchedule:
		return 8 * time.Hour
	case OpGetEvent:
		return 30 * time.Minute
	case OpGetTeamStats:
		return 4 * time.Hour
	case OpGetTeam:
		return 24 * time.Hour
	case OpGetLeagueTeams:
		return 24 * time.Hour
	default:
		return 30 * time.Minute
	}
}

func ttlForGetEvents(date, now time.Time) time.Duration {
	today := truncateDay(now)
	d := truncateDay(date)
	days := int(d.Sub(today).Hours() / 24)
	switch {
	case days < 0:
		return 8 * time.Hour
	case days == 0:
		return 30 * time.Minute
	case days == 1:
		return 4 * time.Hour
	case days >= 2 && days <= 7:
		return 8 * time.Hour
	default: // days >= 8
		return 24 * time.Hour
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
