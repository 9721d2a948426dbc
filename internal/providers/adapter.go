// Package providers holds the capability-set abstraction (§4.1) over
// heterogeneous sports-data backends, plus an ordered registry that the
// Data Service (internal/sportsdata) uses to route a league slug to the
// adapter that should serve it.
package providers

import (
	"context"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// Adapter is the uniform capability set every provider backend implements.
// NotFound results are returned as (nil, nil); only genuine transport/decode
// failures return a non-nil error (TransientProviderError is retried inside
// the adapter's internal/httpclient.Client and never observed here;
// PermanentProviderError propagates as err).
type Adapter interface {
	Name() string
	SupportsLeague(slug string) bool
	ListSupportedLeagues() []string

	GetEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error)
	GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error)
	GetTeam(ctx context.Context, teamID, league string) (*model.Team, error)
	GetEvent(ctx context.Context, eventID, league string) (*model.Event, error)
	GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error)
	GetLeagueTeams(ctx context.Context, league string) ([]model.Team, error)
}
