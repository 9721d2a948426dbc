// Package template resolves `{variable[.suffix]}` placeholders (spec
// §4.5) against a rendering Context, and evaluates a TemplateConfig's
// ordered ConditionRule list to pick a description template.
//
// Grounded on the teacher's internal/tuner/xmltv.go normalizeProgrammeText:
// a small text-transform pass keyed off a policy/context struct.
package template

import (
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// Context is the pure-function input for every variable and condition.
type Context struct {
	FocalTeam     model.Team
	Event         model.Event
	TeamStats     *model.TeamStats
	OpponentStats *model.TeamStats
	NextEvent     *model.Event
	LastEvent     *model.Event
	Now           time.Time
	Timezone      *time.Location
}

// opponent returns the non-focal-team side of ctx.Event.
func (c Context) opponent() model.Team {
	if c.Event.Home.ProviderID == c.FocalTeam.ProviderID {
		return c.Event.Away
	}
	return c.Event.Home
}

// isHome reports whether FocalTeam is the home side of ctx.Event.
func (c Context) isHome() bool {
	return c.Event.Home.ProviderID == c.FocalTeam.ProviderID
}
