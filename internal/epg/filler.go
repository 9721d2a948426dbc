// Package epg is the orchestrator (spec §4.6): it drives the team-based and
// event-based generation phases, inserts filler between games, emits XMLTV,
// and hands channel lifecycle off to the reconciler.
//
// Grounded on internal/tuner/xmltv.go: appendDummyGuide's 6-hour-boundary
// slot arithmetic directly informs the filler alignment code below, and
// xmlChannel/xmlProgramme plus the streaming encoder in writeRemappedXMLTV
// inform the emitter in xmltv.go.
package epg

import (
	"time"

	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/template"
)

// MidnightCrossoverMode selects filler behavior when a game crosses
// midnight into a day with no game of its own (§4.6.4).
type MidnightCrossoverMode string

const (
	CrossoverPostgame MidnightCrossoverMode = "postgame"
	CrossoverIdle     MidnightCrossoverMode = "idle"
)

// FillerPolicy carries the settings the filler engine needs.
type FillerPolicy struct {
	MaxProgramHours   float64
	PostgameMaxHours  float64
	MidnightCrossover MidnightCrossoverMode
	Timezone          *time.Location
}

// sixHourMarks are the grid points filler spans align to (§4.6.3).
var sixHourMarks = [4]int{0, 6, 12, 18}

// alignToNextBoundary returns the next 6-hour grid point at or after t, in
// policy's timezone.
func alignToNextBoundary(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	for _, h := range sixHourMarks {
		mark := time.Date(local.Year(), local.Month(), local.Day(), h, 0, 0, 0, loc)
		if !mark.Before(local) {
			return mark
		}
	}
	// past 18:00 local: next boundary is tomorrow 00:00.
	next := local.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
}

// fillerSlot is one filler interval before it's split into 6h-aligned,
// max-program-hours-bounded programmes.
type fillerSlot struct {
	start, stop time.Time
	kind        string // "pregame" | "postgame" | "idle"
	last, next  *model.Event
}

// splitAligned breaks a filler interval into 6h-grid-aligned segments, each
// capped at policy.MaxProgramHours, per §4.6.3. isWindowStart marks the
// very first filler slot of the EPG window, which may start at epg_start
// rather than on a grid boundary.
func splitAligned(slot fillerSlot, policy FillerPolicy, isWindowStart bool) []fillerSlot {
	if !slot.stop.After(slot.start) {
		return nil
	}
	maxDur := time.Duration(policy.MaxProgramHours * float64(time.Hour))
	if maxDur <= 0 {
		maxDur = 6 * time.Hour
	}

	var out []fillerSlot
	cur := slot.start
	first := true
	for cur.Before(slot.stop) {
		var boundary time.Time
		if first && isWindowStart {
			boundary = alignToNextBoundary(cur, policy.Timezone)
			if boundary.Equal(cur) {
				boundary = alignToNextBoundary(cur.Add(time.Nanosecond), policy.Timezone)
			}
		} else {
			boundary = alignToNextBoundary(cur.Add(time.Nanosecond), policy.Timezone)
		}
		first = false

		segEnd := boundary
		if segEnd.After(slot.stop) {
			segEnd = slot.stop
		}
		if segEnd.Sub(cur) > maxDur {
			segEnd = cur.Add(maxDur)
		}
		if !segEnd.After(cur) {
			break
		}
		out = append(out, fillerSlot{start: cur, stop: segEnd, kind: slot.kind, last: slot.last, next: slot.next})
		cur = segEnd
	}
	return out
}

// BuildFiller computes the filler programmes for the interval between
// gPrev and gNext on one channel (§4.6.4). Either may be nil to represent
// the window boundary (before the first game / after the last game).
func BuildFiller(gPrev, gNext *model.Event, windowStart, windowStop time.Time, policy FillerPolicy, isFirstSlotOfWindow bool) []fillerSlot {
	start := windowStart
	stop := windowStop
	if gNext != nil {
		stop = gNext.Start
	}
	if !stop.After(start) {
		return nil
	}

	postgameMax := time.Duration(policy.PostgameMaxHours * float64(time.Hour))

	var slots []fillerSlot
	switch {
	case gPrev != nil && gNext != nil:
		postgameEnd := start.Add(postgameMax)
		if postgameEnd.After(stop) {
			postgameEnd = stop
		}
		slots = append(slots, fillerSlot{start: start, stop: postgameEnd, kind: "postgame", last: gPrev, next: gNext})
		if postgameEnd.Before(stop) {
			slots = append(slots, fillerSlot{start: postgameEnd, stop: stop, kind: "pregame", last: gPrev, next: gNext})
		}
	case gPrev != nil && gNext == nil:
		// last game with nothing after it up to the window end: the whole
		// interval is one postgame slot, or one idle slot when
		// MidnightCrossover is CrossoverIdle; it is not split at midnight.
		kind := "postgame"
		if policy.MidnightCrossover == CrossoverIdle {
			kind = "idle"
		}
		slots = append(slots, fillerSlot{start: start, stop: stop, kind: kind, last: gPrev, next: nil})
	case gPrev == nil && gNext != nil:
		slots = append(slots, fillerSlot{start: start, stop: stop, kind: "pregame", last: nil, next: gNext})
	default:
		slots = append(slots, fillerSlot{start: start, stop: stop, kind: "idle", last: nil, next: nil})
	}

	var out []fillerSlot
	for i, s := range slots {
		out = append(out, splitAligned(s, policy, isFirstSlotOfWindow && i == 0)...)
	}
	return out
}

// RenderFiller turns a filler slot into a Programme using the channel's
// TemplateConfig filler title/description patterns.
func RenderFiller(slot fillerSlot, cfg model.TemplateConfig, focalTeam model.Team, now time.Time, loc *time.Location) (model.Programme, bool) {
	var titlePattern, descPattern string
	var enabled bool
	switch slot.kind {
	case "pregame":
		titlePattern, descPattern, enabled = cfg.FillerPregameTitle, cfg.FillerPregameDesc, cfg.FillerPregameEnabled
	case "postgame":
		titlePattern, descPattern, enabled = cfg.FillerPostgameTitle, cfg.FillerPostgameDesc, cfg.FillerPostgameEnabled
	default:
		titlePattern, descPattern, enabled = cfg.FillerIdleTitle, cfg.FillerIdleDesc, cfg.FillerIdleEnabled
	}
	if !enabled {
		return model.Programme{}, false
	}

	ctx := template.Context{FocalTeam: focalTeam, LastEvent: slot.last, NextEvent: slot.next, Now: now, Timezone: loc}
	if slot.last != nil {
		ctx.Event = *slot.last
	} else if slot.next != nil {
		ctx.Event = *slot.next
	}

	title, _ := template.Render(titlePattern, ctx)
	desc, _ := template.Render(descPattern, ctx)
	return model.Programme{
		Start: slot.start, Stop: slot.stop, Title: title, Description: desc, IsFiller: true,
	}, true
}
