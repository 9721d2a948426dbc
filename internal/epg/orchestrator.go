package epg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/template"
)

// ErrAlreadyRunning is returned by Run when another generation is already
// in progress process-wide (§4.6.5).
var ErrAlreadyRunning = errors.New("epg: a run is already in progress")

// ProgressEvent is emitted to the progress sink at each phase's boundary
// and per-item within a phase (§4.6).
type ProgressEvent struct {
	Phase   string
	Current int
	Total   int
	Item    string
	Percent float64
}

// TeamChannel is one active team channel driving Phase 1.
type TeamChannel struct {
	ChannelID string
	Team      model.Team
	League    string
	Template  model.TemplateConfig
}

// TeamScheduleSource is the subset of internal/sportsdata.Service Phase 1
// needs.
type TeamScheduleSource interface {
	GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error)
	GetTeamStats(ctx context.Context, teamID, league string) (*model.TeamStats, error)
}

// EventGroup is one enabled event group driving Phase 2.
type EventGroup struct {
	GroupID      string
	Streams      []StreamRef
	Template     model.TemplateConfig
	IncludeFinal bool
}

// StreamRef is one raw input stream belonging to an event group.
type StreamRef struct {
	StreamID string
	Name     string
}

// Matcher is the subset of internal/matcher.Matcher Phase 2 needs.
type Matcher interface {
	Match(ctx context.Context, rawName string, opts MatchOptionsLike, generation int64) (MatchOutcome, error)
}

// MatchOptionsLike mirrors matcher.MatchOptions without importing the
// matcher package, keeping the orchestrator decoupled from match internals.
type MatchOptionsLike struct {
	GroupID      string
	StreamID     string
	IncludeFinal bool
}

// MatchOutcome mirrors matcher.MatchResult's fields the orchestrator needs.
type MatchOutcome struct {
	EventID string
	League  string
	Event   model.Event
}

// Settings bundles the run-wide configuration the orchestrator consults.
type Settings struct {
	TeamChannels          []TeamChannel
	EventGroups           []EventGroup
	Lookback              time.Duration
	TeamScheduleDaysAhead int
	EPGOutputDaysAhead    int
	DurationForSport      func(sport string) time.Duration
	FillerPolicy          FillerPolicy
	Now                   time.Time
	Generation            int64
}

// Orchestrator runs generation Phases 1-2 (team channels, event groups);
// channel lifecycle and persistence are done by internal/reconciler and
// internal/store (§4.6).
type Orchestrator struct {
	data    TeamScheduleSource
	matcher Matcher

	running int32 // atomic guard: at most one run process-wide
}

// New builds an Orchestrator.
func New(data TeamScheduleSource, matcher Matcher) *Orchestrator {
	return &Orchestrator{data: data, matcher: matcher}
}

// Run executes Phases 1-2 (team-based and event-based EPG generation),
// producing a RunRecord and the programmes keyed by channel id. Phases 3-4
// (channel lifecycle, persistence) are the caller's responsibility via
// internal/reconciler and internal/store, since they require the
// process-wide managed-channel state this package does not own.
func (o *Orchestrator) Run(ctx context.Context, settings Settings, progress chan<- ProgressEvent) (model.RunRecord, map[string][]model.Programme, error) {
	if !atomic.CompareAndSwapInt32(&o.running, 0, 1) {
		return model.RunRecord{}, nil, ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&o.running, 0)

	record := model.RunRecord{ID: uuid.NewString(), Generation: settings.Generation, StartedAt: time.Now()}
	programmes := make(map[string][]model.Programme)

	emit := func(ev ProgressEvent) {
		if progress == nil {
			return
		}
		select {
		case progress <- ev:
		case <-ctx.Done():
		}
	}

	// Phase 1: team-based EPG.
	emit(ProgressEvent{Phase: "team_epg", Current: 0, Total: len(settings.TeamChannels)})
	for i, tc := range settings.TeamChannels {
		if ctx.Err() != nil {
			record.Status = "aborted"
			record.EndedAt = time.Now()
			return record, programmes, nil
		}
		progs, err := o.renderTeamChannel(ctx, tc, settings)
		if err != nil {
			record.Issues = append(record.Issues, fmt.Sprintf("team_channel %s: %v", tc.ChannelID, err))
		} else {
			programmes[tc.ChannelID] = append(programmes[tc.ChannelID], progs...)
			record.ProgrammesEmitted += len(progs)
			record.EventsProcessed++
		}
		emit(ProgressEvent{Phase: "team_epg", Current: i + 1, Total: len(settings.TeamChannels), Item: tc.ChannelID,
			Percent: percent(i+1, len(settings.TeamChannels))})
	}

	// Phase 2: event-based EPG.
	emit(ProgressEvent{Phase: "event_epg", Current: 0, Total: len(settings.EventGroups)})
	for i, group := range settings.EventGroups {
		if ctx.Err() != nil {
			record.Status = "aborted"
			record.EndedAt = time.Now()
			return record, programmes, nil
		}
		for _, stream := range group.Streams {
			outcome, err := o.matcher.Match(ctx, stream.Name, MatchOptionsLike{
				GroupID: group.GroupID, StreamID: stream.StreamID, IncludeFinal: group.IncludeFinal,
			}, settings.Generation)
			if err != nil {
				record.StreamsMissed++
				record.Issues = append(record.Issues, fmt.Sprintf("stream %s: %v", stream.StreamID, err))
				continue
			}
			record.StreamsMatched++
			duration := effectiveDuration(group.Template, outcome.Event.Sport, settings.DurationForSport)
			prog := model.Programme{
				Start: outcome.Event.Start,
				Stop:  outcome.Event.Start.Add(duration),
				Title: outcome.Event.Home.Name + " vs " + outcome.Event.Away.Name,
			}
			channelKey := group.GroupID + ":" + outcome.EventID
			programmes[channelKey] = append(programmes[channelKey], prog)
			record.ProgrammesEmitted++
		}
		emit(ProgressEvent{Phase: "event_epg", Current: i + 1, Total: len(settings.EventGroups), Item: group.GroupID,
			Percent: percent(i+1, len(settings.EventGroups))})
	}

	if len(record.Issues) > 0 {
		record.Status = "partial"
	} else {
		record.Status = "success"
	}
	record.EndedAt = time.Now()
	return record, programmes, nil
}

func (o *Orchestrator) renderTeamChannel(ctx context.Context, tc TeamChannel, settings Settings) ([]model.Programme, error) {
	windowEnd := settings.Now.AddDate(0, 0, settings.EPGOutputDaysAhead)
	events, err := o.data.GetTeamSchedule(ctx, tc.Team.ProviderID, tc.League, settings.TeamScheduleDaysAhead)
	if err != nil {
		return nil, err
	}
	stats, _ := o.data.GetTeamStats(ctx, tc.Team.ProviderID, tc.League)

	epgStart := computeEPGStart(events, settings.Now, settings.FillerPolicy)

	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	var windowed []model.Event
	for _, ev := range events {
		dur := effectiveDuration(tc.Template, ev.Sport, settings.DurationForSport)
		if ev.Start.Add(dur).Before(epgStart) {
			continue
		}
		if ev.Start.After(windowEnd) {
			continue
		}
		windowed = append(windowed, ev)
	}

	var out []model.Programme
	loc := settings.FillerPolicy.Timezone

	var prevEvent *model.Event
	cursor := epgStart
	for i := range windowed {
		ev := windowed[i]
		dur := effectiveDuration(tc.Template, ev.Sport, settings.DurationForSport)

		if cursor.Before(ev.Start) {
			fillers := BuildFiller(prevEvent, &ev, cursor, ev.Start, settings.FillerPolicy, prevEvent == nil)
			for _, slot := range fillers {
				if p, ok := RenderFiller(slot, tc.Template, tc.Team, settings.Now, loc); ok {
					out = append(out, p)
				}
			}
		}

		title, _ := template.Render(tc.Template.TitlePattern, template.Context{FocalTeam: tc.Team, Event: ev, TeamStats: stats, Now: settings.Now, Timezone: loc})
		subtitle, _ := template.Render(tc.Template.SubtitlePattern, template.Context{FocalTeam: tc.Team, Event: ev, TeamStats: stats, Now: settings.Now, Timezone: loc})
		desc := ""
		if tmpl, ok := template.SelectDescription(tc.Template.Conditions, template.Context{FocalTeam: tc.Team, Event: ev, TeamStats: stats, Now: settings.Now, Timezone: loc}); ok {
			desc, _ = template.Render(tmpl, template.Context{FocalTeam: tc.Team, Event: ev, TeamStats: stats, Now: settings.Now, Timezone: loc})
		}

		out = append(out, model.Programme{
			Start: ev.Start, Stop: ev.Start.Add(dur), Title: title, Subtitle: subtitle, Description: desc,
			Categories: tc.Template.Categories, Live: ev.Status == model.StatusInProgress,
		})

		cursor = ev.Start.Add(dur)
		evCopy := ev
		prevEvent = &evCopy
	}

	if cursor.Before(windowEnd) {
		fillers := BuildFiller(prevEvent, nil, cursor, windowEnd, settings.FillerPolicy, prevEvent == nil && len(windowed) == 0)
		for _, slot := range fillers {
			if p, ok := RenderFiller(slot, tc.Template, tc.Team, settings.Now, loc); ok {
				out = append(out, p)
			}
		}
	}

	return out, nil
}

// computeEPGStart returns the last top-of-hour before now, moved back to the
// earliest start of any event whose status is in_progress, so a game already
// under way is kept (§4.6 Phase 1 step 2).
func computeEPGStart(events []model.Event, now time.Time, policy FillerPolicy) time.Time {
	lastTopOfHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	start := lastTopOfHour
	for _, ev := range events {
		if ev.Status == model.StatusInProgress && ev.Start.Before(start) {
			start = ev.Start
		}
	}
	return start
}

func effectiveDuration(cfg model.TemplateConfig, sport string, durationForSport func(string) time.Duration) time.Duration {
	if cfg.DurationOverride > 0 {
		return cfg.DurationOverride
	}
	if durationForSport != nil {
		return durationForSport(sport)
	}
	return 3*time.Hour + 30*time.Minute
}

func percent(current, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(current) / float64(total) * 100
}
