// Package reconciler owns channel lifecycle (spec §4.7): given the current
// matched-event set and the persisted ManagedChannel set, it decides which
// channels to create, update, and delete, and surfaces orphan/duplicate
// downstream state for the run report.
//
// Grounded on the teacher's dvr-reconciliation idiom (desired-vs-actual
// snapshot compared into a per-instance action classification, with an
// audit list of the decisions made) generalized from Plex DVR instances to
// ManagedChannel rows.
package reconciler

import (
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// CreationTiming selects how far ahead of an event's start a channel may
// be created (§4.7).
type CreationTiming string

const (
	CreateDayOf         CreationTiming = "day_of"
	CreateDayBefore     CreationTiming = "day_before"
	CreateTwoDaysBefore CreationTiming = "2_days_before"
	CreateWeekBefore    CreationTiming = "week_before"
)

// DeletePolicy selects when a channel is deleted after its event ends.
type DeletePolicy string

const (
	DeleteOnStreamRemoved DeletePolicy = "stream_removed"
	DeleteEndOfDay        DeletePolicy = "end_of_day"
	DeleteEndOfNextDay    DeletePolicy = "end_of_next_day"
	DeleteManual          DeletePolicy = "manual"
)

// Settings carries the lifecycle configuration (group-scoped in principle;
// passed per-call here since the reconciler itself is stateless).
type Settings struct {
	CreationTiming CreationTiming
	DeletePolicy   DeletePolicy
	Timezone       *time.Location
}

// MatchedEvent is one event Phase 2 resolved a stream to, carrying the
// channel attributes the reconciler should enforce (§4.7 "settings
// synchronization").
type MatchedEvent struct {
	EventID       string
	GroupID       string
	HomeTeamName  string
	AwayTeamName  string
	Start         time.Time
	SportDuration time.Duration
	Name          string
	Number        string
	M3UGroup      string
	Profile       string
	StreamPresent bool // false once the upstream stream that matched this event disappears
}

// Action is one decision the reconciler made for a single channel.
type Action struct {
	Kind    string // "create" | "sync" | "delete"; "sync" updates an existing channel
	EventID string
	Channel model.ManagedChannel
	Reason  string
}

// Result is the full output of one Reconcile call.
type Result struct {
	Actions    []Action
	Orphans    []string              // downstream channel ids with no ManagedChannel row
	Duplicates [][]model.ManagedChannel // groups of ManagedChannel rows sharing a downstream id
}

// Reconcile compares matched against existing and decides creates,
// updates, and deletes.
func Reconcile(matched []MatchedEvent, existing []model.ManagedChannel, downstreamIDs []string, settings Settings, now time.Time) Result {
	var result Result

	existingByEvent := make(map[string]model.ManagedChannel, len(existing))
	for _, ch := range existing {
		existingByEvent[ch.EventID] = ch
	}
	matchedByEvent := make(map[string]MatchedEvent, len(matched))
	for _, m := range matched {
		matchedByEvent[m.EventID] = m
	}

	for _, m := range matched {
		existingCh, ok := existingByEvent[m.EventID]
		if !ok {
			if !creationTimingSatisfied(m.Start, settings.CreationTiming, now, settings.Timezone) {
				continue
			}
			ch := model.ManagedChannel{
				EventID: m.EventID, GroupID: m.GroupID, HomeTeamName: m.HomeTeamName, AwayTeamName: m.AwayTeamName,
				Name: m.Name, Number: m.Number, M3UGroup: m.M3UGroup, Profile: m.Profile,
				ScheduledDeleteAt: scheduledDeleteAt(m, settings.DeletePolicy, settings.Timezone),
				CreatedAt:         now,
			}
			result.Actions = append(result.Actions, Action{Kind: "create", EventID: m.EventID, Channel: ch, Reason: "new matched event within creation window"})
			continue
		}

		updated := existingCh
		updated.Name, updated.Number, updated.M3UGroup, updated.Profile = m.Name, m.Number, m.M3UGroup, m.Profile
		updated.ScheduledDeleteAt = scheduledDeleteAt(m, settings.DeletePolicy, settings.Timezone)
		if updated != existingCh {
			result.Actions = append(result.Actions, Action{Kind: "sync", EventID: m.EventID, Channel: updated, Reason: "settings out of sync with latest group configuration"})
		}
	}

	for _, ch := range existing {
		if _, stillMatched := matchedByEvent[ch.EventID]; stillMatched {
			continue
		}
		if settings.DeletePolicy == DeleteManual {
			continue
		}
		if !ch.ScheduledDeleteAt.IsZero() && now.Before(ch.ScheduledDeleteAt) {
			continue
		}
		result.Actions = append(result.Actions, Action{Kind: "delete", EventID: ch.EventID, Channel: ch, Reason: "event no longer matched and past scheduled delete time"})
	}

	result.Orphans, result.Duplicates = detectOrphansAndDuplicates(existing, downstreamIDs)
	return result
}

// creationTimingSatisfied reports whether now has reached local midnight
// (in loc) of the day timing names: the event's own day for day_of, or 1, 2
// or 7 days before it.
func creationTimingSatisfied(eventStart time.Time, timing CreationTiming, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	var daysBefore int
	switch timing {
	case CreateDayOf:
		daysBefore = 0
	case CreateDayBefore:
		daysBefore = 1
	case CreateTwoDaysBefore:
		daysBefore = 2
	case CreateWeekBefore:
		daysBefore = 7
	default:
		daysBefore = 1
	}
	local := eventStart.In(loc)
	threshold := time.Date(local.Year(), local.Month(), local.Day()-daysBefore, 0, 0, 0, 0, loc)
	return !now.In(loc).Before(threshold)
}

// scheduledDeleteAt computes event.start + sport_duration + delete offset.
func scheduledDeleteAt(m MatchedEvent, policy DeletePolicy, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	end := m.Start.Add(m.SportDuration)
	switch policy {
	case DeleteOnStreamRemoved:
		return time.Time{} // no fixed time: Reconcile deletes the channel on the first run in which its event is no longer matched
	case DeleteEndOfDay:
		local := end.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	case DeleteEndOfNextDay:
		local := end.In(loc).AddDate(0, 0, 1)
		return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	case DeleteManual:
		return time.Time{}
	default:
		local := end.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	}
}

// detectOrphansAndDuplicates surfaces downstream ids with no ManagedChannel
// row, and ManagedChannel rows sharing the same downstream id (§4.7).
func detectOrphansAndDuplicates(existing []model.ManagedChannel, downstreamIDs []string) ([]string, [][]model.ManagedChannel) {
	knownDownstream := make(map[string]bool, len(existing))
	byDownstream := make(map[string][]model.ManagedChannel)
	for _, ch := range existing {
		if ch.DownstreamChannelID == "" {
			continue
		}
		knownDownstream[ch.DownstreamChannelID] = true
		byDownstream[ch.DownstreamChannelID] = append(byDownstream[ch.DownstreamChannelID], ch)
	}

	var orphans []string
	for _, id := range downstreamIDs {
		if !knownDownstream[id] {
			orphans = append(orphans, id)
		}
	}

	var duplicates [][]model.ManagedChannel
	for _, rows := range byDownstream {
		if len(rows) > 1 {
			duplicates = append(duplicates, rows)
		}
	}
	return orphans, duplicates
}
