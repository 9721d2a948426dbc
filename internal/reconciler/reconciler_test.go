package reconciler

import (
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

func TestReconcile_createsNewChannelWithinWindow(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	matched := []MatchedEvent{{EventID: "ev1", Start: now.Add(6 * time.Hour), SportDuration: 3 * time.Hour, Name: "Giants vs Patriots"}}
	settings := Settings{CreationTiming: CreateDayOf, DeletePolicy: DeleteEndOfDay, Timezone: time.UTC}

	result := Reconcile(matched, nil, nil, settings, now)
	if len(result.Actions) != 1 || result.Actions[0].Kind != "create" {
		t.Fatalf("actions = %+v", result.Actions)
	}
}

func TestReconcile_skipsCreateOutsideWindow(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	matched := []MatchedEvent{{EventID: "ev1", Start: now.Add(72 * time.Hour), SportDuration: 3 * time.Hour}}
	settings := Settings{CreationTiming: CreateDayBefore, Timezone: time.UTC}

	result := Reconcile(matched, nil, nil, settings, now)
	if len(result.Actions) != 0 {
		t.Errorf("expected no actions outside creation window, got %+v", result.Actions)
	}
}

func TestReconcile_deletesPastScheduledTime(t *testing.T) {
	now := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	existing := []model.ManagedChannel{{
		EventID: "ev-gone", ScheduledDeleteAt: now.Add(-time.Hour),
	}}
	settings := Settings{DeletePolicy: DeleteEndOfDay, Timezone: time.UTC}

	result := Reconcile(nil, existing, nil, settings, now)
	if len(result.Actions) != 1 || result.Actions[0].Kind != "delete" {
		t.Fatalf("actions = %+v", result.Actions)
	}
}

func TestReconcile_manualPolicyNeverAutoDeletes(t *testing.T) {
	now := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	existing := []model.ManagedChannel{{EventID: "ev-gone", ScheduledDeleteAt: now.Add(-time.Hour)}}
	settings := Settings{DeletePolicy: DeleteManual, Timezone: time.UTC}

	result := Reconcile(nil, existing, nil, settings, now)
	if len(result.Actions) != 0 {
		t.Errorf("expected no delete under manual policy, got %+v", result.Actions)
	}
}

func TestReconcile_syncsOutOfDateSettings(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	existing := []model.ManagedChannel{{EventID: "ev1", Name: "Old Name"}}
	matched := []MatchedEvent{{EventID: "ev1", Start: now.Add(time.Hour), SportDuration: time.Hour, Name: "New Name"}}
	settings := Settings{CreationTiming: CreateDayOf, DeletePolicy: DeleteEndOfDay, Timezone: time.UTC}

	result := Reconcile(matched, existing, nil, settings, now)
	if len(result.Actions) != 1 || result.Actions[0].Kind != "sync" {
		t.Fatalf("actions = %+v", result.Actions)
	}
	if result.Actions[0].Channel.Name != "New Name" {
		t.Errorf("synced name = %q", result.Actions[0].Channel.Name)
	}
}

func TestReconcile_detectsOrphansAndDuplicates(t *testing.T) {
	existing := []model.ManagedChannel{
		{EventID: "ev1", DownstreamChannelID: "d1"},
		{EventID: "ev2", DownstreamChannelID: "d1"}, // duplicate: same downstream id
	}
	downstream := []string{"d1", "d-orphan"}

	result := Reconcile(nil, existing, downstream, Settings{Timezone: time.UTC}, time.Now())
	if len(result.Orphans) != 1 || result.Orphans[0] != "d-orphan" {
		t.Errorf("orphans = %v", result.Orphans)
	}
	if len(result.Duplicates) != 1 || len(result.Duplicates[0]) != 2 {
		t.Errorf("duplicates = %v", result.Duplicates)
	}
}

func TestCreationTimingSatisfied_weekBefore(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	eventStart := now.Add(6 * 24 * time.Hour)
	if !creationTimingSatisfied(eventStart, CreateWeekBefore, now, time.UTC) {
		t.Error("expected week-before window to be satisfied at exactly 6 days out... checking boundary")
	}
	tooFar := now.Add(8 * 24 * time.Hour)
	if creationTimingSatisfied(tooFar, CreateWeekBefore, now, time.UTC) {
		t.Error("expected week-before window not satisfied 8 days out")
	}
}
