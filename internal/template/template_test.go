package template

import (
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

func baseContext() Context {
	return Context{
		FocalTeam: model.Team{ProviderID: "giants", Name: "Giants"},
		Event: model.Event{
			ProviderID: "ev1",
			Home:       model.Team{ProviderID: "giants", Name: "Giants"},
			Away:       model.Team{ProviderID: "patriots", Name: "Patriots"},
			Start:      time.Date(2026, 7, 30, 20, 15, 0, 0, time.UTC),
			Sport:      "football",
		},
		TeamStats: &model.TeamStats{Record: model.RecordSnapshot{Wins: 10, Losses: 2}, StreakKind: model.StreakWin, StreakLength: 3},
		Now:       time.Now(),
	}
}

func TestRender_basicVariables(t *testing.T) {
	out, unresolved := Render("{focal_team} vs {opponent} ({record})", baseContext())
	if out != "Giants vs Patriots (10-2)" {
		t.Errorf("out = %q", out)
	}
	if len(unresolved) != 0 {
		t.Errorf("unresolved = %v", unresolved)
	}
}

func TestRender_unresolvedPlaceholderEmitsEmptyAndRecords(t *testing.T) {
	ctx := baseContext()
	ctx.Event.Odds = nil
	out, unresolved := Render("Spread: {spread}", ctx)
	if out != "Spread: " {
		t.Errorf("out = %q", out)
	}
	if len(unresolved) != 1 || unresolved[0].Placeholder != "{spread}" {
		t.Errorf("unresolved = %v", unresolved)
	}
}

func TestRender_nextSuffixUsesNextEvent(t *testing.T) {
	ctx := baseContext()
	ctx.NextEvent = &model.Event{Home: model.Team{Name: "Giants"}, Away: model.Team{Name: "Cowboys"}}
	out, _ := Render("{away_team.next}", ctx)
	if out != "Cowboys" {
		t.Errorf("out = %q", out)
	}
}

func TestRender_lastSuffixMissingIsUnresolved(t *testing.T) {
	ctx := baseContext()
	out, unresolved := Render("{away_team.last}", ctx)
	if out != "" || len(unresolved) != 1 {
		t.Errorf("out=%q unresolved=%v", out, unresolved)
	}
}

func TestSelectDescription_firstMatchWins(t *testing.T) {
	rules := []model.ConditionRule{
		{Kind: model.CondWinStreakGE, IntValue: 3, Priority: 1, Template: "on fire"},
		{Kind: model.CondIsHome, Priority: 2, Template: "home game"},
		{Priority: 100, Template: "default"},
	}
	tmpl, ok := SelectDescription(rules, baseContext())
	if !ok || tmpl != "on fire" {
		t.Fatalf("tmpl = %q, ok=%v", tmpl, ok)
	}
}

func TestSelectDescription_fallsThroughToDefault(t *testing.T) {
	rules := []model.ConditionRule{
		{Kind: model.CondIsAway, Priority: 1, Template: "away game"},
		{Priority: 100, Template: "default"},
	}
	tmpl, ok := SelectDescription(rules, baseContext())
	if !ok || tmpl != "default" {
		t.Fatalf("tmpl = %q, ok=%v", tmpl, ok)
	}
}

func TestSelectDescription_seededTieBreakIsStableForSameContext(t *testing.T) {
	rules := []model.ConditionRule{
		{Priority: 100, Template: "a"},
		{Priority: 100, Template: "b"},
		{Priority: 100, Template: "c"},
	}
	ctx := baseContext()
	first, _ := SelectDescription(rules, ctx)
	second, _ := SelectDescription(rules, ctx)
	if first != second {
		t.Errorf("expected stable pick for identical context, got %q then %q", first, second)
	}
}

func TestSelectDescription_unknownConditionNeverMatches(t *testing.T) {
	rules := []model.ConditionRule{
		{Kind: model.ConditionKind("made_up"), Priority: 1, Template: "nope"},
		{Priority: 100, Template: "default"},
	}
	tmpl, ok := SelectDescription(rules, baseContext())
	if !ok || tmpl != "default" {
		t.Fatalf("tmpl = %q, ok=%v", tmpl, ok)
	}
}

func TestEvaluateCondition_topTenMatchupNeedsBothRanked(t *testing.T) {
	ctx := baseContext()
	ctx.TeamStats.Rank = 5
	rule := model.ConditionRule{Kind: model.CondIsTopTenMatchup}
	if evaluateCondition(rule, ctx) {
		t.Error("expected false without opponent rank")
	}
	ctx.OpponentStats = &model.TeamStats{Rank: 8}
	if !evaluateCondition(rule, ctx) {
		t.Error("expected true when both teams ranked in top 10")
	}
}
