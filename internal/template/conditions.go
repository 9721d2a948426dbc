package template

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/teamarr/teamarr/internal/model"
)

// priorityDefault is reserved for rules that always match (§4.5 step 3).
const priorityDefault = 100

// SelectDescription picks the first matching ConditionRule's template from
// an ordered (by priority) list, evaluated against ctx. Priority-100 rules
// always match; when several exist, one is chosen by a seed derived from
// the event and focal team, so a given event+team pair renders stably
// within a run but varies across distinct events (Open Question decision,
// SPEC_FULL.md §4.5).
func SelectDescription(rules []model.ConditionRule, ctx Context) (string, bool) {
	sorted := make([]model.ConditionRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	var defaults []model.ConditionRule
	for _, rule := range sorted {
		if rule.Priority == priorityDefault {
			defaults = append(defaults, rule)
			continue
		}
		if evaluateCondition(rule, ctx) {
			return rule.Template, true
		}
	}

	if len(defaults) == 0 {
		return "", false
	}
	if len(defaults) == 1 {
		return defaults[0].Template, true
	}
	idx := seededIndex(ctx, len(defaults))
	return defaults[idx].Template, true
}

func seededIndex(ctx Context, n int) int {
	h := fnv.New64a()
	h.Write([]byte(ctx.Event.ProviderID))
	h.Write([]byte(ctx.FocalTeam.ProviderID))
	seed := int64(h.Sum64())
	r := rand.New(rand.NewSource(seed))
	return r.Intn(n)
}

func evaluateCondition(rule model.ConditionRule, ctx Context) bool {
	switch rule.Kind {
	case model.CondIsHome:
		return ctx.isHome()
	case model.CondIsAway:
		return !ctx.isHome()
	case model.CondWinStreakGE:
		return ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakWin && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondLossStreakGE:
		return ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakLoss && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondHomeWinStreakGE:
		return ctx.isHome() && ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakWin && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondHomeLossStreakGE:
		return ctx.isHome() && ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakLoss && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondAwayWinStreakGE:
		return !ctx.isHome() && ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakWin && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondAwayLossStreakGE:
		return !ctx.isHome() && ctx.TeamStats != nil && ctx.TeamStats.StreakKind == model.StreakLoss && ctx.TeamStats.StreakLength >= rule.IntValue
	case model.CondIsPlayoff:
		return ctx.TeamStats != nil && ctx.TeamStats.IsPlayoff
	case model.CondIsPreseason:
		return ctx.TeamStats != nil && ctx.TeamStats.IsPreseason
	case model.CondHasOdds:
		return ctx.Event.Odds != nil
	case model.CondIsRankedOpponent:
		return rankInRange(ctx.OpponentStats, 1, 25)
	case model.CondIsTopTenMatchup:
		return rankInRange(ctx.TeamStats, 1, 10) && rankInRange(ctx.OpponentStats, 1, 10)
	case model.CondOpponentNameContains:
		return strings.Contains(strings.ToLower(ctx.opponent().Name), strings.ToLower(rule.StringValue))
	case model.CondIsNationalBroadcast:
		return ctx.TeamStats != nil && ctx.TeamStats.NationalBroadcast
	case model.CondIsConferenceGame:
		return ctx.TeamStats != nil && ctx.TeamStats.IsConference
	default:
		// Unknown conditions never match (§4.5).
		return false
	}
}

func rankInRange(stats *model.TeamStats, lo, hi int) bool {
	return stats != nil && stats.Rank >= lo && stats.Rank <= hi
}
