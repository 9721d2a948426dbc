package template

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teamarr/teamarr/internal/model"
)

// placeholderRe matches `{variable}` or `{variable.suffix}`.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_]+)(?:\.([a-zA-Z]+))?\}`)

// Unresolved records a placeholder that had no matching variable or whose
// suffix pointed at a game that doesn't exist (e.g. `.next` on the last
// game of a team's known schedule). Rendering still succeeds, emitting the
// empty string, but the run report surfaces these (§4.5).
type Unresolved struct {
	Placeholder string
}

// Render substitutes every `{variable[.suffix]}` placeholder in tmpl
// against ctx, returning the rendered text and any unresolved placeholders.
func Render(tmpl string, ctx Context) (string, []Unresolved) {
	var unresolved []Unresolved
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		name, suffix := sub[1], sub[2]

		resolvedCtx, ok := resolveSuffix(ctx, suffix)
		if !ok {
			unresolved = append(unresolved, Unresolved{Placeholder: match})
			return ""
		}
		value, ok := lookupVariable(name, resolvedCtx)
		if !ok {
			unresolved = append(unresolved, Unresolved{Placeholder: match})
			return ""
		}
		return value
	})
	return out, unresolved
}

// resolveSuffix selects which game in the team's timeline supplies values:
// no suffix -> the game being rendered, .next -> NextEvent, .last -> LastEvent.
func resolveSuffix(ctx Context, suffix string) (Context, bool) {
	switch suffix {
	case "":
		return ctx, true
	case "next":
		if ctx.NextEvent == nil {
			return ctx, false
		}
		next := ctx
		next.Event = *ctx.NextEvent
		return next, true
	case "last":
		if ctx.LastEvent == nil {
			return ctx, false
		}
		last := ctx
		last.Event = *ctx.LastEvent
		return last, true
	default:
		return ctx, false
	}
}

func lookupVariable(name string, ctx Context) (string, bool) {
	switch name {
	// game
	case "home_team":
		return ctx.Event.Home.Name, true
	case "away_team":
		return ctx.Event.Away.Name, true
	case "opponent":
		return ctx.opponent().Name, true
	case "focal_team":
		return ctx.FocalTeam.Name, true
	case "sport":
		return ctx.Event.Sport, true
	case "league":
		return ctx.Event.LeagueSlug, true
	case "start_time":
		return formatInZone(ctx.Event.Start, ctx.Timezone, "3:04 PM"), true
	case "start_date":
		return formatInZone(ctx.Event.Start, ctx.Timezone, "Jan 2, 2006"), true
	case "status":
		return string(ctx.Event.Status), true

	// venue
	case "venue":
		return ctx.Event.Venue, true

	// records
	case "record":
		if ctx.TeamStats == nil {
			return "", false
		}
		return formatRecord(ctx.TeamStats.Record), true
	case "home_record":
		if ctx.TeamStats == nil {
			return "", false
		}
		return formatRecord(ctx.TeamStats.HomeRecord), true
	case "away_record":
		if ctx.TeamStats == nil {
			return "", false
		}
		return formatRecord(ctx.TeamStats.AwayRecord), true

	// streaks
	case "streak":
		if ctx.TeamStats == nil || ctx.TeamStats.StreakKind == model.StreakNone {
			return "", false
		}
		return fmt.Sprintf("%d %s", ctx.TeamStats.StreakLength, streakWord(ctx.TeamStats.StreakKind)), true

	// odds
	case "spread":
		if ctx.Event.Odds == nil {
			return "", false
		}
		return fmt.Sprintf("%+.1f", ctx.Event.Odds.Spread), true
	case "total":
		if ctx.Event.Odds == nil {
			return "", false
		}
		return fmt.Sprintf("%.1f", ctx.Event.Odds.Total), true
	case "moneyline":
		if ctx.Event.Odds == nil {
			return "", false
		}
		if ctx.isHome() {
			return fmt.Sprintf("%+d", ctx.Event.Odds.MoneylineH), true
		}
		return fmt.Sprintf("%+d", ctx.Event.Odds.MoneylineA), true

	// rankings
	case "rank":
		if ctx.TeamStats == nil || ctx.TeamStats.Rank == 0 {
			return "", false
		}
		return fmt.Sprintf("#%d", ctx.TeamStats.Rank), true

	// broadcasts
	case "broadcast":
		if len(ctx.Event.Broadcasts) == 0 {
			return "", false
		}
		return strings.Join(ctx.Event.Broadcasts, ", "), true

	// results
	case "score":
		if ctx.Event.Score == nil {
			return "", false
		}
		return fmt.Sprintf("%d-%d", ctx.Event.Score.Home, ctx.Event.Score.Away), true

	default:
		return "", false
	}
}

func formatInZone(t time.Time, loc *time.Location, layout string) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(layout)
}

func formatRecord(r model.RecordSnapshot) string {
	if r.Draws > 0 {
		return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Draws)
	}
	return fmt.Sprintf("%d-%d", r.Wins, r.Losses)
}

func streakWord(k model.StreakKind) string {
	if k == model.StreakWin {
		return "W"
	}
	return "L"
}
