package matcher

import (
	"regexp"
	"strings"

	"github.com/teamarr/teamarr/internal/model"
)

// TeamMatch is one successful tiered match of a token string to a team.
type TeamMatch struct {
	Team       model.Team
	Confidence float64
}

var trailingYearOrNumberRe = regexp.MustCompile(`\s+\d{2,4}$`)

// Alias is a user-defined (alias text, league) -> team mapping, checked
// before tier 1 (§4.4.4).
type Alias struct {
	Text   string
	League string
	Team   model.Team
}

// MatchTeam runs the tiered ladder against a single candidate team,
// returning the confidence of the best-matching field, or false if none of
// the five tiers succeed.
func MatchTeam(token string, team model.Team) (TeamMatch, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return TeamMatch{}, false
	}

	tier1Fields := []string{
		strings.ToLower(team.Name),
		strings.ToLower(team.ShortName),
		strings.ToLower(team.Abbreviation),
		strings.ToLower(team.Slug),
		strings.ToLower(team.City),
	}

	// Tier 1: exact equality to any canonical field.
	for _, f := range tier1Fields {
		if f != "" && f == token {
			return TeamMatch{Team: team, Confidence: 1.00}, true
		}
	}

	// Tier 2: equality after stripping trailing year/number suffixes.
	strippedToken := strings.TrimSpace(trailingYearOrNumberRe.ReplaceAllString(token, ""))
	for _, f := range tier1Fields {
		if f == "" {
			continue
		}
		strippedField := strings.TrimSpace(trailingYearOrNumberRe.ReplaceAllString(f, ""))
		if strippedField == strippedToken || strippedField == token || f == strippedToken {
			return TeamMatch{Team: team, Confidence: 0.95}, true
		}
	}

	// Tier 3: prefix match (either direction) on any tier-1 field.
	for _, f := range tier1Fields {
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, token) || strings.HasPrefix(token, f) {
			return TeamMatch{Team: team, Confidence: 0.90}, true
		}
	}

	// Tier 4: whole-word containment using word boundaries.
	for _, f := range tier1Fields {
		if f == "" {
			continue
		}
		if containsWholeWord(f, token) || containsWholeWord(token, f) {
			return TeamMatch{Team: team, Confidence: 0.85}, true
		}
	}

	// Tier 5: word-set overlap >= 60% against the canonical name.
	if overlap := wordSetOverlap(token, strings.ToLower(team.Name)); overlap >= 0.60 {
		return TeamMatch{Team: team, Confidence: 0.75}, true
	}

	return TeamMatch{}, false
}

// MatchTeamAgainstAliases checks user-defined aliases before the tiered
// ladder; a hit always has confidence 1.00. Aliases are scoped per league.
func MatchTeamAgainstAliases(token, league string, aliases []Alias) (TeamMatch, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	for _, a := range aliases {
		if a.League != league {
			continue
		}
		if strings.ToLower(a.Text) == token {
			return TeamMatch{Team: a.Team, Confidence: 1.00}, true
		}
	}
	return TeamMatch{}, false
}

// BestTeamMatch tries aliases first, then the tiered ladder across every
// team in the league's universe, returning the single highest-confidence
// match.
func BestTeamMatch(token, league string, universe []model.Team, aliases []Alias) (TeamMatch, bool) {
	if m, ok := MatchTeamAgainstAliases(token, league, aliases); ok {
		return m, true
	}
	var best TeamMatch
	found := false
	for _, team := range universe {
		if m, ok := MatchTeam(token, team); ok {
			if !found || m.Confidence > best.Confidence {
				best = m
				found = true
			}
		}
	}
	return best, found
}

func containsWholeWord(haystack, word string) bool {
	if word == "" {
		return false
	}
	for _, w := range strings.Fields(haystack) {
		if w == word {
			return true
		}
	}
	return false
}

func wordSetOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	overlap := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			overlap++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(overlap) / float64(denom)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}
