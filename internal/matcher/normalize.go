// Package matcher turns an opaque stream name into a matched event or a
// typed NoMatch failure (spec §4.4). It is grounded on the teacher's
// internal/epglink normalization pass (strip bracketed provider tags,
// collapse separators) generalized with Unicode NFKD folding and a tiered
// team-matching ladder.
package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// bracketedTokenAllowlist lists the region/provider tokens that make a
// bracketed segment safe to strip outright (§4.4.1 step 3). Configurable in
// principle; fixed here to the common IPTV provider-tag vocabulary.
var bracketedTokenAllowlist = map[string]bool{
	"uk": true, "us": true, "ca": true, "de": true, "fr": true, "es": true,
	"it": true, "sky": true, "sky+": true, "hd": true, "fhd": true, "4k": true,
	"backup": true, "alt": true, "feed": true,
}

var bracketedSegmentRe = regexp.MustCompile(`[\(\[][^\)\]]*[\)\]]`)

var numericTokenRe = regexp.MustCompile(`^\d+$`)

var leaguePrefixes = []string{
	"nfl", "nba", "nhl", "mlb", "ncaaf", "ncaab", "soccer", "ufc", "mma",
	"epl", "uefa", "pga", "nascar", "atp", "wta",
}

var (
	isoDateRe      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	usDateRe       = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`)
	namedMonthRe   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b`)
	clockTimeRe    = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(am|pm)?\b`)
	channelIdxRe   = regexp.MustCompile(`^\s*[|:#]*\s*\d+\s*-\s*`)
	emptyBracketRe = regexp.MustCompile(`[\(\[]\s*[\)\]]`)
	separatorsRe   = regexp.MustCompile(`[|:#]+`)
	dashRe         = regexp.MustCompile(`\s*-\s*`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	rankTokenRe    = regexp.MustCompile(`(?i)(#\d+|@\s*\d+)`)
)

type abbrevRule struct {
	pattern *regexp.Regexp
	repl    string
}

// abbreviationTable expands fixed shorthand (§4.4.1 step 8). Order matters:
// the more specific "ufc fn" rule must run before the bare "fn" rule.
var abbreviationTable = []abbrevRule{
	{regexp.MustCompile(`(?i)\bufc fn\b`), "ufc fight night"},
	{regexp.MustCompile(`(?i)\bfn\b`), "fight night"},
	{regexp.MustCompile(`(?i)\bppv\b`), "pay per view"},
	{regexp.MustCompile(`(?i)\bvs\.?\b`), "versus"},
	{regexp.MustCompile(`(?i)\bv\b`), "versus"},
	{regexp.MustCompile(`(?:^|\s)@(?:\s|$)`), " at "},
}

// Normalized is the deterministic output of the normalization pipeline.
type Normalized struct {
	Text       string // fully normalized stream text
	HasDate    bool
	Date       string // date text if extracted, else ""; only ISO dates are "YYYY-MM-DD", US and named-month dates are kept as written
	HasTime    bool
	Time       string // clock text as written, lowercased (e.g. "8:15pm"), if extracted, else ""
	RankTokens []string
}

// Normalize runs the §4.4.1 pipeline left to right.
func Normalize(raw string) Normalized {
	s := nfkdFold(raw)
	s = strings.ToLower(s)
	s = stripBracketedProviderTags(s)
	s = stripLeaguePrefixes(s)

	var result Normalized
	if m := isoDateRe.FindString(s); m != "" {
		result.HasDate = true
		result.Date = m
	} else if m := usDateRe.FindString(s); m != "" {
		result.HasDate = true
		result.Date = normalizeUSDate(m)
	} else if m := namedMonthRe.FindString(s); m != "" {
		result.HasDate = true
		result.Date = m
	}
	s = isoDateRe.ReplaceAllString(s, " ")
	s = usDateRe.ReplaceAllString(s, " ")
	s = namedMonthRe.ReplaceAllString(s, " ")

	if m := clockTimeRe.FindString(s); m != "" {
		result.HasTime = true
		result.Time = normalizeClock(m)
	}
	s = clockTimeRe.ReplaceAllString(s, " ")
	s = emptyBracketRe.ReplaceAllString(s, " ")

	result.RankTokens = rankTokenRe.FindAllString(s, -1)

	s = channelIdxRe.ReplaceAllString(s, " ")
	s = rankTokenRe.ReplaceAllStringFunc(s, func(m string) string { return " " + m + " " })
	s = separatorsRe.ReplaceAllString(s, " ")
	s = dashRe.ReplaceAllString(s, " ")

	for _, rule := range abbreviationTable {
		s = rule.pattern.ReplaceAllString(s, rule.repl)
	}

	s = whitespaceRe.ReplaceAllString(s, " ")
	result.Text = strings.TrimSpace(s)
	return result
}

// nfkdFold applies Unicode NFKD decomposition and strips combining marks
// (e.g. "é" -> "e").
func nfkdFold(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripBracketedProviderTags(s string) string {
	return bracketedSegmentRe.ReplaceAllStringFunc(s, func(seg string) string {
		inner := strings.ToLower(strings.Trim(seg, "()[] "))
		for _, tok := range strings.Fields(inner) {
			if bracketedTokenAllowlist[tok] || numericTokenRe.MatchString(tok) {
				continue // recognized provider tag, or a bare channel number
			}
			return seg // keep segments that carry unrecognized (likely meaningful) tokens
		}
		return " "
	})
}

// leadingSeparatorRunRe matches a run of whitespace and separator punctuation
// left behind at the start of a string by an earlier pipeline stage (e.g. a
// bracketed segment stripped to nothing ahead of a "| NFL: ..." header).
var leadingSeparatorRunRe = regexp.MustCompile(`^[\s|:#]+`)

// stripLeaguePrefixes removes a leading league token only when it is acting
// as a channel-name header (followed, after optional whitespace, by a
// separator), not when it is part of the event title itself (e.g. "UFC Fight
// Night" must keep its "UFC").
func stripLeaguePrefixes(s string) string {
	trimmed := leadingSeparatorRunRe.ReplaceAllString(strings.TrimSpace(s), "")
	for _, prefix := range leaguePrefixes {
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		rest := trimmed[len(prefix):]
		i := 0
		for i < len(rest) && rest[i] == ' ' {
			i++
		}
		if i < len(rest) && strings.ContainsRune("|:#", rune(rest[i])) {
			return strings.TrimSpace(rest[i+1:])
		}
	}
	return s
}

func normalizeUSDate(m string) string {
	parts := strings.Split(m, "/")
	if len(parts) < 2 {
		return m
	}
	return m // left in US form; the event-date tie-break compares against "YYYY-MM-DD" only, so a US date never narrows the match
}

func normalizeClock(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}
