package matcher

import "regexp"

// indicatorRe finds the leftmost game indicator token (§4.4.2). Matched
// against already-normalized text, where "vs"/"versus"/"at" are full words
// and "@" has already been expanded to "at" by Normalize.
var indicatorRe = regexp.MustCompile(`\b(versus|vs|at)\b`)

// Split is the result of locating a game indicator in normalized text.
type Split struct {
	Found bool
	Left  string
	Right string
}

// FindGameIndicator locates the leftmost separator and splits the
// normalized text around it. A stream with no indicator enters the
// single-event path (§4.4.6) rather than team-pair matching.
func FindGameIndicator(normalizedText string) Split {
	loc := indicatorRe.FindStringIndex(normalizedText)
	if loc == nil {
		return Split{Found: false}
	}
	return Split{
		Found: true,
		Left:  trimSpace(normalizedText[:loc[0]]),
		Right: trimSpace(normalizedText[loc[1]:]),
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
