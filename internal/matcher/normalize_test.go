package matcher

import "testing"

func TestNormalize_stripsLeaguePrefixAndChannelIndex(t *testing.T) {
	got := Normalize("NFL | 16 - 8:15PM Giants at Patriots")
	if got.Text != "giants at patriots" {
		t.Errorf("Text = %q", got.Text)
	}
	if !got.HasTime || got.Time != "8:15pm" {
		t.Errorf("Time = %q HasTime=%v", got.Time, got.HasTime)
	}
}

func TestNormalize_stripsBracketedProviderTagsButKeepsDate(t *testing.T) {
	got := Normalize("(UK) (Sky+ 08) | NFL: Eagles @ Cowboys (2025-11-23)")
	if got.Text != "eagles at cowboys" {
		t.Errorf("Text = %q", got.Text)
	}
	if !got.HasDate || got.Date != "2025-11-23" {
		t.Errorf("Date = %q HasDate=%v", got.Date, got.HasDate)
	}
}

func TestNormalize_accentFolding(t *testing.T) {
	got := Normalize("Club Leon vs América")
	if got.Text != "club leon versus america" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestNormalize_bareVersusIndicator(t *testing.T) {
	got := Normalize("Spurs v Arsenal")
	if got.Text != "spurs versus arsenal" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestNormalize_nonMatchupPassesThrough(t *testing.T) {
	got := Normalize("UFC FN Prelims")
	if got.Text != "ufc fight night prelims" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestFindGameIndicator_at(t *testing.T) {
	split := FindGameIndicator("giants at patriots")
	if !split.Found || split.Left != "giants" || split.Right != "patriots" {
		t.Errorf("split = %+v", split)
	}
}

func TestFindGameIndicator_noIndicator(t *testing.T) {
	split := FindGameIndicator("ufc fight night prelims")
	if split.Found {
		t.Errorf("expected no indicator, got %+v", split)
	}
}

func TestFindGameIndicator_leftmostWins(t *testing.T) {
	split := FindGameIndicator("team a versus team b at arena")
	if split.Left != "team a" {
		t.Errorf("left = %q, want %q", split.Left, "team a")
	}
}
