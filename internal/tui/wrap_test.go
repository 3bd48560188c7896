package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/tuicw/internal/model"
)

func TestBuildStyledRunesHighlightsCurrentGroup(t *testing.T) {
	runes := buildStyledRunes(transcript{copied: []rune("KM RS"), active: true})
	if len(runes) != 6 {
		t.Fatalf("expected 6 runes with cursor, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("K") {
		t.Fatalf("expected correct style for finished group")
	}
	if runes[3].s != currentGroupStyle.Render("R") {
		t.Fatalf("expected current group style for last group")
	}
	if runes[5].s != cursorStyle.Render(" ") {
		t.Fatalf("expected cursor at the end")
	}
}

func TestBuildStyledRunesIdleHasNoCursor(t *testing.T) {
	runes := buildStyledRunes(transcript{copied: []rune("KM")})
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[1].s != correctStyle.Render("M") {
		t.Fatalf("expected correct style when idle")
	}
}

func TestBuildStyledRunesShowsMistake(t *testing.T) {
	runes := buildStyledRunes(transcript{
		copied:  []rune("K"),
		mistake: &model.Mistake{Expected: "M", Mistaken: "n"},
	})
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if runes[1].s != incorrectStyle.Render("N") {
		t.Fatalf("expected typed key in incorrect style")
	}
	if runes[2].s != missedStyle.Render("M") {
		t.Fatalf("expected missed character after the mistake")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	runes := buildStyledRunes(transcript{
		copied:  []rune("KM"),
		mistake: &model.Mistake{Expected: " ", Mistaken: "r"},
	})
	if runes[3].s != missedStyle.Render("•") {
		t.Fatalf("expected dot for a missed separator")
	}
}

func TestWrapStyledRunesBreaksAtGroups(t *testing.T) {
	runes := buildStyledRunes(transcript{copied: []rune("KMRSU AB")})
	out := wrapStyledRunes(runes, 6)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
}

func TestWrapStyledRunesSplitsLongGroup(t *testing.T) {
	runes := buildStyledRunes(transcript{copied: []rune("KMRSUAB")})
	out := wrapStyledRunes(runes, 3)
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 2 breaks, got %d in %q", got, out)
	}
}
