package generator

import "testing"

func TestLessonCharset(t *testing.T) {
	if got := LessonCharset(1); got != "KM" {
		t.Fatalf("expected lesson 1 to be KM, got %q", got)
	}
	if got := LessonCharset(LessonCount + 5); got != LCWOOrder {
		t.Fatalf("expected last lesson to cover every character, got %q", got)
	}
	if got := LessonCharset(0); got != "" {
		t.Fatalf("expected no charset for lesson 0, got %q", got)
	}
}

func TestLessonFromCharset(t *testing.T) {
	cases := []struct {
		charset string
		want    int
	}{
		{"km", 1},
		{"KMURES", 5},
		{"MK", 1},
		{"KMX", 0},
		{"K", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := LessonFromCharset(tc.charset); got != tc.want {
			t.Fatalf("LessonFromCharset(%q) = %d, want %d", tc.charset, got, tc.want)
		}
	}
}

func TestPresetCoverage(t *testing.T) {
	if got := PresetCoverage(Digits+"A", Digits); got != CoverageAll {
		t.Fatalf("expected all, got %s", got)
	}
	if got := PresetCoverage("ab1", Latin); got != CoverageSome {
		t.Fatalf("expected some, got %s", got)
	}
	if got := PresetCoverage("ab", Digits); got != CoverageNone {
		t.Fatalf("expected none, got %s", got)
	}
}

func TestTogglePreset(t *testing.T) {
	if got := TogglePreset("K1M2", Digits, false); got != "KM" {
		t.Fatalf("expected digits removed, got %q", got)
	}
	if got := TogglePreset("KM", "01", true); got != "01KM" {
		t.Fatalf("expected preset prepended, got %q", got)
	}
}
