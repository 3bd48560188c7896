package generator

import (
	"strings"
	"unicode"
)

// Character presets offered as charset toggles.
const (
	Latin  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits = "0123456789"
	Punct  = ".,:?'-/()\"=+×@"
)

// LCWOOrder is the order in which characters are introduced by the LCWO course.
const LCWOOrder = "KMURESNAPTLWI.JZ=FOY,VG5/Q92H38B?47C1D60X"

// LessonCount is the number of LCWO lessons.
const LessonCount = len(LCWOOrder) - 1

// LessonCharset returns the characters of LCWO lesson n (1-based). Lesson 1
// is "KM"; every following lesson adds one character.
func LessonCharset(n int) string {
	if n < 1 {
		return ""
	}
	if n > LessonCount {
		n = LessonCount
	}
	return LCWOOrder[:n+1]
}

// LessonFromCharset returns the LCWO lesson matching charset exactly, or 0
// when the charset is not a lesson prefix.
func LessonFromCharset(charset string) int {
	remaining := map[rune]struct{}{}
	for _, r := range strings.ToUpper(charset) {
		if unicode.IsSpace(r) {
			continue
		}
		remaining[r] = struct{}{}
	}
	i := 0
	for _, r := range LCWOOrder {
		if _, ok := remaining[r]; !ok {
			break
		}
		delete(remaining, r)
		i++
	}
	if len(remaining) != 0 || i == 0 {
		return 0
	}
	return i - 1
}

// Coverage tells how much of a preset a charset contains.
type Coverage int

const (
	CoverageNone Coverage = iota
	CoverageSome
	CoverageAll
)

func (c Coverage) String() string {
	switch c {
	case CoverageAll:
		return "all"
	case CoverageSome:
		return "some"
	default:
		return "none"
	}
}

// PresetCoverage reports whether charset holds all, some or none of preset.
func PresetCoverage(charset, preset string) Coverage {
	selected := map[rune]struct{}{}
	for _, r := range strings.ToUpper(charset) {
		selected[r] = struct{}{}
	}
	found := 0
	total := 0
	for _, r := range preset {
		total++
		if _, ok := selected[r]; ok {
			found++
		}
	}
	switch {
	case total > 0 && found == total:
		return CoverageAll
	case found > 0:
		return CoverageSome
	default:
		return CoverageNone
	}
}

// TogglePreset adds preset in front of charset, or removes it when on is false.
func TogglePreset(charset, preset string, on bool) string {
	drop := map[rune]struct{}{}
	for _, r := range preset {
		drop[r] = struct{}{}
	}
	var kept strings.Builder
	for _, r := range charset {
		if _, ok := drop[unicode.ToUpper(r)]; ok {
			continue
		}
		kept.WriteRune(r)
	}
	if on {
		return preset + kept.String()
	}
	return kept.String()
}
