package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuicw/internal/model"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// transcript is what the practice screen shows: the copied text, the key
// that ended the session (if any) and whether the user is still copying.
type transcript struct {
	copied  []rune
	mistake *model.Mistake
	active  bool
}

func buildStyledRunes(t transcript) []styledRune {
	current := lastGroup(t.copied)
	out := make([]styledRune, 0, len(t.copied)+3)
	for i, r := range t.copied {
		style := correctStyle
		if t.active && i >= current.start && i < current.end {
			style = currentGroupStyle
		}
		out = append(out, newStyledRune(r, style))
	}
	if t.mistake != nil {
		out = append(out, newStyledRune(displayRune(t.mistake.Mistaken), incorrectStyle))
		out = append(out, newStyledRune(displayRune(t.mistake.Expected), missedStyle))
	}
	if t.active {
		out = append(out, styledRune{s: cursorStyle.Render(" "), width: 1})
	}
	return out
}

func newStyledRune(r rune, style lipgloss.Style) styledRune {
	return styledRune{
		s:       style.Render(string(r)),
		width:   runewidth.RuneWidth(r),
		isSpace: r == ' ',
	}
}

// displayRune shows a mistyped or missed separator as a dot.
func displayRune(ch string) rune {
	r, _ := utf8.DecodeRuneInString(strings.ToUpper(ch))
	if r == ' ' || r == utf8.RuneError {
		return '•'
	}
	return r
}

type groupRange struct {
	start int
	end   int
}

// lastGroup returns the run of non-space runes at the end of text.
func lastGroup(text []rune) groupRange {
	end := len(text)
	start := end
	for start > 0 && text[start-1] != ' ' {
		start--
	}
	return groupRange{start: start, end: end}
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
