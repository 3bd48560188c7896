package session

import (
	"strings"
	"unicode"

	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/morse"
)

// Log is the append-only record of sent characters. The cursor points at the
// next character to be judged; everything before it was copied correctly.
type Log struct {
	sent   []model.SentCharacter
	cursor int
}

// Append records a played character.
func (l *Log) Append(c model.SentCharacter) {
	l.sent = append(l.sent, c)
}

// Expected returns the next character to be judged, if it was played yet.
func (l *Log) Expected() (model.SentCharacter, bool) {
	if l.cursor >= len(l.sent) {
		return model.SentCharacter{}, false
	}
	return l.sent[l.cursor], true
}

// Advance moves the cursor past the expected character.
func (l *Log) Advance() {
	if l.cursor < len(l.sent) {
		l.cursor++
	}
}

// Len returns how many characters were played.
func (l *Log) Len() int {
	return len(l.sent)
}

// Cursor returns how many characters were judged correct.
func (l *Log) Cursor() int {
	return l.cursor
}

// Lag returns how many played characters are still waiting to be judged.
func (l *Log) Lag() int {
	return len(l.sent) - l.cursor
}

// From returns a copy of the characters played from index i on.
func (l *Log) From(i int) []model.SentCharacter {
	if i >= len(l.sent) {
		return nil
	}
	out := make([]model.SentCharacter, len(l.sent)-i)
	copy(out, l.sent[i:])
	return out
}

// Reset empties the log.
func (l *Log) Reset() {
	l.sent = nil
	l.cursor = 0
}

// Verdict is the result of judging one keystroke.
type Verdict struct {
	Result model.Result
	Sent   *model.SentCharacter
}

// Qualifies reports whether a keystroke takes part in copying: unmodified,
// and either the separator or a charset character (case-insensitive).
func Qualifies(r rune, modified bool, charset string) bool {
	if modified {
		return false
	}
	if r == morse.Separator {
		return true
	}
	if unicode.IsSpace(r) || !unicode.IsPrint(r) {
		return false
	}
	return strings.ContainsRune(strings.ToLower(charset), unicode.ToLower(r))
}

// Judge compares typed against the next expected character.
func Judge(l *Log, typed rune) Verdict {
	sent, ok := l.Expected()
	if !ok {
		return Verdict{Result: model.ResultExtraneous}
	}
	if strings.EqualFold(sent.Char, string(typed)) {
		return Verdict{Result: model.ResultCorrect, Sent: &sent}
	}
	return Verdict{Result: model.ResultIncorrect, Sent: &sent}
}
