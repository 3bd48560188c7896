// Package generator builds practice character groups.
package generator

import (
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/morse"
	"github.com/verte-zerg/tuicw/internal/wordlist"
)

var (
	// ErrEmptyCharset is returned when the charset has nothing to send.
	ErrEmptyCharset = errors.New("empty charset")
	// ErrGroupSize is returned when the group size bounds are unusable.
	ErrGroupSize = errors.New("invalid group size")
)

// Generator produces random character groups.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Validate checks that settings can produce groups.
func Validate(s model.Settings) error {
	if len(Alphabet(s.Charset)) == 0 {
		return ErrEmptyCharset
	}
	if s.MaxGroupSize < 1 || s.MinGroupSize < 1 || s.MinGroupSize > s.MaxGroupSize {
		return ErrGroupSize
	}
	return nil
}

// Alphabet returns the non-whitespace characters of charset, keeping order
// and duplicates so repeated characters are drawn more often.
func Alphabet(charset string) []rune {
	out := make([]rune, 0, len(charset))
	for _, r := range charset {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Group picks a length uniformly in [MinGroupSize, MaxGroupSize] and samples
// each character uniformly from the charset. It returns "" when settings are
// invalid.
func (g *Generator) Group(s model.Settings) string {
	if Validate(s) != nil {
		return ""
	}
	chars := Alphabet(s.Charset)
	n := g.length(s)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(chars[g.rnd.Intn(len(chars))])
	}
	return b.String()
}

// GroupWeighted is like Group but draws weak characters more often.
func (g *Generator) GroupWeighted(s model.Settings, weakSet map[rune]struct{}, factor float64) string {
	if Validate(s) != nil {
		return ""
	}
	if len(weakSet) == 0 || factor <= 0 {
		return g.Group(s)
	}
	chars := Alphabet(s.Charset)
	weights := make([]float64, len(chars))
	total := 0.0
	for i, r := range chars {
		w := 1.0
		if _, ok := weakSet[unicode.ToUpper(r)]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}

	n := g.length(s)
	var b strings.Builder
	for i := 0; i < n; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(chars) - 1
		for j, w := range weights {
			acc += w
			if r < acc {
				idx = j
				break
			}
		}
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// Separated prefixes group with the separator so the gap before it is
// well-defined.
func Separated(group string) string {
	return string(morse.Separator) + group
}

func (g *Generator) length(s model.Settings) int {
	return s.MinGroupSize + g.rnd.Intn(s.MaxGroupSize-s.MinGroupSize+1)
}

// Weighted is a group source that favors weak characters when the settings
// ask for it. The weak set is replaced between sessions. When a word list is
// set, groups are whole words instead, limited to the ones the charset can
// spell.
type Weighted struct {
	gen  *Generator
	weak map[rune]struct{}

	words       []string
	spellable   []string
	spellableOf string
}

// NewWeighted returns a group source drawing from gen.
func NewWeighted(gen *Generator) *Weighted {
	return &Weighted{gen: gen}
}

// SetWeak replaces the weak character set.
func (w *Weighted) SetWeak(weak map[rune]struct{}) {
	w.weak = weak
}

// Weak returns the current weak character set.
func (w *Weighted) Weak() map[rune]struct{} {
	return w.weak
}

// SetWords replaces the word list. nil switches back to random groups.
func (w *Weighted) SetWords(words []string) {
	w.words = words
	w.spellable = nil
	w.spellableOf = ""
}

// Spellable returns the words of the list that charset can spell.
func (w *Weighted) Spellable(charset string) []string {
	if len(w.words) == 0 {
		return nil
	}
	if w.spellable == nil || w.spellableOf != charset {
		w.spellable = wordlist.Filter(w.words, wordlist.FilterForCharset(charset))
		w.spellableOf = charset
	}
	return w.spellable
}

// Group returns the next practice group for s.
func (w *Weighted) Group(s model.Settings) string {
	if words := w.Spellable(s.Charset); len(words) > 0 {
		return words[w.gen.rnd.Intn(len(words))]
	}
	if s.FocusWeak {
		return w.gen.GroupWeighted(s, w.weak, s.WeakFactor)
	}
	return w.gen.Group(s)
}
