// Package morse holds the Morse alphabet and character timing.
package morse

import (
	"time"
	"unicode"
)

// Separator is the character placed between groups.
const Separator = ' '

var alphabet = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	'.': ".-.-.-", ',': "--..--", ':': "---...", '?': "..--..",
	'\'': ".----.", '-': "-....-", '/': "-..-.", '(': "-.--.",
	')': "-.--.-", '"': ".-..-.", '=': "-...-", '+': ".-.-.",
	'×': "-..-", '@': ".--.-.",
}

// Pattern returns the dot/dash pattern for r. Lookups are case-insensitive.
// The separator is reported as a single space element.
func Pattern(r rune) (string, bool) {
	if r == Separator {
		return " ", true
	}
	p, ok := alphabet[unicode.ToUpper(r)]
	return p, ok
}

// Known reports whether r can be sent.
func Known(r rune) bool {
	_, ok := Pattern(r)
	return ok
}

// Unit returns the dot length for the given speed using the PARIS standard.
func Unit(wpm float64) time.Duration {
	if wpm <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / (wpm * 50))
}

// Units returns the length of r in dot units, without the trailing
// inter-character gap. Unknown characters count as a separator.
func Units(r rune) int {
	elements, ok := Pattern(r)
	if !ok {
		elements = " "
	}
	units := 0
	count := 0
	for _, e := range elements {
		if e == '-' {
			units += 3
		} else {
			units++
		}
		count++
	}
	// gaps between elements of the same character
	return units + count - 1
}

// CharacterDuration returns how long r sounds at wpm.
func CharacterDuration(r rune, wpm float64) time.Duration {
	return time.Duration(Units(r)) * Unit(wpm)
}
