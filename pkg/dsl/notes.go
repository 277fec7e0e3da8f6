package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/patternplay/pkg/pattern"
)

// semitone offsets of the natural note names within an octave
var naturals = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

var pitchClasses = [12]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// DefaultOctave is used for note names written without an octave
const DefaultOctave = 4

// ParseNote converts a token to a MIDI pitch. It accepts plain note numbers
// (60) and note names with an optional accidental and a single octave digit
// (c4, c#4, eb5). Octave 4 holds middle C, so c4 is 60; a bare name such as
// g uses octave 4.
func ParseNote(token string) (uint8, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return 0, pattern.Invalid("note", token, "empty")
	}

	if t[0] >= '0' && t[0] <= '9' {
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, pattern.Invalid("note", token, "not a note number")
		}
		if err := pattern.ValidatePitch(n); err != nil {
			return 0, pattern.Invalid("note", token, "must be 0-127")
		}
		return uint8(n), nil
	}

	base, ok := naturals[t[0]]
	if !ok {
		return 0, pattern.Invalid("note", token, "expected c d e f g a b or 0-127")
	}
	rest := t[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			base++
			rest = rest[1:]
		case 'b':
			base--
			rest = rest[1:]
		}
	}

	octave := DefaultOctave
	switch {
	case rest == "":
	case len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9':
		octave = int(rest[0] - '0')
	default:
		return 0, pattern.Invalid("note", token, "octave must be a single digit")
	}

	pitch := base + 12*(octave+1)
	if pitch < pattern.MinPitch || pitch > pattern.MaxPitch {
		return 0, pattern.Invalid("note", token, "outside the MIDI range")
	}
	return uint8(pitch), nil
}

// ParseNotes converts every token, failing on the first bad one
func ParseNotes(tokens []string) ([]uint8, error) {
	pitches := make([]uint8, 0, len(tokens))
	for _, tok := range tokens {
		p, err := ParseNote(tok)
		if err != nil {
			return nil, err
		}
		pitches = append(pitches, p)
	}
	return pitches, nil
}

// NoteName formats a pitch as a note name, 60 as c4
func NoteName(pitch uint8) string {
	return fmt.Sprintf("%s%d", pitchClasses[pitch%12], int(pitch)/12-1)
}
