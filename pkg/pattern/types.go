// Package pattern provides the note and pattern value types and the pure
// transformations (transpose, reverse, time scaling, shift) applied to them
package pattern

// MIDI value bounds
const (
	MinPitch    = 0
	MaxPitch    = 127
	MinVelocity = 0
	MaxVelocity = 127
	MinTempo    = 20
	MaxTempo    = 300
)

// MaxBeats bounds every beat value (lengths, starts, shifts) so that event
// times at the slowest tempo still fit in a time.Duration
const MaxBeats = 1 << 20

// Note represents a single pitched, timed note. Start and Duration are in beats.
type Note struct {
	Pitch    uint8   `json:"pitch"`    // MIDI note number (0-127)
	Velocity uint8   `json:"velocity"` // Velocity (0-127)
	Start    float64 `json:"start"`    // Offset from pattern start, may be negative after a shift
	Duration float64 `json:"duration"` // Length in beats, always positive
}

// End returns the beat at which the note stops sounding
func (n Note) End() float64 {
	return n.Start + n.Duration
}

// Pattern is a named collection of notes over a fixed beat span.
//
// Length is advisory: it is the mirror axis for Reverse and is scaled by
// Double and Half, but notes may start before zero or run past it and are
// never clipped.
type Pattern struct {
	Name   string  `json:"name"`
	Length float64 `json:"length"` // Span in beats
	Notes  []Note  `json:"notes"`  // Insertion order, not necessarily sorted by time
}

// New creates a pattern, copying the given notes
func New(name string, length float64, notes []Note) Pattern {
	return Pattern{
		Name:   name,
		Length: length,
		Notes:  append([]Note(nil), notes...),
	}
}

// Clone returns a deep copy of the pattern
func (p Pattern) Clone() Pattern {
	return New(p.Name, p.Length, p.Notes)
}

// Span returns the beat at which the last note ends, or Length if that is later
func (p Pattern) Span() float64 {
	span := p.Length
	for _, n := range p.Notes {
		if n.End() > span {
			span = n.End()
		}
	}
	return span
}

// Pitches returns the pitch of every note in insertion order
func (p Pattern) Pitches() []uint8 {
	pitches := make([]uint8, len(p.Notes))
	for i, n := range p.Notes {
		pitches[i] = n.Pitch
	}
	return pitches
}
