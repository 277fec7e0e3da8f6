package pattern

// Default values for newly created notes and playback
const (
	DefaultVelocity   = 80
	DefaultNoteLength = 0.25
	DefaultTempo      = 120
)

// Defaults holds the velocity and length given to newly created notes.
// Changing them never affects notes that already exist.
type Defaults struct {
	Velocity uint8
	Length   float64
}

// NewDefaults returns the initial defaults
func NewDefaults() Defaults {
	return Defaults{Velocity: DefaultVelocity, Length: DefaultNoteLength}
}

// Spread creates a pattern whose pitches are evenly distributed over beats.
// Each note gets the default velocity and length.
func Spread(name string, beats float64, pitches []uint8, d Defaults) Pattern {
	step := 0.0
	if len(pitches) > 0 {
		step = beats / float64(len(pitches))
	}
	notes := make([]Note, len(pitches))
	for i, pitch := range pitches {
		notes[i] = Note{
			Pitch:    pitch,
			Velocity: d.Velocity,
			Start:    float64(i) * step,
			Duration: d.Length,
		}
	}
	return Pattern{Name: name, Length: beats, Notes: notes}
}

// Sequence creates a pattern of back-to-back notes, each one default length long
func Sequence(name string, pitches []uint8, d Defaults) Pattern {
	return Spread(name, float64(len(pitches))*d.Length, pitches, d)
}
