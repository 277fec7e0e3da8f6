package pattern

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidation matches every *ValidationError via errors.Is
var ErrValidation = errors.New("validation error")

// ValidationError reports a rejected user-supplied value. Nothing is mutated
// when one is returned.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) succeed for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError
func Invalid(field string, value any, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ValidatePitch checks a MIDI note number
func ValidatePitch(pitch int) error {
	if pitch < MinPitch || pitch > MaxPitch {
		return Invalid("pitch", pitch, "must be 0-127")
	}
	return nil
}

// ValidateVelocity checks a MIDI velocity
func ValidateVelocity(vel int) error {
	if vel < MinVelocity || vel > MaxVelocity {
		return Invalid("velocity", vel, "must be 0-127")
	}
	return nil
}

// ValidateTempo checks a tempo in beats per minute
func ValidateTempo(bpm int) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return Invalid("tempo", bpm, "must be 20-300 BPM")
	}
	return nil
}

// ValidateLength checks a note or pattern length in beats
func ValidateLength(beats float64) error {
	if !(beats > 0) {
		return Invalid("length", beats, "must be positive")
	}
	if beats > MaxBeats {
		return Invalid("length", beats, fmt.Sprintf("must not exceed %d beats", MaxBeats))
	}
	return nil
}

// ValidateBeat checks a beat position or offset, which may be negative
func ValidateBeat(field string, beat float64) error {
	if math.IsNaN(beat) || math.IsInf(beat, 0) {
		return Invalid(field, beat, "not a finite number")
	}
	if math.Abs(beat) > MaxBeats {
		return Invalid(field, beat, fmt.Sprintf("must be within ±%d beats", MaxBeats))
	}
	return nil
}

// Validate checks a whole pattern before it is stored or played
func (p Pattern) Validate() error {
	if p.Name == "" {
		return Invalid("name", nil, "must not be empty")
	}
	if err := ValidateLength(p.Length); err != nil {
		return err
	}
	if len(p.Notes) == 0 {
		return Invalid("pattern", p.Name, "has no notes")
	}
	for i, n := range p.Notes {
		if err := ValidatePitch(int(n.Pitch)); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := ValidateVelocity(int(n.Velocity)); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := ValidateBeat("start", n.Start); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := ValidateLength(n.Duration); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := ValidateBeat("end", n.End()); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
	}
	return nil
}
