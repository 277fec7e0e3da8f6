package pattern

import (
	"strconv"
	"strings"
)

// Op names a pattern modification
type Op string

const (
	OpTranspose Op = "trans"
	OpReverse   Op = "rev"
	OpDouble    Op = "double"
	OpHalf      Op = "half"
	OpShift     Op = "shift"
)

// Ops lists the supported modifications
func Ops() []Op {
	return []Op{OpTranspose, OpReverse, OpDouble, OpHalf, OpShift}
}

// mapNotes copies p and applies fn to every note of the copy
func mapNotes(p Pattern, fn func(Note) Note) Pattern {
	out := Pattern{Name: p.Name, Length: p.Length, Notes: make([]Note, len(p.Notes))}
	for i, n := range p.Notes {
		out.Notes[i] = fn(n)
	}
	return out
}

// Transpose moves every note by semitones, clamping at 0 and 127
func Transpose(p Pattern, semitones int) Pattern {
	return mapNotes(p, func(n Note) Note {
		pitch := int(n.Pitch) + semitones
		if pitch < MinPitch {
			pitch = MinPitch
		}
		if pitch > MaxPitch {
			pitch = MaxPitch
		}
		n.Pitch = uint8(pitch)
		return n
	})
}

// Reverse mirrors every note around the pattern length.
//
// A note that runs past Length would mirror to a negative start. It is kept
// with its start clamped to 0 and its duration truncated so that it still
// ends where the mirror puts its end (Length - Start). If that end is not
// after 0 either, the note started at or beyond Length and has no mirrored
// span; it is placed at 0 with its original duration.
func Reverse(p Pattern) Pattern {
	return mapNotes(p, func(n Note) Note {
		end := p.Length - n.Start
		start := end - n.Duration
		if start < 0 {
			start = 0
			if end > 0 {
				n.Duration = end
			}
		}
		n.Start = start
		return n
	})
}

// Double plays the pattern twice as fast
func Double(p Pattern) Pattern {
	return scale(p, 0.5)
}

// Half plays the pattern at half speed
func Half(p Pattern) Pattern {
	return scale(p, 2)
}

func scale(p Pattern, factor float64) Pattern {
	out := mapNotes(p, func(n Note) Note {
		n.Start *= factor
		n.Duration *= factor
		return n
	})
	out.Length = p.Length * factor
	return out
}

// Shift moves every note by beats, which may be negative. Length is unchanged.
func Shift(p Pattern, beats float64) Pattern {
	return mapNotes(p, func(n Note) Note {
		n.Start += beats
		return n
	})
}

// ParseOp validates a modification name
func ParseOp(s string) (Op, error) {
	op := Op(strings.ToLower(s))
	for _, known := range Ops() {
		if op == known {
			return op, nil
		}
	}
	return "", Invalid("operation", s, "expected one of trans, rev, double, half, shift")
}

// Apply runs the named modification with its textual arguments. A result
// whose beat values leave the playable range is rejected.
func Apply(p Pattern, op Op, args []string) (Pattern, error) {
	out, err := apply(p, op, args)
	if err != nil {
		return Pattern{}, err
	}
	if err := out.Validate(); err != nil {
		return Pattern{}, err
	}
	return out, nil
}

func apply(p Pattern, op Op, args []string) (Pattern, error) {
	switch op {
	case OpTranspose:
		if len(args) < 1 {
			return Pattern{}, Invalid("semitones", nil, "missing argument")
		}
		semitones, err := strconv.Atoi(args[0])
		if err != nil {
			return Pattern{}, Invalid("semitones", args[0], "not an integer")
		}
		return Transpose(p, semitones), nil
	case OpReverse:
		return Reverse(p), nil
	case OpDouble:
		return Double(p), nil
	case OpHalf:
		return Half(p), nil
	case OpShift:
		if len(args) < 1 {
			return Pattern{}, Invalid("shift", nil, "missing argument")
		}
		beats, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return Pattern{}, Invalid("shift", args[0], "not a number")
		}
		if err := ValidateBeat("shift", beats); err != nil {
			return Pattern{}, err
		}
		return Shift(p, beats), nil
	default:
		return Pattern{}, Invalid("operation", string(op), "unknown")
	}
}
