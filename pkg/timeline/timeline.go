// Package timeline converts a pattern and a tempo into an absolute-time
// ordered sequence of note-on and note-off events
package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
)

// DefaultLatency is subtracted from every event time to absorb the constant
// transmission delay of the output
const DefaultLatency = 2 * time.Millisecond

// MinGate is the shortest on-to-off gap. Notes collapsed by clamping at zero
// are stretched to it so every NoteOn keeps a strictly later NoteOff.
const MinGate = time.Millisecond

// Kind is the type of a timeline event
type Kind uint8

const (
	NoteOff Kind = iota
	NoteOn
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Event is a single timed output event
type Event struct {
	At       time.Duration // Offset from session start
	Kind     Kind
	Pitch    uint8
	Velocity uint8 // NoteOn only
	Note     int   // Index of the source note in the pattern
}

// Timeline is a sorted event sequence
type Timeline []Event

// SecondsPerBeat converts a tempo into beat duration
func SecondsPerBeat(bpm int) float64 {
	return 60.0 / float64(bpm)
}

// MaxOffset is the latest event time a timeline holds. Later beats saturate
// to it, leaving room for MinGate.
const MaxOffset = time.Duration(math.MaxInt64) - MinGate

// beatTime converts a beat position into a compensated offset in
// [0, MaxOffset]
func beatTime(beat, spb float64, latency time.Duration) time.Duration {
	secs := beat * spb
	switch {
	case math.IsNaN(secs) || secs <= 0:
		return 0
	case secs >= float64(MaxOffset/time.Second-1):
		return MaxOffset
	}
	at := time.Duration(secs*float64(time.Second)) - latency
	if at < 0 {
		return 0
	}
	if at > MaxOffset {
		return MaxOffset
	}
	return at
}

// Build converts p into a timeline at bpm. It reads nothing but its arguments.
//
// Events are ordered by time; at equal times NoteOff precedes NoteOn so a
// repeated pitch is released before it is struck again, and remaining ties
// keep pattern order.
func Build(p pattern.Pattern, bpm int, latency time.Duration) Timeline {
	spb := SecondsPerBeat(bpm)
	tl := make(Timeline, 0, 2*len(p.Notes))

	for i, n := range p.Notes {
		on := beatTime(n.Start, spb, latency)
		off := beatTime(n.End(), spb, latency)
		if off <= on {
			off = on + MinGate
		}
		tl = append(tl,
			Event{At: on, Kind: NoteOn, Pitch: n.Pitch, Velocity: n.Velocity, Note: i},
			Event{At: off, Kind: NoteOff, Pitch: n.Pitch, Note: i},
		)
	}

	sort.SliceStable(tl, func(a, b int) bool {
		if tl[a].At != tl[b].At {
			return tl[a].At < tl[b].At
		}
		return tl[a].Kind < tl[b].Kind
	})
	return tl
}

// Duration returns the offset of the last event
func (tl Timeline) Duration() time.Duration {
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].At
}

// Validate checks that events are time ordered and that every NoteOn is
// followed by exactly one NoteOff of the same note
func (tl Timeline) Validate() error {
	on := make(map[int]Event)
	off := make(map[int]bool)

	for i, ev := range tl {
		if ev.At < 0 {
			return fmt.Errorf("event %d: negative time %v", i, ev.At)
		}
		if i > 0 && ev.At < tl[i-1].At {
			return fmt.Errorf("event %d: time %v before previous %v", i, ev.At, tl[i-1].At)
		}
		switch ev.Kind {
		case NoteOn:
			if _, dup := on[ev.Note]; dup {
				return fmt.Errorf("event %d: note %d switched on twice", i, ev.Note)
			}
			on[ev.Note] = ev
		case NoteOff:
			start, ok := on[ev.Note]
			if !ok {
				return fmt.Errorf("event %d: note %d switched off before on", i, ev.Note)
			}
			if off[ev.Note] {
				return fmt.Errorf("event %d: note %d switched off twice", i, ev.Note)
			}
			if start.Pitch != ev.Pitch {
				return fmt.Errorf("event %d: note %d off pitch %d, on pitch %d", i, ev.Note, ev.Pitch, start.Pitch)
			}
			if ev.At <= start.At {
				return fmt.Errorf("event %d: note %d off not after on", i, ev.Note)
			}
			off[ev.Note] = true
		default:
			return fmt.Errorf("event %d: unknown kind %v", i, ev.Kind)
		}
	}

	for note := range on {
		if !off[note] {
			return fmt.Errorf("note %d never switched off", note)
		}
	}
	return nil
}
