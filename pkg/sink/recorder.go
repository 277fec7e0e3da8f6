package sink

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/james-see/patternplay/pkg/player"
)

// Op identifies a recorded sink call
type Op string

const (
	OpNoteOn      Op = "on"
	OpNoteOff     Op = "off"
	OpAllNotesOff Op = "all"
)

// Message is one recorded sink call
type Message struct {
	Op       Op            `json:"op"`
	Pitch    uint8         `json:"pitch,omitempty"`
	Velocity uint8         `json:"velocity,omitempty"`
	At       time.Duration `json:"at"`
}

func (m Message) String() string {
	switch m.Op {
	case OpNoteOn:
		return fmt.Sprintf("%8s  on  %3d vel %d", m.At.Round(time.Millisecond), m.Pitch, m.Velocity)
	case OpNoteOff:
		return fmt.Sprintf("%8s  off %3d", m.At.Round(time.Millisecond), m.Pitch)
	default:
		return fmt.Sprintf("%8s  all notes off", m.At.Round(time.Millisecond))
	}
}

// Recorder keeps every message in memory, timestamped relative to its
// creation or last Reset
type Recorder struct {
	mu       sync.Mutex
	start    time.Time
	messages []Message
	fail     func(Message) error
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{start: time.Now()}
}

// FailWith makes the recorder reject messages for which fn returns an error.
// Rejected messages are not recorded. A nil fn clears the failure.
func (r *Recorder) FailWith(fn func(Message) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fn
}

func (r *Recorder) record(m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.At = time.Since(r.start)
	if r.fail != nil {
		if err := r.fail(m); err != nil {
			return err
		}
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *Recorder) NoteOn(pitch, velocity uint8) error {
	return r.record(Message{Op: OpNoteOn, Pitch: pitch, Velocity: velocity})
}

func (r *Recorder) NoteOff(pitch uint8) error {
	return r.record(Message{Op: OpNoteOff, Pitch: pitch})
}

func (r *Recorder) AllNotesOff() error {
	return r.record(Message{Op: OpAllNotesOff})
}

// Messages returns a copy of everything recorded
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns how many messages of op were recorded
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Op == op {
			n++
		}
	}
	return n
}

// Reset drops all messages and restarts the clock
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.start = time.Now()
}

// String renders the recording one message per line
func (r *Recorder) String() string {
	var b strings.Builder
	for _, m := range r.Messages() {
		b.WriteString(m.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Name identifies the sink in port listings
func (r *Recorder) Name() string {
	return "dry-run"
}

var (
	_ player.Sink = (*MIDI)(nil)
	_ player.Sink = (*Log)(nil)
	_ player.Sink = (*Recorder)(nil)
	_ player.Sink = (*SMF)(nil)
	_ player.Sink = Tee(nil)
)
