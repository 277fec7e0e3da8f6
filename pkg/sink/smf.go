package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultTicksPerQuarter is the file resolution of SMF recordings
const DefaultTicksPerQuarter = 480

// SMF captures output into a single-track Standard MIDI File. Message times
// are measured from the first captured message and stored as ticks at a
// fixed tempo, so the file replays with the timing that was actually sent.
type SMF struct {
	mu       sync.Mutex
	channel  uint8
	bpm      int
	tpq      uint16
	now      func() time.Time
	started  bool
	origin   time.Time
	lastTick uint32
	track    smf.Track
}

// NewSMF creates a recording on channel (zero based) at bpm
func NewSMF(channel uint8, bpm int) *SMF {
	return &SMF{
		channel: channel & 0x0F,
		bpm:     bpm,
		tpq:     DefaultTicksPerQuarter,
		now:     time.Now,
	}
}

func (s *SMF) add(msg midi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	if !s.started {
		s.started = true
		s.origin = t
	}
	tick := s.ticks(t.Sub(s.origin))
	if tick < s.lastTick {
		tick = s.lastTick
	}
	s.track.Add(tick-s.lastTick, msg)
	s.lastTick = tick
	return nil
}

// ticks converts elapsed wall time into file ticks
func (s *SMF) ticks(d time.Duration) uint32 {
	beats := d.Seconds() * float64(s.bpm) / 60
	return uint32(beats*float64(s.tpq) + 0.5)
}

func (s *SMF) NoteOn(pitch, velocity uint8) error {
	return s.add(midi.NoteOn(s.channel, pitch, velocity))
}

func (s *SMF) NoteOff(pitch uint8) error {
	return s.add(midi.NoteOff(s.channel, pitch))
}

func (s *SMF) AllNotesOff() error {
	return s.add(midi.ControlChange(s.channel, midi.AllNotesOff, midi.Off))
}

// Len returns the number of captured messages
func (s *SMF) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.track)
}

// WriteTo encodes the recording. It may be called more than once.
func (s *SMF) WriteTo(w io.Writer) (int64, error) {
	s.mu.Lock()
	track := make(smf.Track, 0, len(s.track)+3)

	// tempo meta event
	usPerBeat := uint32(60000000 / s.bpm)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(usPerBeat >> 16),
		byte(usPerBeat >> 8),
		byte(usPerBeat),
	}))
	// 4/4
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))
	track = append(track, s.track...)
	tpq := s.tpq
	s.mu.Unlock()

	track.Close(0)

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(tpq)
	if err := file.Add(track); err != nil {
		return 0, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return 0, fmt.Errorf("failed to write MIDI: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Save writes the recording to path
func (s *SMF) Save(path string) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}
