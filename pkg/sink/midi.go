// Package sink provides output destinations for the player
package sink

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/james-see/patternplay/pkg/player"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// Channels is the number of MIDI channels addressed by all-notes-off in
// all-channel mode
const Channels = 16

// MIDI sends note messages on a single channel through a gomidi sender
type MIDI struct {
	mu          sync.Mutex
	name        string
	out         drivers.Out
	send        func(midi.Message) error
	channel     uint8
	allChannels bool
	log         *zap.Logger
}

// MIDIOption configures a MIDI sink
type MIDIOption func(*MIDI)

// WithMIDILogger sets the logger used for each sent message at debug level
func WithMIDILogger(l *zap.Logger) MIDIOption {
	return func(m *MIDI) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMIDI wraps an existing sender. channel is zero based (0-15).
func NewMIDI(name string, send func(midi.Message) error, channel uint8, allChannels bool, opts ...MIDIOption) *MIDI {
	m := &MIDI{
		name:        name,
		send:        send,
		channel:     channel & 0x0F,
		allChannels: allChannels,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenMIDI opens an output port by index or name. An empty port selects the
// first available one. channel is zero based.
func OpenMIDI(port string, channel uint8, allChannels bool, opts ...MIDIOption) (*MIDI, error) {
	if !driverAvailable {
		return nil, fmt.Errorf("%w: built without a MIDI driver", player.ErrSinkUnavailable)
	}

	out, err := findPort(port)
	if err != nil {
		return nil, err
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", player.ErrSinkUnavailable, out.String(), err)
	}

	m := NewMIDI(out.String(), send, channel, allChannels, opts...)
	m.out = out
	m.log.Info("midi output opened", zap.String("port", m.name), zap.Uint8("channel", channel+1))
	return m, nil
}

func findPort(port string) (drivers.Out, error) {
	if port == "" {
		port = "0"
	}
	if idx, err := strconv.Atoi(port); err == nil {
		ports := midi.GetOutPorts()
		if idx < 0 || idx >= len(ports) {
			if len(ports) == 0 {
				return nil, fmt.Errorf("%w: no MIDI output ports found", player.ErrSinkUnavailable)
			}
			return nil, fmt.Errorf("%w: port index %d out of range (0-%d)", player.ErrSinkUnavailable, idx, len(ports)-1)
		}
		out, err := midi.OutPort(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", player.ErrSinkUnavailable, err)
		}
		return out, nil
	}

	out, err := midi.FindOutPort(port)
	if err != nil {
		return nil, fmt.Errorf("%w: port %q: %w", player.ErrSinkUnavailable, port, err)
	}
	return out, nil
}

// Port describes an available output
type Port struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Ports lists the MIDI outputs the driver can see
func Ports() []Port {
	if !driverAvailable {
		return nil
	}
	outs := midi.GetOutPorts()
	ports := make([]Port, 0, len(outs))
	for i, out := range outs {
		ports = append(ports, Port{Index: i, Name: out.String()})
	}
	return ports
}

// Name returns the port name
func (m *MIDI) Name() string {
	return m.name
}

// Channel returns the zero based channel
func (m *MIDI) Channel() uint8 {
	return m.channel
}

func (m *MIDI) write(msg midi.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.send == nil {
		return fmt.Errorf("%w: port %q closed", player.ErrSinkUnavailable, m.name)
	}
	m.log.Debug("midi out", zap.Stringer("msg", msg))
	return m.send(msg)
}

func (m *MIDI) NoteOn(pitch, velocity uint8) error {
	return m.write(midi.NoteOn(m.channel, pitch, velocity))
}

func (m *MIDI) NoteOff(pitch uint8) error {
	return m.write(midi.NoteOff(m.channel, pitch))
}

// AllNotesOff sends controller 123 on the bound channel, or on every channel
// in all-channel mode
func (m *MIDI) AllNotesOff() error {
	if !m.allChannels {
		return m.write(midi.ControlChange(m.channel, midi.AllNotesOff, midi.Off))
	}
	for ch := uint8(0); ch < Channels; ch++ {
		if err := m.write(midi.ControlChange(ch, midi.AllNotesOff, midi.Off)); err != nil {
			return fmt.Errorf("channel %d: %w", ch+1, err)
		}
	}
	return nil
}

// Close releases the port. Further writes fail with ErrSinkUnavailable.
func (m *MIDI) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.send = nil
	if m.out == nil {
		return nil
	}
	err := m.out.Close()
	m.out = nil
	return err
}

// CloseDriver shuts down the registered MIDI driver
func CloseDriver() {
	if driverAvailable {
		midi.CloseDriver()
	}
}
