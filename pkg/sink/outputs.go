package sink

import (
	"github.com/james-see/patternplay/pkg/player"
	"go.uber.org/zap"
)

// MIDIOutputs opens MIDI ports with a fixed channel configuration
type MIDIOutputs struct {
	Channel     uint8 // zero based
	AllChannels bool
	Log         *zap.Logger
}

// Ports lists the available MIDI outputs
func (o MIDIOutputs) Ports() []Port {
	return Ports()
}

// Open opens the port named or numbered by port
func (o MIDIOutputs) Open(port string) (player.Sink, error) {
	m, err := OpenMIDI(port, o.Channel, o.AllChannels, WithMIDILogger(o.Log))
	if err != nil {
		return nil, err
	}
	return m, nil
}
