package sink

import (
	"go.uber.org/zap"
)

// Log simulates an output device by logging every message. It is used when
// no MIDI port can be opened.
type Log struct {
	log *zap.Logger
}

// NewLog creates a simulation sink writing to l
func NewLog(l *zap.Logger) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{log: l.Named("sim")}
}

func (s *Log) NoteOn(pitch, velocity uint8) error {
	s.log.Info("note on", zap.Uint8("pitch", pitch), zap.Uint8("velocity", velocity))
	return nil
}

func (s *Log) NoteOff(pitch uint8) error {
	s.log.Info("note off", zap.Uint8("pitch", pitch))
	return nil
}

func (s *Log) AllNotesOff() error {
	s.log.Info("all notes off")
	return nil
}

// Name identifies the sink in port listings
func (s *Log) Name() string {
	return "simulation"
}
