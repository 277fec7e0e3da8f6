package dsl

import (
	"sync"

	"github.com/james-see/patternplay/pkg/pattern"
)

// State holds the process-wide values that commands read and write: the
// tempo used when a timeline is built and the defaults given to new notes.
// Changes never touch existing patterns or a session already playing.
type State struct {
	mu       sync.Mutex
	tempo    int
	defaults pattern.Defaults
}

// NewState returns the initial state
func NewState() *State {
	return &State{
		tempo:    pattern.DefaultTempo,
		defaults: pattern.NewDefaults(),
	}
}

// Tempo returns the current tempo in BPM
func (s *State) Tempo() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// SetTempo validates and stores a tempo
func (s *State) SetTempo(bpm int) error {
	if err := pattern.ValidateTempo(bpm); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = bpm
	return nil
}

// Defaults returns a copy of the note defaults
func (s *State) Defaults() pattern.Defaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

// SetVelocity validates and stores the default velocity
func (s *State) SetVelocity(vel int) error {
	if err := pattern.ValidateVelocity(vel); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults.Velocity = uint8(vel)
	return nil
}

// SetLength validates and stores the default note length in beats
func (s *State) SetLength(beats float64) error {
	if err := pattern.ValidateLength(beats); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults.Length = beats
	return nil
}

// Reset restores the initial tempo and defaults
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = pattern.DefaultTempo
	s.defaults = pattern.NewDefaults()
}
