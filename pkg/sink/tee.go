package sink

import (
	"errors"
	"io"

	"github.com/james-see/patternplay/pkg/player"
)

// Tee forwards every call to each sink in order. The first sink is the
// primary output and names the tee.
type Tee []player.Sink

func (t Tee) NoteOn(pitch, velocity uint8) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.NoteOn(pitch, velocity))
	}
	return errors.Join(errs...)
}

func (t Tee) NoteOff(pitch uint8) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.NoteOff(pitch))
	}
	return errors.Join(errs...)
}

func (t Tee) AllNotesOff() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.AllNotesOff())
	}
	return errors.Join(errs...)
}

// Name reports the primary sink's name
func (t Tee) Name() string {
	if len(t) > 0 {
		if n, ok := t[0].(interface{ Name() string }); ok {
			return n.Name()
		}
	}
	return "tee"
}

// Close closes every sink that is an io.Closer
func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
