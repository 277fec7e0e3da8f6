package player

import (
	"errors"
	"fmt"

	"github.com/james-see/patternplay/pkg/pattern"
)

// Playback errors
var (
	ErrAlreadyPlaying  = errors.New("already playing (use 'stop' first)")
	ErrSinkUnavailable = errors.New("no output available")
	ErrSinkWrite       = errors.New("output write failed")
	ErrEmptyTimeline   = pattern.Invalid("timeline", nil, "has no events")
)

// writeError wraps a sink failure so it matches both ErrSinkWrite and the cause
func writeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSinkWrite, op, err)
}
