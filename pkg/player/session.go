package player

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/james-see/patternplay/pkg/timeline"
	"go.uber.org/zap"
)

// State is the lifecycle stage of a playback session
type State int32

const (
	Idle State = iota
	Scheduled
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether the session has ended
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Result describes how a session ended
type Result struct {
	Pattern    string
	State      State
	Dispatched int
	Total      int
	Elapsed    time.Duration
	Err        error
}

// session is one in-flight playback. The fields above the blank line are
// fixed at creation; the rest are written by the dispatch goroutine before
// finished is closed and read by others only after that.
type session struct {
	name      string
	timeline  timeline.Timeline
	sink      Sink
	registry  *Registry
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
	finished  chan struct{} // dispatch loop has exited
	done      chan struct{} // slot released, result final

	state      atomic.Int32
	dispatched atomic.Int64

	err      error
	flushed  bool
	result   Result
	stopping bool // guarded by Player.mu; Stop has taken over teardown
}

func newSession(name string, tl timeline.Timeline, sink Sink, log *zap.Logger) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		name:     name,
		timeline: tl,
		sink:     sink,
		registry: NewRegistry(),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.state.Store(int32(Scheduled))
	return s
}

func (s *session) State() State {
	return State(s.state.Load())
}

func (s *session) setState(st State) {
	s.state.Store(int32(st))
}

// dispatch releases every event at its deadline. It returns nil when the
// timeline is exhausted, the context error when cancelled and the sink
// error otherwise.
func (s *session) dispatch() error {
	for i, ev := range s.timeline {
		if err := s.wait(ev.At); err != nil {
			return err
		}
		if i == 0 {
			s.state.CompareAndSwap(int32(Scheduled), int32(Running))
		}
		if err := s.emit(ev); err != nil {
			return err
		}
		s.dispatched.Add(1)
	}
	return nil
}

// wait blocks until the event deadline or until the session is cancelled
func (s *session) wait(at time.Duration) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	d := time.Until(s.startedAt.Add(at))
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *session) emit(ev timeline.Event) error {
	if ce := s.log.Check(zap.DebugLevel, "dispatch"); ce != nil {
		ce.Write(
			zap.Stringer("kind", ev.Kind),
			zap.Uint8("pitch", ev.Pitch),
			zap.Duration("at", ev.At),
			zap.Duration("late", time.Since(s.startedAt.Add(ev.At))))
	}
	switch ev.Kind {
	case timeline.NoteOn:
		if err := s.sink.NoteOn(ev.Pitch, ev.Velocity); err != nil {
			return writeError("note on", err)
		}
		s.registry.On(ev.Pitch)
	case timeline.NoteOff:
		if err := s.sink.NoteOff(ev.Pitch); err != nil {
			return writeError("note off", err)
		}
		s.registry.Off(ev.Pitch)
	}
	return nil
}

// flush switches off every registered pitch and then broadcasts
// all-notes-off. The registry is emptied even if the sink fails.
func (s *session) flush() error {
	var errs []error
	for _, pitch := range s.registry.Sounding() {
		if err := s.sink.NoteOff(pitch); err != nil {
			errs = append(errs, writeError("note off", err))
		}
	}
	s.registry.Reset()
	if err := s.sink.AllNotesOff(); err != nil {
		errs = append(errs, writeError("all notes off", err))
	}
	s.flushed = true
	return errors.Join(errs...)
}

func (s *session) snapshot() Result {
	return Result{
		Pattern:    s.name,
		State:      s.State(),
		Dispatched: int(s.dispatched.Load()),
		Total:      len(s.timeline),
		Elapsed:    time.Since(s.startedAt),
	}
}
