// Package player owns the single active playback session: it dispatches a
// timeline to a Sink at the right wall-clock instants and guarantees that
// stopping never leaves a note sounding
package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/timeline"
	"go.uber.org/zap"
)

// Option configures a Player
type Option func(*Player)

// WithLogger sets the logger used for session lifecycle messages
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.log = l
		}
	}
}

// WithOnFinish registers a callback invoked once per session after its
// slot has been released. It runs on the goroutine that ended the session
// and must not block.
func WithOnFinish(fn func(Result)) Option {
	return func(p *Player) {
		p.onFinish = fn
	}
}

// Status is a point-in-time view of the player
type Status struct {
	State      State
	Pattern    string
	Dispatched int
	Total      int
	Elapsed    time.Duration
	Sounding   []uint8
}

// Player schedules timelines onto a sink, one session at a time
type Player struct {
	mu       sync.Mutex // guards sink, active and last
	sink     Sink
	active   *session
	last     Result
	log      *zap.Logger
	onFinish func(Result)
}

// New creates a player bound to sink. A nil sink is allowed; Play then fails
// with ErrSinkUnavailable until SetSink is called.
func New(sink Sink, opts ...Option) *Player {
	p := &Player{
		sink: sink,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play starts dispatching tl in the background and returns immediately
func (p *Player) Play(name string, tl timeline.Timeline) error {
	if len(tl) == 0 {
		return ErrEmptyTimeline
	}
	if err := tl.Validate(); err != nil {
		return pattern.Invalid("timeline", name, err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		return ErrAlreadyPlaying
	}
	if p.sink == nil {
		return ErrSinkUnavailable
	}

	s := newSession(name, tl, p.sink, p.log)
	s.startedAt = time.Now()
	p.active = s
	go p.run(s)

	p.log.Info("playback started",
		zap.String("pattern", name),
		zap.Int("events", len(tl)),
		zap.Duration("duration", tl.Duration()))
	return nil
}

// run is the dispatch goroutine of one session
func (p *Player) run(s *session) {
	err := s.dispatch()
	switch {
	case errors.Is(err, context.Canceled):
		s.setState(Cancelled)
	case err != nil:
		p.log.Error("playback failed, flushing", zap.String("pattern", s.name), zap.Error(err))
		if flushErr := s.flush(); flushErr != nil {
			p.log.Warn("flush after failure incomplete", zap.Error(flushErr))
			err = errors.Join(err, flushErr)
		}
		s.err = err
		s.setState(Failed)
	default:
		s.setState(Completed)
	}
	close(s.finished)

	p.mu.Lock()
	if s.stopping {
		// Stop owns the teardown
		p.mu.Unlock()
		return
	}
	res, ok := p.releaseLocked(s, nil)
	p.mu.Unlock()
	if ok {
		p.notify(res)
		close(s.done)
	}
}

// Stop cancels the active session, switches off every sounding note and
// sends all-notes-off before returning. It is a no-op when nothing plays.
// The session keeps its slot until the flush is done. The lock is not held
// while waiting or flushing; a concurrent Stop waits for the first one.
func (p *Player) Stop() error {
	p.mu.Lock()
	s := p.active
	if s == nil {
		p.mu.Unlock()
		return nil
	}
	if s.stopping {
		p.mu.Unlock()
		<-s.done
		return nil
	}
	s.stopping = true
	s.cancel()
	p.mu.Unlock()

	<-s.finished

	var flushErr error
	if !s.flushed {
		flushErr = s.flush()
	}

	p.mu.Lock()
	res, _ := p.releaseLocked(s, flushErr)
	p.mu.Unlock()

	p.log.Info("playback stopped",
		zap.String("pattern", s.name),
		zap.Int("dispatched", res.Dispatched),
		zap.Int("total", res.Total))
	p.notify(res)
	close(s.done)
	return res.Err
}

// releaseLocked empties the active slot if it still holds s and reports
// whether this call did it. The caller that gets true must notify and then
// close s.done.
func (p *Player) releaseLocked(s *session, flushErr error) (Result, bool) {
	if p.active != s {
		return Result{}, false
	}
	res := s.snapshot()
	res.Err = errors.Join(s.err, flushErr)
	s.result = res
	p.last = res
	p.active = nil
	s.cancel()
	return res, true
}

func (p *Player) notify(res Result) {
	if res.State == Completed {
		p.log.Info("playback completed",
			zap.String("pattern", res.Pattern),
			zap.Duration("elapsed", res.Elapsed))
	}
	if p.onFinish != nil {
		p.onFinish(res)
	}
}

// Wait blocks until the current session ends and returns its result. With no
// active session it returns the result of the previous one.
func (p *Player) Wait(ctx context.Context) (Result, error) {
	p.mu.Lock()
	s := p.active
	last := p.last
	p.mu.Unlock()

	if s == nil {
		return last, nil
	}
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Playing reports whether a session is active
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Status reports the active session, or Idle
func (p *Player) Status() Status {
	p.mu.Lock()
	s := p.active
	p.mu.Unlock()

	if s == nil {
		return Status{State: Idle}
	}
	return Status{
		State:      s.State(),
		Pattern:    s.name,
		Dispatched: int(s.dispatched.Load()),
		Total:      len(s.timeline),
		Elapsed:    time.Since(s.startedAt),
		Sounding:   s.registry.Sounding(),
	}
}

// LastResult returns the result of the most recently ended session
func (p *Player) LastResult() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Sink returns the bound sink
func (p *Player) Sink() Sink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink
}

// SetSink binds a new sink. Sinks cannot be swapped while a session plays.
func (p *Player) SetSink(sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return ErrAlreadyPlaying
	}
	p.sink = sink
	return nil
}

// Close stops playback and closes the sink if it is an io.Closer
func (p *Player) Close() error {
	err := p.Stop()
	if c, ok := p.Sink().(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
