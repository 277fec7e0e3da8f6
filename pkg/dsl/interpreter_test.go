package dsl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/player"
	"github.com/james-see/patternplay/pkg/sink"
	"github.com/james-see/patternplay/pkg/store"
)

func newTestInterpreter(opts ...Option) (*Interpreter, *sink.Recorder) {
	rec := sink.NewRecorder()
	return New(store.New(), player.New(rec), opts...), rec
}

func mustExec(t *testing.T, in *Interpreter, line string) string {
	t.Helper()
	msg, err := in.Execute(line)
	if err != nil {
		t.Fatalf("Execute(%q) error = %v", line, err)
	}
	return msg
}

func TestExecuteBlankAndComment(t *testing.T) {
	in, _ := newTestInterpreter()
	for _, line := range []string{"", "   ", "# a comment"} {
		msg, err := in.Execute(line)
		if msg != "" || err != nil {
			t.Errorf("Execute(%q) = %q, %v", line, msg, err)
		}
	}
}

func TestPatternCommand(t *testing.T) {
	in, _ := newTestInterpreter()
	mustExec(t, in, "vel 100")
	mustExec(t, in, "len 0.5")
	msg := mustExec(t, in, "pat melody 4 c4 e4 g4 c5")
	if !strings.Contains(msg, "4 notes over 4 beats") {
		t.Errorf("message = %q", msg)
	}

	p, ok := in.Store().Get("melody")
	if !ok {
		t.Fatal("pattern not stored")
	}
	wantStarts := []float64{0, 1, 2, 3}
	wantPitches := []uint8{60, 64, 67, 72}
	for i, n := range p.Notes {
		if n.Start != wantStarts[i] || n.Pitch != wantPitches[i] || n.Velocity != 100 || n.Duration != 0.5 {
			t.Errorf("note %d = %+v", i, n)
		}
	}

	// defaults changes never rewrite existing notes
	mustExec(t, in, "vel 10")
	p, _ = in.Store().Get("melody")
	if p.Notes[0].Velocity != 100 {
		t.Errorf("velocity changed to %d", p.Notes[0].Velocity)
	}
}

func TestSequenceCommand(t *testing.T) {
	in, _ := newTestInterpreter()
	mustExec(t, in, "seq 60 62 64")
	p, ok := in.Store().Get(SeqName)
	if !ok {
		t.Fatal("sequence not stored")
	}
	if p.Length != 0.75 {
		t.Errorf("Length = %v, want 0.75", p.Length)
	}
	if p.Notes[2].Start != 0.5 {
		t.Errorf("third note start = %v, want 0.5", p.Notes[2].Start)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []string{
		"bogus",
		"pat",
		"pat p x c4",
		"pat p 0 c4",
		"pat p 4 c4 zz",
		"seq",
		"vel 128",
		"vel -1",
		"vel loud",
		"len 0",
		"len -2",
		"len inf",
		"len NaN",
		"len 1e300",
		"pat x inf c4 e4",
		"pat x 1e300 c4",
		"tempo 19",
		"tempo 301",
		"tempo fast",
		"play",
		"play missing",
		"mod missing rev",
		"show missing",
		"del missing",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			in, _ := newTestInterpreter()
			before := in.State().Defaults()
			tempo := in.State().Tempo()

			_, err := in.Execute(line)
			if !errors.Is(err, pattern.ErrValidation) {
				t.Fatalf("Execute(%q) error = %v, want validation error", line, err)
			}
			if in.State().Defaults() != before || in.State().Tempo() != tempo || in.Store().Len() != 0 {
				t.Error("state mutated on validation error")
			}
		})
	}
}

func TestNotFoundMatchesStore(t *testing.T) {
	in, _ := newTestInterpreter()
	_, err := in.Execute("play nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want store.ErrNotFound", err)
	}
}

func TestModifyCommand(t *testing.T) {
	in, _ := newTestInterpreter()
	mustExec(t, in, "pat p 4 c4 e4")

	tests := []struct {
		line  string
		check func(p pattern.Pattern) bool
	}{
		{"mod p trans 12", func(p pattern.Pattern) bool { return p.Notes[0].Pitch == 72 }},
		{"mod p trans -12", func(p pattern.Pattern) bool { return p.Notes[0].Pitch == 60 }},
		{"mod p double", func(p pattern.Pattern) bool { return p.Length == 2 && p.Notes[1].Start == 1 }},
		{"mod p half", func(p pattern.Pattern) bool { return p.Length == 4 && p.Notes[1].Start == 2 }},
		{"mod p shift -10", func(p pattern.Pattern) bool { return p.Notes[1].Start == -8 }},
	}
	for _, tt := range tests {
		mustExec(t, in, tt.line)
		p, _ := in.Store().Get("p")
		if !tt.check(p) {
			t.Errorf("%q produced %+v", tt.line, p)
		}
	}

	before, _ := in.Store().Get("p")
	for _, line := range []string{"mod p", "mod p spin", "mod p trans", "mod p trans up", "mod p shift NaN", "mod p shift inf", "mod p shift 1e12"} {
		if _, err := in.Execute(line); !errors.Is(err, pattern.ErrValidation) {
			t.Errorf("Execute(%q) error = %v, want validation error", line, err)
		}
	}
	after, _ := in.Store().Get("p")
	for i := range before.Notes {
		if after.Notes[i] != before.Notes[i] {
			t.Errorf("rejected mod changed note %d: %+v", i, after.Notes[i])
		}
	}
}

func TestConcurrentModifyKeepsEveryUpdate(t *testing.T) {
	in, _ := newTestInterpreter()
	mustExec(t, in, "pat p 1 c2")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := in.Execute("mod p trans 1"); err != nil {
				t.Errorf("mod error = %v", err)
			}
		}()
	}
	wg.Wait()

	p, _ := in.Store().Get("p")
	if want := uint8(36 + n); p.Notes[0].Pitch != want {
		t.Errorf("pitch = %d, want %d", p.Notes[0].Pitch, want)
	}
}

func TestPlayAndStop(t *testing.T) {
	in, rec := newTestInterpreter()
	mustExec(t, in, "tempo 300")
	mustExec(t, in, "pat p 4 c4 e4 g4")

	msg := mustExec(t, in, "play p")
	if !strings.Contains(msg, "Playing 'p'") {
		t.Errorf("message = %q", msg)
	}

	if _, err := in.Execute("play p"); !errors.Is(err, player.ErrAlreadyPlaying) {
		t.Errorf("second play error = %v, want ErrAlreadyPlaying", err)
	}

	mustExec(t, in, "stop")
	if rec.Count(sink.OpAllNotesOff) != 1 {
		t.Errorf("all-notes-off count = %d, want 1", rec.Count(sink.OpAllNotesOff))
	}
	if got := mustExec(t, in, "stop"); got != "Nothing playing" {
		t.Errorf("idle stop = %q", got)
	}
}

func TestTempoAppliesToNextBuild(t *testing.T) {
	in, rec := newTestInterpreter(WithLatency(0))
	mustExec(t, in, "tempo 300")
	mustExec(t, in, "len 0.1")
	mustExec(t, in, "seq 60")

	start := time.Now()
	mustExec(t, in, "play _seq")
	mustExec(t, in, "tempo 20")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := in.Player().Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if res.State != player.Completed {
		t.Errorf("State = %v, want completed", res.State)
	}
	// 0.1 beat at 300 BPM is 20ms; at 20 BPM it would be 300ms
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("playback took %v, tempo change leaked into running session", elapsed)
	}
	if rec.Count(sink.OpNoteOn) != 1 || rec.Count(sink.OpNoteOff) != 1 {
		t.Errorf("recording:\n%s", rec)
	}
}

func TestListShowDeleteClear(t *testing.T) {
	in, _ := newTestInterpreter()
	if got := mustExec(t, in, "list"); got != "No patterns defined" {
		t.Errorf("empty list = %q", got)
	}
	mustExec(t, in, "pat b 2 60")
	mustExec(t, in, "pat a 4 c4 d4")

	list := mustExec(t, in, "list")
	if strings.Index(list, "a: 2 notes") > strings.Index(list, "b: 1 notes") {
		t.Errorf("list not sorted:\n%s", list)
	}

	show := mustExec(t, in, "show a")
	if !strings.Contains(show, "c4") || !strings.Contains(show, "pitch=62") {
		t.Errorf("show =\n%s", show)
	}

	mustExec(t, in, "del b")
	if _, ok := in.Store().Get("b"); ok {
		t.Error("b still stored after del")
	}

	mustExec(t, in, "tempo 200")
	mustExec(t, in, "clear")
	if in.Store().Len() != 0 || in.State().Tempo() != pattern.DefaultTempo {
		t.Error("clear did not reset store and state")
	}
}

type fakeOutputs struct {
	opened []string
	err    error
}

func (f *fakeOutputs) Ports() []sink.Port {
	return []sink.Port{{Index: 0, Name: "dry-run"}, {Index: 1, Name: "synth"}}
}

func (f *fakeOutputs) Open(port string) (player.Sink, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, port)
	return sink.NewRecorder(), nil
}

func TestPortsCommands(t *testing.T) {
	in, _ := newTestInterpreter()
	if _, err := in.Execute("ports"); !errors.Is(err, player.ErrSinkUnavailable) {
		t.Errorf("ports without outputs error = %v", err)
	}

	outs := &fakeOutputs{}
	in, prev := newTestInterpreter(WithOutputs(outs))

	list := mustExec(t, in, "ports")
	if !strings.Contains(list, "0: dry-run (current)") || !strings.Contains(list, "1: synth") {
		t.Errorf("ports =\n%s", list)
	}

	mustExec(t, in, "port 1")
	if len(outs.opened) != 1 || outs.opened[0] != "1" {
		t.Errorf("opened = %v", outs.opened)
	}
	if prev.Count(sink.OpAllNotesOff) != 1 {
		t.Error("previous sink was not silenced")
	}
	if in.Player().Sink() == player.Sink(prev) {
		t.Error("sink not swapped")
	}

	outs.err = player.ErrSinkUnavailable
	if _, err := in.Execute("port 9"); !errors.Is(err, player.ErrSinkUnavailable) {
		t.Errorf("port error = %v", err)
	}
}

func TestPortKeepsRecordingTee(t *testing.T) {
	primary, capture := sink.NewRecorder(), sink.NewRecorder()
	outs := &fakeOutputs{}
	in := New(store.New(), player.New(sink.Tee{primary, capture}), WithOutputs(outs))

	mustExec(t, in, "port 1")

	tee, ok := in.Player().Sink().(sink.Tee)
	if !ok || len(tee) != 2 {
		t.Fatalf("Sink() = %#v, want a two-way tee", in.Player().Sink())
	}
	if tee[0] == player.Sink(primary) || tee[1] != player.Sink(capture) {
		t.Error("tee primary not replaced or capture dropped")
	}
	if primary.Count(sink.OpAllNotesOff) != 1 || capture.Count(sink.OpAllNotesOff) != 0 {
		t.Error("only the replaced output should be silenced")
	}

	mustExec(t, in, "len 4")
	mustExec(t, in, "seq c4")
	mustExec(t, in, "play _seq")
	mustExec(t, in, "stop")
	if capture.Count(sink.OpAllNotesOff) != 1 {
		t.Error("recording missed playback after the port switch")
	}
}

func TestStatusCommand(t *testing.T) {
	in, _ := newTestInterpreter()
	if got := mustExec(t, in, "status"); !strings.HasPrefix(got, "Idle") {
		t.Errorf("status = %q", got)
	}
}

func TestRunScript(t *testing.T) {
	in, _ := newTestInterpreter()
	script := "# setup\nvel 90\npat p 2 c4 e4\n\nshow p\n"
	var out bytes.Buffer
	if err := in.Run(strings.NewReader(script), &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Created pattern 'p'") {
		t.Errorf("output =\n%s", out.String())
	}

	err := in.Run(strings.NewReader("vel 90\nvel 900\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Run() error = %v, want line 2 failure", err)
	}
}
