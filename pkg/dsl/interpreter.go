// Package dsl implements the textual command language used by the REPL,
// scripts and the HTTP API
package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/player"
	"github.com/james-see/patternplay/pkg/sink"
	"github.com/james-see/patternplay/pkg/store"
	"github.com/james-see/patternplay/pkg/timeline"
	"go.uber.org/zap"
)

// SeqName is the pattern written by the seq command
const SeqName = "_seq"

// Outputs enumerates and opens output ports for the ports and port commands
type Outputs interface {
	Ports() []sink.Port
	Open(port string) (player.Sink, error)
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithLogger sets the logger for executed commands
func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.log = l
		}
	}
}

// WithLatency overrides timeline.DefaultLatency
func WithLatency(d time.Duration) Option {
	return func(in *Interpreter) {
		in.latency = d
	}
}

// WithOutputs enables the ports and port commands
func WithOutputs(o Outputs) Option {
	return func(in *Interpreter) {
		in.outputs = o
	}
}

// WithState shares an existing State
func WithState(s *State) Option {
	return func(in *Interpreter) {
		if s != nil {
			in.state = s
		}
	}
}

type handler func(in *Interpreter, args []string) (string, error)

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"pat":    (*Interpreter).cmdPattern,
		"seq":    (*Interpreter).cmdSequence,
		"vel":    (*Interpreter).cmdVelocity,
		"len":    (*Interpreter).cmdLength,
		"tempo":  (*Interpreter).cmdTempo,
		"play":   (*Interpreter).cmdPlay,
		"stop":   (*Interpreter).cmdStop,
		"mod":    (*Interpreter).cmdModify,
		"list":   (*Interpreter).cmdList,
		"show":   (*Interpreter).cmdShow,
		"del":    (*Interpreter).cmdDelete,
		"clear":  (*Interpreter).cmdClear,
		"ports":  (*Interpreter).cmdPorts,
		"port":   (*Interpreter).cmdPort,
		"status": (*Interpreter).cmdStatus,
		"help":   (*Interpreter).cmdHelp,
	}
}

// Interpreter executes commands against a store and a player. Commands run
// one at a time, so a read-modify-write such as mod never interleaves with
// another command.
type Interpreter struct {
	mu      sync.Mutex
	state   *State
	store   *store.Store
	player  *player.Player
	outputs Outputs
	latency time.Duration
	log     *zap.Logger
}

// New creates an interpreter
func New(st *store.Store, p *player.Player, opts ...Option) *Interpreter {
	in := &Interpreter{
		state:   NewState(),
		store:   st,
		player:  p,
		latency: timeline.DefaultLatency,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// State returns the tempo and defaults the interpreter uses
func (in *Interpreter) State() *State {
	return in.state
}

// Store returns the pattern store
func (in *Interpreter) Store() *store.Store {
	return in.store
}

// Player returns the player
func (in *Interpreter) Player() *player.Player {
	return in.player
}

// Execute runs one command line. Blank lines and comments return "".
func (in *Interpreter) Execute(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])

	h, ok := commands[name]
	if !ok {
		return "", pattern.Invalid("command", name, "unknown (try 'help')")
	}
	msg, err := h(in, fields[1:])
	if err != nil {
		in.log.Debug("command failed", zap.String("command", line), zap.Error(err))
		return "", err
	}
	in.log.Debug("command", zap.String("command", line))
	return msg, nil
}

// Run executes every line of r, stopping at the first error, and writes
// each non-empty message to out
func (in *Interpreter) Run(r io.Reader, out io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	for i, line := range strings.Split(string(data), "\n") {
		msg, err := in.Execute(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
	}
	return nil
}

func usage(text string) error {
	return &pattern.ValidationError{Field: "arguments", Reason: "usage: " + text}
}

// NotFound reports an unknown pattern name. It matches both
// pattern.ErrValidation and store.ErrNotFound.
func NotFound(name string) error {
	return fmt.Errorf("%w: %w", pattern.Invalid("pattern", name, "not found"), store.ErrNotFound)
}

func (in *Interpreter) lookup(name string) (pattern.Pattern, error) {
	p, ok := in.store.Get(name)
	if !ok {
		return pattern.Pattern{}, NotFound(name)
	}
	return p, nil
}

func (in *Interpreter) cmdPattern(args []string) (string, error) {
	if len(args) < 3 {
		return "", usage("pat <name> <beats> <note1> [note2 ...]")
	}
	name := args[0]
	beats, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "", pattern.Invalid("beats", args[1], "not a number")
	}
	if err := pattern.ValidateLength(beats); err != nil {
		return "", err
	}
	pitches, err := ParseNotes(args[2:])
	if err != nil {
		return "", err
	}

	p := pattern.Spread(name, beats, pitches, in.state.Defaults())
	if err := p.Validate(); err != nil {
		return "", err
	}
	in.store.Put(p)
	return fmt.Sprintf("Created pattern '%s' with %d notes over %s beats", name, len(p.Notes), formatBeats(beats)), nil
}

func (in *Interpreter) cmdSequence(args []string) (string, error) {
	if len(args) == 0 {
		return "", usage("seq <note1> [note2 ...]")
	}
	pitches, err := ParseNotes(args)
	if err != nil {
		return "", err
	}
	p := pattern.Sequence(SeqName, pitches, in.state.Defaults())
	if err := p.Validate(); err != nil {
		return "", err
	}
	in.store.Put(p)
	return fmt.Sprintf("Sequence '%s': %d notes, MIDI %v", SeqName, len(pitches), pitches), nil
}

func (in *Interpreter) cmdVelocity(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage(fmt.Sprintf("vel <0-127> (current: %d)", in.state.Defaults().Velocity))
	}
	vel, err := strconv.Atoi(args[0])
	if err != nil {
		return "", pattern.Invalid("velocity", args[0], "not an integer")
	}
	if err := in.state.SetVelocity(vel); err != nil {
		return "", err
	}
	return fmt.Sprintf("Velocity set to %d", vel), nil
}

func (in *Interpreter) cmdLength(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage(fmt.Sprintf("len <beats> (current: %s)", formatBeats(in.state.Defaults().Length)))
	}
	beats, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "", pattern.Invalid("length", args[0], "not a number")
	}
	if err := in.state.SetLength(beats); err != nil {
		return "", err
	}
	return fmt.Sprintf("Note length set to %s beats", formatBeats(beats)), nil
}

func (in *Interpreter) cmdTempo(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage(fmt.Sprintf("tempo <bpm> (current: %d)", in.state.Tempo()))
	}
	bpm, err := strconv.Atoi(args[0])
	if err != nil {
		return "", pattern.Invalid("tempo", args[0], "not an integer")
	}
	if err := in.state.SetTempo(bpm); err != nil {
		return "", err
	}
	return fmt.Sprintf("Tempo set to %d BPM", bpm), nil
}

// Play builds the named pattern at the current tempo and starts it
func (in *Interpreter) Play(name string) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.play(name)
}

func (in *Interpreter) play(name string) (string, error) {
	p, err := in.lookup(name)
	if err != nil {
		return "", err
	}
	bpm := in.state.Tempo()
	tl := timeline.Build(p, bpm, in.latency)
	if err := in.player.Play(name, tl); err != nil {
		return "", err
	}
	return fmt.Sprintf("Playing '%s': %d notes, %.2fs at %d BPM", name, len(p.Notes), tl.Duration().Seconds(), bpm), nil
}

func (in *Interpreter) cmdPlay(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("play <pattern>")
	}
	return in.play(args[0])
}

// Stop ends playback. Stopping when idle is not an error.
func (in *Interpreter) Stop() (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stop()
}

func (in *Interpreter) stop() (string, error) {
	if !in.player.Playing() {
		return "Nothing playing", nil
	}
	if err := in.player.Stop(); err != nil {
		return "", err
	}
	res := in.player.LastResult()
	return fmt.Sprintf("Stopped '%s' after %d/%d events", res.Pattern, res.Dispatched, res.Total), nil
}

func (in *Interpreter) cmdStop(_ []string) (string, error) {
	return in.stop()
}

func (in *Interpreter) cmdModify(args []string) (string, error) {
	if len(args) < 2 {
		return "", usage("mod <pattern> <op> [params] (ops: trans, rev, double, half, shift)")
	}
	name := args[0]
	p, err := in.lookup(name)
	if err != nil {
		return "", err
	}
	op, err := pattern.ParseOp(args[1])
	if err != nil {
		return "", err
	}
	out, err := pattern.Apply(p, op, args[2:])
	if err != nil {
		return "", err
	}
	in.store.Put(out)

	switch op {
	case pattern.OpTranspose:
		return fmt.Sprintf("Transposed '%s' by %s semitones", name, args[2]), nil
	case pattern.OpReverse:
		return fmt.Sprintf("Reversed '%s'", name), nil
	case pattern.OpDouble:
		return fmt.Sprintf("Doubled speed of '%s'", name), nil
	case pattern.OpHalf:
		return fmt.Sprintf("Halved speed of '%s'", name), nil
	default:
		return fmt.Sprintf("Shifted '%s' by %s beats", name, args[2]), nil
	}
}

func (in *Interpreter) cmdList(_ []string) (string, error) {
	names := in.store.List()
	if len(names) == 0 {
		return "No patterns defined", nil
	}
	lines := []string{"Patterns:"}
	for _, name := range names {
		p, ok := in.store.Get(name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %d notes, %s beats", name, len(p.Notes), formatBeats(p.Length)))
	}
	return strings.Join(lines, "\n"), nil
}

func (in *Interpreter) cmdShow(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("show <pattern>")
	}
	p, err := in.lookup(args[0])
	if err != nil {
		return "", err
	}
	return Describe(p), nil
}

// Describe renders a pattern one note per line
func Describe(p pattern.Pattern) string {
	lines := []string{
		fmt.Sprintf("Pattern '%s':", p.Name),
		fmt.Sprintf("  Length: %s beats", formatBeats(p.Length)),
		fmt.Sprintf("  Notes (%d):", len(p.Notes)),
	}
	for i, n := range p.Notes {
		lines = append(lines, fmt.Sprintf("    %d. %-4s pitch=%d vel=%d dur=%.2f @%.2fb",
			i+1, NoteName(n.Pitch), n.Pitch, n.Velocity, n.Duration, n.Start))
	}
	return strings.Join(lines, "\n")
}

// Delete removes a pattern between commands
func (in *Interpreter) Delete(name string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, err := in.delete(name)
	return err
}

func (in *Interpreter) delete(name string) (string, error) {
	if !in.store.Delete(name) {
		return "", NotFound(name)
	}
	return fmt.Sprintf("Deleted pattern '%s'", name), nil
}

func (in *Interpreter) cmdDelete(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("del <pattern>")
	}
	return in.delete(args[0])
}

func (in *Interpreter) cmdClear(_ []string) (string, error) {
	in.store.Clear()
	in.state.Reset()
	return "Cleared all patterns and state", nil
}

func (in *Interpreter) cmdPorts(_ []string) (string, error) {
	if in.outputs == nil {
		return "", player.ErrSinkUnavailable
	}
	ports := in.outputs.Ports()
	if len(ports) == 0 {
		return "No MIDI output ports found", nil
	}
	current := ""
	if n, ok := in.player.Sink().(interface{ Name() string }); ok {
		current = n.Name()
	}
	lines := []string{"Available MIDI ports:"}
	for _, port := range ports {
		mark := ""
		if port.Name == current {
			mark = " (current)"
		}
		lines = append(lines, fmt.Sprintf("  %d: %s%s", port.Index, port.Name, mark))
	}
	return strings.Join(lines, "\n"), nil
}

func (in *Interpreter) cmdPort(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("port <name_or_index>")
	}
	if in.outputs == nil {
		return "", player.ErrSinkUnavailable
	}
	if in.player.Playing() {
		return "", player.ErrAlreadyPlaying
	}

	next, err := in.outputs.Open(args[0])
	if err != nil {
		return "", err
	}
	// a tee keeps its secondary sinks (such as a recording) and only has
	// its primary output replaced
	prev := in.player.Sink()
	bound := next
	if tee, ok := prev.(sink.Tee); ok && len(tee) > 0 {
		bound = append(sink.Tee{next}, tee[1:]...)
		prev = tee[0]
	}
	if err := in.player.SetSink(bound); err != nil {
		closeSink(next)
		return "", err
	}
	if prev != nil {
		if err := prev.AllNotesOff(); err != nil {
			in.log.Warn("all notes off on previous port failed", zap.Error(err))
		}
		closeSink(prev)
	}

	name := args[0]
	if n, ok := next.(interface{ Name() string }); ok {
		name = n.Name()
	}
	return fmt.Sprintf("Switched to port: %s", name), nil
}

func closeSink(s player.Sink) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

func (in *Interpreter) cmdStatus(_ []string) (string, error) {
	d := in.state.Defaults()
	settings := fmt.Sprintf("tempo %d BPM, velocity %d, length %s beats", in.state.Tempo(), d.Velocity, formatBeats(d.Length))

	st := in.player.Status()
	if st.State == player.Idle {
		last := in.player.LastResult()
		if last.Pattern == "" {
			return "Idle; " + settings, nil
		}
		msg := fmt.Sprintf("Idle (last: '%s' %s, %d/%d events)", last.Pattern, last.State, last.Dispatched, last.Total)
		if last.Err != nil {
			msg += ": " + last.Err.Error()
		}
		return msg + "; " + settings, nil
	}
	return fmt.Sprintf("%s '%s': %d/%d events, %.1fs, %d sounding; %s",
		st.State, st.Pattern, st.Dispatched, st.Total, st.Elapsed.Seconds(), len(st.Sounding), settings), nil
}

func (in *Interpreter) cmdHelp(_ []string) (string, error) {
	return helpText, nil
}

func formatBeats(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

const helpText = `Commands:

PATTERN CREATION:
  pat <name> <beats> <note...>     Create pattern over N beats
  seq <note...>                    Quick sequence (saved as '_seq')

STATE:
  vel <0-127>                      Set velocity for new notes
  len <beats>                      Set note length for new notes
  tempo <bpm>                      Set tempo (20-300) for playback

PLAYBACK:
  play <pattern>                   Play pattern
  stop                             Stop playback and silence all notes
  status                           Show playback state and settings

MIDI SETUP:
  ports                            List available MIDI ports
  port <name_or_index>             Switch MIDI output port

MODIFICATION:
  mod <pat> trans <semi>           Transpose by semitones
  mod <pat> rev                    Reverse pattern
  mod <pat> double                 Double speed
  mod <pat> half                   Half speed
  mod <pat> shift <beats>          Time shift

UTILITY:
  list                             List all patterns
  show <pattern>                   Show pattern details
  del <pattern>                    Delete pattern
  clear                            Clear all patterns and state
  help                             Show this help

NOTES: c d e f g a b with octave (c4 = 60), sharps c# d#, flats db eb,
       or MIDI numbers 60 64 67`
