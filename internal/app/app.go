// Package app wires configuration, logging, output and the interpreter
// together for the binaries
package app

import (
	"errors"

	"github.com/james-see/patternplay/internal/logger"
	"github.com/james-see/patternplay/pkg/config"
	"github.com/james-see/patternplay/pkg/dsl"
	"github.com/james-see/patternplay/pkg/player"
	"github.com/james-see/patternplay/pkg/sink"
	"github.com/james-see/patternplay/pkg/store"
	"go.uber.org/zap"
)

// Options select how the app is assembled
type Options struct {
	// DryRun records output in memory instead of opening a MIDI port
	DryRun bool
	// Development switches to a console logger
	Development bool
	// Quiet discards logs unless a log file is configured
	Quiet bool
	// Record captures all output into this Standard MIDI File on Close
	Record string
	// OnFinish is called once per finished playback session
	OnFinish func(player.Result)
}

// App is a fully wired patternplay instance
type App struct {
	Config   config.Config
	Log      *zap.Logger
	Sink     player.Sink
	Player   *player.Player
	Interp   *dsl.Interpreter
	Recorder *sink.Recorder // set in dry-run mode
	Capture  *sink.SMF      // set when recording
	record   string
}

// New builds an app from cfg. If no MIDI port can be opened it falls back to
// the logging simulation sink.
func New(cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := newLogger(cfg, opts)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log}
	a.Sink = a.openSink(opts.DryRun)
	if opts.Record != "" {
		a.Capture = sink.NewSMF(cfg.MIDIChannel(), cfg.Tempo)
		a.record = opts.Record
		a.Sink = sink.Tee{a.Sink, a.Capture}
	}

	playerOpts := []player.Option{player.WithLogger(log.Named("player"))}
	if opts.OnFinish != nil {
		playerOpts = append(playerOpts, player.WithOnFinish(opts.OnFinish))
	}
	a.Player = player.New(a.Sink, playerOpts...)

	state := dsl.NewState()
	err = errors.Join(
		state.SetTempo(cfg.Tempo),
		state.SetVelocity(cfg.Velocity),
		state.SetLength(cfg.NoteLength),
	)
	if err != nil {
		return nil, err
	}

	a.Interp = dsl.New(store.New(), a.Player,
		dsl.WithState(state),
		dsl.WithLatency(cfg.Latency),
		dsl.WithLogger(log.Named("dsl")),
		dsl.WithOutputs(sink.MIDIOutputs{
			Channel:     cfg.MIDIChannel(),
			AllChannels: cfg.AllChannels,
			Log:         log.Named("midi"),
		}),
	)
	return a, nil
}

func newLogger(cfg config.Config, opts Options) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		return logger.New(cfg.LogLevel, opts.Development, cfg.LogFile)
	}
	if opts.Quiet {
		return zap.NewNop(), nil
	}
	return logger.New(cfg.LogLevel, opts.Development)
}

func (a *App) openSink(dryRun bool) player.Sink {
	if dryRun {
		a.Recorder = sink.NewRecorder()
		a.Log.Info("dry run, recording output in memory")
		return a.Recorder
	}
	m, err := sink.OpenMIDI(a.Config.Port, a.Config.MIDIChannel(), a.Config.AllChannels, sink.WithMIDILogger(a.Log.Named("midi")))
	if err != nil {
		a.Log.Warn("could not open MIDI output, running in simulation mode", zap.Error(err))
		return sink.NewLog(a.Log)
	}
	return m
}

// Close stops playback, closes the output, saves any recording and flushes
// the log
func (a *App) Close() error {
	err := a.Player.Close()
	sink.CloseDriver()
	if a.Capture != nil {
		if saveErr := a.Capture.Save(a.record); saveErr != nil {
			err = errors.Join(err, saveErr)
		} else {
			a.Log.Info("recording saved", zap.String("path", a.record), zap.Int("messages", a.Capture.Len()))
		}
	}
	_ = a.Log.Sync()
	return err
}
