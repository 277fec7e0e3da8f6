package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/patternplay/pkg/config"
	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/sink"
)

func TestNewDryRun(t *testing.T) {
	cfg := config.Default()
	cfg.Tempo = 200
	cfg.Velocity = 99

	a, err := New(cfg, Options{DryRun: true, Quiet: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Recorder == nil || a.Player.Sink() != a.Sink {
		t.Fatal("dry run did not bind the recorder")
	}
	if a.Interp.State().Tempo() != 200 || a.Interp.State().Defaults().Velocity != 99 {
		t.Error("config not applied to interpreter state")
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Channel = 0
	if _, err := New(cfg, Options{DryRun: true, Quiet: true}); !errors.Is(err, pattern.ErrValidation) {
		t.Errorf("New() error = %v, want validation error", err)
	}
}

func TestNewBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "shouty"
	if _, err := New(cfg, Options{DryRun: true}); err == nil {
		t.Error("New() error = nil for bad log level")
	}
}

func TestRecordSavesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.mid")
	a, err := New(config.Default(), Options{DryRun: true, Quiet: true, Record: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, line := range []string{"len 4", "seq c4"} {
		if _, err := a.Interp.Execute(line); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.Interp.Execute("play _seq"); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if a.Recorder.Count(sink.OpAllNotesOff) != 1 || a.Capture.Len() == 0 {
		t.Error("tee did not feed both sinks")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("recording not saved: %v", err)
	}
}
