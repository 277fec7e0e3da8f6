package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patternplay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
tempo: 140
latency: 5ms
channel: 10
port: "IAC Driver Bus 1"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tempo != 140 {
		t.Errorf("Tempo = %d, want 140", cfg.Tempo)
	}
	if cfg.Latency != 5*time.Millisecond {
		t.Errorf("Latency = %v, want 5ms", cfg.Latency)
	}
	if cfg.MIDIChannel() != 9 {
		t.Errorf("MIDIChannel() = %d, want 9", cfg.MIDIChannel())
	}
	if cfg.Port != "IAC Driver Bus 1" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Velocity != pattern.DefaultVelocity {
		t.Errorf("Velocity = %d, want default", cfg.Velocity)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		validation bool
	}{
		{"bad yaml", "tempo: [", false},
		{"tempo too slow", "tempo: 10", true},
		{"bad channel", "channel: 17", true},
		{"bad velocity", "velocity: 200", true},
		{"zero length", "note_length: 0", true},
		{"negative latency", "latency: -1ms", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if got := errors.Is(err, pattern.ErrValidation); got != tt.validation {
				t.Errorf("validation error = %v, want %v (%v)", got, tt.validation, err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path := writeFile(t, string(data))
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("round trip = %+v", cfg)
	}
}
