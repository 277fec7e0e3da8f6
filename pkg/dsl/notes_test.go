package dsl

import (
	"errors"
	"testing"

	"github.com/james-see/patternplay/pkg/pattern"
)

func TestParseNote(t *testing.T) {
	tests := []struct {
		token   string
		want    uint8
		wantErr bool
	}{
		{"60", 60, false},
		{"0", 0, false},
		{"127", 127, false},
		{"128", 0, true},
		{"c4", 60, false},
		{"C4", 60, false},
		{"e4", 64, false},
		{"b5", 83, false},
		{"c#4", 61, false},
		{"db5", 73, false},
		{"cb4", 59, false},
		{"g", 67, false},
		{"c0", 12, false},
		{"g9", 127, false},
		{"a9", 0, true},
		{"h4", 0, true},
		{"c44", 0, true},
		{"c4x", 0, true},
		{"", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseNote(tt.token)
			if tt.wantErr {
				if !errors.Is(err, pattern.ErrValidation) {
					t.Errorf("ParseNote(%q) error = %v, want validation error", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNote(%q) error = %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseNote(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestNoteNameRoundTrip(t *testing.T) {
	for pitch := 12; pitch <= 127; pitch++ {
		name := NoteName(uint8(pitch))
		got, err := ParseNote(name)
		if err != nil {
			t.Fatalf("ParseNote(%q) error = %v", name, err)
		}
		if int(got) != pitch {
			t.Errorf("ParseNote(NoteName(%d)) = %d", pitch, got)
		}
	}
}
