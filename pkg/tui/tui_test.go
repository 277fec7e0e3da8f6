package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/patternplay/pkg/dsl"
	"github.com/james-see/patternplay/pkg/player"
	"github.com/james-see/patternplay/pkg/sink"
	"github.com/james-see/patternplay/pkg/store"
)

func newModel() Model {
	return New(dsl.New(store.New(), player.New(sink.NewRecorder())))
}

// submit types line, presses enter and feeds the command result back
func submit(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("enter on %q returned no command", line)
	}
	next, cmd = m.Update(cmd())
	return next.(Model), cmd
}

func TestSubmitShowsOutput(t *testing.T) {
	m := newModel()
	m, _ = submit(t, m, "pat melody 4 c4 e4 g4")

	view := m.View()
	if !strings.Contains(view, "pat melody 4 c4 e4 g4") {
		t.Error("command not echoed")
	}
	if !strings.Contains(view, "Created pattern 'melody'") {
		t.Errorf("output missing from view:\n%s", view)
	}
	if m.busy {
		t.Error("model still busy after result")
	}
}

func TestSubmitShowsError(t *testing.T) {
	m := newModel()
	m, _ = submit(t, m, "tempo 999")
	if !strings.Contains(m.View(), "must be 20-300 BPM") {
		t.Errorf("error missing from view:\n%s", m.View())
	}
}

func TestHistoryRecall(t *testing.T) {
	m := newModel()
	m, _ = submit(t, m, "vel 90")
	m, _ = submit(t, m, "len 0.5")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if got := m.input.Value(); got != "len 0.5" {
		t.Errorf("first recall = %q", got)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if got := m.input.Value(); got != "vel 90" {
		t.Errorf("second recall = %q", got)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := next.(Model).input.Value(); got != "" {
		t.Errorf("recall past the end = %q", got)
	}
}

func TestExitQuits(t *testing.T) {
	m := newModel()
	_, cmd := submit(t, m, "exit")
	if cmd == nil {
		t.Fatal("exit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit did not quit")
	}
}

func TestFinishedMessage(t *testing.T) {
	m := newModel()
	next, _ := m.Update(finishedMsg{result: player.Result{Pattern: "p", State: player.Completed}})
	if !strings.Contains(next.View(), "'p' finished") {
		t.Errorf("view:\n%s", next.View())
	}
}

func TestNotifierWithoutProgram(t *testing.T) {
	var n Notifier
	n.Finished(player.Result{Pattern: "p"})
}
