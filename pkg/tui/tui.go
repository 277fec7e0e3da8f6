// Package tui provides the interactive pattern REPL
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/patternplay/pkg/dsl"
	"github.com/james-see/patternplay/pkg/player"
)

// Acid-inspired color scheme (303/acid aesthetic)
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	promptStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	outputStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			PaddingLeft(2)

	successStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(0, 1)
)

const (
	prompt     = "♪ "
	maxHistory = 500
)

// entry is one line of scrollback
type entry struct {
	text  string
	style lipgloss.Style
}

// execDoneMsg carries the outcome of one command
type execDoneMsg struct {
	line string
	msg  string
	err  error
	quit bool
}

// finishedMsg signals that a playback session ended
type finishedMsg struct {
	result player.Result
}

// Model is the REPL state
type Model struct {
	interp   *dsl.Interpreter
	input    textinput.Model
	spinner  spinner.Model
	lines    []entry
	recall   []string
	recallAt int
	busy     bool
	status   player.Status
	width    int
	height   int
}

// New creates a REPL model bound to an interpreter
func New(in *dsl.Interpreter) Model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = "type 'help' for commands"
	ti.CharLimit = 512
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	return Model{
		interp:  in,
		input:   ti,
		spinner: s,
		lines: []entry{
			{text: "Type 'help' for commands, 'exit' or ctrl+d to quit", style: outputStyle},
		},
	}
}

// Init starts the cursor blink and spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles key presses, command results and playback notifications
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.status = m.interp.Player().Status()
		return m, cmd

	case execDoneMsg:
		m.busy = false
		m.appendResult(msg)
		m.status = m.interp.Player().Status()
		if msg.quit {
			return m, tea.Quit
		}
		return m, nil

	case finishedMsg:
		m.appendFinished(msg.result)
		m.status = m.interp.Player().Status()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		return m, m.execute("exit")
	case tea.KeyEsc:
		m.input.SetValue("")
		return m, nil
	case tea.KeyUp:
		if m.recallAt > 0 {
			m.recallAt--
			m.input.SetValue(m.recall[m.recallAt])
			m.input.CursorEnd()
		}
		return m, nil
	case tea.KeyDown:
		if m.recallAt < len(m.recall)-1 {
			m.recallAt++
			m.input.SetValue(m.recall[m.recallAt])
			m.input.CursorEnd()
		} else {
			m.recallAt = len(m.recall)
			m.input.SetValue("")
		}
		return m, nil
	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if line == "" {
			return m, nil
		}
		m.recall = append(m.recall, line)
		m.recallAt = len(m.recall)
		m.busy = true
		return m, m.execute(line)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute runs a command off the UI goroutine; stop waits for the flush
func (m Model) execute(line string) tea.Cmd {
	in := m.interp
	return func() tea.Msg {
		switch strings.ToLower(line) {
		case "exit", "quit":
			msg, err := in.Stop()
			return execDoneMsg{line: line, msg: msg, err: err, quit: true}
		}
		msg, err := in.Execute(line)
		return execDoneMsg{line: line, msg: msg, err: err}
	}
}

func (m *Model) appendResult(r execDoneMsg) {
	m.push(entry{text: prompt + r.line, style: commandStyle})
	if r.err != nil {
		m.push(entry{text: "✗ " + r.err.Error(), style: errorStyle})
		return
	}
	for _, l := range strings.Split(r.msg, "\n") {
		if l != "" {
			m.push(entry{text: l, style: outputStyle})
		}
	}
}

func (m *Model) appendFinished(res player.Result) {
	switch res.State {
	case player.Completed:
		m.push(entry{text: fmt.Sprintf("✓ '%s' finished in %s", res.Pattern, res.Elapsed.Round(time.Millisecond)), style: successStyle})
	case player.Failed:
		m.push(entry{text: fmt.Sprintf("✗ '%s' failed: %v", res.Pattern, res.Err), style: errorStyle})
	}
}

func (m *Model) push(e entry) {
	m.lines = append(m.lines, e)
	if len(m.lines) > maxHistory {
		m.lines = m.lines[len(m.lines)-maxHistory:]
	}
}

// View renders the scrollback, status line and prompt
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" ♪ PATTERNPLAY ♪ "))
	s.WriteString("\n")

	visible := m.lines
	if m.height > 0 {
		// title, status box, input and help take roughly ten rows
		if room := m.height - 10; room > 0 && len(visible) > room {
			visible = visible[len(visible)-room:]
		}
	}
	for _, e := range visible {
		s.WriteString(e.style.Render(e.text))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.viewStatus()))
	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: run • ↑/↓: history • esc: clear • ctrl+d: quit"))

	return s.String()
}

func (m Model) viewStatus() string {
	st := m.interp.State()
	d := st.Defaults()
	settings := fmt.Sprintf("%d BPM • vel %d • len %g", st.Tempo(), d.Velocity, d.Length)

	if m.status.State == player.Idle {
		return statusStyle.Render("■ idle  " + settings)
	}
	return statusStyle.Render(fmt.Sprintf("%s %s '%s' %d/%d  %s",
		m.spinner.View(), m.status.State, m.status.Pattern, m.status.Dispatched, m.status.Total, settings))
}

// Notifier forwards playback results from the player to a running program.
// Pass its Finished method to player.WithOnFinish.
type Notifier struct {
	mu   sync.Mutex
	prog *tea.Program
}

// Finished delivers res to the program, if one is attached
func (n *Notifier) Finished(res player.Result) {
	n.mu.Lock()
	prog := n.prog
	n.mu.Unlock()
	if prog != nil {
		// Send blocks until the program reads it
		go prog.Send(finishedMsg{result: res})
	}
}

func (n *Notifier) attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prog = p
}

// Run starts the REPL and blocks until the user quits. n may be nil.
func Run(in *dsl.Interpreter, n *Notifier) error {
	p := tea.NewProgram(New(in), tea.WithAltScreen())
	if n != nil {
		n.attach(p)
		defer n.attach(nil)
	}
	_, err := p.Run()
	return err
}
