package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosas/gosas"
	sruntime "github.com/gosas/gosas/runtime"
)

var (
	logStyle    = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	echoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
)

type model struct {
	session  *gosas.Session
	events   chan tea.Msg
	viewport viewport.Model
	input    textarea.Model
	lines    []string
	running  bool
	status   string
	ready    bool
	width    int
	height   int
}

func newModel(dir string) (model, error) {
	events := make(chan tea.Msg, 1024)
	logSink := sruntime.FuncSink(func(level sruntime.Level, line string) {
		events <- sinkLineMsg{kind: sinkLog, level: level, text: line}
	})
	lstSink := sruntime.FuncSink(func(level sruntime.Level, line string) {
		events <- sinkLineMsg{kind: sinkListing, level: level, text: line}
	})
	session, err := newSession(dir, logSink, lstSink)
	if err != nil {
		return model{}, err
	}

	vp := viewport.New(80, 20)
	ta := textarea.New()
	ta.Placeholder = "data a; a = 1; run;"
	ta.SetHeight(4)
	ta.Focus()

	return model{
		session:  session,
		events:   events,
		viewport: vp,
		input:    ta,
		status:   "ready",
	}, nil
}

func runFrontend(dir string) error {
	m, err := newModel(dir)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("frontend: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitEvent(m.events))
}

// waitEvent forwards interpreter events into the update loop, waking up
// periodically so queued lines drain even while idle.
func waitEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			return msg
		case <-time.After(50 * time.Millisecond):
			return pollMsg{}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := m.input.Height() + 2
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - inputHeight - 1
		m.input.SetWidth(msg.Width - 2)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if cmd, submitted := m.maybeSubmit(); submitted {
				return m, cmd
			}
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case sinkLineMsg:
		m.lines = append(m.lines, renderLine(msg))
		m.refresh()
		return m, waitEvent(m.events)

	case execDoneMsg:
		m.running = false
		m.status = fmt.Sprintf("done (exit status %d)", int(msg.status))
		return m, waitEvent(m.events)

	case pollMsg:
		return m, waitEvent(m.events)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// maybeSubmit runs the buffer when it forms a complete statement list,
// which for the REPL means it ends with a semicolon.
func (m *model) maybeSubmit() (tea.Cmd, bool) {
	source := strings.TrimSpace(m.input.Value())
	if m.running || source == "" || !strings.HasSuffix(source, ";") {
		return nil, false
	}
	for _, line := range strings.Split(source, "\n") {
		m.lines = append(m.lines, echoStyle.Render("> "+line))
	}
	m.refresh()
	m.input.Reset()
	m.running = true
	m.status = "running"
	session, events := m.session, m.events
	go func() {
		status := session.Execute(source)
		events <- execDoneMsg{status: status}
	}()
	return waitEvent(m.events), true
}

func renderLine(msg sinkLineMsg) string {
	switch {
	case msg.level == sruntime.LevelError:
		return errStyle.Render("ERROR: " + msg.text)
	case msg.level == sruntime.LevelWarn:
		return warnStyle.Render("WARNING: " + msg.text)
	case msg.kind == sinkLog:
		return logStyle.Render(msg.text)
	}
	return msg.text
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}
