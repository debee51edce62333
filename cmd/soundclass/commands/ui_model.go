package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/cli"
	"github.com/haivivi/soundclass/pkg/pipeline"
)

const maxLogLines = 50

// RunFunc classifies one file. *pipeline.Pipeline.Run satisfies it.
type RunFunc func(ctx context.Context, path string) (*pipeline.Result, error)

// UIModel is the interactive classifier: type a path, press enter, see the
// scores.
type UIModel struct {
	ctx context.Context
	run RunFunc

	input textinput.Model

	// Last outcome; at most one of result and err is set.
	path   string
	result *pipeline.Result
	err    error
	busy   bool

	logContent []string
	logWriter  *cli.LogWriter

	styles cli.Styles
	width  int
	height int

	quitting bool
}

// NewUIModel creates the UI around run. Every classification runs under
// ctx. logWriter may be nil.
func NewUIModel(ctx context.Context, run RunFunc, logWriter *cli.LogWriter) UIModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/clip.wav"
	ti.Prompt = "> "
	ti.Focus()
	return UIModel{
		ctx:       ctx,
		run:       run,
		input:     ti,
		logWriter: logWriter,
		styles:    cli.NewStyles(cli.DefaultTheme),
	}
}

// predictDoneMsg carries the outcome of one classification.
type predictDoneMsg struct {
	path   string
	result *pipeline.Result
	err    error
}

// LogMsg wraps log messages for bubbletea.
type LogMsg string

// Init initializes the model.
func (m UIModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenLogs())
}

func (m UIModel) listenLogs() tea.Cmd {
	if m.logWriter == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-m.logWriter.Channel()
		if !ok {
			return nil
		}
		return LogMsg(line)
	}
}

func (m UIModel) predict(path string) tea.Cmd {
	ctx, run := m.ctx, m.run
	return func() tea.Msg {
		res, err := run(ctx, path)
		return predictDoneMsg{path: path, result: res, err: err}
	}
}

// Update handles messages.
func (m UIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			path := cleanPath(m.input.Value())
			if path == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.path = path
			m.input.SetValue("")
			return m, m.predict(path)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case predictDoneMsg:
		m.busy = false
		m.path = msg.path
		m.result, m.err = msg.result, msg.err
		return m, nil

	case LogMsg:
		m.logContent = append(m.logContent, string(msg))
		if len(m.logContent) > maxLogLines {
			m.logContent = m.logContent[len(m.logContent)-maxLogLines:]
		}
		return m, m.listenLogs()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cleanPath strips the quoting terminals add to dropped files.
func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.ReplaceAll(s, `\ `, " ")
}

func (m UIModel) status() string {
	switch {
	case m.busy:
		return "classifying"
	case m.err != nil:
		return "error"
	case m.result != nil:
		return m.result.Prediction.Label
	}
	return "ready"
}

// resultLines renders the last outcome.
func (m UIModel) resultLines() []string {
	if m.busy {
		return []string{"Classifying " + filepath.Base(m.path) + "..."}
	}
	if m.err != nil {
		return []string{
			filepath.Base(m.path),
			m.styles.Error.Render(pipeline.Message(m.err)),
		}
	}
	if m.result == nil {
		return []string{m.styles.Help.Render("Enter a WAV or MP3 path and press enter.")}
	}

	p := m.result.Prediction
	lines := []string{
		fmt.Sprintf("%s  (%s)", filepath.Base(m.path), cli.FormatDuration(m.result.Elapsed)),
		"Predicted class: " + m.styles.Label.Render(p.Label),
		"",
	}
	barWidth := max(min(m.width-40, 40), 10)
	for _, cs := range p.Ranked() {
		lines = append(lines, fmt.Sprintf("%-16s %s %6.2f%%",
			cs.Label, m.styles.ScoreBar(cs.Percent/100, barWidth), cs.Percent))
	}
	return lines
}

// View renders the UI.
func (m UIModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	frame := cli.Frame{
		Styles: m.styles,
		Title:  "SOUNDCLASS",
		Status: m.status(),
		Sections: []cli.Section{
			{Label: "🎧 File", Content: func() []string { return []string{m.input.View()} }, Height: 1},
			{Label: "📊 Result", Content: m.resultLines, Height: 3 + classifier.UrbanSound6.Len()},
			{Label: "📋 Log", Content: func() []string { return m.logContent }},
		},
		Help: "enter=classify  esc/Ctrl+C=quit",
	}

	return frame.Render(m.width, m.height)
}
