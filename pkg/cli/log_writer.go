package cli

import (
	"strings"
	"sync"
)

// LogWriter implements io.Writer and captures log output for TUI display.
// It keeps the last maxLines lines and notifies new lines on a channel.
type LogWriter struct {
	mu    sync.Mutex
	lines []string
	start int // index of the oldest line once lines is full
	max   int
	ch    chan string
}

// NewLogWriter creates a new log writer with the given max lines.
func NewLogWriter(maxLines int) *LogWriter {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &LogWriter{
		lines: make([]string, 0, maxLines),
		max:   maxLines,
		ch:    make(chan string, 100),
	}
}

// Write implements io.Writer. Multi-line input is split on newlines.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")

	for _, line := range strings.Split(text, "\n") {
		w.add(line)

		// Non-blocking send to channel
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

func (w *LogWriter) add(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.lines) < w.max {
		w.lines = append(w.lines, line)
		return
	}
	w.lines[w.start] = line
	w.start = (w.start + 1) % w.max
}

// Lines returns the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.lines))
	out = append(out, w.lines[w.start:]...)
	return append(out, w.lines[:w.start]...)
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
