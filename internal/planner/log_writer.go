package planner

import (
	"bytes"
	"strings"
)

// LogWriter forwards each written log line to the in-app log pane. It never
// blocks: when the pane falls behind, lines are dropped from the pane only.
type LogWriter struct {
	ch chan<- string
}

func NewLogWriter(ch chan<- string) *LogWriter {
	if ch == nil {
		panic("LogWriter: channel cannot be nil")
	}
	return &LogWriter{ch: ch}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		text := strings.TrimRight(string(line), "\r")
		select {
		case w.ch <- text + "\n":
		default:
		}
	}
	return len(p), nil
}
