package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

// ConsoleMessage is a log line streamed to the browser console
type ConsoleMessage struct {
	TraceID   string    `json:"traceId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info" or "warning"
}

// WebLogger implements core.Logger by sending messages to a console channel
type WebLogger struct {
	traceID     string
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a logger for one trace. A nil channel only logs to the server log.
func NewWebLogger(traceID string, consoleChan chan<- ConsoleMessage) core.Logger {
	return &WebLogger{
		traceID:     traceID,
		consoleChan: consoleChan,
	}
}

// Printf implements core.Logger
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", wl.traceID, strings.TrimRight(message, "\n"))

	if wl.consoleChan == nil {
		return
	}

	level := "info"
	if strings.Contains(strings.ToLower(message), "truncated") {
		level = "warning"
	}

	// Never block the tracer; drop the line if the console is backed up
	select {
	case wl.consoleChan <- ConsoleMessage{
		TraceID:   wl.traceID,
		Message:   message,
		Timestamp: time.Now(),
		Level:     level,
	}:
	default:
	}
}
