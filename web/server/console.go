package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// WebLogger implements core.Logger by sending messages to a console channel
// and mirroring them to the server log
type WebLogger struct {
	renderID    string
	consoleChan chan<- ConsoleMessage
	serverLog   core.Logger
}

// NewWebLogger creates a new web logger for a specific render
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage, serverLog core.Logger) core.Logger {
	if serverLog == nil {
		serverLog = core.NopLogger{}
	}
	return &WebLogger{
		renderID:    renderID,
		consoleChan: consoleChan,
		serverLog:   serverLog,
	}
}

// Printf implements core.Logger interface
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	wl.serverLog.Printf("[%s] %s", wl.renderID, strings.TrimRight(message, "\n"))

	// Send to web console if channel is available (non-blocking)
	if wl.consoleChan != nil {
		select {
		case wl.consoleChan <- ConsoleMessage{
			Message:   message,
			Timestamp: time.Now(),
			Level:     "info",
		}:
		default:
			// Channel full, skip (don't block)
		}
	}
}
