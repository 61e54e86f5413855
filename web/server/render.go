package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-sphere-pathtracer/pkg/renderer"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// contentTypes maps output formats to MIME types
var contentTypes = map[string]string{
	"png": "image/png",
	"ppm": "image/x-portable-pixmap",
}

// handleRender renders the requested scene and returns the finished image
func (s *Server) handleRender(c echo.Context) error {
	req, err := parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sceneObj, err := createScene(req)
	if err != nil {
		return httpError(err)
	}

	raytracer, err := renderer.NewRaytracer(sceneObj, renderer.Config{Logger: s.logger})
	if err != nil {
		return httpError(err)
	}

	fb, stats, err := raytracer.Render(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	var buf bytes.Buffer
	if err := renderer.Write(&buf, fb, req.Format); err != nil {
		return httpError(err)
	}

	c.Response().Header().Set("X-Render-Time-Ms", fmt.Sprint(stats.Elapsed.Milliseconds()))
	return c.Blob(http.StatusOK, contentTypes[req.Format], buf.Bytes())
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "progress", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// RowUpdate reports a finished scanline
type RowUpdate struct {
	Row       int `json:"row"`
	RowsDone  int `json:"rowsDone"`
	TotalRows int `json:"totalRows"`
}

// CompleteUpdate carries the finished image
type CompleteUpdate struct {
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Stats     Stats  `json:"stats"`
}

// handleRenderStream renders the requested scene and streams progress via SSE,
// ending with a complete event that carries the image
func (s *Server) handleRenderStream(c echo.Context) error {
	req, err := parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sceneObj, err := createScene(req)
	if err != nil {
		return httpError(err)
	}

	setSSEHeaders(c.Response())
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	sseEventChan := make(chan SSEEvent, 100)

	go func() {
		defer close(sseEventChan)
		s.runStreamingRender(ctx, sceneObj, sseEventChan)
	}()

	writeSSEEvents(c.Response(), sseEventChan)
	return nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w *echo.Response) {
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeSSEEvents writes every event until the channel closes. After a write error
// the remaining events are drained so the producer never blocks.
func writeSSEEvents(w *echo.Response, sseEventChan <-chan SSEEvent) {
	failed := false
	for event := range sseEventChan {
		if failed {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
			failed = true
			continue
		}
		w.Flush()
	}
}

// runStreamingRender renders the scene, forwarding console output and row progress as events
func (s *Server) runStreamingRender(ctx context.Context, sceneObj *scene.Scene, sseEventChan chan<- SSEEvent) {
	consoleChan := make(chan ConsoleMessage, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	webLogger := NewWebLogger(renderID, consoleChan, s.logger)

	raytracer, err := renderer.NewRaytracer(sceneObj, renderer.Config{
		Logger: webLogger,
		OnRowComplete: func(p renderer.RowProgress) {
			sendEvent(ctx, sseEventChan, "progress", RowUpdate{
				Row:       p.Row,
				RowsDone:  p.RowsDone,
				TotalRows: p.TotalRows,
			})
		},
	})

	var fb *renderer.Framebuffer
	var stats renderer.RenderStats
	if err == nil {
		fb, stats, err = raytracer.Render(ctx)
	}

	// Logging is finished, flush the console before the final event
	close(consoleChan)
	wg.Wait()

	if err != nil {
		sendEvent(ctx, sseEventChan, "error", map[string]string{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := renderer.WritePNG(&buf, fb); err != nil {
		sendEvent(ctx, sseEventChan, "error", map[string]string{"error": err.Error()})
		return
	}

	sendEvent(ctx, sseEventChan, "complete", CompleteUpdate{
		ImageData: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Stats:     newStats(stats),
	})
}

// streamConsoleMessages forwards console messages as SSE events until the console closes
func streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) {
	for msg := range consoleChan {
		sendEvent(ctx, sseEventChan, "console", msg)
	}
}

// sendEvent encodes payload and queues it, giving up if the client has gone away
func sendEvent(ctx context.Context, sseEventChan chan<- SSEEvent, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
		eventType = "error"
	}
	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: string(data)}:
	case <-ctx.Done():
	}
}
