package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"net/http"
	"time"

	"github.com/df07/go-wavefront-tracer/pkg/canvas"
	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
)

// Request limits
const (
	minImageSize = 100
	maxImageSize = 2000
	maxSeedRays  = 10000
	maxRayCap    = 1000000
	maxFanCount  = 64
)

// RenderRequest represents a trace request from the client
type RenderRequest struct {
	Scene      string                    // Scene ID accepted by scene.Create
	Size       int                       // Image width and height
	SeedRays   int                       // 0 keeps the scene's own value
	MaxRays    int                       // 0 keeps the scene's own value
	Reflection geometry.ReflectionConfig // Fan used for every obstacle
	StubLength float64                   // Stub drawn for rays that leave the scene
	Save       bool                      // Persist the finished trace
}

// SSEEvent is one Server-Sent Event
type SSEEvent struct {
	Type string `json:"type"` // "console", "progress", "error", "complete"
	Data string `json:"data"` // JSON-encoded data or a plain message
}

// ProgressUpdate is sent after every completed generation of the wavefront
type ProgressUpdate struct {
	Depth     int    `json:"depth"`
	Rays      int    `json:"rays"`
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Final     bool   `json:"final"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// CompleteUpdate summarizes a finished trace
type CompleteUpdate struct {
	RunID          string  `json:"runId,omitempty"`
	TotalRays      int     `json:"totalRays"`
	Terminated     int     `json:"terminated"`
	Escaped        int     `json:"escaped"`
	MaxDepth       int     `json:"maxDepth"`
	RaysPerDepth   []int   `json:"raysPerDepth"`
	MeanBrightness float64 `json:"meanBrightness"`
	Truncated      bool    `json:"truncated"`
	ElapsedMs      int64   `json:"elapsedMs"`
}

// handleRender traces a scene and streams a frame per generation via SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeSSEEvent(w, SSEEvent{Type: "error", Data: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	events := make(chan SSEEvent, 16)
	go s.runTrace(ctx, req, events)
	s.writeSSEEvents(ctx, w, events)
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents is the only writer of the response. It drains events until
// the producer closes the channel; once the client is gone events are dropped.
func (s *Server) writeSSEEvents(ctx context.Context, w http.ResponseWriter, events <-chan SSEEvent) {
	connected := true
	for event := range events {
		if !connected || ctx.Err() != nil {
			continue
		}
		if err := s.writeSSEEvent(w, event); err != nil {
			// Client disconnected during write
			connected = false
		}
	}
}

func (s *Server) writeSSEEvent(w http.ResponseWriter, event SSEEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// sendEvent queues an event unless the client has gone away
func sendEvent(ctx context.Context, events chan<- SSEEvent, eventType, data string) {
	select {
	case events <- SSEEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
	}
}

// sendJSONEvent queues v as a JSON-encoded event
func sendJSONEvent(ctx context.Context, events chan<- SSEEvent, eventType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}
	sendEvent(ctx, events, eventType, string(data))
}

// runTrace produces the events of one trace and closes events when done
func (s *Server) runTrace(ctx context.Context, req *RenderRequest, events chan<- SSEEvent) {
	defer close(events)

	consoleChan := make(chan ConsoleMessage, 50)
	webLogger := NewWebLogger(fmt.Sprintf("trace-%d", time.Now().UnixNano()), consoleChan)

	sceneObj, tracer, err := s.setupTrace(req, webLogger)
	if err != nil {
		sendEvent(ctx, events, "error", err.Error())
		return
	}

	drawConfig := canvas.DefaultDrawConfig()
	drawConfig.Size = req.Size
	drawConfig.StubLength = req.StubLength

	startTime := time.Now()
	tracer.SetDepthCallback(func(update renderer.DepthUpdate) {
		forwardConsole(ctx, consoleChan, events)
		if ctx.Err() != nil {
			return
		}
		s.sendProgress(ctx, events, update, sceneObj.Obstacles, drawConfig, startTime)
	})

	result, err := tracer.Trace()
	forwardConsole(ctx, consoleChan, events)
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Trace failed: %v", err))
		return
	}

	complete := CompleteUpdate{
		TotalRays:      result.Stats.TotalRays,
		Terminated:     result.Stats.Terminated,
		Escaped:        result.Stats.Escaped,
		MaxDepth:       result.Stats.MaxDepth,
		RaysPerDepth:   result.Stats.RaysPerDepth,
		MeanBrightness: result.Stats.MeanBrightness,
		Truncated:      result.Truncated,
		ElapsedMs:      time.Since(startTime).Milliseconds(),
	}

	if req.Save {
		runID, err := s.store.SaveRun(ctx, req.Scene, result)
		if err != nil {
			sendEvent(ctx, events, "error", fmt.Sprintf("Saving trace failed: %v", err))
			return
		}
		complete.RunID = runID
	}

	sendJSONEvent(ctx, events, "complete", complete)
}

// setupTrace creates the scene and a tracer for it
func (s *Server) setupTrace(req *RenderRequest, logger core.Logger) (*scene.Scene, *renderer.Tracer, error) {
	sceneObj, err := scene.Create(req.Scene, req.Reflection)
	if err != nil {
		return nil, nil, err
	}
	if req.SeedRays > 0 {
		sceneObj.TraceConfig.SeedRays = req.SeedRays
	}
	if req.MaxRays > 0 {
		sceneObj.TraceConfig.MaxRays = req.MaxRays
	}
	if err := sceneObj.Validate(); err != nil {
		return nil, nil, err
	}

	tracer := renderer.NewTracer(sceneObj, sceneObj.TraceConfig)
	tracer.SetLogger(logger)
	return sceneObj, tracer, nil
}

// sendProgress draws the current snapshot and queues it
func (s *Server) sendProgress(ctx context.Context, events chan<- SSEEvent, update renderer.DepthUpdate,
	obstacles []geometry.Obstacle, drawConfig canvas.DrawConfig, startTime time.Time) {

	img, err := canvas.Render(update.Rays, obstacles, drawConfig)
	if err != nil {
		log.Printf("Error drawing depth %d: %v", update.Depth, err)
		return
	}
	imageData, err := s.imageToBase64PNG(img)
	if err != nil {
		log.Printf("Error encoding depth %d: %v", update.Depth, err)
		return
	}

	sendJSONEvent(ctx, events, "progress", ProgressUpdate{
		Depth:     update.Depth,
		Rays:      len(update.Rays),
		ImageData: imageData,
		Final:     update.Final,
		ElapsedMs: time.Since(startTime).Milliseconds(),
	})
}

// forwardConsole moves buffered log lines onto the event stream without blocking
func forwardConsole(ctx context.Context, consoleChan <-chan ConsoleMessage, events chan<- SSEEvent) {
	for {
		select {
		case msg := <-consoleChan:
			sendJSONEvent(ctx, events, "console", msg)
		default:
			return
		}
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	values := r.URL.Query()
	req := &RenderRequest{Scene: values.Get("scene")}
	if req.Scene == "" {
		req.Scene = scene.BoxSceneName
	}

	var err error
	if req.Size, err = parseIntParam(values, "size", 400, minImageSize, maxImageSize); err != nil {
		return nil, err
	}
	if req.SeedRays, err = parseIntParam(values, "rays", 0, 1, maxSeedRays); err != nil {
		return nil, err
	}
	if req.MaxRays, err = parseIntParam(values, "maxRays", 0, 1, maxRayCap); err != nil {
		return nil, err
	}
	if req.StubLength, err = parseFloatParam(values, "stub", 0, 0, 1); err != nil {
		return nil, err
	}
	if req.Reflection, err = parseReflectionParams(values); err != nil {
		return nil, err
	}

	req.Save = values.Get("save") == "true"
	if req.Save && s.store == nil {
		return nil, fmt.Errorf("save requested but no database is configured")
	}

	// Performance warning
	if req.MaxRays > 200000 && req.Size > 1000 {
		log.Printf("Render warning: large ray cap with a large image may stream slowly")
	}

	return req, nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
