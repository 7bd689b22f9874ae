package server

import (
	"bufio"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-wavefront-tracer/pkg/scene"
	"github.com/df07/go-wavefront-tracer/pkg/store"
)

type sseEvent struct {
	event string
	data  string
}

// parseSSE splits a recorded event stream into its events
func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Failed to read event stream: %v", err)
	}
	return events
}

func eventsOfType(events []sseEvent, eventType string) []sseEvent {
	var matching []sseEvent
	for _, e := range events {
		if e.event == eventType {
			matching = append(matching, e)
		}
	}
	return matching
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func newStoreServer(t *testing.T) *Server {
	t.Helper()
	runStore, err := store.Open(store.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "runs.sqlite")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = runStore.Close() })
	if err := runStore.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewServer(0, "../../scenes", runStore)
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, NewServer(0, "", nil), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestHandleScenes(t *testing.T) {
	rec := get(t, NewServer(0, "../../scenes", nil), "/api/scenes")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response scene.ScenesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}
	if len(response.Groups) < 2 {
		t.Fatalf("Expected built-in and file groups, got %d", len(response.Groups))
	}
	if got := len(response.Groups[0].Scenes); got != len(scene.BuiltInSceneNames) {
		t.Errorf("Expected %d built-in scenes, got %d", len(scene.BuiltInSceneNames), got)
	}
}

func TestHandleSceneConfig(t *testing.T) {
	s := NewServer(0, "", nil)

	rec := get(t, s, "/api/scene-config?scene=box")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var response struct {
		Defaults struct {
			Rays    int     `json:"rays"`
			MaxRays int     `json:"maxRays"`
			Fan     int     `json:"fan"`
			Decay   float64 `json:"decay"`
		} `json:"defaults"`
		Obstacles map[string]int `json:"obstacles"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}
	if response.Defaults.Rays != 8 || response.Defaults.MaxRays != 100000 || response.Defaults.Fan != 6 || response.Defaults.Decay != 0.7 {
		t.Errorf("Unexpected defaults %+v", response.Defaults)
	}
	if response.Obstacles["segment"] != 4 || response.Obstacles["circle"] != 4 {
		t.Errorf("Unexpected obstacle counts %v", response.Obstacles)
	}

	if rec := get(t, s, "/api/scene-config?scene=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scene, got %d", rec.Code)
	}
}

func TestHandleRender_StreamsEveryGeneration(t *testing.T) {
	rec := get(t, NewServer(0, "", nil), "/api/render?scene=mirror&size=100")
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event stream, got %q", ct)
	}

	events := parseSSE(t, rec.Body.String())
	if errs := eventsOfType(events, "error"); len(errs) > 0 {
		t.Fatalf("Unexpected error event: %s", errs[0].data)
	}

	progress := eventsOfType(events, "progress")
	if len(progress) != 2 {
		t.Fatalf("Expected 2 progress events, got %d", len(progress))
	}
	var first, last ProgressUpdate
	if err := json.Unmarshal([]byte(progress[0].data), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(progress[1].data), &last); err != nil {
		t.Fatal(err)
	}
	if first.Depth != 0 || first.Rays != 14 || first.Final || first.ImageData == "" {
		t.Errorf("Unexpected first update depth=%d rays=%d final=%v", first.Depth, first.Rays, first.Final)
	}
	if !last.Final || last.Depth != 1 {
		t.Errorf("Expected final update at depth 1, got depth=%d final=%v", last.Depth, last.Final)
	}

	complete := eventsOfType(events, "complete")
	if len(complete) != 1 {
		t.Fatalf("Expected 1 complete event, got %d", len(complete))
	}
	var summary CompleteUpdate
	if err := json.Unmarshal([]byte(complete[0].data), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalRays != 14 || summary.Terminated != 1 || summary.Truncated || summary.RunID != "" {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if events[len(events)-1].event != "complete" {
		t.Errorf("Expected complete to be the last event, got %s", events[len(events)-1].event)
	}

	if console := eventsOfType(events, "console"); len(console) == 0 {
		t.Error("Expected the run summary on the console stream")
	}
}

func TestHandleRender_Truncated(t *testing.T) {
	rec := get(t, NewServer(0, "", nil), "/api/render?scene=mirror&size=100&maxRays=10")
	events := parseSSE(t, rec.Body.String())

	complete := eventsOfType(events, "complete")
	if len(complete) != 1 {
		t.Fatalf("Expected 1 complete event, got %d", len(complete))
	}
	var summary CompleteUpdate
	if err := json.Unmarshal([]byte(complete[0].data), &summary); err != nil {
		t.Fatal(err)
	}
	if !summary.Truncated || summary.TotalRays != 10 {
		t.Errorf("Expected a truncated trace of 10 rays, got %+v", summary)
	}
}

func TestHandleRender_InvalidRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"size too small", "size=10"},
		{"zero fan", "fan=0"},
		{"decay above one", "decay=1.5"},
		{"bad number", "rays=abc"},
		{"save without database", "save=true"},
		{"unknown scene", "scene=nowhere"},
	}

	s := NewServer(0, "", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := parseSSE(t, get(t, s, "/api/render?"+tt.query).Body.String())
			if len(events) != 1 || events[0].event != "error" {
				t.Errorf("Expected a single error event, got %+v", events)
			}
		})
	}
}

func TestHandleRender_SaveAndReplay(t *testing.T) {
	s := newStoreServer(t)

	events := parseSSE(t, get(t, s, "/api/render?scene=mirror&size=100&save=true").Body.String())
	complete := eventsOfType(events, "complete")
	if len(complete) != 1 {
		t.Fatalf("Expected 1 complete event, got %+v", events)
	}
	var summary CompleteUpdate
	if err := json.Unmarshal([]byte(complete[0].data), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.RunID == "" {
		t.Fatal("Expected a run ID for a saved trace")
	}

	rec := get(t, s, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var runs []RunSummary
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Scene != "mirror" || runs[0].RayCount != 14 {
		t.Errorf("Unexpected runs %+v", runs)
	}

	rec = get(t, s, "/api/runs/"+summary.RunID+"/image?size=100")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("Expected a PNG body")
	}

	if rec := get(t, s, "/api/runs/missing/image"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown run, got %d", rec.Code)
	}
}

func TestHandleRuns_NoStore(t *testing.T) {
	if rec := get(t, NewServer(0, "", nil), "/api/runs"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a database, got %d", rec.Code)
	}
}

func TestHandleInspect(t *testing.T) {
	s := NewServer(0, "", nil)

	// Straight down from the source onto the floor mirror
	rec := get(t, s, "/api/inspect?scene=mirror&angle=4.71238898038469")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var hit InspectResponse
	if err := json.NewDecoder(rec.Body).Decode(&hit); err != nil {
		t.Fatal(err)
	}
	if !hit.Hit || hit.ObstacleType != "segment" || hit.Index != 0 {
		t.Fatalf("Expected to hit segment 0, got %+v", hit)
	}
	if math.Abs(hit.Distance-0.5) > 1e-9 || math.Abs(hit.Point[1]) > 1e-9 {
		t.Errorf("Expected hit at distance 0.5 on y=0, got %v at %v", hit.Distance, hit.Point)
	}
	if hit.Properties["length"] != 1.0 {
		t.Errorf("Expected segment length 1, got %v", hit.Properties["length"])
	}

	// Straight up escapes
	rec = get(t, s, "/api/inspect?scene=mirror&angle=1.5707963267948966")
	var miss InspectResponse
	if err := json.NewDecoder(rec.Body).Decode(&miss); err != nil {
		t.Fatal(err)
	}
	if miss.Hit || miss.Index != -1 {
		t.Errorf("Expected a miss, got %+v", miss)
	}

	if rec := get(t, s, "/api/inspect?scene=mirror&x=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad coordinate, got %d", rec.Code)
	}
}

func TestParseReflectionParams(t *testing.T) {
	s := NewServer(0, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/api/render?fan=3&spread=0.2&decay=0.5&floor=0.05", nil)

	parsed, err := s.parseRenderRequest(req)
	if err != nil {
		t.Fatalf("parseRenderRequest() error = %v", err)
	}
	r := parsed.Reflection
	if r.FanCount != 3 || r.Spread != 0.2 || r.Decay != 0.5 || r.BrightnessFloor != 0.05 {
		t.Errorf("Unexpected reflection config %+v", r)
	}
	if parsed.Scene != scene.BoxSceneName || parsed.Size != 400 || parsed.SeedRays != 0 {
		t.Errorf("Unexpected defaults %+v", parsed)
	}
}
