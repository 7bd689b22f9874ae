package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/df07/go-wavefront-tracer/pkg/canvas"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
	"github.com/df07/go-wavefront-tracer/pkg/store"
)

// RunSummary is the JSON form of a stored run
type RunSummary struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	CreatedAt time.Time `json:"createdAt"`
	RayCount  int       `json:"rayCount"`
	MaxDepth  int       `json:"maxDepth"`
	Truncated bool      `json:"truncated"`
}

// handleRuns lists the saved traces
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no database configured"})
		return
	}

	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = RunSummary(run)
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleRunImage redraws a saved trace as a PNG. The obstacles come from the
// scene the run was traced in; if that scene is gone only the rays are drawn.
func (s *Server) handleRunImage(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "no database configured", http.StatusNotFound)
		return
	}

	values := r.URL.Query()
	drawConfig := canvas.DefaultDrawConfig()
	var err error
	if drawConfig.Size, err = parseIntParam(values, "size", drawConfig.Size, minImageSize, maxImageSize); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if drawConfig.StubLength, err = parseFloatParam(values, "stub", 0, 0, 1); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := r.PathValue("id")
	run, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rays, err := s.store.LoadRays(r.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var obstacles []geometry.Obstacle
	if sceneObj, err := scene.Create(run.Scene); err == nil {
		obstacles = sceneObj.Obstacles
	} else {
		log.Printf("Drawing run %s without obstacles: %v", runID, err)
	}

	img, err := canvas.Render(rays, obstacles, drawConfig)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := canvas.EncodePNG(w, img); err != nil {
		log.Printf("Error writing run image %s: %v", runID, err)
	}
}
