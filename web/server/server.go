package server

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
	"github.com/df07/go-wavefront-tracer/pkg/store"
)

// Server handles web requests for the wavefront tracer
type Server struct {
	port      int
	scenesDir string
	staticDir string
	store     *store.Store // nil disables saving and the run endpoints
}

// NewServer creates a new web server. runStore may be nil.
func NewServer(port int, scenesDir string, runStore *store.Store) *Server {
	return &Server{
		port:      port,
		scenesDir: scenesDir,
		staticDir: "static/",
		store:     runStore,
	}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve static files
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))

	// API endpoints
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/scenes", s.handleScenes)
	mux.HandleFunc("GET /api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("GET /api/render", s.handleRender)
	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}/image", s.handleRunImage)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the scene files on disk
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = scene.BoxSceneName
	}

	sceneObj, err := scene.Create(sceneName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	counts := make(map[string]int)
	for kind, n := range sceneObj.CountByKind() {
		counts[kind.String()] = n
	}

	reflection := sceneObj.ReflectionConfig
	response := map[string]interface{}{
		"scene":       sceneName,
		"description": sceneObj.Description,
		"source":      [2]float64{sceneObj.Source.X, sceneObj.Source.Y},
		"obstacles":   counts,
		"defaults": map[string]interface{}{
			"rays":    sceneObj.TraceConfig.SeedRays,
			"maxRays": sceneObj.TraceConfig.MaxRays,
			"fan":     reflection.FanCount,
			"spread":  reflection.Spread,
			"decay":   reflection.Decay,
			"floor":   reflection.BrightnessFloor,
		},
		"limits": map[string]interface{}{
			"size":    map[string]int{"min": minImageSize, "max": maxImageSize},
			"rays":    map[string]int{"min": 1, "max": maxSeedRays},
			"maxRays": map[string]int{"min": 1, "max": maxRayCap},
			"fan":     map[string]int{"min": 1, "max": maxFanCount},
			"spread":  map[string]float64{"min": 0, "max": math.Pi},
			"decay":   map[string]float64{"min": 0.01, "max": 1},
			"floor":   map[string]float64{"min": 0.0001, "max": 1},
		},
	}

	writeJSON(w, http.StatusOK, response)
}

// parseReflectionParams reads fan overrides on top of the default fan
func parseReflectionParams(values url.Values) (geometry.ReflectionConfig, error) {
	config := geometry.DefaultReflectionConfig()
	var err error
	if config.FanCount, err = parseIntParam(values, "fan", config.FanCount, 1, maxFanCount); err != nil {
		return config, err
	}
	if config.Spread, err = parseFloatParam(values, "spread", config.Spread, 0, math.Pi); err != nil {
		return config, err
	}
	if config.Decay, err = parseFloatParam(values, "decay", config.Decay, 0.01, 1); err != nil {
		return config, err
	}
	if config.BrightnessFloor, err = parseFloatParam(values, "floor", config.BrightnessFloor, 0.0001, 1); err != nil {
		return config, err
	}
	return config, config.Validate()
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if !(parsed >= min && parsed <= max) {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
