package server

import (
	"fmt"
	"math"
	"net/http"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
)

// InspectResponse represents the JSON response for a probe ray
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	ObstacleType string                 `json:"obstacleType,omitempty"`
	Index        int                    `json:"index"` // -1 when nothing is hit
	Point        [2]float64             `json:"point"`
	Distance     float64                `json:"distance"`
	Direction    [2]float64             `json:"direction"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// extractObstacleInfo describes an obstacle and the fan it reflects with
func extractObstacleInfo(obstacle geometry.Obstacle) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	var config geometry.ReflectionConfig
	switch o := obstacle.(type) {
	case *geometry.Segment:
		properties["p1"] = [2]float64{o.P1.X, o.P1.Y}
		properties["p2"] = [2]float64{o.P2.X, o.P2.Y}
		properties["length"] = o.Length()
		config = o.Config
	case *geometry.Circle:
		properties["center"] = [2]float64{o.Center.X, o.Center.Y}
		properties["radius"] = o.Radius
		config = o.Config
	default:
		panic(fmt.Sprintf("unknown obstacle type %T", obstacle))
	}

	properties["fan"] = map[string]interface{}{
		"count":  config.FanCount,
		"spread": config.Spread,
		"decay":  config.Decay,
		"floor":  config.BrightnessFloor,
	}
	return obstacle.Kind().String(), properties
}

// handleInspect casts a probe ray and reports the first obstacle it would hit.
// The ray starts at the scene's source unless x and y are given.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	sceneName := values.Get("scene")
	if sceneName == "" {
		sceneName = scene.BoxSceneName
	}

	sceneObj, err := scene.Create(sceneName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	x, err := parseFloatParam(values, "x", sceneObj.Source.X, -10, 10)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	y, err := parseFloatParam(values, "y", sceneObj.Source.Y, -10, 10)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	angle, err := parseFloatParam(values, "angle", 0, -2*math.Pi, 2*math.Pi)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	probe, err := renderer.Probe(sceneObj, core.NewVec2(x, y), angle)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, inspectResponse(probe))
}

func inspectResponse(probe renderer.ProbeResult) InspectResponse {
	response := InspectResponse{
		Hit:       probe.Hit,
		Index:     probe.Index,
		Direction: [2]float64{probe.Direction.X, probe.Direction.Y},
	}
	if !probe.Hit {
		return response
	}
	response.ObstacleType, response.Properties = extractObstacleInfo(probe.Obstacle)
	response.Point = [2]float64{probe.Point.X, probe.Point.Y}
	response.Distance = probe.Distance
	return response
}
