package scene

import (
	"bytes"
	"errors"
	"testing"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/loaders"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
)

func TestCreate_BuiltIns(t *testing.T) {
	tests := []struct {
		name      string
		segments  int
		circles   int
		sourceX   float64
		obstacles int
	}{
		{BoxSceneName, 4, 4, 0.5, 8},
		{CirclesSceneName, 2, 9, 0.5, 11},
		{MirrorSceneName, 1, 0, 0.5, 1},
		{EmptySceneName, 0, 0, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Create(tt.name)
			if err != nil {
				t.Fatalf("Create(%q) error = %v", tt.name, err)
			}
			if s.Name != tt.name {
				t.Errorf("Name = %q, want %q", s.Name, tt.name)
			}
			if len(s.Obstacles) != tt.obstacles {
				t.Errorf("Expected %d obstacles, got %d", tt.obstacles, len(s.Obstacles))
			}
			counts := s.CountByKind()
			if counts[geometry.KindSegment] != tt.segments || counts[geometry.KindCircle] != tt.circles {
				t.Errorf("Expected %d segments and %d circles, got %v", tt.segments, tt.circles, counts)
			}
			if s.Source.X != tt.sourceX {
				t.Errorf("Source = %v", s.Source)
			}
			if err := s.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestCreate_Unknown(t *testing.T) {
	_, err := Create("cornell-box")
	if !errors.Is(err, ErrUnknownScene) {
		t.Errorf("Expected ErrUnknownScene, got %v", err)
	}
}

func TestCreate_ReflectionOverride(t *testing.T) {
	config := geometry.ReflectionConfig{FanCount: 2, Spread: 0.3, Decay: 0.5, BrightnessFloor: 0.1}
	s, err := Create(BoxSceneName, config)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ReflectionConfig != config {
		t.Errorf("ReflectionConfig = %+v, want %+v", s.ReflectionConfig, config)
	}
	segment, ok := s.Obstacles[0].(*geometry.Segment)
	if !ok {
		t.Fatalf("Expected first obstacle to be a segment, got %T", s.Obstacles[0])
	}
	if segment.Config != config {
		t.Errorf("Obstacle config = %+v, want %+v", segment.Config, config)
	}
}

func TestCreate_InvalidReflection(t *testing.T) {
	bad := geometry.ReflectionConfig{FanCount: 0, Spread: 0.1, Decay: 0.7, BrightnessFloor: 0.01}
	for _, name := range BuiltInSceneNames {
		if _, err := Create(name, bad); !errors.Is(err, geometry.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestScene_RunMirror(t *testing.T) {
	s, err := NewMirrorScene()
	if err != nil {
		t.Fatal(err)
	}
	result, err := s.Run(nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Rays) != 14 || result.Truncated {
		t.Errorf("Expected 14 rays untruncated, got %d truncated=%t", len(result.Rays), result.Truncated)
	}
}

func TestScene_RunEmpty(t *testing.T) {
	s, err := NewEmptyScene()
	if err != nil {
		t.Fatal(err)
	}
	result, err := s.Run(nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Rays) != 8 {
		t.Errorf("Expected 8 seeds, got %d", len(result.Rays))
	}
	for _, ray := range result.Rays {
		if ray.Terminated {
			t.Error("Rays in an empty scene cannot terminate")
		}
	}
}

func TestScene_RunBoxRespectsCap(t *testing.T) {
	s, err := NewBoxScene()
	if err != nil {
		t.Fatal(err)
	}
	s.TraceConfig.MaxRays = 2000

	result, err := s.Run(nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Rays) > 2000 {
		t.Errorf("Trace exceeded cap: %d rays", len(result.Rays))
	}
	if result.Stats.Terminated == 0 {
		t.Error("Expected rays to hit the walls")
	}
}

func TestScene_Validate(t *testing.T) {
	s, _ := NewMirrorScene()
	s.TraceConfig = renderer.TraceConfig{SeedRays: 0, MaxRays: 10}
	if err := s.Validate(); !errors.Is(err, renderer.ErrInvalidTraceConfig) {
		t.Errorf("Expected ErrInvalidTraceConfig, got %v", err)
	}

	s, _ = NewMirrorScene()
	s.Obstacles = append(s.Obstacles, nil)
	if err := s.Validate(); err == nil {
		t.Error("Expected error for nil obstacle")
	}
}

func TestFromSceneFile(t *testing.T) {
	obstacles := []loaders.ObstacleSpec{
		{Kind: geometry.KindCircle, Center: core.NewVec2(0.7, 0.7), Radius: 0.1},
		{Kind: geometry.KindSegment, P1: core.NewVec2(0, 0), P2: core.NewVec2(1, 0)},
	}
	file := &loaders.SceneFile{Name: "pair", Source: core.NewVec2(0.3, 0.3), MaxRays: 500, Obstacles: obstacles}

	s, err := FromSceneFile(file)
	if err != nil {
		t.Fatalf("FromSceneFile() error = %v", err)
	}
	if s.TraceConfig.MaxRays != 500 || s.TraceConfig.SeedRays != renderer.DefaultTraceConfig().SeedRays {
		t.Errorf("TraceConfig = %+v", s.TraceConfig)
	}
	if s.Obstacles[0].Kind() != geometry.KindCircle || s.Obstacles[1].Kind() != geometry.KindSegment {
		t.Error("Obstacle order must follow the file")
	}
}

func TestFromSceneFile_DegenerateObstacle(t *testing.T) {
	degenerate := loaders.ObstacleSpec{Kind: geometry.KindSegment, P1: core.NewVec2(0.2, 0.2), P2: core.NewVec2(0.2, 0.2)}
	file := &loaders.SceneFile{Name: "bad", Source: core.NewVec2(0.5, 0.5), Obstacles: []loaders.ObstacleSpec{degenerate}}
	if _, err := FromSceneFile(file); !errors.Is(err, geometry.ErrDegenerateSegment) {
		t.Errorf("Expected ErrDegenerateSegment, got %v", err)
	}
}

func TestToSceneFile_RoundTrip(t *testing.T) {
	original, err := NewBoxScene()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := loaders.WriteSceneFile(&buf, original.ToSceneFile()); err != nil {
		t.Fatalf("WriteSceneFile() error = %v", err)
	}
	file, err := loaders.ParseSceneFile(&buf)
	if err != nil {
		t.Fatalf("ParseSceneFile() error = %v", err)
	}
	restored, err := FromSceneFile(file)
	if err != nil {
		t.Fatalf("FromSceneFile() error = %v", err)
	}

	first, err := original.Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := restored.Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Rays) != len(second.Rays) {
		t.Fatalf("Restored scene traced %d rays, original %d", len(second.Rays), len(first.Rays))
	}
	for i := range first.Rays {
		if first.Rays[i] != second.Rays[i] {
			t.Fatalf("Ray %d differs after round trip", i)
		}
	}
}

func TestBundledSceneFiles(t *testing.T) {
	scenes, err := ListSceneFiles("../../scenes")
	if err != nil {
		t.Fatalf("ListSceneFiles() error = %v", err)
	}
	for _, info := range scenes {
		s, err := Create(info.ID)
		if err != nil {
			t.Errorf("%s: %v", info.FilePath, err)
			continue
		}
		if _, err := s.Run(nil); err != nil {
			t.Errorf("%s: Run() error = %v", info.FilePath, err)
		}
	}
}
