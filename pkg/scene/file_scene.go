package scene

import (
	"fmt"
	"strings"

	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/loaders"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
)

// NewFileScene creates a scene from a JSON scene file.
// Reflection settings in the file win over the override; trace limits left
// out of the file use the defaults.
func NewFileScene(path string, reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	file, err := loaders.LoadSceneFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene file: %w", err)
	}
	return FromSceneFile(file, reflectionOverrides...)
}

// FromSceneFile converts a decoded scene file into a scene
func FromSceneFile(file *loaders.SceneFile, reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	config := reflectionConfig(reflectionOverrides)
	if file.Reflection != nil {
		config = *file.Reflection
	}

	b := newBuilder(config)
	for _, spec := range file.Obstacles {
		switch spec.Kind {
		case geometry.KindSegment:
			b.segment(spec.P1.X, spec.P1.Y, spec.P2.X, spec.P2.Y)
		case geometry.KindCircle:
			b.circle(spec.Center.X, spec.Center.Y, spec.Radius)
		default:
			panic(fmt.Sprintf("unknown obstacle kind %v", spec.Kind))
		}
	}
	if b.err != nil {
		return nil, fmt.Errorf("scene %q: %w", file.Name, b.err)
	}
	if len(file.Obstacles) == 0 {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("scene %q: %w", file.Name, err)
		}
	}

	traceConfig := renderer.DefaultTraceConfig()
	if file.SeedRays > 0 {
		traceConfig.SeedRays = file.SeedRays
	}
	if file.MaxRays > 0 {
		traceConfig.MaxRays = file.MaxRays
	}

	obstacles := b.obstacles
	if obstacles == nil {
		obstacles = []geometry.Obstacle{}
	}
	return &Scene{
		Name:             file.Name,
		Description:      file.Description,
		Source:           file.Source,
		Obstacles:        obstacles,
		TraceConfig:      traceConfig,
		ReflectionConfig: config,
	}, nil
}

// ToSceneFile describes the scene in scene file form
func (s *Scene) ToSceneFile() *loaders.SceneFile {
	config := s.ReflectionConfig
	file := &loaders.SceneFile{
		Name:        s.Name,
		Description: s.Description,
		Source:      s.Source,
		SeedRays:    s.TraceConfig.SeedRays,
		MaxRays:     s.TraceConfig.MaxRays,
		Reflection:  &config,
		Obstacles:   make([]loaders.ObstacleSpec, 0, len(s.Obstacles)),
	}

	for _, obstacle := range s.Obstacles {
		switch o := obstacle.(type) {
		case *geometry.Segment:
			file.Obstacles = append(file.Obstacles, loaders.ObstacleSpec{Kind: geometry.KindSegment, P1: o.P1, P2: o.P2})
		case *geometry.Circle:
			file.Obstacles = append(file.Obstacles, loaders.ObstacleSpec{Kind: geometry.KindCircle, Center: o.Center, Radius: o.Radius})
		default:
			panic(fmt.Sprintf("unknown obstacle type %T", obstacle))
		}
	}
	return file
}

// Create resolves a built-in scene name or a path to a .json scene file
func Create(name string, reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	switch name {
	case BoxSceneName:
		return NewBoxScene(reflectionOverrides...)
	case CirclesSceneName:
		return NewCirclesScene(reflectionOverrides...)
	case MirrorSceneName:
		return NewMirrorScene(reflectionOverrides...)
	case EmptySceneName:
		return NewEmptyScene(reflectionOverrides...)
	}

	if path, ok := strings.CutPrefix(name, FileScenePrefix); ok {
		return NewFileScene(path, reflectionOverrides...)
	}
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return NewFileScene(name, reflectionOverrides...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
}
