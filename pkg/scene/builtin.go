package scene

import (
	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
)

// Built-in scene names
const (
	BoxSceneName     = "box"
	CirclesSceneName = "circles"
	MirrorSceneName  = "mirror"
	EmptySceneName   = "empty"
)

// BuiltInSceneNames lists the built-in scenes in display order
var BuiltInSceneNames = []string{BoxSceneName, CirclesSceneName, MirrorSceneName, EmptySceneName}

// NewBoxScene creates the unit room: a partition wall on the left, walls on
// the top, right and bottom, and small pins in the four corners. The source
// sits in the middle of the room.
func NewBoxScene(reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	config := reflectionConfig(reflectionOverrides)

	b := newBuilder(config)
	b.segment(0.2, 0.2, 0.2, 0.8)
	b.segment(1, 1, 0, 1)
	b.segment(1, 1, 1, 0)
	b.segment(0, 0, 1, 0)
	b.circle(1, 1, 0.01)
	b.circle(0, 1, 0.01)
	b.circle(1, 0, 0.01)
	b.circle(0, 0, 0.01)
	if b.err != nil {
		return nil, b.err
	}

	return &Scene{
		Name:             BoxSceneName,
		Description:      "Three walls, a partition and corner pins around a central source",
		Source:           core.NewVec2(0.5, 0.5),
		Obstacles:        b.obstacles,
		TraceConfig:      renderer.DefaultTraceConfig(),
		ReflectionConfig: config,
	}, nil
}

// NewCirclesScene creates a ring of radius 0.2 circles along the border of
// the unit square, with two short walls closing the bottom-left corner
func NewCirclesScene(reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	config := reflectionConfig(reflectionOverrides)

	b := newBuilder(config)
	b.segment(0, 0, 0, 0.2)
	b.segment(0, 0, 0.2, 0)
	ring := []core.Vec2{
		{X: 0, Y: 0.4}, {X: 0, Y: 0.8}, {X: 0.2, Y: 1}, {X: 0.6, Y: 1},
		{X: 1, Y: 1}, {X: 1, Y: 0.6}, {X: 1, Y: 0.2}, {X: 0.8, Y: 0}, {X: 0.4, Y: 0},
	}
	for _, center := range ring {
		b.circle(center.X, center.Y, 0.2)
	}
	if b.err != nil {
		return nil, b.err
	}

	return &Scene{
		Name:             CirclesSceneName,
		Description:      "Ring of circles along the border with a walled corner",
		Source:           core.NewVec2(0.5, 0.5),
		Obstacles:        b.obstacles,
		TraceConfig:      renderer.DefaultTraceConfig(),
		ReflectionConfig: config,
	}, nil
}

// NewMirrorScene creates a single floor segment below the source. Only the
// downward seed reflects; every other ray escapes.
func NewMirrorScene(reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	config := reflectionConfig(reflectionOverrides)

	b := newBuilder(config)
	b.segment(0, 0, 1, 0)
	if b.err != nil {
		return nil, b.err
	}

	return &Scene{
		Name:             MirrorSceneName,
		Description:      "Single floor mirror under the source",
		Source:           core.NewVec2(0.5, 0.5),
		Obstacles:        b.obstacles,
		TraceConfig:      renderer.DefaultTraceConfig(),
		ReflectionConfig: config,
	}, nil
}

// NewEmptyScene creates a scene with no obstacles; every seed escapes
func NewEmptyScene(reflectionOverrides ...geometry.ReflectionConfig) (*Scene, error) {
	config := reflectionConfig(reflectionOverrides)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scene{
		Name:             EmptySceneName,
		Description:      "Source with no obstacles",
		Source:           core.NewVec2(0.5, 0.5),
		Obstacles:        []geometry.Obstacle{},
		TraceConfig:      renderer.DefaultTraceConfig(),
		ReflectionConfig: config,
	}, nil
}
