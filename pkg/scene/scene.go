package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
)

// ErrUnknownScene is returned by Create for names that are neither built-in nor a scene file
var ErrUnknownScene = errors.New("unknown scene")

// Scene is a light source, the obstacles around it and the settings for one run
type Scene struct {
	Name             string
	Description      string
	Source           core.Vec2
	Obstacles        []geometry.Obstacle // Scene order decides ties between equally near obstacles
	TraceConfig      renderer.TraceConfig
	ReflectionConfig geometry.ReflectionConfig // Fan used when the obstacles were built
}

// GetSource returns the light source position
func (s *Scene) GetSource() core.Vec2 {
	return s.Source
}

// GetObstacles returns the obstacles in scene order
func (s *Scene) GetObstacles() []geometry.Obstacle {
	return s.Obstacles
}

// Validate checks that the scene can be traced
func (s *Scene) Validate() error {
	if !s.Source.IsFinite() {
		return fmt.Errorf("scene %q: source %v: %w", s.Name, s.Source, core.ErrNonFinite)
	}
	for i, obstacle := range s.Obstacles {
		if obstacle == nil {
			return fmt.Errorf("scene %q: obstacle %d is nil", s.Name, i)
		}
	}
	if err := s.TraceConfig.Validate(); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}
	return nil
}

// Run traces the scene once with its own trace config.
// A nil logger keeps the run silent.
func (s *Scene) Run(logger core.Logger) (*renderer.TraceResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tracer := renderer.NewTracer(s, s.TraceConfig)
	tracer.SetLogger(logger)
	return tracer.Trace()
}

// CountByKind returns how many obstacles of each kind the scene holds
func (s *Scene) CountByKind() map[geometry.Kind]int {
	counts := make(map[geometry.Kind]int)
	for _, obstacle := range s.Obstacles {
		counts[obstacle.Kind()]++
	}
	return counts
}

// builder collects obstacles for a scene and remembers the first construction error
type builder struct {
	config    geometry.ReflectionConfig
	obstacles []geometry.Obstacle
	err       error
}

func newBuilder(config geometry.ReflectionConfig) *builder {
	return &builder{config: config}
}

func (b *builder) segment(x1, y1, x2, y2 float64) {
	if b.err != nil {
		return
	}
	segment, err := geometry.NewSegment(core.NewVec2(x1, y1), core.NewVec2(x2, y2), b.config)
	if err != nil {
		b.err = fmt.Errorf("obstacle %d: %w", len(b.obstacles), err)
		return
	}
	b.obstacles = append(b.obstacles, segment)
}

func (b *builder) circle(x, y, radius float64) {
	if b.err != nil {
		return
	}
	circle, err := geometry.NewCircle(core.NewVec2(x, y), radius, b.config)
	if err != nil {
		b.err = fmt.Errorf("obstacle %d: %w", len(b.obstacles), err)
		return
	}
	b.obstacles = append(b.obstacles, circle)
}

// reflectionConfig returns the override if one was given, otherwise the default fan
func reflectionConfig(overrides []geometry.ReflectionConfig) geometry.ReflectionConfig {
	if len(overrides) > 0 {
		return overrides[0]
	}
	return geometry.DefaultReflectionConfig()
}
