package renderer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
)

// ErrInvalidTraceConfig is returned when a TraceConfig fails validation
var ErrInvalidTraceConfig = errors.New("invalid trace config")

// boxPadding widens obstacle bounding boxes so the broad phase never rejects
// a hit that lies on the box edge
const boxPadding = 1e-9

// TraceConfig contains propagation configuration
type TraceConfig struct {
	SeedRays int // Rays emitted by the source, evenly spaced over a full turn
	MaxRays  int // Hard cap on rays materialized in one run
}

// DefaultTraceConfig returns sensible default values
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		SeedRays: 8,
		MaxRays:  100000,
	}
}

// Validate checks the configuration
func (c TraceConfig) Validate() error {
	if c.SeedRays < 1 {
		return fmt.Errorf("%w: seed rays %d must be at least 1", ErrInvalidTraceConfig, c.SeedRays)
	}
	if c.MaxRays < 1 {
		return fmt.Errorf("%w: max rays %d must be at least 1", ErrInvalidTraceConfig, c.MaxRays)
	}
	return nil
}

// Scene interface to avoid circular imports
type Scene interface {
	GetSource() core.Vec2
	GetObstacles() []geometry.Obstacle
}

// TraceResult is the finished ray trace of one propagation run
type TraceResult struct {
	Rays      []core.RayRecord // Every ray created, in creation order
	Truncated bool             // The hard cap refused at least one ray; the trace is incomplete
	Stats     TraceStats
	Elapsed   time.Duration
}

// DepthUpdate is delivered when the wavefront finishes a generation
type DepthUpdate struct {
	Depth int              // Generation that was just completed
	Rays  []core.RayRecord // Snapshot of all rays created so far
	Final bool             // No further updates follow
}

// Tracer propagates light from a scene's source through its obstacles
type Tracer struct {
	scene   Scene
	config  TraceConfig
	logger  core.Logger
	onDepth func(DepthUpdate)
}

// NewTracer creates a new tracer
func NewTracer(scene Scene, config TraceConfig) *Tracer {
	return &Tracer{
		scene:  scene,
		config: config,
	}
}

// SetLogger sets the logger used for run summaries; nil disables logging
func (t *Tracer) SetLogger(logger core.Logger) {
	t.logger = logger
}

// SetDepthCallback registers a function called after every completed generation
func (t *Tracer) SetDepthCallback(fn func(DepthUpdate)) {
	t.onDepth = fn
}

func (t *Tracer) logf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

// Trace runs one propagation to completion.
//
// Rays are drained in creation order, so the wavefront advances one
// generation at a time. Each ray is reflected by the nearest obstacle it
// hits (the first-listed obstacle wins exact ties) and the children join the
// back of the queue. A ray that hits nothing leaves the scene unterminated.
//
// The run ends when the queue is drained or when the hard cap refuses a ray.
// In the latter case the run stops on the spot: the remaining children of
// that reflection are dropped, queued rays are left unprocessed, and the
// result is marked Truncated. The trace never holds more than MaxRays rays.
func (t *Tracer) Trace() (*TraceResult, error) {
	if err := t.config.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	obstacles := t.scene.GetObstacles()
	bvh := newObstacleBVH(obstacles)
	hits := make([]int, len(obstacles))

	queue := NewQueue[*core.Ray]()
	truncated := false
	admit := func(ray *core.Ray) bool {
		if queue.Len() >= t.config.MaxRays {
			truncated = true
			return false
		}
		queue.Put(ray)
		return true
	}

	// Seed the wavefront
	source := t.scene.GetSource()
	for i := 0; i < t.config.SeedRays; i++ {
		angle := float64(i) / float64(t.config.SeedRays) * 2 * math.Pi
		ray, err := core.NewRay(source, core.FromAngle(angle, 1), 1.0)
		if err != nil {
			return nil, fmt.Errorf("seed ray %d: %w", i, err)
		}
		if !admit(ray) {
			break
		}
	}

	// Drain
	depth := 0
	for !truncated {
		ray, ok := queue.Next()
		if !ok {
			break
		}
		if ray.Depth() > depth {
			t.notify(depth, queue, false)
			depth = ray.Depth()
		}

		index, _, ok := bvh.nearest(ray)
		if !ok {
			continue // leaves the scene
		}
		hits[index]++

		for _, child := range obstacles[index].Reflect(ray) {
			if !admit(child) {
				break
			}
		}
	}

	queue.Reset()
	rays := queue.Items()
	records := make([]core.RayRecord, len(rays))
	for i, ray := range rays {
		records[i] = ray.Record()
	}
	t.notify(depth, queue, true)

	result := &TraceResult{
		Rays:      records,
		Truncated: truncated,
		Stats:     computeTraceStats(records, hits),
		Elapsed:   time.Since(startTime),
	}

	if truncated {
		t.logf("Trace truncated at %d rays (cap %d); output is incomplete\n", len(records), t.config.MaxRays)
	}
	t.logf("Traced %d rays to depth %d in %v\n", len(records), result.Stats.MaxDepth, result.Elapsed)

	return result, nil
}

// notify sends a depth update if a callback is registered
func (t *Tracer) notify(depth int, queue *Queue[*core.Ray], final bool) {
	if t.onDepth == nil {
		return
	}
	rays := queue.Items()
	records := make([]core.RayRecord, len(rays))
	for i, ray := range rays {
		records[i] = ray.Record()
	}
	t.onDepth(DepthUpdate{Depth: depth, Rays: records, Final: final})
}

// Probe casts a single ray through the scene without reflecting it and
// reports the nearest obstacle it would hit
func Probe(scene Scene, origin core.Vec2, angle float64) (ProbeResult, error) {
	ray, err := core.NewRay(origin, core.FromAngle(angle, 1), 1)
	if err != nil {
		return ProbeResult{}, err
	}

	obstacles := scene.GetObstacles()
	index, distance, ok := newObstacleBVH(obstacles).nearest(ray)
	if !ok {
		return ProbeResult{Hit: false, Index: -1, Direction: ray.Direction()}, nil
	}
	return ProbeResult{
		Hit:       true,
		Index:     index,
		Obstacle:  obstacles[index],
		Distance:  distance,
		Point:     ray.At(distance),
		Direction: ray.Direction(),
	}, nil
}

// ProbeResult describes the first obstacle along a probe ray
type ProbeResult struct {
	Hit       bool
	Index     int // Position of the obstacle in the scene list, -1 on a miss
	Obstacle  geometry.Obstacle
	Distance  float64
	Point     core.Vec2
	Direction core.Vec2
}
