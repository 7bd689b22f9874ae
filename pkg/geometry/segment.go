package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

const (
	// ParallelEpsilon is the smallest |denominator| treated as a real crossing
	ParallelEpsilon = 1e-6
	// SegmentEpsilon is the margin kept from both segment endpoints and from the
	// ray origin. It also stops a reflected ray from re-hitting its own segment.
	SegmentEpsilon = 0.01
)

// Segment is a reflective line segment between P1 and P2
type Segment struct {
	P1, P2 core.Vec2
	Config ReflectionConfig

	edge core.Vec2 // P2 - P1
}

// NewSegment creates a segment obstacle
func NewSegment(p1, p2 core.Vec2, config ReflectionConfig) (*Segment, error) {
	if !p1.IsFinite() || !p2.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite endpoint %v-%v", ErrDegenerateSegment, p1, p2)
	}
	if p1 == p2 {
		return nil, fmt.Errorf("%w: endpoints coincide at %v", ErrDegenerateSegment, p1)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Segment{
		P1:     p1,
		P2:     p2,
		Config: config,
		edge:   p2.Subtract(p1),
	}, nil
}

// solve intersects the ray line with the segment line.
// t0 is the ray parameter, t1 the segment parameter (0 at P1, 1 at P2).
func (s *Segment) solve(ray *core.Ray) (t0, t1 float64, ok bool) {
	d := ray.Direction()
	denominator := d.Cross(s.edge)
	if math.Abs(denominator) < ParallelEpsilon {
		return 0, 0, false
	}

	w := s.P1.Subtract(ray.Start())
	t0 = w.Cross(s.edge) / denominator
	t1 = w.Cross(d) / denominator
	return t0, t1, true
}

// RunLength returns the distance along the ray to the segment.
// Crossings within SegmentEpsilon of either endpoint or of the ray origin are ignored.
func (s *Segment) RunLength(ray *core.Ray) (float64, bool) {
	t0, t1, ok := s.solve(ray)
	if !ok {
		return 0, false
	}
	if t1 < SegmentEpsilon || t1 > 1-SegmentEpsilon {
		return 0, false
	}
	if t0 < SegmentEpsilon {
		return 0, false
	}
	return t0, true
}

// Reflect terminates the ray on the segment and returns a fan centered on the mirror direction
func (s *Segment) Reflect(ray *core.Ray) []*core.Ray {
	t, ok := s.RunLength(ray)
	if !ok {
		panic(fmt.Errorf("segment %v-%v, %v: %w", s.P1, s.P2, ray, ErrNoIntersection))
	}

	collision := ray.At(t)
	ray.Terminate(collision)

	incoming := ray.Direction()
	axis := s.P1.Subtract(s.P2)
	return s.Config.spawnFan(ray, collision, func(offset float64) core.Vec2 {
		// Mirroring -d about the segment line gives the reflection of d reversed
		return core.FromAngle(mirrorAngle(incoming, axis, offset), 1).Negate()
	})
}

// BoundingBox returns the axis-aligned bounds of the segment
func (s *Segment) BoundingBox() core.AABB {
	return core.NewAABBFromPoints(s.P1, s.P2)
}

// Kind reports KindSegment
func (s *Segment) Kind() Kind { return KindSegment }

func (s *Segment) obstacle() {}

// Length returns the length of the segment
func (s *Segment) Length() float64 {
	return s.edge.Length()
}
