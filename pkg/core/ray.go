package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBrightness is returned when a ray brightness is outside (0, 1]
var ErrInvalidBrightness = errors.New("brightness must be in (0, 1]")

// Ray is a directed segment of light. Start, direction and brightness are
// fixed at construction; the end point is filled in once, when the ray is
// found to collide with an obstacle.
type Ray struct {
	start      Vec2
	direction  Vec2 // always unit length
	brightness float64
	depth      int // 0 for rays emitted by the source

	end        Vec2
	terminated bool
}

// NewRay creates a source ray. The direction does not need to be unit length.
func NewRay(start, direction Vec2, brightness float64) (*Ray, error) {
	return newRay(start, direction, brightness, 0)
}

// Child creates a ray one generation deeper than r
func (r *Ray) Child(start, direction Vec2, brightness float64) (*Ray, error) {
	return newRay(start, direction, brightness, r.depth+1)
}

func newRay(start, direction Vec2, brightness float64, depth int) (*Ray, error) {
	if !start.IsFinite() {
		return nil, fmt.Errorf("ray start %v: %w", start, ErrNonFinite)
	}
	unit, err := direction.Normalize()
	if err != nil {
		return nil, fmt.Errorf("ray direction %v: %w", direction, err)
	}
	if math.IsNaN(brightness) || brightness <= 0 || brightness > 1 {
		return nil, fmt.Errorf("ray brightness %g: %w", brightness, ErrInvalidBrightness)
	}
	return &Ray{
		start:      start,
		direction:  unit,
		brightness: brightness,
		depth:      depth,
	}, nil
}

// Start returns the ray origin
func (r *Ray) Start() Vec2 { return r.start }

// Direction returns the unit direction
func (r *Ray) Direction() Vec2 { return r.direction }

// Brightness returns the brightness in (0, 1]
func (r *Ray) Brightness() float64 { return r.brightness }

// Depth returns the number of reflections between the source and this ray
func (r *Ray) Depth() int { return r.depth }

// At returns the point at parameter t along the ray
func (r *Ray) At(t float64) Vec2 {
	return r.start.Add(r.direction.Multiply(t))
}

// End returns the collision point, or false if the ray never hit anything
func (r *Ray) End() (Vec2, bool) {
	return r.end, r.terminated
}

// Terminate records the collision point. It may be called only once per ray.
func (r *Ray) Terminate(point Vec2) {
	if r.terminated {
		panic(fmt.Sprintf("ray from %v already terminated at %v", r.start, r.end))
	}
	r.end = point
	r.terminated = true
}

// Record returns a value snapshot of the ray
func (r *Ray) Record() RayRecord {
	return RayRecord{
		Start:      r.start,
		Direction:  r.direction,
		Brightness: r.brightness,
		End:        r.end,
		Terminated: r.terminated,
		Depth:      r.depth,
	}
}

// String implements fmt.Stringer
func (r *Ray) String() string {
	if r.terminated {
		return fmt.Sprintf("Ray{%v -> %v, b=%.4f, depth=%d}", r.start, r.end, r.brightness, r.depth)
	}
	return fmt.Sprintf("Ray{%v dir %v, b=%.4f, depth=%d, unterminated}", r.start, r.direction, r.brightness, r.depth)
}

// RayRecord is the read-only form of a finished ray handed to renderers and storage
type RayRecord struct {
	Start      Vec2
	Direction  Vec2
	Brightness float64
	End        Vec2 // meaningful only when Terminated is true
	Terminated bool
	Depth      int
}

// Length returns the distance from start to end, or 0 for an unterminated ray
func (rr RayRecord) Length() float64 {
	if !rr.Terminated {
		return 0
	}
	return rr.End.Subtract(rr.Start).Length()
}
