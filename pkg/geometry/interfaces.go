package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

var (
	// ErrDegenerateSegment is returned for segments whose endpoints coincide or are not finite
	ErrDegenerateSegment = errors.New("degenerate segment")
	// ErrDegenerateCircle is returned for circles with a non-positive or non-finite radius
	ErrDegenerateCircle = errors.New("degenerate circle")
	// ErrInvalidConfig is returned when a ReflectionConfig fails validation
	ErrInvalidConfig = errors.New("invalid reflection config")
	// ErrNoIntersection is the panic value used when Reflect is called on a ray that misses
	ErrNoIntersection = errors.New("reflect called on a ray that does not hit the obstacle")
)

// Kind identifies an obstacle variant
type Kind int

const (
	KindSegment Kind = iota
	KindCircle
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindSegment:
		return "segment"
	case KindCircle:
		return "circle"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Obstacle is a piece of scene geometry that stops rays and reflects them.
//
// The set of implementations is closed: only *Segment and *Circle satisfy it.
// Code that needs the concrete kind switches on the type and panics in the
// default branch so a new variant cannot be silently ignored.
type Obstacle interface {
	// RunLength returns the ray parameter of the nearest valid collision
	RunLength(ray *core.Ray) (float64, bool)
	// Reflect terminates ray at its collision point and returns the child fan.
	// It must only be called when RunLength reports a hit.
	Reflect(ray *core.Ray) []*core.Ray
	// BoundingBox returns the axis-aligned bounds of the obstacle
	BoundingBox() core.AABB
	// Kind reports the variant
	Kind() Kind

	obstacle()
}

// ReflectionConfig controls the child fan produced at every bounce
type ReflectionConfig struct {
	FanCount        int     // Number of child rays per reflection
	Spread          float64 // Half-width of the fan in radians
	Decay           float64 // Brightness multiplier per bounce
	BrightnessFloor float64 // Children dimmer than this are absorbed
}

// DefaultReflectionConfig returns the standard fan: 6 rays over ±0.1 rad, 0.7 decay, 0.01 floor
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		FanCount:        6,
		Spread:          0.1,
		Decay:           0.7,
		BrightnessFloor: 0.01,
	}
}

// Validate checks that the config describes a usable fan
func (c ReflectionConfig) Validate() error {
	switch {
	case c.FanCount < 1:
		return fmt.Errorf("%w: fan count %d must be at least 1", ErrInvalidConfig, c.FanCount)
	case !(c.Spread >= 0) || math.IsInf(c.Spread, 1):
		return fmt.Errorf("%w: spread %g must be finite and non-negative", ErrInvalidConfig, c.Spread)
	case !(c.Decay > 0 && c.Decay <= 1):
		return fmt.Errorf("%w: decay %g must be in (0, 1]", ErrInvalidConfig, c.Decay)
	case !(c.BrightnessFloor > 0 && c.BrightnessFloor <= 1):
		return fmt.Errorf("%w: brightness floor %g must be in (0, 1]", ErrInvalidConfig, c.BrightnessFloor)
	}
	return nil
}

// FanOffset returns the angular offset of child i in a fan of the configured size.
// Offsets are spread evenly over [-Spread, +Spread]; a single-ray fan has no offset.
func (c ReflectionConfig) FanOffset(i int) float64 {
	if c.FanCount == 1 {
		return 0
	}
	return c.Spread * 2 * (float64(i)/float64(c.FanCount-1) - 0.5)
}

// spawnFan builds the children of parent leaving from collision. direction
// maps a fan offset to the child's direction. Children whose own brightness
// falls below the floor are not created.
func (c ReflectionConfig) spawnFan(parent *core.Ray, collision core.Vec2, direction func(offset float64) core.Vec2) []*core.Ray {
	brightness := parent.Brightness() * c.Decay
	if brightness < c.BrightnessFloor {
		return nil
	}

	children := make([]*core.Ray, 0, c.FanCount)
	for i := 0; i < c.FanCount; i++ {
		child, err := parent.Child(collision, direction(c.FanOffset(i)), brightness)
		if err != nil {
			// Directions come from FromAngle and collisions from finite
			// geometry, so this is a broken invariant rather than bad input.
			panic(fmt.Sprintf("reflection produced an invalid ray: %v", err))
		}
		children = append(children, child)
	}
	return children
}

// mirrorAngle returns the angle of -incoming mirrored about axis, plus offset
func mirrorAngle(incoming, axis core.Vec2, offset float64) float64 {
	back := incoming.Negate()
	return back.Angle() + 2*back.AngleTo(axis) + offset
}
