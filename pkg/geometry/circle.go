package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

// CircleEpsilon is the smallest root accepted as a collision ahead of the ray
const CircleEpsilon = 1e-5

// Circle is a reflective circle
type Circle struct {
	Center core.Vec2
	Radius float64
	Config ReflectionConfig
}

// NewCircle creates a circle obstacle
func NewCircle(center core.Vec2, radius float64, config ReflectionConfig) (*Circle, error) {
	if !center.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite center %v", ErrDegenerateCircle, center)
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: radius %g must be positive and finite", ErrDegenerateCircle, radius)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Circle{
		Center: center,
		Radius: radius,
		Config: config,
	}, nil
}

// RunLength returns the distance along the ray to the nearest crossing of the circle
func (c *Circle) RunLength(ray *core.Ray) (float64, bool) {
	// Vector from circle center to ray origin
	oc := ray.Start().Subtract(c.Center)

	// Quadratic t² + 2·halfB·t + cc = 0; the leading coefficient is 1
	// because the ray direction is unit length
	halfB := oc.Dot(ray.Direction())
	cc := oc.LengthSquared() - c.Radius*c.Radius

	discriminant := halfB*halfB - cc
	if discriminant < 0 {
		return 0, false
	}
	sqrtD := math.Sqrt(discriminant)

	// Try the closer root first
	root := -halfB - sqrtD
	if root < CircleEpsilon {
		root = -halfB + sqrtD
		if root < CircleEpsilon {
			return 0, false
		}
	}
	return root, true
}

// Reflect terminates the ray on the circle and returns a fan centered on the
// reflection about the surface normal
func (c *Circle) Reflect(ray *core.Ray) []*core.Ray {
	t, ok := c.RunLength(ray)
	if !ok {
		panic(fmt.Errorf("circle %v r=%g, %v: %w", c.Center, c.Radius, ray, ErrNoIntersection))
	}

	collision := ray.At(t)
	ray.Terminate(collision)

	incoming := ray.Direction()
	normal := collision.Subtract(c.Center)
	return c.Config.spawnFan(ray, collision, func(offset float64) core.Vec2 {
		direction := core.FromAngle(mirrorAngle(incoming, normal, offset), 1)
		// The angle construction cannot tell the two sides of the surface apart
		if direction.Dot(normal) < 0 {
			direction = direction.Negate()
		}
		return direction
	})
}

// BoundingBox returns the axis-aligned bounds of the circle
func (c *Circle) BoundingBox() core.AABB {
	radius := core.NewVec2(c.Radius, c.Radius)
	return core.NewAABB(c.Center.Subtract(radius), c.Center.Add(radius))
}

// Kind reports KindCircle
func (c *Circle) Kind() Kind { return KindCircle }

func (c *Circle) obstacle() {}
