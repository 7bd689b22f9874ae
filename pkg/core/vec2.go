package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroVector is returned when a direction is required but the vector has no length
var ErrZeroVector = errors.New("zero-length vector has no direction")

// ErrNonFinite is returned when a coordinate is NaN or infinite
var ErrNonFinite = errors.New("non-finite coordinate")

// twoPi is the length of a full turn; all angles live in [0, twoPi)
const twoPi = 2 * math.Pi

// Vec2 represents an immutable 2D vector or point
type Vec2 struct {
	X, Y float64
}

// NewVec2 creates a new Vec2
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// FromAngle creates a vector of the given magnitude pointing at angle (radians)
func FromAngle(angle, magnitude float64) Vec2 {
	return Vec2{math.Cos(angle) * magnitude, math.Sin(angle) * magnitude}
}

// Add returns the sum of two vectors
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Subtract returns the difference of two vectors
func (v Vec2) Subtract(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Multiply returns the vector scaled by a scalar
func (v Vec2) Multiply(scalar float64) Vec2 {
	return Vec2{v.X * scalar, v.Y * scalar}
}

// Negate returns the negative of the vector
func (v Vec2) Negate() Vec2 {
	return Vec2{-v.X, -v.Y}
}

// Dot returns the dot product of two vectors
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Cross returns the z component of the 3D cross product (v.X, v.Y, 0) x (other.X, other.Y, 0)
func (v Vec2) Cross(other Vec2) float64 {
	return v.X*other.Y - v.Y*other.X
}

// Length returns the magnitude of the vector
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// LengthSquared returns the squared magnitude of the vector
func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Angle returns the direction of the vector in [0, 2π).
// The zero vector reports 0.
func (v Vec2) Angle() float64 {
	return normalizeAngle(math.Atan2(v.Y, v.X))
}

// Normalize returns a unit vector in the same direction.
// The zero vector has no direction and yields ErrZeroVector.
func (v Vec2) Normalize() (Vec2, error) {
	length := v.Length()
	if length == 0 {
		return Vec2{}, ErrZeroVector
	}
	if math.IsInf(length, 0) || math.IsNaN(length) {
		return Vec2{}, fmt.Errorf("normalize %v: %w", v, ErrNonFinite)
	}
	return Vec2{v.X / length, v.Y / length}, nil
}

// Rotate returns the vector rotated counter-clockwise by delta radians, keeping its magnitude
func (v Vec2) Rotate(delta float64) Vec2 {
	return FromAngle(v.Angle()+delta, v.Length())
}

// AngleTo returns the angle from v to other in [0, 2π): the direction of
// other measured in a frame where v lies along the positive X axis
func (v Vec2) AngleTo(other Vec2) float64 {
	return other.Rotate(-v.Angle()).Angle()
}

// IsFinite reports whether both coordinates are finite numbers
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// String implements fmt.Stringer
func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// normalizeAngle folds any angle into [0, 2π)
func normalizeAngle(angle float64) float64 {
	a := math.Mod(angle, twoPi)
	if a < 0 {
		a += twoPi
	}
	// math.Mod can round a tiny negative input up to exactly 2π
	if a >= twoPi {
		a = 0
	}
	return a
}
