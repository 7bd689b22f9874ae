package core

import "math"

// AABB represents an axis-aligned bounding box in the scene plane
type AABB struct {
	Min Vec2 // Minimum corner
	Max Vec2 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec2) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec2) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	min := points[0]
	max := points[0]

	for _, point := range points[1:] {
		min.X = math.Min(min.X, point.X)
		min.Y = math.Min(min.Y, point.Y)
		max.X = math.Max(max.X, point.X)
		max.Y = math.Max(max.Y, point.Y)
	}

	return AABB{Min: min, Max: max}
}

// Hit tests if a ray can reach this box within [tMin, tMax] using the slab method.
// It is a conservative broad-phase test: exact obstacle tests still decide the hit.
func (aabb AABB) Hit(ray *Ray, tMin, tMax float64) bool {
	origin := ray.Start()
	direction := ray.Direction()

	for axis := 0; axis < 2; axis++ {
		var min, max, o, d float64

		switch axis {
		case 0:
			min, max, o, d = aabb.Min.X, aabb.Max.X, origin.X, direction.X
		case 1:
			min, max, o, d = aabb.Min.Y, aabb.Max.Y, origin.Y, direction.Y
		}

		// Parallel to this slab
		if math.Abs(d) < 1e-12 {
			if o < min || o > max {
				return false
			}
			continue
		}

		invD := 1.0 / d
		t1 := (min - o) * invD
		t2 := (max - o) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}

	return true
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{
		Min: Vec2{math.Min(aabb.Min.X, other.Min.X), math.Min(aabb.Min.Y, other.Min.Y)},
		Max: Vec2{math.Max(aabb.Max.X, other.Max.X), math.Max(aabb.Max.Y, other.Max.Y)},
	}
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec2 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the extent of the AABB along each axis
func (aabb AABB) Size() Vec2 {
	return aabb.Max.Subtract(aabb.Min)
}

// Contains reports whether p lies inside the box (edges included)
func (aabb AABB) Contains(p Vec2) bool {
	return p.X >= aabb.Min.X && p.X <= aabb.Max.X && p.Y >= aabb.Min.Y && p.Y <= aabb.Max.Y
}

// IsValid returns true if min <= max on both axes
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X && aabb.Min.Y <= aabb.Max.Y
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	expansion := NewVec2(amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}
