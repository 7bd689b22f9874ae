package core

import (
	"testing"
)

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec2(1, 1), NewVec2(2, 2))

	tests := []struct {
		name      string
		start     Vec2
		direction Vec2
		tMax      float64
		expected  bool
	}{
		{"straight at box", NewVec2(0, 1.5), NewVec2(1, 0), 10, true},
		{"pointing away", NewVec2(0, 1.5), NewVec2(-1, 0), 10, false},
		{"passes above", NewVec2(0, 3), NewVec2(1, 0), 10, false},
		{"diagonal", NewVec2(0, 0), NewVec2(1, 1), 10, true},
		{"too short", NewVec2(0, 1.5), NewVec2(1, 0), 0.5, false},
		{"reaches the edge exactly", NewVec2(0, 1.5), NewVec2(1, 0), 1, true},
		{"parallel inside slab", NewVec2(1.5, 0), NewVec2(0, 1), 10, true},
		{"parallel outside slab", NewVec2(3, 0), NewVec2(0, 1), 10, false},
		{"starts inside", NewVec2(1.5, 1.5), NewVec2(-1, 0), 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray, err := NewRay(tt.start, tt.direction, 1)
			if err != nil {
				t.Fatal(err)
			}
			if got := box.Hit(ray, 0, tt.tMax); got != tt.expected {
				t.Errorf("Hit() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAABB_UnionAndCenter(t *testing.T) {
	a := NewAABBFromPoints(NewVec2(0, 1), NewVec2(1, 0))
	b := NewAABB(NewVec2(2, -1), NewVec2(3, 0.5))

	union := a.Union(b)
	if union.Min != NewVec2(0, -1) || union.Max != NewVec2(3, 1) {
		t.Errorf("Unexpected union %+v", union)
	}
	if c := union.Center(); c != NewVec2(1.5, 0) {
		t.Errorf("Expected center (1.5, 0), got %v", c)
	}
	if s := union.Size(); s != NewVec2(3, 2) {
		t.Errorf("Expected size (3, 2), got %v", s)
	}
	if !union.Contains(NewVec2(3, 1)) || union.Contains(NewVec2(3.1, 0)) {
		t.Error("Contains should include edges and exclude outside points")
	}
}

func TestAABB_Expand(t *testing.T) {
	box := NewAABBFromPoints(NewVec2(0, 0), NewVec2(1, 0)).Expand(0.5)
	if box.Min != NewVec2(-0.5, -0.5) || box.Max != NewVec2(1.5, 0.5) {
		t.Errorf("Unexpected expanded box %+v", box)
	}
	if !box.IsValid() {
		t.Error("Expanded box should be valid")
	}
	if (AABB{Min: NewVec2(1, 0), Max: NewVec2(0, 0)}).IsValid() {
		t.Error("Inverted box should be invalid")
	}
}
