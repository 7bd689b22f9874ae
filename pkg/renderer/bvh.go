package renderer

import (
	"math"
	"sort"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
)

// Leaf threshold: if we have this many or fewer obstacles, store them in a leaf node
const leafThreshold = 8

// bvhNode is a node of the obstacle hierarchy. Leaves hold obstacle indices
// into the scene list; internal nodes always have both children.
type bvhNode struct {
	box     core.AABB
	left    *bvhNode
	right   *bvhNode
	indices []int // nil for internal nodes
}

// obstacleBVH is a Bounding Volume Hierarchy over the scene obstacles
type obstacleBVH struct {
	root      *bvhNode
	obstacles []geometry.Obstacle
}

// newObstacleBVH builds the hierarchy; the obstacle slice is not modified
func newObstacleBVH(obstacles []geometry.Obstacle) *obstacleBVH {
	bvh := &obstacleBVH{obstacles: obstacles}
	if len(obstacles) == 0 {
		return bvh
	}

	boxes := make([]core.AABB, len(obstacles))
	indices := make([]int, len(obstacles))
	for i, obstacle := range obstacles {
		boxes[i] = obstacle.BoundingBox().Expand(boxPadding)
		indices[i] = i
	}
	bvh.root = buildNode(indices, boxes)
	return bvh
}

// buildNode splits at the median along the longest axis until leaves are small
func buildNode(indices []int, boxes []core.AABB) *bvhNode {
	box := boxes[indices[0]]
	for _, i := range indices[1:] {
		box = box.Union(boxes[i])
	}

	if len(indices) <= leafThreshold {
		return &bvhNode{box: box, indices: indices}
	}

	size := box.Size()
	sort.SliceStable(indices, func(a, b int) bool {
		centerA := boxes[indices[a]].Center()
		centerB := boxes[indices[b]].Center()
		if size.X >= size.Y {
			return centerA.X < centerB.X
		}
		return centerA.Y < centerB.Y
	})

	mid := len(indices) / 2
	return &bvhNode{
		box:   box,
		left:  buildNode(indices[:mid], boxes),
		right: buildNode(indices[mid:], boxes),
	}
}

// nearest returns the index and run length of the nearest obstacle along ray.
// Exact ties go to the lowest index, so the result does not depend on the
// traversal order.
func (bvh *obstacleBVH) nearest(ray *core.Ray) (int, float64, bool) {
	best := -1
	closestSoFar := math.Inf(1)
	if bvh.root != nil {
		bvh.hitNode(bvh.root, ray, &best, &closestSoFar)
	}
	return best, closestSoFar, best >= 0
}

func (bvh *obstacleBVH) hitNode(node *bvhNode, ray *core.Ray, best *int, closestSoFar *float64) {
	// The box test is inclusive of tMax, so obstacles tied with the current best are still visited
	if !node.box.Hit(ray, 0, *closestSoFar) {
		return
	}

	if node.indices != nil {
		for _, i := range node.indices {
			t, ok := bvh.obstacles[i].RunLength(ray)
			if !ok {
				continue
			}
			if t < *closestSoFar || (t == *closestSoFar && i < *best) {
				*closestSoFar = t
				*best = i
			}
		}
		return
	}

	bvh.hitNode(node.left, ray, best, closestSoFar)
	bvh.hitNode(node.right, ray, best, closestSoFar)
}

// depth returns the number of levels in the hierarchy
func (bvh *obstacleBVH) depth() int {
	var walk func(node *bvhNode) int
	walk = func(node *bvhNode) int {
		if node == nil {
			return 0
		}
		return 1 + max(walk(node.left), walk(node.right))
	}
	return walk(bvh.root)
}
