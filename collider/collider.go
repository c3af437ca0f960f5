// Package collider derives physics collision shapes from triangle meshes,
// either as a bounded set of convex hulls or as a verbatim triangle mesh.
package collider

import (
	"fmt"
	"sort"

	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// Shape tags. The tag is the first field of the serialized shape so
// readers can dispatch without decoding the payload.
const (
	TagConvexHulls uint8 = 1
	TagTriMesh     uint8 = 2
)

// DefaultMaxHulls bounds convex decomposition when the policy does not
// set its own limit.
const DefaultMaxHulls = 8

// Hull is one convex piece: the extreme points of a vertex subset and
// the outward-wound triangles of its boundary. Degenerate pieces (fewer
// than four points, or all coplanar) carry points only.
type Hull struct {
	Points    [][3]float32 `msgpack:"points"`
	Triangles [][3]uint32  `msgpack:"triangles,omitempty"`
}

// Shape is a collision shape. Exactly one payload is populated according
// to Tag: Hulls for TagConvexHulls, Positions+Triangles for TagTriMesh.
type Shape struct {
	Tag       uint8        `msgpack:"tag"`
	Hulls     []Hull       `msgpack:"hulls,omitempty"`
	Positions [][3]float32 `msgpack:"positions,omitempty"`
	Triangles [][3]uint32  `msgpack:"triangles,omitempty"`
}

// Policy selects how Build derives a shape from a mesh.
type Policy interface {
	isPolicy()
}

// ConvexDecomposition splits the mesh vertices into at most MaxHulls
// spatial parts and wraps each in a convex hull. A MaxHulls of zero
// means DefaultMaxHulls.
type ConvexDecomposition struct {
	MaxHulls int
}

func (ConvexDecomposition) isPolicy() {}

// TriMesh keeps the mesh triangles verbatim, for static geometry where
// exact collision matters more than solver cost.
type TriMesh struct{}

func (TriMesh) isPolicy() {}

// DefaultPolicy is what callers get when they do not choose.
func DefaultPolicy() Policy { return ConvexDecomposition{MaxHulls: DefaultMaxHulls} }

// Build derives a collision shape from m under the given policy. An
// empty mesh has no shape: Build returns (nil, nil).
func Build(m *mesh.BufMesh, p Policy) (*Shape, error) {
	if m == nil || m.Empty() {
		return nil, nil
	}
	switch pol := p.(type) {
	case ConvexDecomposition:
		k := pol.MaxHulls
		if k <= 0 {
			k = DefaultMaxHulls
		}
		hulls, err := decompose(m, k)
		if err != nil {
			return nil, err
		}
		return &Shape{Tag: TagConvexHulls, Hulls: hulls}, nil
	case TriMesh:
		pos := make([][3]float32, len(m.Positions))
		copy(pos, m.Positions)
		tris := make([][3]uint32, len(m.Triangles))
		copy(tris, m.Triangles)
		return &Shape{Tag: TagTriMesh, Positions: pos, Triangles: tris}, nil
	default:
		return nil, fmt.Errorf("unknown collider policy %T", p)
	}
}

// decompose splits the referenced vertex set into at most k parts by
// recursive longest-axis median splits, then hulls each part.
func decompose(m *mesh.BufMesh, k int) ([]Hull, error) {
	pts := referencedPoints(m)
	parts := [][][3]float32{pts}
	for len(parts) < k {
		// Split the part with the largest extent. Index order breaks ties
		// so the partition is deterministic.
		best, bestExtent := -1, float32(0)
		for i, p := range parts {
			if e := longestExtent(p); e > bestExtent {
				best, bestExtent = i, e
			}
		}
		if best < 0 || bestExtent == 0 {
			break // every part degenerate, no further split helps
		}
		lo, hi := splitLongestAxis(parts[best])
		if len(lo) == 0 || len(hi) == 0 {
			break
		}
		parts[best] = lo
		parts = append(parts, hi)
	}
	hulls := make([]Hull, 0, len(parts))
	for _, p := range parts {
		pts, tris := convexHull(p)
		if len(pts) == 0 {
			continue
		}
		hulls = append(hulls, Hull{Points: pts, Triangles: tris})
	}
	return hulls, nil
}

// referencedPoints collects the deduplicated positions used by at least
// one triangle, in first-use order.
func referencedPoints(m *mesh.BufMesh) [][3]float32 {
	seen := make(map[[3]float32]struct{}, len(m.Positions))
	var pts [][3]float32
	for _, tri := range m.Triangles {
		for _, idx := range tri {
			p := m.Positions[idx]
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pts = append(pts, p)
		}
	}
	return pts
}

func bounds(pts [][3]float32) (lo, hi [3]float32) {
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		for a := 0; a < 3; a++ {
			if p[a] < lo[a] {
				lo[a] = p[a]
			}
			if p[a] > hi[a] {
				hi[a] = p[a]
			}
		}
	}
	return lo, hi
}

func longestExtent(pts [][3]float32) float32 {
	if len(pts) < 2 {
		return 0
	}
	lo, hi := bounds(pts)
	var e float32
	for a := 0; a < 3; a++ {
		if d := hi[a] - lo[a]; d > e {
			e = d
		}
	}
	return e
}

// splitLongestAxis partitions the points into two halves at the median
// of the longest axis, sorting with a full lexicographic tie-break so
// the partition is deterministic.
func splitLongestAxis(pts [][3]float32) (lo, hi [][3]float32) {
	blo, bhi := bounds(pts)
	axis := 0
	for a := 1; a < 3; a++ {
		if bhi[a]-blo[a] > bhi[axis]-blo[axis] {
			axis = a
		}
	}
	sorted := make([][3]float32, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][axis] != sorted[j][axis] {
			return sorted[i][axis] < sorted[j][axis]
		}
		return lessPoint(sorted[i], sorted[j])
	})
	h := len(sorted) / 2
	return sorted[:h], sorted[h:]
}

func lessPoint(a, b [3]float32) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
