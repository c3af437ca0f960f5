// Package mesh provides the indexed triangle mesh format produced by the
// meshing pipeline and a half-edge topology used to simplify it by merging
// coplanar faces.
package mesh

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// BufMesh is an indexed triangle mesh: per-vertex positions and unit
// normals plus triangles as index triples. The zero value is the empty
// mesh, which is a valid result (a region with no surface).
type BufMesh struct {
	Positions [][3]float32 `msgpack:"positions"`
	Normals   [][3]float32 `msgpack:"normals"`
	Triangles [][3]uint32  `msgpack:"triangles"`
}

// degenerateArea is the area below which a triangle is considered
// degenerate and rejected by Validate.
const degenerateArea = 1e-12

// Empty reports whether the mesh has no triangles.
func (m *BufMesh) Empty() bool { return len(m.Triangles) == 0 }

// Validate checks the indexed-mesh invariants: every triangle index in
// range, one normal per position, and no degenerate triangles.
func (m *BufMesh) Validate() error {
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("have %d normals for %d positions", len(m.Normals), len(m.Positions))
	}
	n := uint32(len(m.Positions))
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx >= n {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, idx, n)
			}
		}
		if m.triangleArea(tri) <= degenerateArea {
			return fmt.Errorf("triangle %d is degenerate", i)
		}
	}
	return nil
}

func (m *BufMesh) triangleArea(tri [3]uint32) float32 {
	a, b, c := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
	e1 := sub3(b, a)
	e2 := sub3(c, a)
	return 0.5 * norm3(cross3(e1, e2))
}

// Position returns vertex i as an r3 vector.
func (m *BufMesh) Position(i uint32) r3.Vec {
	p := m.Positions[i]
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// Transform applies an affine map to every position. Normals are left
// untouched: the pipeline only uses this for the axis-aligned
// denormalization back to world space, which preserves directions up to
// per-axis scaling absorbed into the gradient evaluation.
func (m *BufMesh) Transform(f func(r3.Vec) r3.Vec) {
	for i := range m.Positions {
		p := f(m.Position(uint32(i)))
		m.Positions[i] = [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
	}
}

// Equal reports bit-exact equality of two meshes.
func (m *BufMesh) Equal(o *BufMesh) bool {
	if len(m.Positions) != len(o.Positions) ||
		len(m.Normals) != len(o.Normals) ||
		len(m.Triangles) != len(o.Triangles) {
		return false
	}
	for i := range m.Positions {
		if m.Positions[i] != o.Positions[i] {
			return false
		}
	}
	for i := range m.Normals {
		if m.Normals[i] != o.Normals[i] {
			return false
		}
	}
	for i := range m.Triangles {
		if m.Triangles[i] != o.Triangles[i] {
			return false
		}
	}
	return true
}

var errEmptyMesh = errors.New("empty triangle mesh")

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func scale3(k float32, a [3]float32) [3]float32 {
	return [3]float32{k * a[0], k * a[1], k * a[2]}
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm3(a [3]float32) float32 {
	return math32.Sqrt(dot3(a, a))
}

func unit3(a [3]float32) ([3]float32, bool) {
	n := norm3(a)
	if n == 0 || math32.IsNaN(n) || math32.IsInf(n, 0) {
		return [3]float32{}, false
	}
	return scale3(1/n, a), true
}
