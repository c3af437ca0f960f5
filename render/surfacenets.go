// Package render extracts triangle meshes from compiled scalar fields
// using the surface nets algorithm: one vertex per sign-change cell, one
// quad per sign-change grid edge.
package render

import (
	"errors"
	"fmt"

	"github.com/johnbchron/mage-corp-sub000/field/eval"
	"github.com/johnbchron/mage-corp-sub000/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxGridSamples bounds the sample grid so a bad detail request cannot
// exhaust memory: (nx+1)(ny+1)(nz+1) may not exceed it.
const MaxGridSamples = 1 << 27 // one gigabyte of float64 samples

// ErrGridTooLarge reports a sample grid over the MaxGridSamples budget.
var ErrGridTooLarge = errors.New("sample grid exceeds size budget")

// noCell marks grid cells that generate no vertex.
const noCell = -1

// SurfaceNets samples the tape on a regular (nx+1)×(ny+1)×(nz+1) grid
// spanning [-1,1]³ inclusive and extracts the zero level set as an indexed
// triangle mesh in the same coordinates. Winding follows the field sign so
// triangle normals point from negative (inside) to positive (outside). A
// grid of uniform sign produces an empty mesh and no error.
func SurfaceNets(t *eval.Tape, nx, ny, nz int) (*mesh.BufMesh, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("voxel counts must be positive, got %dx%dx%d", nx, ny, nz)
	}
	sx, sy, sz := nx+1, ny+1, nz+1
	// Checked factor by factor so huge counts cannot overflow the product.
	if sx > MaxGridSamples || sy > MaxGridSamples/sx || sz > MaxGridSamples/(sx*sy) {
		return nil, fmt.Errorf("%w: %dx%dx%d samples", ErrGridTooLarge, sx, sy, sz)
	}
	nsamples := sx * sy * sz
	g := grid{nx: nx, ny: ny, nz: nz}
	xs := make([]float64, nsamples)
	ys := make([]float64, nsamples)
	zs := make([]float64, nsamples)
	for i := 0; i < sx; i++ {
		x := -1 + 2*float64(i)/float64(nx)
		for j := 0; j < sy; j++ {
			y := -1 + 2*float64(j)/float64(ny)
			base := (i*sy + j) * sz
			for k := 0; k < sz; k++ {
				xs[base+k] = x
				ys[base+k] = y
				zs[base+k] = -1 + 2*float64(k)/float64(nz)
			}
		}
	}
	vals := make([]float64, nsamples)
	if err := t.Eval(xs, ys, zs, vals); err != nil {
		return nil, err
	}
	g.vals = vals
	g.pos = func(i, j, k int) r3.Vec {
		idx := g.sample(i, j, k)
		return r3.Vec{X: xs[idx], Y: ys[idx], Z: zs[idx]}
	}
	// Sample buffers stay alive through extraction but are dropped before
	// the gradient pass, which allocates per-vertex buffers instead.
	m := g.extract()
	xs, ys, zs, vals = nil, nil, nil, nil
	g.vals = nil
	if err := vertexNormals(t, m); err != nil {
		return nil, err
	}
	return m, nil
}

type grid struct {
	nx, ny, nz int
	vals       []float64
	pos        func(i, j, k int) r3.Vec
}

func (g *grid) sample(i, j, k int) int {
	return (i*(g.ny+1)+j)*(g.nz+1) + k
}

func (g *grid) cell(i, j, k int) int {
	return (i*g.ny+j)*g.nz + k
}

// inside is the sign predicate: negative field values are inside the
// surface, zero counts as outside.
func inside(v float64) bool { return v < 0 }

// cube edge list: pairs of corner offsets.
var cubeEdges = [12][2][3]int{
	{{0, 0, 0}, {1, 0, 0}}, {{0, 1, 0}, {1, 1, 0}}, {{0, 0, 1}, {1, 0, 1}}, {{0, 1, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 1, 0}}, {{1, 0, 0}, {1, 1, 0}}, {{0, 0, 1}, {0, 1, 1}}, {{1, 0, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 0, 1}}, {{1, 0, 0}, {1, 0, 1}}, {{0, 1, 0}, {0, 1, 1}}, {{1, 1, 0}, {1, 1, 1}},
}

func (g *grid) extract() *mesh.BufMesh {
	cellVert := make([]int32, g.nx*g.ny*g.nz)
	var verts []r3.Vec
	for i := 0; i < g.nx; i++ {
		for j := 0; j < g.ny; j++ {
			for k := 0; k < g.nz; k++ {
				cellVert[g.cell(i, j, k)] = noCell
				v, ok := g.cellVertex(i, j, k)
				if !ok {
					continue
				}
				cellVert[g.cell(i, j, k)] = int32(len(verts))
				verts = append(verts, v)
			}
		}
	}
	m := &mesh.BufMesh{}
	if len(verts) == 0 {
		return m // uniform sign, empty mesh
	}
	m.Positions = make([][3]float32, len(verts))
	for i, v := range verts {
		m.Positions[i] = [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
	}
	g.emitQuads(m, cellVert)
	return m
}

// cellVertex places the cell's vertex at the centroid of its edge-surface
// intersections, reporting false for cells with uniform corner signs.
func (g *grid) cellVertex(i, j, k int) (r3.Vec, bool) {
	var corners [2][2][2]float64
	allIn, allOut := true, true
	for _, e := range [8][3]int{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}} {
		v := g.vals[g.sample(i+e[0], j+e[1], k+e[2])]
		corners[e[0]][e[1]][e[2]] = v
		if inside(v) {
			allOut = false
		} else {
			allIn = false
		}
	}
	if allIn || allOut {
		return r3.Vec{}, false
	}
	var sum r3.Vec
	var n int
	for _, e := range cubeEdges {
		a, b := e[0], e[1]
		va := corners[a[0]][a[1]][a[2]]
		vb := corners[b[0]][b[1]][b[2]]
		if inside(va) == inside(vb) {
			continue
		}
		t := va / (va - vb) // linear zero crossing, denominators never zero here
		pa := g.pos(i+a[0], j+a[1], k+a[2])
		pb := g.pos(i+b[0], j+b[1], k+b[2])
		sum = r3.Add(sum, r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa))))
		n++
	}
	return r3.Scale(1/float64(n), sum), true
}

// emitQuads walks every interior grid edge and, on a sign change, emits a
// quad joining the four incident cell vertices as two triangles.
func (g *grid) emitQuads(m *mesh.BufMesh, cellVert []int32) {
	quad := func(a, b, c, d int32, flip bool) {
		if flip {
			a, b, c, d = d, c, b, a
		}
		for _, tri := range [2][3]int32{{a, b, c}, {a, c, d}} {
			p0, p1, p2 := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
			if p0 == p1 || p1 == p2 || p2 == p0 {
				continue // degenerate, coincident cell vertices
			}
			m.Triangles = append(m.Triangles, [3]uint32{uint32(tri[0]), uint32(tri[1]), uint32(tri[2])})
		}
	}
	// X-directed edges: incident cells vary in y,z. Quad order is CCW
	// viewed from +x, so an inside near sample keeps the normal at +x.
	for i := 0; i < g.nx; i++ {
		for j := 1; j < g.ny; j++ {
			for k := 1; k < g.nz; k++ {
				va := g.vals[g.sample(i, j, k)]
				vb := g.vals[g.sample(i+1, j, k)]
				if inside(va) == inside(vb) {
					continue
				}
				quad(
					cellVert[g.cell(i, j-1, k-1)],
					cellVert[g.cell(i, j, k-1)],
					cellVert[g.cell(i, j, k)],
					cellVert[g.cell(i, j-1, k)],
					!inside(va),
				)
			}
		}
	}
	// Y-directed edges: CCW viewed from +y is (z,x) order.
	for j := 0; j < g.ny; j++ {
		for i := 1; i < g.nx; i++ {
			for k := 1; k < g.nz; k++ {
				va := g.vals[g.sample(i, j, k)]
				vb := g.vals[g.sample(i, j+1, k)]
				if inside(va) == inside(vb) {
					continue
				}
				quad(
					cellVert[g.cell(i-1, j, k-1)],
					cellVert[g.cell(i-1, j, k)],
					cellVert[g.cell(i, j, k)],
					cellVert[g.cell(i, j, k-1)],
					!inside(va),
				)
			}
		}
	}
	// Z-directed edges: CCW viewed from +z is (x,y) order.
	for k := 0; k < g.nz; k++ {
		for i := 1; i < g.nx; i++ {
			for j := 1; j < g.ny; j++ {
				va := g.vals[g.sample(i, j, k)]
				vb := g.vals[g.sample(i, j, k+1)]
				if inside(va) == inside(vb) {
					continue
				}
				quad(
					cellVert[g.cell(i-1, j-1, k)],
					cellVert[g.cell(i, j-1, k)],
					cellVert[g.cell(i, j, k)],
					cellVert[g.cell(i-1, j, k)],
					!inside(va),
				)
			}
		}
	}
}

// vertexNormals fills per-vertex normals from one bulk gradient
// evaluation at the vertex positions. Vertices whose gradient vanishes or
// is non-finite fall back to the average of their incident face normals.
func vertexNormals(t *eval.Tape, m *mesh.BufMesh) error {
	n := len(m.Positions)
	m.Normals = make([][3]float32, n)
	if n == 0 {
		return nil
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := range m.Positions {
		p := m.Positions[i]
		xs[i] = float64(p[0])
		ys[i] = float64(p[1])
		zs[i] = float64(p[2])
	}
	grads := make([]r3.Vec, n)
	if err := t.EvalGradient(xs, ys, zs, grads); err != nil {
		return err
	}
	var missing []int
	for i, g := range grads {
		norm := r3.Norm(g)
		if norm > 0 && !isBad(norm) {
			u := r3.Scale(1/norm, g)
			m.Normals[i] = [3]float32{float32(u.X), float32(u.Y), float32(u.Z)}
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		faceAverageNormals(m, missing)
	}
	return nil
}

func isBad(v float64) bool {
	return v != v || v > 1e300 || v < -1e300
}

// faceAverageNormals fills the listed vertices with the normalized sum of
// their incident triangle normals.
func faceAverageNormals(m *mesh.BufMesh, missing []int) {
	want := make(map[int]r3.Vec, len(missing))
	for _, i := range missing {
		want[i] = r3.Vec{}
	}
	for _, tri := range m.Triangles {
		needed := false
		for _, idx := range tri {
			if _, ok := want[int(idx)]; ok {
				needed = true
				break
			}
		}
		if !needed {
			continue
		}
		a := m.Position(tri[0])
		fn := r3.Cross(r3.Sub(m.Position(tri[1]), a), r3.Sub(m.Position(tri[2]), a))
		for _, idx := range tri {
			if acc, ok := want[int(idx)]; ok {
				want[int(idx)] = r3.Add(acc, fn)
			}
		}
	}
	for _, i := range missing {
		sum := want[i]
		norm := r3.Norm(sum)
		if norm == 0 {
			continue // isolated vertex keeps the zero normal
		}
		u := r3.Scale(1/norm, sum)
		m.Normals[i] = [3]float32{float32(u.X), float32(u.Y), float32(u.Z)}
	}
}
