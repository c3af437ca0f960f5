package mesh

import (
	"testing"
)

// gridFace appends an n×n subdivided square face to m. The face spans
// from origin along edge vectors u and v (full edge length), with every
// vertex normal set to the face normal so flat-face grouping applies.
func gridFace(m *BufMesh, origin, u, v, normal [3]float32, n int) {
	base := uint32(len(m.Positions))
	step := 1 / float32(n)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			p := [3]float32{
				origin[0] + u[0]*float32(i)*step + v[0]*float32(j)*step,
				origin[1] + u[1]*float32(i)*step + v[1]*float32(j)*step,
				origin[2] + u[2]*float32(i)*step + v[2]*float32(j)*step,
			}
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, normal)
		}
	}
	at := func(i, j int) uint32 { return base + uint32(j*(n+1)+i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			m.Triangles = append(m.Triangles,
				[3]uint32{at(i, j), at(i+1, j), at(i+1, j+1)},
				[3]uint32{at(i, j), at(i+1, j+1), at(i, j+1)},
			)
		}
	}
}

// subdividedCube is the surface of the cube [-0.5,0.5]³ with each face
// split into an n×n grid, faces as disjoint vertex islands.
func subdividedCube(n int) *BufMesh {
	m := &BufMesh{}
	gridFace(m, [3]float32{0.5, -0.5, -0.5}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}, [3]float32{1, 0, 0}, n)
	gridFace(m, [3]float32{-0.5, -0.5, -0.5}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}, [3]float32{-1, 0, 0}, n)
	gridFace(m, [3]float32{-0.5, 0.5, -0.5}, [3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, n)
	gridFace(m, [3]float32{-0.5, -0.5, -0.5}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, -1, 0}, n)
	gridFace(m, [3]float32{-0.5, -0.5, 0.5}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}, n)
	gridFace(m, [3]float32{-0.5, -0.5, -0.5}, [3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}, n)
	return m
}

// annulus is a flat square ring in the z=0 plane: outer square ±1,
// inner hole ±0.5, eight coplanar triangles with two boundary loops.
func annulus() *BufMesh {
	m := &BufMesh{
		Positions: [][3]float32{
			{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}, // outer
			{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}, // inner
		},
	}
	m.Normals = make([][3]float32, len(m.Positions))
	for i := range m.Normals {
		m.Normals[i] = [3]float32{0, 0, 1}
	}
	for s := 0; s < 4; s++ {
		o0, o1 := uint32(s), uint32((s+1)%4)
		i0, i1 := uint32(4+s), uint32(4+(s+1)%4)
		m.Triangles = append(m.Triangles,
			[3]uint32{o0, o1, i1},
			[3]uint32{o0, i1, i0},
		)
	}
	return m
}

func TestSimplifyCube(t *testing.T) {
	m := subdividedCube(2)
	if len(m.Triangles) != 48 {
		t.Fatalf("fixture has %d triangles, want 48", len(m.Triangles))
	}
	s, err := Simplify(m)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid simplified mesh: %v", err)
	}
	if len(s.Triangles) > 24 {
		t.Fatalf("simplified cube has %d triangles, want at most 24", len(s.Triangles))
	}
	// Every vertex must stay on the cube surface.
	for i, p := range s.Positions {
		on := false
		for a := 0; a < 3; a++ {
			if p[a] == 0.5 || p[a] == -0.5 {
				on = true
			}
		}
		if !on {
			t.Fatalf("vertex %d at %v left the cube surface", i, p)
		}
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	for name, m := range map[string]*BufMesh{
		"cube":    subdividedCube(2),
		"annulus": annulus(),
		"cube4":   subdividedCube(4),
	} {
		s1, err := Simplify(m)
		if err != nil {
			t.Fatalf("%s: first Simplify: %v", name, err)
		}
		s2, err := Simplify(s1)
		if err != nil {
			t.Fatalf("%s: second Simplify: %v", name, err)
		}
		if !s1.Equal(s2) {
			t.Fatalf("%s: simplify is not idempotent: %d vs %d triangles",
				name, len(s1.Triangles), len(s2.Triangles))
		}
	}
}

func TestSimplifyLeavesHoleGroupsAlone(t *testing.T) {
	m := annulus()
	s, err := Simplify(m)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	// The ring's merge group has two boundary loops so it must be kept
	// triangle for triangle.
	if len(s.Triangles) != len(m.Triangles) {
		t.Fatalf("annulus changed from %d to %d triangles", len(m.Triangles), len(s.Triangles))
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid mesh: %v", err)
	}
}

func TestSimplifyEmpty(t *testing.T) {
	s, err := Simplify(&BufMesh{})
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if !s.Empty() {
		t.Fatal("empty in, empty out")
	}
}

func TestSimplifyLeavesCurvedSurfaceAlone(t *testing.T) {
	// A tetrahedron has no two coplanar faces; simplification must keep
	// all four triangles.
	m := &BufMesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		},
		Triangles: [][3]uint32{
			{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2},
		},
	}
	m.Normals = make([][3]float32, len(m.Positions))
	s, err := Simplify(m)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if len(s.Triangles) != 4 {
		t.Fatalf("tetrahedron changed to %d triangles", len(s.Triangles))
	}
}

func TestDedupVertices(t *testing.T) {
	// Two triangles sharing an edge, written with six separate but
	// bit-identical vertex entries.
	m := &BufMesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		},
		Triangles: [][3]uint32{{0, 1, 2}, {3, 4, 5}},
	}
	m.Normals = make([][3]float32, len(m.Positions))
	for i := range m.Normals {
		m.Normals[i] = [3]float32{0, 0, 1}
	}
	h, err := FromBufMesh(m)
	if err != nil {
		t.Fatalf("FromBufMesh: %v", err)
	}
	h.DedupVertices()
	h.PruneUnreferenced()
	if err := h.Validate(); err != nil {
		t.Fatalf("invalid after dedup: %v", err)
	}
	out := h.ToBufMesh()
	if len(out.Positions) != 4 {
		t.Fatalf("got %d positions after dedup, want 4", len(out.Positions))
	}
	// The shared edge must now be twinned.
	twinned := 0
	for _, fid := range h.Faces() {
		for _, eid := range h.FaceEdges(fid) {
			if h.Twin(eid) != NoEdge {
				twinned++
			}
		}
	}
	if twinned != 2 {
		t.Fatalf("got %d twinned half-edges, want 2", twinned)
	}
}

func TestDedupDropsDuplicateFace(t *testing.T) {
	// The same triangle twice, same winding, through distinct vertex
	// entries with bit-identical data. After dedup both faces would
	// cover the same directed edges; one must go.
	m := &BufMesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		},
		Triangles: [][3]uint32{{0, 1, 2}, {3, 4, 5}},
	}
	m.Normals = make([][3]float32, len(m.Positions))
	for i := range m.Normals {
		m.Normals[i] = [3]float32{0, 0, 1}
	}
	h, err := FromBufMesh(m)
	if err != nil {
		t.Fatalf("FromBufMesh: %v", err)
	}
	h.DedupVertices()
	h.PruneUnreferenced()
	if err := h.Validate(); err != nil {
		t.Fatalf("invalid after dedup: %v", err)
	}
	if got := len(h.Faces()); got != 1 {
		t.Fatalf("got %d faces after dedup, want 1", got)
	}
	out := h.ToBufMesh()
	if len(out.Triangles) != 1 || len(out.Positions) != 3 {
		t.Fatalf("got %d triangles over %d positions, want 1 over 3",
			len(out.Triangles), len(out.Positions))
	}
}
