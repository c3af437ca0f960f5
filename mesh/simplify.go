package mesh

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// NormalTol is the tolerance for coplanar face grouping: two adjacent
// faces merge when their unit normals agree to within this value.
const NormalTol = 1e-4

// Simplify merges coplanar adjacent faces of a mesh and retriangulates the
// merged polygons, returning a mesh with the same surface and usually far
// fewer triangles. Groups whose retriangulation would grow the triangle
// count are left untouched, so the call never makes a mesh worse, and the
// pass is idempotent: simplifying a simplified mesh is a no-op.
func Simplify(m *BufMesh) (*BufMesh, error) {
	if m.Empty() {
		return &BufMesh{}, nil
	}
	h, err := FromBufMesh(m)
	if err != nil {
		return nil, err
	}
	h.DedupVertices()
	h.PruneUnreferenced()
	h.MergeCoplanar(NormalTol)
	return h.ToBufMesh(), nil
}

// DedupVertices rewrites edges so that vertices with bit-equal data share
// one canonical key (the lowest), then tombstones the duplicates. Faces
// collapsed to zero-length edges by the rewrite are deleted.
func (h *HalfEdgeMesh) DedupVertices() {
	canon := make(map[VertexData]VertexID, len(h.verts))
	remap := make([]VertexID, len(h.verts))
	for vi := range h.verts {
		v := &h.verts[vi]
		if v.dead {
			remap[vi] = NoVertex
			continue
		}
		if first, ok := canon[v.data]; ok {
			remap[vi] = first
			v.dead = true
		} else {
			canon[v.data] = VertexID(vi)
			remap[vi] = VertexID(vi)
		}
	}
	for fi := range h.faces {
		f := &h.faces[fi]
		if f.dead {
			continue
		}
		collapsed := false
		for _, eid := range f.edges {
			e := &h.edges[eid]
			o, t := remap[e.origin], remap[e.target]
			if o == t {
				collapsed = true
			}
		}
		if collapsed {
			h.deleteFace(FaceID(fi))
		}
	}
	// Rewrite surviving edges.
	for ei := range h.edges {
		e := &h.edges[ei]
		if e.dead {
			continue
		}
		e.origin = remap[e.origin]
		e.target = remap[e.target]
	}
	// Rebuild the directed-pair index face by face. Deduplication can
	// leave two live faces over the same directed pair (a bit-equal
	// fin); keeping both would break the twin involution, so the later
	// face is dropped.
	h.pairs = make(map[[2]VertexID]EdgeID, len(h.pairs))
	for fi := range h.faces {
		f := &h.faces[fi]
		if f.dead {
			continue
		}
		dup := false
		for _, eid := range f.edges {
			e := &h.edges[eid]
			if _, taken := h.pairs[[2]VertexID{e.origin, e.target}]; taken {
				dup = true
				break
			}
		}
		if dup {
			for _, eid := range f.edges {
				h.edges[eid].dead = true
			}
			f.dead = true
			continue
		}
		for _, eid := range f.edges {
			e := &h.edges[eid]
			h.pairs[[2]VertexID{e.origin, e.target}] = eid
		}
	}
	// Relink twins under the canonical keys.
	for ei := range h.edges {
		e := &h.edges[ei]
		if e.dead {
			continue
		}
		if rev, ok := h.pairs[[2]VertexID{e.target, e.origin}]; ok {
			e.twin = rev
		} else {
			e.twin = NoEdge
		}
	}
}

// PruneUnreferenced tombstones vertices no live edge touches.
func (h *HalfEdgeMesh) PruneUnreferenced() {
	used := make([]bool, len(h.verts))
	for ei := range h.edges {
		e := &h.edges[ei]
		if e.dead {
			continue
		}
		used[e.origin] = true
		used[e.target] = true
	}
	for vi := range h.verts {
		if !used[vi] {
			h.verts[vi].dead = true
		}
	}
}

// faceNormal computes the unit normal of a face loop by Newell's formula.
func (h *HalfEdgeMesh) faceNormal(fid FaceID) ([3]float32, bool) {
	f := &h.faces[fid]
	var n [3]float32
	for _, eid := range f.edges {
		a := h.verts[h.edges[eid].origin].data.P
		b := h.verts[h.edges[eid].target].data.P
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	return unit3(n)
}

// MergeCoplanar flood-fills groups of twin-adjacent faces whose normals
// agree with the group seed within tol, then replaces each group of two or
// more faces by a retriangulation of its outer boundary polygon. A group
// is skipped when its boundary is not a single loop, when ear clipping
// fails, or when the retriangulation has more triangles than the group.
func (h *HalfEdgeMesh) MergeCoplanar(tol float32) {
	normals := make(map[FaceID][3]float32, len(h.faces))
	var order []FaceID
	for _, fid := range h.Faces() {
		if n, ok := h.faceNormal(fid); ok {
			normals[fid] = n
			order = append(order, fid)
		}
	}
	grouped := make(map[FaceID]bool, len(order))
	for _, seed := range order {
		if grouped[seed] {
			continue
		}
		group := h.floodGroup(seed, normals, grouped, tol)
		if len(group) >= 2 {
			h.mergeGroup(group, normals[seed])
		}
	}
}

// floodGroup grows a coplanar group from seed across twin edges. Faces
// join when their normal agrees with the seed normal within tol; frontier
// faces are visited in ascending key order so grouping is deterministic.
func (h *HalfEdgeMesh) floodGroup(seed FaceID, normals map[FaceID][3]float32, grouped map[FaceID]bool, tol float32) []FaceID {
	ns := normals[seed]
	group := []FaceID{seed}
	grouped[seed] = true
	frontier := []FaceID{seed}
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })
		fid := frontier[0]
		frontier = frontier[1:]
		for _, eid := range h.faces[fid].edges {
			tw := h.edges[eid].twin
			if tw == NoEdge {
				continue
			}
			nb := h.edges[tw].face
			if grouped[nb] {
				continue
			}
			nn, ok := normals[nb]
			if !ok || dot3(ns, nn) < 1-tol {
				continue
			}
			grouped[nb] = true
			group = append(group, nb)
			frontier = append(frontier, nb)
		}
	}
	sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })
	return group
}

// mergeGroup replaces a coplanar face group by a retriangulated boundary
// polygon, or leaves it untouched when that would not help.
func (h *HalfEdgeMesh) mergeGroup(group []FaceID, normal [3]float32) {
	inGroup := make(map[FaceID]bool, len(group))
	var triCount int
	for _, fid := range group {
		inGroup[fid] = true
		triCount += len(h.faces[fid].edges) - 2
	}
	loop, ok := h.boundaryLoop(group, inGroup)
	if !ok {
		return
	}
	proj := h.projectLoop(loop, normal)
	// Canonical rotation: start the loop at its projected lexicographic
	// minimum so the triangulation depends only on geometry, not on which
	// edge the boundary walk happened to begin with. This is what makes
	// repeated simplification a fixed point. The minimum is an extreme
	// point of the projected polygon, so the collinear filter below can
	// never remove it.
	rot := 0
	for i := 1; i < len(proj); i++ {
		if projLess(proj[i], proj[rot]) ||
			(proj[i] == proj[rot] && vertexDataLess(h.verts[loop[i]].data, h.verts[loop[rot]].data)) {
			rot = i
		}
	}
	loop = append(loop[rot:], loop[:rot]...)
	proj = append(proj[rot:], proj[:rot]...)
	loop, proj = dropCollinear(loop, proj)
	if len(loop) < 3 {
		return
	}
	tris := earClip(proj)
	if tris == nil || len(tris) > triCount {
		return
	}
	if h.sameTriangles(group, loop, tris) {
		return // group is already this exact triangulation
	}
	// Pre-flight the directed pairs of the replacement so the rewrite
	// cannot fail halfway: every new pair must be free once the group's
	// own edges are released.
	freed := make(map[[2]VertexID]bool)
	for _, fid := range group {
		for _, eid := range h.faces[fid].edges {
			e := &h.edges[eid]
			freed[[2]VertexID{e.origin, e.target}] = true
		}
	}
	newPairs := make(map[[2]VertexID]bool, 3*len(tris))
	for _, t := range tris {
		for i := 0; i < 3; i++ {
			o := loop[t[i]]
			d := loop[t[(i+1)%3]]
			key := [2]VertexID{o, d}
			if o == d || newPairs[key] {
				return
			}
			if _, taken := h.pairs[key]; taken && !freed[key] {
				return
			}
			newPairs[key] = true
		}
	}
	for _, fid := range group {
		h.deleteFace(fid)
	}
	for _, t := range tris {
		h.addFace([]VertexID{loop[t[0]], loop[t[1]], loop[t[2]]})
	}
}

func projLess(a, b r2.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// dropCollinear removes boundary vertices that sit exactly on the
// straight segment between their neighbors, so a merged face spans them
// instead of fanning sliver triangles off every one. Neighboring faces
// outside the group keep referencing a removed vertex; the resulting
// T junction lies on the segment, so the surface itself is unchanged.
func dropCollinear(loop []VertexID, proj []r2.Vec) ([]VertexID, []r2.Vec) {
	for changed := true; changed && len(loop) > 3; {
		changed = false
		for i := 0; i < len(loop) && len(loop) > 3; {
			n := len(loop)
			a := proj[(i+n-1)%n]
			b := proj[i]
			c := proj[(i+1)%n]
			if cross2(a, b, c) == 0 {
				loop = append(loop[:i], loop[i+1:]...)
				proj = append(proj[:i], proj[i+1:]...)
				changed = true
			} else {
				i++
			}
		}
	}
	return loop, proj
}

// sameTriangles reports whether the proposed retriangulation is exactly
// the set of triangles the group already holds, up to cyclic rotation.
func (h *HalfEdgeMesh) sameTriangles(group []FaceID, loop []VertexID, tris [][3]int) bool {
	canon := func(t [3]VertexID) [3]VertexID {
		m := 0
		if t[1] < t[m] {
			m = 1
		}
		if t[2] < t[m] {
			m = 2
		}
		return [3]VertexID{t[m], t[(m+1)%3], t[(m+2)%3]}
	}
	have := make(map[[3]VertexID]bool, len(group))
	for _, fid := range group {
		e := h.faces[fid].edges
		if len(e) != 3 {
			return false
		}
		have[canon([3]VertexID{h.edges[e[0]].origin, h.edges[e[1]].origin, h.edges[e[2]].origin})] = true
	}
	if len(have) != len(tris) {
		return false
	}
	for _, t := range tris {
		if !have[canon([3]VertexID{loop[t[0]], loop[t[1]], loop[t[2]]})] {
			return false
		}
	}
	return true
}

func vertexDataLess(a, b VertexData) bool {
	for i := 0; i < 3; i++ {
		if a.P[i] != b.P[i] {
			return a.P[i] < b.P[i]
		}
	}
	for i := 0; i < 3; i++ {
		if a.N[i] != b.N[i] {
			return a.N[i] < b.N[i]
		}
	}
	return false
}

// boundaryLoop walks the single outer boundary of a face group and returns
// its vertices in face winding order. Groups with holes (more than one
// boundary cycle) report not-ok.
func (h *HalfEdgeMesh) boundaryLoop(group []FaceID, inGroup map[FaceID]bool) ([]VertexID, bool) {
	interior := func(eid EdgeID) bool {
		tw := h.edges[eid].twin
		return tw != NoEdge && inGroup[h.edges[tw].face]
	}
	var boundary int
	start := NoEdge
	for _, fid := range group {
		for _, eid := range h.faces[fid].edges {
			if !interior(eid) {
				boundary++
				if start == NoEdge || eid < start {
					start = eid
				}
			}
		}
	}
	if start == NoEdge {
		return nil, false // closed surface, nothing to merge against
	}
	loop := make([]VertexID, 0, boundary)
	eid := start
	for {
		loop = append(loop, h.edges[eid].origin)
		// Advance past interior fans to the next boundary edge sharing
		// this target vertex.
		next := h.edges[eid].next
		for interior(next) {
			next = h.edges[h.edges[next].twin].next
		}
		eid = next
		if eid == start {
			break
		}
		if len(loop) > boundary {
			return nil, false
		}
	}
	if len(loop) != boundary {
		return nil, false // more than one boundary cycle
	}
	return loop, true
}

// projectLoop maps boundary vertices onto the plane orthogonal to normal,
// using a right-handed basis so loop winding survives the projection.
func (h *HalfEdgeMesh) projectLoop(loop []VertexID, normal [3]float32) []r2.Vec {
	n := r3.Vec{X: float64(normal[0]), Y: float64(normal[1]), Z: float64(normal[2])}
	// Smallest normal component picks the steadiest axis to build from.
	axis := r3.Vec{X: 1}
	ax, ay, az := abs64(n.X), abs64(n.Y), abs64(n.Z)
	if ay <= ax && ay <= az {
		axis = r3.Vec{Y: 1}
	} else if az <= ax && az <= ay {
		axis = r3.Vec{Z: 1}
	}
	u := r3.Unit(r3.Cross(axis, n))
	v := r3.Cross(n, u)
	out := make([]r2.Vec, len(loop))
	for i, vid := range loop {
		p := h.verts[vid].data.P
		w := r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		out[i] = r2.Vec{X: r3.Dot(w, u), Y: r3.Dot(w, v)}
	}
	return out
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ToBufMesh rebuilds an indexed triangle mesh from the live topology.
// Faces with more than three sides are fan-triangulated; zero-area
// triangles are dropped. Vertices are emitted in first-use order so the
// result is deterministic.
func (h *HalfEdgeMesh) ToBufMesh() *BufMesh {
	out := &BufMesh{}
	remap := make(map[VertexID]uint32, len(h.verts))
	lookup := func(vid VertexID) uint32 {
		if idx, ok := remap[vid]; ok {
			return idx
		}
		idx := uint32(len(out.Positions))
		d := h.verts[vid].data
		out.Positions = append(out.Positions, d.P)
		out.Normals = append(out.Normals, d.N)
		remap[vid] = idx
		return idx
	}
	for _, fid := range h.Faces() {
		edges := h.faces[fid].edges
		v0 := h.edges[edges[0]].origin
		for i := 1; i+1 < len(edges); i++ {
			a := h.edges[edges[i]].origin
			b := h.edges[edges[i]].target
			tri := [3]uint32{lookup(v0), lookup(a), lookup(b)}
			if out.triangleArea(tri) <= degenerateArea {
				continue
			}
			out.Triangles = append(out.Triangles, tri)
		}
	}
	return out
}
