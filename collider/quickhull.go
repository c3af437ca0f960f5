package collider

import (
	"math"
	"sort"
)

// convexHull returns the extreme points of the set in lexicographic
// order together with the outward-wound boundary triangles indexing
// them. Degenerate inputs (fewer than four points, or all points
// collinear or coplanar within tolerance) return the deduplicated input
// and no triangles, which is still a valid point hull for a collider.
func convexHull(pts [][3]float32) ([][3]float32, [][3]uint32) {
	uniq := dedupPoints(pts)
	if len(uniq) < 4 {
		return sortedCopy(uniq), nil
	}
	p := make([][3]float64, len(uniq))
	for i, q := range uniq {
		p[i] = [3]float64{float64(q[0]), float64(q[1]), float64(q[2])}
	}
	h := hullBuilder{pts: p, eps: hullEpsilon(p)}
	if !h.initialSimplex() {
		return sortedCopy(uniq), nil
	}
	h.run()
	keep := make(map[int]struct{})
	for _, f := range h.faces {
		if f.dead {
			continue
		}
		keep[f.a] = struct{}{}
		keep[f.b] = struct{}{}
		keep[f.c] = struct{}{}
	}
	order := make([]int, 0, len(keep))
	for i := range keep {
		order = append(order, i)
	}
	sort.Slice(order, func(i, j int) bool { return lessPoint(uniq[order[i]], uniq[order[j]]) })
	remap := make(map[int]uint32, len(order))
	out := make([][3]float32, len(order))
	for ni, oi := range order {
		out[ni] = uniq[oi]
		remap[oi] = uint32(ni)
	}
	var tris [][3]uint32
	for _, f := range h.faces {
		if f.dead {
			continue
		}
		tris = append(tris, rotTri([3]uint32{remap[f.a], remap[f.b], remap[f.c]}))
	}
	sort.Slice(tris, func(i, j int) bool { return lessTri(tris[i], tris[j]) })
	return out, tris
}

// rotTri rotates a triangle so its smallest index leads, preserving
// winding, so hull output is deterministic.
func rotTri(t [3]uint32) [3]uint32 {
	if t[1] < t[0] && t[1] <= t[2] {
		return [3]uint32{t[1], t[2], t[0]}
	}
	if t[2] < t[0] && t[2] < t[1] {
		return [3]uint32{t[2], t[0], t[1]}
	}
	return t
}

func lessTri(a, b [3]uint32) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func dedupPoints(pts [][3]float32) [][3]float32 {
	seen := make(map[[3]float32]struct{}, len(pts))
	var out [][3]float32
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func sortedCopy(pts [][3]float32) [][3]float32 {
	out := make([][3]float32, len(pts))
	copy(out, pts)
	sort.Slice(out, func(i, j int) bool { return lessPoint(out[i], out[j]) })
	return out
}

func hullEpsilon(pts [][3]float64) float64 {
	var m float64
	for _, p := range pts {
		for a := 0; a < 3; a++ {
			if v := math.Abs(p[a]); v > m {
				m = v
			}
		}
	}
	return 3 * m * 1e-10
}

type hullFace struct {
	a, b, c int
	n       [3]float64 // outward, not normalized
	d       float64    // plane offset, dot(n, x) == d on the plane
	outside []int
	dead    bool
}

type hullBuilder struct {
	pts   []([3]float64)
	eps   float64
	faces []hullFace
}

func sub64(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross64(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot64(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// signedDist is the distance of point i above face f, positive outside.
func (h *hullBuilder) signedDist(f *hullFace, i int) float64 {
	return dot64(f.n, h.pts[i]) - f.d
}

func (h *hullBuilder) addFace(a, b, c int) int {
	pa, pb, pc := h.pts[a], h.pts[b], h.pts[c]
	n := cross64(sub64(pb, pa), sub64(pc, pa))
	h.faces = append(h.faces, hullFace{a: a, b: b, c: c, n: n, d: dot64(n, pa)})
	return len(h.faces) - 1
}

// initialSimplex finds four affinely independent points and seeds the
// builder with an outward-facing tetrahedron. It reports false when the
// set is degenerate.
func (h *hullBuilder) initialSimplex() bool {
	n := len(h.pts)
	// Two most separated axis-extreme points.
	ext := [6]int{}
	for i := 1; i < n; i++ {
		for a := 0; a < 3; a++ {
			if h.pts[i][a] < h.pts[ext[a]][a] {
				ext[a] = i
			}
			if h.pts[i][a] > h.pts[ext[3+a]][a] {
				ext[3+a] = i
			}
		}
	}
	i0, i1, best := ext[0], ext[3], -1.0
	for x := 0; x < 6; x++ {
		for y := x + 1; y < 6; y++ {
			d := sub64(h.pts[ext[x]], h.pts[ext[y]])
			if l := dot64(d, d); l > best {
				best, i0, i1 = l, ext[x], ext[y]
			}
		}
	}
	if best <= h.eps*h.eps {
		return false
	}
	// Furthest point from the line i0-i1.
	dir := sub64(h.pts[i1], h.pts[i0])
	i2, best := -1, h.eps*h.eps
	for i := 0; i < n; i++ {
		off := cross64(dir, sub64(h.pts[i], h.pts[i0]))
		if l := dot64(off, off) / dot64(dir, dir); l > best {
			best, i2 = l, i
		}
	}
	if i2 < 0 {
		return false
	}
	// Furthest point from the plane i0-i1-i2.
	pn := cross64(dir, sub64(h.pts[i2], h.pts[i0]))
	pl := math.Sqrt(dot64(pn, pn))
	i3, best := -1, h.eps
	for i := 0; i < n; i++ {
		if d := math.Abs(dot64(pn, sub64(h.pts[i], h.pts[i0]))) / pl; d > best {
			best, i3 = d, i
		}
	}
	if i3 < 0 {
		return false
	}
	if dot64(pn, sub64(h.pts[i3], h.pts[i0])) > 0 {
		i1, i2 = i2, i1 // keep i3 below the base so faces wind outward
	}
	h.addFace(i0, i1, i2)
	h.addFace(i0, i2, i3)
	h.addFace(i2, i1, i3)
	h.addFace(i1, i0, i3)
	simplex := map[int]struct{}{i0: {}, i1: {}, i2: {}, i3: {}}
	for i := 0; i < n; i++ {
		if _, ok := simplex[i]; ok {
			continue
		}
		h.assignOutside(i)
	}
	return true
}

// assignOutside parks point i on the first live face it lies above.
func (h *hullBuilder) assignOutside(i int) {
	for fi := range h.faces {
		f := &h.faces[fi]
		if f.dead {
			continue
		}
		if h.signedDist(f, i) > h.eps {
			f.outside = append(f.outside, i)
			return
		}
	}
}

func (h *hullBuilder) run() {
	for {
		fi := -1
		for i := range h.faces {
			if !h.faces[i].dead && len(h.faces[i].outside) > 0 {
				fi = i
				break
			}
		}
		if fi < 0 {
			return
		}
		f := &h.faces[fi]
		apex, best := -1, h.eps
		for _, i := range f.outside {
			if d := h.signedDist(f, i); d > best {
				best, apex = d, i
			}
		}
		if apex < 0 {
			f.outside = nil
			continue
		}
		h.expand(apex)
	}
}

// expand removes every face visible from the apex and re-covers the
// resulting horizon with fresh faces through the apex.
func (h *hullBuilder) expand(apex int) {
	var visible []int
	edgeCount := make(map[[2]int]int)
	for fi := range h.faces {
		f := &h.faces[fi]
		if f.dead || h.signedDist(f, apex) <= h.eps {
			continue
		}
		visible = append(visible, fi)
		for _, e := range [3][2]int{{f.a, f.b}, {f.b, f.c}, {f.c, f.a}} {
			edgeCount[e]++
		}
	}
	var orphans []int
	for _, fi := range visible {
		f := &h.faces[fi]
		f.dead = true
		orphans = append(orphans, f.outside...)
		f.outside = nil
	}
	// Horizon edges are visible-face edges whose reverse belongs to a
	// face that stays. New faces keep the edge direction so winding
	// remains outward.
	var horizon [][2]int
	for e, c := range edgeCount {
		if c == 1 && edgeCount[[2]int{e[1], e[0]}] == 0 {
			horizon = append(horizon, e)
		}
	}
	sort.Slice(horizon, func(i, j int) bool {
		if horizon[i][0] != horizon[j][0] {
			return horizon[i][0] < horizon[j][0]
		}
		return horizon[i][1] < horizon[j][1]
	})
	for _, e := range horizon {
		h.addFace(e[0], e[1], apex)
	}
	for _, i := range orphans {
		if i == apex {
			continue
		}
		h.assignOutside(i)
	}
}
