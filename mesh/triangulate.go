package mesh

import "gonum.org/v1/gonum/spatial/r2"

// Ear-clipping triangulation of a simple 2D polygon. Used by the coplanar
// face merger after projecting a boundary loop onto its common plane.

// signedArea2 is twice the signed area of the polygon, positive when the
// loop winds counter-clockwise.
func signedArea2(poly []r2.Vec) float64 {
	var sum float64
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum
}

func cross2(o, a, b r2.Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// pointInTriangle reports whether p lies strictly inside triangle abc
// (counter-clockwise). Boundary points are treated as outside so that
// collinear chain vertices do not block ear clipping.
func pointInTriangle(p, a, b, c r2.Vec) bool {
	return cross2(a, b, p) > 0 && cross2(b, c, p) > 0 && cross2(c, a, p) > 0
}

// earClip triangulates a simple polygon and returns index triples into
// poly. The input winding may be either orientation; output triangles wind
// the same way as the input loop. Returns nil when the polygon is
// degenerate or clipping gets stuck (self-intersecting input).
func earClip(poly []r2.Vec) [][3]int {
	n := len(poly)
	if n < 3 {
		return nil
	}
	// Work on a counter-clockwise copy, tracking original indices.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	flipped := false
	if signedArea2(poly) < 0 {
		flipped = true
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	at := func(i int) r2.Vec { return poly[idx[i]] }

	out := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			prev := (i + len(idx) - 1) % len(idx)
			next := (i + 1) % len(idx)
			a, b, c := at(prev), at(i), at(next)
			turn := cross2(a, b, c)
			if turn == 0 {
				// Exactly collinear corner: the vertex adds no area,
				// drop it without emitting a triangle.
				idx = append(idx[:i], idx[i+1:]...)
				clipped = true
				break
			}
			if turn < 0 {
				continue // reflex corner
			}
			ear := true
			for j := 0; j < len(idx); j++ {
				if j == prev || j == i || j == next {
					continue
				}
				if pointInTriangle(at(j), a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			out = append(out, [3]int{idx[prev], idx[i], idx[next]})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil // stuck, input was not a simple polygon
		}
	}
	if cross2(at(0), at(1), at(2)) != 0 {
		out = append(out, [3]int{idx[0], idx[1], idx[2]})
	}
	if flipped {
		for i := range out {
			out[i][0], out[i][2] = out[i][2], out[i][0]
		}
	}
	return out
}
