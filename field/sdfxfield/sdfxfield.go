// Package sdfxfield bridges symbolic fields to the deadsy/sdfx CAD
// ecosystem: a compiled field can stand in anywhere sdfx expects an
// sdf.SDF3, and sdfx marching cubes output converts back into the
// pipeline's mesh format.
package sdfxfield

import (
	"errors"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/johnbchron/mage-corp-sub000/field"
	"github.com/johnbchron/mage-corp-sub000/field/eval"
	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// fieldSDF3 exposes a compiled tape as an sdfx solid.
type fieldSDF3 struct {
	tape *eval.Tape
	bb   sdf.Box3
}

// Wrap compiles e and returns it as an sdf.SDF3 bounded by the box from
// min to max, so sdfx renderers and CSG operators can consume fields
// built with this module.
func Wrap(e field.Expr, min, max r3.Vec) (sdf.SDF3, error) {
	if min.X >= max.X || min.Y >= max.Y || min.Z >= max.Z {
		return nil, errors.New("bounding box min must be below max on every axis")
	}
	tape, err := eval.Compile(e)
	if err != nil {
		return nil, err
	}
	return &fieldSDF3{
		tape: tape,
		bb: sdf.Box3{
			Min: v3.Vec{X: min.X, Y: min.Y, Z: min.Z},
			Max: v3.Vec{X: max.X, Y: max.Y, Z: max.Z},
		},
	}, nil
}

func (s *fieldSDF3) Evaluate(p v3.Vec) float64 {
	return s.tape.EvalOne(p.X, p.Y, p.Z)
}

func (s *fieldSDF3) BoundingBox() sdf.Box3 {
	return s.bb
}

// Mesh renders an sdfx solid with uniform marching cubes and repacks the
// triangle soup as an indexed BufMesh with flat facet normals. Vertices
// shared bit-exactly between facets are merged.
func Mesh(s sdf.SDF3, meshCells int) *mesh.BufMesh {
	renderer := render.NewMarchingCubesUniform(meshCells)
	triangles := render.ToTriangles(s, renderer)

	out := &mesh.BufMesh{}
	type key struct {
		p [3]float32
		n [3]float32
	}
	index := make(map[key]uint32, len(triangles))
	for _, tri := range triangles {
		if degenerate(tri[0], tri[1], tri[2]) {
			continue
		}
		fn := tri.Normal()
		n := [3]float32{float32(fn.X), float32(fn.Y), float32(fn.Z)}
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			v := tri[j]
			k := key{p: [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}, n: n}
			id, ok := index[k]
			if !ok {
				id = uint32(len(out.Positions))
				index[k] = id
				out.Positions = append(out.Positions, k.p)
				out.Normals = append(out.Normals, k.n)
			}
			idx[j] = id
		}
		out.Triangles = append(out.Triangles, idx)
	}
	return out
}

// degenerate reports whether the facet collapses below the mesh format's
// minimum area once cast to float32.
func degenerate(a, b, c v3.Vec) bool {
	f := func(v v3.Vec) [3]float64 {
		return [3]float64{
			float64(float32(v.X)),
			float64(float32(v.Y)),
			float64(float32(v.Z)),
		}
	}
	pa, pb, pc := f(a), f(b), f(c)
	ux, uy, uz := pb[0]-pa[0], pb[1]-pa[1], pb[2]-pa[2]
	vx, vy, vz := pc[0]-pa[0], pc[1]-pa[1], pc[2]-pa[2]
	cx := uy*vz - uz*vy
	cy := uz*vx - ux*vz
	cz := ux*vy - uy*vx
	const minArea2 = 4e-24 // squared doubled area of the smallest valid triangle
	return cx*cx+cy*cy+cz*cz <= minArea2
}
