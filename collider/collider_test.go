package collider

import (
	"testing"

	"github.com/johnbchron/mage-corp-sub000/mesh"
	"github.com/stretchr/testify/require"
)

// cubeMesh is a unit cube with 8 shared corners and 12 triangles.
func cubeMesh() *mesh.BufMesh {
	m := &mesh.BufMesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
		},
		Triangles: [][3]uint32{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{2, 3, 7}, {2, 7, 6}, // back
			{1, 2, 6}, {1, 6, 5}, // right
			{3, 0, 4}, {3, 4, 7}, // left
		},
	}
	m.Normals = make([][3]float32, len(m.Positions))
	return m
}

func TestBuildEmptyMesh(t *testing.T) {
	s, err := Build(&mesh.BufMesh{}, DefaultPolicy())
	require.NoError(t, err)
	require.Nil(t, s, "empty mesh has no shape")

	s, err = Build(nil, TriMesh{})
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestBuildTriMesh(t *testing.T) {
	m := cubeMesh()
	s, err := Build(m, TriMesh{})
	require.NoError(t, err)
	require.Equal(t, TagTriMesh, s.Tag)
	require.Equal(t, m.Positions, s.Positions)
	require.Equal(t, m.Triangles, s.Triangles)
	require.Empty(t, s.Hulls)

	// The shape owns its buffers.
	s.Positions[0][0] = 99
	require.Equal(t, float32(0), m.Positions[0][0])
}

func TestBuildConvexSingleHull(t *testing.T) {
	s, err := Build(cubeMesh(), ConvexDecomposition{MaxHulls: 1})
	require.NoError(t, err)
	require.Equal(t, TagConvexHulls, s.Tag)
	require.Len(t, s.Hulls, 1)
	// A cube's hull is exactly its 8 corners.
	require.Len(t, s.Hulls[0].Points, 8)
}

func TestBuildConvexDecomposition(t *testing.T) {
	s, err := Build(cubeMesh(), ConvexDecomposition{MaxHulls: 4})
	require.NoError(t, err)
	require.Equal(t, TagConvexHulls, s.Tag)
	require.True(t, len(s.Hulls) >= 1 && len(s.Hulls) <= 4,
		"got %d hulls, want between 1 and 4", len(s.Hulls))
	total := 0
	for _, h := range s.Hulls {
		require.NotEmpty(t, h.Points)
		total += len(h.Points)
	}
	require.GreaterOrEqual(t, total, 8)
}

func TestBuildConvexDefaultK(t *testing.T) {
	s, err := Build(cubeMesh(), ConvexDecomposition{})
	require.NoError(t, err)
	require.LessOrEqual(t, len(s.Hulls), DefaultMaxHulls)
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(cubeMesh(), ConvexDecomposition{MaxHulls: 4})
	require.NoError(t, err)
	b, err := Build(cubeMesh(), ConvexDecomposition{MaxHulls: 4})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestConvexHullInteriorPointDropped(t *testing.T) {
	pts := [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{0.2, 0.2, 0.2}, // strictly inside the tetrahedron
	}
	h, tris := convexHull(pts)
	require.Len(t, h, 4)
	require.Len(t, tris, 4)
	require.NotContains(t, h, [3]float32{0.2, 0.2, 0.2})
}

func TestConvexHullDegenerate(t *testing.T) {
	// Coplanar points cannot form a tetrahedron; the hull degrades to
	// the deduplicated point set.
	pts := [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0},
	}
	h, tris := convexHull(pts)
	require.Len(t, h, 4)
	require.Empty(t, tris, "point hull carries no faces")
}

func TestConvexHullFaces(t *testing.T) {
	s, err := Build(cubeMesh(), ConvexDecomposition{MaxHulls: 1})
	require.NoError(t, err)
	require.Len(t, s.Hulls, 1)
	hull := s.Hulls[0]
	require.Len(t, hull.Points, 8)
	require.Len(t, hull.Triangles, 12)

	// Watertight: every directed edge appears once, with its reverse.
	edges := make(map[[2]uint32]int)
	for _, tri := range hull.Triangles {
		require.Less(t, tri[0], uint32(len(hull.Points)))
		require.Less(t, tri[1], uint32(len(hull.Points)))
		require.Less(t, tri[2], uint32(len(hull.Points)))
		for _, e := range [3][2]uint32{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}} {
			edges[e]++
		}
	}
	for e, c := range edges {
		require.Equal(t, 1, c, "directed edge %v repeated", e)
		require.Equal(t, 1, edges[[2]uint32{e[1], e[0]}], "edge %v has no reverse", e)
	}

	// Outward winding: each face normal points away from the cube center.
	center := [3]float32{0.5, 0.5, 0.5}
	for _, tri := range hull.Triangles {
		a, b, c := hull.Points[tri[0]], hull.Points[tri[1]], hull.Points[tri[2]]
		u := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		n := [3]float32{
			u[1]*v[2] - u[2]*v[1],
			u[2]*v[0] - u[0]*v[2],
			u[0]*v[1] - u[1]*v[0],
		}
		out := [3]float32{a[0] - center[0], a[1] - center[1], a[2] - center[2]}
		dot := n[0]*out[0] + n[1]*out[1] + n[2]*out[2]
		require.Positive(t, dot, "triangle %v winds inward", tri)
	}
}
