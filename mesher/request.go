package mesher

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/johnbchron/mage-corp-sub000/collider"
	"github.com/johnbchron/mage-corp-sub000/field"
	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// requestSchema versions the cache key layouts (mesh request and
// collider). Bump on any change so stale cache entries stop matching.
const requestSchema = 1

// MeshRequest binds a shape to a region. NeedCollider asks the builder
// to also derive (and cache) a collision shape; it does not affect the
// mesh itself or its cache key.
type MeshRequest struct {
	Shape        field.Expr
	Region       Region
	NeedCollider bool
}

// Hash is the mesh cache key: a structural hash over the shape and
// every mesh-relevant region field, bit-exact on the floats.
func (r MeshRequest) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	b := func(v byte) { h.Write([]byte{v}) }

	b(requestSchema)
	u64(field.Hash(r.Shape))
	f64(r.Region.Position.X)
	f64(r.Region.Position.Y)
	f64(r.Region.Position.Z)
	f64(r.Region.Scale.X)
	f64(r.Region.Scale.Y)
	f64(r.Region.Scale.Z)
	switch d := r.Region.Detail.(type) {
	case Subdivisions:
		b(1)
		b(byte(d))
	case Resolution:
		b(2)
		u64(uint64(math.Float32bits(float32(d))))
	case Exact:
		b(3)
		u64(uint64(d))
	default:
		b(0)
	}
	flags := byte(0)
	if r.Region.Prune {
		flags |= 1
	}
	if r.Region.Simplify {
		flags |= 2
	}
	b(flags)
	return h.Sum64()
}

// colliderKey addresses the collider cache by mesh content and build
// policy, so a policy change or any mesh change misses cleanly.
func colliderKey(m *mesh.BufMesh, p collider.Policy) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	f32 := func(v float32) {
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	u32 := func(v uint32) {
		binary.BigEndian.PutUint32(buf[:], v)
		h.Write(buf[:])
	}
	h.Write([]byte{requestSchema})
	for _, p := range m.Positions {
		f32(p[0])
		f32(p[1])
		f32(p[2])
	}
	for _, n := range m.Normals {
		f32(n[0])
		f32(n[1])
		f32(n[2])
	}
	for _, t := range m.Triangles {
		u32(t[0])
		u32(t[1])
		u32(t[2])
	}
	switch pol := p.(type) {
	case collider.ConvexDecomposition:
		h.Write([]byte{collider.TagConvexHulls})
		k := pol.MaxHulls
		if k <= 0 {
			k = collider.DefaultMaxHulls
		}
		u32(uint32(k))
	case collider.TriMesh:
		h.Write([]byte{collider.TagTriMesh})
	}
	return h.Sum64()
}
