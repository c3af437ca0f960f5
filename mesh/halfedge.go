package mesh

import (
	"errors"
	"fmt"
)

// Half-edge topology over a BufMesh. Vertices, edges and faces live in
// arenas addressed by integer keys; cross references are keys, never
// pointers, so deletion is a tombstone and keys are not reused.

type (
	// VertexID indexes the vertex arena of a HalfEdgeMesh.
	VertexID int32
	// EdgeID indexes the half-edge arena.
	EdgeID int32
	// FaceID indexes the face arena.
	FaceID int32
)

// Sentinel keys for absent references, i.e. the twin of a boundary edge.
const (
	NoVertex VertexID = -1
	NoEdge   EdgeID   = -1
	NoFace   FaceID   = -1
)

// VertexData is the per-vertex payload. It is a comparable value so
// vertices deduplicate bit-exactly.
type VertexData struct {
	P [3]float32
	N [3]float32
}

type vertex struct {
	data VertexData
	dead bool
}

type halfEdge struct {
	origin VertexID
	target VertexID
	face   FaceID
	next   EdgeID
	prev   EdgeID
	twin   EdgeID // NoEdge on boundary
	dead   bool
}

type face struct {
	edges []EdgeID // closed next-cycle, in order
	dead  bool
}

// HalfEdgeMesh is a mutable mesh topology. Build one with FromBufMesh,
// mutate it through Simplify, and extract the result with ToBufMesh.
type HalfEdgeMesh struct {
	verts []vertex
	edges []halfEdge
	faces []face
	// pairs maps a directed (origin,target) vertex pair to its live
	// half-edge so twins can be linked as faces are added.
	pairs map[[2]VertexID]EdgeID
}

// FromBufMesh builds the half-edge topology of an indexed triangle mesh.
// Triangles sharing a directed edge in both directions become twins; an
// edge observed twice in the same direction means the surface is not
// manifold and is an error.
func FromBufMesh(m *BufMesh) (*HalfEdgeMesh, error) {
	if len(m.Normals) != len(m.Positions) {
		return nil, errors.New("normal count does not match position count")
	}
	h := &HalfEdgeMesh{
		verts: make([]vertex, 0, len(m.Positions)),
		edges: make([]halfEdge, 0, 3*len(m.Triangles)),
		faces: make([]face, 0, len(m.Triangles)),
		pairs: make(map[[2]VertexID]EdgeID, 3*len(m.Triangles)),
	}
	for i := range m.Positions {
		h.verts = append(h.verts, vertex{data: VertexData{P: m.Positions[i], N: m.Normals[i]}})
	}
	nv := uint32(len(h.verts))
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx >= nv {
				return nil, fmt.Errorf("triangle %d references vertex %d of %d", i, idx, nv)
			}
		}
		_, err := h.addFace([]VertexID{VertexID(tri[0]), VertexID(tri[1]), VertexID(tri[2])})
		if err != nil {
			return nil, fmt.Errorf("triangle %d: %w", i, err)
		}
	}
	return h, nil
}

// addFace appends a face over an ordered vertex loop, creating its edge
// cycle and linking twins against existing live edges.
func (h *HalfEdgeMesh) addFace(loop []VertexID) (FaceID, error) {
	if len(loop) < 3 {
		return NoFace, errors.New("face needs at least 3 vertices")
	}
	fid := FaceID(len(h.faces))
	base := EdgeID(len(h.edges))
	n := len(loop)
	edges := make([]EdgeID, n)
	for i := 0; i < n; i++ {
		origin := loop[i]
		target := loop[(i+1)%n]
		if origin == target {
			return NoFace, errors.New("zero-length face edge")
		}
		key := [2]VertexID{origin, target}
		if _, dup := h.pairs[key]; dup {
			return NoFace, fmt.Errorf("non-manifold directed edge %d->%d", origin, target)
		}
		eid := base + EdgeID(i)
		edges[i] = eid
		h.edges = append(h.edges, halfEdge{
			origin: origin,
			target: target,
			face:   fid,
			next:   base + EdgeID((i+1)%n),
			prev:   base + EdgeID((i+n-1)%n),
			twin:   NoEdge,
		})
		h.pairs[key] = eid
	}
	// Link twins after all edges exist so a face can twin with itself
	// only across distinct directed pairs.
	for i := 0; i < n; i++ {
		eid := edges[i]
		e := &h.edges[eid]
		if rev, ok := h.pairs[[2]VertexID{e.target, e.origin}]; ok {
			e.twin = rev
			h.edges[rev].twin = eid
		}
	}
	h.faces = append(h.faces, face{edges: edges})
	return fid, nil
}

// deleteFace tombstones a face and its edge cycle, unlinking twins and the
// directed-pair index. Vertices are left alone.
func (h *HalfEdgeMesh) deleteFace(fid FaceID) {
	f := &h.faces[fid]
	if f.dead {
		return
	}
	for _, eid := range f.edges {
		e := &h.edges[eid]
		if e.twin != NoEdge {
			h.edges[e.twin].twin = NoEdge
			e.twin = NoEdge
		}
		delete(h.pairs, [2]VertexID{e.origin, e.target})
		e.dead = true
	}
	f.dead = true
}

// Twin returns the opposite half-edge, or NoEdge for boundary edges.
func (h *HalfEdgeMesh) Twin(e EdgeID) EdgeID { return h.edges[e].twin }

// Next returns the successor of e in its face cycle.
func (h *HalfEdgeMesh) Next(e EdgeID) EdgeID { return h.edges[e].next }

// Origin returns the vertex e leaves from.
func (h *HalfEdgeMesh) Origin(e EdgeID) VertexID { return h.edges[e].origin }

// Target returns the vertex e points at.
func (h *HalfEdgeMesh) Target(e EdgeID) VertexID { return h.edges[e].target }

// Faces returns the live face keys in ascending order.
func (h *HalfEdgeMesh) Faces() []FaceID {
	out := make([]FaceID, 0, len(h.faces))
	for i := range h.faces {
		if !h.faces[i].dead {
			out = append(out, FaceID(i))
		}
	}
	return out
}

// FaceEdges returns the edge cycle of a live face.
func (h *HalfEdgeMesh) FaceEdges(f FaceID) []EdgeID { return h.faces[f].edges }

// Validate checks the half-edge invariants: closed next cycles, twin
// involution, and origin/target agreement along each face.
func (h *HalfEdgeMesh) Validate() error {
	for fi := range h.faces {
		f := &h.faces[fi]
		if f.dead {
			continue
		}
		for i, eid := range f.edges {
			e := &h.edges[eid]
			if e.dead {
				return fmt.Errorf("face %d holds dead edge %d", fi, eid)
			}
			if e.face != FaceID(fi) {
				return fmt.Errorf("edge %d claims face %d, found in face %d", eid, e.face, fi)
			}
			next := f.edges[(i+1)%len(f.edges)]
			if e.next != next {
				return fmt.Errorf("edge %d next is %d, cycle expects %d", eid, e.next, next)
			}
			if h.edges[next].origin != e.target {
				return fmt.Errorf("edge %d target %d does not feed edge %d origin %d",
					eid, e.target, next, h.edges[next].origin)
			}
			if e.twin != NoEdge {
				tw := &h.edges[e.twin]
				if tw.twin != eid {
					return fmt.Errorf("twin(twin(%d)) = %d", eid, tw.twin)
				}
				if tw.origin != e.target || tw.target != e.origin {
					return fmt.Errorf("edge %d and twin %d are not antiparallel", eid, e.twin)
				}
			}
			if h.verts[e.origin].dead || h.verts[e.target].dead {
				return fmt.Errorf("edge %d references dead vertex", eid)
			}
		}
	}
	return nil
}
