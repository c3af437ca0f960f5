package render

import (
	"github.com/chewxy/math32"

	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// Prune drops every triangle with a vertex outside the axis-aligned cube
// [-limit, limit]³ and compacts the vertex buffers to the referenced
// subset, preserving first-use order. The input mesh is not modified.
func Prune(m *mesh.BufMesh, limit float32) *mesh.BufMesh {
	out := &mesh.BufMesh{}
	remap := make(map[uint32]uint32, len(m.Positions))
	for _, tri := range m.Triangles {
		keep := true
		for _, idx := range tri {
			p := m.Positions[idx]
			if math32.Abs(p[0]) > limit || math32.Abs(p[1]) > limit || math32.Abs(p[2]) > limit {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		var nt [3]uint32
		for c, idx := range tri {
			ni, ok := remap[idx]
			if !ok {
				ni = uint32(len(out.Positions))
				remap[idx] = ni
				out.Positions = append(out.Positions, m.Positions[idx])
				if len(m.Normals) > 0 {
					out.Normals = append(out.Normals, m.Normals[idx])
				}
			}
			nt[c] = ni
		}
		out.Triangles = append(out.Triangles, nt)
	}
	return out
}
