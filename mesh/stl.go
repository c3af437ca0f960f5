package mesh

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
)

// Binary STL export of a BufMesh, for inspecting pipeline output in any
// mesh viewer or slicer.

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8
	Count uint32
}

// stlTriangle is the 50-byte STL triangle record.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // attribute byte count
}

// WriteSTL writes the mesh to w in binary STL format.
func WriteSTL(w io.Writer, m *BufMesh) error {
	if m.Empty() {
		return errEmptyMesh
	}
	header := stlHeader{Count: uint32(len(m.Triangles))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [50]byte
	for _, tri := range m.Triangles {
		d := stlTriangle{
			Normal:  m.faceNormalSTL(tri),
			Vertex1: m.Positions[tri[0]],
			Vertex2: m.Positions[tri[1]],
			Vertex3: m.Positions[tri[2]],
		}
		d.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// CreateSTL writes the mesh to a new binary STL file at path.
func CreateSTL(path string, m *BufMesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)
	if err := WriteSTL(w, m); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fp.Close()
}

// faceNormalSTL returns the facet normal from the triangle's vertex
// winding, averaged vertex normals deciding nothing here: STL facets are
// flat by definition.
func (m *BufMesh) faceNormalSTL(tri [3]uint32) [3]float32 {
	e1 := sub3(m.Positions[tri[1]], m.Positions[tri[0]])
	e2 := sub3(m.Positions[tri[2]], m.Positions[tri[0]])
	n, ok := unit3(cross3(e1, e2))
	if !ok {
		return [3]float32{}
	}
	return n
}

func (t stlTriangle) put(b []byte) {
	if len(b) < 50 {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}
