package mesh

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteSTL(t *testing.T) {
	m := twoTriangleStrip()
	var buf bytes.Buffer
	if err := WriteSTL(&buf, m); err != nil {
		t.Fatalf("WriteSTL: %v", err)
	}
	want := 84 + 50*len(m.Triangles)
	if buf.Len() != want {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), want)
	}
	data := buf.Bytes()
	if count := binary.LittleEndian.Uint32(data[80:]); count != uint32(len(m.Triangles)) {
		t.Fatalf("header count %d, want %d", count, len(m.Triangles))
	}
	// First facet normal is +z for a CCW triangle in the z=0 plane.
	nz := math.Float32frombits(binary.LittleEndian.Uint32(data[84+8:]))
	if nz != 1 {
		t.Fatalf("first facet normal z = %g, want 1", nz)
	}
	// First vertex of the first facet.
	x := math.Float32frombits(binary.LittleEndian.Uint32(data[84+12:]))
	if x != m.Positions[0][0] {
		t.Fatalf("first facet vertex x = %g, want %g", x, m.Positions[0][0])
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	if err := WriteSTL(&bytes.Buffer{}, &BufMesh{}); err == nil {
		t.Fatal("empty mesh must be rejected")
	}
}

func TestCreateSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strip.stl")
	if err := CreateSTL(path, twoTriangleStrip()); err != nil {
		t.Fatalf("CreateSTL: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() != 84+50*2 {
		t.Fatalf("file size %d, want %d", fi.Size(), 84+50*2)
	}
}
