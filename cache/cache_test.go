package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/johnbchron/mage-corp-sub000/collider"
	"github.com/johnbchron/mage-corp-sub000/mesh"
)

func testMesh() *mesh.BufMesh {
	return &mesh.BufMesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Triangles: [][3]uint32{{0, 1, 2}},
	}
}

func TestMeshRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	const key = 0xdeadbeefcafe0001
	_, ok := s.LoadMesh(key)
	require.False(t, ok, "empty cache must miss")

	want := testMesh()
	s.StoreMesh(key, want)
	got, ok := s.LoadMesh(key)
	require.True(t, ok)
	require.True(t, want.Equal(got), "mesh must round-trip bit-exactly")
}

func TestColliderRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	want := &collider.Shape{
		Tag: collider.TagConvexHulls,
		Hulls: []collider.Hull{
			{Points: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
		},
	}
	const key = 0x0123456789abcdef
	s.StoreCollider(key, want)
	got, ok := s.LoadCollider(key)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestEntryFilename(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	s.StoreMesh(0xab, testMesh())
	_, err = os.Stat(filepath.Join(dir, "mesh", "00000000000000ab.bin"))
	require.NoError(t, err, "entry name is the 16-hex-digit key")
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	const key = 0x42
	s.StoreMesh(key, testMesh())
	path := filepath.Join(dir, "mesh", "0000000000000042.bin")
	require.NoError(t, os.WriteFile(path, []byte("not msgpack"), 0o644))

	_, ok := s.LoadMesh(key)
	require.False(t, ok, "corrupt entry must read as a miss")
}

func TestTruncatedEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	const key = 0x43
	s.StoreMesh(key, testMesh())
	path := filepath.Join(dir, "mesh", "0000000000000043.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	_, ok := s.LoadMesh(key)
	require.False(t, ok)
}

func TestUnknownSchemaVersionIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	const key = 0x44
	s.store(meshDir, key, meshBlob{Version: 999, Mesh: testMesh()})
	_, ok := s.LoadMesh(key)
	require.False(t, ok, "future schema versions must read as a miss")
}

func TestLastWriterWins(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	const key = 0x45
	first := testMesh()
	s.StoreMesh(key, first)
	second := testMesh()
	second.Positions[0] = [3]float32{9, 9, 9}
	s.StoreMesh(key, second)

	got, ok := s.LoadMesh(key)
	require.True(t, ok)
	require.True(t, second.Equal(got))
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	s.StoreMesh(0x46, testMesh())

	entries, err := os.ReadDir(filepath.Join(dir, "mesh"))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
	}
}
