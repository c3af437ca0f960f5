// Package cache is a content-addressed disk cache for built meshes and
// collider shapes. Entries are keyed by 64-bit structural hashes and
// stored as MessagePack blobs; the cache degrades to recomputation on
// any read or write failure, never surfacing I/O errors to callers.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/johnbchron/mage-corp-sub000/collider"
	"github.com/johnbchron/mage-corp-sub000/mesh"
)

// Blob schema versions. Bump on any encoding change; readers treat
// unknown versions as a miss so old processes skip new blobs.
const (
	meshSchemaVersion     = 1
	colliderSchemaVersion = 1
)

const (
	meshDir     = "mesh"
	colliderDir = "collider"
)

type meshBlob struct {
	Version int           `msgpack:"v"`
	Mesh    *mesh.BufMesh `msgpack:"mesh"`
}

type colliderBlob struct {
	Version int             `msgpack:"v"`
	Shape   *collider.Shape `msgpack:"shape"`
}

// Store is a disk cache rooted at a directory. It is safe for parallel
// readers and racing writers; writes are atomic and last-writer-wins.
type Store struct {
	root string
	log  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes cache degradation messages to log instead of
// slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open returns a Store rooted at dir, creating the namespace
// directories if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{root: dir, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	for _, ns := range []string{meshDir, colliderDir} {
		if err := os.MkdirAll(filepath.Join(dir, ns), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) path(ns string, key uint64) string {
	return filepath.Join(s.root, ns, fmt.Sprintf("%016x.bin", key))
}

// LoadMesh fetches the mesh stored under key. Missing, truncated or
// otherwise unreadable entries report a miss.
func (s *Store) LoadMesh(key uint64) (*mesh.BufMesh, bool) {
	var blob meshBlob
	if !s.load(meshDir, key, &blob) {
		return nil, false
	}
	if blob.Version != meshSchemaVersion || blob.Mesh == nil {
		return nil, false
	}
	return blob.Mesh, true
}

// StoreMesh writes the mesh under key. Failures are logged and
// swallowed; the caller's computed value stays authoritative.
func (s *Store) StoreMesh(key uint64, m *mesh.BufMesh) {
	s.store(meshDir, key, meshBlob{Version: meshSchemaVersion, Mesh: m})
}

// LoadCollider fetches the collider shape stored under key.
func (s *Store) LoadCollider(key uint64) (*collider.Shape, bool) {
	var blob colliderBlob
	if !s.load(colliderDir, key, &blob) {
		return nil, false
	}
	if blob.Version != colliderSchemaVersion || blob.Shape == nil {
		return nil, false
	}
	return blob.Shape, true
}

// StoreCollider writes the collider shape under key.
func (s *Store) StoreCollider(key uint64, c *collider.Shape) {
	s.store(colliderDir, key, colliderBlob{Version: colliderSchemaVersion, Shape: c})
}

func (s *Store) load(ns string, key uint64, dst any) bool {
	path := s.path(ns, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("cache read failed, treating as miss", "path", path, "err", err)
		}
		return false
	}
	if err := msgpack.Unmarshal(data, dst); err != nil {
		s.log.Debug("cache entry corrupt, treating as miss", "path", path, "err", err)
		return false
	}
	return true
}

// store serializes v to a temp file in the namespace directory and
// renames it into place so readers never observe partial writes.
func (s *Store) store(ns string, key uint64, v any) {
	path := s.path(ns, key)
	data, err := msgpack.Marshal(v)
	if err != nil {
		s.log.Warn("cache encode failed", "path", path, "err", err)
		return
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn("cache write failed", "path", path, "err", err)
		return
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		s.log.Warn("cache write failed", "path", path, "err", err)
		return
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		s.log.Warn("cache write failed", "path", path, "err", errors.Join(werr, cerr))
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		s.log.Warn("cache write failed", "path", path, "err", err)
	}
}
