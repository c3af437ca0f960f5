// Package mesher orchestrates mesh requests: it binds a symbolic field
// and a world region, normalizes and compiles the field, extracts the
// surface, and fronts the whole pipeline with a content-addressed disk
// cache.
package mesher

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Detail selects the voxel resolution of a region.
type Detail interface {
	isDetail()
	// voxels returns the per-axis voxel counts for the given half-extents.
	voxels(scale r3.Vec) (nx, ny, nz int)
}

// Subdivisions gives 2^k voxels per side on every axis.
type Subdivisions uint8

func (Subdivisions) isDetail() {}

func (s Subdivisions) voxels(r3.Vec) (int, int, int) {
	// Saturate instead of shifting past the word size; the sample
	// budget rejects anything this large.
	if s > 30 {
		s = 30
	}
	n := 1 << uint(s)
	return n, n, n
}

// Resolution gives ceil(2*halfExtent*r) voxels per axis, so voxel size
// in world units is uniform even for anisotropic regions.
type Resolution float32

func (Resolution) isDetail() {}

func (r Resolution) voxels(scale r3.Vec) (int, int, int) {
	per := func(half float64) int {
		n := int(math.Ceil(2 * half * float64(r)))
		if n < 1 {
			n = 1
		}
		return n
	}
	return per(scale.X), per(scale.Y), per(scale.Z)
}

// Exact gives exactly n voxels per side on every axis.
type Exact uint32

func (Exact) isDetail() {}

func (e Exact) voxels(r3.Vec) (int, int, int) {
	n := int(e)
	if n < 1 {
		n = 1
	}
	return n, n, n
}

// Region is an axis-aligned world box with meshing options. Scale holds
// the positive half-extents of the box around Position.
type Region struct {
	Position r3.Vec
	Scale    r3.Vec
	Detail   Detail
	Prune    bool
	Simplify bool
}

func (r Region) validate() error {
	if r.Scale.X <= 0 || r.Scale.Y <= 0 || r.Scale.Z <= 0 {
		return fmt.Errorf("region half-extents must be positive, got %v", r.Scale)
	}
	if r.Detail == nil {
		return fmt.Errorf("region detail must be set")
	}
	return nil
}
