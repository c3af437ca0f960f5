package field

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// hashSchema is prepended to every structural hash. Bump it whenever the
// node encoding below changes so stale on-disk cache entries miss cleanly.
const hashSchema = 1

// Node tags for hashing. Order is part of the on-disk cache contract,
// append only.
const (
	tagCoord uint8 = iota
	tagConst
	tagBin
	tagUn
	tagRemap
	tagSphere
	tagCuboid
	tagCylinder
	tagSmoothMin
	tagTransform
	tagClamp
	tagRemapRange
)

// canonical NaN bit pattern so that all NaNs hash alike.
const nanBits = 0x7ff8000000000000

// Hash returns the 64-bit structural hash of e. The hash depends only on
// the shape of the graph and the bit-exact values of its constants: two
// structurally identical expressions hash identically in any process.
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	var scratch [8]byte
	scratch[0] = hashSchema
	h.Write(scratch[:1])
	hashExpr(h, &scratch, e)
	return h.Sum64()
}

type hashWriter interface {
	Write(p []byte) (int, error)
	Sum64() uint64
}

func hashExpr(h hashWriter, scratch *[8]byte, e Expr) {
	tag := func(t uint8) {
		scratch[0] = t
		h.Write(scratch[:1])
	}
	f64 := func(v float64) {
		bits := math.Float64bits(v)
		if math.IsNaN(v) {
			bits = nanBits
		}
		binary.LittleEndian.PutUint64(scratch[:], bits)
		h.Write(scratch[:])
	}
	switch n := e.(type) {
	case Coord:
		tag(tagCoord)
		tag(uint8(n.Axis))
	case Const:
		tag(tagConst)
		f64(n.V)
	case Bin:
		tag(tagBin)
		tag(uint8(n.Op))
		hashExpr(h, scratch, n.A)
		hashExpr(h, scratch, n.B)
	case Un:
		tag(tagUn)
		tag(uint8(n.Op))
		hashExpr(h, scratch, n.A)
	case Remap:
		tag(tagRemap)
		hashExpr(h, scratch, n.Child)
		hashExpr(h, scratch, n.XP)
		hashExpr(h, scratch, n.YP)
		hashExpr(h, scratch, n.ZP)
	case sphere:
		tag(tagSphere)
		f64(n.r)
	case cuboid:
		tag(tagCuboid)
		f64(n.hx)
		f64(n.hy)
		f64(n.hz)
	case cylinder:
		tag(tagCylinder)
		f64(n.h)
		f64(n.r)
	case smoothMin:
		tag(tagSmoothMin)
		f64(n.k)
		hashExpr(h, scratch, n.a)
		hashExpr(h, scratch, n.b)
	case transform:
		tag(tagTransform)
		for _, v := range n.m {
			f64(v)
		}
		hashExpr(h, scratch, n.child)
	case clamp:
		tag(tagClamp)
		hashExpr(h, scratch, n.x)
		hashExpr(h, scratch, n.lo)
		hashExpr(h, scratch, n.hi)
	case remapRange:
		tag(tagRemapRange)
		f64(n.inLo)
		f64(n.inHi)
		f64(n.outLo)
		f64(n.outHi)
		hashExpr(h, scratch, n.x)
	default:
		// Unknown nodes are rejected at compile time; hash a fixed
		// sentinel so Hash itself never fails.
		tag(0xff)
	}
}
