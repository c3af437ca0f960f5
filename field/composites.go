package field

import (
	"errors"
	"math"
)

// Composite nodes describe common solids and rewrites at a higher level than
// the primitive arithmetic set. They are lowered to primitives by Lower
// before compilation, so evaluators never see them. Composites still hash
// structurally, two spheres of equal radius share a cache identity.

type sphere struct {
	r float64
}

// NewSphere returns a field for a sphere of radius r centered at the origin.
func NewSphere(r float64) (Expr, error) {
	if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, errors.New("zero or negative sphere radius")
	}
	return sphere{r: r}, nil
}

func (s sphere) lower() Expr {
	return Sub(Norm(), Num(s.r))
}

type cuboid struct {
	hx, hy, hz float64
}

// NewCuboid returns a field for an axis-aligned box with the given positive
// half-extents, centered at the origin.
func NewCuboid(hx, hy, hz float64) (Expr, error) {
	if hx <= 0 || hy <= 0 || hz <= 0 {
		return nil, errors.New("zero or negative cuboid half-extent")
	}
	return cuboid{hx: hx, hy: hy, hz: hz}, nil
}

func (c cuboid) lower() Expr {
	dx := Sub(Abs(X), Num(c.hx))
	dy := Sub(Abs(Y), Num(c.hy))
	dz := Sub(Abs(Z), Num(c.hz))
	return Max(Max(dx, dy), dz)
}

type cylinder struct {
	h, r float64
}

// NewCylinder returns a field for a cylinder of total height h and radius r,
// axis along Z, centered at the origin.
func NewCylinder(h, r float64) (Expr, error) {
	if h <= 0 || r <= 0 {
		return nil, errors.New("zero or negative cylinder dimension")
	}
	return cylinder{h: h, r: r}, nil
}

func (c cylinder) lower() Expr {
	radial := Sub(Sqrt(Add(Square(X), Square(Y))), Num(c.r))
	axial := Sub(Abs(Z), Num(c.h/2))
	return Max(radial, axial)
}

type smoothMin struct {
	a, b Expr
	k    float64
}

// NewSmoothMin returns the cubic smooth minimum of two fields. k is the
// blending radius; larger k gives a larger fillet between the surfaces.
func NewSmoothMin(a, b Expr, k float64) (Expr, error) {
	if a == nil || b == nil {
		return nil, errors.New("nil smooth-min operand")
	}
	if k <= 0 {
		return nil, errors.New("zero or negative smooth-min radius")
	}
	return smoothMin{a: a, b: b, k: k}, nil
}

func (s smoothMin) lower() Expr {
	// h = max(k-|a-b|, 0)/k; smin = min(a,b) - h³k/6.
	// Operands repeat structurally, the compile-time interner shares them.
	h := Div(Max(Sub(Num(s.k), Abs(Sub(s.a, s.b))), Num(0)), Num(s.k))
	h3 := Mul(Mul(h, h), h)
	return Sub(Min(s.a, s.b), Mul(h3, Num(s.k/6)))
}

// Mat34 is an affine transform as a row-major 3x4 matrix: the first three
// columns are the linear part, the last column the translation.
type Mat34 [12]float64

// IdentityMat34 returns the identity affine transform.
func IdentityMat34() Mat34 {
	return Mat34{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// TranslationMat34 returns the affine transform mapping p to p+(x,y,z).
func TranslationMat34(x, y, z float64) Mat34 {
	m := IdentityMat34()
	m[3], m[7], m[11] = x, y, z
	return m
}

// ScalingMat34 returns the affine transform scaling each axis independently.
func ScalingMat34(x, y, z float64) Mat34 {
	return Mat34{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
	}
}

type transform struct {
	child Expr
	m     Mat34
}

// NewTransform returns a field that evaluates child at M·p. To place a shape
// with transform T into the world, pass the inverse of T.
func NewTransform(child Expr, m Mat34) (Expr, error) {
	if child == nil {
		return nil, errors.New("nil transform child")
	}
	for _, v := range m {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, errors.New("non-finite transform matrix entry")
		}
	}
	return transform{child: child, m: m}, nil
}

func (t transform) lower() Expr {
	row := func(o int) Expr {
		e := Num(t.m[o+3])
		for a, src := range []Expr{X, Y, Z} {
			if c := t.m[o+a]; c != 0 {
				e = Add(e, Mul(Num(c), src))
			}
		}
		return e
	}
	return Remap{Child: t.child, XP: row(0), YP: row(4), ZP: row(8)}
}

type clamp struct {
	x, lo, hi Expr
}

// NewClamp returns x clamped to the [lo, hi] range.
func NewClamp(x, lo, hi Expr) (Expr, error) {
	if x == nil || lo == nil || hi == nil {
		return nil, errors.New("nil clamp operand")
	}
	return clamp{x: x, lo: lo, hi: hi}, nil
}

func (c clamp) lower() Expr {
	return Min(Max(c.x, c.lo), c.hi)
}

type remapRange struct {
	x                        Expr
	inLo, inHi, outLo, outHi float64
}

// NewRemapRange linearly maps values of x from [inLo,inHi] to [outLo,outHi].
func NewRemapRange(x Expr, inLo, inHi, outLo, outHi float64) (Expr, error) {
	if x == nil {
		return nil, errors.New("nil remap-range operand")
	}
	if inHi == inLo {
		return nil, errors.New("empty remap-range input interval")
	}
	return remapRange{x: x, inLo: inLo, inHi: inHi, outLo: outLo, outHi: outHi}, nil
}

func (r remapRange) lower() Expr {
	k := (r.outHi - r.outLo) / (r.inHi - r.inLo)
	return Add(Mul(Sub(r.x, Num(r.inLo)), Num(k)), Num(r.outLo))
}

func (sphere) isExpr()     {}
func (cuboid) isExpr()     {}
func (cylinder) isExpr()   {}
func (smoothMin) isExpr()  {}
func (transform) isExpr()  {}
func (clamp) isExpr()      {}
func (remapRange) isExpr() {}

// Lower rewrites e so that only primitive nodes remain: coordinates,
// constants, binary and unary arithmetic, and coordinate remaps.
func Lower(e Expr) Expr {
	switch n := e.(type) {
	case Coord, Const:
		return n
	case Bin:
		return Bin{Op: n.Op, A: Lower(n.A), B: Lower(n.B)}
	case Un:
		return Un{Op: n.Op, A: Lower(n.A)}
	case Remap:
		return Remap{Child: Lower(n.Child), XP: Lower(n.XP), YP: Lower(n.YP), ZP: Lower(n.ZP)}
	case interface{ lower() Expr }:
		return Lower(n.lower())
	}
	return e
}
