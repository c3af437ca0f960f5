// Package field implements symbolic scalar fields over 3D space.
//
// A field is an immutable expression graph built from coordinate sources,
// constants and arithmetic nodes. Negative values denote the inside of a
// surface, positive values the outside, and the zero level set is the
// surface itself. Expression graphs are structurally hashable so that
// identical shapes share cache entries, and are compiled to a flat tape
// by the eval package before bulk evaluation.
package field

import "gonum.org/v1/gonum/spatial/r3"

// Expr is a node of a scalar field expression graph. Expressions are
// immutable values; sharing a subexpression between two parents is
// expressed by structural repetition and deduplicated at compile time.
type Expr interface {
	isExpr()
}

// Axis selects one of the three coordinate sources.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "axis?"
}

// Coord evaluates to one coordinate of the sample point.
type Coord struct {
	Axis Axis
}

// The three coordinate sources. Expressions are built from these,
// i.e. a unit sphere is Sub(Norm(), Const{1}).
var (
	X Expr = Coord{AxisX}
	Y Expr = Coord{AxisY}
	Z Expr = Coord{AxisZ}
)

// Const is a finite floating point literal.
type Const struct {
	V float64
}

// Num returns a constant expression.
func Num(v float64) Expr { return Const{V: v} }

// BinOp enumerates binary arithmetic node kinds.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	}
	return "binop?"
}

// Bin applies a binary arithmetic operation to two subexpressions.
// Division by zero evaluates to ±Inf following IEEE-754, it is not an error.
type Bin struct {
	Op   BinOp
	A, B Expr
}

// Binary node constructors.

func Add(a, b Expr) Expr { return Bin{Op: OpAdd, A: a, B: b} }
func Sub(a, b Expr) Expr { return Bin{Op: OpSub, A: a, B: b} }
func Mul(a, b Expr) Expr { return Bin{Op: OpMul, A: a, B: b} }
func Div(a, b Expr) Expr { return Bin{Op: OpDiv, A: a, B: b} }
func Min(a, b Expr) Expr { return Bin{Op: OpMin, A: a, B: b} }
func Max(a, b Expr) Expr { return Bin{Op: OpMax, A: a, B: b} }

// UnOp enumerates unary node kinds.
type UnOp uint8

const (
	OpNeg UnOp = iota
	OpAbs
	OpSqrt
	OpSquare
	OpSin
	OpCos
	OpExp
	OpRecip
)

func (op UnOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpAbs:
		return "abs"
	case OpSqrt:
		return "sqrt"
	case OpSquare:
		return "square"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpExp:
		return "exp"
	case OpRecip:
		return "recip"
	}
	return "unop?"
}

// Un applies a unary operation to a subexpression. Sqrt of a negative
// argument evaluates to NaN and Recip of zero to ±Inf, neither is an error.
type Un struct {
	Op UnOp
	A  Expr
}

// Unary node constructors.

func Neg(a Expr) Expr    { return Un{Op: OpNeg, A: a} }
func Abs(a Expr) Expr    { return Un{Op: OpAbs, A: a} }
func Sqrt(a Expr) Expr   { return Un{Op: OpSqrt, A: a} }
func Square(a Expr) Expr { return Un{Op: OpSquare, A: a} }
func Sin(a Expr) Expr    { return Un{Op: OpSin, A: a} }
func Cos(a Expr) Expr    { return Un{Op: OpCos, A: a} }
func Exp(a Expr) Expr    { return Un{Op: OpExp, A: a} }
func Recip(a Expr) Expr  { return Un{Op: OpRecip, A: a} }

// Remap evaluates Child in a coordinate frame where the X, Y and Z sources
// are substituted by the XP, YP and ZP expressions. The substituting
// expressions themselves evaluate in the outer frame.
type Remap struct {
	Child      Expr
	XP, YP, ZP Expr
}

// Norm returns the distance from the origin, sqrt(x²+y²+z²).
func Norm() Expr {
	return Sqrt(Add(Add(Square(X), Square(Y)), Square(Z)))
}

func (Coord) isExpr() {}
func (Const) isExpr() {}
func (Bin) isExpr()   {}
func (Un) isExpr()    {}
func (Remap) isExpr() {}

// Normalize rewrites e so that sampling the result over the canonical cube
// [-1,1]³ corresponds to sampling e over the box with the given center and
// positive half-extents. The rewrite is purely structural, e is untouched.
func Normalize(e Expr, center, halfExtent r3.Vec) Expr {
	return Remap{
		Child: e,
		XP:    Add(Mul(X, Num(halfExtent.X)), Num(center.X)),
		YP:    Add(Mul(Y, Num(halfExtent.Y)), Num(center.Y)),
		ZP:    Add(Mul(Z, Num(halfExtent.Z)), Num(center.Z)),
	}
}

// Denormalize maps a point in canonical [-1,1]³ coordinates back to the
// world-space box described by center and halfExtent. It is the inverse of
// the coordinate frame installed by Normalize.
func Denormalize(p, center, halfExtent r3.Vec) r3.Vec {
	return r3.Vec{
		X: p.X*halfExtent.X + center.X,
		Y: p.Y*halfExtent.Y + center.Y,
		Z: p.Z*halfExtent.Z + center.Z,
	}
}
