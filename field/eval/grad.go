package eval

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// dual carries a value and its three partial derivatives for forward-mode
// differentiation over the tape.
type dual struct {
	v float64
	d r3.Vec
}

// EvalGradient evaluates the field gradient at every sample point and
// writes ∇f to dst. Buffer lengths must match. Gradients at kinks (min,
// max, abs ties) take the first operand's branch so results stay
// deterministic.
func (t *Tape) EvalGradient(xs, ys, zs []float64, dst []r3.Vec) error {
	n := len(xs)
	if len(ys) != n || len(zs) != n || len(dst) != n {
		return ErrShapeMismatch
	}
	parallelRanges(n, func(lo, hi int) {
		scratch := make([]dual, t.nslots)
		for i := lo; i < hi; i++ {
			dst[i] = t.gradOne(scratch, xs[i], ys[i], zs[i])
		}
	})
	return nil
}

// GradientOne evaluates the gradient at a single point.
func (t *Tape) GradientOne(x, y, z float64) r3.Vec {
	scratch := make([]dual, t.nslots)
	return t.gradOne(scratch, x, y, z)
}

func (t *Tape) gradOne(s []dual, x, y, z float64) r3.Vec {
	s[0] = dual{v: x, d: r3.Vec{X: 1}}
	s[1] = dual{v: y, d: r3.Vec{Y: 1}}
	s[2] = dual{v: z, d: r3.Vec{Z: 1}}
	for _, ins := range t.prog {
		a, b := s[ins.a], s[ins.b]
		var o dual
		switch ins.op {
		case opConst:
			o = dual{v: ins.k}
		case opAdd:
			o = dual{v: a.v + b.v, d: r3.Add(a.d, b.d)}
		case opSub:
			o = dual{v: a.v - b.v, d: r3.Sub(a.d, b.d)}
		case opMul:
			o = dual{v: a.v * b.v, d: r3.Add(r3.Scale(b.v, a.d), r3.Scale(a.v, b.d))}
		case opDiv:
			inv := 1 / b.v
			o = dual{
				v: a.v * inv,
				d: r3.Scale(inv*inv, r3.Sub(r3.Scale(b.v, a.d), r3.Scale(a.v, b.d))),
			}
		case opMin:
			if a.v <= b.v {
				o = a
			} else {
				o = b
			}
		case opMax:
			if a.v >= b.v {
				o = a
			} else {
				o = b
			}
		case opNeg:
			o = dual{v: -a.v, d: r3.Scale(-1, a.d)}
		case opAbs:
			if a.v < 0 {
				o = dual{v: -a.v, d: r3.Scale(-1, a.d)}
			} else {
				o = a
			}
		case opSqrt:
			v := math.Sqrt(a.v)
			o = dual{v: v, d: r3.Scale(0.5/v, a.d)}
		case opSquare:
			o = dual{v: a.v * a.v, d: r3.Scale(2*a.v, a.d)}
		case opSin:
			o = dual{v: math.Sin(a.v), d: r3.Scale(math.Cos(a.v), a.d)}
		case opCos:
			o = dual{v: math.Cos(a.v), d: r3.Scale(-math.Sin(a.v), a.d)}
		case opExp:
			v := math.Exp(a.v)
			o = dual{v: v, d: r3.Scale(v, a.d)}
		case opRecip:
			inv := 1 / a.v
			o = dual{v: inv, d: r3.Scale(-inv*inv, a.d)}
		}
		s[ins.dst] = o
	}
	return s[t.result].d
}
