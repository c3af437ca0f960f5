package eval

import "math"

// Interval is a closed range of field values. Interval evaluation is
// conservative: the true range of the expression over the input box is
// always contained in the result.
type Interval struct {
	Lo, Hi float64
}

// Entire is the interval covering every value, used when an operation
// cannot bound its result.
func entire() Interval {
	return Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}
}

// StrictlyPositive reports whether every value in the interval is > 0.
func (iv Interval) StrictlyPositive() bool { return iv.Lo > 0 }

// StrictlyNegative reports whether every value in the interval is < 0.
func (iv Interval) StrictlyNegative() bool { return iv.Hi < 0 }

func (iv Interval) valid() bool {
	return !math.IsNaN(iv.Lo) && !math.IsNaN(iv.Hi) && iv.Lo <= iv.Hi
}

// EvalInterval bounds the tape's output over the axis-aligned box described
// by the three coordinate intervals. A strictly positive (or strictly
// negative) result proves the box holds no surface, letting callers skip
// sampling entirely.
func (t *Tape) EvalInterval(x, y, z Interval) Interval {
	s := make([]Interval, t.nslots)
	s[0], s[1], s[2] = x, y, z
	for _, ins := range t.prog {
		a, b := s[ins.a], s[ins.b]
		var o Interval
		switch ins.op {
		case opConst:
			o = Interval{Lo: ins.k, Hi: ins.k}
		case opAdd:
			o = Interval{Lo: a.Lo + b.Lo, Hi: a.Hi + b.Hi}
		case opSub:
			o = Interval{Lo: a.Lo - b.Hi, Hi: a.Hi - b.Lo}
		case opMul:
			o = mulInterval(a, b)
		case opDiv:
			o = mulInterval(a, recipInterval(b))
		case opMin:
			o = Interval{Lo: math.Min(a.Lo, b.Lo), Hi: math.Min(a.Hi, b.Hi)}
		case opMax:
			o = Interval{Lo: math.Max(a.Lo, b.Lo), Hi: math.Max(a.Hi, b.Hi)}
		case opNeg:
			o = Interval{Lo: -a.Hi, Hi: -a.Lo}
		case opAbs:
			o = absInterval(a)
		case opSqrt:
			if a.Hi < 0 {
				o = entire() // NaN everywhere, no sign information
			} else {
				o = Interval{Lo: math.Sqrt(math.Max(a.Lo, 0)), Hi: math.Sqrt(a.Hi)}
			}
		case opSquare:
			abs := absInterval(a)
			o = Interval{Lo: abs.Lo * abs.Lo, Hi: abs.Hi * abs.Hi}
		case opSin, opCos:
			// Bounding trigonometric phase windows is not worth the
			// complexity for a constancy proof, [-1,1] is always sound.
			o = Interval{Lo: -1, Hi: 1}
		case opExp:
			o = Interval{Lo: math.Exp(a.Lo), Hi: math.Exp(a.Hi)}
		case opRecip:
			o = recipInterval(a)
		}
		if !o.valid() {
			o = entire()
		}
		s[ins.dst] = o
	}
	return s[t.result]
}

func absInterval(a Interval) Interval {
	if a.Lo >= 0 {
		return a
	}
	if a.Hi <= 0 {
		return Interval{Lo: -a.Hi, Hi: -a.Lo}
	}
	return Interval{Lo: 0, Hi: math.Max(-a.Lo, a.Hi)}
}

func mulInterval(a, b Interval) Interval {
	p1, p2 := a.Lo*b.Lo, a.Lo*b.Hi
	p3, p4 := a.Hi*b.Lo, a.Hi*b.Hi
	lo := math.Min(math.Min(p1, p2), math.Min(p3, p4))
	hi := math.Max(math.Max(p1, p2), math.Max(p3, p4))
	if math.IsNaN(lo) || math.IsNaN(hi) {
		// 0×Inf corner, bail to the whole line.
		return entire()
	}
	return Interval{Lo: lo, Hi: hi}
}

func recipInterval(a Interval) Interval {
	if a.Lo <= 0 && a.Hi >= 0 {
		return entire() // division by zero inside the box
	}
	return Interval{Lo: 1 / a.Hi, Hi: 1 / a.Lo}
}
