package eval

import (
	"errors"
	"math"
	"runtime"
	"sync"
)

// ErrShapeMismatch is returned when the sample buffers passed to a bulk
// evaluation differ in length.
var ErrShapeMismatch = errors.New("mismatched sample buffer lengths")

// parallelThreshold is the sample count above which bulk evaluation fans
// out across goroutines. Outputs are indexed by sample so the result is
// bit-identical regardless of worker count.
const parallelThreshold = 1 << 12

// Eval evaluates the tape at every sample point (xs[i], ys[i], zs[i]) and
// writes the scalar results to dst. All four buffers must share a length.
// Division by zero and square roots of negative values follow IEEE-754
// (±Inf, NaN) and are not errors.
func (t *Tape) Eval(xs, ys, zs, dst []float64) error {
	n := len(xs)
	if len(ys) != n || len(zs) != n || len(dst) != n {
		return ErrShapeMismatch
	}
	parallelRanges(n, func(lo, hi int) {
		scratch := make([]float64, t.nslots)
		for i := lo; i < hi; i++ {
			dst[i] = t.evalOne(scratch, xs[i], ys[i], zs[i])
		}
	})
	return nil
}

// EvalOne evaluates the tape at a single point.
func (t *Tape) EvalOne(x, y, z float64) float64 {
	scratch := make([]float64, t.nslots)
	return t.evalOne(scratch, x, y, z)
}

func (t *Tape) evalOne(s []float64, x, y, z float64) float64 {
	s[0], s[1], s[2] = x, y, z
	for _, ins := range t.prog {
		a, b := s[ins.a], s[ins.b]
		var v float64
		switch ins.op {
		case opConst:
			v = ins.k
		case opAdd:
			v = a + b
		case opSub:
			v = a - b
		case opMul:
			v = a * b
		case opDiv:
			v = a / b
		case opMin:
			v = math.Min(a, b)
		case opMax:
			v = math.Max(a, b)
		case opNeg:
			v = -a
		case opAbs:
			v = math.Abs(a)
		case opSqrt:
			v = math.Sqrt(a)
		case opSquare:
			v = a * a
		case opSin:
			v = math.Sin(a)
		case opCos:
			v = math.Cos(a)
		case opExp:
			v = math.Exp(a)
		case opRecip:
			v = 1 / a
		}
		s[ins.dst] = v
	}
	return s[t.result]
}

// parallelRanges splits [0,n) into contiguous chunks and runs fn on each,
// on the calling goroutine for small n. No synchronization happens inside
// fn, chunks are disjoint.
func parallelRanges(n int, fn func(lo, hi int)) {
	workers := runtime.GOMAXPROCS(0)
	if n < parallelThreshold || workers < 2 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
