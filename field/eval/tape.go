// Package eval compiles field expressions to a flat tape and evaluates the
// tape in bulk over sample buffers, either for scalar values, for gradients
// via forward-mode dual numbers, or for conservative interval bounds.
package eval

import (
	"errors"
	"fmt"

	"github.com/johnbchron/mage-corp-sub000/field"
)

// ErrUnsupported is wrapped by Compile for expression nodes the tape
// evaluator has no instruction for.
var ErrUnsupported = errors.New("unsupported expression node")

type opcode uint8

const (
	opConst opcode = iota
	opAdd
	opSub
	opMul
	opDiv
	opMin
	opMax
	opNeg
	opAbs
	opSqrt
	opSquare
	opSin
	opCos
	opExp
	opRecip
)

// instr is one tape instruction: dst = op(a, b) over scratch slots.
// opConst ignores the operands and loads k.
type instr struct {
	op   opcode
	a, b uint32
	dst  uint32
	k    float64
}

// Tape is a compiled expression: a topologically ordered instruction list
// over a scratch slot array. Slots 0..2 hold the sample coordinates. A Tape
// is immutable after Compile and safe for concurrent use; evaluation scratch
// lives on the caller's stack frame, not in the Tape.
type Tape struct {
	prog   []instr
	nslots int
	result uint32
}

// Slots returns the scratch width required to evaluate the tape.
func (t *Tape) Slots() int { return t.nslots }

// Len returns the number of tape instructions.
func (t *Tape) Len() int { return len(t.prog) }

type memoKey struct {
	hash       uint64
	cx, cy, cz uint32
}

type compiler struct {
	prog   []instr
	nslots uint32
	memo   map[memoKey]uint32
}

// Compile lowers e to primitive nodes and linearizes it into a Tape.
// Structurally repeated subexpressions evaluate once: a memo keyed by
// structural hash and coordinate frame maps them to shared scratch slots.
func Compile(e field.Expr) (*Tape, error) {
	if e == nil {
		return nil, errors.New("nil expression")
	}
	c := compiler{
		nslots: 3, // slots 0,1,2 are the x,y,z inputs
		memo:   make(map[memoKey]uint32),
	}
	result, err := c.compile(field.Lower(e), 0, 1, 2)
	if err != nil {
		return nil, err
	}
	return &Tape{prog: c.prog, nslots: int(c.nslots), result: result}, nil
}

func (c *compiler) emit(op opcode, a, b uint32, k float64) uint32 {
	dst := c.nslots
	c.nslots++
	c.prog = append(c.prog, instr{op: op, a: a, b: b, dst: dst, k: k})
	return dst
}

func (c *compiler) compile(e field.Expr, cx, cy, cz uint32) (uint32, error) {
	switch n := e.(type) {
	case field.Coord:
		switch n.Axis {
		case field.AxisX:
			return cx, nil
		case field.AxisY:
			return cy, nil
		case field.AxisZ:
			return cz, nil
		}
		return 0, fmt.Errorf("%w: coordinate axis %d", ErrUnsupported, n.Axis)
	}

	key := memoKey{hash: field.Hash(e), cx: cx, cy: cy, cz: cz}
	if slot, ok := c.memo[key]; ok {
		return slot, nil
	}
	slot, err := c.compileNode(e, cx, cy, cz)
	if err != nil {
		return 0, err
	}
	c.memo[key] = slot
	return slot, nil
}

func (c *compiler) compileNode(e field.Expr, cx, cy, cz uint32) (uint32, error) {
	switch n := e.(type) {
	case field.Const:
		return c.emit(opConst, 0, 0, n.V), nil
	case field.Bin:
		a, err := c.compile(n.A, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		b, err := c.compile(n.B, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		op, ok := binOpcode(n.Op)
		if !ok {
			return 0, fmt.Errorf("%w: binary op %v", ErrUnsupported, n.Op)
		}
		return c.emit(op, a, b, 0), nil
	case field.Un:
		a, err := c.compile(n.A, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		op, ok := unOpcode(n.Op)
		if !ok {
			return 0, fmt.Errorf("%w: unary op %v", ErrUnsupported, n.Op)
		}
		return c.emit(op, a, 0, 0), nil
	case field.Remap:
		// The replacement coordinates evaluate in the outer frame, the
		// child then evaluates with its coordinate sources bound to them.
		xs, err := c.compile(n.XP, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		ys, err := c.compile(n.YP, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		zs, err := c.compile(n.ZP, cx, cy, cz)
		if err != nil {
			return 0, err
		}
		return c.compile(n.Child, xs, ys, zs)
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupported, e)
}

func binOpcode(op field.BinOp) (opcode, bool) {
	switch op {
	case field.OpAdd:
		return opAdd, true
	case field.OpSub:
		return opSub, true
	case field.OpMul:
		return opMul, true
	case field.OpDiv:
		return opDiv, true
	case field.OpMin:
		return opMin, true
	case field.OpMax:
		return opMax, true
	}
	return 0, false
}

func unOpcode(op field.UnOp) (opcode, bool) {
	switch op {
	case field.OpNeg:
		return opNeg, true
	case field.OpAbs:
		return opAbs, true
	case field.OpSqrt:
		return opSqrt, true
	case field.OpSquare:
		return opSquare, true
	case field.OpSin:
		return opSin, true
	case field.OpCos:
		return opCos, true
	case field.OpExp:
		return opExp, true
	case field.OpRecip:
		return opRecip, true
	}
	return 0, false
}
