package sdfxfield

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/johnbchron/mage-corp-sub000/field"
)

func TestWrapSphere(t *testing.T) {
	e := field.Sub(field.Norm(), field.Num(1))
	s, err := Wrap(e, r3.Vec{X: -2, Y: -2, Z: -2}, r3.Vec{X: 2, Y: 2, Z: 2})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	cases := []struct {
		p    v3.Vec
		want float64
	}{
		{v3.Vec{}, -1},
		{v3.Vec{X: 1}, 0},
		{v3.Vec{Y: 2}, 1},
		{v3.Vec{X: 3, Y: 4}, 4},
	}
	for _, c := range cases {
		if got := s.Evaluate(c.p); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("Evaluate(%v) = %g, want %g", c.p, got, c.want)
		}
	}
	bb := s.BoundingBox()
	if bb.Min.X != -2 || bb.Max.Z != 2 {
		t.Fatalf("unexpected bounding box %+v", bb)
	}
}

func TestWrapRejectsEmptyBox(t *testing.T) {
	if _, err := Wrap(field.Num(1), r3.Vec{X: 1}, r3.Vec{X: 1}); err == nil {
		t.Fatal("degenerate box must be rejected")
	}
}

func TestMeshSphere(t *testing.T) {
	e := field.Sub(field.Norm(), field.Num(1))
	s, err := Wrap(e, r3.Vec{X: -1.5, Y: -1.5, Z: -1.5}, r3.Vec{X: 1.5, Y: 1.5, Z: 1.5})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	m := Mesh(s, 32)
	if m.Empty() {
		t.Fatal("marching cubes produced no triangles")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid mesh: %v", err)
	}
	for i, p := range m.Positions {
		r := math.Sqrt(float64(p[0])*float64(p[0]) + float64(p[1])*float64(p[1]) + float64(p[2])*float64(p[2]))
		if math.Abs(r-1) > 0.15 {
			t.Fatalf("vertex %d at radius %g", i, r)
		}
	}
}
