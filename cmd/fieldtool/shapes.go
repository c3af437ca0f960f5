package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/johnbchron/mage-corp-sub000/field"
)

// Demo shapes, all sized to fit comfortably in a [-1.5,1.5]³ region.
var shapes = map[string]func() (field.Expr, error){
	"sphere": func() (field.Expr, error) {
		return field.NewSphere(1)
	},
	"cube": func() (field.Expr, error) {
		return field.NewCuboid(0.8, 0.8, 0.8)
	},
	"cylinder": func() (field.Expr, error) {
		return field.NewCylinder(1.6, 0.7)
	},
	"blend": func() (field.Expr, error) {
		ball, err := field.NewSphere(0.7)
		if err != nil {
			return nil, err
		}
		moved, err := field.NewTransform(ball, field.TranslationMat34(-0.6, 0, -0.6))
		if err != nil {
			return nil, err
		}
		box, err := field.NewCuboid(0.6, 0.6, 0.6)
		if err != nil {
			return nil, err
		}
		return field.NewSmoothMin(moved, box, 0.3)
	},
	"gyroid": func() (field.Expr, error) {
		// sin(kx)cos(ky) + sin(ky)cos(kz) + sin(kz)cos(kx), clipped to a box.
		const k = 5
		sc := func(a, b field.Expr) field.Expr {
			return field.Mul(field.Sin(field.Mul(a, field.Num(k))), field.Cos(field.Mul(b, field.Num(k))))
		}
		surf := field.Add(field.Add(sc(field.X, field.Y), sc(field.Y, field.Z)), sc(field.Z, field.X))
		box, err := field.NewCuboid(1, 1, 1)
		if err != nil {
			return nil, err
		}
		return field.Max(field.Sub(field.Abs(surf), field.Num(0.25)), box), nil
	},
}

func shapeNames() []string {
	names := make([]string, 0, len(shapes))
	for n := range shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupShape(name string) (field.Expr, error) {
	build, ok := shapes[name]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q, have: %s", name, strings.Join(shapeNames(), ", "))
	}
	return build()
}
