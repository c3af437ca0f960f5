package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/johnbchron/mage-corp-sub000/field/eval"
)

// fieldGrid is a plotter.GridXYZ over samples of a scalar field on a
// fixed-z plane spanning [-extent, extent] on both axes.
type fieldGrid struct {
	n      int
	extent float64
	vals   []float64
}

func (g *fieldGrid) Dims() (int, int) { return g.n, g.n }

func (g *fieldGrid) X(c int) float64 {
	return -g.extent + 2*g.extent*float64(c)/float64(g.n-1)
}

func (g *fieldGrid) Y(r int) float64 { return g.X(r) }

func (g *fieldGrid) Z(c, r int) float64 { return g.vals[r*g.n+c] }

func sliceCmd() *cobra.Command {
	var (
		output string
		n      int
		extent float64
		z      float64
	)
	cmd := &cobra.Command{
		Use:   "slice <shape>",
		Short: "plot a z-slice of a shape's distance field as a heatmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 2 {
				return fmt.Errorf("need at least a 2x2 sample grid, got %d", n)
			}
			shape, err := lookupShape(args[0])
			if err != nil {
				return err
			}
			tape, err := eval.Compile(shape)
			if err != nil {
				return err
			}
			grid := &fieldGrid{n: n, extent: extent, vals: make([]float64, n*n)}
			xs := make([]float64, n*n)
			ys := make([]float64, n*n)
			zs := make([]float64, n*n)
			for r := 0; r < n; r++ {
				for c := 0; c < n; c++ {
					xs[r*n+c] = grid.X(c)
					ys[r*n+c] = grid.Y(r)
					zs[r*n+c] = z
				}
			}
			if err := tape.Eval(xs, ys, zs, grid.vals); err != nil {
				return err
			}

			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s at z=%g", args[0], z)
			p.X.Label.Text = "x"
			p.Y.Label.Text = "y"
			hm := plotter.NewHeatMap(grid, moreland.SmoothBlueRed().Palette(255))
			p.Add(hm)
			if err := p.Save(6*vg.Inch, 6*vg.Inch, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %dx%d slice to %s\n", n, n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "slice.png", "output image path")
	cmd.Flags().IntVar(&n, "samples", 256, "samples per axis")
	cmd.Flags().Float64Var(&extent, "extent", 1.5, "half-extent of the sampled square")
	cmd.Flags().Float64Var(&z, "z", 0, "z height of the slice plane")
	return cmd
}
