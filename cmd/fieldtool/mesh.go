package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/johnbchron/mage-corp-sub000/cache"
	"github.com/johnbchron/mage-corp-sub000/mesh"
	"github.com/johnbchron/mage-corp-sub000/mesher"
)

func meshCmd() *cobra.Command {
	var (
		output   string
		cacheDir string
		scale    float64
		cells    uint32
		prune    bool
		simplify bool
	)
	cmd := &cobra.Command{
		Use:   "mesh <shape>",
		Short: "build a demo shape and write it as binary STL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := lookupShape(args[0])
			if err != nil {
				return err
			}
			var opts []mesher.BuilderOption
			if cacheDir != "" {
				store, err := cache.Open(cacheDir)
				if err != nil {
					return err
				}
				opts = append(opts, mesher.WithCache(store))
			}
			b := mesher.New(opts...)
			m, _, err := b.BuildMesh(cmd.Context(), mesher.MeshRequest{
				Shape: shape,
				Region: mesher.Region{
					Scale:    r3.Vec{X: scale, Y: scale, Z: scale},
					Detail:   mesher.Exact(cells),
					Prune:    prune,
					Simplify: simplify,
				},
			})
			if err != nil {
				return err
			}
			if m.Empty() {
				return fmt.Errorf("shape %q has no surface in a region of half-extent %g", args[0], scale)
			}
			if err := mesh.CreateSTL(output, m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vertices, %d triangles -> %s\n",
				args[0], len(m.Positions), len(m.Triangles), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.stl", "output STL path")
	cmd.Flags().StringVar(&cacheDir, "cache", "", "mesh cache directory (empty disables caching)")
	cmd.Flags().Float64Var(&scale, "scale", 1.5, "region half-extent")
	cmd.Flags().Uint32Var(&cells, "cells", 64, "voxels per axis")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop triangles crossing the region boundary")
	cmd.Flags().BoolVar(&simplify, "simplify", false, "merge coplanar faces")
	return cmd
}
