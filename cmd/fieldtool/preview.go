package main

import (
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/spf13/cobra"
)

// Rendered at 2x and downsampled for antialiasing.
const previewScale = 2

func previewCmd() *cobra.Command {
	var (
		output        string
		width, height int
		eye           []float64
	)
	cmd := &cobra.Command{
		Use:   "preview <file.stl>",
		Short: "render an STL file to a shaded PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(eye) != 3 {
				eye = []float64{2.4, 2.4, 2.4}
			}
			return stlToPNG(args[0], output, width, height, eye)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.png", "output PNG path")
	cmd.Flags().IntVar(&width, "width", 768, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 432, "image height in pixels")
	cmd.Flags().Float64SliceVar(&eye, "eye", nil, "camera position x,y,z (default 2.4,2.4,2.4)")
	return cmd
}

func stlToPNG(stlName, outputname string, width, height int, eyepos []float64) error {
	m, err := fauxgl.LoadSTL(stlName)
	if err != nil {
		return err
	}
	const fovy = 30 // vertical field of view in degrees

	var (
		eye    = fauxgl.V(eyepos[0], eyepos[1], eyepos[2])
		center = fauxgl.V(0, 0, 0)
		up     = fauxgl.V(0, 0, 1)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)

	// fit mesh in a bi-unit cube centered at the origin
	m.BiUnitCube()
	context := fauxgl.NewContext(width*previewScale, height*previewScale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, 1, 10)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(m)
	// downsample image for antialiasing
	image := context.Image()
	image = resize.Resize(uint(width), uint(height), image, resize.Bilinear)
	return fauxgl.SavePNG(outputname, image)
}
