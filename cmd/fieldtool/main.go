// fieldtool builds meshes from the built-in demo fields and inspects
// them: STL export, shaded PNG previews and scalar-slice heatmaps.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "fieldtool",
		Short:         "mesh and inspect signed distance fields",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details")
	root.AddCommand(meshCmd(), previewCmd(), sliceCmd(), shapesCmd())
	return root
}

func shapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "list the built-in demo shapes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range shapeNames() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}
}
