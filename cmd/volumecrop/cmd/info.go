package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"volumecrop/internal/models"
	"volumecrop/pkg/volumeio"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <header>",
		Short: "Print geometry and value statistics of a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, header, err := volumeio.Load(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("volume loaded", "path", args[0])

			out := cmd.OutOrStdout()
			origin := grid.Origin()
			stats := grid.Stats()
			fit := models.FitRegionToGrid(grid)
			bounds := grid.PhysicalBounds()

			fmt.Fprintf(out, "Volume: %s\n", grid.Info())
			fmt.Fprintf(out, "Scalar type: %s (%s endian)\n", header.ScalarType, header.ByteOrder)
			fmt.Fprintf(out, "Origin: %.3f, %.3f, %.3f mm\n", origin.X, origin.Y, origin.Z)
			for axis, name := range []string{"i", "j", "k"} {
				d := header.Direction[axis]
				fmt.Fprintf(out, "Direction %s: %.4f, %.4f, %.4f\n", name, d[0], d[1], d[2])
			}
			fmt.Fprintf(out, "Index to physical:\n")
			for row := 0; row < 3; row++ {
				t := grid.IndexToPhysical
				fmt.Fprintf(out, "  %9.4f %9.4f %9.4f %9.4f\n", t.At(row, 0), t.At(row, 1), t.At(row, 2), t.At(row, 3))
			}
			fmt.Fprintf(out, "Bounds: [%.2f, %.2f] x [%.2f, %.2f] x [%.2f, %.2f] mm\n",
				bounds.Min.X, bounds.Max.X, bounds.Min.Y, bounds.Max.Y, bounds.Min.Z, bounds.Max.Z)
			fmt.Fprintf(out, "Fitted region: %s\n", fit)
			fmt.Fprintf(out, "Values: min %.3f, max %.3f, mean %.3f, std %.3f\n",
				stats.Min, stats.Max, stats.Mean, stats.Std)
			return nil
		},
	}
}
