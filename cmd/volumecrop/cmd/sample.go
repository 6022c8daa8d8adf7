package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"volumecrop/pkg/volumeio"
)

func newSampleCommand(a *app) *cobra.Command {
	var (
		output  string
		dims    []int
		spacing []float64
		scalar  string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic head phantom to crop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dims) != 3 {
				return fmt.Errorf("--dims needs 3 comma separated values, got %d", len(dims))
			}
			sp, err := vecFlag("spacing", spacing)
			if err != nil {
				return err
			}

			grid := volumeio.NewPhantom([3]int{dims[0], dims[1], dims[2]}, sp)
			if _, err := volumeio.Save(output, grid, volumeio.ScalarType(scalar)); err != nil {
				return err
			}
			a.logger.Info("phantom written", "path", output, "volume", grid.Info())
			fmt.Fprintf(cmd.OutOrStdout(), "Sample volume saved to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "phantom.yaml", "output volume header")
	cmd.Flags().IntSliceVar(&dims, "dims", []int{64, 64, 48}, "dimensions i,j,k")
	cmd.Flags().Float64SliceVar(&spacing, "spacing", []float64{0.5, 0.5, 0.8}, "spacing x,y,z in mm")
	cmd.Flags().StringVar(&scalar, "scalar-type", string(volumeio.Int16), "scalar type")
	return cmd
}
