package cmd

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/internal/models"
	"volumecrop/pkg/crop"
	"volumecrop/pkg/geometry"
	"volumecrop/pkg/visualization"
	"volumecrop/pkg/volumeio"
)

// cropOptions holds the crop command flags
type cropOptions struct {
	input      string
	output     string
	scalarType string

	center     []float64
	size       []float64
	axis       []float64
	angle      float64
	quaternion []float64
	fit        bool

	mode          string
	spacingScale  float64
	isotropic     bool
	interpolation string
	fillValue     float64
	numCores      int

	previewDir   string
	previewWidth int
	previewAll   bool
	window       []float64
	report       bool
}

func newCropCommand(a *app) *cobra.Command {
	o := &cropOptions{}

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop a volume to a region of interest",
		Long: `Crop a volume to a box given by its physical centre and size (mm).

The box may be rotated with --axis/--angle or --quaternion; rotation only
affects the resample mode. --fit starts from a box covering the whole volume,
which --center and --size then override. Without --output the result is
written next to the input as Cropped_<name>_<n>.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrop(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input volume header")
	f.StringVarP(&o.output, "output", "o", "", "output volume header (default Cropped_<name>_<n>.yaml next to input)")
	f.StringVar(&o.scalarType, "scalar-type", "", "output scalar type (default: same as input)")

	f.Float64SliceVar(&o.center, "center", nil, "region centre x,y,z in mm")
	f.Float64SliceVar(&o.size, "size", nil, "region size x,y,z in mm")
	f.Float64SliceVar(&o.axis, "axis", []float64{0, 0, 1}, "region rotation axis x,y,z")
	f.Float64Var(&o.angle, "angle", 0, "region rotation angle in degrees")
	f.Float64SliceVar(&o.quaternion, "quaternion", nil, "region rotation as quaternion w,x,y,z")
	f.BoolVar(&o.fit, "fit", false, "start from a region covering the whole input")

	f.StringVar(&o.mode, "mode", "", "crop mode: voxel or resample")
	f.Float64Var(&o.spacingScale, "spacing-scale", 1, "output spacing as a multiple of input spacing (resample)")
	f.BoolVar(&o.isotropic, "isotropic", false, "use the smallest scaled spacing on every axis (resample)")
	f.StringVar(&o.interpolation, "interpolation", "", "nearest, linear or bspline (resample)")
	f.Float64Var(&o.fillValue, "fill", 0, "value for output voxels outside the input (resample)")
	f.IntVar(&o.numCores, "cores", 0, "number of CPU cores to use")

	f.StringVar(&o.previewDir, "preview-dir", "", "write mid-slice previews of the result to this directory")
	f.IntVar(&o.previewWidth, "preview-width", 0, "preview width in pixels")
	f.BoolVar(&o.previewAll, "preview-all", false, "also write every slice along each axis as JPEG")
	f.Float64SliceVar(&o.window, "window", nil, "preview display range low,high (default: data min,max)")
	f.BoolVar(&o.report, "report", false, "compare the result against the input and print fidelity metrics")

	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("quaternion", "angle")
	return cmd
}

// applyOverrides copies explicitly set flags over the loaded configuration
func (a *app) applyOverrides(cmd *cobra.Command, o *cropOptions) {
	f := cmd.Flags()
	if f.Changed("mode") {
		a.cfg.Crop.Mode = o.mode
	}
	if f.Changed("spacing-scale") {
		a.cfg.Crop.SpacingScale = o.spacingScale
	}
	if f.Changed("isotropic") {
		a.cfg.Crop.IsotropicSpacing = o.isotropic
	}
	if f.Changed("interpolation") {
		a.cfg.Crop.Interpolation = o.interpolation
	}
	if f.Changed("fill") {
		a.cfg.Crop.FillValue = o.fillValue
	}
	if f.Changed("cores") {
		a.cfg.Processing.NumCores = o.numCores
	}
	if f.Changed("preview-dir") {
		a.cfg.Output.PreviewDir = o.previewDir
	}
	if f.Changed("preview-width") {
		a.cfg.Output.PreviewWidth = o.previewWidth
	}
}

func vecFlag(name string, v []float64) (r3.Vec, error) {
	if len(v) != 3 {
		return r3.Vec{}, fmt.Errorf("--%s needs 3 comma separated values, got %d", name, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// buildRegion assembles the region from --fit, --center, --size and the
// orientation flags
func buildRegion(cmd *cobra.Command, o *cropOptions, grid models.Grid) (models.Region, error) {
	f := cmd.Flags()
	var region models.Region
	if o.fit {
		region = models.FitRegionToGrid(grid)
	} else if !f.Changed("center") || !f.Changed("size") {
		return models.Region{}, errors.New("either --fit or both --center and --size are required")
	}

	if f.Changed("center") {
		c, err := vecFlag("center", o.center)
		if err != nil {
			return models.Region{}, err
		}
		region.Center = c
	}
	if f.Changed("size") {
		s, err := vecFlag("size", o.size)
		if err != nil {
			return models.Region{}, err
		}
		region = region.Resized(s)
	}

	switch {
	case f.Changed("quaternion"):
		if len(o.quaternion) != 4 {
			return models.Region{}, fmt.Errorf("--quaternion needs 4 comma separated values, got %d", len(o.quaternion))
		}
		q := quat.Number{Real: o.quaternion[0], Imag: o.quaternion[1], Jmag: o.quaternion[2], Kmag: o.quaternion[3]}
		rot, err := geometry.RotationFromQuaternion(q)
		if err != nil {
			return models.Region{}, fmt.Errorf("--quaternion: %w", err)
		}
		region.Orientation = rot
	case f.Changed("angle"):
		axis, err := vecFlag("axis", o.axis)
		if err != nil {
			return models.Region{}, err
		}
		rot, err := geometry.RotationFromAxisAngle(axis, o.angle*math.Pi/180)
		if err != nil {
			return models.Region{}, fmt.Errorf("--axis/--angle: %w", err)
		}
		region.Orientation = rot
	}
	return region, nil
}

func (a *app) runCrop(cmd *cobra.Command, o *cropOptions) error {
	a.applyOverrides(cmd, o)
	spec, err := a.cfg.CropSpec()
	if err != nil {
		return err
	}

	grid, header, err := volumeio.Load(o.input)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}
	a.logger.Info("input volume loaded", "path", o.input, "volume", grid.Info())

	region, err := buildRegion(cmd, o, grid)
	if err != nil {
		return err
	}
	if spec.Mode == models.VoxelAligned && region.Frame() != geometry.IdentityRotation() {
		a.logger.Warn("region orientation is ignored in voxel mode")
	}
	a.logger.Debug("crop request", "region", region.String(), "mode", spec.Mode.String(),
		"interpolation", spec.Interpolation.String())

	cropper := crop.NewCropper(&crop.Params{NumCores: a.cfg.Processing.NumCores, Logger: a.logger})
	start := time.Now()
	res, err := cropper.Crop(&grid, &region, spec)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	outPath := o.output
	if outPath == "" {
		outPath = volumeio.UniqueOutputPath(filepath.Dir(o.input), volumeio.BaseName(o.input))
	}
	scalar := header.ScalarType
	if o.scalarType != "" {
		scalar = volumeio.ScalarType(o.scalarType)
	}
	if _, err := volumeio.Save(outPath, res.Grid, scalar); err != nil {
		return fmt.Errorf("saving output: %w", err)
	}

	out := cmd.OutOrStdout()
	origin := res.Grid.Origin()
	fmt.Fprintf(out, "Cropped volume: %s\n", res.Grid.Info())
	fmt.Fprintf(out, "Origin: %.3f, %.3f, %.3f mm\n", origin.X, origin.Y, origin.Z)
	if spec.Mode == models.VoxelAligned {
		fmt.Fprintf(out, "Extent: %s\n", res.Extent)
	}
	fmt.Fprintf(out, "Saved to: %s (%.2f s)\n", outPath, elapsed.Seconds())

	if o.report {
		m, err := crop.Compare(grid, res.Grid)
		if err != nil {
			return fmt.Errorf("comparing result: %w", err)
		}
		fmt.Fprintf(out, "\nFidelity against input:\n")
		fmt.Fprintf(out, "Compared voxels: %d of %d\n", m.Compared, res.Grid.NumVoxels())
		fmt.Fprintf(out, "RMSE: %.6f\n", m.RMSE)
		fmt.Fprintf(out, "Max abs difference: %.6f\n", m.MaxAbsDiff)
		fmt.Fprintf(out, "Correlation: %.4f\n", m.Correlation)
	}

	if dir := a.cfg.Output.PreviewDir; dir != "" {
		return a.writePreviews(cmd, o, res.Grid, dir, volumeio.BaseName(outPath))
	}
	return nil
}

// writePreviews saves the mid-slice previews and, with --preview-all, every
// slice along each axis under <dir>/<base>_slices
func (a *app) writePreviews(cmd *cobra.Command, o *cropOptions, grid models.Grid, dir, base string) error {
	viewer, err := visualization.NewViewer(grid)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("window") {
		if len(o.window) != 2 {
			return fmt.Errorf("--window needs 2 comma separated values, got %d", len(o.window))
		}
		if err := viewer.SetWindow(o.window[0], o.window[1]); err != nil {
			return fmt.Errorf("--window: %w", err)
		}
	}
	low, high := viewer.Window()
	a.logger.Debug("preview window", "low", low, "high", high)

	paths, err := viewer.SaveMidSlices(dir, base, a.cfg.Output.PreviewWidth)
	if err != nil {
		return fmt.Errorf("writing previews: %w", err)
	}
	a.logger.Info("previews written", "dir", dir, "files", len(paths))

	if o.previewAll {
		slices := filepath.Join(dir, base+"_slices")
		for _, axis := range []string{"x", "y", "z"} {
			if err := viewer.SaveSliceSequence(axis, slices); err != nil {
				return fmt.Errorf("writing %s slices: %w", axis, err)
			}
		}
		a.logger.Info("slice sequences written", "dir", slices)
	}
	return nil
}
