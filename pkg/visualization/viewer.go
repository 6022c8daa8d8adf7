// Package visualization renders orthogonal slices of a volume as grayscale
// preview images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"

	"volumecrop/internal/models"
)

// Viewer extracts and saves slices of a grid
type Viewer struct {
	grid models.Grid

	// low and high map to black and white
	low, high float64
}

// NewViewer creates a viewer windowed to the full sample range of grid
func NewViewer(grid models.Grid) (*Viewer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if !grid.HasSamples() {
		return nil, fmt.Errorf("%w: grid has no samples", models.ErrInvalidGrid)
	}
	return &Viewer{
		grid: grid,
		low:  floats.Min(grid.Samples),
		high: floats.Max(grid.Samples),
	}, nil
}

// SetWindow changes the value range mapped to black..white
func (v *Viewer) SetWindow(low, high float64) error {
	if !(high > low) {
		return fmt.Errorf("window high %g must exceed low %g", high, low)
	}
	v.low, v.high = low, high
	return nil
}

// Window returns the current display range
func (v *Viewer) Window() (low, high float64) {
	return v.low, v.high
}

// gray maps a sample through the window to 16 bits
func (v *Viewer) gray(value float64) uint16 {
	if v.high <= v.low {
		return 0
	}
	t := (value - v.low) / (v.high - v.low)
	return uint16(math.Round(math.Max(0, math.Min(1, t)) * 65535))
}

// plane describes a slice orientation: image columns and rows map to two
// index axes while the third is fixed.
type plane struct {
	colAxis, rowAxis, fixedAxis int
}

func planeFor(axis string) (plane, error) {
	switch axis {
	case "x", "X":
		// YZ plane, columns along k
		return plane{colAxis: 2, rowAxis: 1, fixedAxis: 0}, nil
	case "y", "Y":
		// XZ plane, rows along k
		return plane{colAxis: 0, rowAxis: 2, fixedAxis: 1}, nil
	case "z", "Z":
		return plane{colAxis: 0, rowAxis: 1, fixedAxis: 2}, nil
	}
	return plane{}, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	p, err := planeFor(axis)
	if err != nil {
		return nil, err
	}
	dims := v.grid.Dimensions
	if position < 0 || position >= dims[p.fixedAxis] {
		return nil, fmt.Errorf("position %d outside [0, %d) on axis %s", position, dims[p.fixedAxis], axis)
	}

	cols, rows := dims[p.colAxis], dims[p.rowAxis]
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	var ijk [3]int
	ijk[p.fixedAxis] = position
	for r := 0; r < rows; r++ {
		ijk[p.rowAxis] = r
		for c := 0; c < cols; c++ {
			ijk[p.colAxis] = c
			img.SetGray16(c, r, color.Gray16{Y: v.gray(v.grid.At(ijk[0], ijk[1], ijk[2]))})
		}
	}
	return img, nil
}

// Preview extracts a slice and resizes it so that pixels are square in
// physical space. width sets the output width; 0 keeps the slice width.
func (v *Viewer) Preview(axis string, position, width int) (image.Image, error) {
	img, err := v.ExtractSlice(axis, position)
	if err != nil {
		return nil, err
	}
	p, _ := planeFor(axis)
	s := v.grid.Spacing()
	spacing := [3]float64{s.X, s.Y, s.Z}

	cols := v.grid.Dimensions[p.colAxis]
	rows := v.grid.Dimensions[p.rowAxis]
	physW := float64(cols) * spacing[p.colAxis]
	physH := float64(rows) * spacing[p.rowAxis]

	if width <= 0 {
		width = cols
	}
	height := max(1, int(math.Round(float64(width)*physH/physW)))
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// SaveSlice saves an image; the format follows the file extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return imaging.Save(img, filename, imaging.JPEGQuality(90))
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	p, err := planeFor(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.grid.Dimensions[p.fixedAxis]; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveMidSlices writes the middle axial, coronal and sagittal slices as PNG
// previews named <prefix>_<axis>.png and returns their paths
func (v *Viewer) SaveMidSlices(outputDir, prefix string, width int) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for _, axis := range []string{"x", "y", "z"} {
		p, _ := planeFor(axis)
		img, err := v.Preview(axis, v.grid.Dimensions[p.fixedAxis]/2, width)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", prefix, axis))
		if err := v.SaveSlice(img, path); err != nil {
			return nil, fmt.Errorf("error saving %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
