// Package volumeio reads and writes volumes as a YAML header next to a raw
// sample file.
//
// A header looks like:
//
//	dimensions: [50, 50, 50]
//	spacing: [0.5, 0.5, 1.0]
//	origin: [-12.5, -12.5, 0]
//	direction: [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
//	scalarType: int16
//	byteOrder: little
//	dataFile: head.raw
//
// Direction lists the physical direction of the i, j and k axes. The data
// file path is relative to the header.
package volumeio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
)

var (
	// ErrInvalidHeader marks a header with missing or inconsistent fields
	ErrInvalidHeader = errors.New("invalid volume header")

	// ErrUnsupportedScalar marks an unknown scalar type name
	ErrUnsupportedScalar = errors.New("unsupported scalar type")
)

// ScalarType names the on-disk sample encoding
type ScalarType string

// Supported scalar types
const (
	Uint8   ScalarType = "uint8"
	Int16   ScalarType = "int16"
	Uint16  ScalarType = "uint16"
	Float32 ScalarType = "float32"
	Float64 ScalarType = "float64"
)

// Size returns the number of bytes per sample
func (s ScalarType) Size() (int, error) {
	switch s {
	case Uint8:
		return 1, nil
	case Int16, Uint16:
		return 2, nil
	case Float32:
		return 4, nil
	case Float64:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedScalar, string(s))
}

// Header describes the geometry and encoding of a raw volume
type Header struct {
	Dimensions [3]int        `yaml:"dimensions"`
	Spacing    [3]float64    `yaml:"spacing"`
	Origin     [3]float64    `yaml:"origin"`
	Direction  [3][3]float64 `yaml:"direction"`
	ScalarType ScalarType    `yaml:"scalarType"`
	ByteOrder  string        `yaml:"byteOrder"`
	DataFile   string        `yaml:"dataFile"`
}

// HeaderFromGrid describes g. The data file name is left empty.
func HeaderFromGrid(g models.Grid, scalar ScalarType) Header {
	spacing := g.Spacing()
	origin := g.Origin()
	dir := g.IndexToPhysical.Direction()
	h := Header{
		Dimensions: g.Dimensions,
		Spacing:    [3]float64{spacing.X, spacing.Y, spacing.Z},
		Origin:     [3]float64{origin.X, origin.Y, origin.Z},
		ScalarType: scalar,
		ByteOrder:  "little",
	}
	for axis := 0; axis < 3; axis++ {
		c := dir.Column(axis)
		h.Direction[axis] = [3]float64{c.X, c.Y, c.Z}
	}
	return h
}

// Validate checks the header fields
func (h Header) Validate() error {
	if _, err := models.VoxelCount(h.Dimensions); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	for axis := 0; axis < 3; axis++ {
		if s := h.Spacing[axis]; !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: spacing %d is %g", ErrInvalidHeader, axis, s)
		}
	}
	if _, err := h.ScalarType.Size(); err != nil {
		return err
	}
	if _, err := h.byteOrder(); err != nil {
		return err
	}
	_, err := h.direction()
	return err
}

// Transform returns the index-to-physical transform encoded by the header
func (h Header) Transform() (geometry.Transform, error) {
	dir, err := h.direction()
	if err != nil {
		return geometry.Transform{}, err
	}
	origin := r3.Vec{X: h.Origin[0], Y: h.Origin[1], Z: h.Origin[2]}
	spacing := r3.Vec{X: h.Spacing[0], Y: h.Spacing[1], Z: h.Spacing[2]}
	return geometry.NewTransform(origin, spacing, dir), nil
}

// NumVoxels returns the product of the header dimensions
func (h Header) NumVoxels() int {
	return h.Dimensions[0] * h.Dimensions[1] * h.Dimensions[2]
}

func (h Header) direction() (geometry.Rotation, error) {
	if h.Direction == ([3][3]float64{}) {
		return geometry.IdentityRotation(), nil
	}
	col := func(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
	dir, err := geometry.RotationFromColumns(col(h.Direction[0]), col(h.Direction[1]), col(h.Direction[2]))
	if err != nil {
		return geometry.Rotation{}, fmt.Errorf("%w: direction: %w", ErrInvalidHeader, err)
	}
	return dir, nil
}

func (h Header) byteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(h.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: byte order %q", ErrInvalidHeader, h.ByteOrder)
}

// LoadHeader reads and validates a header file
func LoadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, fmt.Errorf("error reading header: %w", err)
	}
	var h Header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Load reads a volume from its header path
func Load(path string) (models.Grid, Header, error) {
	h, err := LoadHeader(path)
	if err != nil {
		return models.Grid{}, Header{}, err
	}
	if h.DataFile == "" {
		return models.Grid{}, Header{}, fmt.Errorf("%w: dataFile missing", ErrInvalidHeader)
	}
	t, err := h.Transform()
	if err != nil {
		return models.Grid{}, Header{}, err
	}

	dataPath := h.DataFile
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return models.Grid{}, Header{}, fmt.Errorf("error opening data file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.Grid{}, Header{}, fmt.Errorf("error reading data file: %w", err)
	}
	// Validate bounds the voxel count, so this product cannot overflow
	size, _ := h.ScalarType.Size()
	if want := int64(h.NumVoxels()) * int64(size); info.Size() < want {
		return models.Grid{}, Header{}, fmt.Errorf("%w: %s holds %d bytes, %d needed", ErrInvalidHeader, dataPath, info.Size(), want)
	}

	g := models.NewGrid(h.Dimensions, t)
	if err := ReadSamples(bufio.NewReader(f), h, g.Samples); err != nil {
		return models.Grid{}, Header{}, fmt.Errorf("error reading %s: %w", dataPath, err)
	}
	return g, h, nil
}

// Save writes g as <path> plus a raw data file with the same base name and
// a .raw extension. Samples are rounded and clamped for integer types.
func Save(path string, g models.Grid, scalar ScalarType) (Header, error) {
	if err := g.Validate(); err != nil {
		return Header{}, err
	}
	if !g.HasSamples() {
		return Header{}, fmt.Errorf("%w: grid has no samples", models.ErrInvalidGrid)
	}
	h := HeaderFromGrid(g, scalar)
	h.DataFile = BaseName(path) + ".raw"
	if err := h.Validate(); err != nil {
		return Header{}, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Header{}, fmt.Errorf("error creating output directory: %w", err)
	}

	data, err := yaml.Marshal(h)
	if err != nil {
		return Header{}, fmt.Errorf("error marshaling header: %w", err)
	}

	dataPath := filepath.Join(dir, h.DataFile)
	if err := writeDataFile(dataPath, h, g.Samples); err != nil {
		os.Remove(dataPath)
		return Header{}, err
	}
	// a data file is never left behind without its header
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.Remove(dataPath)
		return Header{}, fmt.Errorf("error writing header: %w", err)
	}
	return h, nil
}

func writeDataFile(path string, h Header, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating data file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteSamples(w, h, samples); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error writing data file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing data file: %w", err)
	}
	return nil
}

// ReadSamples decodes len(dst) samples of the header's scalar type from r
func ReadSamples(r io.Reader, h Header, dst []float64) error {
	order, err := h.byteOrder()
	if err != nil {
		return err
	}
	n := len(dst)
	switch h.ScalarType {
	case Uint8:
		buf := make([]uint8, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		for i, v := range buf {
			dst[i] = float64(v)
		}
	case Int16:
		buf := make([]int16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return err
		}
		for i, v := range buf {
			dst[i] = float64(v)
		}
	case Uint16:
		buf := make([]uint16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return err
		}
		for i, v := range buf {
			dst[i] = float64(v)
		}
	case Float32:
		buf := make([]float32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return err
		}
		for i, v := range buf {
			dst[i] = float64(v)
		}
	case Float64:
		if err := binary.Read(r, order, dst); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScalar, string(h.ScalarType))
	}
	return nil
}

// WriteSamples encodes src in the header's scalar type to w
func WriteSamples(w io.Writer, h Header, src []float64) error {
	order, err := h.byteOrder()
	if err != nil {
		return err
	}
	var data any
	switch h.ScalarType {
	case Uint8:
		buf := make([]uint8, len(src))
		for i, v := range src {
			buf[i] = uint8(clampRound(v, 0, math.MaxUint8))
		}
		data = buf
	case Int16:
		buf := make([]int16, len(src))
		for i, v := range src {
			buf[i] = int16(clampRound(v, math.MinInt16, math.MaxInt16))
		}
		data = buf
	case Uint16:
		buf := make([]uint16, len(src))
		for i, v := range src {
			buf[i] = uint16(clampRound(v, 0, math.MaxUint16))
		}
		data = buf
	case Float32:
		buf := make([]float32, len(src))
		for i, v := range src {
			buf[i] = float32(v)
		}
		data = buf
	case Float64:
		data = src
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScalar, string(h.ScalarType))
	}
	if err := binary.Write(w, order, data); err != nil {
		return fmt.Errorf("error writing samples: %w", err)
	}
	return nil
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
