package volumeio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
)

func createTestGrid(t *testing.T) models.Grid {
	t.Helper()
	rot, err := geometry.RotationFromAxisAngle(r3.Vec{Z: 1}, math.Pi/2)
	require.NoError(t, err)
	tr := geometry.NewTransform(r3.Vec{X: -10, Y: 4, Z: 2.5}, r3.Vec{X: 0.5, Y: 0.75, Z: 2}, rot)
	g := models.NewGrid([3]int{6, 5, 4}, tr)
	for n := range g.Samples {
		g.Samples[n] = float64(n*7%300) - 100
	}
	return g
}

// TestSaveLoadRoundTrip writes each scalar type and reads it back
func TestSaveLoadRoundTrip(t *testing.T) {
	g := createTestGrid(t)
	for _, scalar := range []ScalarType{Int16, Float32, Float64} {
		t.Run(string(scalar), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "volume.yaml")
			h, err := Save(path, g, scalar)
			require.NoError(t, err)
			assert.Equal(t, "volume.raw", h.DataFile)

			info, err := os.Stat(filepath.Join(filepath.Dir(path), "volume.raw"))
			require.NoError(t, err)
			size, _ := scalar.Size()
			assert.Equal(t, int64(g.NumVoxels()*size), info.Size())

			loaded, lh, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, h, lh)
			assert.Equal(t, g.Dimensions, loaded.Dimensions)
			assert.True(t, g.IndexToPhysical.ApproxEqual(loaded.IndexToPhysical, 1e-12))
			assert.Equal(t, g.Samples, loaded.Samples)
		})
	}
}

// TestIntegerTypesClamp rounds and clamps on write
func TestIntegerTypesClamp(t *testing.T) {
	src := []float64{-5, 0.4, 0.6, 254.7, 300, math.NaN()}
	var buf bytes.Buffer
	h := Header{ScalarType: Uint8}
	require.NoError(t, WriteSamples(&buf, h, src))

	dst := make([]float64, len(src))
	require.NoError(t, ReadSamples(&buf, h, dst))
	assert.Equal(t, []float64{0, 0, 1, 255, 255, 0}, dst)
}

// TestBigEndian checks the byte order switch
func TestBigEndian(t *testing.T) {
	var buf bytes.Buffer
	h := Header{ScalarType: Uint16, ByteOrder: "big"}
	require.NoError(t, WriteSamples(&buf, h, []float64{258}))
	assert.Equal(t, []byte{1, 2}, buf.Bytes())

	dst := make([]float64, 1)
	require.NoError(t, ReadSamples(bytes.NewReader([]byte{1, 2}), h, dst))
	assert.Equal(t, 258.0, dst[0])
}

// TestShortDataFile reports truncated sample data
func TestShortDataFile(t *testing.T) {
	dst := make([]float64, 4)
	err := ReadSamples(bytes.NewReader([]byte{1, 0, 2, 0}), Header{ScalarType: Int16}, dst)
	assert.Error(t, err)
}

// TestLoadHeaderValidation rejects malformed headers
func TestLoadHeaderValidation(t *testing.T) {
	cases := map[string]string{
		"zero dimension": "dimensions: [0, 4, 4]\nspacing: [1, 1, 1]\nscalarType: uint8\n",
		"bad spacing":    "dimensions: [4, 4, 4]\nspacing: [1, -1, 1]\nscalarType: uint8\n",
		"bad scalar":     "dimensions: [4, 4, 4]\nspacing: [1, 1, 1]\nscalarType: int64\n",
		"bad order":      "dimensions: [4, 4, 4]\nspacing: [1, 1, 1]\nscalarType: uint8\nbyteOrder: middle\n",
		"sheared axes":   "dimensions: [4, 4, 4]\nspacing: [1, 1, 1]\nscalarType: uint8\ndirection: [[1, 0, 0], [1, 1, 0], [0, 0, 1]]\n",
		"too many":       "dimensions: [100000, 100000, 100000]\nspacing: [1, 1, 1]\nscalarType: uint8\n",
		"wrapping count": "dimensions: [2097152, 2097152, 4194304]\nspacing: [1, 1, 1]\nscalarType: uint8\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := LoadHeader(path)
			assert.Error(t, err)
		})
	}
}

// TestHeaderDefaults treats a missing direction as identity
func TestHeaderDefaults(t *testing.T) {
	h := Header{
		Dimensions: [3]int{2, 2, 2},
		Spacing:    [3]float64{0.5, 0.5, 1},
		Origin:     [3]float64{1, 2, 3},
		ScalarType: Float32,
	}
	require.NoError(t, h.Validate())
	tr, err := h.Transform()
	require.NoError(t, err)
	want := geometry.NewTransform(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 0.5, Y: 0.5, Z: 1}, geometry.IdentityRotation())
	assert.Equal(t, want, tr)
}

// TestLoadMissingDataFile fails cleanly
func TestLoadMissingDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.yaml")
	body := "dimensions: [2, 2, 2]\nspacing: [1, 1, 1]\nscalarType: uint8\ndataFile: nowhere.raw\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

// TestLoadTruncatedDataFile rejects a data file smaller than the header needs
// before allocating the grid
func TestLoadTruncatedDataFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.yaml")
	body := "dimensions: [4, 4, 4]\nspacing: [1, 1, 1]\nscalarType: int16\ndataFile: h.raw\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "h.raw"), make([]byte, 127), 0644))

	_, _, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "h.raw"), make([]byte, 128), 0644))
	g, _, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, g.Samples, 64)
}

// TestSaveHeaderFailureRemovesData leaves no orphaned data file behind
func TestSaveHeaderFailureRemovesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.yaml")
	require.NoError(t, os.Mkdir(path, 0755))

	_, err := Save(path, createTestGrid(t), Int16)
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "volume.raw"))
	assert.True(t, os.IsNotExist(err))
}

// TestPhantom checks the tissue classes land where expected
func TestPhantom(t *testing.T) {
	g := NewPhantom([3]int{41, 41, 21}, r3.Vec{X: 1, Y: 1, Z: 2})
	require.NoError(t, g.Validate())
	assert.Equal(t, r3.Vec{X: -20, Y: -20, Z: -20}, g.Origin())

	assert.Equal(t, AirHU, g.At(0, 0, 0))
	assert.Equal(t, TissueHU, g.At(20, 20, 10))

	// nodule centre at 0.55 * 0.45 * 40 = 9.9 mm along x
	assert.Equal(t, DenseHU, g.At(30, 22, 10))

	stats := g.Stats()
	assert.Equal(t, AirHU, stats.Min)
	assert.Equal(t, DenseHU, stats.Max)
}

// TestUniqueOutputPath skips names already taken
func TestUniqueOutputPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "head", BaseName("/data/head.yaml"))

	first := UniqueOutputPath(dir, "head")
	assert.Equal(t, filepath.Join(dir, "Cropped_head_1.yaml"), first)
	require.NoError(t, os.WriteFile(first, nil, 0644))

	assert.Equal(t, filepath.Join(dir, "Cropped_head_2.yaml"), UniqueOutputPath(dir, "head"))
}
