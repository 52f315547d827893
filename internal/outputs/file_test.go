package outputs

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inovacc/aimodels/internal/fields"
)

func outputField(param string, step int) *fields.Field {
	return &fields.Field{
		Param:   param,
		Levtype: fields.LevtypeSurface,
		Date:    20230101,
		Time:    1200,
		Step:    step,
		Lats:    []float32{90, 89.75},
		Lons:    []float32{0, 0.25},
		Values:  []float32{1, 2, 3, 4},
	}
}

func TestFileOutputWriteAndFinalise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nc")

	out, err := New("file", Params{Path: path, Expver: "0001", Version: 2})
	require.NoError(t, err)

	keys, gotPath, err := out.Write(outputField("2t", 6))
	require.NoError(t, err)

	assert.Equal(t, path, gotPath)
	assert.Equal(t, "20230101", keys["date"])
	assert.Equal(t, "1200", keys["time"])
	assert.Equal(t, "6", keys["step"])
	assert.Equal(t, "2t", keys["param"])
	assert.Equal(t, "sfc", keys["levtype"])
	assert.Empty(t, keys["levelist"])

	// Output defaults ride on the keys, user metadata would override.
	assert.Equal(t, "oper", keys["stream"])
	assert.Equal(t, "ml", keys["class"])
	assert.Equal(t, "fc", keys["type"])
	assert.Equal(t, "0001", keys["expver"])

	require.NoError(t, out.Finalise())

	read, err := fields.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, read, 1)
	assert.Equal(t, "2t", read[0].Param)
}

func TestFileOutputPressureLevelKeys(t *testing.T) {
	out, err := New("file", Params{Path: filepath.Join(t.TempDir(), "out.nc")})
	require.NoError(t, err)

	f := outputField("t", 0)
	f.Levtype = fields.LevtypePressure
	f.Level = 850

	keys, _, err := out.Write(f)
	require.NoError(t, err)
	assert.Equal(t, "850", keys["levelist"])
}

func TestFileOutputMetadataOverridesDefaults(t *testing.T) {
	out, err := New("file", Params{
		Path:     filepath.Join(t.TempDir(), "out.nc"),
		Metadata: map[string]string{"class": "od", "expver": "xxxx"},
		Expver:   "0001",
	})
	require.NoError(t, err)

	keys, _, err := out.Write(outputField("2t", 0))
	require.NoError(t, err)

	assert.Equal(t, "od", keys["class"])
	assert.Equal(t, "xxxx", keys["expver"])
}

func TestFileOutputRejectsNaN(t *testing.T) {
	out, err := New("file", Params{Path: filepath.Join(t.TempDir(), "out.nc")})
	require.NoError(t, err)

	f := outputField("2t", 0)
	f.Values[2] = float32(math.NaN())

	_, _, err = out.Write(f)
	assert.Error(t, err)

	f = outputField("2t", 0)
	f.Values[0] = float32(math.Inf(1))

	_, _, err = out.Write(f)
	assert.Error(t, err)
}

func TestFileOutputPathTemplate(t *testing.T) {
	dir := t.TempDir()
	out, err := New("file", Params{Path: filepath.Join(dir, "{param}-{step}.nc")})
	require.NoError(t, err)

	_, p1, err := out.Write(outputField("2t", 0))
	require.NoError(t, err)
	_, p2, err := out.Write(outputField("2t", 6))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2t-0.nc"), p1)
	assert.Equal(t, filepath.Join(dir, "2t-6.nc"), p2)

	require.NoError(t, out.Finalise())

	for _, p := range []string{p1, p2} {
		read, err := fields.ReadFile(p)
		require.NoError(t, err)
		assert.Len(t, read, 1)
	}
}

func TestFileOutputRequiresPath(t *testing.T) {
	_, err := New("file", Params{})
	assert.Error(t, err)
}

func TestNoneOutput(t *testing.T) {
	out, err := New("none", Params{})
	require.NoError(t, err)

	keys, path, err := out.Write(outputField("2t", 0))
	require.NoError(t, err)
	assert.Nil(t, keys)
	assert.Empty(t, path)
	assert.NoError(t, out.Finalise())
}
