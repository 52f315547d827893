package fields

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridField(param, levtype string, level int) *Field {
	return &Field{
		Param:   param,
		Levtype: levtype,
		Level:   level,
		Date:    20230101,
		Time:    1200,
		Step:    6,
		Lats:    []float32{90, 89.75},
		Lons:    []float32{0, 0.25, 0.5},
		Values:  []float32{1, 2, 3, 4, 5, 6},
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.nc")

	in := List{
		gridField("2t", LevtypeSurface, 0),
		gridField("t", LevtypePressure, 850),
	}
	in[1].HDate = 20220101
	in[1].StepType = "accum"

	require.NoError(t, WriteFile(path, in, map[string]string{"expver": "0001"}))

	out, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byParam := map[string]*Field{}
	for _, f := range out {
		byParam[f.Param] = f
	}

	sfc := byParam["2t"]
	require.NotNil(t, sfc)
	assert.Equal(t, LevtypeSurface, sfc.Levtype)
	assert.Equal(t, 20230101, sfc.Date)
	assert.Equal(t, 1200, sfc.Time)
	assert.Equal(t, 6, sfc.Step)
	assert.Equal(t, []float32{90, 89.75}, sfc.Lats)
	assert.Equal(t, []float32{0, 0.25, 0.5}, sfc.Lons)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, sfc.Values)

	pl := byParam["t"]
	require.NotNil(t, pl)
	assert.Equal(t, 850, pl.Level)
	assert.Equal(t, 20220101, pl.HDate)
	assert.Equal(t, "accum", pl.StepType)
}

func TestWriteFileEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.nc")
	assert.Error(t, WriteFile(path, nil, nil))
}

func TestWriteFileGridMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.nc")

	a := gridField("2t", LevtypeSurface, 0)
	b := gridField("msl", LevtypeSurface, 0)
	b.Lons = []float32{0, 0.25}
	b.Values = []float32{1, 2, 3, 4}

	assert.Error(t, WriteFile(path, List{a, b}, nil))
}

func TestWriteFileShortValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.nc")

	f := gridField("2t", LevtypeSurface, 0)
	f.Values = []float32{1, 2}

	assert.Error(t, WriteFile(path, List{f}, nil))
}
