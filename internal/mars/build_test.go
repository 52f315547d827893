package mars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() Input {
	return Input{
		ParamPL:  []string{"t", "z"},
		LevelPL:  []int{1000, 500},
		ParamSfc: []string{"2t", "msl"},
		Grid:     []float64{0.25, 0.25},
		Area:     []float64{90, 0, -90, 360},
	}
}

func TestBuildOneDatetime(t *testing.T) {
	reqs := Build(testInput(), []DateTime{{Date: 20230101, Time: 12}}, BuildOptions{Target: "input.nc"})
	require.Len(t, reqs, 2)

	pl := reqs[0]
	assert.Equal(t, "pl", pl.First("levtype"))
	assert.Equal(t, []string{"t", "z"}, pl.Get("param"))
	assert.Equal(t, []string{"1000", "500"}, pl.Get("levelist"))
	assert.Equal(t, "20230101", pl.First("date"))
	assert.Equal(t, "12", pl.First("time"))

	assert.Equal(t, "input.nc", pl.First("target"))
	assert.Equal(t, []string{"0.25", "0.25"}, pl.Get("grid"))
	assert.Equal(t, []string{"90", "0", "-90", "360"}, pl.Get("area"))

	// The single-level request is derived from the pressure-level one
	// and keeps target, grid and area.
	sfc := reqs[1]
	assert.Equal(t, "sfc", sfc.First("levtype"))
	assert.Equal(t, []string{"2t", "msl"}, sfc.Get("param"))
	assert.Empty(t, sfc.Get("levelist"))
	assert.Equal(t, "input.nc", sfc.First("target"))
	assert.Equal(t, []string{"0.25", "0.25"}, sfc.Get("grid"))
}

func TestBuildLaggedDatetimes(t *testing.T) {
	dts := []DateTime{{Date: 20230101, Time: 6}, {Date: 20230101, Time: 12}}

	reqs := Build(testInput(), dts, BuildOptions{Target: "input.nc"})
	require.Len(t, reqs, 4)

	// Both requests of the first datetime carry the target; later
	// datetimes never do.
	assert.Equal(t, "input.nc", reqs[0].First("target"))
	assert.Equal(t, "input.nc", reqs[1].First("target"))
	for _, r := range reqs[2:] {
		assert.Empty(t, r.First("target"))
	}

	assert.Equal(t, "6", reqs[0].First("time"))
	assert.Equal(t, "12", reqs[2].First("time"))
}

func TestBuildExtraAndPatch(t *testing.T) {
	extra := Request{"class": {"od"}}
	patched := 0

	reqs := Build(testInput(), []DateTime{{Date: 20230101, Time: 0}}, BuildOptions{
		Extra: extra,
		Patch: func(r Request) {
			patched++
			r.Set("stream", "enfo")
		},
	})
	require.Len(t, reqs, 2)

	assert.Equal(t, "od", reqs[0].First("class"))
	assert.Equal(t, "enfo", reqs[0].First("stream"))
	assert.Equal(t, "enfo", reqs[1].First("stream"))
	assert.Equal(t, 2, patched)
}

func TestBuildRetrieveKeys(t *testing.T) {
	in := testInput()
	in.Retrieve = map[string]string{"stream": "wave"}

	reqs := Build(in, []DateTime{{Date: 20230101, Time: 12}}, BuildOptions{})
	require.Len(t, reqs, 2)

	assert.Equal(t, "wave", reqs[0].First("stream"))
}
