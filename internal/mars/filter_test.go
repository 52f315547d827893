package mars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRequests(t *testing.T) []Request {
	t.Helper()

	dts := []DateTime{{Date: 20230101, Time: 6}, {Date: 20230101, Time: 12}}
	return Build(testInput(), dts, BuildOptions{})
}

func TestFilterAll(t *testing.T) {
	reqs := buildTestRequests(t)
	got := Filter(reqs, FieldsAll, []string{"msl"}, false)
	assert.Len(t, got, len(reqs))
}

func TestFilterConstants(t *testing.T) {
	reqs := buildTestRequests(t)

	got := Filter(reqs, FieldsConstants, []string{"msl"}, false)
	require.Len(t, got, 2)

	for _, r := range got {
		assert.Equal(t, "sfc", r.First("levtype"))
		assert.Equal(t, []string{"msl"}, r.Get("param"))
	}
}

func TestFilterPrognostics(t *testing.T) {
	reqs := buildTestRequests(t)

	got := Filter(reqs, FieldsPrognostics, []string{"msl"}, false)
	require.Len(t, got, 4)

	for _, r := range got {
		if r.First("levtype") == "sfc" {
			assert.Equal(t, []string{"2t"}, r.Get("param"))
		}
	}
}

func TestFilterOnlyLastDate(t *testing.T) {
	reqs := buildTestRequests(t)

	got := Filter(reqs, FieldsAll, nil, true)
	require.Len(t, got, 2)

	for _, r := range got {
		assert.Equal(t, "12", r.First("time"))
	}
}

func TestFilterLastDateComparesNumerically(t *testing.T) {
	// "6" sorts after "12" as a string but not as a number.
	reqs := []Request{
		{"date": {"20230101"}, "time": {"6"}},
		{"date": {"20230101"}, "time": {"12"}},
	}

	got := Filter(reqs, FieldsAll, nil, true)
	require.Len(t, got, 1)
	assert.Equal(t, "12", got[0].First("time"))
}
