package mars

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveCollectorAdd(t *testing.T) {
	c := NewArchiveCollector()

	require.NoError(t, c.Add(map[string]string{"date": "20230101", "param": "2t", "step": "0"}))
	require.NoError(t, c.Add(map[string]string{"date": "20230101", "param": "msl", "step": "6"}))

	assert.Equal(t, 2, c.Expect)

	r := c.Request("out.nc", nil)
	assert.Equal(t, "2", r.First("expect"))
	assert.Equal(t, `"out.nc"`, r.First("source"))
	assert.Equal(t, []string{"2t", "msl"}, r.Get("param"))
	assert.Equal(t, []string{"0", "6"}, r.Get("step"))
}

func TestArchiveCollectorStepSet(t *testing.T) {
	c := NewArchiveCollector()

	for _, step := range []string{"12", "0", "6"} {
		require.NoError(t, c.Add(map[string]string{"param": "2t", "step": step}))
	}

	// Step values are strings and sort lexically, like in the printed
	// request.
	r := c.Request("", nil)
	assert.Equal(t, []string{"0", "12", "6"}, r.Get("step"))
}

func TestArchiveCollectorUniqueKeyConflict(t *testing.T) {
	c := NewArchiveCollector()

	require.NoError(t, c.Add(map[string]string{"date": "20230101"}))

	err := c.Add(map[string]string{"date": "20230102"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestArchiveCollectorRequestExtra(t *testing.T) {
	c := NewArchiveCollector()
	require.NoError(t, c.Add(map[string]string{"expver": "0001"}))

	extra := Request{"expver": {"xxxx"}}
	r := c.Request("", extra)

	// Extra keys override collected ones; no source without a path.
	assert.Equal(t, "xxxx", r.First("expver"))
	assert.Empty(t, r.First("source"))

	var b strings.Builder
	r.Format(&b, "archive")
	assert.True(t, strings.HasPrefix(b.String(), "archive,\n"))
}
