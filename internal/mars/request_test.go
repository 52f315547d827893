package mars

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFormat(t *testing.T) {
	r := Request{}
	r.Set("param", "z", "t", "msl")
	r.SetInt("date", 20230101)
	r.Set("area", "90", "0", "-90", "360")

	var b strings.Builder
	r.Format(&b, "retrieve")

	got := b.String()

	// Keys are sorted, values sorted except for area/grid-like keys.
	assert.Equal(t, "retrieve,\n   area=90/0/-90/360,\n   date=20230101,\n   param=msl/t/z\n\n", got)
}

func TestRequestFormatKeepsGridOrder(t *testing.T) {
	r := Request{}
	r.Set("grid", "0.25", "0.25")
	r.Set("area", "90", "0", "-90", "360")

	var b strings.Builder
	r.Format(&b, "retrieve")

	assert.Contains(t, b.String(), "area=90/0/-90/360")
	assert.Contains(t, b.String(), "grid=0.25/0.25")
}

func TestRequestMarshalJSON(t *testing.T) {
	r := Request{}
	r.Set("date", "20230101")
	r.Set("param", "z", "t")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "20230101", got["date"])
	assert.Equal(t, []any{"z", "t"}, got["param"])
}

func TestRequestUpdateOverrides(t *testing.T) {
	r := Request{}
	r.Set("stream", "oper")
	r.Set("date", "20230101")

	r.Update(Request{"stream": {"enfo"}})

	assert.Equal(t, "enfo", r.First("stream"))
	assert.Equal(t, "20230101", r.First("date"))
}

func TestRequestClone(t *testing.T) {
	r := Request{}
	r.Set("param", "z")

	c := r.Clone()
	c.Set("param", "t")

	assert.Equal(t, "z", r.First("param"))
	assert.Equal(t, "t", c.First("param"))
}

func TestParseExtra(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Request
		wantErr bool
	}{
		{
			name:  "empty",
			input: "",
			want:  Request{},
		},
		{
			name:  "single pair",
			input: "class=od",
			want:  Request{"class": {"od"}},
		},
		{
			name:  "multiple pairs",
			input: "class=od,stream=enfo",
			want:  Request{"class": {"od"}, "stream": {"enfo"}},
		},
		{
			name:  "slash separated values",
			input: "number=1/2/3",
			want:  Request{"number": {"1", "2", "3"}},
		},
		{
			name:    "missing equals",
			input:   "class",
			wantErr: true,
		},
		{
			name:    "empty key",
			input:   "=od",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtra(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
