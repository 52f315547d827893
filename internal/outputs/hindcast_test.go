package outputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inovacc/aimodels/internal/fields"
)

// recordingOutput captures written fields for assertions.
type recordingOutput struct {
	written fields.List
}

func (r *recordingOutput) Write(f *fields.Field) (map[string]string, string, error) {
	r.written = append(r.written, f)
	return map[string]string{"param": f.Param}, "out.nc", nil
}

func (r *recordingOutput) Finalise() error { return nil }

func TestHindcastRelabelRequiresReference(t *testing.T) {
	_, err := NewHindcastRelabel(&recordingOutput{}, 0, 0)
	assert.Error(t, err)
}

func TestHindcastRelabelWithReferenceYear(t *testing.T) {
	rec := &recordingOutput{}
	h, err := NewHindcastRelabel(rec, 2002, 0)
	require.NoError(t, err)

	f := outputField("2t", 6)
	f.Date = 20230101

	keys, path, err := h.Write(f)
	require.NoError(t, err)

	assert.Equal(t, "out.nc", path)
	assert.Equal(t, "20020101", keys["referenceDate"])
	assert.Equal(t, "20230101", keys["hdate"])

	require.Len(t, rec.written, 1)
	assert.Equal(t, 20230101, rec.written[0].HDate)

	// The original field is untouched.
	assert.Equal(t, 0, f.HDate)
}

func TestHindcastRelabelWithReferenceDate(t *testing.T) {
	rec := &recordingOutput{}
	h, err := NewHindcastRelabel(rec, 0, 20020115)
	require.NoError(t, err)

	keys, _, err := h.Write(outputField("2t", 0))
	require.NoError(t, err)
	assert.Equal(t, "20020115", keys["referenceDate"])
}

func TestHindcastRelabelExistingHindcastMismatch(t *testing.T) {
	h, err := NewHindcastRelabel(&recordingOutput{}, 2002, 0)
	require.NoError(t, err)

	f := outputField("2t", 0)
	f.Date = 20230101
	f.HDate = 20210101

	// Already a hindcast: the date must equal the derived reference
	// date, which is 20020101 here.
	_, _, err = h.Write(f)
	assert.Error(t, err)
}

func TestHindcastRelabelExistingHindcastMatch(t *testing.T) {
	rec := &recordingOutput{}
	h, err := NewHindcastRelabel(rec, 0, 20020101)
	require.NoError(t, err)

	f := outputField("2t", 0)
	f.Date = 20020101
	f.HDate = 20210101

	keys, _, err := h.Write(f)
	require.NoError(t, err)

	assert.Equal(t, "20020101", keys["referenceDate"])
	assert.Equal(t, "20210101", keys["hdate"])
	require.Len(t, rec.written, 1)
	assert.Equal(t, 20210101, rec.written[0].HDate)
}
