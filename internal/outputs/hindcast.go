package outputs

import (
	"fmt"
	"strconv"

	"github.com/inovacc/aimodels/internal/fields"
)

// HindcastRelabel wraps an output and rewrites fields so they encode as
// hindcasts: the date becomes the reference date and the original date
// moves to hdate.
type HindcastRelabel struct {
	output Output

	// referenceYear derives the reference date from the field's date
	// when referenceDate is zero.
	referenceYear int

	// referenceDate is the full YYYYMMDD reference date, zero when
	// derived from referenceYear.
	referenceDate int
}

// NewHindcastRelabel requires at least one of year and date.
func NewHindcastRelabel(output Output, year, date int) (*HindcastRelabel, error) {
	if year == 0 && date == 0 {
		return nil, fmt.Errorf("hindcast relabel requires a reference year or date")
	}
	return &HindcastRelabel{output: output, referenceYear: year, referenceDate: date}, nil
}

func (h *HindcastRelabel) Write(f *fields.Field) (map[string]string, string, error) {
	referenceDate := h.referenceDate
	if referenceDate == 0 {
		referenceDate = h.referenceYear*10000 + f.Date%10000
	}

	out := f.Clone()
	if f.HDate != 0 {
		// Input was already a hindcast: the date must match the
		// derived reference date.
		if f.Date != referenceDate {
			return nil, "", fmt.Errorf("hindcast field date %d does not match reference date %d", f.Date, referenceDate)
		}
	} else {
		out.HDate = f.Date
	}

	keys, path, err := h.output.Write(out)
	if err != nil {
		return nil, "", err
	}

	if keys != nil {
		keys["referenceDate"] = strconv.Itoa(referenceDate)
		keys["hdate"] = strconv.Itoa(out.HDate)
	}
	return keys, path, nil
}

func (h *HindcastRelabel) Finalise() error {
	return h.output.Finalise()
}
