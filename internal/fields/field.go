// Package fields holds the in-memory representation of geospatial fields
// exchanged between input sources, models and outputs.
package fields

import (
	"fmt"
	"time"
)

// Level types used across inputs and outputs.
const (
	LevtypeSurface  = "sfc"
	LevtypePressure = "pl"
	LevtypeModel    = "ml"
)

// Field is a single 2-D field on a regular latitude/longitude grid.
// Values are row-major, first row at Lats[0].
type Field struct {
	// Param is the short parameter name, e.g. "2t", "msl", "z".
	Param string

	// Levtype is one of sfc, pl or ml.
	Levtype string

	// Level is the pressure or model level. Zero for surface fields.
	Level int

	// Date is the analysis date as YYYYMMDD.
	Date int

	// Time is the analysis time as HHMM.
	Time int

	// Step is the forecast step in hours.
	Step int

	// HDate is the hindcast date as YYYYMMDD, zero when not a hindcast.
	HDate int

	// StepType marks accumulated fields ("accum"), empty for instantaneous.
	StepType string

	Lats   []float32
	Lons   []float32
	Values []float32
}

// Shape returns (nlat, nlon).
func (f *Field) Shape() (int, int) {
	return len(f.Lats), len(f.Lons)
}

// BaseTime returns the analysis date/time as a UTC time.
func (f *Field) BaseTime() time.Time {
	return time.Date(
		f.Date/10000, time.Month(f.Date/100%100), f.Date%100,
		f.Time/100, f.Time%100, 0, 0, time.UTC,
	)
}

// ValidTime returns the base time advanced by the forecast step.
func (f *Field) ValidTime() time.Time {
	return f.BaseTime().Add(time.Duration(f.Step) * time.Hour)
}

func (f *Field) String() string {
	if f.Levtype == LevtypeSurface {
		return fmt.Sprintf("%s/%s date=%d time=%04d step=%d", f.Param, f.Levtype, f.Date, f.Time, f.Step)
	}
	return fmt.Sprintf("%s/%s/%d date=%d time=%04d step=%d", f.Param, f.Levtype, f.Level, f.Date, f.Time, f.Step)
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	c := *f
	c.Lats = append([]float32(nil), f.Lats...)
	c.Lons = append([]float32(nil), f.Lons...)
	c.Values = append([]float32(nil), f.Values...)
	return &c
}
