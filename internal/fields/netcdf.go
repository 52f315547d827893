package fields

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Field variables are stored as 2-D float32 arrays over the shared
// latitude/longitude coordinate variables. Field identity (param, levtype,
// level, date, time, step) travels in variable attributes so the variable
// name itself only needs to be unique within the file.

const (
	varLatitude  = "latitude"
	varLongitude = "longitude"
)

// ReadFile loads all fields from a NetCDF file.
func ReadFile(path string) (List, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	lats, err := coordValues(nc, varLatitude)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lons, err := coordValues(nc, varLongitude)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var out List
	for _, name := range nc.ListVariables() {
		if name == varLatitude || name == varLongitude {
			continue
		}

		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("%s: variable %s: %w", path, name, err)
		}

		values, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("%s: variable %s: %w", path, name, err)
		}

		rows, ok := values.([][]float32)
		if !ok {
			return nil, fmt.Errorf("%s: variable %s: unexpected type %T", path, name, values)
		}

		flat := make([]float32, 0, len(lats)*len(lons))
		for _, row := range rows {
			flat = append(flat, row...)
		}

		attrs := vg.Attributes()
		f := &Field{
			Param:    attrString(attrs, "param"),
			Levtype:  attrString(attrs, "levtype"),
			Level:    attrInt(attrs, "level"),
			Date:     attrInt(attrs, "date"),
			Time:     attrInt(attrs, "time"),
			Step:     attrInt(attrs, "step"),
			HDate:    attrInt(attrs, "hdate"),
			StepType: attrString(attrs, "stepType"),
			Lats:     lats,
			Lons:     lons,
			Values:   flat,
		}

		if f.Param == "" {
			return nil, fmt.Errorf("%s: variable %s has no param attribute", path, name)
		}

		out = append(out, f)
	}

	return out, nil
}

// WriteFile stores the fields into a NetCDF (classic format) file.
// All fields must share the same grid. Global metadata keys become global
// attributes.
func WriteFile(path string, l List, metadata map[string]string) error {
	if len(l) == 0 {
		return fmt.Errorf("write %s: no fields", path)
	}

	lats, lons := l[0].Lats, l[0].Lons
	for _, f := range l {
		if len(f.Lats) != len(lats) || len(f.Lons) != len(lons) {
			return fmt.Errorf("write %s: field %s has a different grid", path, f)
		}
		if len(f.Values) != len(lats)*len(lons) {
			return fmt.Errorf("write %s: field %s has %d values for a %dx%d grid",
				path, f, len(f.Values), len(lats), len(lons))
		}
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		vals := make(map[string]any, len(metadata))
		for k, v := range metadata {
			keys = append(keys, k)
			vals[k] = v
		}
		gattrs, err := util.NewOrderedMap(keys, vals)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := cw.AddGlobalAttrs(gattrs); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	if err := cw.AddVar(varLatitude, api.Variable{
		Values:     lats,
		Dimensions: []string{varLatitude},
	}); err != nil {
		return fmt.Errorf("write %s: latitude: %w", path, err)
	}
	if err := cw.AddVar(varLongitude, api.Variable{
		Values:     lons,
		Dimensions: []string{varLongitude},
	}); err != nil {
		return fmt.Errorf("write %s: longitude: %w", path, err)
	}

	for i, f := range l {
		attrs, err := fieldAttrs(f)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		rows := make([][]float32, len(lats))
		for r := range rows {
			rows[r] = f.Values[r*len(lons) : (r+1)*len(lons)]
		}

		name := fmt.Sprintf("field_%03d_%s", i, sanitizeName(f.Param))
		if err := cw.AddVar(name, api.Variable{
			Values:     rows,
			Dimensions: []string{varLatitude, varLongitude},
			Attributes: attrs,
		}); err != nil {
			return fmt.Errorf("write %s: field %s: %w", path, f, err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

func fieldAttrs(f *Field) (api.AttributeMap, error) {
	keys := []string{"param", "levtype", "level", "date", "time", "step"}
	vals := map[string]any{
		"param":   f.Param,
		"levtype": f.Levtype,
		"level":   int32(f.Level),
		"date":    int32(f.Date),
		"time":    int32(f.Time),
		"step":    int32(f.Step),
	}
	if f.HDate != 0 {
		keys = append(keys, "hdate")
		vals["hdate"] = int32(f.HDate)
	}
	if f.StepType != "" {
		keys = append(keys, "stepType")
		vals["stepType"] = f.StepType
	}
	return util.NewOrderedMap(keys, vals)
}

func coordValues(nc api.Group, name string) ([]float32, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", name, err)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", name, err)
	}
	switch vals := v.(type) {
	case []float32:
		return vals, nil
	case []float64:
		out := make([]float32, len(vals))
		for i, x := range vals {
			out[i] = float32(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("coordinate %s: unexpected type %T", name, v)
	}
}

func attrString(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, has := attrs.Get(key)
	if !has {
		return ""
	}
	s, _ := v.(string)
	return s
}

func attrInt(attrs api.AttributeMap, key string) int {
	if attrs == nil {
		return 0
	}
	v, has := attrs.Get(key)
	if !has {
		return 0
	}
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case []int32:
		if len(n) > 0 {
			return int(n[0])
		}
	case []int64:
		if len(n) > 0 {
			return int(n[0])
		}
	}
	return 0
}

func sanitizeName(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
