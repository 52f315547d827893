package fields

import "sort"

// List is an ordered collection of fields.
type List []*Field

// SelLevtype returns the fields with the given level type.
func (l List) SelLevtype(levtype string) List {
	return l.sel(func(f *Field) bool { return f.Levtype == levtype })
}

// SelParam returns the fields whose parameter is one of params.
func (l List) SelParam(params ...string) List {
	set := make(map[string]struct{}, len(params))
	for _, p := range params {
		set[p] = struct{}{}
	}
	return l.sel(func(f *Field) bool {
		_, ok := set[f.Param]
		return ok
	})
}

// SelLevel returns the fields whose level is one of levels.
func (l List) SelLevel(levels ...int) List {
	set := make(map[int]struct{}, len(levels))
	for _, lv := range levels {
		set[lv] = struct{}{}
	}
	return l.sel(func(f *Field) bool {
		_, ok := set[f.Level]
		return ok
	})
}

func (l List) sel(keep func(*Field) bool) List {
	var out List
	for _, f := range l {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// OrderByValidTime returns a copy sorted by ascending valid time.
// Ties keep the original order.
func (l List) OrderByValidTime() List {
	out := append(List(nil), l...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValidTime().Before(out[j].ValidTime())
	})
	return out
}

// StartTime returns the latest valid time present in the list, which is
// the starting point of the forecast for lagged inputs.
func (l List) StartTime() (t int64, ok bool) {
	ordered := l.OrderByValidTime()
	if len(ordered) == 0 {
		return 0, false
	}
	return ordered[len(ordered)-1].ValidTime().Unix(), true
}

// GridPoints returns the number of grid points of the first field.
func (l List) GridPoints() int {
	if len(l) == 0 {
		return 0
	}
	return len(l[0].Values)
}
