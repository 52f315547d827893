package inputs

import "github.com/inovacc/aimodels/internal/fields"

// Standard gravity, as used by pgen.
const gravity = 9.80665

// MakeZFromGH converts geopotential height fields (gh) into geopotential
// (z = gh * g), leaving other fields untouched.
func MakeZFromGH(l fields.List) fields.List {
	out := make(fields.List, 0, len(l))
	for _, f := range l {
		if f.Param != "gh" {
			out = append(out, f)
			continue
		}

		c := f.Clone()
		c.Param = "z"
		for i := range c.Values {
			c.Values[i] *= gravity
		}
		out = append(out, c)
	}
	return out
}
