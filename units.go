/*
Copyright © 2020 the icens authors.
This file is part of icens.

icens is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

icens is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with icens.  If not, see <http://www.gnu.org/licenses/>.
*/

package icens

import (
	"fmt"
	"strings"

	"github.com/ctessum/unit"
	"github.com/ctessum/unit/badunit"
)

// Units identifies the physical units of a value or array.
type Units string

// These are the units that can be attached to fields.
const (
	Percent       Units = "percent"
	Dimensionless Units = "dimensionless"
	Millimeter    Units = "millimeter"
	Inch          Units = "inch"
	Meter         Units = "meter"
	Kilometer     Units = "kilometer"
	Mile          Units = "mile"
	DBZ           Units = "dBZ"
	Meter2PerSec2 Units = "meter ** 2 / second ** 2"
)

// ReflectivityDim is the dimension of radar reflectivity factor. Reflectivity
// is logarithmic, so it is only ever compared with itself.
var ReflectivityDim = unit.NewDimension("dBZ")

// unitDef holds the conversion of one of the Units into SI.
type unitDef struct {
	// toSI returns the SI quantity of v in these units.
	toSI func(v float64) *unit.Unit
	dims unit.Dimensions
}

var unitDefs = map[Units]unitDef{
	Percent: {
		toSI: func(v float64) *unit.Unit { return unit.New(v/100, unit.Dimless) },
		dims: unit.Dimless,
	},
	Dimensionless: {
		toSI: func(v float64) *unit.Unit { return unit.New(v, unit.Dimless) },
		dims: unit.Dimless,
	},
	Millimeter: {
		toSI: func(v float64) *unit.Unit { return unit.New(v/1000, unit.Meter) },
		dims: unit.Meter,
	},
	Inch: {
		toSI: func(v float64) *unit.Unit { return badunit.Foot(v / 12) },
		dims: unit.Meter,
	},
	Meter: {
		toSI: func(v float64) *unit.Unit { return unit.New(v, unit.Meter) },
		dims: unit.Meter,
	},
	Kilometer: {
		toSI: func(v float64) *unit.Unit { return unit.New(v*1000, unit.Meter) },
		dims: unit.Meter,
	},
	Mile: {
		toSI: func(v float64) *unit.Unit { return badunit.Mile(v) },
		dims: unit.Meter,
	},
	DBZ: {
		toSI: func(v float64) *unit.Unit { return unit.New(v, unit.Dimensions{ReflectivityDim: 1}) },
		dims: unit.Dimensions{ReflectivityDim: 1},
	},
	Meter2PerSec2: {
		toSI: func(v float64) *unit.Unit { return unit.New(v, unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2}) },
		dims: unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2},
	},
}

// unitAliases maps spellings found in file attributes to Units.
var unitAliases = map[string]Units{
	"percent":                  Percent,
	"%":                        Percent,
	"dimensionless":            Dimensionless,
	"":                         Dimensionless,
	"1":                        Dimensionless,
	"millimeter":               Millimeter,
	"millimeters":              Millimeter,
	"mm":                       Millimeter,
	"kg m-2":                   Millimeter,
	"inch":                     Inch,
	"in":                       Inch,
	"meter":                    Meter,
	"m":                        Meter,
	"kilometer":                Kilometer,
	"km":                       Kilometer,
	"mile":                     Mile,
	"mi":                       Mile,
	"dbz":                      DBZ,
	"meter ** 2 / second ** 2": Meter2PerSec2,
	"m2 s-2":                   Meter2PerSec2,
	"m2/s2":                    Meter2PerSec2,
	"m^2/s^2":                  Meter2PerSec2,
}

// ParseUnits returns the Units matching the given unit string, as it might
// appear in the "units" attribute of a NetCDF variable.
func ParseUnits(s string) (Units, error) {
	s = strings.TrimSpace(s)
	if u, ok := unitAliases[s]; ok {
		return u, nil
	}
	if u, ok := unitAliases[strings.ToLower(s)]; ok {
		return u, nil
	}
	return "", fmt.Errorf("icens: unsupported units %q", s)
}

func (u Units) def() (unitDef, error) {
	d, ok := unitDefs[u]
	if !ok {
		return unitDef{}, fmt.Errorf("icens: unsupported units %q", string(u))
	}
	return d, nil
}

// Quantity returns v, which is in units u, as an SI quantity.
func (u Units) Quantity(v float64) (*unit.Unit, error) {
	d, err := u.def()
	if err != nil {
		return nil, err
	}
	return d.toSI(v), nil
}

// From returns the value of q in units u. It returns an error if the
// dimensions of q do not match u.
func (u Units) From(q *unit.Unit) (float64, error) {
	d, err := u.def()
	if err != nil {
		return 0, err
	}
	if err := q.Check(d.dims); err != nil {
		return 0, fmt.Errorf("icens: converting to %s: %v", u, err)
	}
	one := d.toSI(1).Value()
	return q.Value() / one, nil
}

// Compatible returns whether values in units u can be converted to units u2.
func (u Units) Compatible(u2 Units) bool {
	d1, err := u.def()
	if err != nil {
		return false
	}
	d2, err := u2.def()
	if err != nil {
		return false
	}
	return d1.dims.Matches(d2.dims)
}

// Convert converts v from units from to units to.
func Convert(v float64, from, to Units) (float64, error) {
	q, err := from.Quantity(v)
	if err != nil {
		return 0, err
	}
	return to.From(q)
}

// factor returns the multiplier that converts values in units from to
// units to. It is only valid for units that are linear in SI.
func factor(from, to Units) (float64, error) {
	if from == to {
		return 1, nil
	}
	if from == DBZ || to == DBZ {
		return 0, fmt.Errorf("icens: cannot convert %s to %s", from, to)
	}
	return Convert(1, from, to)
}
