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
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestConvert(t *testing.T) {
	const tolerance = 1.0e-8
	tests := []struct {
		v        float64
		from, to Units
		want     float64
	}{
		{v: 50, from: Percent, to: Dimensionless, want: 0.5},
		{v: 0.25, from: Dimensionless, to: Percent, want: 25},
		{v: 1, from: Inch, to: Millimeter, want: 25.4},
		{v: 0.01, from: Inch, to: Millimeter, want: 0.254},
		{v: 20, from: Mile, to: Meter, want: 32186.8},
		{v: 32186.8, from: Meter, to: Kilometer, want: 32.1868},
		{v: 40, from: DBZ, to: DBZ, want: 40},
	}
	for _, test := range tests {
		got, err := Convert(test.v, test.from, test.to)
		if err != nil {
			t.Errorf("%g %s to %s: %v", test.v, test.from, test.to, err)
			continue
		}
		if different(got, test.want, tolerance) {
			t.Errorf("%g %s to %s: have %g, want %g", test.v, test.from, test.to, got, test.want)
		}
	}
}

func TestConvertIncompatible(t *testing.T) {
	for _, pair := range [][2]Units{
		{Percent, Millimeter},
		{DBZ, Dimensionless},
		{Meter2PerSec2, Meter},
		{Units("furlong"), Meter},
	} {
		if _, err := Convert(1, pair[0], pair[1]); err == nil {
			t.Errorf("converting %s to %s should fail", pair[0], pair[1])
		}
		if pair[0].Compatible(pair[1]) {
			t.Errorf("%s should not be compatible with %s", pair[0], pair[1])
		}
	}
}

func TestParseUnits(t *testing.T) {
	tests := map[string]Units{
		"mm":                       Millimeter,
		"dBZ":                      DBZ,
		"m2 s-2":                   Meter2PerSec2,
		"meter ** 2 / second ** 2": Meter2PerSec2,
		"percent":                  Percent,
		"":                         Dimensionless,
		"kilometer":                Kilometer,
	}
	for s, want := range tests {
		got, err := ParseUnits(s)
		if err != nil {
			t.Errorf("%q: %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("%q: have %s, want %s", s, got, want)
		}
	}
	if _, err := ParseUnits("parsecs"); err == nil {
		t.Error("parsecs should not parse")
	}
}

func TestFieldConvert(t *testing.T) {
	f := FieldFromSlice([]float64{0, 25, 100}, Percent)
	d, err := f.Dimensionless()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.25, 1}
	for i, v := range d {
		if v != want[i] {
			t.Errorf("element %d: have %g, want %g", i, v, want[i])
		}
	}
	if f.Elements[1] != 25 {
		t.Error("Convert should not modify the receiver")
	}
	refl := FieldFromSlice([]float64{10, 30}, DBZ)
	if _, err := refl.Dimensionless(); err == nil {
		t.Error("reflectivity is not a probability")
	}
}

func TestFieldThreshold(t *testing.T) {
	data := sparse.ZerosDense(2, 2)
	copy(data.Elements, []float64{0.1, 0.3, math.NaN(), 6.35})
	f := NewField(data, Millimeter)
	b, err := f.Threshold(0.01, Inch)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 0, 1}
	for i, v := range b.Elements {
		if v != want[i] {
			t.Errorf("element %d: have %g, want %g", i, v, want[i])
		}
	}
	if _, err := f.Threshold(25, DBZ); err == nil {
		t.Error("thresholding precipitation by reflectivity should fail")
	}
}

func TestModifyDate(t *testing.T) {
	tests := []struct {
		date  string
		hours int
		want  string
	}{
		{"2016042700", 12, "2016042712"},
		{"2016050100", -1, "2016043023"},
		{"2016123123", 1, "2017010100"},
	}
	for _, test := range tests {
		got, err := ModifyDate(test.date, test.hours)
		if err != nil {
			t.Fatal(err)
		}
		if got != test.want {
			t.Errorf("%s %+d: have %s, want %s", test.date, test.hours, got, test.want)
		}
	}
	if _, err := ModifyDate("2016-04-27", 1); err == nil {
		t.Error("invalid date should return an error")
	}
}

func TestDateRange(t *testing.T) {
	start, _ := ParseDate("2016042700")
	end, _ := ParseDate("2016060312")
	d, err := DateRange(start, end, 12*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 76 {
		t.Errorf("have %d initializations, want 76", len(d))
	}
	if !d[len(d)-1].Equal(end) {
		t.Errorf("last date %v should equal end %v", d[len(d)-1], end)
	}
	if _, err := DateRange(end, start, time.Hour); err == nil {
		t.Error("reversed range should fail")
	}
}
