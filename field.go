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

	"github.com/ctessum/sparse"
)

// Field is an array of values with attached units.
type Field struct {
	*sparse.DenseArray
	Units Units
}

// NewField returns a new field holding data in units u.
func NewField(data *sparse.DenseArray, u Units) *Field {
	return &Field{DenseArray: data, Units: u}
}

// FieldFromSlice returns a one-dimensional field holding a copy of v.
func FieldFromSlice(v []float64, u Units) *Field {
	data := sparse.ZerosDense(len(v))
	copy(data.Elements, v)
	return NewField(data, u)
}

// Convert returns a copy of f in units to. An error is returned if the
// units are not compatible.
func (f *Field) Convert(to Units) (*Field, error) {
	m, err := factor(f.Units, to)
	if err != nil {
		return nil, err
	}
	o := NewField(f.DenseArray.Copy(), to)
	if m != 1 {
		o.Scale(m)
	}
	return o, nil
}

// Dimensionless returns the values of f converted to a dimensionless
// fraction. It returns an error if f is not a probability.
func (f *Field) Dimensionless() ([]float64, error) {
	o, err := f.Convert(Dimensionless)
	if err != nil {
		return nil, fmt.Errorf("icens: field is not a probability: %v", err)
	}
	return o.Elements, nil
}

// Threshold returns a field of the same shape as f that is 1 where
// f >= thresh and 0 elsewhere, including where f is NaN. thresh must be
// in units u, which are converted to the units of f.
func (f *Field) Threshold(thresh float64, u Units) (*sparse.DenseArray, error) {
	t := thresh
	if u != f.Units {
		var err error
		t, err = Convert(thresh, u, f.Units)
		if err != nil {
			return nil, err
		}
	}
	o := sparse.ZerosDense(f.Shape...)
	for i, v := range f.Elements {
		if v >= t {
			o.Elements[i] = 1
		}
	}
	return o, nil
}
