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

package ncf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Variable is a variable to be written to a Dataset.
type Variable struct {
	// Dims are the names of the dimensions of the variable. A variable
	// with no dimensions is a scalar.
	Dims []string

	Data *sparse.DenseArray

	// Double specifies that the variable should be stored in double
	// precision rather than single precision.
	Double bool

	// Attributes are the variable's attributes. Values may be strings or
	// []float64, []float32, []int32, or []int16 slices.
	Attributes map[string]interface{}
}

// Dataset holds data to be written to a NetCDF file.
type Dataset struct {
	dims    []string
	lengths []int

	Variables  map[string]*Variable
	Attributes map[string]interface{}
}

// NewDataset returns a new Dataset with the given dimensions.
func NewDataset(dims []string, lengths []int) *Dataset {
	return &Dataset{
		dims:       dims,
		lengths:    lengths,
		Variables:  make(map[string]*Variable),
		Attributes: make(map[string]interface{}),
	}
}

// AddVariable adds a variable to d, checking that its shape matches
// the named dimensions.
func (d *Dataset) AddVariable(name string, dims []string, data *sparse.DenseArray, attrs map[string]interface{}) error {
	if _, ok := d.Variables[name]; ok {
		return fmt.Errorf("ncf: variable %s already exists", name)
	}
	n := 1
	for _, dim := range dims {
		l := d.Length(dim)
		if l < 0 {
			return fmt.Errorf("ncf: variable %s: no dimension %s", name, dim)
		}
		n *= l
	}
	if len(data.Elements) != n {
		return fmt.Errorf("ncf: variable %s has %d elements but dimensions %v require %d", name, len(data.Elements), dims, n)
	}
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	d.Variables[name] = &Variable{Dims: dims, Data: data, Attributes: attrs}
	return nil
}

// Length returns the length of dimension dim, or -1 if it does not exist.
func (d *Dataset) Length(dim string) int {
	for i, n := range d.dims {
		if n == dim {
			return d.lengths[i]
		}
	}
	return -1
}

// Names returns the sorted names of the variables in d.
func (d *Dataset) Names() []string {
	names := make([]string, 0, len(d.Variables))
	for n := range d.Variables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteFile writes d to a new file at path, creating its directory
// if necessary.
func (d *Dataset) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("ncf: creating directory for %s: %v", path, err)
	}
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ncf: creating %s: %v", path, err)
	}
	if err := d.Write(w); err != nil {
		w.Close()
		return fmt.Errorf("ncf: writing %s: %v", path, err)
	}
	return w.Close()
}

// Write writes d to netcdf file w.
func (d *Dataset) Write(w *os.File) error {
	h := cdf.NewHeader(d.dims, d.lengths)
	if err := addAttributes(h, "", d.Attributes); err != nil {
		return err
	}

	// Sort the names so they write in the same order every time.
	names := d.Names()
	for _, name := range names {
		v := d.Variables[name]
		if v.Double {
			h.AddVariable(name, v.Dims, []float64{0})
		} else {
			h.AddVariable(name, v.Dims, []float32{0})
		}
		if err := addAttributes(h, name, v.Attributes); err != nil {
			return err
		}
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		v := d.Variables[name]
		if err = writeVariable(f, name, v); err != nil {
			return fmt.Errorf("writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func addAttributes(h *cdf.Header, v string, attrs map[string]interface{}) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := attrs[k].(type) {
		case string, []float64, []float32, []int32, []int16:
			h.AddAttribute(v, k, val)
		case float64:
			h.AddAttribute(v, k, []float64{val})
		case int:
			h.AddAttribute(v, k, []int32{int32(val)})
		default:
			return fmt.Errorf("ncf: attribute %s:%s has unsupported type %T", v, k, val)
		}
	}
	return nil
}

func writeVariable(f *cdf.File, name string, v *Variable) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	var data interface{}
	if v.Double {
		data = v.Data.Elements
	} else {
		d32 := make([]float32, len(v.Data.Elements))
		for i, e := range v.Data.Elements {
			d32[i] = float32(e)
		}
		data = d32
	}
	n, err := w.Write(data)
	if err == io.EOF && n == len(v.Data.Elements) {
		// A scalar fills its whole extent, which the writer reports as EOF.
		return nil
	}
	return err
}
