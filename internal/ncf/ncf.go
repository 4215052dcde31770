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

// Package ncf reads and writes the NetCDF (classic format) files used
// by the icens tools.
package ncf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

var (
	// ErrNotExist is returned when a requested file does not exist.
	ErrNotExist = errors.New("file does not exist")

	// ErrEmpty is returned when a requested file has a size of zero.
	ErrEmpty = errors.New("file contains no data")
)

// File is an open NetCDF file.
type File struct {
	*cdf.File
	f    *os.File
	size int64
	Path string
}

// Open opens the NetCDF file at path for reading. It returns ErrNotExist
// if the file does not exist and ErrEmpty if it has a size of zero.
func Open(path string) (*File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() == 0 {
		return nil, ErrEmpty
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading netcdf header of %s: %v", path, err)
	}
	return &File{File: ff, f: f, size: fi.Size(), Path: path}, nil
}

// FromTemplate opens a NetCDF file from the given template, where the
// [DATE] wildcard in fileTemplate is replaced by date formatted as
// dateFormat and any other wildcards are replaced as specified by
// replacements, which holds pairs of wildcards and replacement values.
func FromTemplate(fileTemplate, dateFormat string, date time.Time, replacements ...string) (*File, error) {
	return Open(ExpandTemplate(fileTemplate, dateFormat, date, replacements...))
}

// ExpandTemplate returns the file name resulting from fileTemplate
// as described in FromTemplate.
func ExpandTemplate(fileTemplate, dateFormat string, date time.Time, replacements ...string) string {
	file := strings.Replace(fileTemplate, "[DATE]", date.Format(dateFormat), -1)
	if len(replacements) > 0 {
		file = strings.NewReplacer(replacements...).Replace(file)
	}
	return file
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Has returns whether the file contains variable v.
func (f *File) Has(v string) bool {
	return len(f.Header.Dimensions(v)) > 0 || f.Header.ZeroValue(v, 0) != nil
}

// Read reads all of variable v.
func (f *File) Read(v string) (*sparse.DenseArray, error) {
	if !f.Has(v) {
		return nil, fmt.Errorf("variable %s not in file %s", v, f.Path)
	}
	dims := f.Header.Lengths(v)
	if len(dims) == 0 {
		return f.read(v, nil, nil, []int{1})
	}
	return f.ReadRecords(v, 0, dims[0])
}

// ReadRecord reads the slice of variable v at index i of its first
// dimension, which is dropped from the returned array.
func (f *File) ReadRecord(v string, i int) (*sparse.DenseArray, error) {
	data, err := f.ReadRecords(v, i, i+1)
	if err != nil {
		return nil, err
	}
	if len(data.Shape) > 1 {
		data = Reshape(data, data.Shape[1:]...)
	}
	return data, nil
}

// Reshape returns an array that shares the elements of a but has the
// given shape. The shapes must have the same number of elements.
func Reshape(a *sparse.DenseArray, shape ...int) *sparse.DenseArray {
	o := sparse.ZerosDense(shape...)
	if len(o.Elements) != len(a.Elements) {
		panic(fmt.Errorf("ncf: cannot reshape %v to %v", a.Shape, shape))
	}
	o.Elements = a.Elements
	return o
}

// ReadRecords reads indices [first, last) of the first dimension of
// variable v, including all indices of the remaining dimensions.
func (f *File) ReadRecords(v string, first, last int) (*sparse.DenseArray, error) {
	dims := append([]int(nil), f.Header.Lengths(v)...)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s not in file %s or is a scalar", v, f.Path)
	}
	if dims[0] == 0 { // record dimension
		dims[0] = int(f.Header.NumRecs(f.size))
	}
	if first < 0 || last > dims[0] || last <= first {
		return nil, fmt.Errorf("reading %s: invalid index range [%d, %d) for length %d", v, first, last, dims[0])
	}
	begin := make([]int, len(dims))
	end := make([]int, len(dims))
	shape := make([]int, len(dims))
	for i, d := range dims {
		end[i] = d - 1
		shape[i] = d
	}
	begin[0], end[0], shape[0] = first, last-1, last-first
	return f.read(v, begin, end, shape)
}

func (f *File) read(v string, begin, end, shape []int) (*sparse.DenseArray, error) {
	r := f.Reader(v, begin, end)
	if r == nil {
		return nil, fmt.Errorf("variable %s not in file %s", v, f.Path)
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s from %s: %v", v, f.Path, err)
	}
	vals, err := Float64s(buf)
	if err != nil {
		return nil, fmt.Errorf("reading variable %s from %s: %v", v, f.Path, err)
	}
	data := sparse.ZerosDense(shape...)
	copy(data.Elements, vals)
	return data, nil
}

// ReadString reads character variable v, returning one string for each
// index of its first dimension with trailing null and space characters
// removed.
func (f *File) ReadString(v string) ([]string, error) {
	dims := f.Header.Lengths(v)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s not in file %s", v, f.Path)
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	r := f.Reader(v, nil, nil)
	buf := make([]uint8, n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s from %s: %v", v, f.Path, err)
	}
	width := dims[len(dims)-1]
	o := make([]string, 0, n/width)
	for i := 0; i < n; i += width {
		o = append(o, strings.TrimRight(string(buf[i:i+width]), "\x00 "))
	}
	return o, nil
}

// Float64s converts a slice returned by a cdf.Reader or an attribute
// value to float64.
func Float64s(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		o := make([]float64, len(b))
		copy(o, b)
		return o, nil
	case []float32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []uint8:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(int8(v))
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
}

// Attribute returns the first value of numeric attribute a of variable v,
// or of the global attribute a if v is "".
func (f *File) Attribute(v, a string) (float64, error) {
	val := f.Header.GetAttribute(v, a)
	if val == nil {
		return 0, fmt.Errorf("attribute %s:%s not in file %s", v, a, f.Path)
	}
	vals, err := Float64s(val)
	if err != nil {
		return 0, fmt.Errorf("attribute %s:%s in file %s: %v", v, a, f.Path, err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %s:%s in file %s is empty", v, a, f.Path)
	}
	return vals[0], nil
}

// StringAttribute returns the value of text attribute a of variable v,
// or of the global attribute a if v is "".
func (f *File) StringAttribute(v, a string) (string, error) {
	val := f.Header.GetAttribute(v, a)
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("text attribute %s:%s not in file %s", v, a, f.Path)
	}
	return s, nil
}

// Attributes returns all of the attributes of variable v, or the global
// attributes if v is "". Numeric attributes are returned as []float64.
func (f *File) Attributes(v string) map[string]interface{} {
	o := make(map[string]interface{})
	for _, a := range f.Header.Attributes(v) {
		val := f.Header.GetAttribute(v, a)
		if s, ok := val.(string); ok {
			o[a] = s
			continue
		}
		if vals, err := Float64s(val); err == nil {
			o[a] = vals
		}
	}
	return o
}
