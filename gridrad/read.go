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

package gridrad

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// Read reads the GridRad volume file at path. It returns ErrNotExist if the
// file does not exist and ErrEmpty if the file has a size of zero.
func Read(path string) (*VolumetricField, error) {
	f, err := ncf.Open(path)
	if err != nil {
		if err == ncf.ErrNotExist || err == ncf.ErrEmpty {
			return nil, err
		}
		return nil, fmt.Errorf("gridrad: %v", err)
	}
	defer f.Close()

	v := new(VolumetricField)
	v.File = path
	for _, ax := range []struct {
		name string
		a    *GridAxis
	}{
		{"Longitude", &v.X},
		{"Latitude", &v.Y},
		{"Altitude", &v.Z},
	} {
		if *ax.a, err = readAxis(f, ax.name); err != nil {
			return nil, err
		}
	}
	nz, ny, nx := v.Shape()

	if v.AnalysisTime, err = f.StringAttribute("", "Analysis_time"); err != nil {
		return nil, fmt.Errorf("gridrad: %v", err)
	}
	v.Name = "GridRad analysis for " + v.AnalysisTime
	v.Attributes = f.Attributes("")
	if f.Has("files_merged") {
		if v.FilesMerged, err = f.ReadString("files_merged"); err != nil {
			return nil, fmt.Errorf("gridrad: %v", err)
		}
	}

	indexData, err := f.Read("index")
	if err != nil {
		return nil, fmt.Errorf("gridrad: %v", err)
	}
	index := make([]int, len(indexData.Elements))
	for i, e := range indexData.Elements {
		index[i] = int(e)
		if index[i] < 0 || index[i] >= nz*ny*nx {
			return nil, fmt.Errorf("gridrad: index %d out of range for grid (%d, %d, %d) in %s", index[i], nz, ny, nx, path)
		}
	}

	refl, err := readIndexed(f, "Reflectivity", index, nz, ny, nx)
	if err != nil {
		return nil, err
	}
	u := icens.DBZ
	if s, err := f.StringAttribute("Reflectivity", "units"); err == nil {
		if u, err = icens.ParseUnits(s); err != nil {
			return nil, fmt.Errorf("gridrad: Reflectivity: %v", err)
		}
		if u != icens.DBZ {
			return nil, fmt.Errorf("gridrad: Reflectivity has units %s; should be dBZ", u)
		}
	}
	v.Reflectivity = icens.NewField(refl, u)
	if v.Weight, err = readIndexed(f, "wReflectivity", index, nz, ny, nx); err != nil {
		return nil, err
	}
	if v.NObs, err = readCounts(f, "Nradobs", index, nz, ny, nx); err != nil {
		return nil, err
	}
	if v.NEcho, err = readCounts(f, "Nradecho", index, nz, ny, nx); err != nil {
		return nil, err
	}
	return v, nil
}

func readAxis(f *ncf.File, name string) (GridAxis, error) {
	d, err := f.Read(name)
	if err != nil {
		return GridAxis{}, fmt.Errorf("gridrad: %v", err)
	}
	a := GridAxis{Values: d.Elements}
	a.Units, _ = f.StringAttribute(name, "units")
	a.LongName, _ = f.StringAttribute(name, "long_name")
	return a, nil
}

// readIndexed reads a variable stored only at the grid cells listed in
// index, returning a full grid with NaN at all other cells.
func readIndexed(f *ncf.File, name string, index []int, nz, ny, nx int) (*sparse.DenseArray, error) {
	d, err := f.Read(name)
	if err != nil {
		return nil, fmt.Errorf("gridrad: %v", err)
	}
	if len(d.Elements) != len(index) {
		return nil, fmt.Errorf("gridrad: %s has %d values but there are %d indices", name, len(d.Elements), len(index))
	}
	o := nanArray(nz, ny, nx)
	for i, ii := range index {
		o.Elements[ii] = d.Elements[i]
	}
	return o, nil
}

// readCounts reads an observation count variable, which may be stored
// either for the full grid or only at the grid cells listed in index.
func readCounts(f *ncf.File, name string, index []int, nz, ny, nx int) (*sparse.DenseArray, error) {
	d, err := f.Read(name)
	if err != nil {
		return nil, fmt.Errorf("gridrad: %v", err)
	}
	o := sparse.ZerosDense(nz, ny, nx)
	switch len(d.Elements) {
	case len(o.Elements):
		copy(o.Elements, d.Elements)
	case len(index):
		for i, ii := range index {
			o.Elements[ii] = d.Elements[i]
		}
	default:
		return nil, fmt.Errorf("gridrad: %s has %d values, which matches neither the grid (%d) nor the index (%d)",
			name, len(d.Elements), len(o.Elements), len(index))
	}
	for i, e := range o.Elements {
		if math.IsNaN(e) {
			o.Elements[i] = 0
		}
	}
	return o, nil
}
