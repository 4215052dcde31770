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

// Package gridrad reads Gridded NEXRAD WSR-88D Radar (GridRad) volumes and
// applies the GridRad quality control: low-confidence filtering and
// clutter removal.
package gridrad

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

var (
	// ErrNotExist is returned by Read when the requested file does not exist.
	ErrNotExist = ncf.ErrNotExist

	// ErrEmpty is returned by Read when the requested file has a size of zero.
	ErrEmpty = ncf.ErrEmpty
)

// GridAxis holds the coordinate values along one dimension of a
// VolumetricField. It should not be modified after it is created.
type GridAxis struct {
	Values   []float64
	Units    string
	LongName string
}

// Len returns the number of coordinate values.
func (a GridAxis) Len() int { return len(a.Values) }

// VolumetricField is a GridRad radar volume. All arrays have the shape
// (nz, ny, nx). Missing values are NaN.
type VolumetricField struct {
	// X, Y, and Z are the longitude, latitude, and altitude axes.
	X, Y, Z GridAxis

	// Reflectivity is the radar reflectivity factor in dBZ.
	Reflectivity *icens.Field

	// Weight is the bin weight of each reflectivity value.
	Weight *sparse.DenseArray

	// NObs and NEcho are the number of radar scans that observed each
	// bin and the number of those that observed echo.
	NObs, NEcho *sparse.DenseArray

	// AnalysisTime is the analysis time string, e.g. "2016-05-01T00:00:00Z".
	AnalysisTime string

	Name        string
	File        string
	FilesMerged []string

	// Attributes holds the global attributes of the file.
	Attributes map[string]interface{}
}

// NewVolumetricField returns a field with the given axes, where the axis
// values are longitude (degrees), latitude (degrees), and altitude (km).
// Reflectivity and weights are initialized to NaN and counts to zero.
func NewVolumetricField(x, y, z []float64, analysisTime string) *VolumetricField {
	nz, ny, nx := len(z), len(y), len(x)
	v := &VolumetricField{
		X:            GridAxis{Values: x, Units: "degrees_east", LongName: "Longitude"},
		Y:            GridAxis{Values: y, Units: "degrees_north", LongName: "Latitude"},
		Z:            GridAxis{Values: z, Units: "km", LongName: "Altitude"},
		Reflectivity: icens.NewField(nanArray(nz, ny, nx), icens.DBZ),
		Weight:       nanArray(nz, ny, nx),
		NObs:         sparse.ZerosDense(nz, ny, nx),
		NEcho:        sparse.ZerosDense(nz, ny, nx),
		AnalysisTime: analysisTime,
		Name:         "GridRad analysis for " + analysisTime,
		Attributes:   make(map[string]interface{}),
	}
	return v
}

func nanArray(shape ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	for i := range a.Elements {
		a.Elements[i] = math.NaN()
	}
	return a
}

// Shape returns the number of altitude, latitude, and longitude bins.
func (v *VolumetricField) Shape() (nz, ny, nx int) {
	return v.Z.Len(), v.Y.Len(), v.X.Len()
}

// AnalysisYear returns the year of the analysis time.
func (v *VolumetricField) AnalysisYear() (int, error) {
	if len(v.AnalysisTime) < 4 {
		return 0, fmt.Errorf("gridrad: invalid analysis time %q", v.AnalysisTime)
	}
	y, err := strconv.Atoi(v.AnalysisTime[0:4])
	if err != nil {
		return 0, fmt.Errorf("gridrad: invalid analysis time %q: %v", v.AnalysisTime, err)
	}
	return y, nil
}

// altitudes returns the altitude axis in kilometers.
func (v *VolumetricField) altitudes() ([]float64, error) {
	if v.Z.Units == "" {
		return v.Z.Values, nil
	}
	u, err := icens.ParseUnits(v.Z.Units)
	if err != nil {
		return nil, fmt.Errorf("gridrad: altitude: %v", err)
	}
	f, err := icens.FieldFromSlice(v.Z.Values, u).Convert(icens.Kilometer)
	if err != nil {
		return nil, fmt.Errorf("gridrad: altitude: %v", err)
	}
	return f.Elements, nil
}

// check returns an error if the arrays in v do not match its axes.
func (v *VolumetricField) check() error {
	nz, ny, nx := v.Shape()
	n := nz * ny * nx
	for name, a := range map[string]*sparse.DenseArray{
		"reflectivity": v.Reflectivity.DenseArray,
		"weight":       v.Weight,
		"nobs":         v.NObs,
		"necho":        v.NEcho,
	} {
		if a == nil {
			return fmt.Errorf("gridrad: %s array is missing", name)
		}
		if len(a.Elements) != n {
			return fmt.Errorf("gridrad: %s array has %d elements but the grid has %d", name, len(a.Elements), n)
		}
	}
	return nil
}
