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

package reproject

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Subset holds observation locations projected onto a forecast grid.
type Subset struct {
	// ObsX and ObsY are the projected coordinates of the observations
	// inside the forecast grid, in the order they were given.
	ObsX, ObsY []float64

	// GridX and GridY are the projected coordinates of the forecast
	// grid points, with shape (ny, nx).
	GridX, GridY *sparse.DenseArray

	// Mask is true for each observation inside the forecast grid.
	Mask []bool

	// Bounds is the bounding box of the projected forecast grid.
	Bounds *geom.Bounds
}

// SubsetToForecastGrid projects the forecast grid of ref and the given
// observation locations through ECEF coordinates to the grid's Lambert
// conformal projection. Observations are kept if they fall strictly inside
// the bounding box of the projected grid. obsAlt may be nil, in which case
// all observations are at zero altitude.
func SubsetToForecastGrid(ref *WRFReference, obsLon, obsLat, obsAlt []float64) (*Subset, error) {
	if len(obsLon) != len(obsLat) || (obsAlt != nil && len(obsAlt) != len(obsLon)) {
		return nil, fmt.Errorf("reproject: observation coordinates have different lengths")
	}
	lcc, err := ref.LCC()
	if err != nil {
		return nil, err
	}
	ny, nx := ref.Shape()
	s := &Subset{
		GridX: sparse.ZerosDense(ny, nx),
		GridY: sparse.ZerosDense(ny, nx),
	}
	err = project(lcc, ref.Lon.Elements, ref.Lat.Elements, nil, s.GridX.Elements, s.GridY.Elements)
	if err != nil {
		return nil, fmt.Errorf("reproject: projecting forecast grid: %v", err)
	}
	s.Bounds = geom.NewBounds()
	for i, x := range s.GridX.Elements {
		s.Bounds.Extend(geom.Point{X: x, Y: s.GridY.Elements[i]}.Bounds())
	}

	ox := make([]float64, len(obsLon))
	oy := make([]float64, len(obsLon))
	if err = project(lcc, obsLon, obsLat, obsAlt, ox, oy); err != nil {
		return nil, fmt.Errorf("reproject: projecting observations: %v", err)
	}
	s.Mask = make([]bool, len(obsLon))
	for i, x := range ox {
		y := oy[i]
		if x > s.Bounds.Min.X && x < s.Bounds.Max.X && y > s.Bounds.Min.Y && y < s.Bounds.Max.Y {
			s.Mask[i] = true
			s.ObsX = append(s.ObsX, x)
			s.ObsY = append(s.ObsY, y)
		}
	}
	return s, nil
}

// project converts the given geographic coordinates to ECEF and then
// to the projection, storing the results in x and y.
func project(lcc *LCC, lon, lat, alt, x, y []float64) error {
	nprocs := runtime.GOMAXPROCS(0)
	errs := make([]error, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for i := pp; i < len(lon); i += nprocs {
				var a float64
				if alt != nil {
					a = alt[i]
				}
				ex, ey, ez := ToECEF(lon[i], lat[i], a)
				var err error
				x[i], y[i], err = lcc.FromECEF(ex, ey, ez)
				if err != nil {
					errs[pp] = fmt.Errorf("point (%g, %g): %v", lon[i], lat[i], err)
					return
				}
			}
		}(pp)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// MaskValues returns the elements of values where mask is true.
func MaskValues(values []float64, mask []bool) ([]float64, error) {
	if len(values) != len(mask) {
		return nil, fmt.Errorf("reproject: %d values but mask has length %d", len(values), len(mask))
	}
	var o []float64
	for i, v := range values {
		if mask[i] {
			o = append(o, v)
		}
	}
	return o, nil
}

// Meshgrid returns the longitude and latitude of every point on the regular
// grid defined by the given axes, in row-major (y, x) order.
func Meshgrid(x, y []float64) (lon, lat []float64) {
	lon = make([]float64, 0, len(x)*len(y))
	lat = make([]float64, 0, len(x)*len(y))
	for _, yy := range y {
		for _, xx := range x {
			lon = append(lon, xx)
			lat = append(lat, yy)
		}
	}
	return lon, lat
}
