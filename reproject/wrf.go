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

	"github.com/ctessum/sparse"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// WRFReference holds the horizontal grid and map projection of a WRF
// model domain.
type WRFReference struct {
	// Lon and Lat are the longitude and latitude (degrees) of the mass
	// grid points, with shape (ny, nx).
	Lon, Lat *sparse.DenseArray

	CenLon, CenLat     float64
	TrueLat1, TrueLat2 float64
	StandLon           float64

	// DX and DY are the grid spacing in meters.
	DX, DY float64

	// WestEastDim and SouthNorthDim are the staggered grid dimensions.
	WestEastDim, SouthNorthDim int
}

// ReadWRFReference reads the grid of the WRF output file at path.
func ReadWRFReference(path string) (*WRFReference, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reproject: WRF reference grid %s: %v", path, err)
	}
	defer f.Close()
	r := new(WRFReference)
	for _, v := range []struct {
		name string
		a    **sparse.DenseArray
	}{
		{"XLONG", &r.Lon},
		{"XLAT", &r.Lat},
	} {
		data, err := f.Read(v.name)
		if err != nil {
			return nil, fmt.Errorf("reproject: WRF reference grid: %v", err)
		}
		// Use the first time if there is a time dimension.
		if len(data.Shape) == 3 {
			ny, nx := data.Shape[1], data.Shape[2]
			d2 := sparse.ZerosDense(ny, nx)
			copy(d2.Elements, data.Elements[:ny*nx])
			data = d2
		}
		if len(data.Shape) != 2 {
			return nil, fmt.Errorf("reproject: WRF reference grid %s: %s has shape %v", path, v.name, data.Shape)
		}
		*v.a = data
	}
	for _, a := range []struct {
		name string
		v    *float64
	}{
		{"CEN_LON", &r.CenLon},
		{"CEN_LAT", &r.CenLat},
		{"TRUELAT1", &r.TrueLat1},
		{"TRUELAT2", &r.TrueLat2},
		{"STAND_LON", &r.StandLon},
		{"DX", &r.DX},
		{"DY", &r.DY},
	} {
		if *a.v, err = f.Attribute("", a.name); err != nil {
			return nil, fmt.Errorf("reproject: WRF reference grid: %v", err)
		}
	}
	for _, a := range []struct {
		name string
		v    *int
	}{
		{"WEST-EAST_GRID_DIMENSION", &r.WestEastDim},
		{"SOUTH-NORTH_GRID_DIMENSION", &r.SouthNorthDim},
	} {
		d, err := f.Attribute("", a.name)
		if err != nil {
			return nil, fmt.Errorf("reproject: WRF reference grid: %v", err)
		}
		*a.v = int(d)
	}
	return r, nil
}

// Shape returns the number of mass grid points in the y and x directions.
func (r *WRFReference) Shape() (ny, nx int) {
	return r.Lon.Shape[0], r.Lon.Shape[1]
}

// LCC returns the Lambert conformal conic projection of the grid.
func (r *WRFReference) LCC() (*LCC, error) {
	return NewLCC(r.CenLon, r.CenLat, r.TrueLat1, r.TrueLat2)
}

// METGrid holds the grid attributes that the Model Evaluation Tools
// (MET) python embedding requires for a Lambert conformal grid.
type METGrid struct {
	Type       string  `json:"type"`
	Hemisphere string  `json:"hemisphere"`
	Name       string  `json:"name"`
	LatPin     float64 `json:"lat_pin"`
	LonPin     float64 `json:"lon_pin"`
	XPin       float64 `json:"x_pin"`
	YPin       float64 `json:"y_pin"`
	RKm        float64 `json:"r_km"`
	ScaleLat1  float64 `json:"scale_lat_1"`
	ScaleLat2  float64 `json:"scale_lat_2"`
	LonOrient  float64 `json:"lon_orient"`
	DKm        float64 `json:"d_km"`

	// NX and NY are the staggered grid dimensions from the
	// WEST-EAST_GRID_DIMENSION and SOUTH-NORTH_GRID_DIMENSION attributes,
	// one more than the number of mass points in each direction.
	NX int `json:"nx"`
	NY int `json:"ny"`
}

// METEarthRadius is the earth radius (km) assumed by MET.
const METEarthRadius = 6371.2

// METGrid returns the MET grid attributes of the grid with the given name.
func (r *WRFReference) METGrid(name string) METGrid {
	return METGrid{
		Type:       "Lambert Conformal",
		Hemisphere: "N",
		Name:       name,
		LatPin:     r.Lat.Get(0, 0),
		LonPin:     r.Lon.Get(0, 0),
		RKm:        METEarthRadius,
		ScaleLat1:  r.TrueLat1,
		ScaleLat2:  r.TrueLat2,
		LonOrient:  r.StandLon,
		DKm:        r.DX / 1000,
		NX:         r.WestEastDim,
		NY:         r.SouthNorthDim,
	}
}
