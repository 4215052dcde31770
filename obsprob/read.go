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

package obsprob

import (
	"fmt"
	"time"

	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/gridrad"
	"github.com/rpmanser/large-ic-ensembles/internal/hash"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
	"github.com/rpmanser/large-ic-ensembles/reproject"
)

// Default file locations. [MONTH] is replaced by the year and month
// of the observation time.
const (
	GridRadTemplate   = "[MONTH]/nexrad_3d_v3_1_[DATE]Z.nc"
	GridRadDateFormat = "20060102T150405"
	StageIVTemplate   = "ST4.[DATE].01h.nc"

	GridRadOutputTemplate = "gridrad_[DATE].nc"
	StageIVOutputTemplate = "stage4_[DATE].nc"
)

// GridRadPath returns the location of the GridRad file valid at date.
func GridRadPath(tmpl string, date time.Time) string {
	return ncf.ExpandTemplate(tmpl, GridRadDateFormat, date, "[MONTH]", date.Format("200601"))
}

// StageIVPath returns the location of the Stage IV file valid at date.
func StageIVPath(tmpl string, date time.Time) string {
	return ncf.ExpandTemplate(tmpl, icens.DateFormat, date)
}

// ReadGridRad reads the GridRad file at path, removes clutter and returns
// its column-maximum reflectivity. gridrad.ErrNotExist and gridrad.ErrEmpty
// are returned unwrapped.
func ReadGridRad(path string) (*Observation, error) {
	refl, v, err := gridrad.OpenRadObs(path, gridrad.ColumnMaxLevel)
	if err != nil {
		return nil, err
	}
	lon, lat := reproject.Meshgrid(v.X.Values, v.Y.Values)
	return &Observation{
		Name:   "col_max_refl",
		GridID: gridID("gridrad", v.X.Values, v.Y.Values),
		Field:  refl,
		Lon:    lon,
		Lat:    lat,
	}, nil
}

// ReadStageIV reads the hourly precipitation variable tp from the Stage IV
// file at path. Longitude and latitude may be two-dimensional or axes.
func ReadStageIV(path string) (*Observation, error) {
	f, err := ncf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	const tp = "tp"
	data, err := f.Read(tp)
	if err != nil {
		return nil, err
	}
	if len(data.Shape) == 3 { // (time, y, x)
		if data, err = f.ReadRecord(tp, 0); err != nil {
			return nil, err
		}
	}
	if len(data.Shape) != 2 {
		return nil, fmt.Errorf("obsprob: %s in %s has shape %v", tp, path, data.Shape)
	}
	s, err := f.StringAttribute(tp, "units")
	if err != nil {
		return nil, err
	}
	u, err := icens.ParseUnits(s)
	if err != nil {
		return nil, fmt.Errorf("obsprob: %s in %s: %v", tp, path, err)
	}

	lon, err := f.Read("longitude")
	if err != nil {
		return nil, err
	}
	lat, err := f.Read("latitude")
	if err != nil {
		return nil, err
	}
	var lons, lats []float64
	switch {
	case len(lon.Elements) == len(data.Elements) && len(lat.Elements) == len(data.Elements):
		lons, lats = lon.Elements, lat.Elements
	case len(lon.Elements) == data.Shape[1] && len(lat.Elements) == data.Shape[0]:
		lons, lats = reproject.Meshgrid(lon.Elements, lat.Elements)
	default:
		return nil, fmt.Errorf("obsprob: coordinates in %s do not match %s with shape %v", path, tp, data.Shape)
	}
	return &Observation{
		Name:   "precipitation",
		GridID: gridID("stage4", lons, lats),
		Field:  icens.NewField(data, u),
		Lon:    lons,
		Lat:    lats,
	}, nil
}

// gridID returns an identifier for the observation grid with the given
// coordinates.
func gridID(name string, lon, lat []float64) string {
	return hash.Grid(name, lon, lat)
}
