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

	"github.com/ctessum/geom/proj"
)

// geographic is the WGS84 longitude-latitude coordinate system, in degrees.
const geographic = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"

// LCC is a Lambert conformal conic projection on the WGS84 ellipsoid with
// planar coordinates in meters.
type LCC struct {
	// SR is the spatial reference of the projection.
	SR *proj.SR

	forward, inverse proj.Transformer
}

// NewLCC returns a Lambert conformal conic projection with central
// longitude lon0, latitude of origin lat0, and standard parallels lat1 and
// lat2, all in degrees.
func NewLCC(lon0, lat0, lat1, lat2 float64) (*LCC, error) {
	p := fmt.Sprintf("+proj=lcc +lat_1=%.10g +lat_2=%.10g +lat_0=%.10g +lon_0=%.10g +x_0=0 +y_0=0 +ellps=WGS84 +datum=WGS84 +units=m +no_defs",
		lat1, lat2, lat0, lon0)
	sr, err := proj.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("reproject: parsing projection %q: %v", p, err)
	}
	geo, err := proj.Parse(geographic)
	if err != nil {
		return nil, fmt.Errorf("reproject: parsing projection %q: %v", geographic, err)
	}
	l := &LCC{SR: sr}
	if l.forward, err = geo.NewTransform(sr); err != nil {
		return nil, fmt.Errorf("reproject: %v", err)
	}
	if l.inverse, err = sr.NewTransform(geo); err != nil {
		return nil, fmt.Errorf("reproject: %v", err)
	}
	return l, nil
}

// Forward projects longitude and latitude in degrees to planar x and y.
func (l *LCC) Forward(lon, lat float64) (x, y float64, err error) {
	return l.forward(lon, lat)
}

// Inverse converts planar x and y to longitude and latitude in degrees.
func (l *LCC) Inverse(x, y float64) (lon, lat float64, err error) {
	return l.inverse(x, y)
}

// FromECEF projects ECEF coordinates in meters to planar x and y.
func (l *LCC) FromECEF(ex, ey, ez float64) (x, y float64, err error) {
	lon, lat, _ := FromECEF(ex, ey, ez)
	return l.forward(lon, lat)
}

// ToECEF converts planar x and y at altitude alt (m) to ECEF coordinates.
func (l *LCC) ToECEF(x, y, alt float64) (ex, ey, ez float64, err error) {
	lon, lat, err := l.inverse(x, y)
	if err != nil {
		return 0, 0, 0, err
	}
	ex, ey, ez = ToECEF(lon, lat, alt)
	return ex, ey, ez, nil
}
