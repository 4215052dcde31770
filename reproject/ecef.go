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

// Package reproject converts between geographic coordinates, earth-centered
// earth-fixed (ECEF) coordinates, and the Lambert conformal conic
// projection of a WRF model grid.
package reproject

import "math"

// WGS84 ellipsoid parameters.
const (
	wgs84A = 6378137.0         // semi-major axis, m
	wgs84F = 1 / 298.257223563 // flattening
)

var (
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
	wgs84B  = wgs84A * (1 - wgs84F) // semi-minor axis, m
)

const deg2rad = math.Pi / 180

// ToECEF converts longitude and latitude in degrees and altitude in meters
// above the WGS84 ellipsoid to ECEF coordinates in meters.
func ToECEF(lon, lat, alt float64) (x, y, z float64) {
	lam, phi := lon*deg2rad, lat*deg2rad
	sinPhi, cosPhi := math.Sincos(phi)
	sinLam, cosLam := math.Sincos(lam)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
	x = (n + alt) * cosPhi * cosLam
	y = (n + alt) * cosPhi * sinLam
	z = (n*(1-wgs84E2) + alt) * sinPhi
	return
}

// FromECEF converts ECEF coordinates in meters to longitude and latitude
// in degrees and altitude in meters above the WGS84 ellipsoid. The returned
// longitude is in the range [-180, 180].
func FromECEF(x, y, z float64) (lon, lat, alt float64) {
	lon = math.Atan2(y, x) / deg2rad
	p := math.Hypot(x, y)
	if p == 0 {
		lat = math.Copysign(90, z)
		return lon, lat, math.Abs(z) - wgs84B
	}
	// Iterate on latitude, starting from Bowring's estimate.
	ep2 := (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	theta := math.Atan2(z*wgs84A, p*wgs84B)
	sinT, cosT := math.Sincos(theta)
	phi := math.Atan2(z+ep2*wgs84B*sinT*sinT*sinT, p-wgs84E2*wgs84A*cosT*cosT*cosT)
	var n float64
	for i := 0; i < 10; i++ {
		sinPhi := math.Sin(phi)
		n = wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
		alt = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-wgs84E2*n/(n+alt)))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	sinPhi, cosPhi := math.Sincos(phi)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
	if math.Abs(cosPhi) > 1e-10 {
		alt = p/cosPhi - n
	} else {
		alt = math.Abs(z)/math.Abs(sinPhi) - n*(1-wgs84E2)
	}
	return lon, phi / deg2rad, alt
}
