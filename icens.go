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

// Package icens holds the types shared by the icens tools for building
// neighborhood probabilities from convection-allowing ensemble forecasts
// and radar or precipitation observations and for verifying them.
// Quantities that cross package boundaries carry explicit units
// (see Units and Field), and dates follow the YYYYMMDDHH convention
// used throughout the forecast and observation archives.
//
// The processing components live in the subpackages:
// gridrad (radar quality control), reproject (coordinate transforms),
// neighborhood (spatial queries and neighborhood probabilities),
// obsprob (observation probabilities), post (ensemble post-processing),
// and verify (verification statistics).
package icens

// Version gives the version number.
const Version = "0.3.0"
