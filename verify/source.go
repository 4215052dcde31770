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

package verify

import (
	"fmt"
	"strings"

	icens "github.com/rpmanser/large-ic-ensembles"
)

// ObservationSource is a kind of observed neighborhood probability that
// forecasts can be verified against.
type ObservationSource int

// These are the supported observation sources.
const (
	// RadarReflectivity is GridRad column-maximum reflectivity.
	RadarReflectivity ObservationSource = iota + 1
	// StageIV is Stage IV hourly precipitation.
	StageIV
	// PracticallyPerfect is practically perfect hindcasts from storm reports.
	PracticallyPerfect
)

// ParseObservationSource returns the source of the observation variable
// with the given name.
func ParseObservationSource(key string) (ObservationSource, error) {
	switch {
	case strings.Contains(key, "col_max_refl"):
		return RadarReflectivity, nil
	case strings.Contains(key, "precip"):
		return StageIV, nil
	case strings.Contains(key, "practically_perfect"):
		return PracticallyPerfect, nil
	default:
		return 0, fmt.Errorf("verify: observation key %q not supported", key)
	}
}

func (s ObservationSource) String() string {
	switch s {
	case RadarReflectivity:
		return "gridrad"
	case StageIV:
		return "stage4"
	case PracticallyPerfect:
		return "practically_perfect"
	default:
		return fmt.Sprintf("ObservationSource(%d)", int(s))
	}
}

// Template returns the default location of the observation file for
// source s relative to the data directory, with a [DATE] wildcard.
func (s ObservationSource) Template() string {
	switch s {
	case RadarReflectivity:
		return "gr_neps/gridrad_[DATE].nc"
	case StageIV:
		return "st4_nps/stage4_[DATE].nc"
	case PracticallyPerfect:
		return "practically_perfect/ppp_[DATE].nc"
	default:
		return ""
	}
}

// Units returns the units of the probabilities stored in files from s.
func (s ObservationSource) Units() icens.Units {
	if s == PracticallyPerfect {
		return icens.Dimensionless
	}
	return icens.Percent
}
