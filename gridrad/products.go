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
)

// ColumnMaxLevel can be passed to OpenRadObs to request column-maximum
// reflectivity rather than the reflectivity at a single level.
const ColumnMaxLevel = -1

// ColumnMax returns the column-maximum reflectivity with shape (ny, nx).
// Missing values are ignored; columns with no finite values are NaN.
func (v *VolumetricField) ColumnMax() *icens.Field {
	nz, ny, nx := v.Shape()
	nxy := ny * nx
	o := nanArray(ny, nx)
	z := v.Reflectivity.Elements
	for c := 0; c < nxy; c++ {
		for k := 0; k < nz; k++ {
			zi := z[k*nxy+c]
			if math.IsNaN(zi) {
				continue
			}
			if math.IsNaN(o.Elements[c]) || zi > o.Elements[c] {
				o.Elements[c] = zi
			}
		}
	}
	return icens.NewField(o, v.Reflectivity.Units)
}

// Level returns a copy of the reflectivity at vertical level index k with
// shape (ny, nx).
func (v *VolumetricField) Level(k int) (*icens.Field, error) {
	nz, ny, nx := v.Shape()
	if k < 0 || k >= nz {
		return nil, fmt.Errorf("gridrad: level %d out of range [0, %d)", k, nz)
	}
	o := sparse.ZerosDense(ny, nx)
	copy(o.Elements, v.Reflectivity.Elements[k*ny*nx:(k+1)*ny*nx])
	return icens.NewField(o, v.Reflectivity.Units), nil
}

// Clean applies Filter and then RemoveClutter to v.
func (v *VolumetricField) Clean() error {
	if err := v.Filter(); err != nil {
		return err
	}
	return v.RemoveClutter(false)
}

// OpenRadObs reads the GridRad file at path, filters it, removes clutter,
// and returns the reflectivity at vertical level index level, or the
// column-maximum reflectivity if level is ColumnMaxLevel. The volume is
// also returned for its axes and metadata.
func OpenRadObs(path string, level int) (*icens.Field, *VolumetricField, error) {
	v, err := Read(path)
	if err != nil {
		return nil, nil, err
	}
	if err = v.Clean(); err != nil {
		return nil, nil, fmt.Errorf("gridrad: %s: %v", path, err)
	}
	if level == ColumnMaxLevel {
		return v.ColumnMax(), v, nil
	}
	refl, err := v.Level(level)
	if err != nil {
		return nil, nil, err
	}
	return refl, v, nil
}
