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

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// Write writes p to a NetCDF file at path with dimensions (radii, y, x)
// and the coordinate variable radius in kilometers.
func (p *Probabilities) Write(path string) error {
	if len(p.Names) == 0 {
		return fmt.Errorf("obsprob: no probabilities to write to %s", path)
	}
	shape := p.Probs[p.Names[0]].Shape
	dims := []string{"radii", "y", "x"}
	d := ncf.NewDataset(dims, shape)

	radius := sparse.ZerosDense(len(p.Radii))
	for i, r := range p.Radii {
		km, err := icens.Convert(r, icens.Meter, icens.Kilometer)
		if err != nil {
			return err
		}
		radius.Elements[i] = km
	}
	if err := d.AddVariable("radius", []string{"radii"}, radius, map[string]interface{}{
		"units": string(icens.Kilometer),
	}); err != nil {
		return err
	}
	d.Variables["radius"].Double = true

	for _, name := range p.Names {
		if err := d.AddVariable(name, dims, p.Probs[name], map[string]interface{}{
			"threshold":       p.Thresholds[name],
			"threshold_units": string(p.ThresholdUnits),
			"units":           string(icens.Percent),
		}); err != nil {
			return err
		}
	}
	return d.WriteFile(path)
}
