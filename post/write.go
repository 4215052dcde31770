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

package post

import (
	"fmt"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// Write writes c to a NetCDF file at path.
func (c *Convective) Write(path string) error {
	if len(c.Names) == 0 {
		return fmt.Errorf("post: no NMEPs to write to %s", path)
	}
	first := c.Members[Variables[0].Name]
	nm, ny, nx := first.Shape[0], first.Shape[1], first.Shape[2]
	d := ncf.NewDataset([]string{"radius", "member", "y", "x"}, []int{len(c.Radii), nm, ny, nx})
	d.Attributes["description"] = "Raw WRF ensemble member convective forecasts and neighborhood maximum ensemble probability forecasts."
	d.Attributes["initialization"] = c.Init.Format("2006-01-02 15:04:05")
	d.Attributes["forecast_hour"] = c.Hour
	d.Attributes["domain"] = c.Domain

	radius := sparse.ZerosDense(len(c.Radii))
	copy(radius.Elements, c.Radii)
	member := sparse.ZerosDense(nm)
	for i := range member.Elements {
		member.Elements[i] = float64(i + 1)
	}
	if err := d.AddVariable("radius", []string{"radius"}, radius, map[string]interface{}{"units": string(icens.Kilometer)}); err != nil {
		return err
	}
	if err := d.AddVariable("member", []string{"member"}, member, nil); err != nil {
		return err
	}
	d.Variables["radius"].Double = true

	for _, name := range c.Names {
		if err := d.AddVariable(name, []string{"radius", "y", "x"}, c.NMEP[name], map[string]interface{}{
			"description": c.Descriptions[name],
			"units":       string(icens.Percent),
		}); err != nil {
			return err
		}
	}
	for _, v := range Variables {
		f := c.Members[v.Name]
		if err := d.AddVariable(v.Name, []string{"member", "y", "x"}, f.DenseArray, map[string]interface{}{
			"description": v.Description,
			"units":       string(f.Units),
		}); err != nil {
			return err
		}
	}
	return d.WriteFile(path)
}
