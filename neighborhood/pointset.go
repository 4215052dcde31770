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

// Package neighborhood calculates neighborhood probabilities of binary
// fields over sets of planar points.
package neighborhood

import (
	"fmt"

	"github.com/ctessum/geom"
)

// PointSet is an immutable set of planar (y, x) point locations. Its ID
// identifies the set in a QueryCache, so two sets with the same ID must
// hold the same points.
type PointSet struct {
	id   string
	y, x []float64
}

// NewPointSet returns a new point set with the given identifier. y and x
// are copied.
func NewPointSet(id string, y, x []float64) (*PointSet, error) {
	if len(y) != len(x) {
		return nil, fmt.Errorf("neighborhood: point set %s: %d y values but %d x values", id, len(y), len(x))
	}
	p := &PointSet{
		id: id,
		y:  make([]float64, len(y)),
		x:  make([]float64, len(x)),
	}
	copy(p.y, y)
	copy(p.x, x)
	return p, nil
}

// NewGridPointSet returns the points of a regular grid with ny rows and
// nx columns and spacings dy and dx, in row-major order with the first
// point at the origin.
func NewGridPointSet(id string, ny, nx int, dy, dx float64) *PointSet {
	p := &PointSet{
		id: id,
		y:  make([]float64, 0, ny*nx),
		x:  make([]float64, 0, ny*nx),
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			p.y = append(p.y, float64(j)*dy)
			p.x = append(p.x, float64(i)*dx)
		}
	}
	return p
}

// ID returns the identifier of p.
func (p *PointSet) ID() string { return p.id }

// Len returns the number of points in p.
func (p *PointSet) Len() int { return len(p.x) }

// Point returns point i.
func (p *PointSet) Point(i int) geom.Point {
	return geom.Point{X: p.x[i], Y: p.y[i]}
}
