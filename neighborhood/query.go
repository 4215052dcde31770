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

package neighborhood

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Query holds, for each analysis point, the indices of the candidate
// points within a search radius. It should not be modified after it is
// built.
type Query struct {
	// Neighbors holds the sorted candidate indices for each analysis point.
	Neighbors [][]int

	Radius float64

	// NumCandidates is the number of points in the candidate set.
	NumCandidates int
}

// Len returns the number of analysis points.
func (q *Query) Len() int { return len(q.Neighbors) }

// candidate is a point in the candidate set that can be stored in an
// rtree.
type candidate struct {
	geom.Point
	i int
}

// BuildQuery finds the candidates within radius (inclusive) of each
// analysis point.
func BuildQuery(candidates, analysis *PointSet, radius float64) (*Query, error) {
	if radius < 0 {
		return nil, fmt.Errorf("neighborhood: negative search radius %g", radius)
	}
	tree := rtree.NewTree(25, 50)
	for i := 0; i < candidates.Len(); i++ {
		tree.Insert(candidate{Point: candidates.Point(i), i: i})
	}
	q := &Query{
		Neighbors:     make([][]int, analysis.Len()),
		Radius:        radius,
		NumCandidates: candidates.Len(),
	}
	r2 := radius * radius
	// Pad the search box so candidates exactly on its edge are found.
	pad := radius*(1+1e-9) + 1e-9

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < analysis.Len(); ii += nprocs {
				p := analysis.Point(ii)
				box := &geom.Bounds{
					Min: geom.Point{X: p.X - pad, Y: p.Y - pad},
					Max: geom.Point{X: p.X + pad, Y: p.Y + pad},
				}
				var n []int
				for _, s := range tree.SearchIntersect(box) {
					c := s.(candidate)
					dx, dy := c.X-p.X, c.Y-p.Y
					if dx*dx+dy*dy <= r2 {
						n = append(n, c.i)
					}
				}
				sort.Ints(n)
				q.Neighbors[ii] = n
			}
		}(pp)
	}
	wg.Wait()
	return q, nil
}
