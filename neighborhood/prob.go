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
	"math"

	"github.com/ctessum/sparse"
)

func (q *Query) checkValues(values []float64) error {
	if len(values) != q.NumCandidates {
		return fmt.Errorf("neighborhood: %d values for a query with %d candidate points", len(values), q.NumCandidates)
	}
	return nil
}

// MaxBinProb returns, for each analysis point in q, 1 if any of its
// neighbors has a value of 1 and 0 otherwise. values holds one binary
// value for each candidate point.
func MaxBinProb(values []float64, q *Query) ([]float64, error) {
	if err := q.checkValues(values); err != nil {
		return nil, err
	}
	o := make([]float64, q.Len())
	for i, n := range q.Neighbors {
		for _, j := range n {
			if values[j] == 1 {
				o[i] = 1
				break
			}
		}
	}
	return o, nil
}

// NeighborProb returns, for each analysis point in q, the sum of the
// non-NaN values of its neighbors divided by the number of neighbors.
// The result is NaN for analysis points with no neighbors.
func NeighborProb(values []float64, q *Query) ([]float64, error) {
	if err := q.checkValues(values); err != nil {
		return nil, err
	}
	o := make([]float64, q.Len())
	for i, n := range q.Neighbors {
		if len(n) == 0 {
			o[i] = math.NaN()
			continue
		}
		var hits float64
		for _, j := range n {
			if !math.IsNaN(values[j]) {
				hits += values[j]
			}
		}
		o[i] = hits / float64(len(n))
	}
	return o, nil
}

// NMEP returns the neighborhood maximum ensemble probability: the mean
// over ensemble members of each member's MaxBinProb. ens holds binary
// ensemble values with members along dimension axis; each member must hold
// one value per candidate point of q, in row-major order of the remaining
// dimensions. The result has the shape of ens with axis removed.
func NMEP(ens *sparse.DenseArray, q *Query, axis int) (*sparse.DenseArray, error) {
	if axis < 0 || axis >= len(ens.Shape) {
		return nil, fmt.Errorf("neighborhood: member axis %d out of range for array with %d dimensions", axis, len(ens.Shape))
	}
	nMembers := ens.Shape[axis]
	var shape []int
	for d, n := range ens.Shape {
		if d != axis {
			shape = append(shape, n)
		}
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	o := sparse.ZerosDense(shape...)
	if len(o.Elements) != q.Len() {
		return nil, fmt.Errorf("neighborhood: member fields have %d points but the query has %d analysis points", len(o.Elements), q.Len())
	}
	if nMembers == 0 {
		return nil, fmt.Errorf("neighborhood: ensemble has no members")
	}
	for m := 0; m < nMembers; m++ {
		p, err := MaxBinProb(Member(ens, axis, m), q)
		if err != nil {
			return nil, err
		}
		for i, v := range p {
			o.Elements[i] += v
		}
	}
	o.Scale(1 / float64(nMembers))
	return o, nil
}

// Member returns a copy of index m along dimension axis of a, flattened in
// row-major order of the remaining dimensions.
func Member(a *sparse.DenseArray, axis, m int) []float64 {
	// Dimensions before axis form the outer loop and those after it
	// form contiguous blocks.
	outer, inner := 1, 1
	for d, n := range a.Shape {
		switch {
		case d < axis:
			outer *= n
		case d > axis:
			inner *= n
		}
	}
	n := a.Shape[axis]
	o := make([]float64, 0, outer*inner)
	for i := 0; i < outer; i++ {
		start := (i*n + m) * inner
		o = append(o, a.Elements[start:start+inner]...)
	}
	return o
}
