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

// Package obsprob calculates neighborhood probabilities of observed
// radar reflectivity and precipitation on a forecast grid.
package obsprob

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/neighborhood"
	"github.com/rpmanser/large-ic-ensembles/reproject"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// DefaultRadii are the neighborhood radii in miles.
	DefaultRadii = []float64{20, 40, 60}

	// GridRadThresholds are the column-maximum reflectivity thresholds in dBZ.
	GridRadThresholds = []float64{25, 40}

	// StageIVThresholds are the hourly precipitation thresholds in inches.
	StageIVThresholds = []float64{0.01, 0.1, 0.25, 0.5, 1.0}
)

// Observation is a field of observations with the location of each value.
type Observation struct {
	// Name is the prefix of the output variable names.
	Name string

	// GridID identifies the observation grid. Observations with the same
	// GridID must have the same locations.
	GridID string

	// Field holds the observed values.
	Field *icens.Field

	// Lon and Lat hold the location of each element of Field in degrees.
	Lon, Lat []float64
}

// Calculator calculates observed neighborhood probabilities on the grid
// of a WRF reference file.
type Calculator struct {
	Reference *reproject.WRFReference

	// Radii are the neighborhood radii in meters.
	Radii []float64

	// Cache holds the neighborhood queries, which are reused for every
	// threshold and for every observation time on the same grid.
	Cache *neighborhood.QueryCache

	Log logrus.FieldLogger

	mu       sync.Mutex
	analysis *neighborhood.PointSet
	subsets  map[string]*reproject.Subset
}

// NewCalculator returns a new calculator for the grid of ref with the
// given radii, which are in units u.
func NewCalculator(ref *reproject.WRFReference, radii []float64, u icens.Units) (*Calculator, error) {
	if len(radii) == 0 {
		return nil, fmt.Errorf("obsprob: no neighborhood radii")
	}
	c := &Calculator{
		Reference: ref,
		Radii:     make([]float64, len(radii)),
		Cache:     neighborhood.NewQueryCache(len(radii) * 4),
		Log:       logrus.StandardLogger(),
		subsets:   make(map[string]*reproject.Subset),
	}
	for i, r := range radii {
		m, err := icens.Convert(r, u, icens.Meter)
		if err != nil {
			return nil, fmt.Errorf("obsprob: radius: %v", err)
		}
		c.Radii[i] = m
	}
	return c, nil
}

// Probabilities holds neighborhood probabilities for a set of thresholds.
type Probabilities struct {
	// Radii are the neighborhood radii in meters.
	Radii []float64

	// Names are the variable names in the order of the thresholds.
	Names []string

	// Thresholds are the thresholds for each name.
	Thresholds     map[string]float64
	ThresholdUnits icens.Units

	// Probs holds the probabilities in percent for each name, with
	// shape (radius, y, x).
	Probs map[string]*sparse.DenseArray
}

// Calculate returns the neighborhood probability of obs exceeding each
// of the thresholds, which are in units u, for every radius in c.
// Probabilities are zero where no observations are in range.
func (c *Calculator) Calculate(ctx context.Context, obs *Observation, thresholds []float64, u icens.Units) (*Probabilities, error) {
	if len(obs.Lon) != len(obs.Field.Elements) || len(obs.Lat) != len(obs.Field.Elements) {
		return nil, fmt.Errorf("obsprob: %s has %d values but %d locations", obs.Name, len(obs.Field.Elements), len(obs.Lon))
	}
	subset, err := c.subset(obs)
	if err != nil {
		return nil, err
	}
	candidates, err := neighborhood.NewPointSet(obs.GridID, subset.ObsY, subset.ObsX)
	if err != nil {
		return nil, err
	}
	analysis, err := c.analysisPoints(subset)
	if err != nil {
		return nil, err
	}
	ny, nx := c.Reference.Shape()
	p := &Probabilities{
		Radii:          c.Radii,
		Thresholds:     make(map[string]float64),
		ThresholdUnits: obs.Field.Units,
		Probs:          make(map[string]*sparse.DenseArray),
	}
	for _, t := range thresholds {
		tt, err := icens.Convert(t, u, obs.Field.Units)
		if err != nil {
			return nil, fmt.Errorf("obsprob: threshold for %s: %v", obs.Name, err)
		}
		bin, err := obs.Field.Threshold(tt, obs.Field.Units)
		if err != nil {
			return nil, err
		}
		values, err := reproject.MaskValues(bin.Elements, subset.Mask)
		if err != nil {
			return nil, err
		}
		probs := sparse.ZerosDense(len(c.Radii), ny, nx)
		g, gctx := errgroup.WithContext(ctx)
		for i, r := range c.Radii {
			i, r := i, r
			g.Go(func() error {
				q, err := c.Cache.Get(gctx, candidates, analysis, r)
				if err != nil {
					return err
				}
				np, err := neighborhood.NeighborProb(values, q)
				if err != nil {
					return err
				}
				o := probs.Elements[i*ny*nx : (i+1)*ny*nx]
				for j, v := range np {
					if math.IsNaN(v) {
						v = 0
					}
					o[j] = v * 100
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("obsprob: %s: %v", obs.Name, err)
		}
		name := VariableName(obs.Name, tt)
		p.Names = append(p.Names, name)
		p.Thresholds[name] = tt
		p.Probs[name] = probs
		c.Log.WithFields(logrus.Fields{
			"variable":  name,
			"threshold": tt,
			"units":     obs.Field.Units,
		}).Debug("calculated observed neighborhood probabilities")
	}
	return p, nil
}

// subset returns the projection of the observation grid onto the
// forecast grid, which is calculated once for each observation grid.
func (c *Calculator) subset(obs *Observation) (*reproject.Subset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.subsets[obs.GridID]; ok && obs.GridID != "" {
		return s, nil
	}
	s, err := reproject.SubsetToForecastGrid(c.Reference, obs.Lon, obs.Lat, nil)
	if err != nil {
		return nil, fmt.Errorf("obsprob: %s: %v", obs.Name, err)
	}
	if obs.GridID != "" {
		c.subsets[obs.GridID] = s
	}
	return s, nil
}

// analysisPoints returns the projected forecast grid points.
func (c *Calculator) analysisPoints(s *reproject.Subset) (*neighborhood.PointSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analysis != nil {
		return c.analysis, nil
	}
	ny, nx := c.Reference.Shape()
	id := fmt.Sprintf("wrf_%dx%d_%g_%g_%g", ny, nx, c.Reference.DX, c.Reference.CenLon, c.Reference.CenLat)
	a, err := neighborhood.NewPointSet(id, s.GridY.Elements, s.GridX.Elements)
	if err != nil {
		return nil, err
	}
	c.analysis = a
	return a, nil
}

// VariableName returns the name of the probability variable for the
// given prefix and threshold, for example col_max_refl_25 or
// precipitation_0_254.
func VariableName(prefix string, threshold float64) string {
	// Round off conversion error in thresholds like 0.01 in.
	f, _ := strconv.ParseFloat(strconv.FormatFloat(threshold, 'g', 10, 64), 64)
	t := strconv.FormatFloat(f, 'f', -1, 64)
	return prefix + "_" + strings.Replace(t, ".", "_", -1)
}
