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

// Package verify calculates verification statistics for gridded
// probabilistic forecasts.
package verify

import (
	"errors"
	"fmt"
	"math"

	icens "github.com/rpmanser/large-ic-ensembles"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrUndefinedAUC is returned by ROCAUC when the area under the ROC curve
// cannot be calculated because the observations contain only one class
// or the inputs contain NaN values.
var ErrUndefinedAUC = errors.New("verify: undefined ROC area")

// pair returns the values of forecast f and observation o as dimensionless
// probabilities.
func pair(f, o *icens.Field) (fd, od []float64, err error) {
	if len(f.Elements) != len(o.Elements) {
		return nil, nil, fmt.Errorf("verify: forecast has %d values but observation has %d", len(f.Elements), len(o.Elements))
	}
	if fd, err = f.Dimensionless(); err != nil {
		return nil, nil, fmt.Errorf("verify: forecast: %v", err)
	}
	if od, err = o.Dimensionless(); err != nil {
		return nil, nil, fmt.Errorf("verify: observation: %v", err)
	}
	return fd, od, nil
}

// FSS returns the fractions skill score of forecast probabilities f
// against observed probabilities o. The result is NaN if neither f nor o
// has any nonzero values.
func FSS(f, o *icens.Field) (float64, error) {
	fss, _, _, err := FSSComponents(f, o)
	return fss, err
}

// FSSComponents returns the fractions skill score along with the
// fractions Brier score and the worst possible fractions Brier score
// it is calculated from.
func FSSComponents(f, o *icens.Field) (fss, fbs, fbsWorst float64, err error) {
	fd, od, err := pair(f, o)
	if err != nil {
		return math.NaN(), math.NaN(), math.NaN(), err
	}
	if !anyPositive(fd) && !anyPositive(od) {
		return math.NaN(), math.NaN(), math.NaN(), nil
	}
	n := float64(len(fd))
	for i, fv := range fd {
		ov := od[i]
		fbs += (fv - ov) * (fv - ov)
		fbsWorst += fv*fv + ov*ov
	}
	fbs /= n
	fbsWorst /= n
	return 1 - fbs/fbsWorst, fbs, fbsWorst, nil
}

func anyPositive(v []float64) bool {
	for _, x := range v {
		if x > 0 {
			return true
		}
	}
	return false
}

// BrierScore returns the Brier score of forecast probabilities f against
// observed probabilities o, ignoring NaN values. If skill is true the
// Brier skill score is returned instead, using ref as the reference
// score. ref is a dimensionless value; if it is nil the variance of o
// about its mean is used.
func BrierScore(f, o *icens.Field, skill bool, ref *float64) (float64, error) {
	fd, od, err := pair(f, o)
	if err != nil {
		return math.NaN(), err
	}
	n := float64(len(fd))
	d := make([]float64, len(fd))
	for i, fv := range fd {
		d[i] = (fv - od[i]) * (fv - od[i])
	}
	bs := nanSum(d) / n
	if !skill {
		return bs, nil
	}
	var r float64
	if ref != nil {
		r = *ref
	} else {
		m := nanMean(od)
		for i, ov := range od {
			d[i] = (m - ov) * (m - ov)
		}
		r = nanSum(d) / n
	}
	return 1 - bs/r, nil
}

// SampleClimatology returns the mean of observed probabilities o as a
// dimensionless value.
func SampleClimatology(o *icens.Field) (float64, error) {
	od, err := o.Dimensionless()
	if err != nil {
		return math.NaN(), fmt.Errorf("verify: sample climatology: %v", err)
	}
	if len(od) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(od, nil), nil
}

// Uncertainty returns the uncertainty c(1-c) of the dimensionless sample
// climatology c.
func Uncertainty(c float64) float64 {
	return c * (1 - c)
}

// Reliability accumulates forecast probabilities f and observed
// probabilities o into the given probability bins, which are in units
// binUnits and exclude 0. The first bin holds forecasts in [0, bins[0]]
// and bin i holds forecasts in (bins[i-1], bins[i]]. For each bin it
// returns the number of forecasts, the number of those forecasts whose
// observation exceeds the lower edge of the bin, and the mean forecast
// probability, which is NaN for empty bins.
func Reliability(f, o *icens.Field, bins []float64, binUnits icens.Units) (freq, hits, binMean []float64, err error) {
	if len(f.Elements) != len(o.Elements) {
		return nil, nil, nil, fmt.Errorf("verify: forecast has %d values but observation has %d", len(f.Elements), len(o.Elements))
	}
	fc, err := f.Convert(binUnits)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("verify: reliability forecast: %v", err)
	}
	oc, err := o.Convert(binUnits)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("verify: reliability observation: %v", err)
	}
	freq = make([]float64, len(bins))
	hits = make([]float64, len(bins))
	binMean = make([]float64, len(bins))
	lower := 0.0
	for i, upper := range bins {
		var sum float64
		for j, p := range fc.Elements {
			in := p > lower && p <= upper
			if lower == 0 {
				in = p >= lower && p <= upper
			}
			if !in {
				continue
			}
			freq[i]++
			sum += p
			if oc.Elements[j] > lower {
				hits[i]++
			}
		}
		if freq[i] > 0 {
			binMean[i] = sum / freq[i]
		} else {
			binMean[i] = math.NaN()
		}
		lower = upper
	}
	return freq, hits, binMean, nil
}

// ROCAUC returns the area under the receiver operating characteristic
// curve of forecast probabilities f as a classifier of the observations
// o, where observations greater than zero are events. ErrUndefinedAUC is
// returned if all observations are in the same class or if any value
// is NaN.
func ROCAUC(o, f *icens.Field) (float64, error) {
	if len(f.Elements) != len(o.Elements) {
		return math.NaN(), fmt.Errorf("verify: forecast has %d values but observation has %d", len(f.Elements), len(o.Elements))
	}
	if floats.HasNaN(f.Elements) || floats.HasNaN(o.Elements) {
		return math.NaN(), ErrUndefinedAUC
	}
	y := make([]float64, len(f.Elements))
	copy(y, f.Elements)
	classes := make([]bool, len(o.Elements))
	var nPos int
	for i, v := range o.Elements {
		if v > 0 {
			classes[i] = true
			nPos++
		}
	}
	if nPos == 0 || nPos == len(classes) {
		return math.NaN(), ErrUndefinedAUC
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

func nanSum(v []float64) float64 {
	var s float64
	for _, x := range v {
		if !math.IsNaN(x) {
			s += x
		}
	}
	return s
}

func nanMean(v []float64) float64 {
	var s, n float64
	for _, x := range v {
		if !math.IsNaN(x) {
			s += x
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return s / n
}
