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
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// Results holds verification statistics for a set of initializations
// and forecast hours. Statistics that could not be calculated are NaN.
type Results struct {
	Inits []time.Time
	Hours []int

	// Bins are the upper edges of the reliability bins in percent.
	Bins []float64

	// FSS, BSS and ROCArea have shape (initialization, forecast hour).
	FSS, BSS, ROCArea *sparse.DenseArray

	// Frequency, Hits and BinMean have shape (initialization,
	// forecast hour, bin).
	Frequency, Hits, BinMean *sparse.DenseArray

	// Climatology and Uncertainty are dimensionless.
	Climatology, Uncertainty float64
}

// NewResults returns NaN-filled results for the given initializations,
// forecast hours and reliability bins.
func NewResults(inits []time.Time, hours []int, bins []float64) *Results {
	ni, nh, nb := len(inits), len(hours), len(bins)
	return &Results{
		Inits:     inits,
		Hours:     hours,
		Bins:      bins,
		FSS:       nanArray(ni, nh),
		BSS:       nanArray(ni, nh),
		ROCArea:   nanArray(ni, nh),
		Frequency: nanArray(ni, nh, nb),
		Hits:      nanArray(ni, nh, nb),
		BinMean:   nanArray(ni, nh, nb),
	}
}

// OutputPath returns the location of the results file for the given
// experiment, forecast variable and radius index within dir.
func OutputPath(dir, experiment, forecastKey string, radiusIndex int) string {
	return filepath.Join(dir, experiment, fmt.Sprintf("%s_r%d.nc", forecastKey, radiusIndex))
}

// Write writes r to a NetCDF file at path.
func (r *Results) Write(path string) error {
	d := ncf.NewDataset(
		[]string{"initialization", "forecast_hour", "bins"},
		[]int{len(r.Inits), len(r.Hours), len(r.Bins)},
	)
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	inits := sparse.ZerosDense(len(r.Inits))
	for i, t := range r.Inits {
		inits.Elements[i] = t.Sub(epoch).Hours()
	}
	hours := sparse.ZerosDense(len(r.Hours))
	for i, h := range r.Hours {
		hours.Elements[i] = float64(h)
	}
	bins := sparse.ZerosDense(len(r.Bins))
	copy(bins.Elements, r.Bins)
	clim := sparse.ZerosDense(1)
	clim.Elements[0] = r.Climatology
	unc := sparse.ZerosDense(1)
	unc.Elements[0] = r.Uncertainty

	dims := []string{"initialization", "forecast_hour"}
	relDims := []string{"initialization", "forecast_hour", "bins"}
	vars := []struct {
		name  string
		dims  []string
		data  *sparse.DenseArray
		attrs map[string]interface{}
	}{
		{"initialization", []string{"initialization"}, inits, map[string]interface{}{
			"units": "hours since 1970-01-01 00:00:00", "calendar": "standard"}},
		{"forecast_hour", []string{"forecast_hour"}, hours, map[string]interface{}{"units": "hours"}},
		{"bins", []string{"bins"}, bins, map[string]interface{}{"units": "percent"}},
		{"fss", dims, r.FSS, map[string]interface{}{"description": "fractions skill score"}},
		{"bss", dims, r.BSS, map[string]interface{}{"description": "Brier skill score"}},
		{"roc_area", dims, r.ROCArea, map[string]interface{}{"description": "area under the ROC curve"}},
		{"frequency", relDims, r.Frequency, map[string]interface{}{"description": "number of forecasts in each probability bin"}},
		{"hits", relDims, r.Hits, map[string]interface{}{"description": "number of observed events in each probability bin"}},
		{"bin_mean", relDims, r.BinMean, map[string]interface{}{"description": "mean forecast probability in each bin", "units": "percent"}},
		{"climatology", nil, clim, map[string]interface{}{"units": "dimensionless"}},
		{"uncertainty", nil, unc, map[string]interface{}{"units": "dimensionless"}},
	}
	for _, v := range vars {
		if err := d.AddVariable(v.name, v.dims, v.data, v.attrs); err != nil {
			return fmt.Errorf("verify: %v", err)
		}
		d.Variables[v.name].Double = true
	}
	return d.WriteFile(path)
}
