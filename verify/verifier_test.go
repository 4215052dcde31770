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
	"context"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/prometheus/client_golang/prometheus/testutil"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
)

// writeProbs writes a probability file with two radii, where the second
// radius holds probs.
func writeProbs(t *testing.T, path, name, radiusDim string, probs []float64) {
	d := ncf.NewDataset([]string{radiusDim, "y", "x"}, []int{2, 2, 3})
	data := sparse.ZerosDense(2, 2, 3)
	copy(data.Elements[6:], probs)
	if err := d.AddVariable(name, []string{radiusDim, "y", "x"}, data, map[string]interface{}{"units": "percent"}); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteFile(path); err != nil {
		t.Fatal(err)
	}
}

func TestVerifier(t *testing.T) {
	dir, err := ioutil.TempDir("", "verify")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	probs := []float64{0, 50, 0, 0, 100, 0}
	date := func(s string) time.Time {
		d, err := icens.ParseDate(s)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	obsStart, obsEnd := date("2016042700"), date("2016042714")
	obsDates, err := icens.DateRange(obsStart, obsEnd, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range obsDates {
		if d.Hour() == 5 {
			continue // missing observation
		}
		writeProbs(t, filepath.Join(dir, "obs", "o_"+icens.FormatDate(d)+".nc"), "col_max_refl_25", "radii", probs)
	}

	inits := []time.Time{date("2016042700"), date("2016042712"), date("2016042800")}
	for _, f := range []string{"2016042700/convective_f01.nc", "2016042700/convective_f02.nc", "2016042712/convective_f01.nc"} {
		writeProbs(t, filepath.Join(dir, "fc", "exp", f), "nmep_reflectivity_25_0", "radius", probs)
	}

	v, err := NewVerifier(Config{
		Experiment:          "exp",
		ForecastKey:         "nmep_reflectivity_25_0",
		ObservationKey:      "col_max_refl_25",
		RadiusIndex:         1,
		ForecastTemplate:    filepath.Join(dir, "fc", "[EXPERIMENT]", "[DATE]", "convective_f[HOUR].nc"),
		ObservationTemplate: filepath.Join(dir, "obs", "o_[DATE].nc"),
		Inits:               inits,
		Hours:               []int{1, 2},
		ObservationDates:    obsDates,
		SkipInits:           []time.Time{date("2016042800")},
		MinFiles:            2,
		Timeout:             time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	v.Metrics = observability.NewMetrics()
	r, err := v.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	const tolerance = 1e-9
	if different(r.Climatology, 1.0/3, tolerance) || different(r.Uncertainty, 2.0/9, tolerance) {
		t.Errorf("climatology %g, uncertainty %g", r.Climatology, r.Uncertainty)
	}
	for h := 0; h < 2; h++ {
		if different(r.FSS.Get(0, h), 1, tolerance) {
			t.Errorf("hour %d: fss %g", h, r.FSS.Get(0, h))
		}
		if different(r.BSS.Get(0, h), 0.8125, tolerance) {
			t.Errorf("hour %d: bss %g", h, r.BSS.Get(0, h))
		}
		if different(r.ROCArea.Get(0, h), 1, tolerance) {
			t.Errorf("hour %d: roc area %g", h, r.ROCArea.Get(0, h))
		}
		if r.Frequency.Get(0, h, 0) != 4 || r.Frequency.Get(0, h, 5) != 1 || r.Hits.Get(0, h, 10) != 1 {
			t.Errorf("hour %d: reliability %v", h, r.Frequency.Elements)
		}
		if !math.IsNaN(r.BinMean.Get(0, h, 1)) {
			t.Errorf("hour %d: empty bin mean should be NaN", h)
		}
		for i := 1; i < 3; i++ {
			if !math.IsNaN(r.FSS.Get(i, h)) {
				t.Errorf("initialization %d should not be verified", i)
			}
		}
	}
	if n := testutil.ToFloat64(v.Metrics.InitsSkipped); n != 1 {
		t.Errorf("skipped initializations: have %g, want 1", n)
	}
	if n := testutil.ToFloat64(v.Metrics.SamplesVerified); n != 2 {
		t.Errorf("samples: have %g, want 2", n)
	}

	path := OutputPath(dir, "exp", "nmep_reflectivity_25_0", 1)
	if err := r.Write(path); err != nil {
		t.Fatal(err)
	}
	f, err := ncf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fss, err := f.Read("fss")
	if err != nil {
		t.Fatal(err)
	}
	if len(fss.Shape) != 2 || fss.Shape[0] != 3 || fss.Shape[1] != 2 || fss.Get(0, 1) != 1 || !math.IsNaN(fss.Get(2, 0)) {
		t.Errorf("fss: shape %v, values %v", fss.Shape, fss.Elements)
	}
	clim, err := f.Read("climatology")
	if err != nil {
		t.Fatal(err)
	}
	if different(clim.Elements[0], 1.0/3, tolerance) {
		t.Errorf("climatology in file: %g", clim.Elements[0])
	}
	initVar, err := f.Read("initialization")
	if err != nil {
		t.Fatal(err)
	}
	if initVar.Elements[1]-initVar.Elements[0] != 12 {
		t.Errorf("initializations: %v", initVar.Elements)
	}
}

func TestNewVerifierErrors(t *testing.T) {
	init, _ := icens.ParseDate("2016042700")
	good := Config{
		ForecastKey:      "nmep_reflectivity_25_0",
		ObservationKey:   "col_max_refl_25",
		Inits:            []time.Time{init},
		Hours:            []int{1},
		ObservationDates: []time.Time{init},
	}
	if _, err := NewVerifier(good); err != nil {
		t.Fatal(err)
	}
	bad := []func(c *Config){
		func(c *Config) { c.ObservationKey = "hail" },
		func(c *Config) { c.ForecastKey = "" },
		func(c *Config) { c.RadiusIndex = -1 },
		func(c *Config) { c.Hours = nil },
		func(c *Config) { c.Bins = []float64{10, 5} },
	}
	for i, modify := range bad {
		c := good
		modify(&c)
		if _, err := NewVerifier(c); err == nil {
			t.Errorf("case %d should fail", i)
		}
	}
}
