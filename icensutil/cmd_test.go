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

package icensutil

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/reproject"
)

func TestVerifyConfig(t *testing.T) {
	Cfg.Set("verify.DataDir", "/data")
	defer Cfg.Set("verify.DataDir", "")

	cfg, err := VerifyConfig(Cfg, "recenter", "nmep_reflectivity_25_0", "col_max_refl_25", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Inits) != 76 {
		t.Errorf("have %d initializations, want 76", len(cfg.Inits))
	}
	if last := icens.FormatDate(cfg.Inits[len(cfg.Inits)-1]); last != "2016060312" {
		t.Errorf("last initialization %s", last)
	}
	if len(cfg.ObservationDates) != 949 {
		t.Errorf("have %d observation dates, want 949", len(cfg.ObservationDates))
	}
	if len(cfg.Hours) != 48 || cfg.Hours[0] != 1 || cfg.Hours[47] != 48 {
		t.Errorf("hours: %v", cfg.Hours)
	}
	if len(cfg.SkipInits) != 3 || icens.FormatDate(cfg.SkipInits[1]) != "2016050100" {
		t.Errorf("skipped initializations: %v", cfg.SkipInits)
	}
	if cfg.MinFiles != 48 || cfg.Timeout != 0 || cfg.Workers != 0 {
		t.Errorf("MinFiles=%d, Timeout=%v, Workers=%d", cfg.MinFiles, cfg.Timeout, cfg.Workers)
	}
	if len(cfg.Bins) != 11 || cfg.Bins[0] != 5 || cfg.Bins[10] != 100 {
		t.Errorf("bins: %v", cfg.Bins)
	}
	if want := "/data/wrf_post/[EXPERIMENT]/[DATE]/convective_f[HOUR].nc"; cfg.ForecastTemplate != want {
		t.Errorf("forecast template %s, want %s", cfg.ForecastTemplate, want)
	}
	if want := "/data/gr_neps/gridrad_[DATE].nc"; cfg.ObservationTemplate != want {
		t.Errorf("observation template %s, want %s", cfg.ObservationTemplate, want)
	}

	other, err := VerifyConfig(Cfg, "control", "nmep_precipitation_0_254", "precip_0_01", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(other.SkipInits) != 0 {
		t.Errorf("control experiment should not skip initializations: %v", other.SkipInits)
	}
	if want := "/data/st4_nps/stage4_[DATE].nc"; other.ObservationTemplate != want {
		t.Errorf("observation template %s, want %s", other.ObservationTemplate, want)
	}

	if _, err := VerifyConfig(Cfg, "control", "nmep_precipitation_0_254", "unknown", 0); err == nil {
		t.Error("unknown observation key should fail")
	}
}

func TestCheckers(t *testing.T) {
	if _, err := checkDate("test", ""); err == nil {
		t.Error("empty date should fail")
	}
	if _, err := checkDate("test", "2016-04-27"); err == nil {
		t.Error("malformed date should fail")
	}
	os.Setenv("ICENS_TEST_DATE", "2016042712")
	defer os.Unsetenv("ICENS_TEST_DATE")
	d, err := checkDate("test", "$ICENS_TEST_DATE")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(time.Date(2016, 4, 27, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("date %v", d)
	}

	for _, test := range []struct {
		in   interface{}
		want time.Duration
	}{
		{"12h", 12 * time.Hour},
		{"90m", 90 * time.Minute},
		{"0s", 0},
	} {
		d, err := checkDuration("test", test.in)
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
		} else if d != test.want {
			t.Errorf("%v: have %v, want %v", test.in, d, test.want)
		}
	}

	for _, test := range []struct {
		in   interface{}
		want []float64
	}{
		{"[20,40,60]", []float64{20, 40, 60}},
		{"32, 64", []float64{32, 64}},
		{[]interface{}{int64(5), int64(15)}, []float64{5, 15}},
		{[]int{1}, []float64{1}},
	} {
		have, err := toFloat64SliceE("test", test.in)
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if len(have) != len(test.want) {
			t.Errorf("%v: have %v, want %v", test.in, have, test.want)
			continue
		}
		for i := range have {
			if have[i] != test.want[i] {
				t.Errorf("%v: have %v, want %v", test.in, have, test.want)
			}
		}
	}
	if _, err := toFloat64SliceE("test", "1,a"); err == nil {
		t.Error("invalid list should fail")
	}

	if u, err := checkUnits("test", "mi"); err != nil || u != icens.Mile {
		t.Errorf("units %v, %v", u, err)
	}
	if _, err := checkInputPath("test", ""); err == nil {
		t.Error("empty input path should fail")
	}
	if have := joinDir("/data/", "a/[DATE].nc"); have != "/data/a/[DATE].nc" {
		t.Errorf("joinDir: %s", have)
	}
	if have := joinDir("/data", "/abs/[DATE].nc"); have != "/abs/[DATE].nc" {
		t.Errorf("joinDir: %s", have)
	}
}

func TestCheckOutputDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "icensutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	out, err := checkOutputDir(filepath.Join(dir, "a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(out); err != nil || !fi.IsDir() {
		t.Errorf("output directory was not created: %v", err)
	}
}

func TestSetLogging(t *testing.T) {
	Cfg.Set("Log.Format", "xml")
	if err := setLogging(Cfg); err == nil {
		t.Error("invalid log format should fail")
	}
	Cfg.Set("Log.Format", "json")
	Cfg.Set("Log.Level", "loud")
	if err := setLogging(Cfg); err == nil {
		t.Error("invalid log level should fail")
	}
	Cfg.Set("Log.Level", "warn")
	if err := setLogging(Cfg); err != nil {
		t.Error(err)
	}
	Cfg.Set("Log.Format", "text")
	Cfg.Set("Log.Level", "info")
}

// execute runs the root command with the given arguments and returns
// its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	Root.SetOut(buf)
	Root.SetErr(ioutil.Discard)
	Root.SetArgs(args)
	err := Root.Execute()
	return buf.String(), err
}

func TestModDate(t *testing.T) {
	for _, test := range []struct {
		args []string
		want string
	}{
		{[]string{"moddate", "2016042700", "36"}, "2016042812\n"},
		{[]string{"moddate", "--", "2016050100", "-1"}, "2016043023\n"},
	} {
		have, err := execute(t, test.args...)
		if err != nil {
			t.Errorf("%v: %v", test.args, err)
			continue
		}
		if have != test.want {
			t.Errorf("%v: have %q, want %q", test.args, have, test.want)
		}
	}
	if _, err := execute(t, "moddate", "20160427", "1"); err == nil {
		t.Error("invalid date should fail")
	}
}

func TestVersion(t *testing.T) {
	have, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(have, icens.Version) {
		t.Errorf("version output %q", have)
	}
}

func TestMETGridCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "icensutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := writeReference(t, dir)

	out, err := execute(t, "metgrid", "--WRFReference", path, "TTU WRF")
	if err != nil {
		t.Fatal(err)
	}
	var g reproject.METGrid
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatal(err)
	}
	if g.Name != "TTU WRF" || g.NX != 5 || g.NY != 4 || g.DKm != 3 ||
		g.LatPin != float64(float32(38.9)) || g.LonPin != float64(float32(-101.2)) {
		t.Errorf("MET grid: %+v", g)
	}

	if _, err := execute(t, "metgrid", "--WRFReference", filepath.Join(dir, "none"), "TTU WRF"); err == nil {
		t.Error("missing reference file should fail")
	}
}
