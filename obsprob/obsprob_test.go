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
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
	"github.com/rpmanser/large-ic-ensembles/reproject"
)

const ny, nx = 9, 11

// testReference returns a 9x11 grid with 40 km spacing centered on the
// projection origin.
func testReference(t *testing.T) *reproject.WRFReference {
	r := &reproject.WRFReference{
		CenLon: -101, CenLat: 39, TrueLat1: 30, TrueLat2: 60, StandLon: -101,
		DX: 40000, DY: 40000, WestEastDim: nx + 1, SouthNorthDim: ny + 1,
	}
	l, err := r.LCC()
	if err != nil {
		t.Fatal(err)
	}
	r.Lon = sparse.ZerosDense(ny, nx)
	r.Lat = sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lon, lat, err := l.Inverse(float64(i-nx/2)*r.DX, float64(j-ny/2)*r.DY)
			if err != nil {
				t.Fatal(err)
			}
			r.Lon.Set(lon, j, i)
			r.Lat.Set(lat, j, i)
		}
	}
	return r
}

func TestCalculate(t *testing.T) {
	ref := testReference(t)
	c, err := NewCalculator(ref, []float64{1, 50000}, icens.Meter)
	if err != nil {
		t.Fatal(err)
	}
	// Interior observations sit on the forecast grid points. Observations
	// in the outer rows and columns are pushed half a grid spacing outward
	// so that they fall outside the grid and are dropped.
	l, err := ref.LCC()
	if err != nil {
		t.Fatal(err)
	}
	obsLon := make([]float64, ny*nx)
	obsLat := make([]float64, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			x, y := float64(i-nx/2), float64(j-ny/2)
			switch i {
			case 0:
				x -= 0.5
			case nx - 1:
				x += 0.5
			}
			switch j {
			case 0:
				y -= 0.5
			case ny - 1:
				y += 0.5
			}
			lon, lat, err := l.Inverse(x*ref.DX, y*ref.DY)
			if err != nil {
				t.Fatal(err)
			}
			obsLon[j*nx+i] = lon
			obsLat[j*nx+i] = lat
		}
	}
	refl := sparse.ZerosDense(ny, nx)
	for i := range refl.Elements {
		refl.Elements[i] = 30
	}
	refl.Set(45, 4, 5)
	obs := &Observation{
		Name:   "col_max_refl",
		GridID: "test",
		Field:  icens.NewField(refl, icens.DBZ),
		Lon:    obsLon,
		Lat:    obsLat,
	}
	p, err := c.Calculate(context.Background(), obs, GridRadThresholds, icens.DBZ)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Names) != 2 || p.Names[0] != "col_max_refl_25" || p.Names[1] != "col_max_refl_40" {
		t.Fatalf("names: %v", p.Names)
	}

	edge := func(j, i int) bool { return j == 0 || i == 0 || j == ny-1 || i == nx-1 }
	p25 := p.Probs["col_max_refl_25"]
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			want := 100.0
			if edge(j, i) {
				want = 0
			}
			if v := p25.Get(0, j, i); v != want {
				t.Errorf("25 dBZ, point (%d, %d): have %g, want %g", j, i, v, want)
			}
			// The nearest interior point to a corner is 57 km away.
			corner := (j == 0 || j == ny-1) && (i == 0 || i == nx-1)
			want = 100
			if corner {
				want = 0
			}
			if v := p25.Get(1, j, i); v != want {
				t.Errorf("25 dBZ, 50 km, point (%d, %d): have %g, want %g", j, i, v, want)
			}
		}
	}
	p40 := p.Probs["col_max_refl_40"]
	tests := []struct {
		r, j, i int
		want    float64
	}{
		{r: 0, j: 4, i: 5, want: 100},
		{r: 0, j: 4, i: 6, want: 0},
		{r: 1, j: 4, i: 5, want: 20},
		{r: 1, j: 4, i: 6, want: 20},
		{r: 1, j: 5, i: 6, want: 0},
	}
	for _, test := range tests {
		if v := p40.Get(test.r, test.j, test.i); different(v, test.want, 1e-9) {
			t.Errorf("40 dBZ, radius %d, point (%d, %d): have %g, want %g", test.r, test.j, test.i, v, test.want)
		}
	}

	// Thresholds in incompatible units fail.
	if _, err := c.Calculate(context.Background(), obs, []float64{1}, icens.Inch); err == nil {
		t.Error("precipitation threshold for reflectivity should fail")
	}

	dir, err := ioutil.TempDir("", "obsprob")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	date, _ := icens.ParseDate("2016050112")
	path := filepath.Join(dir, ncf.ExpandTemplate(GridRadOutputTemplate, icens.DateFormat, date))
	if err := p.Write(path); err != nil {
		t.Fatal(err)
	}
	f, err := ncf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	radius, err := f.Read("radius")
	if err != nil {
		t.Fatal(err)
	}
	if radius.Elements[1] != 50 {
		t.Errorf("radius: have %g km, want 50", radius.Elements[1])
	}
	rec, err := f.ReadRecord("col_max_refl_40", 1)
	if err != nil {
		t.Fatal(err)
	}
	if different(rec.Get(4, 5), 20, 1e-5) {
		t.Errorf("written probability: have %g, want 20", rec.Get(4, 5))
	}
	if th, err := f.Attribute("col_max_refl_40", "threshold"); err != nil || th != 40 {
		t.Errorf("threshold attribute: %g, %v", th, err)
	}
}

func different(a, b, tolerance float64) bool {
	d := a - b
	return d > tolerance || d < -tolerance || a != a || b != b
}

func TestVariableName(t *testing.T) {
	tests := []struct {
		prefix string
		t      float64
		u      icens.Units
		want   string
	}{
		{"col_max_refl", 25, icens.DBZ, "col_max_refl_25"},
		{"precipitation", 0.01, icens.Inch, "precipitation_0_254"},
		{"precipitation", 0.1, icens.Inch, "precipitation_2_54"},
		{"precipitation", 0.5, icens.Inch, "precipitation_12_7"},
		{"precipitation", 1, icens.Inch, "precipitation_25_4"},
	}
	for _, test := range tests {
		v, err := icens.Convert(test.t, test.u, icens.Millimeter)
		if test.u == icens.DBZ {
			v, err = test.t, nil
		}
		if err != nil {
			t.Fatal(err)
		}
		if have := VariableName(test.prefix, v); have != test.want {
			t.Errorf("have %s, want %s", have, test.want)
		}
	}
}

func TestReadStageIV(t *testing.T) {
	dir, err := ioutil.TempDir("", "obsprob")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	date := time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)
	path := StageIVPath(filepath.Join(dir, StageIVTemplate), date)
	if filepath.Base(path) != "ST4.2016050112.01h.nc" {
		t.Errorf("path: %s", path)
	}

	d := ncf.NewDataset([]string{"y", "x"}, []int{2, 3})
	tp := sparse.ZerosDense(2, 3)
	tp.Set(3, 1, 2)
	lon := sparse.ZerosDense(3)
	copy(lon.Elements, []float64{-100, -99, -98})
	lat := sparse.ZerosDense(2)
	copy(lat.Elements, []float64{35, 36})
	for _, v := range []struct {
		name  string
		dims  []string
		data  *sparse.DenseArray
		attrs map[string]interface{}
	}{
		{"tp", []string{"y", "x"}, tp, map[string]interface{}{"units": "kg m-2"}},
		{"longitude", []string{"x"}, lon, nil},
		{"latitude", []string{"y"}, lat, nil},
	} {
		if err := d.AddVariable(v.name, v.dims, v.data, v.attrs); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	obs, err := ReadStageIV(path)
	if err != nil {
		t.Fatal(err)
	}
	if obs.Field.Units != icens.Millimeter || obs.Field.Get(1, 2) != 3 {
		t.Errorf("field: %s %v", obs.Field.Units, obs.Field.Elements)
	}
	if len(obs.Lon) != 6 || obs.Lon[5] != -98 || obs.Lat[5] != 36 {
		t.Errorf("coordinates: %v %v", obs.Lon, obs.Lat)
	}
	if _, err := ReadStageIV(filepath.Join(dir, "none.nc")); err != ncf.ErrNotExist {
		t.Errorf("missing file: have %v, want ErrNotExist", err)
	}
}

func TestGridRadPath(t *testing.T) {
	date := time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)
	have := GridRadPath(GridRadTemplate, date)
	want := "201605/nexrad_3d_v3_1_20160501T120000Z.nc"
	if have != want {
		t.Errorf("have %s, want %s", have, want)
	}
}
