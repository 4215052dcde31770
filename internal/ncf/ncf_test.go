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

package ncf

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

func TestDataset(t *testing.T) {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	d := NewDataset([]string{"time", "y", "x"}, []int{2, 2, 3})
	data := sparse.ZerosDense(2, 2, 3)
	for i := range data.Elements {
		data.Elements[i] = float64(i) / 2
	}
	data.Elements[4] = math.NaN()
	if err := d.AddVariable("v", []string{"time", "y", "x"}, data, map[string]interface{}{
		"units": "mm",
		"scale": 2.5,
	}); err != nil {
		t.Fatal(err)
	}
	s := sparse.ZerosDense(1)
	s.Elements[0] = 0.1
	if err := d.AddVariable("s", nil, s, nil); err != nil {
		t.Fatal(err)
	}
	d.Variables["s"].Double = true
	d.Attributes["domain"] = "d01"
	if err := d.AddVariable("bad", []string{"x"}, data, nil); err == nil {
		t.Error("variable with the wrong shape should not be added")
	}

	path := filepath.Join(dir, "sub", "out.nc")
	if err := d.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	all, err := f.Read("v")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Shape) != 3 || all.Shape[0] != 2 || all.Shape[2] != 3 {
		t.Errorf("shape: %v", all.Shape)
	}
	for i, v := range all.Elements {
		if i == 4 {
			if !math.IsNaN(v) {
				t.Errorf("element 4 should be NaN but is %g", v)
			}
			continue
		}
		if v != data.Elements[i] {
			t.Errorf("element %d: have %g, want %g", i, v, data.Elements[i])
		}
	}
	rec, err := f.ReadRecord("v", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Shape) != 2 || rec.Get(1, 2) != data.Get(1, 1, 2) {
		t.Errorf("record: shape %v, value %g", rec.Shape, rec.Get(1, 2))
	}
	if _, err := f.ReadRecords("v", 1, 3); err == nil {
		t.Error("out of range records should fail")
	}
	sc, err := f.Read("s")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Elements[0] != 0.1 {
		t.Errorf("scalar: have %g, want 0.1", sc.Elements[0])
	}
	if a, err := f.Attribute("v", "scale"); err != nil || a != 2.5 {
		t.Errorf("attribute: %g, %v", a, err)
	}
	if a, err := f.StringAttribute("", "domain"); err != nil || a != "d01" {
		t.Errorf("global attribute: %q, %v", a, err)
	}
	if _, err := f.Read("missing"); err == nil {
		t.Error("missing variable should fail")
	}
}

func TestOpenMissing(t *testing.T) {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if _, err := Open(filepath.Join(dir, "none.nc")); err != ErrNotExist {
		t.Errorf("have %v, want ErrNotExist", err)
	}
	empty := filepath.Join(dir, "empty.nc")
	if err := ioutil.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(empty); err != ErrEmpty {
		t.Errorf("have %v, want ErrEmpty", err)
	}
}

func TestExpandTemplate(t *testing.T) {
	date := time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)
	have := ExpandTemplate("wrf/[MEMBER]/wrfout_[DATE].nc", "2006-01-02_15:04:05", date, "[MEMBER]", "mem3")
	want := "wrf/mem3/wrfout_2016-05-01_12:00:00.nc"
	if have != want {
		t.Errorf("have %s, want %s", have, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	tests := []struct {
		name   string
		dims   []string
		shape  []int
		double bool
	}{
		{name: "x1", dims: []string{"x"}, shape: []int{3}},
		{name: "yx", dims: []string{"y", "x"}, shape: []int{2, 3}},
		{name: "zyx", dims: []string{"z", "y", "x"}, shape: []int{4, 2, 3}},
		{name: "zyx64", dims: []string{"z", "y", "x"}, shape: []int{4, 2, 3}, double: true},
		{name: "scalar", shape: []int{1}},
		{name: "scalar64", shape: []int{1}, double: true},
	}
	d := NewDataset([]string{"z", "y", "x"}, []int{4, 2, 3})
	want := make(map[string]*sparse.DenseArray)
	for i, test := range tests {
		data := sparse.ZerosDense(test.shape...)
		for j := range data.Elements {
			data.Elements[j] = float64(i*100+j) + 0.25
		}
		want[test.name] = data
		if err := d.AddVariable(test.name, test.dims, data, nil); err != nil {
			t.Fatal(err)
		}
		d.Variables[test.name].Double = test.double
	}
	path := filepath.Join(dir, "roundtrip.nc")
	if err := d.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have, err := f.Read(test.name)
			if err != nil {
				t.Fatal(err)
			}
			w := want[test.name]
			if len(have.Elements) != len(w.Elements) {
				t.Fatalf("have %d elements, want %d", len(have.Elements), len(w.Elements))
			}
			for i, v := range have.Elements {
				if v != w.Elements[i] {
					t.Errorf("element %d: have %g, want %g", i, v, w.Elements[i])
				}
			}
		})
	}

	rec, err := f.ReadRecord("zyx", 3)
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.Get(1, 2); v != want["zyx"].Get(3, 1, 2) {
		t.Errorf("record value: have %g, want %g", v, want["zyx"].Get(3, 1, 2))
	}
}

func TestReshape(t *testing.T) {
	a := sparse.ZerosDense(2, 3)
	a.Set(5, 1, 2)
	b := Reshape(a, 1, 2, 3)
	if b.Get(0, 1, 2) != 5 {
		t.Errorf("reshaped value: have %g, want 5", b.Get(0, 1, 2))
	}
	b.Set(7, 0, 0, 0)
	if a.Get(0, 0) != 7 {
		t.Error("reshaped array should share elements")
	}
}
