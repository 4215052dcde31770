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

package observability

import (
	"io/ioutil"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.FileRead("gridrad")
	m.FileMissing("stage4")
	for i := 0; i < 3; i++ {
		m.SampleVerified()
	}
	m.InitSkipped()
	m.UndefinedROC()
	m.QueryBuilt(time.Second)
	m.InitProcessed(2 * time.Second)

	var nilMetrics *Metrics
	nilMetrics.FileRead("gridrad")
	nilMetrics.FileMissing("gridrad")
	nilMetrics.QueryBuilt(time.Second)
	nilMetrics.SampleVerified()
	nilMetrics.UndefinedROC()
	nilMetrics.InitSkipped()
	nilMetrics.InitProcessed(time.Second)

	srv := httptest.NewServer(m.NewServer("").Handler)
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`icens_files_read_total{kind="gridrad"} 1`,
		`icens_files_missing_total{kind="stage4"} 1`,
		`icens_samples_verified_total 3`,
		`icens_initializations_skipped_total 1`,
		`icens_roc_auc_undefined_total 1`,
		`icens_neighborhood_query_builds_total 1`,
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("metrics output does not contain %q", want)
		}
	}
}
