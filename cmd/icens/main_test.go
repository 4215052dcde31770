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

package main

import (
	"fmt"
	"testing"

	"github.com/rpmanser/large-ic-ensembles/gridrad"
)

func TestExitCode(t *testing.T) {
	for _, test := range []struct {
		err  error
		want int
	}{
		{gridrad.ErrNotExist, -2},
		{fmt.Errorf("icens: file.nc: %w", gridrad.ErrNotExist), -2},
		{fmt.Errorf("icens: file.nc: %w", gridrad.ErrEmpty), -1},
		{fmt.Errorf("icens: other"), 1},
	} {
		if have := exitCode(test.err); have != test.want {
			t.Errorf("%v: have %d, want %d", test.err, have, test.want)
		}
	}
}
