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

// Command icens is a command-line interface for the icens neighborhood
// probability and verification tools.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rpmanser/large-ic-ensembles/gridrad"
	"github.com/rpmanser/large-ic-ensembles/icensutil"
)

func main() {
	if err := icensutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode returns the exit status for err. Missing and empty observation
// files have their own codes so that batch scripts can skip them.
func exitCode(err error) int {
	switch {
	case errors.Is(err, gridrad.ErrNotExist):
		return -2
	case errors.Is(err, gridrad.ErrEmpty):
		return -1
	default:
		return 1
	}
}
