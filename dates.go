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

package icens

import (
	"fmt"
	"time"
)

// DateFormat is the format of dates in file names and on the
// command line (YYYYMMDDHH).
const DateFormat = "2006010215"

// ParseDate parses a date in DateFormat as UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("icens: invalid date %q, should be YYYYMMDDHH: %v", s, err)
	}
	return t, nil
}

// FormatDate formats t in DateFormat.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// ModifyDate advances (or, for negative hours, reverses) the given
// YYYYMMDDHH date string by the given number of hours.
func ModifyDate(date string, hours int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.Add(time.Duration(hours) * time.Hour)), nil
}

// DateRange returns the times from start through end, inclusive, separated
// by step.
func DateRange(start, end time.Time, step time.Duration) ([]time.Time, error) {
	if step <= 0 {
		return nil, fmt.Errorf("icens: date range step must be positive; got %v", step)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("icens: date range end %v is before start %v", end, start)
	}
	var o []time.Time
	for t := start; !t.After(end); t = t.Add(step) {
		o = append(o, t)
	}
	return o, nil
}
