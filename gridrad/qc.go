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

package gridrad

import (
	"math"
	"runtime"
	"sync"
)

// Filter thresholds.
const (
	// minWeight is the absolute minimum bin weight of an observation.
	minWeight = 0.1

	// weightThreshold is the bin weight threshold for analyses from 2009
	// onward; earlier analyses use weightThreshold - 1.
	weightThreshold = 1.33

	reflectivityThreshold = 18.5 // dBZ
	echoFreqThreshold     = 0.6
	nobsThreshold         = 2
)

// Clutter removal thresholds.
const (
	// coverageThreshold is the fractional areal echo coverage at or below
	// which a bin is considered a speckle.
	coverageThreshold = 0.32

	// speckleHalfWidth is the half-width of the speckle neighborhood.
	speckleHalfWidth = 2

	lowLevelAltitude  = 4.0  // km
	weakEchoThreshold = 10.0 // dBZ
)

// Filter removes (sets to NaN) low-confidence reflectivity observations
// in place. Bins that were already missing stay missing.
func (v *VolumetricField) Filter() error {
	if err := v.check(); err != nil {
		return err
	}
	year, err := v.AnalysisYear()
	if err != nil {
		return err
	}
	wthresh := weightThreshold
	if year < 2009 {
		wthresh -= 1
	}

	z := v.Reflectivity.Elements
	w := v.Weight.Elements
	nobs := v.NObs.Elements
	necho := v.NEcho.Elements
	for i, zi := range z {
		if math.IsNaN(zi) {
			continue // Missing bins stay missing.
		}
		var echoFreq float64
		if nobs[i] > 0 {
			echoFreq = necho[i] / nobs[i]
		}
		if w[i] < minWeight ||
			(w[i] < wthresh && zi <= reflectivityThreshold) ||
			(echoFreq < echoFreqThreshold && nobs[i] > nobsThreshold) {
			z[i] = math.NaN()
		}
	}
	return nil
}

// RemoveClutter removes speckles, weak low-level echo, weak or shallow
// echo columns, and clutter below convective anvils from the reflectivity
// in place. If skipWeakLowLevelEcho is true, the weak low-level echo and
// weak/shallow column checks are skipped.
func (v *VolumetricField) RemoveClutter(skipWeakLowLevelEcho bool) error {
	if err := v.check(); err != nil {
		return err
	}
	alt, err := v.altitudes()
	if err != nil {
		return err
	}
	v.removeSpeckles()
	if !skipWeakLowLevelEcho {
		v.removeWeakLowLevelEcho(alt)
		v.removeWeakShallowColumns(alt)
	}
	v.removeAnvilClutter(alt)
	v.removeSpeckles()
	return nil
}

// removeSpeckles removes bins where the fraction of finite bins in the
// surrounding 5x5 horizontal neighborhood is at or below coverageThreshold.
// The neighborhood wraps around both horizontal edges of the grid.
func (v *VolumetricField) removeSpeckles() {
	nz, ny, nx := v.Shape()
	z := v.Reflectivity.Elements
	finite := make([]bool, len(z))
	for i, zi := range z {
		finite[i] = !math.IsNaN(zi)
	}
	const width = 2*speckleHalfWidth + 1
	const n = width * width

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for k := pp; k < nz; k += nprocs {
				level := k * ny * nx
				for j := 0; j < ny; j++ {
					for i := 0; i < nx; i++ {
						count := 0
						for dj := -speckleHalfWidth; dj <= speckleHalfWidth; dj++ {
							row := level + wrap(j+dj, ny)*nx
							for di := -speckleHalfWidth; di <= speckleHalfWidth; di++ {
								if finite[row+wrap(i+di, nx)] {
									count++
								}
							}
						}
						if float64(count)/n <= coverageThreshold {
							z[level+j*nx+i] = math.NaN()
						}
					}
				}
			}
		}(pp)
	}
	wg.Wait()
}

// wrap returns i modulo n in the range [0, n).
func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// removeWeakLowLevelEcho removes echo weaker than weakEchoThreshold at or
// below lowLevelAltitude.
func (v *VolumetricField) removeWeakLowLevelEcho(alt []float64) {
	_, ny, nx := v.Shape()
	z := v.Reflectivity.Elements
	for k, a := range alt {
		if a > lowLevelAltitude {
			continue
		}
		for i := k * ny * nx; i < (k+1)*ny*nx; i++ {
			if z[i] < weakEchoThreshold {
				z[i] = math.NaN()
			}
		}
	}
}

// columnStats holds the column-maximum reflectivity and the maximum and
// minimum altitudes of echo exceeding 0, 5, and 15 dBZ in a column,
// where the altitude of a bin without such echo counts as zero.
type columnStats struct {
	reflMax, echo0Max, echo0Min, echo5Max, echo15Max float64
}

// weakOrShallow reports whether the column matches any of the weak or
// shallow echo signatures.
func (c columnStats) weakOrShallow() bool {
	return (c.reflMax < 20 && c.echo0Max <= 4 && c.echo0Min <= 3) ||
		(c.reflMax < 10 && c.echo0Max <= 5 && c.echo0Min <= 3) ||
		(c.echo5Max <= 5 && c.echo5Max > 0 && c.echo15Max <= 3) ||
		(c.echo15Max < 2 && c.echo15Max > 0)
}

// removeWeakShallowColumns removes whole columns of weak or shallow echo.
// Missing bins are treated as 0 dBZ when computing column statistics.
func (v *VolumetricField) removeWeakShallowColumns(alt []float64) {
	nz, ny, nx := v.Shape()
	z := v.Reflectivity.Elements
	nxy := ny * nx
	for c := 0; c < nxy; c++ {
		s := columnStats{
			reflMax:   math.Inf(-1),
			echo0Max:  math.Inf(-1),
			echo0Min:  math.Inf(1),
			echo5Max:  math.Inf(-1),
			echo15Max: math.Inf(-1),
		}
		for k := 0; k < nz; k++ {
			zi := z[k*nxy+c]
			if math.IsNaN(zi) {
				zi = 0
			}
			s.reflMax = math.Max(s.reflMax, zi)
			s.echo0Max = math.Max(s.echo0Max, echoAltitude(zi, 0, alt[k]))
			s.echo0Min = math.Min(s.echo0Min, echoAltitude(zi, 0, alt[k]))
			s.echo5Max = math.Max(s.echo5Max, echoAltitude(zi, 5, alt[k]))
			s.echo15Max = math.Max(s.echo15Max, echoAltitude(zi, 15, alt[k]))
		}
		if s.weakOrShallow() {
			for k := 0; k < nz; k++ {
				z[k*nxy+c] = math.NaN()
			}
		}
	}
}

// echoAltitude returns alt if refl exceeds thresh and 0 otherwise.
func echoAltitude(refl, thresh, alt float64) float64 {
	if refl > thresh {
		return alt
	}
	return 0
}

// removeAnvilClutter removes echo below convective anvils. At the first
// level at or above lowLevelAltitude, a column that is missing at that
// level but has echo both above and below it is removed from the surface
// through that level.
func (v *VolumetricField) removeAnvilClutter(alt []float64) {
	k4km := -1
	for k, a := range alt {
		if a >= lowLevelAltitude {
			k4km = k
			break
		}
	}
	if k4km < 0 {
		return
	}
	nz, ny, nx := v.Shape()
	z := v.Reflectivity.Elements
	nxy := ny * nx
	anyFinite := func(c, k0, k1 int) bool {
		for k := k0; k < k1; k++ {
			if !math.IsNaN(z[k*nxy+c]) {
				return true
			}
		}
		return false
	}
	var bad []int
	for c := 0; c < nxy; c++ {
		// The top level and the level just below k4km are not checked.
		if math.IsNaN(z[k4km*nxy+c]) && anyFinite(c, k4km, nz-1) && anyFinite(c, 0, k4km-1) {
			bad = append(bad, c)
		}
	}
	for _, c := range bad {
		for k := 0; k <= k4km; k++ {
			z[k*nxy+c] = math.NaN()
		}
	}
}
