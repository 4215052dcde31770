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

package post

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
)

// memberFields holds the convective fields of one ensemble member.
type memberFields struct {
	fields map[string]*icens.Field
	dx, dy float64
}

// MemberPath returns the location of the WRF output file of member m
// valid at date.
func (p *Processor) MemberPath(m int, date time.Time) string {
	return filepath.Join(p.Directory, ncf.ExpandTemplate(p.MemberTemplate, p.DateFormat, date, "[MEMBER]", strconv.Itoa(m)))
}

// readMember reads the convective fields of member m.
func (p *Processor) readMember(m int) (*memberFields, error) {
	valid := p.Valid()
	f, err := p.open(m, valid)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mf := &memberFields{fields: make(map[string]*icens.Field)}
	if mf.dx, err = f.Attribute("", "DX"); err != nil {
		return nil, fmt.Errorf("post: member %d: %v", m, err)
	}
	if mf.dy, err = f.Attribute("", "DY"); err != nil {
		return nil, fmt.Errorf("post: member %d: %v", m, err)
	}

	precip, err := totalPrecip(f)
	if err != nil {
		return nil, fmt.Errorf("post: member %d: %v", m, err)
	}
	// Subtract the accumulation at the previous hour to get hourly
	// precipitation.
	if p.Hour > 1 {
		fPrev, err := p.open(m, valid.Add(-time.Hour))
		if err != nil {
			return nil, err
		}
		prev, err := totalPrecip(fPrev)
		fPrev.Close()
		if err != nil {
			return nil, fmt.Errorf("post: member %d: %v", m, err)
		}
		if prev, err = prev.Convert(precip.Units); err != nil {
			return nil, fmt.Errorf("post: member %d: %v", m, err)
		}
		for i, v := range prev.Elements {
			precip.Elements[i] -= v
		}
	}
	mf.fields["precipitation"] = precip

	refl, u, err := readTime0(f, "REFL_10CM")
	if err != nil {
		return nil, fmt.Errorf("post: member %d: %v", m, err)
	}
	mf.fields["reflectivity"] = icens.NewField(columnMax(refl), u)

	uh, u, err := readTime0(f, "UP_HELI_MAX")
	if err != nil {
		return nil, fmt.Errorf("post: member %d: %v", m, err)
	}
	mf.fields["updraft_helicity"] = icens.NewField(uh, u)
	return mf, nil
}

// open opens the WRF output file of member m valid at date.
func (p *Processor) open(m int, date time.Time) (*ncf.File, error) {
	path := p.MemberPath(m, date)
	f, err := ncf.Open(path)
	if err != nil {
		p.Metrics.FileMissing("wrf")
		return nil, fmt.Errorf("post: member %d: opening %s: %v", m, path, err)
	}
	p.Metrics.FileRead("wrf")
	return f, nil
}

// readTime0 reads the first time of variable v and its units.
func readTime0(f *ncf.File, v string) (*sparse.DenseArray, icens.Units, error) {
	data, err := f.ReadRecord(v, 0)
	if err != nil {
		return nil, "", err
	}
	s, err := f.StringAttribute(v, "units")
	if err != nil {
		return nil, "", err
	}
	u, err := icens.ParseUnits(s)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %v", v, err)
	}
	return data, u, nil
}

// totalPrecip returns the accumulated grid-scale plus convective
// precipitation.
func totalPrecip(f *ncf.File) (*icens.Field, error) {
	nc, u, err := readTime0(f, "RAINNC")
	if err != nil {
		return nil, err
	}
	c, uc, err := readTime0(f, "RAINC")
	if err != nil {
		return nil, err
	}
	cf, err := icens.NewField(c, uc).Convert(u)
	if err != nil {
		return nil, err
	}
	if len(cf.Elements) != len(nc.Elements) {
		return nil, fmt.Errorf("RAINC and RAINNC have different shapes")
	}
	for i, v := range cf.Elements {
		nc.Elements[i] += v
	}
	return icens.NewField(nc, u), nil
}

// columnMax returns the maximum over the first dimension of a (nz, ny, nx)
// array.
func columnMax(a *sparse.DenseArray) *sparse.DenseArray {
	nz, ny, nx := a.Shape[0], a.Shape[1], a.Shape[2]
	o := sparse.ZerosDense(ny, nx)
	for i := range o.Elements {
		o.Elements[i] = math.Inf(-1)
	}
	for k := 0; k < nz; k++ {
		for i, v := range a.Elements[k*ny*nx : (k+1)*ny*nx] {
			if v > o.Elements[i] || math.IsNaN(v) {
				o.Elements[i] = v
			}
		}
	}
	return o
}

// stack combines the member fields into arrays with shape
// (member, y, x).
func stack(members []*memberFields) (map[string]*icens.Field, error) {
	o := make(map[string]*icens.Field)
	for _, v := range Variables {
		first := members[0].fields[v.Name]
		n := len(first.Elements)
		shape := append([]int{len(members)}, first.Shape...)
		data := sparse.ZerosDense(shape...)
		for m, mf := range members {
			f, err := mf.fields[v.Name].Convert(first.Units)
			if err != nil {
				return nil, fmt.Errorf("post: member %d %s: %v", m+1, v.Name, err)
			}
			if len(f.Elements) != n {
				return nil, fmt.Errorf("post: member %d %s has %d values; member 1 has %d", m+1, v.Name, len(f.Elements), n)
			}
			copy(data.Elements[m*n:(m+1)*n], f.Elements)
		}
		o[v.Name] = icens.NewField(data, first.Units)
	}
	return o, nil
}
