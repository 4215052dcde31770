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

// Package post post-processes WRF ensemble forecasts into convective
// member fields and neighborhood maximum ensemble probabilities (NMEPs).
package post

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
	"github.com/rpmanser/large-ic-ensembles/neighborhood"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Defaults for ensemble post-processing.
var (
	// DefaultRadii are the NMEP neighborhood radii in kilometers.
	DefaultRadii = []float64{32, 64, 96}

	// DefaultMemberTemplate is the location of each member's WRF output
	// relative to the ensemble directory.
	DefaultMemberTemplate = "mem[MEMBER]/wrfout_d02_[DATE]"

	// WRFDateFormat is the format of dates in WRF output file names.
	WRFDateFormat = "2006-01-02_15:04:05"
)

// A Threshold is an event threshold for one convective variable.
type Threshold struct {
	Value float64
	Units icens.Units
}

// Variable is a convective forecast variable.
type Variable struct {
	// Name is the name of the variable in the output file.
	Name string

	Description string

	// EventDescription describes the event whose probability is calculated.
	EventDescription string

	Thresholds []Threshold
}

// Variables are the convective variables, in the order they are
// processed.
var Variables = []Variable{
	{
		Name:             "precipitation",
		Description:      "1-hour accumulated precipitation",
		EventDescription: "1-hour accumulated precipitation",
		Thresholds: []Threshold{
			{0.254, icens.Millimeter}, {2.54, icens.Millimeter}, {6.35, icens.Millimeter},
			{12.7, icens.Millimeter}, {25.4, icens.Millimeter},
		},
	},
	{
		Name:             "reflectivity",
		Description:      "Column maximum reflectivity",
		EventDescription: "column maximum reflectivity",
		Thresholds:       []Threshold{{25, icens.DBZ}, {40, icens.DBZ}},
	},
	{
		Name:             "updraft_helicity",
		Description:      "Hourly maximum updraft helicity",
		EventDescription: "hourly maximum updraft helicity",
		Thresholds: []Threshold{
			{25, icens.Meter2PerSec2}, {40, icens.Meter2PerSec2}, {100, icens.Meter2PerSec2},
		},
	},
}

// Config specifies the forecasts to post-process.
type Config struct {
	// Directory is the ensemble directory.
	Directory string

	// MemberTemplate is the location of each member's WRF output file
	// relative to Directory, where [MEMBER] is replaced by the member
	// number and [DATE] by the valid time in DateFormat.
	MemberTemplate string
	DateFormat     string

	// Members is the number of ensemble members, numbered from 1.
	Members int

	Init time.Time

	// Hour is the forecast hour to process. It must be at least 1.
	Hour int

	Domain int

	// Radii are the neighborhood radii in kilometers.
	Radii []float64
}

// Processor post-processes one forecast hour of an ensemble.
type Processor struct {
	Config

	// Cache holds the neighborhood queries on the native grid.
	Cache *neighborhood.QueryCache

	Log     logrus.FieldLogger
	Metrics *observability.Metrics
}

// NewProcessor checks cfg and returns a new processor.
func NewProcessor(cfg Config) (*Processor, error) {
	switch {
	case cfg.Members < 1:
		return nil, fmt.Errorf("post: invalid number of members %d", cfg.Members)
	case cfg.Hour < 1:
		return nil, fmt.Errorf("post: convective fields require a forecast hour of at least 1; got %d", cfg.Hour)
	}
	if cfg.MemberTemplate == "" {
		cfg.MemberTemplate = DefaultMemberTemplate
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = WRFDateFormat
	}
	if len(cfg.Radii) == 0 {
		cfg.Radii = DefaultRadii
	}
	return &Processor{
		Config: cfg,
		Cache:  neighborhood.NewQueryCache(len(cfg.Radii)),
		Log:    logrus.StandardLogger(),
	}, nil
}

// Valid returns the valid time of the forecast hour.
func (p *Processor) Valid() time.Time {
	return p.Init.Add(time.Duration(p.Hour) * time.Hour)
}

// Convective holds the convective member fields and NMEPs for one
// forecast hour.
type Convective struct {
	Init   time.Time
	Hour   int
	Domain int

	// Radii are the neighborhood radii in kilometers.
	Radii []float64

	// Members holds the member fields for each variable with shape
	// (member, y, x).
	Members map[string]*icens.Field

	// Names are the names of the NMEP variables in processing order.
	Names []string

	// NMEP holds the probabilities in percent for each name, with shape
	// (radius, y, x).
	NMEP map[string]*sparse.DenseArray

	// Descriptions describes each NMEP variable.
	Descriptions map[string]string
}

// Run reads all ensemble members and calculates NMEPs for every
// convective variable, threshold and radius. A member that cannot be
// read is an error.
func (p *Processor) Run(ctx context.Context) (*Convective, error) {
	log := p.Log.WithFields(logrus.Fields{
		"initialization": icens.FormatDate(p.Init),
		"forecast_hour":  p.Hour,
	})
	members := make([]*memberFields, p.Members)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for m := 1; m <= p.Members; m++ {
		m := m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.WithField("member", m).Info("reading member")
			mf, err := p.readMember(m)
			if err != nil {
				return err
			}
			members[m-1] = mf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ens, err := stack(members)
	if err != nil {
		return nil, err
	}
	ny, nx := ens["precipitation"].Shape[1], ens["precipitation"].Shape[2]
	dx, dy := members[0].dx, members[0].dy
	grid := neighborhood.NewGridPointSet(fmt.Sprintf("native_%dx%d_%g_%g", ny, nx, dy, dx), ny, nx, dy, dx)

	c := &Convective{
		Init:         p.Init,
		Hour:         p.Hour,
		Domain:       p.Domain,
		Radii:        p.Radii,
		Members:      ens,
		NMEP:         make(map[string]*sparse.DenseArray),
		Descriptions: make(map[string]string),
	}
	for _, v := range Variables {
		field := ens[v.Name]
		for _, t := range v.Thresholds {
			tv, err := icens.Convert(t.Value, t.Units, field.Units)
			if err != nil {
				return nil, fmt.Errorf("post: %s threshold: %v", v.Name, err)
			}
			bin, err := field.Threshold(tv, field.Units)
			if err != nil {
				return nil, err
			}
			probs := sparse.ZerosDense(len(p.Radii), ny, nx)
			for i, r := range p.Radii {
				rm, err := icens.Convert(r, icens.Kilometer, icens.Meter)
				if err != nil {
					return nil, err
				}
				q, err := p.Cache.Get(ctx, grid, grid, rm)
				if err != nil {
					return nil, err
				}
				nmep, err := neighborhood.NMEP(bin, q, 0)
				if err != nil {
					return nil, fmt.Errorf("post: %s: %v", v.Name, err)
				}
				o := probs.Elements[i*ny*nx : (i+1)*ny*nx]
				for j, e := range nmep.Elements {
					o[j] = e * 100
				}
			}
			name := NMEPName(v.Name, tv)
			c.Names = append(c.Names, name)
			c.NMEP[name] = probs
			c.Descriptions[name] = fmt.Sprintf("NMEPs for %s >= %s %s", v.EventDescription, pyFloat(tv), field.Units)
			log.WithField("variable", name).Debug("calculated NMEPs")
		}
	}
	return c, nil
}

// NMEPName returns the name of the NMEP variable for the given
// convective variable and threshold, for example nmep_reflectivity_25_0.
func NMEPName(variable string, threshold float64) string {
	return "nmep_" + variable + "_" + strings.Replace(pyFloat(threshold), ".", "_", -1)
}

// pyFloat formats v with a decimal point, so 25 is "25.0".
func pyFloat(v float64) string {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 10, 64), 64)
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// OutputPath returns the location of the convective output file for the
// given forecast hour within dir.
func OutputPath(dir string, hour int) string {
	return filepath.Join(dir, fmt.Sprintf("convective_f%02d.nc", hour))
}
