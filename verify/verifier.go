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

package verify

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBins are the upper edges of the reliability bins, in percent.
var DefaultBins = []float64{5, 15, 25, 35, 45, 55, 65, 75, 85, 95, 100}

// Config specifies a verification run.
type Config struct {
	// Experiment is the name of the ensemble experiment to verify.
	Experiment string

	// ForecastKey is the name of the forecast probability variable,
	// which must have dimensions (radius, y, x).
	ForecastKey string

	// ObservationKey is the name of the observation probability variable,
	// which must have dimensions (radii, y, x). It also determines the
	// observation source.
	ObservationKey string

	// RadiusIndex is the index of the neighborhood radius to verify.
	RadiusIndex int

	// ForecastTemplate is the location of each forecast file, where
	// [EXPERIMENT] is replaced by Experiment, [DATE] by the
	// initialization time and [HOUR] by the two-digit forecast hour.
	ForecastTemplate string

	// ObservationTemplate is the location of each observation file, where
	// [DATE] is replaced by the valid time.
	ObservationTemplate string

	// Inits are the initialization times to verify.
	Inits []time.Time

	// Hours are the forecast hours to verify.
	Hours []int

	// ObservationDates are the times of all observations used to
	// calculate the sample climatology.
	ObservationDates []time.Time

	// Bins are the upper edges of the reliability bins in percent.
	Bins []float64

	// SkipInits are initializations that have no forecasts.
	SkipInits []time.Time

	// MinFiles is the number of forecast files that must exist for an
	// initialization to be verified.
	MinFiles int

	// Timeout, if greater than zero, limits the time spent verifying
	// each initialization.
	Timeout time.Duration

	// Workers is the number of initializations verified concurrently.
	// If it is zero, GOMAXPROCS is used.
	Workers int
}

// Verifier verifies neighborhood probability forecasts against
// neighborhood probability observations.
type Verifier struct {
	Config

	// Source is the observation source, determined from ObservationKey.
	Source ObservationSource

	Log     logrus.FieldLogger
	Metrics *observability.Metrics

	obs *requestcache.Cache
}

// NewVerifier checks the configuration and returns a new verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	src, err := ParseObservationSource(cfg.ObservationKey)
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.ForecastKey == "":
		return nil, fmt.Errorf("verify: no forecast key specified")
	case cfg.RadiusIndex < 0:
		return nil, fmt.Errorf("verify: invalid radius index %d", cfg.RadiusIndex)
	case len(cfg.Inits) == 0:
		return nil, fmt.Errorf("verify: no initializations to verify")
	case len(cfg.Hours) == 0:
		return nil, fmt.Errorf("verify: no forecast hours to verify")
	case len(cfg.ObservationDates) == 0:
		return nil, fmt.Errorf("verify: no observation dates specified")
	}
	if cfg.ObservationTemplate == "" {
		cfg.ObservationTemplate = src.Template()
	}
	if len(cfg.Bins) == 0 {
		cfg.Bins = DefaultBins
	}
	for i := 1; i < len(cfg.Bins); i++ {
		if cfg.Bins[i] <= cfg.Bins[i-1] {
			return nil, fmt.Errorf("verify: reliability bins %v are not increasing", cfg.Bins)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	v := &Verifier{
		Config: cfg,
		Source: src,
		Log:    logrus.StandardLogger(),
	}
	v.obs = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return v.readObservation(request.(time.Time))
	}, cfg.Workers, requestcache.Deduplicate(), requestcache.Memory(len(cfg.ObservationDates)))
	return v, nil
}

// ForecastPath returns the location of the forecast file for the given
// initialization and forecast hour.
func (v *Verifier) ForecastPath(init time.Time, hour int) string {
	return ncf.ExpandTemplate(v.ForecastTemplate, icens.DateFormat, init,
		"[EXPERIMENT]", v.Experiment, "[HOUR]", fmt.Sprintf("%02d", hour))
}

// ObservationPath returns the location of the observation file valid at
// the given time.
func (v *Verifier) ObservationPath(date time.Time) string {
	return ncf.ExpandTemplate(v.ObservationTemplate, icens.DateFormat, date)
}

// readObservation reads the observed probabilities valid at date and
// converts them to percent.
func (v *Verifier) readObservation(date time.Time) (*icens.Field, error) {
	f, err := ncf.Open(v.ObservationPath(date))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := f.ReadRecord(v.ObservationKey, v.RadiusIndex)
	if err != nil {
		return nil, err
	}
	u := v.Source.Units()
	if s, err := f.StringAttribute(v.ObservationKey, "units"); err == nil {
		if u, err = icens.ParseUnits(s); err != nil {
			return nil, fmt.Errorf("verify: %s in %s: %v", v.ObservationKey, f.Path, err)
		}
	}
	return icens.NewField(data, u).Convert(icens.Percent)
}

// observation returns the observed probabilities valid at date from
// the cache. The returned field is shared and must not be modified.
func (v *Verifier) observation(ctx context.Context, date time.Time) (*icens.Field, error) {
	result, err := v.obs.NewRequest(ctx, date, icens.FormatDate(date)).Result()
	if err != nil {
		return nil, err
	}
	return result.(*icens.Field), nil
}

// readForecast reads the forecast probabilities for the given
// initialization and forecast hour.
func (v *Verifier) readForecast(init time.Time, hour int) (*icens.Field, error) {
	f, err := ncf.Open(v.ForecastPath(init, hour))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := f.ReadRecord(v.ForecastKey, v.RadiusIndex)
	if err != nil {
		return nil, err
	}
	s, err := f.StringAttribute(v.ForecastKey, "units")
	if err != nil {
		return nil, err
	}
	u, err := icens.ParseUnits(s)
	if err != nil {
		return nil, fmt.Errorf("verify: %s in %s: %v", v.ForecastKey, f.Path, err)
	}
	return icens.NewField(data, u), nil
}

// binarize returns a copy of probability field o that is 100% where o
// is greater than zero.
func binarize(o *icens.Field) (*icens.Field, error) {
	one, err := icens.Convert(1, icens.Dimensionless, o.Units)
	if err != nil {
		return nil, fmt.Errorf("verify: observation is not a probability: %v", err)
	}
	b := icens.NewField(o.Copy(), o.Units)
	for i, p := range b.Elements {
		if p > 0 {
			b.Elements[i] = one
		}
	}
	return b, nil
}

// Climatology returns the dimensionless sample climatology of the binary
// observations at all ObservationDates. Missing observation files are
// skipped.
func (v *Verifier) Climatology(ctx context.Context) (float64, error) {
	fields := make([]*icens.Field, len(v.ObservationDates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.Workers)
	for i, date := range v.ObservationDates {
		i, date := i, date
		g.Go(func() error {
			o, err := v.observation(gctx, date)
			if err == ncf.ErrNotExist || err == ncf.ErrEmpty {
				v.Metrics.FileMissing(v.Source.String())
				v.Log.WithFields(logrus.Fields{
					"date": icens.FormatDate(date),
					"file": v.ObservationPath(date),
				}).Warn("observation file missing or empty; excluding it from climatology")
				return nil
			} else if err != nil {
				return err
			}
			v.Metrics.FileRead(v.Source.String())
			fields[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return math.NaN(), fmt.Errorf("verify: reading observations: %v", err)
	}
	var all []float64
	for _, o := range fields {
		if o == nil {
			continue
		}
		b, err := binarize(o)
		if err != nil {
			return math.NaN(), err
		}
		all = append(all, b.Elements...)
	}
	if len(all) == 0 {
		return math.NaN(), fmt.Errorf("verify: no observation files found matching %s", v.ObservationTemplate)
	}
	return SampleClimatology(icens.FieldFromSlice(all, icens.Percent))
}

// Run verifies all initializations and forecast hours. Failures that
// affect a single initialization are logged and leave its statistics
// missing.
func (v *Verifier) Run(ctx context.Context) (*Results, error) {
	clim, err := v.Climatology(ctx)
	if err != nil {
		return nil, err
	}
	r := NewResults(v.Inits, v.Hours, v.Bins)
	r.Climatology = clim
	r.Uncertainty = Uncertainty(clim)
	v.Log.WithFields(logrus.Fields{
		"climatology": r.Climatology,
		"uncertainty": r.Uncertainty,
	}).Info("calculated sample climatology")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.Workers)
	for i, init := range v.Inits {
		i, init := i, init
		g.Go(func() error {
			start := time.Now()
			err := v.verifyInit(gctx, r, i, init)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				v.Log.WithError(err).WithField("initialization", icens.FormatDate(init)).Error("verification failed")
			}
			v.Metrics.InitProcessed(time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

func (v *Verifier) skip(init time.Time) bool {
	for _, s := range v.SkipInits {
		if s.Equal(init) {
			return true
		}
	}
	return false
}

// exists returns whether path is a file containing data.
func exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir() && fi.Size() > 0
}

// verifyInit verifies all forecast hours of initialization i.
func (v *Verifier) verifyInit(ctx context.Context, r *Results, i int, init time.Time) error {
	log := v.Log.WithField("initialization", icens.FormatDate(init))
	if v.skip(init) {
		log.Info("skipping initialization")
		return nil
	}
	var nFiles int
	for _, hour := range v.Hours {
		if exists(v.ForecastPath(init, hour)) {
			nFiles++
		}
	}
	if nFiles < v.MinFiles {
		log.Warnf("only found %d of %d forecast files; skipping initialization", nFiles, v.MinFiles)
		v.Metrics.InitSkipped()
		return nil
	}
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	log.Info("verifying initialization")
	for h, hour := range v.Hours {
		if err := ctx.Err(); err != nil {
			return err
		}
		hlog := log.WithField("forecast_hour", hour)
		f, err := v.readForecast(init, hour)
		if err == ncf.ErrNotExist || err == ncf.ErrEmpty {
			v.Metrics.FileMissing("forecast")
			hlog.Warn("forecast file missing or empty")
			continue
		} else if err != nil {
			return err
		}
		v.Metrics.FileRead("forecast")
		date := init.Add(time.Duration(hour) * time.Hour)
		o, err := v.observation(ctx, date)
		if err == ncf.ErrNotExist || err == ncf.ErrEmpty {
			hlog.WithField("valid", icens.FormatDate(date)).Warn("observation file missing or empty")
			continue
		} else if err != nil {
			return err
		}
		if err := v.verifySample(r, i, h, f, o); err != nil {
			return fmt.Errorf("verify: forecast hour %d: %v", hour, err)
		}
		hlog.WithFields(logrus.Fields{
			"fss":      r.FSS.Get(i, h),
			"bss":      r.BSS.Get(i, h),
			"roc_area": r.ROCArea.Get(i, h),
		}).Debug("verified forecast hour")
		v.Metrics.SampleVerified()
	}
	return nil
}

// verifySample calculates the statistics of forecast f against
// observation o and stores them at initialization index i and forecast
// hour index h of r.
func (v *Verifier) verifySample(r *Results, i, h int, f, o *icens.Field) error {
	// FSS uses the fractional observations and the rest use binary ones.
	fss, err := FSS(f, o)
	if err != nil {
		return err
	}
	ob, err := binarize(o)
	if err != nil {
		return err
	}
	ref := r.Uncertainty
	bss, err := BrierScore(f, ob, true, &ref)
	if err != nil {
		return err
	}
	freq, hits, binMean, err := Reliability(f, ob, v.Bins, icens.Percent)
	if err != nil {
		return err
	}
	auc, err := ROCAUC(ob, f)
	if err == ErrUndefinedAUC {
		v.Log.WithFields(logrus.Fields{
			"initialization": icens.FormatDate(r.Inits[i]),
			"forecast_hour":  r.Hours[h],
		}).Warn("undefined ROC area; setting it to NaN")
		v.Metrics.UndefinedROC()
	} else if err != nil {
		return err
	}
	r.FSS.Set(fss, i, h)
	r.BSS.Set(bss, i, h)
	r.ROCArea.Set(auc, i, h)
	for b := range v.Bins {
		r.Frequency.Set(freq[b], i, h, b)
		r.Hits.Set(hits[b], i, h, b)
		r.BinMean.Set(binMean[b], i, h, b)
	}
	return nil
}

// nanArray returns an array of the given shape filled with NaN.
func nanArray(shape ...int) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	for i := range a.Elements {
		a.Elements[i] = math.NaN()
	}
	return a
}
