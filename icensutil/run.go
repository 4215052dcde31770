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

package icensutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/gridrad"
	"github.com/rpmanser/large-ic-ensembles/internal/ncf"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
	"github.com/rpmanser/large-ic-ensembles/obsprob"
	"github.com/rpmanser/large-ic-ensembles/post"
	"github.com/rpmanser/large-ic-ensembles/reproject"
	"github.com/rpmanser/large-ic-ensembles/verify"
	"github.com/sirupsen/logrus"
)

// ObsKind is a kind of observation that neighborhood probabilities can be
// calculated from.
type ObsKind string

// Observation kinds.
const (
	GridRad ObsKind = "gridrad"
	StageIV ObsKind = "stage4"
)

// ObsProbConfig specifies an observed neighborhood probability calculation.
type ObsProbConfig struct {
	Kind ObsKind
	Date time.Time

	// WRFReference is the WRF output file that defines the forecast grid.
	WRFReference string

	// InputDir and InputTemplate give the location of the observation file.
	InputDir, InputTemplate string

	// OutputDir is where the probabilities are saved.
	OutputDir string

	Radii       []float64
	RadiusUnits icens.Units
}

// ObsProb calculates observed neighborhood probabilities for one
// observation time and writes them to a file in cfg.OutputDir, returning
// the location of the file. gridrad.ErrNotExist and gridrad.ErrEmpty are
// wrapped so that callers can detect them with errors.Is.
func ObsProb(ctx context.Context, cfg ObsProbConfig, m *observability.Metrics) (string, error) {
	log := logrus.WithFields(logrus.Fields{
		"kind": cfg.Kind,
		"date": icens.FormatDate(cfg.Date),
	})

	var (
		path, outTmpl string
		thresholds    []float64
		tu            icens.Units
		read          func(string) (*obsprob.Observation, error)
	)
	switch cfg.Kind {
	case GridRad:
		path = obsprob.GridRadPath(cfg.InputTemplate, cfg.Date)
		outTmpl, thresholds, tu = obsprob.GridRadOutputTemplate, obsprob.GridRadThresholds, icens.DBZ
		read = obsprob.ReadGridRad
	case StageIV:
		path = obsprob.StageIVPath(cfg.InputTemplate, cfg.Date)
		outTmpl, thresholds, tu = obsprob.StageIVOutputTemplate, obsprob.StageIVThresholds, icens.Inch
		read = obsprob.ReadStageIV
	default:
		return "", fmt.Errorf("icens: invalid observation kind %q", cfg.Kind)
	}
	path = filepath.Join(cfg.InputDir, path)

	ref, err := reproject.ReadWRFReference(cfg.WRFReference)
	if err != nil {
		m.FileMissing("wrf")
		return "", err
	}
	m.FileRead("wrf")

	log.WithField("path", path).Info("reading observations")
	obs, err := read(path)
	if err != nil {
		if errors.Is(err, gridrad.ErrNotExist) || errors.Is(err, gridrad.ErrEmpty) {
			m.FileMissing(string(cfg.Kind))
			return "", fmt.Errorf("icens: %s: %w", path, err)
		}
		return "", err
	}
	m.FileRead(string(cfg.Kind))

	c, err := obsprob.NewCalculator(ref, cfg.Radii, cfg.RadiusUnits)
	if err != nil {
		return "", err
	}
	c.Cache.Metrics = m
	p, err := c.Calculate(ctx, obs, thresholds, tu)
	if err != nil {
		return "", err
	}
	out := filepath.Join(cfg.OutputDir, ncf.ExpandTemplate(outTmpl, icens.DateFormat, cfg.Date))
	if err := p.Write(out); err != nil {
		return "", err
	}
	log.WithField("path", out).Info("saved observed neighborhood probabilities")
	return out, nil
}

// Post post-processes one forecast hour of an ensemble and writes the
// convective fields to a file in outputDir, returning its location.
func Post(ctx context.Context, cfg post.Config, outputDir string, m *observability.Metrics) (string, error) {
	p, err := post.NewProcessor(cfg)
	if err != nil {
		return "", err
	}
	p.Metrics = m
	p.Cache.Metrics = m
	c, err := p.Run(ctx)
	if err != nil {
		return "", err
	}
	out := post.OutputPath(outputDir, cfg.Hour)
	if err := c.Write(out); err != nil {
		return "", err
	}
	p.Log.WithFields(logrus.Fields{
		"initialization": icens.FormatDate(cfg.Init),
		"forecast_hour":  cfg.Hour,
		"path":           out,
	}).Info("saved convective fields")
	return out, nil
}

// Verify verifies the forecasts specified by cfg and writes the results
// to a file in outputDir, returning its location.
func Verify(ctx context.Context, cfg verify.Config, outputDir string, m *observability.Metrics) (string, error) {
	v, err := verify.NewVerifier(cfg)
	if err != nil {
		return "", err
	}
	v.Metrics = m
	r, err := v.Run(ctx)
	if err != nil {
		return "", err
	}
	out := verify.OutputPath(outputDir, cfg.Experiment, cfg.ForecastKey, cfg.RadiusIndex)
	if err := r.Write(out); err != nil {
		return "", err
	}
	v.Log.WithField("path", out).Info("saved verification statistics")
	return out, nil
}
