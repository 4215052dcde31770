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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/verify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// checkDate parses a YYYYMMDDHH date given as a configuration variable
// or argument.
func checkDate(name, s string) (time.Time, error) {
	s = strings.TrimSpace(os.ExpandEnv(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("icens: you need to specify the %s date (YYYYMMDDHH)", name)
	}
	t, err := icens.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("icens: parsing %s: %v", name, err)
	}
	return t, nil
}

// checkDates parses a list of YYYYMMDDHH dates.
func checkDates(name string, s []string) ([]time.Time, error) {
	o := make([]time.Time, 0, len(s))
	for _, d := range s {
		if strings.TrimSpace(d) == "" {
			continue
		}
		t, err := checkDate(name, d)
		if err != nil {
			return nil, err
		}
		o = append(o, t)
	}
	return o, nil
}

// checkDateRange returns the dates from the configuration variables
// start through end, every step.
func checkDateRange(cfg *viper.Viper, start, end, step string) ([]time.Time, error) {
	s, err := checkDate(start, cfg.GetString(start))
	if err != nil {
		return nil, err
	}
	e, err := checkDate(end, cfg.GetString(end))
	if err != nil {
		return nil, err
	}
	d, err := checkDuration(step, cfg.Get(step))
	if err != nil {
		return nil, err
	}
	dates, err := icens.DateRange(s, e, d)
	if err != nil {
		return nil, fmt.Errorf("icens: %s to %s: %v", start, end, err)
	}
	return dates, nil
}

// checkDuration parses a duration such as "12h".
func checkDuration(name string, v interface{}) (time.Duration, error) {
	if s, ok := v.(string); ok {
		v = os.ExpandEnv(s)
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("icens: parsing %s: %v", name, err)
	}
	return d, nil
}

// checkInputPath expands any environment variables in path and makes sure
// that it is specified.
func checkInputPath(name, path string) (string, error) {
	path = os.ExpandEnv(path)
	if path == "" {
		return "", fmt.Errorf("icens: you need to specify the %s configuration variable", name)
	}
	return path, nil
}

// checkOutputDir expands any environment variables in dir and creates the
// directory if it does not already exist.
func checkOutputDir(dir string) (string, error) {
	dir = os.ExpandEnv(dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return dir, fmt.Errorf("icens: creating output directory: %v", err)
	}
	return dir, nil
}

// checkUnits parses a units configuration variable.
func checkUnits(name, s string) (icens.Units, error) {
	u, err := icens.ParseUnits(os.ExpandEnv(s))
	if err != nil {
		return "", fmt.Errorf("icens: parsing %s: %v", name, err)
	}
	return u, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// toFloat64SliceE reads a list of integers from a configuration variable,
// which may be a slice from a configuration file or a comma-separated
// string from the command line or environment.
func toFloat64SliceE(name string, v interface{}) ([]float64, error) {
	if s, ok := v.(string); ok {
		v = strings.Split(strings.Trim(s, "[]"), ",")
	}
	if s, ok := v.([]string); ok {
		for i := range s {
			s[i] = strings.TrimSpace(s[i])
		}
	}
	ints, err := cast.ToIntSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("icens: parsing %s: %v", name, err)
	}
	o := make([]float64, len(ints))
	for i, n := range ints {
		o[i] = float64(n)
	}
	return o, nil
}

// setLogging configures the standard logger from the Log.Level and
// Log.Format configuration variables.
func setLogging(cfg *viper.Viper) error {
	level, err := logrus.ParseLevel(cfg.GetString("Log.Level"))
	if err != nil {
		return fmt.Errorf("icens: Log.Level: %v", err)
	}
	logrus.SetLevel(level)
	switch f := strings.ToLower(cfg.GetString("Log.Format")); f {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("icens: Log.Format must be text or json; got %q", f)
	}
	return nil
}

// VerifyConfig creates a verification configuration from cfg for the
// given experiment, keys and radius index.
func VerifyConfig(cfg *viper.Viper, experiment, forecastKey, observationKey string, radiusIndex int) (*verify.Config, error) {
	inits, err := checkDateRange(cfg, "verify.InitStart", "verify.InitEnd", "verify.InitStep")
	if err != nil {
		return nil, err
	}
	obsDates, err := checkDateRange(cfg, "verify.ObsStart", "verify.ObsEnd", "verify.ObsStep")
	if err != nil {
		return nil, err
	}
	nHours := cfg.GetInt("verify.Hours")
	if nHours < 1 {
		return nil, fmt.Errorf("icens: verify.Hours must be at least 1; got %d", nHours)
	}
	hours := make([]int, nHours)
	for i := range hours {
		hours[i] = i + 1
	}

	skipInits, err := checkDates("verify.SkipInits", expandStringSlice(cfg.GetStringSlice("verify.SkipInits")))
	if err != nil {
		return nil, err
	}
	if len(skipInits) == 0 && experiment == "recenter" {
		if skipInits, err = checkDates("verify.SkipInits", RecenterSkipInits); err != nil {
			return nil, err
		}
	}

	timeout, err := checkDuration("verify.Timeout", cfg.Get("verify.Timeout"))
	if err != nil {
		return nil, err
	}

	dataDir := os.ExpandEnv(cfg.GetString("verify.DataDir"))
	if dataDir == "" {
		return nil, fmt.Errorf("icens: you need to specify the verify.DataDir configuration variable")
	}
	fcstTmpl := os.ExpandEnv(cfg.GetString("verify.ForecastTemplate"))
	obsTmpl := os.ExpandEnv(cfg.GetString("verify.ObservationTemplate"))
	if obsTmpl == "" {
		src, err := verify.ParseObservationSource(observationKey)
		if err != nil {
			return nil, err
		}
		obsTmpl = src.Template()
	}

	bins, err := toFloat64SliceE("verify.Bins", cfg.Get("verify.Bins"))
	if err != nil {
		return nil, err
	}

	return &verify.Config{
		Experiment:          experiment,
		ForecastKey:         forecastKey,
		ObservationKey:      observationKey,
		RadiusIndex:         radiusIndex,
		ForecastTemplate:    joinDir(dataDir, fcstTmpl),
		ObservationTemplate: joinDir(dataDir, obsTmpl),
		Inits:               inits,
		Hours:               hours,
		ObservationDates:    obsDates,
		Bins:                bins,
		SkipInits:           skipInits,
		MinFiles:            cfg.GetInt("verify.MinFiles"),
		Timeout:             timeout,
		Workers:             cfg.GetInt("verify.Workers"),
	}, nil
}

// RecenterSkipInits are the initializations that were not run for the
// recentered ensemble experiment.
var RecenterSkipInits = []string{"2016043012", "2016050100", "2016050112"}

// joinDir prepends dir to the template tmpl unless tmpl is absolute.
func joinDir(dir, tmpl string) string {
	if strings.HasPrefix(tmpl, "/") {
		return tmpl
	}
	return strings.TrimSuffix(dir, "/") + "/" + tmpl
}
