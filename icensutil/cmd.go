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

// Package icensutil contains the command-line interface for the icens tools.
package icensutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/lnashier/viper"
	icens "github.com/rpmanser/large-ic-ensembles"
	"github.com/rpmanser/large-ic-ensembles/internal/observability"
	"github.com/rpmanser/large-ic-ensembles/obsprob"
	"github.com/rpmanser/large-ic-ensembles/post"
	"github.com/rpmanser/large-ic-ensembles/reproject"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// metrics are shared by all commands and served at MetricsAddr.
var metrics = observability.NewMetrics()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Log.Level",
			usage: `
              Log.Level is the minimum level of log messages to print
              (trace, debug, info, warn, error, fatal or panic).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Log.Format",
			usage: `
              Log.Format is the format of log messages, either text or json.`,
			defaultVal: "text",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MetricsAddr",
			usage: `
              MetricsAddr, if not empty, is the address (for example
              ":9090") at which to serve Prometheus metrics at /metrics
              while the command runs.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "WRFReference",
			usage: `
              WRFReference is the location of a WRF output file that holds the
              coordinates and projection of the forecast grid, for example
              ${PATH_WRFREF}/wrfoutREFd02.`,
			defaultVal: "${PATH_WRFREF}/wrfoutREFd02",
			flagsets:   []*pflag.FlagSet{obsprobCmd.PersistentFlags(), metgridCmd.Flags()},
		},
		{
			name: "obsprob.Radii",
			usage: `
              obsprob.Radii are the neighborhood radii in the units given by
              obsprob.RadiusUnits.`,
			defaultVal: []int{20, 40, 60},
			flagsets:   []*pflag.FlagSet{obsprobCmd.PersistentFlags()},
		},
		{
			name: "obsprob.RadiusUnits",
			usage: `
              obsprob.RadiusUnits are the units of obsprob.Radii.`,
			defaultVal: "mi",
			flagsets:   []*pflag.FlagSet{obsprobCmd.PersistentFlags()},
		},
		{
			name: "obsprob.GridRad.Dir",
			usage: `
              obsprob.GridRad.Dir is the directory holding the GridRad
              archive.`,
			defaultVal: "${PATH_GRIDRAD_OBS}",
			flagsets:   []*pflag.FlagSet{gridradCmd.Flags()},
		},
		{
			name: "obsprob.GridRad.Template",
			usage: `
              obsprob.GridRad.Template is the location of each GridRad file
              within obsprob.GridRad.Dir. [MONTH] is replaced by the year and
              month (YYYYMM) and [DATE] by the observation time
              (YYYYMMDDTHHMMSS).`,
			defaultVal: obsprob.GridRadTemplate,
			flagsets:   []*pflag.FlagSet{gridradCmd.Flags()},
		},
		{
			name: "obsprob.GridRad.OutputDir",
			usage: `
              obsprob.GridRad.OutputDir is the directory where GridRad
              neighborhood probabilities are saved.`,
			defaultVal: "${PATH_GRIDRAD_SAVE}",
			flagsets:   []*pflag.FlagSet{gridradCmd.Flags()},
		},
		{
			name: "obsprob.StageIV.Dir",
			usage: `
              obsprob.StageIV.Dir is the directory holding the Stage IV
              archive.`,
			defaultVal: "${PATH_STAGE4_OBS}",
			flagsets:   []*pflag.FlagSet{stage4Cmd.Flags()},
		},
		{
			name: "obsprob.StageIV.Template",
			usage: `
              obsprob.StageIV.Template is the location of each Stage IV file
              within obsprob.StageIV.Dir. [DATE] is replaced by the
              observation time (YYYYMMDDHH).`,
			defaultVal: obsprob.StageIVTemplate,
			flagsets:   []*pflag.FlagSet{stage4Cmd.Flags()},
		},
		{
			name: "obsprob.StageIV.OutputDir",
			usage: `
              obsprob.StageIV.OutputDir is the directory where Stage IV
              neighborhood probabilities are saved.`,
			defaultVal: "${PATH_STAGE4_SAVE}",
			flagsets:   []*pflag.FlagSet{stage4Cmd.Flags()},
		},
		{
			name: "post.MemberTemplate",
			usage: `
              post.MemberTemplate is the location of each member's WRF
              output file within the ensemble directory. [MEMBER] is
              replaced by the member number and [DATE] by the valid time
              in the format given by post.DateFormat.`,
			defaultVal: post.DefaultMemberTemplate,
			flagsets:   []*pflag.FlagSet{postCmd.Flags()},
		},
		{
			name: "post.DateFormat",
			usage: `
              post.DateFormat is the format of the dates in WRF output file
              names, given as the Go reference time.`,
			defaultVal: post.WRFDateFormat,
			flagsets:   []*pflag.FlagSet{postCmd.Flags()},
		},
		{
			name: "post.Radii",
			usage: `
              post.Radii are the NMEP neighborhood radii in kilometers.`,
			defaultVal: []int{32, 64, 96},
			flagsets:   []*pflag.FlagSet{postCmd.Flags()},
		},
		{
			name: "post.OutputDir",
			usage: `
              post.OutputDir is the directory where the convective fields
              are saved. It is created if it does not exist.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{postCmd.Flags()},
		},
		{
			name: "verify.DataDir",
			usage: `
              verify.DataDir is the directory that the forecast and
              observation templates are relative to.`,
			defaultVal: "${PATH_DATA}",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.ForecastTemplate",
			usage: `
              verify.ForecastTemplate is the location of each forecast
              file. [EXPERIMENT] is replaced by the experiment, [DATE] by
              the initialization time and [HOUR] by the two-digit
              forecast hour.`,
			defaultVal: "wrf_post/[EXPERIMENT]/[DATE]/convective_f[HOUR].nc",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.ObservationTemplate",
			usage: `
              verify.ObservationTemplate is the location of each
              observation file, where [DATE] is replaced by the valid time.
              If it is empty, it is chosen from the observation key.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.InitStart",
			usage: `
              verify.InitStart is the first initialization (YYYYMMDDHH).`,
			defaultVal: "2016042700",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.InitEnd",
			usage: `
              verify.InitEnd is the last initialization (YYYYMMDDHH).`,
			defaultVal: "2016060312",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.InitStep",
			usage: `
              verify.InitStep is the time between initializations.`,
			defaultVal: "12h",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.Hours",
			usage: `
              verify.Hours is the number of hourly forecasts to verify
              for each initialization.`,
			defaultVal: 48,
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.ObsStart",
			usage: `
              verify.ObsStart is the first observation time used for the
              sample climatology (YYYYMMDDHH).`,
			defaultVal: "2016042700",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.ObsEnd",
			usage: `
              verify.ObsEnd is the last observation time used for the
              sample climatology (YYYYMMDDHH).`,
			defaultVal: "2016060512",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.ObsStep",
			usage: `
              verify.ObsStep is the time between observations.`,
			defaultVal: "1h",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.Bins",
			usage: `
              verify.Bins are the upper edges of the reliability bins in
              percent.`,
			defaultVal: []int{5, 15, 25, 35, 45, 55, 65, 75, 85, 95, 100},
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.SkipInits",
			usage: `
              verify.SkipInits are initializations (YYYYMMDDHH) without
              forecasts. For the "recenter" experiment it defaults to
              2016043012, 2016050100 and 2016050112.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.MinFiles",
			usage: `
              verify.MinFiles is the number of forecast files that must
              exist for an initialization to be verified.`,
			defaultVal: 48,
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.Timeout",
			usage: `
              verify.Timeout, if greater than zero, limits the time spent
              verifying each initialization.`,
			defaultVal: "0s",
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
		{
			name: "verify.Workers",
			usage: `
              verify.Workers is the number of initializations verified at
              once. If it is zero, the number of processors is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{verifyCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ICENS")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // The flag only needs to be created once.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(obsprobCmd)
	obsprobCmd.AddCommand(gridradCmd)
	obsprobCmd.AddCommand(stage4Cmd)
	Root.AddCommand(postCmd)
	Root.AddCommand(verifyCmd)
	Root.AddCommand(moddateCmd)
	Root.AddCommand(metgridCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// configures logging, and starts the metrics server if requested.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("icens: problem reading configuration file: %v", err)
		}
	}
	if err := setLogging(Cfg); err != nil {
		return err
	}
	if addr := Cfg.GetString("MetricsAddr"); addr != "" {
		srv := metrics.NewServer(addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Error("metrics server stopped")
			}
		}()
		logrus.WithField("address", addr).Info("serving metrics")
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "icens",
	Short: "Neighborhood probabilities and verification for convection-allowing ensembles.",
	Long: `icens calculates neighborhood probabilities from GridRad radar and Stage IV
precipitation observations and from WRF ensemble forecasts, and verifies the
forecast probabilities against the observed ones.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'ICENS_var' where 'var' is the
name of the variable to be set. Path variables may contain environment variables.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of icens.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "icens v%s\n", icens.Version)
	},
	DisableAutoGenTag: true,
}

var obsprobCmd = &cobra.Command{
	Use:   "obsprob",
	Short: "Calculate observed neighborhood probabilities.",
	Long: `obsprob calculates neighborhood probabilities of observations exceeding
a set of thresholds on the grid of a WRF reference file. Use the subcommands
to choose the observations.`,
	DisableAutoGenTag: true,
}

// obsProbConfig reads the configuration shared by the obsprob subcommands.
func obsProbConfig(kind ObsKind, dateArg, dir, tmpl, outDir string) (ObsProbConfig, error) {
	cfg := ObsProbConfig{Kind: kind}
	var err error
	if cfg.Date, err = checkDate("observation", dateArg); err != nil {
		return cfg, err
	}
	if cfg.WRFReference, err = checkInputPath("WRFReference", Cfg.GetString("WRFReference")); err != nil {
		return cfg, err
	}
	cfg.InputDir = os.ExpandEnv(Cfg.GetString(dir))
	if cfg.InputTemplate, err = checkInputPath(tmpl, Cfg.GetString(tmpl)); err != nil {
		return cfg, err
	}
	if cfg.OutputDir, err = checkOutputDir(Cfg.GetString(outDir)); err != nil {
		return cfg, err
	}
	if cfg.Radii, err = toFloat64SliceE("obsprob.Radii", Cfg.Get("obsprob.Radii")); err != nil {
		return cfg, err
	}
	cfg.RadiusUnits, err = checkUnits("obsprob.RadiusUnits", Cfg.GetString("obsprob.RadiusUnits"))
	return cfg, err
}

var gridradCmd = &cobra.Command{
	Use:   "gridrad YYYYMMDDHH",
	Short: "Neighborhood probabilities of GridRad reflectivity.",
	Long: `gridrad reads the GridRad file valid at the given time, removes clutter,
and calculates neighborhood probabilities of column-maximum reflectivity
exceeding 25 and 40 dBZ.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := obsProbConfig(GridRad, args[0], "obsprob.GridRad.Dir",
			"obsprob.GridRad.Template", "obsprob.GridRad.OutputDir")
		if err != nil {
			return err
		}
		_, err = ObsProb(context.Background(), cfg, metrics)
		return err
	},
	DisableAutoGenTag: true,
}

var stage4Cmd = &cobra.Command{
	Use:   "stage4 YYYYMMDDHH",
	Short: "Neighborhood probabilities of Stage IV precipitation.",
	Long: `stage4 reads the hourly Stage IV precipitation analysis valid at the given
time and calculates neighborhood probabilities of precipitation exceeding
0.01, 0.1, 0.25, 0.5 and 1 inch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := obsProbConfig(StageIV, args[0], "obsprob.StageIV.Dir",
			"obsprob.StageIV.Template", "obsprob.StageIV.OutputDir")
		if err != nil {
			return err
		}
		_, err = ObsProb(context.Background(), cfg, metrics)
		return err
	},
	DisableAutoGenTag: true,
}

var postCmd = &cobra.Command{
	Use:   "post DIRECTORY YYYYMMDDHH FHOUR NMEM DOMAIN",
	Short: "Post-process a WRF ensemble forecast.",
	Long: `post reads the output of each member of the WRF ensemble in DIRECTORY
initialized at YYYYMMDDHH and valid FHOUR hours later, and saves hourly
precipitation, column-maximum reflectivity and updraft helicity for each
member along with their neighborhood maximum ensemble probabilities.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		initDate, err := checkDate("initialization", args[1])
		if err != nil {
			return err
		}
		ints := make([]int, 3)
		for i, name := range []string{"FHOUR", "NMEM", "DOMAIN"} {
			if ints[i], err = strconv.Atoi(args[2+i]); err != nil {
				return fmt.Errorf("icens: parsing %s: %v", name, err)
			}
		}
		radii, err := toFloat64SliceE("post.Radii", Cfg.Get("post.Radii"))
		if err != nil {
			return err
		}
		outDir, err := checkOutputDir(Cfg.GetString("post.OutputDir"))
		if err != nil {
			return err
		}
		_, err = Post(context.Background(), post.Config{
			Directory:      os.ExpandEnv(args[0]),
			MemberTemplate: os.ExpandEnv(Cfg.GetString("post.MemberTemplate")),
			DateFormat:     Cfg.GetString("post.DateFormat"),
			Members:        ints[1],
			Init:           initDate,
			Hour:           ints[0],
			Domain:         ints[2],
			Radii:          radii,
		}, outDir, metrics)
		return err
	},
	DisableAutoGenTag: true,
}

var verifyCmd = &cobra.Command{
	Use:   "verify EXPERIMENT FCST_KEY OBS_KEY RADIUS_IDX DIR_OUT",
	Short: "Verify neighborhood probability forecasts.",
	Long: `verify calculates the fractions skill score, Brier skill score, reliability
and area under the ROC curve of the forecast variable FCST_KEY of EXPERIMENT
against the observed variable OBS_KEY at neighborhood radius index
RADIUS_IDX for every initialization and forecast hour, and saves them in
DIR_OUT/EXPERIMENT/FCST_KEY_rRADIUS_IDX.nc.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		ri, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("icens: parsing RADIUS_IDX: %v", err)
		}
		cfg, err := VerifyConfig(Cfg, args[0], args[1], args[2], ri)
		if err != nil {
			return err
		}
		outDir, err := checkOutputDir(args[4])
		if err != nil {
			return err
		}
		_, err = Verify(context.Background(), *cfg, outDir, metrics)
		return err
	},
	DisableAutoGenTag: true,
}

var moddateCmd = &cobra.Command{
	Use:   "moddate YYYYMMDDHH HOURS",
	Short: "Advance or reverse a date.",
	Long: `moddate prints the date HOURS hours after YYYYMMDDHH, or before it if
HOURS is negative.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("icens: parsing HOURS: %v", err)
		}
		d, err := icens.ModifyDate(args[0], hours)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d)
		return nil
	},
	DisableAutoGenTag: true,
}

var metgridCmd = &cobra.Command{
	Use:   "metgrid NAME",
	Short: "Print the MET grid attributes of the forecast grid.",
	Long: `metgrid prints, as JSON, the Lambert conformal grid attributes that the
Model Evaluation Tools python embedding requires for the grid of the
WRF reference file, giving the grid the name NAME.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := checkInputPath("WRFReference", Cfg.GetString("WRFReference"))
		if err != nil {
			return err
		}
		ref, err := reproject.ReadWRFReference(path)
		if err != nil {
			return err
		}
		e := json.NewEncoder(cmd.OutOrStdout())
		e.SetIndent("", "  ")
		return e.Encode(ref.METGrid(args[0]))
	},
	DisableAutoGenTag: true,
}
