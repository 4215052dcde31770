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

// Package observability holds the Prometheus metrics reported by the
// icens batch tools.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "icens"

// Metrics holds the Prometheus counters and histograms for the batch tools.
type Metrics struct {
	Registry *prometheus.Registry

	// File metrics. labels: kind={gridrad,stage4,wrf,forecast,observation}
	FilesRead    *prometheus.CounterVec
	FilesMissing *prometheus.CounterVec

	// Neighborhood query metrics.
	QueryBuilds        prometheus.Counter
	QueryBuildDuration prometheus.Histogram

	// Verification metrics.
	SamplesVerified     prometheus.Counter
	UndefinedAUC        prometheus.Counter
	InitsSkipped        prometheus.Counter
	InitProcessDuration prometheus.Histogram
}

// NewMetrics creates all metrics and registers them with a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      "Input files read, by kind.",
		}, []string{"kind"}),
		FilesMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_missing_total",
			Help:      "Input files that were missing or empty, by kind.",
		}, []string{"kind"}),
		QueryBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "neighborhood_query_builds_total",
			Help:      "Neighborhood queries built (cache misses).",
		}),
		QueryBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "neighborhood_query_build_duration_seconds",
			Help:      "Time to build one neighborhood query.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		SamplesVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_verified_total",
			Help:      "Initialization and forecast hour pairs verified.",
		}),
		UndefinedAUC: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roc_auc_undefined_total",
			Help:      "Samples for which the ROC area could not be defined.",
		}),
		InitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "initializations_skipped_total",
			Help:      "Initializations skipped for missing or incomplete forecasts.",
		}),
		InitProcessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "initialization_duration_seconds",
			Help:      "Time to verify all forecast hours of one initialization.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}
	m.Registry.MustRegister(
		m.FilesRead,
		m.FilesMissing,
		m.QueryBuilds,
		m.QueryBuildDuration,
		m.SamplesVerified,
		m.UndefinedAUC,
		m.InitsSkipped,
		m.InitProcessDuration,
	)
	return m
}

// Handler returns an HTTP handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server that serves the metrics at /metrics on
// the given address.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

// FileRead records that a file of the given kind was read.
func (m *Metrics) FileRead(kind string) {
	if m != nil {
		m.FilesRead.WithLabelValues(kind).Inc()
	}
}

// FileMissing records that a file of the given kind was missing or empty.
func (m *Metrics) FileMissing(kind string) {
	if m != nil {
		m.FilesMissing.WithLabelValues(kind).Inc()
	}
}

// QueryBuilt records a neighborhood query that took d to build.
func (m *Metrics) QueryBuilt(d time.Duration) {
	if m != nil {
		m.QueryBuilds.Inc()
		m.QueryBuildDuration.Observe(d.Seconds())
	}
}

// SampleVerified records one verified forecast hour.
func (m *Metrics) SampleVerified() {
	if m != nil {
		m.SamplesVerified.Inc()
	}
}

// UndefinedROC records a ROC area that could not be calculated.
func (m *Metrics) UndefinedROC() {
	if m != nil {
		m.UndefinedAUC.Inc()
	}
}

// InitSkipped records a skipped initialization.
func (m *Metrics) InitSkipped() {
	if m != nil {
		m.InitsSkipped.Inc()
	}
}

// InitProcessed records an initialization that took d to verify.
func (m *Metrics) InitProcessed(d time.Duration) {
	if m != nil {
		m.InitProcessDuration.Observe(d.Seconds())
	}
}
