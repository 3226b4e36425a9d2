/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const metricsNamespace = "ntpoll"

// result labels
const (
	resultSuccess         = "success"
	resultResolution      = "resolution_failure"
	resultRequestLost     = "request_lost"
	resultInvalidResponse = "invalid_response"
	resultAllocation      = "allocation_failure"
	resultUnknown         = "unknown"
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, ErrResolution):
		return resultResolution
	case errors.Is(err, ErrRequestLost):
		return resultRequestLost
	case errors.Is(err, ErrInvalidResponse):
		return resultInvalidResponse
	case errors.Is(err, ErrAllocation):
		return resultAllocation
	}
	return resultUnknown
}

// Stats holds poll client metrics.
// Offset statistics are informational only, reported time is never filtered.
type Stats struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	results       *prometheus.CounterVec
	ignored       prometheus.Counter
	lastTimestamp prometheus.Gauge
	offset        prometheus.Gauge
	offsetMean    prometheus.Gauge
	offsetStddev  prometheus.Gauge

	offsets *welford.Stats
}

// NewStats creates Stats registered in a fresh registry
func NewStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Poll cycles started",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "results_total",
			Help:      "Poll cycles finished, by result",
		}, []string{"result"}),
		ignored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ignored_datagrams_total",
			Help:      "Datagrams dropped because they did not come from the expected server or arrived while idle",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_timestamp_seconds",
			Help:      "Last unix timestamp received from the server",
		}),
		offset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "offset_seconds",
			Help:      "Difference between server and local time during the last successful cycle",
		}),
		offsetMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "offset_mean_seconds",
			Help:      "Mean of all observed offsets",
		}),
		offsetStddev: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "offset_stddev_seconds",
			Help:      "Standard deviation of all observed offsets",
		}),
		offsets: welford.New(),
	}
	s.registry.MustRegister(s.cycles, s.results, s.ignored, s.lastTimestamp, s.offset, s.offsetMean, s.offsetStddev)
	// make all result series visible from the start
	for _, l := range []string{resultSuccess, resultResolution, resultRequestLost, resultInvalidResponse, resultAllocation} {
		s.results.WithLabelValues(l)
	}
	return s
}

// Registry returns prometheus registry all the metrics live in
func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}

// IncCycles counts started cycle
func (s *Stats) IncCycles() {
	s.cycles.Inc()
}

// IncResult counts finished cycle
func (s *Stats) IncResult(err error) {
	s.results.WithLabelValues(resultLabel(err)).Inc()
}

// IncIgnored counts dropped datagram
func (s *Stats) IncIgnored() {
	s.ignored.Inc()
}

// SetTimestamp records successful result and offset from local clock
func (s *Stats) SetTimestamp(unix int64, offset time.Duration) {
	s.lastTimestamp.Set(float64(unix))
	s.offset.Set(offset.Seconds())
	s.offsets.Add(offset.Seconds())
	s.offsetMean.Set(s.offsets.Mean())
	s.offsetStddev.Set(s.offsets.Stddev())
}

// Start runs http server exposing metrics. Blocks.
func (s *Stats) Start(monitoringport int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		s.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))
	addr := fmt.Sprintf(":%d", monitoringport)
	log.Infof("Starting http metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("Failed to start listener: %v", err)
	}
}
