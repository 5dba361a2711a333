// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Saves        *prometheus.CounterVec
	Loads        prometheus.Counter
	Broadcasts   prometheus.Counter
	Clients      prometheus.Gauge
	SaveDuration prometheus.Histogram
}

// NewMetrics creates and registers the collectors. If no registerer is
// provided, it uses the default Prometheus registerer.
func NewMetrics(registerer ...prometheus.Registerer) *Metrics {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 && registerer[0] != nil {
		reg = registerer[0]
	}

	m := &Metrics{
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dugout_order_saves_total",
			Help: "The total number of batting order saves, by result.",
		}, []string{"result"}),
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dugout_order_loads_total",
			Help: "The total number of batting order loads.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dugout_broadcasts_total",
			Help: "The total number of order updates pushed to websocket clients.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dugout_ws_clients",
			Help: "The number of connected websocket clients.",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dugout_order_save_duration_seconds",
			Help:    "The duration of batting order saves.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(
		m.Saves,
		m.Loads,
		m.Broadcasts,
		m.Clients,
		m.SaveDuration,
	)
	return m
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 && gatherer[0] != nil {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

func (m *Metrics) observeSave(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Saves.WithLabelValues(result).Inc()
	m.SaveDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) incLoads() {
	if m != nil {
		m.Loads.Inc()
	}
}

func (m *Metrics) incBroadcasts() {
	if m != nil {
		m.Broadcasts.Inc()
	}
}

func (m *Metrics) setClients(n int) {
	if m != nil {
		m.Clients.Set(float64(n))
	}
}
