// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package metrics records request, polling and scenario counters for a
// single harness run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "api_delivery"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
	OutcomeMatched = "matched"
	OutcomePending = "pending"
)

// Collector owns a private registry so parallel test runs and the report
// writer never see metrics from another run. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PollRounds      *prometheus.CounterVec
	Scenarios       *prometheus.CounterVec
}

// NewCollector creates and registers the harness metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Outbound requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Outbound request latency including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		PollRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assertion",
			Name:      "poll_rounds_total",
			Help:      "Polling rounds by assertion and outcome",
		}, []string{"assertion", "outcome"}),

		Scenarios: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "results_total",
			Help:      "Scenario results by suite and status",
		}, []string{"suite", "status"}),
	}
}

// Gatherer exposes the registry for text export.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// ObserveRequest records one logical request.
func (c *Collector) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(endpoint, outcome).Inc()
	c.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObservePoll records one polling round.
func (c *Collector) ObservePoll(assertion, outcome string) {
	if c == nil {
		return
	}
	c.PollRounds.WithLabelValues(assertion, outcome).Inc()
}

// ObserveScenario records a finished scenario.
func (c *Collector) ObserveScenario(suite, status string) {
	if c == nil {
		return
	}
	c.Scenarios.WithLabelValues(suite, status).Inc()
}
