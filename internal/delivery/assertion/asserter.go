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

package assertion

import (
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// Defaults are the polling timings used when a call does not override them.
type Defaults struct {
	APITimeout  time.Duration
	APIInterval time.Duration
	DBTimeout   time.Duration
	DBInterval  time.Duration
	MaxPages    int
	PageSize    int
}

// DefaultDefaults mirrors the stock configuration.
func DefaultDefaults() Defaults {
	return Defaults{
		APITimeout:  30 * time.Second,
		APIInterval: 2 * time.Second,
		DBTimeout:   10 * time.Second,
		DBInterval:  time.Second,
		MaxPages:    3,
		PageSize:    20,
	}
}

// Asserter runs eventual consistency checks.
type Asserter struct {
	defaults Defaults
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// Option configures an Asserter.
type Option func(*Asserter)

// WithMetrics records poll rounds on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Asserter) { a.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Asserter) { a.logger = l }
}

// New returns an Asserter. Zero fields of d take DefaultDefaults values.
func New(d Defaults, opts ...Option) *Asserter {
	def := DefaultDefaults()
	if d.APITimeout <= 0 {
		d.APITimeout = def.APITimeout
	}
	if d.APIInterval <= 0 {
		d.APIInterval = def.APIInterval
	}
	if d.DBTimeout <= 0 {
		d.DBTimeout = def.DBTimeout
	}
	if d.DBInterval <= 0 {
		d.DBInterval = def.DBInterval
	}
	if d.MaxPages <= 0 {
		d.MaxPages = def.MaxPages
	}
	if d.PageSize <= 0 {
		d.PageSize = def.PageSize
	}
	a := &Asserter{defaults: d, logger: logger.GetLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Defaults returns the effective defaults.
func (a *Asserter) Defaults() Defaults { return a.defaults }

// CallOption adjusts one assertion call.
type CallOption func(*call)

type call struct {
	timeout   time.Duration
	interval  time.Duration
	maxPages  int
	pageSize  int
	remark    string
	userID    string
	companyID string
	recorder  Recorder
}

// WithTimeout overrides the polling timeout.
func WithTimeout(d time.Duration) CallOption {
	return func(c *call) { c.timeout = d }
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) CallOption {
	return func(c *call) { c.interval = d }
}

// WithPages overrides how many list pages of which size are scanned.
func WithPages(maxPages, pageSize int) CallOption {
	return func(c *call) { c.maxPages, c.pageSize = maxPages, pageSize }
}

// WithRemark filters the order list by remark.
func WithRemark(remark string) CallOption {
	return func(c *call) { c.remark = remark }
}

// WithUser sets the user and company sent to the detail endpoint.
func WithUser(userID, companyID string) CallOption {
	return func(c *call) { c.userID, c.companyID = userID, companyID }
}

// WithRecorder receives the evidence of a passing check.
func WithRecorder(r Recorder) CallOption {
	return func(c *call) { c.recorder = r }
}

func (a *Asserter) apiCall(opts []CallOption) *call {
	c := &call{
		timeout:  a.defaults.APITimeout,
		interval: a.defaults.APIInterval,
		maxPages: a.defaults.MaxPages,
		pageSize: a.defaults.PageSize,
		recorder: nopRecorder{},
	}
	return apply(c, opts)
}

func (a *Asserter) dbCall(opts []CallOption) *call {
	c := &call{
		timeout:  a.defaults.DBTimeout,
		interval: a.defaults.DBInterval,
		recorder: nopRecorder{},
	}
	return apply(c, opts)
}

func apply(c *call, opts []CallOption) *call {
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return c
}

func (a *Asserter) observe(name string, done bool) {
	outcome := metrics.OutcomePending
	if done {
		outcome = metrics.OutcomeMatched
	}
	a.metrics.ObservePoll(name, outcome)
}
