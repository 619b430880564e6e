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

package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
	"github.com/manyiweb/api-delivery/internal/delivery/report"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// cleanupTimeout bounds all cleanups of one scenario.
const cleanupTimeout = 30 * time.Second

// Filter selects scenarios. Empty fields match everything; within a field
// any value may match.
type Filter struct {
	Suites  []string
	Names   []string
	Markers []string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s Scenario) bool {
	if len(f.Suites) > 0 && !contains(f.Suites, s.Suite) {
		return false
	}
	if len(f.Names) > 0 && !contains(f.Names, s.Name) {
		return false
	}
	if len(f.Markers) > 0 {
		for _, m := range f.Markers {
			if s.HasMarker(m) {
				return true
			}
		}
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Runner executes scenarios one after another.
type Runner struct {
	env       *Env
	report    *report.Report
	metrics   *metrics.Collector
	logger    *zap.Logger
	scenarios []Scenario
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetrics records scenario results in c.
func WithMetrics(c *metrics.Collector) RunnerOption {
	return func(r *Runner) { r.metrics = c }
}

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner returns a runner that records into rep.
func NewRunner(env *Env, rep *report.Report, opts ...RunnerOption) *Runner {
	r := &Runner{env: env, report: rep}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.GetLogger()
	}
	return r
}

// Register adds scenarios. Names must be unique.
func (r *Runner) Register(scenarios ...Scenario) error {
	for _, s := range scenarios {
		if s.Name == "" || s.Run == nil {
			return fmt.Errorf("scenario %q: name and run func are required", s.Name)
		}
		for _, have := range r.scenarios {
			if have.Name == s.Name {
				return fmt.Errorf("scenario %q registered twice", s.Name)
			}
		}
		r.scenarios = append(r.scenarios, s)
	}
	return nil
}

// Scenarios returns the registered scenarios sorted by suite, keeping
// registration order inside a suite.
func (r *Runner) Scenarios() []Scenario {
	out := append([]Scenario(nil), r.scenarios...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Suite < out[j].Suite })
	return out
}

// Select returns the registered scenarios matching f in run order.
func (r *Runner) Select(f Filter) []Scenario {
	var out []Scenario
	for _, s := range r.Scenarios() {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// Run executes every scenario matching f and returns the summary of this
// run. A cancelled context marks the remaining scenarios skipped.
func (r *Runner) Run(ctx context.Context, f Filter) report.Summary {
	selected := r.Select(f)
	r.logger.Info("Run started", zap.Int("scenarios", len(selected)))

	results := make([]report.Result, 0, len(selected))
	for _, s := range selected {
		var res report.Result
		if err := ctx.Err(); err != nil {
			res = report.Result{Name: s.Name, Suite: s.Suite, Title: s.Title, Markers: s.Markers,
				Status: report.StatusSkipped, Start: time.Now(), Error: err.Error()}
		} else {
			res = r.RunOne(ctx, s)
		}
		r.report.Add(res)
		r.metrics.ObserveScenario(s.Suite, string(res.Status))
		results = append(results, res)
	}

	sum := report.Summarize(results)
	r.logger.Info("Run finished",
		zap.Int("total", sum.Total),
		zap.Int("passed", sum.Passed),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped))
	return sum
}

// RunOne executes a single scenario and its cleanups.
func (r *Runner) RunOne(ctx context.Context, s Scenario) report.Result {
	lg := r.logger.With(zap.String("scenario", s.Name), zap.String("suite", s.Suite))
	t := newT(r.env, s.Name, lg)
	start := time.Now()
	lg.Info("Scenario started", zap.String("title", s.Title))

	err := r.invoke(ctx, s, t)
	cleanupErr := r.cleanup(ctx, t)

	res := report.Result{
		Name:    s.Name,
		Suite:   s.Suite,
		Title:   s.Title,
		Markers: s.Markers,
		Start:   start,
	}

	var failure *assertion.Failure
	if errors.As(err, &failure) {
		for _, ev := range failure.Evidence {
			t.Attach(ev.Name, ev.Value)
		}
	}

	switch {
	case err != nil && errors.Is(err, ErrSkipped):
		res.Status = report.StatusSkipped
	case err != nil && s.ExpectFailure:
		res.Status = report.StatusXFailed
	case err != nil:
		res.Status = report.StatusFailed
	case cleanupErr != nil:
		res.Status = report.StatusFailed
		err = cleanupErr
	case s.ExpectFailure:
		res.Status = report.StatusXPassed
	default:
		res.Status = report.StatusPassed
	}
	if err != nil {
		res.Error = err.Error()
	}

	t.mu.Lock()
	res.Steps = append([]report.Step(nil), t.steps...)
	res.Attachments = append([]report.Attachment(nil), t.attachments...)
	t.mu.Unlock()
	res.Duration = time.Since(start)

	lg.Info("Scenario finished", zap.String("status", string(res.Status)), zap.Duration("elapsed", res.Duration), zap.Error(err))
	return res
}

func (r *Runner) invoke(ctx context.Context, s Scenario, t *T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("Scenario panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Run(ctx, t)
}

func (r *Runner) cleanup(ctx context.Context, t *T) error {
	fns := t.takeCleanups()
	if len(fns) == 0 {
		return nil
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := r.runCleanup(cctx, fns[i]); err != nil {
			t.logger.Error("Cleanup failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup: %w", errors.Join(errs...))
	}
	return nil
}

func (r *Runner) runCleanup(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cleanup panic: %v", p)
		}
	}()
	return fn(ctx)
}
