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

// Package scenario defines the end-to-end business scenarios and the
// runner that executes them against a live environment.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/report"
	"github.com/manyiweb/api-delivery/internal/delivery/repository"
)

// ErrSkipped matches the error returned by T.Skipf.
var ErrSkipped = errors.New("scenario skipped")

// Markers.
const (
	MarkerSmoke    = "smoke"
	MarkerCritical = "critical"
	MarkerNormal   = "normal"
	MarkerBlocker  = "blocker"
)

// Func is the body of a scenario.
type Func func(ctx context.Context, t *T) error

// Scenario is one named business flow.
type Scenario struct {
	Name    string
	Suite   string
	Title   string
	Markers []string
	// ExpectFailure marks a known defect: failing is recorded as xfailed,
	// passing as xpassed.
	ExpectFailure bool
	Run           Func
}

// HasMarker reports whether s carries marker m.
func (s Scenario) HasMarker(m string) bool {
	for _, have := range s.Markers {
		if have == m {
			return true
		}
	}
	return false
}

// Env is what scenarios run against.
type Env struct {
	Config    *config.Config
	Callbacks *api.Callbacks
	Retail    *api.Retail
	Invoices  *api.Invoices
	Orders    *api.Orders
	Asserter  *assertion.Asserter
	// Repo is nil unless DB checks are enabled.
	Repo   repository.DockOrderRepository
	Logger *zap.Logger
}

// DBChecks reports whether row level assertions are available.
func (e *Env) DBChecks() bool { return e.Repo != nil }

type skipError struct{ reason string }

func (e *skipError) Error() string        { return e.reason }
func (e *skipError) Is(target error) bool { return target == ErrSkipped }

// T is handed to a running scenario. It records steps, attachments and
// cleanups and implements assertion.Recorder.
type T struct {
	env    *Env
	name   string
	logger *zap.Logger

	mu          sync.Mutex
	steps       []report.Step
	attachments []report.Attachment
	cleanups    []func(ctx context.Context) error
}

func newT(env *Env, name string, lg *zap.Logger) *T {
	return &T{env: env, name: name, logger: lg}
}

// Env returns the environment.
func (t *T) Env() *Env { return t.env }

// Name returns the scenario name.
func (t *T) Name() string { return t.name }

// Logger returns the scenario logger.
func (t *T) Logger() *zap.Logger { return t.logger }

// Step runs fn as a named step and returns its error wrapped with the step
// name.
func (t *T) Step(name string, fn func() error) error {
	lg := t.logger.With(zap.String("step", name))
	lg.Info("Step started")
	start := time.Now()
	err := fn()

	st := report.Step{Name: name, Status: report.StatusPassed, Duration: time.Since(start)}
	switch {
	case err == nil:
		lg.Info("Step passed", zap.Duration("elapsed", st.Duration))
	case errors.Is(err, ErrSkipped):
		st.Status, st.Error = report.StatusSkipped, err.Error()
		lg.Warn("Step skipped", zap.String("reason", err.Error()))
	default:
		st.Status, st.Error = report.StatusFailed, err.Error()
		lg.Error("Step failed", zap.Error(err))
	}

	t.mu.Lock()
	t.steps = append(t.steps, st)
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Skipf returns an error that ends the scenario as skipped.
func (t *T) Skipf(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// Cleanup registers fn to run after the scenario. Cleanups run last
// registered first, even when the scenario failed or panicked.
func (t *T) Cleanup(fn func(ctx context.Context) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

// Logf logs an informational message.
func (t *T) Logf(format string, args ...any) {
	t.logger.Info(fmt.Sprintf(format, args...))
}

// Attach stores evidence in the run report.
func (t *T) Attach(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attachments = append(t.attachments, report.Attachment{Name: name, Body: value})
}

func (t *T) takeCleanups() []func(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.cleanups
	t.cleanups = nil
	return c
}
