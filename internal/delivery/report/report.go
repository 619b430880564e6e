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

// Package report collects scenario results and writes the run artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status is the final state of a scenario or step.
type Status string

// Statuses.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusXFailed Status = "xfailed"
	StatusXPassed Status = "xpassed"
)

// Step is one named step inside a scenario.
type Step struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Attachment is evidence captured while a scenario ran.
type Attachment struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Result is the outcome of one scenario.
type Result struct {
	Name        string        `json:"name"`
	Suite       string        `json:"suite"`
	Title       string        `json:"title,omitempty"`
	Markers     []string      `json:"markers,omitempty"`
	Status      Status        `json:"status"`
	Start       time.Time     `json:"start"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
	Steps       []Step        `json:"steps,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Summary counts results by status. Failed includes xpassed results.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	XFailed int `json:"xfailed"`
	XPassed int `json:"xpassed"`
}

// OK reports whether nothing failed and something passed.
func (s Summary) OK() bool { return s.Failed == 0 && s.Passed > 0 }

// Environment describes where the run happened.
type Environment struct {
	Name   string `json:"name"`
	APIURL string `json:"api_url"`
	DBHost string `json:"db_host,omitempty"`
	DBPort int    `json:"db_port,omitempty"`
}

// Report is safe for concurrent use.
type Report struct {
	mu      sync.Mutex
	runID   string
	env     Environment
	started time.Time
	results []Result
}

// New starts a report for one run.
func New(runID string, env Environment) *Report {
	return &Report{runID: runID, env: env, started: time.Now()}
}

// RunID returns the run identifier.
func (r *Report) RunID() string { return r.runID }

// Add records a result.
func (r *Report) Add(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of the recorded results.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Summary counts the recorded results.
func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summarize(r.results)
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, res := range results {
		switch res.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusXFailed:
			s.XFailed++
		case StatusXPassed:
			s.XPassed++
			s.Failed++
		}
	}
	return s
}

type document struct {
	RunID       string      `json:"run_id"`
	Started     time.Time   `json:"started"`
	Finished    time.Time   `json:"finished"`
	Environment Environment `json:"environment"`
	Summary     Summary     `json:"summary"`
	Results     []Result    `json:"results"`
}

// WriteJSON writes results-<run id>.json into dir and returns its path.
func (r *Report) WriteJSON(dir string) (string, error) {
	r.mu.Lock()
	doc := document{
		RunID:       r.runID,
		Started:     r.started,
		Finished:    time.Now(),
		Environment: r.env,
		Summary:     Summarize(r.results),
		Results:     append([]Result(nil), r.results...),
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return writeFile(dir, "results-"+r.runID+".json", data)
}

// WriteEnvironment writes environment.properties into dir.
func (r *Report) WriteEnvironment(dir string) (string, error) {
	props := map[string]string{
		"测试环境":  r.env.Name,
		"API地址": r.env.APIURL,
		"数据库":   fmt.Sprintf("%s:%d", r.env.DBHost, r.env.DBPort),
		"Go版本":  runtime.Version(),
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, props[k])
	}
	return writeFile(dir, "environment.properties", []byte(b.String()))
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
