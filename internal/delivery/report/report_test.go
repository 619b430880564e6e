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

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
)

func sampleReport() *Report {
	r := New("run-1", Environment{Name: "fat", APIURL: "http://pos.test/api", DBHost: "db.test", DBPort: 3306})
	r.Add(Result{Name: "push", Suite: "mt", Status: StatusPassed, Duration: 1500 * time.Millisecond})
	r.Add(Result{Name: "cancel", Suite: "mt", Status: StatusFailed, Error: "status mismatch"})
	r.Add(Result{Name: "refund_after_cancel", Suite: "mt", Status: StatusXFailed})
	r.Add(Result{Name: "invoice_apply", Suite: "invoice", Status: StatusSkipped})
	r.Add(Result{Name: "dup_refund", Suite: "mt", Status: StatusXPassed})
	return r
}

func TestSummarize(t *testing.T) {
	s := sampleReport().Summary()
	assert.Equal(t, Summary{Total: 5, Passed: 1, Failed: 2, Skipped: 1, XFailed: 1, XPassed: 1}, s)
	assert.False(t, s.OK())
	assert.True(t, Summary{Total: 1, Passed: 1}.OK())
	assert.False(t, Summary{}.OK())
}

func TestWriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := sampleReport().WriteJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results-run-1.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 2, doc.Summary.Failed)
	require.Len(t, doc.Results, 5)
	assert.Equal(t, "status mismatch", doc.Results[1].Error)
	assert.Equal(t, 1500*time.Millisecond, doc.Results[0].Duration)
}

func TestWriteEnvironment(t *testing.T) {
	dir := t.TempDir()
	path, err := sampleReport().WriteEnvironment(dir)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "测试环境=fat\n")
	assert.Contains(t, text, "API地址=http://pos.test/api\n")
	assert.Contains(t, text, "数据库=db.test:3306\n")
	assert.Contains(t, text, "Go版本="+runtime.Version()+"\n")
}

func TestWriteMetrics(t *testing.T) {
	c := metrics.NewCollector()
	c.ObserveRequest("push_order", metrics.OutcomeSuccess, 120*time.Millisecond)
	c.ObserveScenario("mt", string(StatusPassed))

	path, err := WriteMetrics(t.TempDir(), c.Gatherer())
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `api_delivery_http_requests_total{endpoint="push_order",outcome="success"} 1`)
	assert.Contains(t, string(raw), `api_delivery_scenario_results_total{status="passed",suite="mt"} 1`)
}

func TestPrintSummary(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	sampleReport().PrintSummary(&buf)
	out := buf.String()
	assert.Contains(t, out, "==== run-1 ====")
	assert.Contains(t, out, "mt/push (1.5s)")
	assert.Contains(t, out, "status mismatch")
	assert.Contains(t, out, "passed 1")
	assert.Contains(t, out, "failed 2")
	assert.Contains(t, out, "xfailed 1  xpassed 1")
}

func TestReportConcurrentAdd(t *testing.T) {
	r := New("r", Environment{})
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			r.Add(Result{Name: "x", Status: StatusPassed})
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, 8, r.Summary().Passed)
}
