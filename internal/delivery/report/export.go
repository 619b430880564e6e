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
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteMetrics writes the gathered metrics in the prometheus text format
// to metrics.prom in dir.
func WriteMetrics(dir string, g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("encode metrics: %w", err)
		}
	}
	return writeFile(dir, "metrics.prom", buf.Bytes())
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	passedColor  = color.New(color.FgGreen, color.Bold)
	failedColor  = color.New(color.FgRed, color.Bold)
	skippedColor = color.New(color.FgYellow)
	detailColor  = color.New(color.FgBlue)
)

func statusColor(s Status) *color.Color {
	switch s {
	case StatusPassed, StatusXFailed:
		return passedColor
	case StatusFailed, StatusXPassed:
		return failedColor
	default:
		return skippedColor
	}
}

// PrintSummary writes one line per result followed by the totals.
func (r *Report) PrintSummary(w io.Writer) {
	results := r.Results()
	s := Summarize(results)

	headerColor.Fprintf(w, "==== %s ====\n", r.runID)
	for _, res := range results {
		statusColor(res.Status).Fprintf(w, "%-8s", res.Status)
		fmt.Fprintf(w, " %s/%s (%s)\n", res.Suite, res.Name, res.Duration.Round(1e6))
		if res.Error != "" {
			detailColor.Fprintf(w, "         %s\n", res.Error)
		}
	}

	headerColor.Fprint(w, "total ")
	fmt.Fprintf(w, "%d  ", s.Total)
	passedColor.Fprintf(w, "passed %d  ", s.Passed)
	failedColor.Fprintf(w, "failed %d  ", s.Failed)
	skippedColor.Fprintf(w, "skipped %d  ", s.Skipped)
	fmt.Fprintf(w, "xfailed %d  xpassed %d\n", s.XFailed, s.XPassed)
}
