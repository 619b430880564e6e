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

// Package assertion holds the eventual consistency checks run after an
// asynchronous side effect: polling the order list and detail APIs, the
// dorder_dock table and the invoice service, plus invoice response shape
// checks.
package assertion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrAssertion matches every *Failure.
var ErrAssertion = errors.New("assertion failed")

// Evidence is a named artifact collected while asserting.
type Evidence struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Failure is a failed expectation together with what was observed.
type Failure struct {
	Message  string     `json:"message"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

// Failf returns a Failure with a formatted message.
func Failf(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string { return f.Message }

// Is makes errors.Is(err, ErrAssertion) work.
func (f *Failure) Is(target error) bool { return target == ErrAssertion }

// With attaches value under name. Maps and slices are rendered as
// indented JSON.
func (f *Failure) With(name string, value any) *Failure {
	if m, ok := value.(map[string]any); value == nil || ok && m == nil {
		return f
	}
	f.Evidence = append(f.Evidence, Evidence{Name: name, Value: Render(value)})
	return f
}

// Recorder receives evidence of passing checks.
type Recorder interface {
	Attach(name string, value string)
}

type nopRecorder struct{}

func (nopRecorder) Attach(string, string) {}

// Render formats v for evidence: strings verbatim, everything else as
// indented JSON with non-ASCII text kept.
func Render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
