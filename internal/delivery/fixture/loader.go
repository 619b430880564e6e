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

// Package fixture loads YAML request templates from the data directory.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/manyiweb/api-delivery/pkg/logger"
)

// Template file names.
const (
	PushOrderFile   = "mt_delivery_data.yaml"
	CancelOrderFile = "mt_cancel_order.yaml"
	RefundOrderFile = "mt_refund_order.yaml"
	RetailFile      = "order_data.yaml"
	InvoiceFile     = "invoice_data.yaml"
)

// ErrNotFound is returned when a template file or section does not exist.
var ErrNotFound = errors.New("fixture not found")

// Loader resolves template files for one environment.
type Loader struct {
	dir string
	env string
}

// NewLoader returns a Loader reading from dir. In the uat environment a
// <name>_uat.<ext> variant is preferred when it exists.
func NewLoader(dir, env string) *Loader {
	return &Loader{dir: dir, env: strings.ToLower(env)}
}

// Dir returns the data directory.
func (l *Loader) Dir() string { return l.dir }

// Path returns the file path used for name.
func (l *Loader) Path(name string) string {
	if l.env == "uat" {
		ext := filepath.Ext(name)
		variant := filepath.Join(l.dir, strings.TrimSuffix(name, ext)+"_uat"+ext)
		if _, err := os.Stat(variant); err == nil {
			return variant
		}
	}
	return filepath.Join(l.dir, name)
}

// Load parses name into a fresh map. Every call re-reads the file, so the
// result may be mutated freely.
func (l *Loader) Load(name string) (map[string]any, error) {
	path := l.Path(name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		logger.GetLogger().Error("YAML parse error", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	logger.GetLogger().Debug("Loaded fixture", zap.String("path", path))
	return out, nil
}

// Section loads name and returns its top-level mapping called section.
func (l *Loader) Section(name, section string) (map[string]any, error) {
	doc, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	m, ok := doc[section].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: section %q missing or not a mapping in %s", ErrNotFound, section, name)
	}
	return m, nil
}

// DeepCopy copies nested maps and slices so the copy shares nothing
// mutable with v.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

// CopyMap is DeepCopy for the common map case.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return DeepCopy(m).(map[string]any)
}
