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

package tracing

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledManagerIsNoop(t *testing.T) {
	m, err := NewManager(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	ctx, span := m.StartClientSpan(context.Background(), "POST /dock/mt/v2/order/callback")
	span.End()

	h := http.Header{}
	m.InjectHTTPHeaders(ctx, h)
	assert.Empty(t, h.Get("traceparent"))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestConsoleExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter.Writer = &buf
	cfg.ResourceAttributes = map[string]string{"deployment.environment": "fat"}

	m, err := NewManager(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, m.Enabled())

	ctx, span := m.StartClientSpan(context.Background(), "invoice.apply", attribute.String("order.id", "42"))
	h := http.Header{}
	m.InjectHTTPHeaders(ctx, h)
	span.End()

	require.NoError(t, m.Shutdown(context.Background()))
	assert.NotEmpty(t, h.Get("traceparent"))
	assert.Contains(t, buf.String(), "invoice.apply")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"disabled skips checks", func(c *Config) { c.Exporter.Type = "bogus" }, false},
		{"console ok", func(c *Config) { c.Enabled = true }, false},
		{"otlp needs endpoint", func(c *Config) { c.Enabled = true; c.Exporter.Type = ExporterOTLPHTTP }, true},
		{"otlp grpc ok", func(c *Config) {
			c.Enabled = true
			c.Exporter.Type = ExporterOTLPGRPC
			c.Exporter.Endpoint = "localhost:4317"
		}, false},
		{"unknown exporter", func(c *Config) { c.Enabled = true; c.Exporter.Type = "jaeger" }, true},
		{"bad rate", func(c *Config) { c.Enabled = true; c.SampleRate = 2 }, true},
		{"bad timeout", func(c *Config) { c.Enabled = true; c.Exporter.Timeout = "soon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
