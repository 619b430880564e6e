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
	"fmt"
	"io"
	"time"
)

// Exporter types understood by NewManager.
const (
	ExporterConsole  = "console"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds the tracing configuration for outbound harness requests.
type Config struct {
	Enabled     bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	ServiceName string  `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`

	Exporter ExporterConfig `mapstructure:"exporter" json:"exporter" yaml:"exporter"`

	// ResourceAttributes are attached to every span, e.g. the environment name.
	ResourceAttributes map[string]string `mapstructure:"resource_attributes" json:"resource_attributes" yaml:"resource_attributes"`
}

// ExporterConfig selects and configures the span exporter.
type ExporterConfig struct {
	Type     string            `mapstructure:"type" json:"type" yaml:"type"`
	Endpoint string            `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	Insecure bool              `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
	Headers  map[string]string `mapstructure:"headers" json:"headers" yaml:"headers"`
	Timeout  string            `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// Writer receives console spans. Defaults to stdout.
	Writer io.Writer `mapstructure:"-" json:"-" yaml:"-"`
}

// DefaultConfig returns tracing switched off with console export ready.
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ServiceName: "api-delivery",
		SampleRate:  1.0,
		Exporter: ExporterConfig{
			Type:    ExporterConsole,
			Timeout: "10s",
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when tracing is enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0 and 1")
	}
	switch c.Exporter.Type {
	case ExporterConsole:
	case ExporterOTLPHTTP, ExporterOTLPGRPC:
		if c.Exporter.Endpoint == "" {
			return fmt.Errorf("%s exporter requires endpoint", c.Exporter.Type)
		}
	default:
		return fmt.Errorf("unsupported exporter type: %s", c.Exporter.Type)
	}
	if c.Exporter.Timeout != "" {
		if _, err := time.ParseDuration(c.Exporter.Timeout); err != nil {
			return fmt.Errorf("invalid exporter timeout: %w", err)
		}
	}
	return nil
}

func (e ExporterConfig) timeout() time.Duration {
	if d, err := time.ParseDuration(e.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}
