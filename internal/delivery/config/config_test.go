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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyiweb/api-delivery/pkg/resilience"
)

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, "http://fat-pos.reabam.com:60030/api", cfg.APIBaseURL())
	assert.Equal(t, "/dock/mt/v2/order/callback", cfg.Endpoints.PushCallback)
	assert.Equal(t, "/hr/retail/invoice/batchApply", cfg.Endpoints.InvoiceApply)
	assert.Equal(t, 30*time.Second, cfg.APIPollTimeout())
	assert.Equal(t, 2*time.Second, cfg.APIPollInterval())
	assert.Equal(t, 10*time.Second, cfg.DBPollTimeout())
	assert.Equal(t, time.Second, cfg.DBPollInterval())
	assert.Equal(t, 10, cfg.Poll.MaxConcurrency)
	assert.Equal(t, "INVOICED", cfg.Invoice.ExpectedStatus)
	assert.False(t, cfg.DBChecksEnabled())

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 2*time.Second, p.Interval)
	assert.Equal(t, resilience.StrategyFixed, p.Strategy)
}

func TestLoadUATSelectsUATURLAndFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delivery.uat.yaml"), []byte(`
merchant:
  epoi_id: uat-shop
`), 0o644))
	t.Setenv("ENV", "uat")

	cfg, m, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, EnvUAT, cfg.Env)
	assert.Equal(t, "https://pos.reabam.com:60030/api", cfg.APIBaseURL())
	assert.Equal(t, "uat-shop", cfg.Merchant.EPoiID)
	assert.Len(t, m.LoadedFiles(), 1)
}

func TestLoadLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("ENV", "fat")
	t.Setenv("DB_HOST", "10.0.0.5")
	t.Setenv("DB_USER", "qa")
	t.Setenv("DB_NAME", "reabam")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DEFAULT_TIMEOUT", "45")
	t.Setenv("RETRY_TIMES", "5")
	t.Setenv("SIGN", "static-sign")
	t.Setenv("INVOICE_ORDER_ID", "f493da2a48fb4e4db552bc492a02fca3")

	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.DB.Host)
	assert.True(t, cfg.DBChecksEnabled())
	assert.Equal(t, 45*time.Second, cfg.APIPollTimeout())
	assert.Equal(t, 45*time.Second, cfg.DBPollTimeout())
	assert.Equal(t, 5, cfg.RetryPolicy().Attempts)
	assert.Equal(t, "static-sign", cfg.Merchant.Sign)
	assert.Equal(t, "f493da2a48fb4e4db552bc492a02fca3", cfg.Invoice.OrderID)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown env", map[string]string{"ENV": "prod"}},
		{"db enabled without host", map[string]string{"DB_ENABLED": "true"}},
		{"bad base url", map[string]string{"BASE_URL": "not a url"}},
		{"bad notify channel", map[string]string{"NOTIFY_CHANNELS": "pager"}},
		{"bad retry strategy", map[string]string{"HTTP_RETRY_STRATEGY": "random"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}
