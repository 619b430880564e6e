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

package run

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/scenario"
)

const retailTemplate = `
addShoppingCartItem: {items: [{specId: a, quantity: 1}]}
addServiceGuide: {staffId: g1}
getSystemPayType: {code: ""}
addOrder: {remark: auto}
cashPay:
  payAmount: 0
  offlinePayParameter: {guestPayment: 0}
`

func fakePOS(t *testing.T, cashPay string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch {
		case strings.HasSuffix(r.URL.Path, "/custompay/systemPayType"):
			_, _ = io.WriteString(w, `{"code":"200","data":{"itemsAmountActuallyPaid":12.5}}`)
		case strings.HasSuffix(r.URL.Path, "/sales/order/add"):
			_, _ = io.WriteString(w, `{"code":"200","data":{"orderId":"o-1"}}`)
		case strings.HasSuffix(r.URL.Path, "/pay/CashPay"):
			_, _ = io.WriteString(w, cashPay)
		default:
			_, _ = io.WriteString(w, `{"code":"200","success":true}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) (configDir, reportDir, resultsDir string) {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, fixture.RetailFile), []byte(retailTemplate), 0o644))

	reportDir = filepath.Join(root, "reports")
	resultsDir = filepath.Join(root, "results")
	cfg := fmt.Sprintf(`
base_url: %s
data_dir: %s
auth:
  token: tok-1
http:
  retry_times: 1
  retry_interval: 0
log:
  dir: ""
report:
  dir: %s
  results_dir: %s
`, baseURL, data, reportDir, resultsDir)
	require.NoError(t, os.WriteFile(filepath.Join(root, "delivery.yaml"), []byte(cfg), 0o644))
	return root, reportDir, resultsDir
}

func TestRunWritesArtifacts(t *testing.T) {
	t.Setenv("ENV", "")
	color.NoColor = true
	srv := fakePOS(t, `{"code":"200"}`)
	dir, reportDir, resultsDir := writeConfig(t, srv.URL)

	var out bytes.Buffer
	err := Run(context.Background(), dir, scenario.Filter{Names: []string{"pay_cash"}}, nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "pay/pay_cash")
	assert.Contains(t, out.String(), "passed 1")

	results, err := filepath.Glob(filepath.Join(resultsDir, "results-*.json"))
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.FileExists(t, filepath.Join(resultsDir, "environment.properties"))

	prom, err := os.ReadFile(filepath.Join(reportDir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "api_delivery_scenario_results_total")
}

func TestRunReportsFailures(t *testing.T) {
	t.Setenv("ENV", "")
	color.NoColor = true
	srv := fakePOS(t, `{"code":"500","msg":"支付失败"}`)
	dir, _, _ := writeConfig(t, srv.URL)

	var out bytes.Buffer
	err := Run(context.Background(), dir, scenario.Filter{Names: []string{"pay_cash"}}, nil, &out)
	assert.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, out.String(), "failed 1")
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("ENV", "prod")
	err := Run(context.Background(), t.TempDir(), scenario.Filter{}, nil, io.Discard)
	assert.Error(t, err)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRunCmd()
	for _, name := range []string{"config-dir", "suite", "scenario", "marker", "notify"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, ".", cmd.Flags().Lookup("config-dir").DefValue)
}
