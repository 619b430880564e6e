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

package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestPathPrefersUATVariant(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "mt_cancel_order.yaml", "a: 1")
	write(t, dir, "mt_cancel_order_uat.yaml", "a: 2")

	assert.Equal(t, filepath.Join(dir, "mt_cancel_order_uat.yaml"), NewLoader(dir, "uat").Path(CancelOrderFile))
	assert.Equal(t, filepath.Join(dir, "mt_cancel_order.yaml"), NewLoader(dir, "fat").Path(CancelOrderFile))
	// No variant on disk falls back to the base file.
	assert.Equal(t, filepath.Join(dir, "mt_refund_order.yaml"), NewLoader(dir, "uat").Path(RefundOrderFile))
}

func TestLoadAndSection(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, RetailFile, `
cashPay:
  payType: cash
  offlinePayParameter:
    guestPayment: 0
broken: 3
`)
	l := NewLoader(dir, "test")

	sec, err := l.Section(RetailFile, "cashPay")
	require.NoError(t, err)
	assert.Equal(t, "cash", sec["payType"])
	assert.IsType(t, map[string]any{}, sec["offlinePayParameter"])

	_, err = l.Section(RetailFile, "broken")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Section(RetailFile, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load("nope.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "bad.yaml", "a: [1, 2")
	_, err := NewLoader(dir, "test").Load("bad.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDeepCopyIsIndependent(t *testing.T) {
	src := map[string]any{
		"outer": map[string]any{"inner": []any{map[string]any{"id": 1}}},
	}
	cp := CopyMap(src)
	cp["outer"].(map[string]any)["inner"].([]any)[0].(map[string]any)["id"] = 2

	assert.Equal(t, 1, src["outer"].(map[string]any)["inner"].([]any)[0].(map[string]any)["id"])
	assert.Nil(t, CopyMap(nil))
}
