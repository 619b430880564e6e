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

package payload

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000123456)

func pushTemplate() map[string]any {
	return map[string]any{
		"reconciliation_extras": map[string]any{"chargeMode": 2, "note": "满减"},
		"poi_receive_detail":    map[string]any{"wmPoiReceiveCent": 1800},
		"order_core_params":     map[string]any{"status": 2, "caution": "少放辣 <微辣>"},
		"detail_list":           []any{map[string]any{"app_food_code": "A1", "quantity": 1}},
		"extras_list":           []any{map[string]any{"reduce_fee": 5}},
	}
}

func newTestBuilder() *Builder {
	return NewBuilder(Merchant{DeveloperID: "106825", EPoiID: "shop-1", Sign: "s"}, WithClock(func() time.Time { return fixedNow }))
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestGenerateOrderID(t *testing.T) {
	assert.Equal(t, OrderID("5301890196000123456"), GenerateOrderID(1700000123456))
	assert.Equal(t, OrderID("5301890196123"), GenerateOrderID(123))
}

func TestPushBuildsNestedJSON(t *testing.T) {
	tmpl := pushTemplate()
	form, id, err := newTestBuilder().Push(tmpl, "")
	require.NoError(t, err)

	assert.Equal(t, OrderID("5301890196000123456"), id)
	assert.Equal(t, "106825", form.Get("developerId"))
	assert.Equal(t, "shop-1", form.Get("ePoiId"))
	assert.Equal(t, "s", form.Get("sign"))

	raw := form.Get("order")
	assert.NotContains(t, raw, " :")
	assert.Contains(t, raw, "少放辣 <微辣>")

	order := decode(t, raw)
	assert.Equal(t, json.Number("1700000123456"), order["ctime"])
	assert.Equal(t, json.Number("1700000123456"), order["utime"])
	assert.Equal(t, json.Number("5301890196000123456"), order["orderId"])
	assert.Equal(t, json.Number("5301890196000123456"), order["orderIdView"])
	assert.Equal(t, `[{"app_food_code":"A1","quantity":1}]`, order["detail"])
	assert.Equal(t, `[{"reduce_fee":5}]`, order["extras"])

	poi := decode(t, order["poiReceiveDetail"].(string))
	assert.Equal(t, json.Number("1800"), poi["wmPoiReceiveCent"])
	assert.Equal(t, `{"chargeMode":2,"note":"满减"}`, poi["reconciliationExtras"])

	// The template itself is untouched.
	assert.Equal(t, pushTemplate(), tmpl)
}

func TestPushReusesGivenOrderID(t *testing.T) {
	form, id, err := newTestBuilder().Push(pushTemplate(), "5301890196999999999")
	require.NoError(t, err)
	assert.Equal(t, OrderID("5301890196999999999"), id)
	assert.Equal(t, json.Number("5301890196999999999"), decode(t, form.Get("order"))["orderId"])
}

func TestPushValidation(t *testing.T) {
	b := newTestBuilder()

	_, _, err := b.Push(nil, "")
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	tmpl := pushTemplate()
	delete(tmpl, "detail_list")
	delete(tmpl, "extras_list")
	_, _, err = b.Push(tmpl, "")
	require.ErrorIs(t, err, ErrMissingKeys)
	assert.EqualError(t, err, "Missing required keys: detail_list, extras_list")

	tmpl = pushTemplate()
	tmpl["order_core_params"] = "flat"
	_, _, err = b.Push(tmpl, "")
	assert.Error(t, err)

	_, _, err = b.Push(pushTemplate(), "12ab")
	assert.ErrorIs(t, err, ErrInvalidOrderID)
}

func TestCancelAndRefund(t *testing.T) {
	b := newTestBuilder()

	form, err := b.Cancel(map[string]any{"orderCancel_list": map[string]any{"reasonCode": 1001, "reason": "顾客取消"}}, "9999999999999999999")
	require.NoError(t, err)
	cancel := decode(t, form.Get("orderCancel"))
	assert.Equal(t, json.Number("9999999999999999999"), cancel["orderId"])
	assert.Equal(t, "顾客取消", cancel["reason"])
	assert.Equal(t, "106825", form.Get("developerId"))

	form, err = b.Refund(map[string]any{"orderRefund_list": map[string]any{"notifyType": "apply"}}, "5301890196000123456")
	require.NoError(t, err)
	refund := decode(t, form.Get("orderRefund"))
	assert.Equal(t, json.Number("5301890196000123456"), refund["orderId"])
	assert.Equal(t, "apply", refund["notifyType"])

	_, err = b.Cancel(map[string]any{"other": 1}, "1")
	assert.EqualError(t, err, "Missing required keys: orderCancel_list")

	_, err = b.Refund(map[string]any{}, "1")
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestCompact(t *testing.T) {
	s, err := Compact(map[string]any{"a": "x&y", "b": []any{1, "中文"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x&y","b":[1,"中文"]}`, s)

	_, err = Compact(map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestCompactSortsKeys(t *testing.T) {
	s, err := Compact(map[string]any{
		"order_core_params": map[string]any{"status": 2, "orderId": "1"},
		"detail_list":       []any{map[string]any{"quantity": 1, "app_food_code": "f1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"detail_list":[{"app_food_code":"f1","quantity":1}],"order_core_params":{"orderId":"1","status":2}}`, s)
}

func TestSign(t *testing.T) {
	form := url.Values{}
	form.Set("ePoiId", "shop-1")
	form.Set("developerId", "106825")
	form.Set("sign", "ignored")

	// sha1("http://h/cb?developerId=106825&ePoiId=shop-1secret")
	got := Sign("http://h/cb", form, "secret")
	assert.Len(t, got, 40)
	assert.Equal(t, got, Sign("http://h/cb", url.Values{"developerId": {"106825"}, "ePoiId": {"shop-1"}}, "secret"))
	assert.NotEqual(t, got, Sign("http://h/cb", form, "other"))

	ApplySign("http://h/cb", form, "secret")
	assert.Equal(t, got, form.Get("sign"))
}
