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

package assertion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// StatusInvoiced is the detail status of an issued invoice.
const StatusInvoiced = "INVOICED"

// CheckBasic requires code "200" and success true.
func CheckBasic(resp map[string]any, name string) error {
	if resp == nil {
		return Failf("%s响应不是字典", name)
	}
	if err := CheckEnvelope(resp, name); err != nil {
		return err
	}
	if code := jsontree.Text(resp["code"]); code != "200" {
		return Failf("%s响应码异常: %s", name, code).With("响应", resp)
	}
	if ok, _ := resp["success"].(bool); !ok {
		return Failf("%s返回success异常: %v", name, resp["success"]).With("响应", resp)
	}
	return nil
}

// CheckApply validates a batch apply response for orderIDs. An empty
// invoiceID skips the invoice id comparison.
func CheckApply(resp map[string]any, invoiceID string, orderIDs ...string) error {
	if err := CheckBasic(resp, "开票接口"); err != nil {
		return err
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return Failf("开票接口data不是字典").With("响应", resp)
	}
	if got := jsontree.Text(data["invoiceId"]); invoiceID != "" && got != invoiceID {
		return Failf("开票号不一致: expected %s, actual %s", invoiceID, got).With("响应", resp)
	}

	if list, ok := data["orderIds"].([]any); ok {
		have := textSet(list)
		if missing := missingFrom(orderIDs, have); len(missing) > 0 {
			return Failf("订单号未出现在开票结果中: %v", missing).With("响应", resp)
		}
	}
	if n, ok := toInt(data["successCount"]); ok && n < 1 {
		return Failf("开票成功数量异常: %d", n).With("响应", resp)
	}
	if n, ok := toInt(data["errorCount"]); ok && n != 0 {
		return Failf("开票错误数量异常: %d", n).With("响应", resp)
	}
	return nil
}

// CheckRefresh validates a refresh response. data, when present, must be
// true.
func CheckRefresh(resp map[string]any) error {
	if err := CheckBasic(resp, "刷新开票状态接口"); err != nil {
		return err
	}
	if data, ok := resp["data"]; ok && data != nil && data != true {
		return Failf("刷新接口返回结果异常: %v", data).With("响应", resp)
	}
	return nil
}

// CheckDetail validates an invoice detail against the expected invoice,
// orders and status.
func CheckDetail(resp map[string]any, invoiceID string, orderIDs []string, expectedStatus string) error {
	if err := CheckBasic(resp, "查询开票状态接口"); err != nil {
		return err
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return Failf("开票详情data不是字典").With("响应", resp)
	}
	if got := jsontree.Text(data["invoiceId"]); got != invoiceID {
		return Failf("开票号不一致: expected %s, actual %s", invoiceID, got).With("响应", resp)
	}

	if v, ok := data["orderId"]; ok && v != nil {
		if !contains(orderIDs, jsontree.Text(v)) {
			return Failf("订单号不一致: %s", jsontree.Text(v)).With("响应", resp)
		}
	}

	if list, ok := data["joinOrderList"].([]any); ok {
		var joined []any
		for _, item := range list {
			if m, ok := item.(map[string]any); ok && m["orderId"] != nil {
				joined = append(joined, m["orderId"])
			}
		}
		if len(joined) > 0 {
			if missing := missingFrom(orderIDs, textSet(joined)); len(missing) > 0 {
				return Failf("合并订单未全部返回: %v", missing).With("响应", resp)
			}
		}
	}

	status := jsontree.Text(data["status"])
	if status != expectedStatus {
		return Failf("开票状态异常: expected %s, actual %s", expectedStatus, status).With("响应", resp)
	}
	if desc, ok := data["statusDesc"]; ok && desc != nil {
		if !strings.Contains(jsontree.Text(desc), "开票") {
			return Failf("开票状态描述异常: %s", jsontree.Text(desc)).With("响应", resp)
		}
	}

	if status == StatusInvoiced {
		number := jsontree.Text(data["invoiceNumber"])
		if number == "" {
			number = jsontree.Text(data["invoiceNo"])
		}
		if number == "" {
			return Failf("开票号码为空").With("响应", resp)
		}
		for _, key := range []string{"invoiceUrl", "ofdUrl"} {
			if v, ok := data[key]; ok && v != nil && strings.TrimSpace(jsontree.Text(v)) == "" {
				return Failf("%s 地址为空", key).With("响应", resp)
			}
		}
	}
	return nil
}

// CheckRedPunch validates a red punch response.
func CheckRedPunch(resp map[string]any) error {
	if err := CheckBasic(resp, "红冲接口"); err != nil {
		return err
	}
	data := resp["data"]
	if data == true {
		return nil
	}
	if s := strings.ToLower(jsontree.Text(data)); data != nil && (s == "true" || s == "1") {
		return nil
	}
	return Failf("红冲接口返回结果异常: %v", data).With("响应", resp)
}

// CheckLooseSuccess accepts any of the success conventions the invoice
// service has used: a success flag, a code, a status or a non-empty data
// field, checked in that order.
func CheckLooseSuccess(resp map[string]any) error {
	if v, ok := resp["success"]; ok {
		if v != true {
			return Failf("success 不为 true: %v", v).With("响应", resp)
		}
		return nil
	}
	if v, ok := resp["code"]; ok {
		if c := jsontree.Text(v); c != "0" && c != "200" {
			return Failf("响应码异常: %s", c).With("响应", resp)
		}
		return nil
	}
	if v, ok := resp["status"]; ok {
		switch jsontree.Text(v) {
		case "0", "200", "OK", "ok":
			return nil
		}
		return Failf("状态异常: %v", v).With("响应", resp)
	}
	if v, ok := resp["data"]; ok {
		if isEmpty(v) {
			return Failf("data 为空").With("响应", resp)
		}
		return nil
	}
	if len(resp) == 0 {
		return Failf("响应为空")
	}
	return nil
}

// InvoiceReader is the part of the invoice API the status poll needs.
type InvoiceReader interface {
	Detail(ctx context.Context, invoiceID, orderID string) (map[string]any, error)
}

// InvoiceStatus polls the invoice detail until data.status equals
// expected, and returns the matching detail.
func (a *Asserter) InvoiceStatus(ctx context.Context, invoices InvoiceReader, invoiceID, orderID, expected string, opts ...CallOption) (map[string]any, error) {
	c := a.apiCall(opts)
	var last map[string]any
	var status string

	_, err := Poll(ctx, c.timeout, c.interval, func(ctx context.Context, _ int) (bool, error) {
		resp, err := invoices.Detail(ctx, invoiceID, orderID)
		if err != nil {
			return false, fmt.Errorf("invoice detail %s: %w", invoiceID, err)
		}
		last = resp
		status = jsontree.GetString(resp, "data", "status")
		a.logger.Info("发票状态轮询", zap.String("invoice_id", invoiceID), zap.String("status", status))
		done := status == expected
		a.observe("invoice_status", done)
		return done, nil
	})

	if errors.Is(err, ErrTimeout) {
		return nil, Failf("在 %s 内发票 %s 状态未变为 %s，当前状态=%s", c.timeout, invoiceID, expected, status).
			With("发票详情响应（最后一次）", last)
	}
	if err != nil {
		return nil, err
	}
	c.recorder.Attach("发票详情响应（状态匹配）", Render(last))
	return last, nil
}

func toInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(jsontree.Text(v)))
	if err != nil {
		return 0, false
	}
	return n, true
}

func textSet(list []any) map[string]struct{} {
	out := make(map[string]struct{}, len(list))
	for _, v := range list {
		out[jsontree.Text(v)] = struct{}{}
	}
	return out
}

func missingFrom(want []string, have map[string]struct{}) []string {
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}
