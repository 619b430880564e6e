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

package scenario

import (
	"context"
	"sync"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// SuiteInvoice covers the invoice lifecycle.
const SuiteInvoice = "invoice"

// invoicing is the invoice applied once and shared by the lifecycle
// scenarios of a suite.
type invoicing struct {
	once      sync.Once
	orderID   string
	invoiceID string
	applyResp map[string]any
	err       error
}

// InvoiceSuite returns the invoice scenarios. The lifecycle scenarios share
// one apply, so they must run in the returned order.
func InvoiceSuite() []Scenario {
	inv := &invoicing{}
	return []Scenario{
		{Name: "invoice_apply", Suite: SuiteInvoice, Title: "申请开票应返回成功响应", Markers: []string{MarkerCritical}, Run: inv.apply},
		{Name: "invoice_refresh", Suite: SuiteInvoice, Title: "刷新发票状态应返回成功响应", Markers: []string{MarkerNormal}, Run: inv.refresh},
		{Name: "invoice_query", Suite: SuiteInvoice, Title: "查询发票状态为已开票", Markers: []string{MarkerNormal}, Run: inv.query},
		{Name: "invoice_red_punch", Suite: SuiteInvoice, Title: "申请开票后红冲开票", Markers: []string{MarkerNormal}, Run: inv.redPunch},
		{Name: "invoice_merged", Suite: SuiteInvoice, Title: "合并开票", Markers: []string{MarkerNormal}, Run: mergedInvoice},
	}
}

// resolveOrder picks the order to invoice: the configured id, the first
// order listed under the configured remark, or a fresh cash order.
func resolveOrder(ctx context.Context, t *T) (string, error) {
	env := t.Env()
	if id := env.Config.Invoice.OrderID; id != "" {
		return id, nil
	}
	if remark := env.Config.Invoice.OrderRemark; remark != "" {
		list, err := env.Orders.List(ctx, api.ListQuery{Remark: remark, PageIndex: 1, PageSize: 20})
		if err == nil {
			if id, ok := jsontree.FirstOrderID(list); ok {
				return id, nil
			}
		}
		t.Logf("按备注未找到订单: %s", remark)
	}
	var id string
	err := t.Step("创建开票订单", func() error {
		var err error
		id, err = env.Retail.CreateCashOrder(ctx)
		return err
	})
	return id, err
}

func (inv *invoicing) ensure(ctx context.Context, t *T) error {
	inv.once.Do(func() {
		orderID, err := resolveOrder(ctx, t)
		if err != nil {
			inv.err = t.Skipf("未找到订单号，请设置 INVOICE_ORDER_ID 后再运行发票用例: %v", err)
			return
		}
		if orderID == "" {
			inv.err = t.Skipf("未找到订单号，请设置 INVOICE_ORDER_ID 后再运行发票用例")
			return
		}
		inv.orderID = orderID

		inv.err = t.Step("申请开票", func() error {
			resp, err := t.Env().Invoices.Apply(ctx, orderID)
			if err != nil {
				return err
			}
			inv.applyResp = resp
			t.Attach("申请开票响应", assertion.Render(resp))
			return assertion.CheckLooseSuccess(resp)
		})
		if inv.err != nil {
			return
		}
		id, ok := jsontree.ExtractInvoiceID(inv.applyResp)
		if !ok {
			inv.err = t.Skipf("申请开票未返回发票ID")
			return
		}
		inv.invoiceID = id
	})
	return inv.err
}

func (inv *invoicing) apply(ctx context.Context, t *T) error {
	if err := inv.ensure(ctx, t); err != nil {
		return err
	}
	return t.Step("校验开票结果", func() error {
		if err := assertion.CheckLooseSuccess(inv.applyResp); err != nil {
			return err
		}
		return checkApplyShape(inv.applyResp, inv.orderID)
	})
}

func (inv *invoicing) refresh(ctx context.Context, t *T) error {
	if err := inv.ensure(ctx, t); err != nil {
		return err
	}
	return t.Step("刷新发票状态", func() error {
		resp, err := t.Env().Invoices.Refresh(ctx, inv.invoiceID)
		if err != nil {
			return err
		}
		t.Attach("刷新发票响应", assertion.Render(resp))
		if err := assertion.CheckLooseSuccess(resp); err != nil {
			return err
		}
		return assertion.CheckRefresh(resp)
	})
}

func (inv *invoicing) waitInvoiced(ctx context.Context, t *T) error {
	env := t.Env()
	expected := env.Config.Invoice.ExpectedStatus
	if expected == "" {
		expected = assertion.StatusInvoiced
	}
	return t.Step("查询发票状态", func() error {
		detail, err := env.Asserter.InvoiceStatus(ctx, env.Invoices, inv.invoiceID, inv.orderID, expected, assertion.WithRecorder(t))
		if err != nil {
			return err
		}
		return assertion.CheckDetail(detail, inv.invoiceID, []string{inv.orderID}, expected)
	})
}

func (inv *invoicing) query(ctx context.Context, t *T) error {
	if err := inv.ensure(ctx, t); err != nil {
		return err
	}
	return inv.waitInvoiced(ctx, t)
}

func (inv *invoicing) redPunch(ctx context.Context, t *T) error {
	if err := inv.ensure(ctx, t); err != nil {
		return err
	}
	if err := inv.waitInvoiced(ctx, t); err != nil {
		return err
	}
	return t.Step("红冲发票", func() error {
		resp, err := t.Env().Invoices.RedPunch(ctx, inv.invoiceID)
		if err != nil {
			return err
		}
		t.Attach("红冲响应", assertion.Render(resp))
		return assertion.CheckRedPunch(resp)
	})
}

func mergedInvoice(ctx context.Context, t *T) error {
	env := t.Env()
	orderIDs := make([]string, 0, 2)
	for len(orderIDs) < 2 {
		var id string
		if err := t.Step("创建开票订单", func() error {
			var err error
			id, err = env.Retail.CreateCashOrder(ctx)
			return err
		}); err != nil {
			return t.Skipf("无法创建合并开票订单: %v", err)
		}
		orderIDs = append(orderIDs, id)
	}

	var resp map[string]any
	if err := t.Step("合并申请开票", func() error {
		var err error
		resp, err = env.Invoices.Apply(ctx, orderIDs...)
		if err != nil {
			return err
		}
		t.Attach("合并开票响应", assertion.Render(resp))
		return assertion.CheckLooseSuccess(resp)
	}); err != nil {
		return err
	}
	if _, ok := jsontree.ExtractInvoiceID(resp); !ok {
		return assertion.Failf("合并开票未返回发票ID").With("响应", resp)
	}
	return t.Step("校验合并开票结果", func() error {
		return checkApplyShape(resp, orderIDs...)
	})
}

// checkApplyShape runs the apply result checks when data is an object.
// The invoice id is compared with data.invoiceId only: a bare string data
// or an id under another key carries nothing else to check.
func checkApplyShape(resp map[string]any, orderIDs ...string) error {
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return nil
	}
	return assertion.CheckApply(resp, jsontree.Text(data["invoiceId"]), orderIDs...)
}

// All returns every scenario of every suite.
func All() []Scenario {
	var out []Scenario
	out = append(out, MTSuite()...)
	out = append(out, PaySuite()...)
	out = append(out, InvoiceSuite()...)
	return out
}
