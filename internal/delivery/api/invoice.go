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

package api

import (
	"context"
	"fmt"

	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// Invoices drives the invoice lifecycle: apply, refresh, query and red
// punch.
type Invoices struct {
	Deps
}

// NewInvoices returns the invoice wrappers.
func NewInvoices(deps Deps) *Invoices {
	return &Invoices{Deps: deps}
}

// ApplyBody builds the batch apply body for orderIDs. The template's first
// orderAmountList entry is repeated once per order.
func (i *Invoices) ApplyBody(token string, orderIDs ...string) (map[string]any, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("apply invoice: at least one order id is required")
	}
	body, err := i.Loader.Load(fixture.InvoiceFile)
	if err != nil {
		return nil, fmt.Errorf("load invoice template: %w", err)
	}
	list, _ := body["orderAmountList"].([]any)
	if len(list) == 0 {
		return nil, fmt.Errorf("invoice template: orderAmountList must have at least one entry")
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invoice template: orderAmountList[0] must be a mapping, got %T", list[0])
	}

	amounts := make([]any, len(orderIDs))
	ids := make([]any, len(orderIDs))
	for n, id := range orderIDs {
		entry := fixture.CopyMap(first)
		entry["orderId"] = id
		amounts[n] = entry
		ids[n] = id
	}
	body["orderAmountList"] = amounts
	body["orderIds"] = ids
	body["tokenId"] = token
	return body, nil
}

// Apply requests one invoice covering orderIDs.
func (i *Invoices) Apply(ctx context.Context, orderIDs ...string) (map[string]any, error) {
	token, err := i.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply invoice: %w", err)
	}
	body, err := i.ApplyBody(token, orderIDs...)
	if err != nil {
		return nil, err
	}
	return i.postAuthed(ctx, "申请开票", i.Endpoints.InvoiceApply, body, token)
}

// Refresh asks the billing service to sync the invoice status.
func (i *Invoices) Refresh(ctx context.Context, invoiceID string) (map[string]any, error) {
	return i.simple(ctx, "刷新开票状态", i.Endpoints.InvoiceRefresh, map[string]any{"invoiceId": invoiceID})
}

// Detail returns the invoice. orderID may be empty.
func (i *Invoices) Detail(ctx context.Context, invoiceID, orderID string) (map[string]any, error) {
	body := map[string]any{"invoiceId": invoiceID}
	if orderID != "" {
		body["orderId"] = orderID
	}
	return i.simple(ctx, "查询开票状态", i.Endpoints.InvoiceDetail, body)
}

// RedPunch reverses an issued invoice.
func (i *Invoices) RedPunch(ctx context.Context, invoiceID string) (map[string]any, error) {
	return i.simple(ctx, "红冲发票", i.Endpoints.InvoiceRedPunch, map[string]any{"invoiceId": invoiceID})
}

// Status returns data.status of the invoice detail, "" when absent.
func (i *Invoices) Status(ctx context.Context, invoiceID, orderID string) (string, map[string]any, error) {
	resp, err := i.Detail(ctx, invoiceID, orderID)
	if err != nil {
		return "", nil, err
	}
	return jsontree.GetString(resp, "data", "status"), resp, nil
}

func (i *Invoices) simple(ctx context.Context, name, endpoint string, body map[string]any) (map[string]any, error) {
	token, err := i.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	body["tokenId"] = token
	return i.postAuthed(ctx, name, endpoint, body, token)
}
