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
)

// ListQuery selects one page of the POS order list.
type ListQuery struct {
	Remark    string
	PageIndex int
	PageSize  int
}

// Orders queries POS orders.
type Orders struct {
	Deps
	userID    string
	companyID string
}

// NewOrders returns the order query wrappers. userID and companyID are
// the defaults used by Detail.
func NewOrders(deps Deps, userID, companyID string) *Orders {
	return &Orders{Deps: deps, userID: userID, companyID: companyID}
}

// List returns one page of orders.
func (o *Orders) List(ctx context.Context, q ListQuery) (map[string]any, error) {
	token, err := o.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("order list: %w", err)
	}
	if q.PageIndex < 1 {
		q.PageIndex = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	body := map[string]any{
		"tokenId":   token,
		"pageIndex": q.PageIndex,
		"pageSize":  q.PageSize,
	}
	if q.Remark != "" {
		body["orderRemark"] = q.Remark
	}
	return o.postAuthed(ctx, "订单列表", o.Endpoints.OrderList, body, token)
}

// Detail returns the detail of an internal order id. Empty userID or
// companyID fall back to the configured defaults.
func (o *Orders) Detail(ctx context.Context, orderID, userID, companyID string) (map[string]any, error) {
	token, err := o.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("order detail: %w", err)
	}
	if userID == "" {
		userID = o.userID
	}
	if companyID == "" {
		companyID = o.companyID
	}
	body := map[string]any{
		"tokenId":   token,
		"orderId":   orderID,
		"userId":    userID,
		"companyId": companyID,
	}
	return o.postAuthed(ctx, "订单详情", o.Endpoints.OrderDetail, body, token)
}
