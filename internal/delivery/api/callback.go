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
	"net/url"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
	"github.com/manyiweb/api-delivery/internal/delivery/payload"
)

// CallbackResult is the outcome of one callback post.
type CallbackResult struct {
	// OK is true for HTTP 200 with data == "OK".
	OK bool
	// Data is the data field as text, "" when the body was not JSON.
	Data string
	// Body is the decoded response, nil when it was not JSON.
	Body    map[string]any
	TraceID string
}

// Callbacks simulates the delivery platform calling the POS.
type Callbacks struct {
	Deps
	builder    *payload.Builder
	signSecret string
}

// NewCallbacks returns the callback wrappers. A non-empty signSecret
// replaces the static sign with a computed one.
func NewCallbacks(deps Deps, builder *payload.Builder, signSecret string) *Callbacks {
	return &Callbacks{Deps: deps, builder: builder, signSecret: signSecret}
}

// PushOrder posts a new order. An empty orderID generates one; passing an
// earlier id re-pushes that order.
func (c *Callbacks) PushOrder(ctx context.Context, orderID payload.OrderID) (*CallbackResult, payload.OrderID, error) {
	raw, err := c.Loader.Load(fixture.PushOrderFile)
	if err != nil {
		return nil, "", fmt.Errorf("load push template: %w", err)
	}
	form, id, err := c.builder.Push(raw, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("build push payload: %w", err)
	}
	res, err := c.post(ctx, "Push order", c.Endpoints.PushCallback, form, id)
	return res, id, err
}

// CancelOrder posts a cancel for orderID.
func (c *Callbacks) CancelOrder(ctx context.Context, orderID payload.OrderID) (*CallbackResult, error) {
	raw, err := c.Loader.Load(fixture.CancelOrderFile)
	if err != nil {
		return nil, fmt.Errorf("load cancel template: %w", err)
	}
	form, err := c.builder.Cancel(raw, orderID)
	if err != nil {
		return nil, fmt.Errorf("build cancel payload: %w", err)
	}
	return c.post(ctx, "Cancel order", c.Endpoints.CancelCallback, form, orderID)
}

// RefundOrder posts a full refund for orderID.
func (c *Callbacks) RefundOrder(ctx context.Context, orderID payload.OrderID) (*CallbackResult, error) {
	raw, err := c.Loader.Load(fixture.RefundOrderFile)
	if err != nil {
		return nil, fmt.Errorf("load refund template: %w", err)
	}
	form, err := c.builder.Refund(raw, orderID)
	if err != nil {
		return nil, fmt.Errorf("build refund payload: %w", err)
	}
	return c.post(ctx, "Refund order", c.Endpoints.RefundCallback, form, orderID)
}

// PartialRefund posts an empty body. The platform payload for partial
// refunds has no template yet.
func (c *Callbacks) PartialRefund(ctx context.Context) error {
	c.logger().Warn("Partial refund is not implemented, posting an empty body")
	_, err := c.Client.PostJSON(ctx, c.Endpoints.PartialRefundCallback, map[string]any{})
	if err != nil {
		return fmt.Errorf("partial refund: %w", err)
	}
	return nil
}

func (c *Callbacks) post(ctx context.Context, name, endpoint string, form url.Values, orderID payload.OrderID) (*CallbackResult, error) {
	if c.signSecret != "" {
		payload.ApplySign(c.Client.URL(endpoint), form, c.signSecret)
	}
	c.logger().Info(name+" request", zap.String("order_id", orderID.String()), zap.String("endpoint", endpoint))

	resp, err := c.Client.PostForm(ctx, endpoint, form)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, orderID, err)
	}
	ok, body := c.Client.HandleResponse(resp, orderID.String())
	res := &CallbackResult{OK: ok, Body: body, TraceID: resp.TraceID}
	if body != nil {
		res.Data = jsontree.Text(body["data"])
	}
	return res, nil
}
