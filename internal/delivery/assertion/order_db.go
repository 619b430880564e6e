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

	"github.com/manyiweb/api-delivery/internal/delivery/model"
	"github.com/manyiweb/api-delivery/internal/delivery/repository"
)

// OrderCreated waits until dorder_dock has a row for dockOrderNo.
func (a *Asserter) OrderCreated(ctx context.Context, repo repository.DockOrderRepository, dockOrderNo string, opts ...CallOption) (*model.DockOrder, error) {
	c := a.dbCall(opts)
	var found *model.DockOrder

	_, err := Poll(ctx, c.timeout, c.interval, func(ctx context.Context, _ int) (bool, error) {
		row, err := repo.Find(ctx, dockOrderNo)
		if err != nil {
			return false, fmt.Errorf("query order %s: %w", dockOrderNo, err)
		}
		a.observe("db_order_created", row != nil)
		found = row
		return row != nil, nil
	})

	if errors.Is(err, ErrTimeout) {
		return nil, Failf("Order %s not created within %s", dockOrderNo, c.timeout)
	}
	if err != nil {
		return nil, err
	}
	c.recorder.Attach("order created", Render(found))
	return found, nil
}

// OrderCount waits until dorder_dock holds exactly expected rows for
// dockOrderNo.
func (a *Asserter) OrderCount(ctx context.Context, repo repository.DockOrderRepository, dockOrderNo string, expected int64, opts ...CallOption) error {
	c := a.dbCall(opts)
	var actual int64

	_, err := Poll(ctx, c.timeout, c.interval, func(ctx context.Context, _ int) (bool, error) {
		n, err := repo.Count(ctx, dockOrderNo)
		if err != nil {
			return false, fmt.Errorf("count order %s: %w", dockOrderNo, err)
		}
		actual = n
		a.observe("db_order_count", n == expected)
		return n == expected, nil
	})

	if errors.Is(err, ErrTimeout) {
		return Failf("Order %s count mismatch: expected %d, actual %d", dockOrderNo, expected, actual)
	}
	if err != nil {
		return err
	}
	c.recorder.Attach("order count validated", fmt.Sprintf("order %s count ok: %d", dockOrderNo, actual))
	return nil
}
