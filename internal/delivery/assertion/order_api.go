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

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// OrderReader is the part of the order query API the checks need.
type OrderReader interface {
	List(ctx context.Context, q api.ListQuery) (map[string]any, error)
	Detail(ctx context.Context, orderID, userID, companyID string) (map[string]any, error)
}

// OrderPersistedViaListDetail waits until an order whose detail carries
// expectedSourceNo shows up in the order list, and returns its internal
// id. Every candidate id is fetched at most once per call.
func (a *Asserter) OrderPersistedViaListDetail(ctx context.Context, orders OrderReader, expectedSourceNo string, opts ...CallOption) (string, error) {
	c := a.apiCall(opts)
	seen := make(map[string]struct{})
	var lastList, lastDetail map[string]any
	var matchedID, matchedKey string

	_, err := Poll(ctx, c.timeout, c.interval, func(ctx context.Context, round int) (bool, error) {
		for page := 1; page <= c.maxPages; page++ {
			list, err := orders.List(ctx, api.ListQuery{Remark: c.remark, PageIndex: page, PageSize: c.pageSize})
			if err != nil {
				return false, fmt.Errorf("order list page %d: %w", page, err)
			}
			lastList = list
			ids := jsontree.ExtractOrderIDs(list)
			a.logger.Info("Order list page scanned",
				zap.Int("round", round),
				zap.Int("page", page),
				zap.Int("candidates", len(ids)),
				zap.Int("checked", len(seen)))

			for _, id := range ids {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}

				detail, err := orders.Detail(ctx, id, c.userID, c.companyID)
				if err != nil {
					return false, fmt.Errorf("order detail %s: %w", id, err)
				}
				lastDetail = detail
				if ok, key := jsontree.MatchSourceNo(detail, expectedSourceNo); ok {
					matchedID, matchedKey = id, key
					a.observe("order_list_detail", true)
					c.recorder.Attach("期望的外卖单号", expectedSourceNo)
					c.recorder.Attach("匹配到的内部订单编号", id)
					c.recorder.Attach("匹配字段", key)
					c.recorder.Attach("订单列表响应（匹配）", Render(list))
					c.recorder.Attach("订单详情响应（匹配）", Render(detail))
					return true, nil
				}
			}
		}
		a.observe("order_list_detail", false)
		return false, nil
	})

	if errors.Is(err, ErrTimeout) {
		return "", Failf("在 %s 内未通过 list/detail 找到订单；expected_source_no=%s", c.timeout, expectedSourceNo).
			With("订单列表响应（最后一次）", lastList).
			With("订单详情响应（最后一次）", lastDetail)
	}
	if err != nil {
		return "", err
	}
	a.logger.Info("Order persisted", zap.String("source_no", expectedSourceNo), zap.String("order_id", matchedID), zap.String("key", matchedKey))
	return matchedID, nil
}

// OrderStatusViaDetail polls the order detail until its status equals
// expected and returns it.
func (a *Asserter) OrderStatusViaDetail(ctx context.Context, orders OrderReader, internalID, expected string, opts ...CallOption) (string, error) {
	c := a.apiCall(opts)
	var lastDetail map[string]any
	var lastStatus string
	var seenStatus bool

	_, err := Poll(ctx, c.timeout, c.interval, func(ctx context.Context, _ int) (bool, error) {
		detail, err := orders.Detail(ctx, internalID, c.userID, c.companyID)
		if err != nil {
			return false, fmt.Errorf("order detail %s: %w", internalID, err)
		}
		lastDetail = detail
		lastStatus, seenStatus = jsontree.ExtractOrderStatus(detail)
		a.logger.Info("订单状态轮询", zap.String("order_id", internalID), zap.String("status", lastStatus))

		done := seenStatus && lastStatus == expected
		a.observe("order_status", done)
		if done {
			c.recorder.Attach("期望订单状态", expected)
			c.recorder.Attach("实际订单状态", lastStatus)
			c.recorder.Attach("订单详情响应（状态匹配）", Render(detail))
		}
		return done, nil
	})

	if errors.Is(err, ErrTimeout) {
		current := "None"
		if seenStatus {
			current = lastStatus
		}
		return "", Failf("在 %s 内订单状态未变为 %s，当前状态=%s", c.timeout, expected, current).
			With("订单详情响应（状态校验，最后一次）", lastDetail)
	}
	if err != nil {
		return "", err
	}
	return lastStatus, nil
}
