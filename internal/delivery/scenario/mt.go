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
	"fmt"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
	"github.com/manyiweb/api-delivery/internal/delivery/batch"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
	"github.com/manyiweb/api-delivery/internal/delivery/payload"
)

// SuiteMT covers the delivery platform order callbacks.
const SuiteMT = "mt"

// invalidOrderID is larger than any id the platform issues.
const invalidOrderID payload.OrderID = "9999999999999999999"

// batchOrders is how many orders the batch lookup pushes.
const batchOrders = 3

// MTSuite returns the order callback scenarios.
func MTSuite() []Scenario {
	return []Scenario{
		{Name: "mt_push_order", Suite: SuiteMT, Title: "推单回调后订单落库", Markers: []string{MarkerSmoke, MarkerCritical}, Run: pushOrder},
		{Name: "mt_cancel_order", Suite: SuiteMT, Title: "取消回调后订单取消", Markers: []string{MarkerCritical}, Run: cancelOrder},
		{Name: "mt_full_refund", Suite: SuiteMT, Title: "整单退款回调成功", Markers: []string{MarkerCritical}, Run: fullRefund},
		{Name: "mt_repeat_push_order", Suite: SuiteMT, Title: "重复推单保持幂等", Markers: []string{MarkerNormal}, Run: repeatPush},
		{Name: "mt_cancel_invalid_order", Suite: SuiteMT, Title: "取消不存在的订单", Markers: []string{MarkerBlocker}, Run: cancelInvalid},
		{Name: "mt_cancel_duplicate", Suite: SuiteMT, Title: "同一订单取消两次", Markers: []string{MarkerCritical}, Run: cancelDuplicate},
		{Name: "mt_refund_duplicate", Suite: SuiteMT, Title: "同一订单退款两次", Markers: []string{MarkerCritical}, Run: refundDuplicate},
		{Name: "mt_refund_cancelled", Suite: SuiteMT, Title: "已取消订单再退款", Markers: []string{MarkerBlocker}, ExpectFailure: true, Run: refundCancelled},
		{Name: "mt_batch_detail", Suite: SuiteMT, Title: "并发查询推送订单详情", Markers: []string{MarkerNormal}, Run: batchDetail},
	}
}

// push sends a push callback and requires data == "OK". It registers the
// DB cleanup of the new order.
func push(ctx context.Context, t *T, orderID payload.OrderID) (payload.OrderID, error) {
	var id payload.OrderID
	err := t.Step("发送推单回调", func() error {
		res, got, err := t.Env().Callbacks.PushOrder(ctx, orderID)
		if err != nil {
			return err
		}
		id = got
		t.Attach("推单响应", res.Data)
		if !res.OK {
			return assertion.Failf("推单失败: %s", res.Data).With("响应", res.Body)
		}
		return nil
	})
	if err != nil {
		return id, err
	}
	if orderID == "" {
		cleanupOrder(t, id)
	}
	return id, nil
}

func cleanupOrder(t *T, id payload.OrderID) {
	repo := t.Env().Repo
	if repo == nil {
		return
	}
	t.Cleanup(func(ctx context.Context) error {
		return repo.Cleanup(ctx, id.String())
	})
}

// persisted waits for the pushed order. With DB checks it polls the dock
// table and returns ""; otherwise it scans the order list and returns the
// internal order id.
func persisted(ctx context.Context, t *T, id payload.OrderID) (string, error) {
	env := t.Env()
	var internalID string
	err := t.Step("校验订单落库", func() error {
		if env.DBChecks() {
			_, err := env.Asserter.OrderCreated(ctx, env.Repo, id.String(), assertion.WithRecorder(t))
			return err
		}
		var err error
		internalID, err = env.Asserter.OrderPersistedViaListDetail(ctx, env.Orders, id.String(), assertion.WithRecorder(t))
		return err
	})
	return internalID, err
}

func cancel(ctx context.Context, t *T, id payload.OrderID, requireOK bool) (string, error) {
	var data string
	err := t.Step("发送取消回调", func() error {
		res, err := t.Env().Callbacks.CancelOrder(ctx, id)
		if err != nil {
			return err
		}
		data = res.Data
		t.Attach("取消响应", res.Data)
		if requireOK && !res.OK {
			return assertion.Failf("取消订单失败: %s", res.Data).With("响应", res.Body)
		}
		return nil
	})
	return data, err
}

func refund(ctx context.Context, t *T, id payload.OrderID, requireOK bool) (string, error) {
	var data string
	err := t.Step("发送整单退款回调", func() error {
		res, err := t.Env().Callbacks.RefundOrder(ctx, id)
		if err != nil {
			return err
		}
		data = res.Data
		t.Attach("退款响应", res.Data)
		if requireOK && !res.OK {
			return assertion.Failf("整单退款失败: %s", res.Data).With("响应", res.Body)
		}
		return nil
	})
	return data, err
}

// replied requires res to be a JSON body carrying a data field. The value
// itself is not judged.
func replied(res *api.CallbackResult, name string) error {
	if _, ok := res.Body["data"]; !ok {
		return assertion.Failf("%s响应缺少data字段", name).With("响应", res.Body)
	}
	return nil
}

func pushOrder(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	_, err = persisted(ctx, t, id)
	return err
}

func cancelOrder(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	internalID, err := persisted(ctx, t, id)
	if err != nil {
		return err
	}
	if _, err := cancel(ctx, t, id, true); err != nil {
		return err
	}

	expected := t.Env().Config.Expect.CancelledStatus
	if expected == "" || internalID == "" {
		return nil
	}
	return t.Step("校验订单状态", func() error {
		_, err := t.Env().Asserter.OrderStatusViaDetail(ctx, t.Env().Orders, internalID, expected, assertion.WithRecorder(t))
		return err
	})
}

func fullRefund(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	if _, err := persisted(ctx, t, id); err != nil {
		return err
	}
	_, err = refund(ctx, t, id, true)
	return err
}

func repeatPush(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	if _, err := persisted(ctx, t, id); err != nil {
		return err
	}

	again, err := push(ctx, t, id)
	if err != nil {
		return err
	}
	if again != id {
		return assertion.Failf("订单号不一致: %s vs %s", again, id)
	}

	env := t.Env()
	if !env.DBChecks() {
		t.Logf("数据库校验未开启，跳过订单数量校验")
		return nil
	}
	return t.Step("校验订单数量", func() error {
		return env.Asserter.OrderCount(ctx, env.Repo, id.String(), 1, assertion.WithRecorder(t))
	})
}

func cancelInvalid(ctx context.Context, t *T) error {
	return t.Step("发送无效订单取消回调", func() error {
		res, err := t.Env().Callbacks.CancelOrder(ctx, invalidOrderID)
		if err != nil {
			return err
		}
		t.Attach("无效订单取消响应", res.Data)
		return replied(res, "无效订单取消")
	})
}

func cancelDuplicate(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	if _, err := cancel(ctx, t, id, true); err != nil {
		return err
	}
	return t.Step("重复取消", func() error {
		res, err := t.Env().Callbacks.CancelOrder(ctx, id)
		if err != nil {
			return err
		}
		t.Attach("重复取消响应", res.Data)
		return replied(res, "重复取消")
	})
}

func refundDuplicate(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	if _, err := refund(ctx, t, id, true); err != nil {
		return err
	}
	return t.Step("重复退款", func() error {
		res, err := t.Env().Callbacks.RefundOrder(ctx, id)
		if err != nil {
			return err
		}
		t.Attach("重复退款响应", res.Data)
		return replied(res, "重复退款")
	})
}

func refundCancelled(ctx context.Context, t *T) error {
	id, err := push(ctx, t, "")
	if err != nil {
		return err
	}
	if _, err := cancel(ctx, t, id, true); err != nil {
		return err
	}
	data, err := refund(ctx, t, id, false)
	if err != nil {
		return err
	}
	if data != "ERROR" {
		return assertion.Failf("已取消订单退款应返回 ERROR，实际: %s", data)
	}
	return nil
}

func batchDetail(ctx context.Context, t *T) error {
	env := t.Env()
	ids := make([]string, 0, batchOrders)
	pushed := make([]payload.OrderID, 0, batchOrders)
	for i := 0; i < batchOrders; i++ {
		id, err := push(ctx, t, "")
		if err != nil {
			return err
		}
		var internalID string
		err = t.Step("查询内部订单号", func() error {
			var err error
			internalID, err = env.Asserter.OrderPersistedViaListDetail(ctx, env.Orders, id.String(), assertion.WithRecorder(t))
			return err
		})
		if err != nil {
			return err
		}
		pushed = append(pushed, id)
		ids = append(ids, internalID)
	}

	return t.Step("并发获取订单详情", func() error {
		results := batch.FetchDetails(ctx, env.Orders, ids, batch.Options{
			Limit:  env.Config.Poll.MaxConcurrency,
			Logger: t.Logger(),
		})
		for i, r := range results {
			if r.Err != nil {
				return fmt.Errorf("order %s: %w", r.OrderID, r.Err)
			}
			if ok, _ := jsontree.MatchSourceNo(r.Detail, pushed[i].String()); !ok {
				return assertion.Failf("订单详情与推单不匹配: %s", pushed[i]).With("订单详情", r.Detail)
			}
		}
		t.Logf("批量获取订单详情成功: %d", len(results))
		return nil
	})
}
