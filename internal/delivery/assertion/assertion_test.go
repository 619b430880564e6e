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
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/model"
)

type recorder struct {
	mu    sync.Mutex
	items map[string]string
}

func (r *recorder) Attach(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = map[string]string{}
	}
	r.items[name] = value
}

func fastAsserter() *Asserter {
	return New(Defaults{
		APITimeout:  200 * time.Millisecond,
		APIInterval: 5 * time.Millisecond,
		DBTimeout:   200 * time.Millisecond,
		DBInterval:  5 * time.Millisecond,
	}, WithLogger(zap.NewNop()))
}

func obj(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(stringsReader(s))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestPoll(t *testing.T) {
	t.Run("done_on_third_round", func(t *testing.T) {
		rounds, err := Poll(context.Background(), time.Second, time.Millisecond, func(_ context.Context, round int) (bool, error) {
			return round == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, rounds)
	})

	t.Run("error_aborts", func(t *testing.T) {
		boom := errors.New("boom")
		rounds, err := Poll(context.Background(), time.Second, time.Millisecond, func(context.Context, int) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, rounds)
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := Poll(context.Background(), 20*time.Millisecond, 5*time.Millisecond, func(context.Context, int) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("zero_timeout_never_checks", func(t *testing.T) {
		rounds, err := Poll(context.Background(), 0, time.Millisecond, func(context.Context, int) (bool, error) {
			return true, nil
		})
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Zero(t, rounds)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := Poll(ctx, time.Second, time.Hour, func(context.Context, int) (bool, error) {
			cancel()
			return false, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type fakeOrders struct {
	mu          sync.Mutex
	lists       func(page int, round int) map[string]any
	details     map[string]map[string]any
	detailCalls map[string]int
	listCalls   int
	pages       int
}

func (f *fakeOrders) List(_ context.Context, q api.ListQuery) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	round := (f.listCalls-1)/f.pages + 1
	return f.lists(q.PageIndex, round), nil
}

func (f *fakeOrders) Detail(_ context.Context, id, _, _ string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailCalls == nil {
		f.detailCalls = map[string]int{}
	}
	f.detailCalls[id]++
	return f.details[id], nil
}

func TestOrderPersistedViaListDetail(t *testing.T) {
	const hexA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const hexB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	orders := &fakeOrders{
		pages: 3,
		lists: func(page, round int) map[string]any {
			if page == 1 && round >= 2 {
				return map[string]any{"data": []any{
					map[string]any{"orderId": hexA},
					map[string]any{"orderId": hexB},
				}}
			}
			if page == 1 {
				return map[string]any{"data": []any{map[string]any{"orderId": hexA}}}
			}
			return map[string]any{"data": []any{}}
		},
		details: map[string]map[string]any{
			hexA: {"data": map[string]any{"orderIdView": "1111"}},
			hexB: {"data": map[string]any{"dockOrderNo": json.Number("5301890196000000001")}},
		},
	}

	rec := &recorder{}
	id, err := fastAsserter().OrderPersistedViaListDetail(context.Background(), orders, "5301890196000000001", WithRecorder(rec))
	require.NoError(t, err)
	assert.Equal(t, hexB, id)
	assert.Equal(t, 1, orders.detailCalls[hexA], "candidate ids are fetched once across rounds")
	assert.Equal(t, "dockOrderNo", rec.items["匹配字段"])
}

func TestOrderPersistedViaListDetailTimeout(t *testing.T) {
	orders := &fakeOrders{
		pages:   1,
		lists:   func(int, int) map[string]any { return map[string]any{"data": []any{map[string]any{"orderId": "x1"}}} },
		details: map[string]map[string]any{"x1": {"data": map[string]any{"sourceNo": "other"}}},
	}
	_, err := fastAsserter().OrderPersistedViaListDetail(context.Background(), orders, "5301890196000000001",
		WithPages(1, 20), WithTimeout(30*time.Millisecond))
	require.ErrorIs(t, err, ErrAssertion)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Contains(t, f.Message, "expected_source_no=5301890196000000001")
	require.Len(t, f.Evidence, 2)
	assert.Equal(t, "订单列表响应（最后一次）", f.Evidence[0].Name)
}

func TestOrderStatusViaDetail(t *testing.T) {
	calls := 0
	orders := &scriptedDetail{fn: func() map[string]any {
		calls++
		if calls < 3 {
			return map[string]any{"data": map[string]any{"orderStatus": json.Number("2")}}
		}
		return map[string]any{"data": map[string]any{"orderStatus": json.Number("8")}}
	}}
	status, err := fastAsserter().OrderStatusViaDetail(context.Background(), orders, "id", "8")
	require.NoError(t, err)
	assert.Equal(t, "8", status)
	assert.Equal(t, 3, calls)

	_, err = fastAsserter().OrderStatusViaDetail(context.Background(), orders, "id", "9", WithTimeout(20*time.Millisecond))
	require.ErrorIs(t, err, ErrAssertion)
	assert.Contains(t, err.Error(), "当前状态=8")
}

type scriptedDetail struct {
	fn func() map[string]any
}

func (s *scriptedDetail) List(context.Context, api.ListQuery) (map[string]any, error) {
	return nil, nil
}

func (s *scriptedDetail) Detail(context.Context, string, string, string) (map[string]any, error) {
	return s.fn(), nil
}

type fakeRepo struct {
	findAfter int
	calls     int
	count     int64
	err       error
}

func (f *fakeRepo) Find(context.Context, string) (*model.DockOrder, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= f.findAfter {
		return &model.DockOrder{DockOrderNo: "no-1"}, nil
	}
	return nil, nil
}

func (f *fakeRepo) Count(context.Context, string) (int64, error) { return f.count, f.err }

func (f *fakeRepo) Detail(context.Context, string) (*model.DockOrder, error) { return nil, nil }

func (f *fakeRepo) Cleanup(context.Context, string) error { return nil }

func (f *fakeRepo) CleanupByPrefix(context.Context, string) (int64, error) { return 0, nil }

func TestOrderCreated(t *testing.T) {
	a := fastAsserter()

	row, err := a.OrderCreated(context.Background(), &fakeRepo{findAfter: 2}, "no-1")
	require.NoError(t, err)
	assert.Equal(t, "no-1", row.DockOrderNo)

	_, err = a.OrderCreated(context.Background(), &fakeRepo{findAfter: 1 << 30}, "no-1", WithTimeout(15*time.Millisecond))
	assert.ErrorIs(t, err, ErrAssertion)

	dbErr := errors.New("gone")
	_, err = a.OrderCreated(context.Background(), &fakeRepo{err: dbErr}, "no-1")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrAssertion)
}

func TestOrderCount(t *testing.T) {
	a := fastAsserter()
	require.NoError(t, a.OrderCount(context.Background(), &fakeRepo{count: 1}, "no-1", 1))

	err := a.OrderCount(context.Background(), &fakeRepo{count: 2}, "no-1", 1, WithTimeout(15*time.Millisecond))
	require.ErrorIs(t, err, ErrAssertion)
	assert.Contains(t, err.Error(), "expected 1, actual 2")
}
