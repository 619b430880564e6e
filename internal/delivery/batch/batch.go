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

// Package batch fetches many order details at once over one shared client.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/manyiweb/api-delivery/pkg/logger"
)

// DefaultLimit bounds concurrent requests when no limit is given.
const DefaultLimit = 10

// DetailFetcher fetches one order detail.
type DetailFetcher interface {
	Detail(ctx context.Context, orderID, userID, companyID string) (map[string]any, error)
}

// Result is the outcome for one id.
type Result struct {
	OrderID string
	Detail  map[string]any
	Err     error
	Elapsed time.Duration
}

// Options tune FetchDetails.
type Options struct {
	Limit     int
	UserID    string
	CompanyID string
	Logger    *zap.Logger
}

// FetchDetails fetches the detail of every id with at most opts.Limit
// requests in flight. Results are in input order. A failed fetch is
// reported in its Result and does not stop the others.
func FetchDetails(ctx context.Context, fetcher DetailFetcher, ids []string, opts Options) []Result {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	results := make([]Result, len(ids))
	lg.Info("开始并发获取订单详情", zap.Int("count", len(ids)), zap.Int("limit", limit))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			detail, err := fetcher.Detail(gctx, id, opts.UserID, opts.CompanyID)
			results[i] = Result{OrderID: id, Detail: detail, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				lg.Error("获取订单详情失败", zap.String("order_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	lg.Info("并发获取订单详情完成", zap.Int("succeeded", Succeeded(results)), zap.Int("count", len(ids)))
	return results
}

// Succeeded counts results without an error.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
