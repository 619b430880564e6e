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

package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryIfFn reports whether an error is retryable.
type RetryIfFn func(error) bool

// OnRetryFn is invoked before each retry with the retry number and planned delay.
type OnRetryFn func(retry int, err error, delay time.Duration)

// OnGiveUpFn is invoked when the operation fails for the last time.
type OnGiveUpFn func(err error, attempts int)

// Retrier runs operations under a Policy.
type Retrier struct {
	policy   Policy
	backoff  *Backoff
	retryIf  RetryIfFn
	onRetry  OnRetryFn
	onGiveUp OnGiveUpFn
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithRetryIf overrides the retryable error decision function.
func WithRetryIf(fn RetryIfFn) Option {
	return func(r *Retrier) { r.retryIf = fn }
}

// WithOnRetry sets the retry callback.
func WithOnRetry(fn OnRetryFn) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// WithOnGiveUp sets the give-up callback.
func WithOnGiveUp(fn OnGiveUpFn) Option {
	return func(r *Retrier) { r.onGiveUp = fn }
}

// NewRetrier validates p and returns a Retrier.
func NewRetrier(p Policy, opts ...Option) (*Retrier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := &Retrier{
		policy:  p,
		backoff: NewBackoff(p),
		retryIf: IsRetryable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the policy the retrier was built with.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// IsRetryable is the default decision: everything except context
// cancellation and deadline errors. Callers whose operations carry their
// own timeouts, such as http.Client.Timeout, should also accept those via
// WithRetryIf; Retry stops on its own once the caller's ctx is done.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs op until it succeeds, fails with a non-retryable error or the
// attempts are used up.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Retry is the result-returning form of Retrier.Do.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		// 调用方上下文已结束时不再重试，与错误类型无关。
		if cerr := ctx.Err(); cerr != nil {
			if r.onGiveUp != nil {
				r.onGiveUp(err, attempt)
			}
			if !errors.Is(err, cerr) {
				err = fmt.Errorf("%w: %w", cerr, err)
			}
			return zero, err
		}

		if attempt >= r.policy.Attempts || r.policy.Strategy == StrategyNone || !r.retryIf(err) {
			if r.onGiveUp != nil {
				r.onGiveUp(err, attempt)
			}
			return zero, err
		}

		delay := r.backoff.Delay(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
