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
	"time"
)

// ErrTimeout is returned by Poll when check never reported done.
var ErrTimeout = errors.New("poll timed out")

// CheckFunc runs one polling round. Returning an error stops polling.
type CheckFunc func(ctx context.Context, round int) (done bool, err error)

// Poll runs check, then sleeps interval, for as long as less than timeout
// has elapsed since the start. It returns the number of rounds run.
func Poll(ctx context.Context, timeout, interval time.Duration, check CheckFunc) (int, error) {
	start := time.Now()
	rounds := 0
	for time.Since(start) < timeout {
		rounds++
		done, err := check(ctx, rounds)
		if err != nil {
			return rounds, err
		}
		if done {
			return rounds, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return rounds, ctx.Err()
		case <-timer.C:
		}
	}
	return rounds, ErrTimeout
}
