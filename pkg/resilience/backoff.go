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
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff 基于 Policy 计算每次重试前的等待时间。
type Backoff struct {
	p   Policy
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff 创建一个延迟计算器。
func NewBackoff(p Policy) *Backoff {
	return &Backoff{
		p:   p,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay 返回第 retry 次重试前的等待时间（retry >= 1）。
func (b *Backoff) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	d := b.p.Interval
	switch b.p.Strategy {
	case StrategyNone:
		return 0
	case StrategyLinear:
		d = time.Duration(float64(d) * float64(retry))
	case StrategyExponential:
		d = time.Duration(float64(d) * math.Pow(b.p.Multiplier, float64(retry-1)))
	default:
		// FIXED 以及未知策略均使用固定间隔
	}

	if b.p.JitterPercent > 0 {
		d = b.jitter(d)
	}
	if b.p.MaxInterval > 0 && d > b.p.MaxInterval {
		d = b.p.MaxInterval
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (b *Backoff) jitter(d time.Duration) time.Duration {
	pct := b.p.JitterPercent / 100.0
	b.mu.Lock()
	f := 1.0 - pct + 2*pct*b.rng.Float64()
	b.mu.Unlock()
	return time.Duration(float64(d) * f)
}
