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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		retry  int
		want   time.Duration
	}{
		{"fixed", Policy{Interval: 2 * time.Second, Strategy: StrategyFixed}, 3, 2 * time.Second},
		{"linear", Policy{Interval: time.Second, Strategy: StrategyLinear}, 3, 3 * time.Second},
		{"exponential first retry", Policy{Interval: time.Second, Multiplier: 2, Strategy: StrategyExponential}, 1, time.Second},
		{"exponential third retry", Policy{Interval: time.Second, Multiplier: 2, Strategy: StrategyExponential}, 3, 4 * time.Second},
		{"capped", Policy{Interval: time.Second, Multiplier: 10, Strategy: StrategyExponential, MaxInterval: 5 * time.Second}, 4, 5 * time.Second},
		{"none", Policy{Interval: time.Second, Strategy: StrategyNone}, 1, 0},
		{"zero retry", Policy{Interval: time.Second, Strategy: StrategyFixed}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBackoff(tt.policy).Delay(tt.retry))
		})
	}
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	b := NewBackoff(Policy{Interval: 100 * time.Millisecond, Strategy: StrategyFixed, JitterPercent: 20})
	for i := 0; i < 50; i++ {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("linear")
	assert.NoError(t, err)
	assert.Equal(t, StrategyLinear, s)

	s, err = ParseStrategy("")
	assert.NoError(t, err)
	assert.Equal(t, StrategyFixed, s)

	_, err = ParseStrategy("random")
	assert.Error(t, err)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{Attempts: 0}.Validate())
	assert.Error(t, Policy{Attempts: 1, Interval: -1}.Validate())
	assert.Error(t, Policy{Attempts: 1, Strategy: StrategyExponential}.Validate())
	assert.Error(t, Policy{Attempts: 1, JitterPercent: 101}.Validate())
}
