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

// Package resilience 提供请求级别的重试策略与退避计算。
package resilience

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy 定义重试退避的策略类型。
type Strategy string

const (
	// StrategyFixed 固定间隔
	StrategyFixed Strategy = "FIXED"
	// StrategyLinear 线性递增
	StrategyLinear Strategy = "LINEAR"
	// StrategyExponential 指数退避
	StrategyExponential Strategy = "EXPONENTIAL"
	// StrategyNone 不重试
	StrategyNone Strategy = "NONE"
)

// ParseStrategy 解析大小写不敏感的策略名，空字符串视为 FIXED。
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToUpper(strings.TrimSpace(s))); st {
	case "":
		return StrategyFixed, nil
	case StrategyFixed, StrategyLinear, StrategyExponential, StrategyNone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown retry strategy %q", s)
	}
}

// Policy 描述一次调用的重试行为。
type Policy struct {
	// Attempts 总尝试次数（包含首次调用），1 表示不重试。
	Attempts int `json:"attempts" yaml:"attempts"`

	// Interval 基础重试间隔。
	Interval time.Duration `json:"interval" yaml:"interval"`

	// MaxInterval 单次间隔上限（0 表示无限制）。
	MaxInterval time.Duration `json:"max_interval" yaml:"max_interval"`

	// Multiplier 指数退避倍率。
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// Strategy 退避策略。
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// JitterPercent 抖动百分比 [0,100]。
	JitterPercent float64 `json:"jitter_percent" yaml:"jitter_percent"`
}

// DefaultPolicy 与业务接口调用约定一致：共 3 次，固定间隔 2 秒。
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    3,
		Interval:    2 * time.Second,
		MaxInterval: 30 * time.Second,
		Multiplier:  2.0,
		Strategy:    StrategyFixed,
	}
}

// Validate 校验策略合法性。
func (p Policy) Validate() error {
	if p.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if p.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if p.MaxInterval < 0 {
		return fmt.Errorf("max_interval cannot be negative")
	}
	if p.Strategy == StrategyExponential {
		if p.Multiplier <= 0 || math.IsNaN(p.Multiplier) || math.IsInf(p.Multiplier, 0) {
			return fmt.Errorf("multiplier must be a positive finite number")
		}
	}
	if p.JitterPercent < 0 || p.JitterPercent > 100 {
		return fmt.Errorf("jitter_percent must be between 0 and 100")
	}
	return nil
}
