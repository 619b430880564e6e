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

// Package notify sends run results to chat robots and e-mail.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/report"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// Channel names.
const (
	ChannelWeChat   = "wechat"
	ChannelDingTalk = "dingtalk"
	ChannelEmail    = "email"
)

// DefaultTitle is used when the caller passes an empty title.
const DefaultTitle = "通知"

var (
	// ErrNotConfigured is returned for a channel without configuration.
	ErrNotConfigured = errors.New("notification channel not configured")
	// ErrRejected is returned when the remote side refuses the message.
	ErrRejected = errors.New("notification rejected")
)

// Notifier delivers one message.
type Notifier interface {
	Name() string
	Send(ctx context.Context, title, content string) error
}

// Dispatcher fans a message out to named channels.
type Dispatcher struct {
	notifiers map[string]Notifier
	defaults  []string
	logger    *zap.Logger
}

// Option configures NewDispatcher.
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	httpClient *http.Client
	sendMail   SendMailFunc
	logger     *zap.Logger
}

// WithHTTPClient sets the client used by the robot notifiers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *dispatcherOptions) { o.httpClient = c }
}

// WithSendMail replaces the SMTP transport.
func WithSendMail(fn SendMailFunc) Option {
	return func(o *dispatcherOptions) { o.sendMail = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *dispatcherOptions) { o.logger = l }
}

// NewDispatcher builds a notifier for every configured channel.
func NewDispatcher(cfg config.NotifyConfig, opts ...Option) *Dispatcher {
	o := dispatcherOptions{httpClient: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}

	d := &Dispatcher{notifiers: map[string]Notifier{}, defaults: cfg.Channels, logger: o.logger}
	if cfg.WeChatWebhook != "" {
		d.Register(NewRobot(ChannelWeChat, cfg.WeChatWebhook, o.httpClient))
	}
	if cfg.DingTalkWebhook != "" {
		d.Register(NewRobot(ChannelDingTalk, cfg.DingTalkWebhook, o.httpClient))
	}
	if cfg.SMTP.Host != "" && len(cfg.SMTP.To) > 0 {
		d.Register(NewEmail(cfg.SMTP, o.sendMail))
	}
	return d
}

// Register adds or replaces a notifier under its name.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers[n.Name()] = n
}

// Channels lists the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.notifiers))
	for name := range d.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers the message on each channel, or on the configured default
// channels when none are given. The result has one entry per channel; a
// nil value means delivered.
func (d *Dispatcher) Send(ctx context.Context, title, content string, channels ...string) map[string]error {
	if len(channels) == 0 {
		channels = d.defaults
	}
	if title == "" {
		title = DefaultTitle
	}

	results := make(map[string]error, len(channels))
	for _, ch := range channels {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == "" {
			continue
		}
		n, ok := d.notifiers[ch]
		if !ok {
			results[ch] = fmt.Errorf("%s: %w", ch, ErrNotConfigured)
			d.logger.Error("❌ 通知渠道未配置", zap.String("channel", ch))
			continue
		}
		err := n.Send(ctx, title, content)
		results[ch] = err
		if err != nil {
			d.logger.Error("❌ 通知发送失败", zap.String("channel", ch), zap.Error(err))
		} else {
			d.logger.Info("✅ 通知发送成功", zap.String("channel", ch))
		}
	}
	return results
}

// ReportMessage renders the run summary for chat and e-mail.
func ReportMessage(s report.Summary, now time.Time) string {
	status := "❌ 存在失败"
	if s.OK() {
		status = "✅ 全部通过"
	}
	var b strings.Builder
	b.WriteString("【自动化测试报告】\n")
	fmt.Fprintf(&b, "总测试数: %d\n", s.Total)
	fmt.Fprintf(&b, "通过: %d\n", s.Passed)
	fmt.Fprintf(&b, "失败: %d\n", s.Failed)
	fmt.Fprintf(&b, "跳过: %d\n", s.Skipped)
	b.WriteString("\n")
	fmt.Fprintf(&b, "状态: %s\n", status)
	fmt.Fprintf(&b, "执行时间: %s", now.Format(time.DateTime))
	return b.String()
}
