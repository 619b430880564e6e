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

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/report"
)

func robotServer(t *testing.T, status int, reply string, got *textMessage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		if got != nil {
			require.NoError(t, json.Unmarshal(raw, got))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotSend(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr bool
	}{
		{"accepted", http.StatusOK, `{"errcode":0,"errmsg":"ok"}`, false},
		{"errcode", http.StatusOK, `{"errcode":93000,"errmsg":"invalid webhook"}`, true},
		{"no errcode", http.StatusOK, `{"errmsg":"ok"}`, true},
		{"not json", http.StatusOK, `ok`, true},
		{"http error", http.StatusBadGateway, `{"errcode":0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got textMessage
			srv := robotServer(t, tt.status, tt.reply, &got)
			err := NewRobot(ChannelWeChat, srv.URL, srv.Client()).Send(context.Background(), "标题", "内容")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRejected)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "text", got.MsgType)
			assert.Equal(t, "标题\n内容", got.Text.Content)
		})
	}
}

func TestRobotWithoutWebhook(t *testing.T) {
	err := NewRobot(ChannelDingTalk, "", nil).Send(context.Background(), "t", "c")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEmailSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	fake := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}
	cfg := config.SMTPConfig{Host: "smtp.test", Port: 465, User: "bot@test.com", Password: "pw", To: []string{"a@test.com", "b@test.com"}}

	require.NoError(t, NewEmail(cfg, fake).Send(context.Background(), "测试报告", "总测试数: 1\n通过: 1"))
	assert.Equal(t, "smtp.test:465", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "bot@test.com", gotFrom)
	assert.Equal(t, []string{"a@test.com", "b@test.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: a@test.com, b@test.com\r\n")
	assert.Contains(t, gotMsg, "Subject: =?UTF-8?b?")
	assert.Contains(t, gotMsg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\n总测试数: 1\r\n通过: 1\r\n")
}

func TestEmailErrors(t *testing.T) {
	fail := func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }

	err := NewEmail(config.SMTPConfig{Host: "smtp.test", To: []string{"a@test.com"}}, fail).Send(context.Background(), "s", "c")
	assert.ErrorContains(t, err, "535 auth failed")

	err = NewEmail(config.SMTPConfig{Host: "smtp.test"}, fail).Send(context.Background(), "s", "c")
	assert.ErrorIs(t, err, ErrNotConfigured)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewEmail(config.SMTPConfig{Host: "smtp.test", To: []string{"a@test.com"}}, fail).Send(ctx, "s", "c")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherSend(t *testing.T) {
	var got textMessage
	srv := robotServer(t, http.StatusOK, `{"errcode":0}`, &got)
	mailed := 0
	cfg := config.NotifyConfig{
		Channels:      []string{ChannelWeChat},
		WeChatWebhook: srv.URL,
		SMTP:          config.SMTPConfig{Host: "smtp.test", To: []string{"a@test.com"}},
	}
	d := NewDispatcher(cfg,
		WithHTTPClient(srv.Client()),
		WithSendMail(func(string, smtp.Auth, string, []string, []byte) error { mailed++; return nil }),
		WithLogger(zap.NewNop()),
	)
	assert.Equal(t, []string{ChannelEmail, ChannelWeChat}, d.Channels())

	res := d.Send(context.Background(), "", "body")
	require.Len(t, res, 1)
	assert.NoError(t, res[ChannelWeChat])
	assert.Equal(t, DefaultTitle+"\nbody", got.Text.Content)

	res = d.Send(context.Background(), "t", "c", "Email", ChannelDingTalk, " ")
	require.Len(t, res, 2)
	assert.NoError(t, res[ChannelEmail])
	assert.ErrorIs(t, res[ChannelDingTalk], ErrNotConfigured)
	assert.Equal(t, 1, mailed)
}

func TestReportMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)

	msg := ReportMessage(report.Summary{Total: 3, Passed: 3}, now)
	assert.Equal(t, "【自动化测试报告】\n总测试数: 3\n通过: 3\n失败: 0\n跳过: 0\n\n状态: ✅ 全部通过\n执行时间: 2025-03-01 09:30:00", msg)

	assert.Contains(t, ReportMessage(report.Summary{Total: 2, Passed: 1, Failed: 1}, now), "状态: ❌ 存在失败")
	assert.Contains(t, ReportMessage(report.Summary{Total: 1, Skipped: 1}, now), "状态: ❌ 存在失败")
}
