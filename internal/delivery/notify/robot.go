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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Robot posts text messages to a WeChat Work or DingTalk group robot.
// Both accept the same text message body and answer with errcode.
type Robot struct {
	name    string
	webhook string
	client  *http.Client
}

// NewRobot returns a robot notifier. A nil client uses http.DefaultClient.
func NewRobot(name, webhook string, client *http.Client) *Robot {
	if client == nil {
		client = http.DefaultClient
	}
	return &Robot{name: name, webhook: webhook, client: client}
}

// Name implements Notifier.
func (r *Robot) Name() string { return r.name }

type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type robotReply struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Send implements Notifier.
func (r *Robot) Send(ctx context.Context, title, content string) error {
	if r.webhook == "" {
		return fmt.Errorf("%s: %w", r.name, ErrNotConfigured)
	}
	msg := textMessage{MsgType: "text"}
	msg.Text.Content = title + "\n" + content
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", r.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s message: %w", r.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s reply: %w", r.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w: http %d", r.name, ErrRejected, resp.StatusCode)
	}

	var reply robotReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("%s: %w: %s", r.name, ErrRejected, raw)
	}
	if reply.ErrCode == nil || *reply.ErrCode != 0 {
		return fmt.Errorf("%s: %w: %s", r.name, ErrRejected, reply.ErrMsg)
	}
	return nil
}
