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
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/manyiweb/api-delivery/internal/delivery/config"
)

// SendMailFunc matches smtp.SendMail, which upgrades the connection with
// STARTTLS when the server offers it.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends plain-text UTF-8 mail.
type Email struct {
	cfg      config.SMTPConfig
	sendMail SendMailFunc
}

// NewEmail returns an e-mail notifier. A nil sendMail uses smtp.SendMail.
func NewEmail(cfg config.SMTPConfig, sendMail SendMailFunc) *Email {
	if sendMail == nil {
		sendMail = smtp.SendMail
	}
	return &Email{cfg: cfg, sendMail: sendMail}
}

// Name implements Notifier.
func (e *Email) Name() string { return ChannelEmail }

func (e *Email) from() string {
	if e.cfg.From != "" {
		return e.cfg.From
	}
	return e.cfg.User
}

// Send implements Notifier. The context is only checked before dialing.
func (e *Email) Send(ctx context.Context, subject, content string) error {
	if e.cfg.Host == "" || len(e.cfg.To) == 0 {
		return fmt.Errorf("%s: %w", ChannelEmail, ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	port := e.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(port))

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	}
	if err := e.sendMail(addr, auth, e.from(), e.cfg.To, e.message(subject, content)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (e *Email) message(subject, content string) []byte {
	var b strings.Builder
	b.WriteString("From: " + e.from() + "\r\n")
	b.WriteString("To: " + strings.Join(e.cfg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(content, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
