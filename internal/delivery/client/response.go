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

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// Response is a fully read 2xx response.
type Response struct {
	Endpoint   string
	StatusCode int
	Header     map[string][]string
	Body       []byte
	TraceID    string
	Elapsed    time.Duration
}

// Object decodes the body as a JSON object with numbers kept exact.
func (r *Response) Object() (map[string]any, error) {
	m, err := jsontree.DecodeObject(r.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response of %s (trace %s): %w", r.Endpoint, r.TraceID, err)
	}
	return m, nil
}

// Pretty renders the body indented for logs and reports. Non-JSON bodies
// are returned verbatim.
func (r *Response) Pretty() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Body, "", "  "); err != nil {
		return string(r.Body)
	}
	return buf.String()
}

// HandleResponse reports callback success: HTTP 200 with data == "OK".
// The decoded body is returned whenever it is valid JSON.
func (c *Client) HandleResponse(resp *Response, orderID string) (bool, map[string]any) {
	c.logger.Info("Status code", zap.Int("status", resp.StatusCode), zap.String("trace_id", resp.TraceID))

	body, err := resp.Object()
	if err != nil {
		c.logger.Error("Response is not valid JSON", zap.ByteString("body", resp.Body), zap.Error(err))
		return false, nil
	}
	c.logger.Info("Response body", zap.String("body", resp.Pretty()))

	if resp.StatusCode == 200 && body["data"] == "OK" {
		c.logger.Info("[OK] callback succeeded", zap.String("order_id", orderID))
		return true, body
	}
	c.logger.Error("[FAIL] callback rejected",
		zap.Int("status", resp.StatusCode),
		zap.String("order_id", orderID),
		zap.Any("response", body))
	return false, body
}
