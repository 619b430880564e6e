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

// Package api wraps the remote endpoints exercised by the scenarios: the
// delivery platform callbacks, the retail cart/order/pay services, order
// query and the invoice service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/client"
	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// ErrUnexpectedResponse is returned when a field the caller relies on is
// missing from a response.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Deps are the shared collaborators of every wrapper.
type Deps struct {
	Client    *client.Client
	Loader    *fixture.Loader
	Tokens    client.TokenSource
	Endpoints config.EndpointsConfig
	Logger    *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.GetLogger()
}

// token returns the current access token.
func (d Deps) token(ctx context.Context) (string, error) {
	if d.Tokens == nil {
		return "", client.ErrNoToken
	}
	return d.Tokens.Token(ctx)
}

// postAuthed posts body as JSON with the bearer token and decodes the answer.
func (d Deps) postAuthed(ctx context.Context, name, endpoint string, body map[string]any, token string) (map[string]any, error) {
	lg := d.logger()
	lg.Info(name+" request", zap.String("endpoint", endpoint), zap.Any("body", body))

	resp, err := d.Client.PostJSON(ctx, endpoint, body, client.WithBearer(token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	obj, err := resp.Object()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	lg.Info(name+" response", zap.String("trace_id", resp.TraceID), zap.Any("body", obj))
	return obj, nil
}

// Code returns the business code of an envelope as text.
func Code(body map[string]any) string {
	return jsontree.Text(body["code"])
}

// numberAt reads an amount at path keeping its wire representation.
func numberAt(v any, path ...any) (json.Number, error) {
	val, ok := jsontree.Get(v, path...)
	if !ok || val == nil {
		return "", fmt.Errorf("%w: %s missing", ErrUnexpectedResponse, describePath(path))
	}
	return toNumber(val)
}

func toNumber(v any) (json.Number, error) {
	switch t := v.(type) {
	case json.Number:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", fmt.Errorf("%w: %q is not a number", ErrUnexpectedResponse, t)
		}
		return json.Number(s), nil
	case float64:
		return json.Number(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case int:
		return json.Number(strconv.Itoa(t)), nil
	default:
		return "", fmt.Errorf("%w: %T is not a number", ErrUnexpectedResponse, v)
	}
}

func describePath(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".")
}
