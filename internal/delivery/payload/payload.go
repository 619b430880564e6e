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

// Package payload builds the form bodies of the delivery platform order
// callbacks. Nested objects travel as compact JSON strings inside JSON
// strings, exactly as the platform sends them.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// orderIDPrefix is the fixed head of generated platform order ids.
const orderIDPrefix = "5301890196"

// Template keys.
const (
	KeyReconciliationExtras = "reconciliation_extras"
	KeyPoiReceiveDetail     = "poi_receive_detail"
	KeyOrderCoreParams      = "order_core_params"
	KeyDetailList           = "detail_list"
	KeyExtrasList           = "extras_list"
	KeyOrderCancelList      = "orderCancel_list"
	KeyOrderRefundList      = "orderRefund_list"
)

var pushKeys = []string{
	KeyReconciliationExtras,
	KeyPoiReceiveDetail,
	KeyOrderCoreParams,
	KeyDetailList,
	KeyExtrasList,
}

var (
	// ErrEmptyTemplate is returned for a nil or empty template.
	ErrEmptyTemplate = errors.New("raw data is empty")
	// ErrMissingKeys matches any *MissingKeysError.
	ErrMissingKeys = errors.New("missing required keys")
	// ErrInvalidOrderID is returned for ids that are not decimal integers.
	ErrInvalidOrderID = errors.New("invalid order id")
)

// MissingKeysError lists every required template key that was absent.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return "Missing required keys: " + strings.Join(e.Keys, ", ")
}

// Is makes errors.Is(err, ErrMissingKeys) work.
func (e *MissingKeysError) Is(target error) bool { return target == ErrMissingKeys }

// OrderID is a platform order id. It is kept as decimal text because test
// inputs may exceed the int64 range, and it is sent as a JSON number.
type OrderID string

// Validate reports whether o is a non-empty run of digits.
func (o OrderID) Validate() error {
	if o == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOrderID)
	}
	for _, r := range o {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidOrderID, string(o))
		}
	}
	return nil
}

// Number returns o as a JSON number.
func (o OrderID) Number() json.Number { return json.Number(o) }

func (o OrderID) String() string { return string(o) }

// Int64 parses o. It fails for ids outside the int64 range.
func (o OrderID) Int64() (int64, error) { return strconv.ParseInt(string(o), 10, 64) }

// GenerateOrderID derives an id from a unix millisecond timestamp: the
// fixed prefix followed by the last nine digits of the timestamp.
func GenerateOrderID(tsMillis int64) OrderID {
	ts := strconv.FormatInt(tsMillis, 10)
	if len(ts) > 9 {
		ts = ts[len(ts)-9:]
	}
	return OrderID(orderIDPrefix + ts)
}

// Merchant holds the identity fields sent with every callback.
type Merchant struct {
	DeveloperID string
	EPoiID      string
	Sign        string
}

func (m Merchant) form() url.Values {
	v := url.Values{}
	v.Set("developerId", m.DeveloperID)
	v.Set("ePoiId", m.EPoiID)
	v.Set("sign", m.Sign)
	return v
}

// Builder turns templates into callback form bodies.
type Builder struct {
	merchant Merchant
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder for merchant.
func NewBuilder(merchant Merchant, opts ...Option) *Builder {
	b := &Builder{merchant: merchant, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Push builds the order push callback. An empty orderID generates a new
// one. Passing a previous id re-pushes the same order.
func (b *Builder) Push(raw map[string]any, orderID OrderID) (url.Values, OrderID, error) {
	if len(raw) == 0 {
		return nil, "", ErrEmptyTemplate
	}
	data := fixture.CopyMap(raw)
	if err := requireKeys(data, pushKeys...); err != nil {
		return nil, "", err
	}

	ts := b.now().UnixMilli()
	if orderID == "" {
		orderID = GenerateOrderID(ts)
	}
	if err := orderID.Validate(); err != nil {
		return nil, "", err
	}

	poi, err := mapping(data, KeyPoiReceiveDetail)
	if err != nil {
		return nil, "", err
	}
	order, err := mapping(data, KeyOrderCoreParams)
	if err != nil {
		return nil, "", err
	}

	reconciliation, err := Compact(data[KeyReconciliationExtras])
	if err != nil {
		return nil, "", err
	}
	poi["reconciliationExtras"] = reconciliation

	order["ctime"] = ts
	order["utime"] = ts
	order["orderId"] = orderID.Number()
	order["orderIdView"] = orderID.Number()
	if order["detail"], err = Compact(data[KeyDetailList]); err != nil {
		return nil, "", err
	}
	if order["extras"], err = Compact(data[KeyExtrasList]); err != nil {
		return nil, "", err
	}
	if order["poiReceiveDetail"], err = Compact(poi); err != nil {
		return nil, "", err
	}

	orderJSON, err := Compact(order)
	if err != nil {
		return nil, "", err
	}

	form := b.merchant.form()
	form.Set("order", orderJSON)
	logger.GetLogger().Debug("Push order payload built", zap.String("order_id", orderID.String()))
	return form, orderID, nil
}

// Cancel builds the order cancel callback.
func (b *Builder) Cancel(raw map[string]any, orderID OrderID) (url.Values, error) {
	return b.wrapped(raw, orderID, KeyOrderCancelList, "orderCancel")
}

// Refund builds the full refund callback.
func (b *Builder) Refund(raw map[string]any, orderID OrderID) (url.Values, error) {
	return b.wrapped(raw, orderID, KeyOrderRefundList, "orderRefund")
}

func (b *Builder) wrapped(raw map[string]any, orderID OrderID, key, field string) (url.Values, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyTemplate
	}
	data := fixture.CopyMap(raw)
	if err := requireKeys(data, key); err != nil {
		return nil, err
	}
	if err := orderID.Validate(); err != nil {
		return nil, err
	}
	body, err := mapping(data, key)
	if err != nil {
		return nil, err
	}
	body["orderId"] = orderID.Number()

	encoded, err := Compact(body)
	if err != nil {
		return nil, err
	}
	form := b.merchant.form()
	form.Set(field, encoded)
	logger.GetLogger().Debug("Callback payload built", zap.String("field", field), zap.String("order_id", orderID.String()))
	return form, nil
}

// Compact encodes v without insignificant whitespace. Non-ASCII text and
// HTML characters are written as-is. Map keys are sorted at every level.
func Compact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func requireKeys(data map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	return nil
}

func mapping(data map[string]any, key string) (map[string]any, error) {
	m, ok := data[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template key %q must be a mapping, got %T", key, data[key])
	}
	return m, nil
}
