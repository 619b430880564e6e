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

// Package jsontree walks decoded JSON documents and pulls identifiers out
// of responses whose exact shape differs between services.
package jsontree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// SourceNoKeys are the fields an order detail may use for the delivery
// platform's order number.
var SourceNoKeys = []string{
	"SourceNo",
	"sourceNo",
	"outOrderNo",
	"outOrderId",
	"dockOrderNo",
	"dock_order_no",
	"orderIdView",
	"platformOrderId",
	"thirdOrderNo",
}

// StatusKeys are the fields an order detail may use for its status.
var StatusKeys = []string{"orderStatus", "OrderStatus", "order_status"}

// InvoiceIDKeys are checked, in order, inside a response's data object.
var InvoiceIDKeys = []string{"id", "invoiceId", "invoice_id", "invoiceNo"}

// Decode parses JSON keeping numbers as json.Number so long ids survive.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeObject parses a JSON object.
func DecodeObject(b []byte) (map[string]any, error) {
	v, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return m, nil
}

// Walk visits every object in v depth first. Object members are visited
// in key order and array elements in index order. Returning false from fn
// stops the walk.
func Walk(v any, fn func(obj map[string]any) bool) {
	stack := []any{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := cur.(type) {
		case map[string]any:
			if !fn(t) {
				return
			}
			keys := sortedKeys(t)
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, t[keys[i]])
			}
		case []any:
			for i := len(t) - 1; i >= 0; i-- {
				stack = append(stack, t[i])
			}
		}
	}
}

// Objects returns every object in v in Walk order.
func Objects(v any) []map[string]any {
	var out []map[string]any
	Walk(v, func(obj map[string]any) bool {
		out = append(out, obj)
		return true
	})
	return out
}

// Text renders a scalar the way it appears on the wire. Nil yields "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// IsHex32 reports whether s looks like a 32 character hex id.
func IsHex32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ExtractOrderIDs collects non-blank string orderId values. When any of
// them is a 32 character hex id only those are returned. Duplicates are
// dropped keeping first-seen order.
func ExtractOrderIDs(v any) []string {
	var ids []string
	Walk(v, func(obj map[string]any) bool {
		if s, ok := obj["orderId"].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
		}
		return true
	})
	if len(ids) == 0 {
		return nil
	}

	var hex []string
	for _, id := range ids {
		if IsHex32(id) {
			hex = append(hex, id)
		}
	}
	if len(hex) > 0 {
		return dedupe(hex)
	}
	return dedupe(ids)
}

// MatchSourceNo reports whether any object in detail carries expected
// under one of SourceNoKeys, returning the matching key.
func MatchSourceNo(detail any, expected string) (bool, string) {
	var key string
	Walk(detail, func(obj map[string]any) bool {
		for _, k := range SourceNoKeys {
			if val, ok := obj[k]; ok && val != nil && Text(val) == expected {
				key = k
				return false
			}
		}
		return true
	})
	return key != "", key
}

// ExtractOrderStatus returns the first non-null status field.
func ExtractOrderStatus(detail any) (string, bool) {
	var status string
	found := false
	Walk(detail, func(obj map[string]any) bool {
		for _, k := range StatusKeys {
			if val, ok := obj[k]; ok && val != nil {
				status, found = Text(val), true
				return false
			}
		}
		return true
	})
	return status, found
}

// FirstOrderID returns the first non-blank orderId of any scalar type.
func FirstOrderID(v any) (string, bool) {
	var id string
	Walk(v, func(obj map[string]any) bool {
		if val, ok := obj["orderId"]; ok && val != nil {
			if s := strings.TrimSpace(Text(val)); s != "" {
				id = s
				return false
			}
		}
		return true
	})
	return id, id != ""
}

// ExtractInvoiceID finds the invoice id in an apply response: data as a
// string, data's id fields, or the same for data's first element.
func ExtractInvoiceID(resp map[string]any) (string, bool) {
	return invoiceIDFrom(resp["data"], true)
}

func invoiceIDFrom(data any, descend bool) (string, bool) {
	switch t := data.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s, true
		}
	case map[string]any:
		for _, k := range InvoiceIDKeys {
			if val, ok := t[k]; ok && val != nil {
				if s := strings.TrimSpace(Text(val)); s != "" {
					return s, true
				}
			}
		}
	case []any:
		if descend && len(t) > 0 {
			return invoiceIDFrom(t[0], false)
		}
	}
	return "", false
}

// Get follows a path of object keys and array indexes.
func Get(v any, path ...any) (any, bool) {
	cur := v
	for _, p := range path {
		switch key := p.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[key]; !ok {
				return nil, false
			}
		case int:
			a, ok := cur.([]any)
			if !ok || key < 0 || key >= len(a) {
				return nil, false
			}
			cur = a[key]
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetString is Get followed by Text. Missing paths yield "".
func GetString(v any, path ...any) string {
	val, ok := Get(v, path...)
	if !ok {
		return ""
	}
	return Text(val)
}

// GetFloat reads a numeric or numeric-string value.
func GetFloat(v any, path ...any) (float64, bool) {
	val, ok := Get(v, path...)
	if !ok || val == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(Text(val)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
