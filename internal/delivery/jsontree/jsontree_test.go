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

package jsontree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := Decode(strings.NewReader(s))
	require.NoError(t, err)
	return v
}

func TestDecodeKeepsLongNumbers(t *testing.T) {
	v := mustDecode(t, `{"orderId": 5301890196000123456}`)
	assert.Equal(t, json.Number("5301890196000123456"), v.(map[string]any)["orderId"])

	_, err := DecodeObject([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestWalkOrder(t *testing.T) {
	v := mustDecode(t, `{"b":{"name":"b"},"a":[{"name":"a0"},{"name":"a1"}],"name":"root"}`)
	var names []string
	Walk(v, func(obj map[string]any) bool {
		names = append(names, Text(obj["name"]))
		return true
	})
	assert.Equal(t, []string{"root", "a0", "a1", "b"}, names)
	assert.Len(t, Objects(v), 4)
}

func TestExtractOrderIDs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty", `{"data":{"content":[]}}`, nil},
		{
			"prefers hex32",
			`{"data":{"content":[{"orderId":"  SO-1 "},{"orderId":"f493da2a48fb4e4db552bc492a02fca3"},{"orderId":"f493da2a48fb4e4db552bc492a02fca3"}]}}`,
			[]string{"f493da2a48fb4e4db552bc492a02fca3"},
		},
		{
			"falls back to all strings, deduplicated",
			`{"data":[{"orderId":"SO-2"},{"orderId":"SO-1"},{"orderId":"SO-2"},{"orderId":""},{"orderId":12}]}`,
			[]string{"SO-2", "SO-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOrderIDs(mustDecode(t, tt.body)))
		})
	}
}

func TestMatchSourceNo(t *testing.T) {
	detail := mustDecode(t, `{"data":{"order":{"outOrderNo":"x","dock":{"dockOrderNo":5301890196000123456}}}}`)

	ok, key := MatchSourceNo(detail, "5301890196000123456")
	assert.True(t, ok)
	assert.Equal(t, "dockOrderNo", key)

	ok, key = MatchSourceNo(detail, "nope")
	assert.False(t, ok)
	assert.Empty(t, key)

	ok, _ = MatchSourceNo(mustDecode(t, `{"sourceNo":null}`), "")
	assert.False(t, ok)
}

func TestExtractOrderStatus(t *testing.T) {
	s, ok := ExtractOrderStatus(mustDecode(t, `{"data":{"orderStatus":null,"info":{"order_status":3}}}`))
	assert.True(t, ok)
	assert.Equal(t, "3", s)

	_, ok = ExtractOrderStatus(mustDecode(t, `{"data":{}}`))
	assert.False(t, ok)
}

func TestFirstOrderID(t *testing.T) {
	id, ok := FirstOrderID(mustDecode(t, `{"data":{"content":[{"orderId":null},{"orderId":" "},{"orderId":77}]}}`))
	assert.True(t, ok)
	assert.Equal(t, "77", id)

	_, ok = FirstOrderID(mustDecode(t, `{}`))
	assert.False(t, ok)
}

func TestExtractInvoiceID(t *testing.T) {
	tests := []struct {
		body string
		want string
		ok   bool
	}{
		{`{"data":" INV-1 "}`, "INV-1", true},
		{`{"data":{"invoiceId":"INV-2"}}`, "INV-2", true},
		{`{"data":{"id":null,"invoiceNo":"NO-3"}}`, "NO-3", true},
		{`{"data":[{"invoice_id":4}]}`, "4", true},
		{`{"data":["INV-5"]}`, "INV-5", true},
		{`{"data":[]}`, "", false},
		{`{"data":12}`, "", false},
		{`{"data":[[{"id":"deep"}]]}`, "", false},
	}
	for _, tt := range tests {
		id, ok := ExtractInvoiceID(mustDecode(t, tt.body).(map[string]any))
		assert.Equal(t, tt.ok, ok, tt.body)
		assert.Equal(t, tt.want, id, tt.body)
	}
}

func TestGetHelpers(t *testing.T) {
	v := mustDecode(t, `{"data":{"itemsPage":{"content":[{"specId":"S1"}]},"balance":"12.50","quantity":3}}`)

	assert.Equal(t, "S1", GetString(v, "data", "itemsPage", "content", 0, "specId"))
	assert.Equal(t, "", GetString(v, "data", "itemsPage", "content", 1, "specId"))
	assert.Equal(t, "", GetString(v, "data", 0))

	f, ok := GetFloat(v, "data", "balance")
	assert.True(t, ok)
	assert.InDelta(t, 12.5, f, 1e-9)

	_, ok = GetFloat(v, "data", "missing")
	assert.False(t, ok)
}

func TestIsHex32AndText(t *testing.T) {
	assert.True(t, IsHex32("ABCDEF0123456789abcdef0123456789"))
	assert.False(t, IsHex32("g493da2a48fb4e4db552bc492a02fca3"))
	assert.False(t, IsHex32("abc"))

	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, "1.5", Text(1.5))
	assert.Equal(t, "7", Text(int64(7)))
}
