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

package list

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd(t *testing.T) {
	execute := func(args ...string) string {
		cmd := NewListCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return buf.String()
	}

	all := execute()
	assert.True(t, strings.HasPrefix(all, "SUITE"))
	assert.Contains(t, all, "mt_push_order")
	assert.Contains(t, all, "pay_entity_card")
	assert.Contains(t, all, "invoice_merged")
	assert.Contains(t, all, "blocker,xfail")

	pay := execute("--suite", "pay")
	assert.NotContains(t, pay, "mt_push_order")
	assert.Contains(t, pay, "pay_cash")

	smoke := execute("--marker", "smoke")
	assert.Equal(t, 2, strings.Count(smoke, "\n"))
}
