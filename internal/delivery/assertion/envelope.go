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

package assertion

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema is the result envelope every retail service answers with.
const envelopeSchema = `{
  "type": "object",
  "required": ["code"],
  "properties": {
    "code": {"type": ["string", "integer"]},
    "success": {"type": "boolean"}
  }
}`

var (
	envelopeOnce sync.Once
	envelope     *jsonschema.Schema
	envelopeErr  error
)

func compiledEnvelope() (*jsonschema.Schema, error) {
	envelopeOnce.Do(func() {
		envelope, envelopeErr = jsonschema.CompileString("envelope.json", envelopeSchema)
	})
	return envelope, envelopeErr
}

// CheckEnvelope validates resp against the result envelope schema.
func CheckEnvelope(resp map[string]any, name string) error {
	schema, err := compiledEnvelope()
	if err != nil {
		return err
	}
	if err := schema.Validate(resp); err != nil {
		msg := err.Error()
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			var causes []string
			for _, c := range ve.BasicOutput().Errors {
				if c.Error != "" {
					causes = append(causes, c.InstanceLocation+": "+c.Error)
				}
			}
			if len(causes) > 0 {
				msg = strings.Join(causes, "; ")
			}
		}
		return Failf("%s响应结构异常: %s", name, msg).With("响应", resp)
	}
	return nil
}
