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
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/manyiweb/api-delivery/internal/delivery/scenario"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var filter scenario.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUITE\tNAME\tMARKERS\tTITLE")
			for _, s := range scenario.All() {
				if !filter.Match(s) {
					continue
				}
				markers := strings.Join(s.Markers, ",")
				if s.ExpectFailure {
					markers = strings.TrimPrefix(markers+",xfail", ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Suite, s.Name, markers, s.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&filter.Suites, "suite", nil, "only scenarios of these suites")
	cmd.Flags().StringSliceVar(&filter.Names, "scenario", nil, "only these scenarios")
	cmd.Flags().StringSliceVar(&filter.Markers, "marker", nil, "only scenarios with one of these markers")
	return cmd
}
