/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	headerStyle = color.New(color.Bold)
	activeStyle = color.New(color.FgGreen, color.Bold)
	mutedStyle  = color.New(color.Faint)
	errStyle    = color.New(color.FgRed, color.Bold)
)

func errorTag() string { return errStyle.Sprint("error:") }

// printTable writes rows aligned in columns. Styling is applied to whole
// lines so escape codes never skew the column widths.
func printTable(w io.Writer, header []string, rows [][]string) {
	var buf strings.Builder
	tw := tabwriter.NewWriter(&buf, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		if i == 0 {
			headerStyle.Fprintln(w, line)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
