/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package grid

import "escapedash/internal/domain"

// Slot is a resolved (row, col) origin in grid units.
type Slot struct {
	Row, Col int
}

// AutoPlace positions items of the given [colSpan, rowSpan] in order using sparse
// auto-placement: each item goes to the first free position at or after the previous
// item's position, scanning rows top to bottom. Earlier holes are never backfilled.
func AutoPlace(spans [][2]int, cols int) []Slot {
	occ := occupancy{cols: cols}
	out := make([]Slot, len(spans))
	row, col := 0, 0
	for i, s := range spans {
		w := min(max(s[0], 1), cols)
		h := max(s[1], 1)
		for {
			if col+w > cols {
				row++
				col = 0
				continue
			}
			if occ.free(row, col, w, h) {
				break
			}
			col++
		}
		occ.fill(row, col, w, h)
		out[i] = Slot{Row: row, Col: col}
		col += w
	}
	return out
}

type occupancy struct {
	cols  int
	cells [][]bool
}

func (o *occupancy) free(row, col, w, h int) bool {
	for r := row; r < row+h && r < len(o.cells); r++ {
		for c := col; c < col+w; c++ {
			if o.cells[r][c] {
				return false
			}
		}
	}
	return true
}

func (o *occupancy) fill(row, col, w, h int) {
	for len(o.cells) < row+h {
		o.cells = append(o.cells, make([]bool, o.cols))
	}
	for r := row; r < row+h; r++ {
		for c := col; c < col+w; c++ {
			o.cells[r][c] = true
		}
	}
}

// Placed is a widget with its flow position.
type Placed struct {
	Widget  domain.WidgetInstance
	Row     int
	Col     int
	ColSpan int
	RowSpan int
}

// Flow lays widgets out in rows: a widget that does not fit in the remaining columns
// starts a new row below the tallest widget of the current one. Missing spans fall back
// to 24×8. It returns the positions and the total height in rows.
func Flow(l domain.Layout, cols int) ([]Placed, int) {
	if cols <= 0 {
		cols = domain.GridColumns
	}
	out := make([]Placed, 0, len(l))
	rowStart, rowHeight, col := 0, 0, 0
	for _, w := range l {
		cs := w.ColSpan
		if cs <= 0 {
			cs = 24
		}
		rs := w.RowSpan
		if rs <= 0 {
			rs = 8
		}
		if col+cs > cols {
			rowStart += rowHeight
			col = 0
			rowHeight = 0
		}
		out = append(out, Placed{Widget: w, Row: rowStart, Col: col, ColSpan: cs, RowSpan: rs})
		col += cs
		rowHeight = max(rowHeight, rs)
	}
	return out, rowStart + rowHeight
}
