/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package grid turns a layout into a rendering plan: how many columns the viewport
// shows and which span every widget occupies. It is pure; hosts draw the plan.
package grid

import (
	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/registry"
)

const (
	DefaultBreakpoint = 768
	DefaultRowUnit    = 10
)

// Resolver looks up widget kinds.
type Resolver interface {
	Resolve(typ string) (registry.Definition, bool)
}

// Mode is the arrangement the viewport uses.
type Mode int

const (
	ModeGrid    Mode = iota // 48 columns, spans honored
	ModeStacked             // narrow viewport: one full-width column, content height
)

func (m Mode) String() string {
	if m == ModeStacked {
		return "stacked"
	}
	return "grid"
}

// Options tunes Place. Zero values take the defaults.
type Options struct {
	Breakpoint float32
	RowUnit    float32
}

func (o Options) withDefaults() Options {
	if o.Breakpoint <= 0 {
		o.Breakpoint = DefaultBreakpoint
	}
	if o.RowUnit <= 0 {
		o.RowUnit = DefaultRowUnit
	}
	return o
}

// Cell is one widget's slot in the plan.
type Cell struct {
	Widget     domain.WidgetInstance
	ColSpan    int
	RowSpan    int  // 0 when AutoHeight
	AutoHeight bool // height follows content (stacked mode)
	// Known is false for types missing from the registry; the host draws nothing
	// in the cell but the span stays reserved.
	Known bool
	Def   registry.Definition
}

// Plan is the placement of a whole layout.
type Plan struct {
	Mode    Mode
	Columns int
	RowUnit float32
	Cells   []Cell
}

// Place computes the plan for a viewport width. Stored spans are never modified.
func Place(l domain.Layout, r Resolver, viewportWidth float32, opts Options) Plan {
	opts = opts.withDefaults()
	p := Plan{Mode: ModeGrid, Columns: domain.GridColumns, RowUnit: opts.RowUnit}
	if viewportWidth < opts.Breakpoint {
		p.Mode = ModeStacked
		p.Columns = 1
	}
	p.Cells = make([]Cell, 0, len(l))
	for _, w := range l {
		c := Cell{Widget: w.Clone()}
		if r != nil {
			c.Def, c.Known = r.Resolve(w.Type)
		}
		if p.Mode == ModeStacked {
			c.ColSpan = 1
			c.AutoHeight = true
		} else {
			c.ColSpan = min(max(w.ColSpan, 1), domain.GridColumns)
			c.RowSpan = max(w.RowSpan, 1)
		}
		p.Cells = append(p.Cells, c)
	}
	return p
}

// Boxes returns the pixel rectangle of every cell for a container of the given width,
// following the grid's sparse auto-placement. In stacked mode cells are laid out top to
// bottom; stackedHeight estimates each auto-height cell (the stored rowSpan is used when nil).
func (p Plan) Boxes(width float32, stackedHeight func(Cell) float32) []geom.Rect {
	out := make([]geom.Rect, len(p.Cells))
	if len(p.Cells) == 0 || width <= 0 {
		return out
	}
	if p.Mode == ModeStacked {
		var y float32
		for i, c := range p.Cells {
			h := float32(max(c.Widget.RowSpan, 1)) * p.RowUnit
			if stackedHeight != nil {
				h = stackedHeight(c)
			}
			out[i] = geom.R(0, y, width, h)
			y += h
		}
		return out
	}
	colW := width / float32(p.Columns)
	spans := make([][2]int, len(p.Cells))
	for i, c := range p.Cells {
		spans[i] = [2]int{c.ColSpan, c.RowSpan}
	}
	for i, s := range AutoPlace(spans, p.Columns) {
		c := p.Cells[i]
		out[i] = geom.R(float32(s.Col)*colW, float32(s.Row)*p.RowUnit, float32(c.ColSpan)*colW, float32(c.RowSpan)*p.RowUnit)
	}
	return out
}
