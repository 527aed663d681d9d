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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/registry"
)

func sample() domain.Layout {
	return domain.Layout{
		{ID: "s", Type: registry.TypeStats, ColSpan: 48, RowSpan: 6},
		{ID: "u", Type: registry.TypeUpcoming, ColSpan: 24, RowSpan: 20},
		{ID: "w", Type: "weather", ColSpan: 12, RowSpan: 10},
	}
}

func TestPlaceGridMode(t *testing.T) {
	p := Place(sample(), registry.Builtin(), 1280, Options{})
	assert.Equal(t, ModeGrid, p.Mode)
	assert.Equal(t, 48, p.Columns)
	assert.Equal(t, float32(10), p.RowUnit)
	require.Len(t, p.Cells, 3)
	assert.Equal(t, 24, p.Cells[1].ColSpan)
	assert.Equal(t, 20, p.Cells[1].RowSpan)
	assert.True(t, p.Cells[0].Known)
	assert.Equal(t, "Estadísticas Generales", p.Cells[0].Def.Title)
}

func TestPlaceUnknownTypeReservesSpan(t *testing.T) {
	p := Place(sample(), registry.Builtin(), 1280, Options{})
	c := p.Cells[2]
	assert.False(t, c.Known)
	assert.Equal(t, 12, c.ColSpan)
	assert.Equal(t, 10, c.RowSpan)
}

func TestPlaceStackedBelowBreakpoint(t *testing.T) {
	l := sample()
	p := Place(l, registry.Builtin(), 767, Options{})
	assert.Equal(t, ModeStacked, p.Mode)
	assert.Equal(t, 1, p.Columns)
	for _, c := range p.Cells {
		assert.Equal(t, 1, c.ColSpan)
		assert.True(t, c.AutoHeight)
	}
	assert.Equal(t, []string{"s", "u", "w"}, []string{p.Cells[0].Widget.ID, p.Cells[1].Widget.ID, p.Cells[2].Widget.ID})
	assert.Equal(t, 24, l[1].ColSpan, "stored spans untouched")
	assert.Equal(t, 24, p.Cells[1].Widget.ColSpan)

	assert.Equal(t, ModeGrid, Place(l, nil, 768, Options{}).Mode)
	assert.Equal(t, ModeStacked, Place(l, nil, 900, Options{Breakpoint: 1000}).Mode)
}

func TestBoxesSparseAutoPlacement(t *testing.T) {
	l := domain.Layout{
		{ID: "a", Type: "x", ColSpan: 24, RowSpan: 20},
		{ID: "b", Type: "x", ColSpan: 24, RowSpan: 10},
		{ID: "c", Type: "x", ColSpan: 24, RowSpan: 10},
		{ID: "d", Type: "x", ColSpan: 48, RowSpan: 5},
	}
	boxes := Place(l, nil, 960, Options{}).Boxes(960, nil)
	assert.Equal(t, geom.R(0, 0, 480, 200), boxes[0])
	assert.Equal(t, geom.R(480, 0, 480, 100), boxes[1])
	assert.Equal(t, geom.R(480, 100, 480, 100), boxes[2], "c fills the hole beside the tall widget")
	assert.Equal(t, geom.R(0, 200, 960, 50), boxes[3])
}

func TestBoxesStacked(t *testing.T) {
	p := Place(sample(), nil, 400, Options{})
	boxes := p.Boxes(400, func(Cell) float32 { return 100 })
	assert.Equal(t, geom.R(0, 200, 400, 100), boxes[2])
}

func TestAutoPlaceDoesNotBackfill(t *testing.T) {
	slots := AutoPlace([][2]int{{40, 5}, {20, 5}, {8, 5}}, 48)
	assert.Equal(t, []Slot{{0, 0}, {5, 0}, {5, 20}}, slots)
}

func TestAutoPlaceWrapsSingleRow(t *testing.T) {
	slots := AutoPlace([][2]int{{40, 1}, {20, 1}, {8, 1}}, 48)
	assert.Equal(t, []Slot{{0, 0}, {1, 0}, {1, 20}}, slots)
}

func TestFlowRowWrapping(t *testing.T) {
	placed, rows := Flow(domain.Layout{
		{ID: "s", ColSpan: 48, RowSpan: 6},
		{ID: "q", ColSpan: 24, RowSpan: 12},
		{ID: "r", ColSpan: 24, RowSpan: 16},
		{ID: "u", ColSpan: 24, RowSpan: 20},
		{ID: "o", ColSpan: 12, RowSpan: 14},
		{ID: "c", ColSpan: 12, RowSpan: 16},
		{ID: "z"},
	}, 48)
	want := [][2]int{{0, 0}, {6, 0}, {6, 24}, {22, 0}, {22, 24}, {22, 36}, {42, 0}}
	for i, p := range placed {
		assert.Equal(t, want[i], [2]int{p.Row, p.Col}, "widget %s", p.Widget.ID)
	}
	assert.Equal(t, 24, placed[6].ColSpan)
	assert.Equal(t, 8, placed[6].RowSpan)
	assert.Equal(t, 50, rows)

	_, rows = Flow(nil, 48)
	assert.Equal(t, 0, rows)
}
