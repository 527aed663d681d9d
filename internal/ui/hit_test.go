/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package ui

import (
	"testing"

	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/gesture"
)

func TestHitTest(t *testing.T) {
	targets := []gesture.Target{
		{ID: "A", Box: geom.R(0, 0, 200, 100)},
		{ID: "B", Box: geom.R(200, 0, 200, 100)},
		{ID: "gone", Box: geom.R(0, 100, 0, 0)},
	}
	editing := func(string) gesture.WidgetAffordances {
		return gesture.WidgetAffordances{DragHandle: true, ResizeHandles: true, Remove: true}
	}
	viewing := func(string) gesture.WidgetAffordances { return gesture.WidgetAffordances{} }

	cases := []struct {
		name string
		p    geom.Pt
		aff  func(string) gesture.WidgetAffordances
		id   string
		zone Zone
	}{
		{"body", geom.Pt{X: 100, Y: 60}, editing, "A", ZoneBody},
		{"handle", geom.Pt{X: 50, Y: 10}, editing, "A", ZoneHandle},
		{"remove", geom.Pt{X: 190, Y: 5}, editing, "A", ZoneRemove},
		{"width edge", geom.Pt{X: 396, Y: 50}, editing, "B", ZoneResizeWidth},
		{"height edge", geom.Pt{X: 250, Y: 96}, editing, "B", ZoneResizeHeight},
		{"viewing has no controls", geom.Pt{X: 50, Y: 10}, viewing, "A", ZoneBody},
		{"outside", geom.Pt{X: 500, Y: 500}, editing, "", ZoneNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := HitTest(targets, tc.p, tc.aff)
			if h.ID != tc.id || h.Zone != tc.zone {
				t.Fatalf("HitTest(%v) = %s/%d, want %s/%d", tc.p, h.ID, h.Zone, tc.id, tc.zone)
			}
		})
	}
}

func TestSpanLabel(t *testing.T) {
	if got := spanLabel(domain.WidgetInstance{ColSpan: 24, RowSpan: 12}); got != "24×12" {
		t.Fatalf("spanLabel = %q", got)
	}
}
