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
	"fmt"

	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/gesture"
)

// Zone is the part of a widget card under the pointer.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneBody
	ZoneHandle
	ZoneRemove
	ZoneResizeWidth
	ZoneResizeHeight
)

const (
	// HandleHeight is the header strip that starts a drag.
	HandleHeight float32 = 24
	// EdgeGrip is the thickness of the trailing and bottom resize edges.
	EdgeGrip float32 = 8
	// RemoveSize is the side of the remove button in the header's corner.
	RemoveSize float32 = 18
)

// Hit is the result of a hit test.
type Hit struct {
	ID   string
	Zone Zone
	Box  geom.Rect
}

// HitTest finds the card and zone under p. aff returns the controls shown on
// a card; zones whose control is hidden fall through to the body.
func HitTest(targets []gesture.Target, p geom.Pt, aff func(id string) gesture.WidgetAffordances) Hit {
	for i := len(targets) - 1; i >= 0; i-- {
		t := targets[i]
		if t.Box.Empty() || !t.Box.Contains(p) {
			continue
		}
		a := aff(t.ID)
		h := Hit{ID: t.ID, Zone: ZoneBody, Box: t.Box}
		right := t.Box.X + t.Box.W
		bottom := t.Box.Y + t.Box.H
		switch {
		case a.Remove && p.Y < t.Box.Y+RemoveSize && p.X >= right-RemoveSize:
			h.Zone = ZoneRemove
		case a.ResizeHandles && p.X >= right-EdgeGrip:
			h.Zone = ZoneResizeWidth
		case a.ResizeHandles && p.Y >= bottom-EdgeGrip:
			h.Zone = ZoneResizeHeight
		case a.DragHandle && p.Y < t.Box.Y+HandleHeight:
			h.Zone = ZoneHandle
		}
		return h
	}
	return Hit{}
}

// spanLabel is the "cols×rows" caption shown on a card.
func spanLabel(w domain.WidgetInstance) string {
	return fmt.Sprintf("%d×%d", w.ColSpan, w.RowSpan)
}
