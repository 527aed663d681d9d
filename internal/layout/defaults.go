/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	"escapedash/internal/domain"
	"escapedash/internal/registry"
)

// DefaultLayout is the layout a new operator starts with and the target of Reset.
func DefaultLayout() domain.Layout {
	return domain.Layout{
		{ID: "stats-default", Type: registry.TypeStats, ColSpan: 48, RowSpan: 6},
		{ID: "quarterly-stats-default", Type: registry.TypeQuarterlyStats, ColSpan: 24, RowSpan: 12},
		{ID: "revenue-chart-default", Type: registry.TypeRevenueChart, ColSpan: 24, RowSpan: 16},
		{ID: "upcoming-default", Type: registry.TypeUpcoming, ColSpan: 24, RowSpan: 20},
		{ID: "occupancy-chart-default", Type: registry.TypeOccupancyChart, ColSpan: 12, RowSpan: 14},
		{ID: "calendar-default", Type: registry.TypeCalendar, ColSpan: 12, RowSpan: 16},
	}
}

// WithFreshIDs copies l giving every instance a new id, as when applying a template.
func WithFreshIDs(l domain.Layout, newID func(typ string) string) domain.Layout {
	if newID == nil {
		newID = NewInstanceID
	}
	out := l.Clone()
	for i := range out {
		out[i].ID = newID(out[i].Type)
	}
	return out
}
