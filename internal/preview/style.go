/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package preview renders miniature pictures of dashboard layouts: PNG
// thumbnails for template pickers and a PDF sheet listing several layouts.
package preview

import (
	"image/color"

	"escapedash/internal/registry"
)

// Swatch is how one widget type is drawn in a preview.
type Swatch struct {
	Fill  color.RGBA
	Label string
}

var (
	unknownSwatch = Swatch{Fill: rgb(0xd1, 0xd5, 0xdb), Label: "?"}

	background = rgb(0xf9, 0xfa, 0xfb)
	emptyFill  = rgb(0xf3, 0xf4, 0xf6)
	frame      = rgb(0xe5, 0xe7, 0xeb)
	labelInk   = rgb(0x4b, 0x55, 0x63)
	mutedInk   = rgb(0x9c, 0xa3, 0xaf)
	cellEdge   = color.RGBA{R: 255, G: 255, B: 255, A: 128}
)

var swatches = map[string]Swatch{
	registry.TypeStats:          {Fill: rgb(0xbf, 0xdb, 0xfe), Label: "S"},
	registry.TypeUpcoming:       {Fill: rgb(0xbb, 0xf7, 0xd0), Label: "U"},
	registry.TypeTeam:           {Fill: rgb(0xe9, 0xd5, 0xff), Label: "T"},
	registry.TypeRevenue:        {Fill: rgb(0xfe, 0xf0, 0x8a), Label: "R"},
	registry.TypeCalendar:       {Fill: rgb(0xfb, 0xcf, 0xe8), Label: "C"},
	registry.TypeNotes:          {Fill: rgb(0xfe, 0xd7, 0xaa), Label: "N"},
	registry.TypeRevenueChart:   {Fill: rgb(0xc7, 0xd2, 0xfe), Label: "RC"},
	registry.TypeOccupancyChart: {Fill: rgb(0x99, 0xf6, 0xe4), Label: "OC"},
	registry.TypeQuarterlyStats: {Fill: rgb(0xa5, 0xf3, 0xfc), Label: "QS"},
	registry.TypeRevenueTable:   {Fill: rgb(0xfe, 0xcd, 0xd3), Label: "RT"},
}

// SwatchFor returns the swatch of typ, or the grey "?" swatch for types
// without one.
func SwatchFor(typ string) Swatch {
	if s, ok := swatches[typ]; ok {
		return s
	}
	return unknownSwatch
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }
