/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"escapedash/internal/domain"
	"escapedash/internal/grid"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultScale is the width of one grid column in pixels.
	DefaultScale = 6
	// CompactScale suits dropdown-sized thumbnails.
	CompactScale = 1.5

	minHeight   = 40
	emptyHeight = 64
	emptyText   = "Sin widgets"
)

// Options controls thumbnail geometry.
type Options struct {
	// Scale is the column width in pixels; a row is 0.8 of it.
	Scale float64
	// Columns defaults to the dashboard grid width.
	Columns int
	// Labels draws the short type label inside each box when it fits.
	Labels bool
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Columns <= 0 {
		o.Columns = domain.GridColumns
	}
	return o
}

// Box is a widget rectangle in thumbnail pixels.
type Box struct {
	Widget domain.WidgetInstance
	Rect   image.Rectangle
	Swatch Swatch
}

// Geometry computes the thumbnail size and the widget boxes without drawing.
func Geometry(l domain.Layout, opt Options) (image.Point, []Box) {
	opt = opt.withDefaults()
	colW := opt.Scale
	rowH := opt.Scale * 0.8
	width := int(math.Round(float64(opt.Columns) * colW))
	if len(l) == 0 {
		return image.Pt(width, emptyHeight), nil
	}
	placed, rows := grid.Flow(l, opt.Columns)
	height := max(int(math.Round(float64(rows)*rowH)), minHeight)
	boxes := make([]Box, 0, len(placed))
	for _, p := range placed {
		x0 := int(math.Round(float64(p.Col) * colW))
		y0 := int(math.Round(float64(p.Row) * rowH))
		x1 := int(math.Round(float64(p.Col+p.ColSpan)*colW)) - 1
		y1 := int(math.Round(float64(p.Row+p.RowSpan)*rowH)) - 1
		boxes = append(boxes, Box{
			Widget: p.Widget,
			Rect:   image.Rect(x0, y0, max(x1, x0+1), max(y1, y0+1)),
			Swatch: SwatchFor(p.Widget.Type),
		})
	}
	return image.Pt(width, height), boxes
}

// Render draws the thumbnail of l.
func Render(l domain.Layout, opt Options) *image.RGBA {
	size, boxes := Geometry(l, opt)
	img := image.NewRGBA(image.Rectangle{Max: size})
	if len(l) == 0 {
		draw.Draw(img, img.Bounds(), &image.Uniform{C: emptyFill}, image.Point{}, draw.Src)
		drawCentered(img, img.Bounds(), emptyText, mutedInk)
		return img
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	for _, b := range boxes {
		r := b.Rect.Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(img, r, &image.Uniform{C: b.Swatch.Fill}, image.Point{}, draw.Src)
		strokeRect(img, r, cellEdge)
		if opt.Labels {
			drawCentered(img, r, b.Swatch.Label, labelInk)
		}
	}
	strokeRect(img, img.Bounds(), frame)
	return img
}

// WritePNG encodes the thumbnail of l to w.
func WritePNG(w io.Writer, l domain.Layout, opt Options) error {
	if err := png.Encode(w, Render(l, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// drawCentered writes s in the middle of r with the 7x13 bitmap face. Text
// that does not fit is skipped.
func drawCentered(img *image.RGBA, r image.Rectangle, s string, ink color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(ink), Face: face}
	w := d.MeasureString(s).Ceil()
	m := face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()
	if w > r.Dx()-2 || h > r.Dy()-2 {
		return
	}
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2 + m.Ascent.Ceil()
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// strokeRect blends a 1px border inside r.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	if r.Empty() {
		return
	}
	src := &image.Uniform{C: col}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Over)
	}
}
