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
	"errors"
	"fmt"
	"image/color"
	"io"

	"escapedash/internal/domain"
	"escapedash/internal/grid"

	"github.com/jung-kurt/gofpdf"
)

// Sheet is one layout on the PDF overview.
type Sheet struct {
	Title    string
	Subtitle string
	Layout   domain.Layout
}

// PDFOptions controls the overview document. Units are points.
type PDFOptions struct {
	Title  string
	Margin float64
	Labels bool
}

const (
	pageW     = 595.28 // A4
	pageH     = 841.89
	titleSize = 12.0
	subSize   = 9.0
	labelSize = 7.0
	gap       = 18.0
)

// WritePDF writes an A4 document with one miniature per sheet, flowing down
// the pages.
func WritePDF(w io.Writer, sheets []Sheet, opt PDFOptions) error {
	if len(sheets) == 0 {
		return errors.New("no layouts to export")
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 36
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := opt.Title
	if title == "" {
		title = "Dashboard layouts"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("escapedash", false)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetFont("Helvetica", "", titleSize)

	contentW := pageW - 2*margin
	colW := contentW / domain.GridColumns
	rowH := colW * 0.8

	pdf.AddPage()
	y := margin
	for _, s := range sheets {
		_, rows := grid.Flow(s.Layout, domain.GridColumns)
		boxH := max(float64(rows)*rowH, 40)
		blockH := titleSize*1.4 + boxH
		if s.Subtitle != "" {
			blockH += subSize * 1.4
		}
		if y+blockH > pageH-margin && y > margin {
			pdf.AddPage()
			y = margin
		}

		pdf.SetFont("Helvetica", "B", titleSize)
		setTextColor(pdf, color.RGBA{A: 255})
		y += titleSize
		pdf.Text(margin, y, tr(s.Title))
		y += titleSize * 0.4
		if s.Subtitle != "" {
			pdf.SetFont("Helvetica", "", subSize)
			setTextColor(pdf, mutedInk)
			y += subSize
			pdf.Text(margin, y, tr(s.Subtitle))
			y += subSize * 0.4
		}
		drawLayout(pdf, s.Layout, margin, y, contentW, boxH, colW, rowH, opt.Labels)
		y += boxH + gap
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawLayout(pdf *gofpdf.Fpdf, l domain.Layout, x, y, w, h, colW, rowH float64, labels bool) {
	setDrawColor(pdf, frame)
	pdf.SetLineWidth(0.5)
	if len(l) == 0 {
		setFillColor(pdf, emptyFill)
		pdf.Rect(x, y, w, h, "FD")
		pdf.SetFont("Helvetica", "", labelSize)
		setTextColor(pdf, mutedInk)
		tw := pdf.GetStringWidth(emptyText)
		pdf.Text(x+(w-tw)/2, y+h/2+labelSize/3, emptyText)
		return
	}
	setFillColor(pdf, background)
	pdf.Rect(x, y, w, h, "FD")

	placed, _ := grid.Flow(l, domain.GridColumns)
	pdf.SetLineWidth(0.25)
	setDrawColor(pdf, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	pdf.SetFont("Helvetica", "B", labelSize)
	for _, p := range placed {
		sw := SwatchFor(p.Widget.Type)
		bx := x + float64(p.Col)*colW
		by := y + float64(p.Row)*rowH
		bw := float64(p.ColSpan)*colW - 1
		bh := float64(p.RowSpan)*rowH - 1
		setFillColor(pdf, sw.Fill)
		pdf.Rect(bx, by, bw, bh, "FD")
		if !labels {
			continue
		}
		tw := pdf.GetStringWidth(sw.Label)
		if tw > bw-2 || labelSize > bh-2 {
			continue
		}
		setTextColor(pdf, labelInk)
		pdf.Text(bx+(bw-tw)/2, by+bh/2+labelSize/3, sw.Label)
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) { pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }
func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) { pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }
func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) { pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }
