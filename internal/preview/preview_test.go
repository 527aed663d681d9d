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
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"escapedash/internal/domain"
	"escapedash/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoRows() domain.Layout {
	return domain.Layout{
		{ID: "a", Type: registry.TypeStats, ColSpan: 48, RowSpan: 5},
		{ID: "b", Type: registry.TypeRevenueChart, ColSpan: 32, RowSpan: 14},
		{ID: "c", Type: "mystery", ColSpan: 24, RowSpan: 8},
	}
}

func TestSwatchFor(t *testing.T) {
	assert.Equal(t, "RC", SwatchFor(registry.TypeRevenueChart).Label)
	assert.Equal(t, "?", SwatchFor("mystery").Label)
	assert.Equal(t, unknownSwatch.Fill, SwatchFor("").Fill)
}

func TestGeometryFollowsRowFlow(t *testing.T) {
	size, boxes := Geometry(twoRows(), Options{Scale: 2})
	require.Len(t, boxes, 3)
	assert.Equal(t, 96, size.X)

	// a fills row 0..5, b starts a new row, c does not fit beside b.
	assert.Equal(t, image.Pt(0, 0), boxes[0].Rect.Min)
	assert.Equal(t, 0, boxes[1].Rect.Min.X)
	assert.Equal(t, 8, boxes[1].Rect.Min.Y) // 5 rows * 1.6px
	assert.Equal(t, 0, boxes[2].Rect.Min.X)
	assert.Equal(t, 30, boxes[2].Rect.Min.Y) // 19 rows * 1.6px
	assert.Equal(t, 43, size.Y)              // 27 rows * 1.6px
	assert.Equal(t, "?", boxes[2].Swatch.Label)
}

func TestGeometryMinimumHeight(t *testing.T) {
	size, _ := Geometry(domain.Layout{{ID: "x", Type: registry.TypeNotes, ColSpan: 12, RowSpan: 5}}, Options{Scale: 2})
	assert.Equal(t, minHeight, size.Y)
}

func TestRenderDrawsSwatches(t *testing.T) {
	img := Render(twoRows(), Options{Labels: true})
	_, boxes := Geometry(twoRows(), Options{})
	c := boxes[1].Rect.Min.Add(image.Pt(3, 3))
	assert.Equal(t, SwatchFor(registry.TypeRevenueChart).Fill, img.RGBAAt(c.X, c.Y))
}

func TestRenderEmpty(t *testing.T) {
	img := Render(nil, Options{})
	assert.Equal(t, emptyHeight, img.Bounds().Dy())
	assert.Equal(t, emptyFill, img.RGBAAt(1, 1))
}

func TestWritePNGDecodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, twoRows(), Options{Scale: CompactScale}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 72, img.Bounds().Dx())
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	sheets := []Sheet{
		{Title: "Operación diaria", Subtitle: "3 widgets", Layout: twoRows()},
		{Title: "Vacía", Layout: nil},
	}
	for i := 0; i < 12; i++ {
		sheets = append(sheets, Sheet{Title: "Relleno", Layout: twoRows()})
	}
	require.NoError(t, WritePDF(&buf, sheets, PDFOptions{Labels: true}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFNeedsSheets(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, WritePDF(&buf, nil, PDFOptions{}))
}

func TestSaveFiles(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "out", "layout.png")
	pdfPath := filepath.Join(dir, "out", "layouts.pdf")
	require.NoError(t, SavePNG(pngPath, twoRows(), Options{}))
	require.NoError(t, SavePDF(pdfPath, []Sheet{{Title: "x", Layout: twoRows()}}, PDFOptions{}))
	for _, p := range []string{pngPath, pdfPath} {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}

	err := SavePDF(filepath.Join(dir, "none.pdf"), nil, PDFOptions{})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "none.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}
