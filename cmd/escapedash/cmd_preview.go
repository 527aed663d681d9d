/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"escapedash/internal/layout"
	"escapedash/internal/preview"
	"escapedash/internal/session"
)

var errNoSource = errors.New("nothing to preview: pass --collection, --template, --all-collections, --all-templates or --default")

type previewFlags struct {
	output         string
	collections    []string
	templates      []string
	allCollections bool
	allTemplates   bool
	defaults       bool
	scale          float64
	noLabels       bool
	title          string
}

func newPreviewCmd() *cobra.Command {
	var f previewFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Export layout thumbnails as PNG or a PDF overview",
		Long: "preview renders collections and templates as grid thumbnails. A .png output takes exactly one layout;\n" +
			"a .pdf output places one miniature per layout on A4 pages.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := strings.ToLower(filepath.Ext(f.output))
			if ext != ".png" && ext != ".pdf" {
				return fmt.Errorf("output %q: use a .png or .pdf file name", f.output)
			}
			if len(f.collections)+len(f.templates) == 0 && !f.allCollections && !f.allTemplates && !f.defaults {
				return errNoSource
			}
			var sheets []preview.Sheet
			if f.defaults {
				sheets = append(sheets, preview.Sheet{Title: "Diseño por defecto", Layout: layout.DefaultLayout()})
			}
			if len(f.collections)+len(f.templates) > 0 || f.allCollections || f.allTemplates {
				err := withSession(cmd, func(ctx context.Context, s *session.Session) error {
					more, err := gatherSheets(ctx, s, f)
					sheets = append(sheets, more...)
					return err
				})
				if err != nil {
					return err
				}
			}
			if len(sheets) == 0 {
				return errNoSource
			}
			labels := !f.noLabels
			if ext == ".png" {
				if len(sheets) != 1 {
					return fmt.Errorf("a PNG holds one layout, got %d; use a .pdf output", len(sheets))
				}
				if err := preview.SavePNG(f.output, sheets[0].Layout, preview.Options{Scale: f.scale, Labels: labels}); err != nil {
					return err
				}
			} else {
				title := f.title
				if title == "" {
					title = "Dashboards"
				}
				if err := preview.SavePDF(f.output, sheets, preview.PDFOptions{Title: title, Labels: labels}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d layouts)\n", f.output, len(sheets))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file (.png or .pdf)")
	fl.StringSliceVar(&f.collections, "collection", nil, "collection id (repeatable)")
	fl.StringSliceVar(&f.templates, "template", nil, "template id (repeatable)")
	fl.BoolVar(&f.allCollections, "all-collections", false, "include every collection")
	fl.BoolVar(&f.allTemplates, "all-templates", false, "include every template")
	fl.BoolVar(&f.defaults, "default", false, "include the built-in default layout")
	fl.Float64Var(&f.scale, "scale", preview.DefaultScale, "PNG column width in pixels")
	fl.BoolVar(&f.noLabels, "no-labels", false, "omit the short type labels")
	fl.StringVar(&f.title, "title", "", "PDF document title")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func gatherSheets(ctx context.Context, s *session.Session, f previewFlags) ([]preview.Sheet, error) {
	var sheets []preview.Sheet
	if f.allCollections {
		cols, err := s.Client.ListCollections(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			sheets = append(sheets, preview.Sheet{Title: c.Name, Subtitle: c.Description, Layout: c.Layout})
		}
	}
	for _, id := range f.collections {
		c, err := s.Client.GetCollection(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", id, err)
		}
		sheets = append(sheets, preview.Sheet{Title: c.Name, Subtitle: c.Description, Layout: c.Layout})
	}
	if f.allTemplates {
		tpls, err := s.Client.ListTemplates(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tpls {
			sheets = append(sheets, preview.Sheet{Title: t.Name, Subtitle: t.Description, Layout: t.Layout})
		}
	}
	for _, id := range f.templates {
		t, err := s.Client.GetTemplate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		sheets = append(sheets, preview.Sheet{Title: t.Name, Subtitle: t.Description, Layout: t.Layout})
	}
	return sheets, nil
}
