/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package registry is the catalog of widget kinds the dashboard can place.
// A static catalog is declared at start; a remote overlay may replace titles,
// descriptions and default configuration once per session through Merge.
package registry

import (
	"escapedash/internal/domain"
)

// Span minimums and defaults applied when a definition leaves them at zero.
const (
	DefaultMinColSpan = 1
	DefaultMinRowSpan = 5
	DefaultRowSpan    = 8
)

// Renderer is the opaque rendering capability of a widget kind. The layout engine
// never looks inside the returned value; hosts decide what to do with it.
type Renderer interface {
	Render(cfg domain.Config) any
}

// RenderFunc adapts a plain function to Renderer.
type RenderFunc func(cfg domain.Config) any

func (f RenderFunc) Render(cfg domain.Config) any { return f(cfg) }

// Placeholder is what the built-in renderers return: a title and a few summary lines
// a host can draw in place of the real widget content.
type Placeholder struct {
	Title string
	Lines []string
}

// Definition describes one widget kind.
type Definition struct {
	Type                string
	Title               string
	Description         string
	Render              Renderer
	DefaultColSpan      int
	DefaultRowSpan      int
	MinColSpan          int
	MinRowSpan          int
	ConfigurableOptions []string
	DefaultConfig       domain.Config
}

// MinSpan returns the lower bound on the given axis.
func (d Definition) MinSpan(axis domain.Axis) int {
	if axis == domain.AxisHeight {
		if d.MinRowSpan > 0 {
			return d.MinRowSpan
		}
		return DefaultMinRowSpan
	}
	if d.MinColSpan > 0 {
		return d.MinColSpan
	}
	return DefaultMinColSpan
}

// DefaultSpan returns the span a freshly added instance gets on the given axis,
// already inside the definition's limits.
func (d Definition) DefaultSpan(axis domain.Axis) int {
	if axis == domain.AxisHeight {
		v := d.DefaultRowSpan
		if v <= 0 {
			v = DefaultRowSpan
		}
		return max(v, d.MinSpan(axis))
	}
	v := d.DefaultColSpan
	if v <= 0 {
		v = domain.GridColumns
	}
	return min(max(v, d.MinSpan(axis)), domain.GridColumns)
}

// Configurable reports whether the kind exposes any configuration options.
func (d Definition) Configurable() bool { return len(d.ConfigurableOptions) > 0 }

// EffectiveConfig overlays an instance override on the kind's defaults.
func (d Definition) EffectiveConfig(override domain.Config) domain.Config {
	return d.DefaultConfig.Merge(override)
}

func (d Definition) clone() Definition {
	d.ConfigurableOptions = append([]string(nil), d.ConfigurableOptions...)
	d.DefaultConfig = d.DefaultConfig.Clone()
	return d
}

// Registry is an immutable, ordered set of definitions keyed by type.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// New builds a registry from definitions in the given order. Later duplicates replace earlier ones.
func New(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Type == "" {
			continue
		}
		if _, seen := r.defs[d.Type]; !seen {
			r.order = append(r.order, d.Type)
		}
		r.defs[d.Type] = d.clone()
	}
	return r
}

// Resolve returns the definition for a type. The second return value is false for unknown types.
func (r *Registry) Resolve(typ string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	d, ok := r.defs[typ]
	if !ok {
		return Definition{}, false
	}
	return d.clone(), true
}

// Available reports whether a type is registered.
func (r *Registry) Available(typ string) bool {
	if r == nil {
		return false
	}
	_, ok := r.defs[typ]
	return ok
}

// Types lists registered types in catalog order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Definitions lists definitions in catalog order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.defs[t].clone())
	}
	return out
}

// Merge overlays remote records on the local catalog and returns a new registry.
// It never fails: unknown remote types are ignored, empty remote titles and descriptions
// keep the local ones, and remote default configuration is shallow-merged over the local
// defaults. Rendering and span limits always come from the local catalog.
func Merge(local *Registry, remote []domain.DefinitionRecord) *Registry {
	out := &Registry{}
	if local != nil {
		out.defs = make(map[string]Definition, len(local.defs))
		out.order = append([]string(nil), local.order...)
		for t, d := range local.defs {
			out.defs[t] = d.clone()
		}
	} else {
		out.defs = map[string]Definition{}
	}
	for _, rec := range remote {
		d, ok := out.defs[rec.Slug]
		if !ok {
			continue
		}
		if rec.Name != "" {
			d.Title = rec.Name
		}
		if rec.Description != "" {
			d.Description = rec.Description
		}
		if len(rec.DefaultConfig) > 0 {
			d.DefaultConfig = d.DefaultConfig.Merge(rec.DefaultConfig)
		}
		out.defs[rec.Slug] = d
	}
	return out
}
