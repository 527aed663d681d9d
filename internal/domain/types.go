/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the layout engine, the collections client
// and the local cache. JSON tags follow the collections service wire format.

// GridColumns is the fixed width of the dashboard grid in columns.
const GridColumns = 48

// Axis selects the span a resize acts on.
type Axis int

const (
	AxisWidth  Axis = iota // colSpan, trailing edge
	AxisHeight             // rowSpan, bottom edge
)

func (a Axis) String() string {
	if a == AxisHeight {
		return "height"
	}
	return "width"
}

// Config is a sparse per-instance override of a widget's default configuration.
type Config map[string]any

// Clone returns a deep copy of c. Nested maps and slices are copied; other values are shared.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new Config with partial shallow-merged over c.
func (c Config) Merge(partial Config) Config {
	out := make(Config, len(c)+len(partial))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Config(t).Clone())
	case Config:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// WidgetInstance is one placed widget.
type WidgetInstance struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	ColSpan int    `json:"colSpan"`
	RowSpan int    `json:"rowSpan"`
	Config  Config `json:"config,omitempty"`
}

// Clone returns a deep copy of w.
func (w WidgetInstance) Clone() WidgetInstance {
	w.Config = w.Config.Clone()
	return w
}

// Layout is the ordered sequence of widget instances. Order is the visual reading order.
type Layout []WidgetInstance

// Clone returns a deep copy of l. A nil layout clones to an empty, non-nil one.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for i := range l {
		out[i] = l[i].Clone()
	}
	return out
}

// IndexOf returns the position of the instance with the given id, or -1.
func (l Layout) IndexOf(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// IDs lists instance ids in order.
func (l Layout) IDs() []string {
	ids := make([]string, len(l))
	for i := range l {
		ids[i] = l[i].ID
	}
	return ids
}

// Collection is a named, server-persisted layout. At most one is active per user.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Layout      Layout `json:"layout"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Template is a read-only preset layout.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Layout      Layout `json:"layout"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

// CollectionDraft is the body of a create request.
type CollectionDraft struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Layout      Layout `json:"layout"`
}

// CollectionPatch is the body of an update request. Nil fields are left untouched.
type CollectionPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Layout      *Layout `json:"layout,omitempty"`
}

// LayoutPatch builds a patch replacing only the layout.
func LayoutPatch(l Layout) CollectionPatch {
	c := l.Clone()
	return CollectionPatch{Layout: &c}
}

// DefinitionRecord is the server-side overlay of a widget definition.
type DefinitionRecord struct {
	ID            string `json:"id,omitempty"`
	Slug          string `json:"slug"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	DefaultConfig Config `json:"default_config,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

// DefinitionPatch is the body of a definition update request.
type DefinitionPatch struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	DefaultConfig Config  `json:"default_config,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}
