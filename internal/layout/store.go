/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package layout holds the dashboard's layout state: the ordered widget instances and the
// id of the active collection. The Store is owned by the dashboard view and injected into
// the gesture controllers and the synchronizer; it performs no I/O.
package layout

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"escapedash/internal/domain"
	"escapedash/internal/registry"
)

var (
	ErrUnknownWidget   = errors.New("layout: unknown widget")
	ErrIndexOutOfRange = errors.New("layout: index out of range")
	ErrUnknownType     = errors.New("layout: unknown widget type")
)

// Resolver looks up widget kinds. *registry.Registry satisfies it.
type Resolver interface {
	Resolve(typ string) (registry.Definition, bool)
}

// ChangeKind says what a Change did.
type ChangeKind int

const (
	Replaced ChangeKind = iota + 1
	Added
	Removed
	Reordered
	Resized
	Configured
	ActiveChanged
	Reset
)

var kindNames = map[ChangeKind]string{
	Replaced: "replaced", Added: "added", Removed: "removed", Reordered: "reordered",
	Resized: "resized", Configured: "configured", ActiveChanged: "active_changed", Reset: "reset",
}

func (k ChangeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// AltersLayout reports whether the change touched widgets rather than only the active id.
func (k ChangeKind) AltersLayout() bool { return k != ActiveChanged }

// Change is delivered to listeners after every mutation.
type Change struct {
	Rev              uint64
	Kind             ChangeKind
	Layout           domain.Layout // state after the change
	Prev             domain.Layout // state before the change
	ActiveCollection string
}

// Listener observes changes. It runs synchronously on the mutating goroutine, after the
// store lock has been released, so it may read from the store. It must not mutate it.
type Listener func(Change)

// Store is the single owner of the layout. All operations are synchronous and safe for
// concurrent use; listeners are notified in program order.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	resolver Resolver
	newID    func(typ string) string

	widgets domain.Layout
	active  string
	rev     uint64

	listeners map[int]Listener
	nextLn    int
}

// Option customizes a Store.
type Option func(*Store)

// WithIDFunc replaces the instance id generator.
func WithIDFunc(f func(typ string) string) Option { return func(s *Store) { s.newID = f } }

// NewStore creates an empty store.
func NewStore(resolver Resolver, opts ...Option) *Store {
	s := &Store{
		resolver:  resolver,
		newID:     NewInstanceID,
		widgets:   domain.Layout{},
		listeners: map[int]Listener{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewInstanceID returns "<type>-<uuid>".
func NewInstanceID(typ string) string { return typ + "-" + uuid.NewString() }

// Subscribe registers fn and returns a func removing it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextLn
	s.nextLn++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a deep copy of the current layout.
func (s *Store) Snapshot() domain.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widgets.Clone()
}

// ActiveCollection returns the id of the active collection, "" when none.
func (s *Store) ActiveCollection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Revision returns the number of changes applied so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Widget returns a copy of one instance.
func (s *Store) Widget(id string) (domain.WidgetInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.widgets.IndexOf(id)
	if i < 0 {
		return domain.WidgetInstance{}, fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	return s.widgets[i].Clone(), nil
}

// IndexOf returns the position of an instance, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widgets.IndexOf(id)
}

// Len returns the number of placed widgets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// Limits returns the allowed span range of a widget on an axis. max is 0 when unbounded.
func (s *Store) Limits(id string, axis domain.Axis) (lo, hi int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.widgets.IndexOf(id)
	if i < 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	lo, hi = s.limitsLocked(s.widgets[i].Type, axis)
	return lo, hi, nil
}

func (s *Store) limitsLocked(typ string, axis domain.Axis) (lo, hi int) {
	var def registry.Definition
	if s.resolver != nil {
		def, _ = s.resolver.Resolve(typ)
	}
	lo = def.MinSpan(axis)
	if axis == domain.AxisWidth {
		return lo, domain.GridColumns
	}
	return lo, 0
}

// Clamp bounds v to the span range of typ on axis.
func (s *Store) Clamp(typ string, axis domain.Axis, v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := s.limitsLocked(typ, axis)
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

// normalize enforces the span invariant on every instance, fills missing spans and
// renames repeated instance ids.
func (s *Store) normalizeLocked(l domain.Layout) domain.Layout {
	out := l.Clone()
	taken := make(map[string]bool, len(out))
	for _, w := range out {
		taken[w.ID] = true
	}
	seen := make(map[string]bool, len(out))
	for i := range out {
		w := &out[i]
		// Ids are unique: a repeated id is replaced, the first occurrence keeps it.
		if seen[w.ID] {
			id := s.newID(w.Type)
			for taken[id] {
				id = s.newID(w.Type)
			}
			w.ID = id
			taken[id] = true
		}
		seen[w.ID] = true
		if w.ColSpan <= 0 {
			w.ColSpan = domain.GridColumns
		}
		if w.RowSpan <= 0 {
			w.RowSpan = registry.DefaultRowSpan
		}
		lo, hi := s.limitsLocked(w.Type, domain.AxisWidth)
		w.ColSpan = clamp(w.ColSpan, lo, hi)
		lo, hi = s.limitsLocked(w.Type, domain.AxisHeight)
		w.RowSpan = clamp(w.RowSpan, lo, hi)
	}
	return out
}

// commit must be called with mu held; it unlocks mu and notifies listeners.
func (s *Store) commitAndUnlock(kind ChangeKind, prev domain.Layout) {
	s.rev++
	ch := Change{Rev: s.rev, Kind: kind, Layout: s.widgets.Clone(), Prev: prev, ActiveCollection: s.active}
	ls := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextLn; i++ {
		if fn, ok := s.listeners[i]; ok {
			ls = append(ls, fn)
		}
	}
	// notifyMu is taken before mu is released so deliveries keep revision order.
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, fn := range ls {
		fn(ch)
	}
}

// SetLayout replaces the whole layout. Spans are normalized to the invariant.
func (s *Store) SetLayout(l domain.Layout) {
	s.mu.Lock()
	prev := s.widgets.Clone()
	s.widgets = s.normalizeLocked(l)
	s.commitAndUnlock(Replaced, prev)
}

// Reset replaces the layout with defaults; listeners see a Reset change.
func (s *Store) Reset(defaults domain.Layout) {
	s.mu.Lock()
	prev := s.widgets.Clone()
	s.widgets = s.normalizeLocked(defaults)
	s.commitAndUnlock(Reset, prev)
}

// AddWidget appends a new instance of typ with the kind's default spans and returns it.
func (s *Store) AddWidget(typ string) (domain.WidgetInstance, error) {
	s.mu.Lock()
	var (
		def registry.Definition
		ok  bool
	)
	if s.resolver != nil {
		def, ok = s.resolver.Resolve(typ)
	}
	if !ok {
		s.mu.Unlock()
		return domain.WidgetInstance{}, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	id := s.newID(typ)
	for s.widgets.IndexOf(id) >= 0 {
		id = s.newID(typ)
	}
	w := domain.WidgetInstance{
		ID:      id,
		Type:    typ,
		ColSpan: def.DefaultSpan(domain.AxisWidth),
		RowSpan: def.DefaultSpan(domain.AxisHeight),
	}
	prev := s.widgets.Clone()
	s.widgets = append(s.widgets, w)
	s.commitAndUnlock(Added, prev)
	return w.Clone(), nil
}

// RemoveWidget deletes an instance.
func (s *Store) RemoveWidget(id string) error {
	s.mu.Lock()
	i := s.widgets.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	prev := s.widgets.Clone()
	s.widgets = append(s.widgets[:i:i], s.widgets[i+1:]...)
	s.commitAndUnlock(Removed, prev)
	return nil
}

// Reorder moves the instance at from to position to, shifting the others (array-move).
// Reorder(i, i) leaves the store untouched and notifies nobody.
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	n := len(s.widgets)
	if from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return fmt.Errorf("%w: reorder %d -> %d of %d", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	prev := s.widgets.Clone()
	s.widgets = Move(s.widgets, from, to)
	s.commitAndUnlock(Reordered, prev)
	return nil
}

// Move returns a new layout with the element at from moved to to.
func Move(l domain.Layout, from, to int) domain.Layout {
	out := make(domain.Layout, 0, len(l))
	item := l[from]
	for i := range l {
		if i != from {
			out = append(out, l[i])
		}
	}
	out = append(out[:to], append(domain.Layout{item}, out[to:]...)...)
	return out
}

// Resize sets one span of an instance, clamped to the kind's limits, and returns the
// stored value. Listeners are notified only when the stored span changes.
func (s *Store) Resize(id string, span int, axis domain.Axis) (int, error) {
	s.mu.Lock()
	i := s.widgets.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	w := &s.widgets[i]
	lo, hi := s.limitsLocked(w.Type, axis)
	v := clamp(span, lo, hi)
	cur := w.ColSpan
	if axis == domain.AxisHeight {
		cur = w.RowSpan
	}
	if v == cur {
		s.mu.Unlock()
		return v, nil
	}
	prev := s.widgets.Clone()
	if axis == domain.AxisHeight {
		w.RowSpan = v
	} else {
		w.ColSpan = v
	}
	s.commitAndUnlock(Resized, prev)
	return v, nil
}

// SetConfig shallow-merges partial into the instance's override.
func (s *Store) SetConfig(id string, partial domain.Config) error {
	s.mu.Lock()
	i := s.widgets.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	prev := s.widgets.Clone()
	s.widgets[i].Config = s.widgets[i].Config.Merge(partial)
	s.commitAndUnlock(Configured, prev)
	return nil
}

// SetActiveCollection records the active collection id ("" for none).
func (s *Store) SetActiveCollection(id string) {
	s.mu.Lock()
	if s.active == id {
		s.mu.Unlock()
		return
	}
	s.active = id
	s.commitAndUnlock(ActiveChanged, s.widgets.Clone())
}

// Restore replaces layout and active id in one change, as when seeding from the local cache.
func (s *Store) Restore(l domain.Layout, active string) {
	s.mu.Lock()
	prev := s.widgets.Clone()
	s.widgets = s.normalizeLocked(l)
	s.active = active
	s.commitAndUnlock(Replaced, prev)
}
