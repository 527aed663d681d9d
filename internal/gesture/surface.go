/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gesture implements the edit-mode interactions of the dashboard: the edit-mode
// state machine, pointer and keyboard reordering, and edge resizing. Controllers talk to
// the host through a Surface and acquire pointer capture through a Scope owned by the view,
// so tearing the view down releases any gesture still in flight.
package gesture

import (
	"errors"
	"sync"

	"escapedash/internal/geom"
)

var (
	ErrNotEditing   = errors.New("gesture: dashboard is not in edit mode")
	ErrGestureArmed = errors.New("gesture: another gesture is in progress")
	ErrScopeClosed  = errors.New("gesture: scope closed")
	ErrNoGesture    = errors.New("gesture: no gesture in progress")
)

// Cursor is the pointer shape the host should show.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrab
	CursorGrabbing
	CursorColResize
	CursorRowResize
)

func (c Cursor) String() string {
	switch c {
	case CursorGrab:
		return "grab"
	case CursorGrabbing:
		return "grabbing"
	case CursorColResize:
		return "col-resize"
	case CursorRowResize:
		return "row-resize"
	default:
		return "default"
	}
}

// PointerHandler receives global pointer events while it holds a capture.
type PointerHandler interface {
	PointerMove(p geom.Pt)
	PointerUp(p geom.Pt)
}

// Surface is the host window the controllers draw feedback on.
type Surface interface {
	// Capture routes every pointer move/up to h until release is called.
	Capture(h PointerHandler) (release func())
	SetCursor(c Cursor)
	// Bounds is the visible area overlays are clamped to.
	Bounds() geom.Rect
}

// Scope owns the captures and in-flight gestures of one mounted view.
type Scope struct {
	surface Surface

	mu       sync.Mutex
	closed   bool
	next     int
	captures map[int]func()
	cancels  map[int]func()
}

func NewScope(s Surface) *Scope {
	return &Scope{surface: s, captures: map[int]func(){}, cancels: map[int]func(){}}
}

// Capture acquires a pointer capture on the surface. The returned release is idempotent.
func (s *Scope) Capture(h PointerHandler) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScopeClosed
	}
	id := s.next
	s.next++
	s.captures[id] = s.surface.Capture(h)
	return func() { s.release(id) }, nil
}

// OnClose registers fn to run when the scope closes. remove unregisters it.
func (s *Scope) OnClose(fn func()) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.cancels[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}
}

func (s *Scope) release(id int) {
	s.mu.Lock()
	fn, ok := s.captures[id]
	delete(s.captures, id)
	s.mu.Unlock()
	if ok {
		fn()
	}
}

func (s *Scope) SetCursor(c Cursor) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.surface.SetCursor(c)
	}
}

func (s *Scope) Bounds() geom.Rect { return s.surface.Bounds() }

// Live reports the number of captures still held.
func (s *Scope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures)
}

// Close cancels in-flight gestures, releases every capture and restores the default cursor.
// Later captures fail with ErrScopeClosed.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := make([]func(), 0, len(s.cancels))
	for _, fn := range s.cancels {
		cancels = append(cancels, fn)
	}
	releases := make([]func(), 0, len(s.captures))
	for _, fn := range s.captures {
		releases = append(releases, fn)
	}
	s.cancels = map[int]func(){}
	s.captures = map[int]func(){}
	s.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
	for _, fn := range releases {
		fn()
	}
	s.surface.SetCursor(CursorDefault)
}

// Viewport is an in-memory Surface. Hosts without a toolkit (and tests) feed pointer
// events through Move and Up.
type Viewport struct {
	mu       sync.Mutex
	bounds   geom.Rect
	cursor   Cursor
	next     int
	handlers map[int]PointerHandler
}

func NewViewport(bounds geom.Rect) *Viewport {
	return &Viewport{bounds: bounds, handlers: map[int]PointerHandler{}}
}

func (v *Viewport) Capture(h PointerHandler) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.next
	v.next++
	v.handlers[id] = h
	return func() {
		v.mu.Lock()
		delete(v.handlers, id)
		v.mu.Unlock()
	}
}

func (v *Viewport) SetCursor(c Cursor) {
	v.mu.Lock()
	v.cursor = c
	v.mu.Unlock()
}

func (v *Viewport) Bounds() geom.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

// SetBounds updates the visible area, as on a window resize.
func (v *Viewport) SetBounds(r geom.Rect) {
	v.mu.Lock()
	v.bounds = r
	v.mu.Unlock()
}

func (v *Viewport) Cursor() Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Captured is the number of handlers currently receiving events.
func (v *Viewport) Captured() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.handlers)
}

func (v *Viewport) snapshot() []PointerHandler {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]PointerHandler, 0, len(v.handlers))
	for i := 0; i < v.next; i++ {
		if h, ok := v.handlers[i]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Move dispatches a pointer move to every capture.
func (v *Viewport) Move(p geom.Pt) {
	for _, h := range v.snapshot() {
		h.PointerMove(p)
	}
}

// Up dispatches a pointer release to every capture.
func (v *Viewport) Up(p geom.Pt) {
	for _, h := range v.snapshot() {
		h.PointerUp(p)
	}
}
