/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"sync"

	"escapedash/internal/geom"
)

// ReorderStore is the part of the layout store the reorder controller drives.
type ReorderStore interface {
	IndexOf(id string) int
	Reorder(from, to int) error
}

// Target is a visible widget's bounding box, as reported by the host.
type Target struct {
	ID  string
	Box geom.Rect
}

// Direction is a keyboard step.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Key is a key press delivered to a focused drag handle.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyEnter
	KeyEscape
)

// DragState describes a drag in progress for the host to draw.
type DragState struct {
	ID          string
	Overlay     geom.Rect // follows the pointer, clamped to the surface bounds
	Placeholder geom.Rect // the dimmed source slot
	Over        string    // target under the overlay by nearest center
	Keyboard    bool
}

// ReorderOptions tunes the controller.
type ReorderOptions struct {
	// Threshold is how far the pointer must travel before a press becomes a drag. 8px.
	Threshold float32
	// OnDrop fires after a drop that changed the order.
	OnDrop func(id string, from, to int)
}

// ReorderController moves widgets in the layout sequence by drag-and-drop.
type ReorderController struct {
	store   ReorderStore
	mode    *EditMode
	scope   *Scope
	targets func() []Target
	opts    ReorderOptions

	mu   sync.Mutex
	drag *dragGesture
}

func NewReorderController(store ReorderStore, mode *EditMode, scope *Scope, targets func() []Target, opts ReorderOptions) *ReorderController {
	if opts.Threshold <= 0 {
		opts.Threshold = 8
	}
	return &ReorderController{store: store, mode: mode, scope: scope, targets: targets, opts: opts}
}

type dragGesture struct {
	c        *ReorderController
	id       string
	press    geom.Pt
	source   geom.Rect
	overlay  geom.Rect
	over     string
	armed    bool
	keyboard bool
	token    uint64
	release  func()
	unhook   func()
	done     bool
}

// Press registers a pointer press on a widget's drag handle. Nothing moves until the
// pointer travels past the threshold; a release before that is a plain click.
func (c *ReorderController) Press(id string, p geom.Pt) error {
	if !c.mode.Editing() {
		return ErrNotEditing
	}
	if c.mode.Activity() != Idle {
		return ErrGestureArmed
	}
	box, ok := c.boxOf(id)
	if !ok {
		box = geom.R(p.X, p.Y, 0, 0)
	}
	g := &dragGesture{c: c, id: id, press: p, source: box, overlay: box, over: id}
	c.mu.Lock()
	if c.drag != nil {
		c.mu.Unlock()
		return ErrGestureArmed
	}
	c.drag = g
	c.mu.Unlock()

	release, err := c.scope.Capture(g)
	if err != nil {
		c.mu.Lock()
		c.drag = nil
		c.mu.Unlock()
		return err
	}
	unhook := c.scope.OnClose(g.cancel)
	c.mu.Lock()
	g.release, g.unhook = release, unhook
	c.mu.Unlock()
	c.scope.SetCursor(CursorGrab)
	return nil
}

// State returns the drag in progress, if it has armed.
func (c *ReorderController) State() (DragState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.drag
	if g == nil || !g.armed {
		return DragState{}, false
	}
	return DragState{ID: g.id, Overlay: g.overlay, Placeholder: g.source, Over: g.over, Keyboard: g.keyboard}, true
}

func (c *ReorderController) boxOf(id string) (geom.Rect, bool) {
	if c.targets == nil {
		return geom.Rect{}, false
	}
	for _, t := range c.targets() {
		if t.ID == id {
			return t.Box, true
		}
	}
	return geom.Rect{}, false
}

// nearest returns the target whose center is closest to p.
func nearest(targets []Target, p geom.Pt) (string, bool) {
	best, bestD, found := "", float32(0), false
	for _, t := range targets {
		if t.Box.Empty() {
			continue
		}
		d := t.Box.Center().Dist2(p)
		if !found || d < bestD {
			best, bestD, found = t.ID, d, true
		}
	}
	return best, found
}

func (g *dragGesture) PointerMove(p geom.Pt) {
	c := g.c
	c.mu.Lock()
	if g.done || g.keyboard {
		c.mu.Unlock()
		return
	}
	armed := g.armed
	c.mu.Unlock()

	if !armed {
		if p.Dist2(g.press) < c.opts.Threshold*c.opts.Threshold {
			return
		}
		token, err := c.mode.Arm(Dragging, g.cancel)
		if err != nil {
			g.finish()
			return
		}
		c.mu.Lock()
		g.armed, g.token = true, token
		c.mu.Unlock()
		c.scope.SetCursor(CursorGrabbing)
	}

	overlay := g.source.Translate(p.Sub(g.press)).ClampInside(c.scope.Bounds())
	var over string
	if c.targets != nil {
		over, _ = nearest(c.targets(), overlay.Center())
	}
	c.mu.Lock()
	g.overlay = overlay
	if over != "" {
		g.over = over
	}
	c.mu.Unlock()
}

func (g *dragGesture) PointerUp(geom.Pt) {
	c := g.c
	c.mu.Lock()
	armed, done := g.armed, g.done
	c.mu.Unlock()
	if done {
		return
	}
	if armed {
		g.drop()
	}
	g.finish()
}

func (g *dragGesture) drop() {
	c := g.c
	c.mu.Lock()
	over := g.over
	c.mu.Unlock()
	if over == "" || over == g.id {
		return
	}
	from, to := c.store.IndexOf(g.id), c.store.IndexOf(over)
	if from < 0 || to < 0 || from == to {
		return
	}
	if err := c.store.Reorder(from, to); err == nil && c.opts.OnDrop != nil {
		c.opts.OnDrop(g.id, from, to)
	}
}

func (g *dragGesture) cancel() { g.finish() }

func (g *dragGesture) finish() {
	c := g.c
	c.mu.Lock()
	if g.done {
		c.mu.Unlock()
		return
	}
	g.done = true
	if c.drag == g {
		c.drag = nil
	}
	release, unhook, armed, token := g.release, g.unhook, g.armed, g.token
	c.mu.Unlock()

	if release != nil {
		release()
	}
	if unhook != nil {
		unhook()
	}
	if armed {
		c.mode.Disarm(token)
	}
	c.scope.SetCursor(CursorDefault)
}

// PickUp starts a keyboard drag of widget id.
func (c *ReorderController) PickUp(id string) error {
	box, _ := c.boxOf(id)
	g := &dragGesture{c: c, id: id, source: box, overlay: box, over: id, keyboard: true, armed: true}
	c.mu.Lock()
	if c.drag != nil {
		c.mu.Unlock()
		return ErrGestureArmed
	}
	c.drag = g
	c.mu.Unlock()

	token, err := c.mode.Arm(Dragging, g.cancel)
	if err != nil {
		c.mu.Lock()
		c.drag = nil
		c.mu.Unlock()
		return err
	}
	unhook := c.scope.OnClose(g.cancel)
	c.mu.Lock()
	g.token, g.unhook = token, unhook
	c.mu.Unlock()
	return nil
}

// Step moves the keyboard drag's target to the nearest widget in direction d.
func (c *ReorderController) Step(d Direction) error {
	c.mu.Lock()
	g := c.drag
	if g == nil || !g.keyboard {
		c.mu.Unlock()
		return ErrNoGesture
	}
	cur := g.overlay
	c.mu.Unlock()

	if c.targets == nil {
		return nil
	}
	from := cur.Center()
	var (
		best  Target
		bestD float32
		found bool
	)
	for _, t := range c.targets() {
		ct := t.Box.Center()
		if t.Box.Empty() || !inDirection(from, ct, d) {
			continue
		}
		dist := from.Dist2(ct)
		if !found || dist < bestD {
			best, bestD, found = t, dist, true
		}
	}
	if !found {
		return nil
	}
	c.mu.Lock()
	if c.drag == g {
		g.overlay = best.Box
		g.over = best.ID
	}
	c.mu.Unlock()
	return nil
}

func inDirection(from, to geom.Pt, d Direction) bool {
	switch d {
	case Up:
		return to.Y < from.Y
	case Down:
		return to.Y > from.Y
	case Left:
		return to.X < from.X
	default:
		return to.X > from.X
	}
}

// Drop completes the keyboard drag at the current target.
func (c *ReorderController) Drop() error {
	c.mu.Lock()
	g := c.drag
	c.mu.Unlock()
	if g == nil || !g.keyboard {
		return ErrNoGesture
	}
	g.drop()
	g.finish()
	return nil
}

// Cancel abandons the drag in progress without reordering.
func (c *ReorderController) Cancel() {
	c.mu.Lock()
	g := c.drag
	c.mu.Unlock()
	if g != nil {
		g.finish()
	}
}

// HandleKey routes a key pressed on widget id's drag handle. It reports whether the key
// was consumed.
func (c *ReorderController) HandleKey(id string, k Key) (bool, error) {
	c.mu.Lock()
	g := c.drag
	c.mu.Unlock()
	active := g != nil && g.keyboard
	switch k {
	case KeySpace, KeyEnter:
		if active {
			return true, c.Drop()
		}
		return true, c.PickUp(id)
	case KeyEscape:
		if !active {
			return false, nil
		}
		c.Cancel()
		return true, nil
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		if !active {
			return false, nil
		}
		return true, c.Step(map[Key]Direction{KeyUp: Up, KeyDown: Down, KeyLeft: Left, KeyRight: Right}[k])
	}
	return false, nil
}
