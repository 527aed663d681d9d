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
	"math"
	"sync"
	"time"

	"escapedash/internal/clock"
	"escapedash/internal/domain"
	"escapedash/internal/geom"
)

// ResizeStore is the part of the layout store the resize controller drives.
type ResizeStore interface {
	Widget(id string) (domain.WidgetInstance, error)
	Limits(id string, axis domain.Axis) (lo, hi int, err error)
	Resize(id string, span int, axis domain.Axis) (int, error)
}

// ResizeOptions tunes the controller. Zero values take the defaults.
type ResizeOptions struct {
	RowUnit float32       // px per row, 10
	Pulse   time.Duration // how long a rejected-resize blink lasts, 300ms
	Clock   clock.Clock
	// OnLimit fires once per excursion past a span limit.
	OnLimit func(id string, axis domain.Axis)
	// OnBlink reports the feedback state of a widget turning on and off.
	OnBlink func(id string, on bool)
}

// ResizeController turns edge drags into clamped span changes.
type ResizeController struct {
	store ResizeStore
	mode  *EditMode
	scope *Scope
	opts  ResizeOptions

	mu       sync.Mutex
	active   *resizeGesture
	blinking map[string]*clock.Timer
}

func NewResizeController(store ResizeStore, mode *EditMode, scope *Scope, opts ResizeOptions) *ResizeController {
	if opts.RowUnit <= 0 {
		opts.RowUnit = 10
	}
	if opts.Pulse <= 0 {
		opts.Pulse = 300 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &ResizeController{store: store, mode: mode, scope: scope, opts: opts, blinking: map[string]*clock.Timer{}}
}

type resizeGesture struct {
	c         *ResizeController
	id        string
	axis      domain.Axis
	start     geom.Pt
	startSpan int
	measure   func() float32
	token     uint64
	release   func()
	unhook    func()
	pastLimit bool
	done      bool
}

// Begin starts a resize of widget id along axis from the pointer position start.
// measure returns the widget's current rendered width in px; it is only consulted for
// width resizes.
func (c *ResizeController) Begin(id string, axis domain.Axis, start geom.Pt, measure func() float32) error {
	w, err := c.store.Widget(id)
	if err != nil {
		return err
	}
	g := &resizeGesture{c: c, id: id, axis: axis, start: start, measure: measure, startSpan: w.ColSpan}
	if axis == domain.AxisHeight {
		g.startSpan = w.RowSpan
	}
	token, err := c.mode.Arm(Resizing, g.cancel)
	if err != nil {
		return err
	}
	g.token = token
	release, err := c.scope.Capture(g)
	if err != nil {
		c.mode.Disarm(token)
		return err
	}
	unhook := c.scope.OnClose(g.cancel)

	c.mu.Lock()
	g.release, g.unhook = release, unhook
	c.active = g
	c.mu.Unlock()
	if axis == domain.AxisHeight {
		c.scope.SetCursor(CursorRowResize)
	} else {
		c.scope.SetCursor(CursorColResize)
	}
	return nil
}

// Active reports the widget and axis being resized.
func (c *ResizeController) Active() (id string, axis domain.Axis, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", 0, false
	}
	return c.active.id, c.active.axis, true
}

// Blinking reports whether the limit feedback is showing for a widget.
func (c *ResizeController) Blinking(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.blinking[id]
	return ok
}

func (g *resizeGesture) PointerMove(p geom.Pt) {
	c := g.c
	c.mu.Lock()
	if g.done {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	w, err := c.store.Widget(g.id)
	if err != nil {
		g.finish()
		return
	}
	var delta, unit float32
	cur := w.ColSpan
	if g.axis == domain.AxisHeight {
		cur = w.RowSpan
		delta, unit = p.Y-g.start.Y, c.opts.RowUnit
	} else {
		delta = p.X - g.start.X
		if g.measure != nil && w.ColSpan > 0 {
			unit = g.measure() / float32(w.ColSpan)
		}
	}
	if unit <= 0 {
		return
	}
	candidate := g.startSpan + int(math.Round(float64(delta/unit)))
	lo, hi, err := c.store.Limits(g.id, g.axis)
	if err != nil {
		return
	}
	clamped := candidate
	if clamped < lo {
		clamped = lo
	}
	if hi > 0 && clamped > hi {
		clamped = hi
	}

	if clamped != candidate {
		c.mu.Lock()
		first := !g.pastLimit
		g.pastLimit = true
		c.mu.Unlock()
		if first {
			c.pulse(g.id, g.axis)
		}
	} else {
		c.mu.Lock()
		g.pastLimit = false
		c.mu.Unlock()
	}
	if clamped != cur {
		_, _ = c.store.Resize(g.id, clamped, g.axis)
	}
}

func (g *resizeGesture) PointerUp(geom.Pt) { g.finish() }

func (g *resizeGesture) cancel() { g.finish() }

func (g *resizeGesture) finish() {
	c := g.c
	c.mu.Lock()
	if g.done {
		c.mu.Unlock()
		return
	}
	g.done = true
	if c.active == g {
		c.active = nil
	}
	release, unhook := g.release, g.unhook
	c.mu.Unlock()

	if release != nil {
		release()
	}
	if unhook != nil {
		unhook()
	}
	c.mode.Disarm(g.token)
	c.scope.SetCursor(CursorDefault)
}

func (c *ResizeController) pulse(id string, axis domain.Axis) {
	if c.opts.OnLimit != nil {
		c.opts.OnLimit(id, axis)
	}
	c.mu.Lock()
	if t, ok := c.blinking[id]; ok {
		t.Stop()
	}
	var t *clock.Timer
	t = c.opts.Clock.AfterFunc(c.opts.Pulse, func() {
		c.mu.Lock()
		if c.blinking[id] != t {
			c.mu.Unlock()
			return
		}
		delete(c.blinking, id)
		c.mu.Unlock()
		if c.opts.OnBlink != nil {
			c.opts.OnBlink(id, false)
		}
	})
	c.blinking[id] = t
	c.mu.Unlock()
	if c.opts.OnBlink != nil {
		c.opts.OnBlink(id, true)
	}
}
