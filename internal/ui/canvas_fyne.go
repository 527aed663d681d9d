//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"escapedash/internal/dashboard"
	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/gesture"
	"escapedash/internal/layout"
	"escapedash/internal/registry"
)

var (
	colBackground = color.RGBA{R: 243, G: 244, B: 246, A: 255}
	colCard       = color.White
	colCardEdge   = color.RGBA{R: 209, G: 213, B: 219, A: 255}
	colHandle     = color.RGBA{R: 229, G: 231, B: 235, A: 255}
	colGrip       = color.RGBA{R: 59, G: 130, B: 246, A: 160}
	colLimit      = color.RGBA{R: 239, G: 68, B: 68, A: 255}
	colOverlay    = color.RGBA{R: 59, G: 130, B: 246, A: 60}
	colPlacehold  = color.RGBA{R: 156, G: 163, B: 175, A: 80}
	colTitle      = color.RGBA{R: 17, G: 24, B: 39, A: 255}
	colMuted      = color.RGBA{R: 107, G: 114, B: 128, A: 255}
)

// DashboardCanvas draws the widget grid and is the gesture Surface of the
// mounted view. Create it first, pass it as dashboard.Options.Surface, then
// Attach the view.
type DashboardCanvas struct {
	widget.BaseWidget

	mu       sync.Mutex
	view     *dashboard.View
	handlers map[int]gesture.PointerHandler
	next     int
	cursor   desktop.Cursor
	last     geom.Pt
	focused  string
	blinking map[string]bool

	// OnConfigure is called when a configurable card body is tapped in edit mode.
	OnConfigure func(id string)
	// OnError reports failed gestures and removals.
	OnError func(err error)
}

func NewDashboardCanvas() *DashboardCanvas {
	c := &DashboardCanvas{handlers: map[int]gesture.PointerHandler{}, blinking: map[string]bool{}, cursor: desktop.DefaultCursor}
	c.ExtendBaseWidget(c)
	return c
}

// Attach binds the view whose store the canvas draws.
func (c *DashboardCanvas) Attach(v *dashboard.View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	v.Store().Subscribe(func(layout.Change) { fyne.Do(c.Refresh) })
	v.Edit().OnChange(func(gesture.Mode) { fyne.Do(c.Refresh) })
}

// SetBlink marks the limit feedback of widget id; safe from any goroutine.
func (c *DashboardCanvas) SetBlink(id string, on bool) {
	c.mu.Lock()
	if on {
		c.blinking[id] = true
	} else {
		delete(c.blinking, id)
	}
	c.mu.Unlock()
	fyne.Do(c.Refresh)
}

// Capture implements gesture.Surface.
func (c *DashboardCanvas) Capture(h gesture.PointerHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.handlers[id] = h
	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

// SetCursor implements gesture.Surface.
func (c *DashboardCanvas) SetCursor(cur gesture.Cursor) {
	dc := desktop.DefaultCursor
	switch cur {
	case gesture.CursorGrab:
		dc = desktop.PointerCursor
	case gesture.CursorGrabbing:
		dc = desktop.CrosshairCursor
	case gesture.CursorColResize:
		dc = desktop.HResizeCursor
	case gesture.CursorRowResize:
		dc = desktop.VResizeCursor
	}
	c.mu.Lock()
	c.cursor = dc
	c.mu.Unlock()
}

// Bounds implements gesture.Surface.
func (c *DashboardCanvas) Bounds() geom.Rect {
	s := c.Size()
	return geom.R(0, 0, s.Width, s.Height)
}

// Cursor implements desktop.Cursorable.
func (c *DashboardCanvas) Cursor() desktop.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *DashboardCanvas) attached() *dashboard.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *DashboardCanvas) captured() []gesture.PointerHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gesture.PointerHandler, 0, len(c.handlers))
	for i := 0; i < c.next; i++ {
		if h, ok := c.handlers[i]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (c *DashboardCanvas) fail(err error) {
	if err != nil && c.OnError != nil {
		c.OnError(err)
	}
}

func toPt(p fyne.Position) geom.Pt { return geom.Pt{X: p.X, Y: p.Y} }

func (c *DashboardCanvas) hit(p geom.Pt) Hit {
	v := c.attached()
	if v == nil {
		return Hit{}
	}
	return HitTest(v.Targets(), p, func(id string) gesture.WidgetAffordances {
		a, _ := v.Affordances(id)
		return a
	})
}

func (c *DashboardCanvas) widthOf(id string) func() float32 {
	return func() float32 {
		v := c.attached()
		if v == nil {
			return 0
		}
		for _, t := range v.Targets() {
			if t.ID == id {
				return t.Box.W
			}
		}
		return 0
	}
}

// MouseDown starts a reorder or resize depending on the zone under the pointer.
func (c *DashboardCanvas) MouseDown(e *desktop.MouseEvent) {
	v := c.attached()
	if v == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := toPt(e.Position)
	h := c.hit(p)
	c.mu.Lock()
	c.last = p
	if h.ID != "" {
		c.focused = h.ID
	}
	c.mu.Unlock()
	if cv := fyne.CurrentApp().Driver().CanvasForObject(c); cv != nil {
		cv.Focus(c)
	}
	switch h.Zone {
	case ZoneHandle:
		c.fail(v.Reorder().Press(h.ID, p))
	case ZoneResizeWidth:
		c.fail(v.Resize().Begin(h.ID, domain.AxisWidth, p, c.widthOf(h.ID)))
	case ZoneResizeHeight:
		c.fail(v.Resize().Begin(h.ID, domain.AxisHeight, p, nil))
	}
}

// MouseUp ends a press that never turned into a drag.
func (c *DashboardCanvas) MouseUp(e *desktop.MouseEvent) {
	p := toPt(e.Position)
	for _, h := range c.captured() {
		h.PointerUp(p)
	}
	c.Refresh()
}

func (c *DashboardCanvas) Dragged(e *fyne.DragEvent) {
	p := toPt(e.Position)
	c.mu.Lock()
	c.last = p
	c.mu.Unlock()
	for _, h := range c.captured() {
		h.PointerMove(p)
	}
	c.Refresh()
}

func (c *DashboardCanvas) DragEnd() {
	c.mu.Lock()
	p := c.last
	c.mu.Unlock()
	for _, h := range c.captured() {
		h.PointerUp(p)
	}
	c.Refresh()
}

// Tapped removes or configures a card in edit mode.
func (c *DashboardCanvas) Tapped(e *fyne.PointEvent) {
	v := c.attached()
	if v == nil {
		return
	}
	h := c.hit(toPt(e.Position))
	switch h.Zone {
	case ZoneRemove:
		c.fail(v.RemoveWidget(h.ID))
	case ZoneBody:
		if a, err := v.Affordances(h.ID); err == nil && a.Configure && c.OnConfigure != nil {
			c.OnConfigure(h.ID)
		}
	}
}

func (c *DashboardCanvas) FocusGained() {}
func (c *DashboardCanvas) FocusLost() {
	if v := c.attached(); v != nil {
		v.Reorder().Cancel()
	}
}
func (c *DashboardCanvas) TypedRune(rune) {}

var keyMap = map[fyne.KeyName]gesture.Key{
	fyne.KeyUp:     gesture.KeyUp,
	fyne.KeyDown:   gesture.KeyDown,
	fyne.KeyLeft:   gesture.KeyLeft,
	fyne.KeyRight:  gesture.KeyRight,
	fyne.KeySpace:  gesture.KeySpace,
	fyne.KeyReturn: gesture.KeyEnter,
	fyne.KeyEnter:  gesture.KeyEnter,
	fyne.KeyEscape: gesture.KeyEscape,
}

// TypedKey drives keyboard reordering of the last pressed card.
func (c *DashboardCanvas) TypedKey(e *fyne.KeyEvent) {
	v := c.attached()
	k, ok := keyMap[e.Name]
	if v == nil || !ok {
		return
	}
	c.mu.Lock()
	id := c.focused
	c.mu.Unlock()
	if id == "" {
		return
	}
	_, err := v.Reorder().HandleKey(id, k)
	c.fail(err)
	c.Refresh()
}

func (c *DashboardCanvas) MinSize() fyne.Size { return fyne.NewSize(360, 240) }

func (c *DashboardCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &dashboardRenderer{c: c, bg: canvas.NewRectangle(colBackground)}
	r.Layout(c.Size())
	return r
}

type dashboardRenderer struct {
	c       *DashboardCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *dashboardRenderer) Destroy()                     {}
func (r *dashboardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *dashboardRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *dashboardRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func place(o fyne.CanvasObject, b geom.Rect) {
	o.Move(fyne.NewPos(b.X, b.Y))
	o.Resize(fyne.NewSize(b.W, b.H))
}

func text(s string, size float32, col color.Color, bold bool) *canvas.Text {
	t := canvas.NewText(s, col)
	t.TextSize = size
	t.TextStyle = fyne.TextStyle{Bold: bold}
	return t
}

// Layout rebuilds the card objects from the current plan.
func (r *dashboardRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}
	v := r.c.attached()
	if v == nil {
		r.objects = objs
		return
	}
	r.c.mu.Lock()
	blinking := make(map[string]bool, len(r.c.blinking))
	for k := range r.c.blinking {
		blinking[k] = true
	}
	r.c.mu.Unlock()

	drag, dragging := v.Reorder().State()
	for _, t := range v.Targets() {
		w, err := v.Store().Widget(t.ID)
		if err != nil {
			continue
		}
		box := t.Box.Inset(4, 4)
		def, known := v.Resolve(w.Type)
		if !known {
			// Unknown kinds keep their slot but draw nothing.
			continue
		}
		card := canvas.NewRectangle(colCard)
		card.StrokeColor = colCardEdge
		card.StrokeWidth = 1
		card.CornerRadius = 6
		if blinking[t.ID] {
			card.StrokeColor = colLimit
			card.StrokeWidth = 2
		}
		place(card, box)
		objs = append(objs, card)
		objs = append(objs, r.cardContent(v, def, w, box)...)

		if dragging && drag.ID == t.ID {
			dim := canvas.NewRectangle(colPlacehold)
			place(dim, box)
			objs = append(objs, dim)
		}
	}
	if dragging {
		ov := canvas.NewRectangle(colOverlay)
		ov.StrokeColor = colGrip
		ov.StrokeWidth = 2
		place(ov, drag.Overlay.Inset(4, 4))
		objs = append(objs, ov)
	}
	r.objects = objs
}

func (r *dashboardRenderer) cardContent(v *dashboard.View, def registry.Definition, w domain.WidgetInstance, box geom.Rect) []fyne.CanvasObject {
	var objs []fyne.CanvasObject
	aff := v.Edit().Widget(def, true)
	if aff.DragHandle {
		strip := canvas.NewRectangle(colHandle)
		place(strip, geom.R(box.X, box.Y, box.W, HandleHeight))
		objs = append(objs, strip)
	}
	title := text(def.Title, 13, colTitle, true)
	title.Move(fyne.NewPos(box.X+8, box.Y+4))
	objs = append(objs, title)

	if def.Render != nil {
		if ph, ok := def.Render.Render(def.EffectiveConfig(w.Config)).(registry.Placeholder); ok {
			y := box.Y + HandleHeight + 4
			for _, line := range ph.Lines {
				if y+14 > box.Y+box.H-EdgeGrip {
					break
				}
				lt := text(line, 11, colMuted, false)
				lt.Move(fyne.NewPos(box.X+8, y))
				objs = append(objs, lt)
				y += 14
			}
		}
	}
	if aff.Remove {
		x := text("×", 14, colMuted, true)
		x.Move(fyne.NewPos(box.X+box.W-RemoveSize+4, box.Y+2))
		objs = append(objs, x)
	}
	if aff.ResizeHandles {
		gw := canvas.NewRectangle(colGrip)
		place(gw, geom.R(box.X+box.W-EdgeGrip/2, box.Y+box.H/2-12, EdgeGrip/2, 24))
		gh := canvas.NewRectangle(colGrip)
		place(gh, geom.R(box.X+box.W/2-12, box.Y+box.H-EdgeGrip/2, 24, EdgeGrip/2))
		objs = append(objs, gw, gh)
	}
	size := text(spanLabel(w), 10, colMuted, false)
	size.Move(fyne.NewPos(box.X+8, box.Y+box.H-16))
	objs = append(objs, size)
	return objs
}
