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

	"escapedash/internal/registry"
)

// Mode is the dashboard's interaction mode.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// Activity is the gesture armed while Editing. At most one is armed at a time.
type Activity int

const (
	Idle Activity = iota
	Dragging
	Resizing
)

func (a Activity) String() string {
	switch a {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// EditMode is the Viewing/Editing state machine.
type EditMode struct {
	mu       sync.Mutex
	mode     Mode
	activity Activity
	token    uint64
	cancel   func()
	onChange []func(Mode)
}

func NewEditMode() *EditMode { return &EditMode{} }

func (e *EditMode) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *EditMode) Editing() bool { return e.Mode() == Editing }

func (e *EditMode) Activity() Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activity
}

// OnChange registers fn to observe mode transitions.
func (e *EditMode) OnChange(fn func(Mode)) {
	e.mu.Lock()
	e.onChange = append(e.onChange, fn)
	e.mu.Unlock()
}

// Enter switches to Editing.
func (e *EditMode) Enter() { e.set(Editing) }

// Exit switches to Viewing, cancelling the armed gesture if any.
func (e *EditMode) Exit() { e.set(Viewing) }

// Toggle flips the mode and returns the new one.
func (e *EditMode) Toggle() Mode {
	if e.Editing() {
		e.Exit()
		return Viewing
	}
	e.Enter()
	return Editing
}

func (e *EditMode) set(m Mode) {
	e.mu.Lock()
	if e.mode == m {
		e.mu.Unlock()
		return
	}
	e.mode = m
	var cancel func()
	if m == Viewing {
		cancel = e.cancel
		e.activity, e.cancel = Idle, nil
		e.token++
	}
	fns := append([]func(Mode){}, e.onChange...)
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range fns {
		fn(m)
	}
}

// Arm marks a gesture as in progress. cancel is invoked if edit mode is left before the
// gesture ends. The returned token identifies the gesture for Disarm.
func (e *EditMode) Arm(a Activity, cancel func()) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return 0, ErrNotEditing
	}
	if e.activity != Idle {
		return 0, ErrGestureArmed
	}
	e.token++
	e.activity, e.cancel = a, cancel
	return e.token, nil
}

// Disarm ends the gesture identified by token. Stale tokens are ignored.
func (e *EditMode) Disarm(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token || e.activity == Idle {
		return
	}
	e.activity, e.cancel = Idle, nil
}

// WidgetAffordances are the per-widget controls a host shows.
type WidgetAffordances struct {
	DragHandle    bool
	ResizeHandles bool
	Remove        bool
	Configure     bool
}

// ToolbarAffordances are the dashboard-level controls a host shows.
type ToolbarAffordances struct {
	AddWidget bool
	Templates bool
	Reset     bool
	Save      bool
}

// Widget returns the controls for one widget. Configure needs a known kind with options.
func (e *EditMode) Widget(def registry.Definition, known bool) WidgetAffordances {
	if !e.Editing() {
		return WidgetAffordances{}
	}
	return WidgetAffordances{
		DragHandle:    true,
		ResizeHandles: true,
		Remove:        true,
		Configure:     known && def.Configurable(),
	}
}

// Toolbar returns the dashboard controls. Save is always available.
func (e *EditMode) Toolbar() ToolbarAffordances {
	editing := e.Editing()
	return ToolbarAffordances{AddWidget: editing, Templates: editing, Reset: editing, Save: true}
}
