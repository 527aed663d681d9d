/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"escapedash/internal/domain"
)

// Entry is a layout state that can be returned to. Scope groups history per collection
// so switching collections does not mix edits.
type Entry struct {
	Scope  string
	Layout domain.Layout
	TS     time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the entries kept across all scopes; oldest are pruned first.
	MaxEntries int
	// MaxPerScope limits the undo depth of one scope (0 means unlimited).
	MaxPerScope int
	// MinInterval coalesces records within the interval for the same scope. The older
	// state is kept, so a burst of resize ticks undoes in one step.
	MinInterval time.Duration
}

// Manager provides in-memory undo/redo stacks per scope. It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Entry
	redo map[string][]Entry
	// last record time per scope, used for coalescing
	last  map[string]time.Time
	total int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 500
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: map[string][]Entry{}, redo: map[string][]Entry{}, last: map[string]time.Time{}}
}

// Record saves before as the state preceding a change made at ts. Clears the scope's redo.
func (m *Manager) Record(scope string, before domain.Layout, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redo[scope] = nil
	prev, seen := m.last[scope]
	m.last[scope] = ts
	if seen && len(m.undo[scope]) > 0 && ts.Sub(prev) < m.cfg.MinInterval {
		return
	}
	m.undo[scope] = append(m.undo[scope], Entry{Scope: scope, Layout: before.Clone(), TS: ts})
	m.total++
	m.enforceCapsLocked(scope)
}

// Undo returns the state to restore and remembers current for Redo.
func (m *Manager) Undo(scope string, current domain.Layout) (domain.Layout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[scope]
	if len(stack) == 0 {
		return nil, false
	}
	e := stack[len(stack)-1]
	m.undo[scope] = stack[:len(stack)-1]
	m.total--
	m.redo[scope] = append(m.redo[scope], Entry{Scope: scope, Layout: current.Clone(), TS: e.TS})
	delete(m.last, scope)
	return e.Layout.Clone(), true
}

// Redo returns the state undone last and remembers current for Undo.
func (m *Manager) Redo(scope string, current domain.Layout) (domain.Layout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[scope]
	if len(r) == 0 {
		return nil, false
	}
	e := r[len(r)-1]
	m.redo[scope] = r[:len(r)-1]
	m.undo[scope] = append(m.undo[scope], Entry{Scope: scope, Layout: current.Clone(), TS: e.TS})
	m.total++
	delete(m.last, scope)
	m.enforceCapsLocked(scope)
	return e.Layout.Clone(), true
}

// CanUndo and CanRedo report whether history is available for scope.
func (m *Manager) CanUndo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[scope]) > 0
}

func (m *Manager) CanRedo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[scope]) > 0
}

// Clear drops the history of a scope.
func (m *Manager) Clear(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total -= len(m.undo[scope])
	delete(m.undo, scope)
	delete(m.redo, scope)
	delete(m.last, scope)
	if m.total < 0 {
		m.total = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (scopes int, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), m.total
}

func (m *Manager) enforceCapsLocked(scope string) {
	if m.cfg.MaxPerScope > 0 {
		stack := m.undo[scope]
		if len(stack) > m.cfg.MaxPerScope {
			toDrop := len(stack) - m.cfg.MaxPerScope
			m.total -= toDrop
			m.undo[scope] = append([]Entry{}, stack[toDrop:]...)
		}
	}
	// Global cap: prune oldest across all scopes
	for m.total > m.cfg.MaxEntries {
		oldest := ""
		found := false
		var oldestTS time.Time
		for s, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = s, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		m.undo[oldest] = m.undo[oldest][1:]
		m.total--
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
