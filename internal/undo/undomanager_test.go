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
	"testing"
	"time"

	"escapedash/internal/domain"
)

func lay(ids ...string) domain.Layout {
	l := domain.Layout{}
	for _, id := range ids {
		l = append(l, domain.WidgetInstance{ID: id, Type: "notes", ColSpan: 12, RowSpan: 8})
	}
	return l
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxPerScope: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record("c1", lay("a"), t0)
	m.Record("c1", lay("a", "b"), t0.Add(20*time.Millisecond))
	if scopes, total := m.Stats(); scopes != 1 || total != 2 {
		t.Fatalf("expected 1 scope and 2 entries, got scopes=%d total=%d", scopes, total)
	}
	got, ok := m.Undo("c1", lay("a", "b", "c"))
	if !ok || len(got) != 2 {
		t.Fatalf("undo expected [a b], got ok=%v %v", ok, got.IDs())
	}
	if !m.CanRedo("c1") {
		t.Fatalf("redo should be available")
	}
	got, ok = m.Redo("c1", got)
	if !ok || len(got) != 3 {
		t.Fatalf("redo expected [a b c], got ok=%v %v", ok, got.IDs())
	}
}

func TestCoalesceKeepsOlderState(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record("c1", lay("1"), t0)
	m.Record("c1", lay("1", "2"), t0.Add(10*time.Millisecond))
	m.Record("c1", lay("1", "2", "3"), t0.Add(20*time.Millisecond))
	if _, total := m.Stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 entry, got %d", total)
	}
	got, ok := m.Undo("c1", lay())
	if !ok || len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected the state before the burst, got ok=%v %v", ok, got.IDs())
	}
}

func TestNewRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Record("c1", lay("a"), t0)
	m.Undo("c1", lay("a", "b"))
	m.Record("c1", lay("a"), t0.Add(time.Second))
	if m.CanRedo("c1") {
		t.Fatalf("redo should be cleared by a new change")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxEntries: 3, MaxPerScope: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record("a", lay("x"), t0.Add(time.Duration(i)*time.Second))
	}
	if _, total := m.Stats(); total != 2 {
		t.Fatalf("expected MaxPerScope to cap at 2, got %d", total)
	}
	for i := 0; i < 2; i++ {
		m.Record("b", lay("y"), t0.Add(time.Duration(20+i)*time.Second))
	}
	if _, total := m.Stats(); total != 3 {
		t.Fatalf("expected MaxEntries to cap at 3, got %d", total)
	}
	m.Clear("a")
	if scopes, total := m.Stats(); scopes != 1 || total != 2 {
		t.Fatalf("clear: scopes=%d total=%d", scopes, total)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	m := NewManager(Config{})
	m.Record("a", lay("x"), time.Now())
	if _, ok := m.Undo("b", lay()); ok {
		t.Fatalf("scope b has no history")
	}
	if !m.CanUndo("a") {
		t.Fatalf("scope a should have history")
	}
}

func TestUndoRedoCyclesKeepHistory(t *testing.T) {
	m := NewManager(Config{MaxEntries: 3, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 3; i++ {
		m.Record("c1", lay("w"), t0.Add(time.Duration(i)*10*time.Millisecond))
	}
	cur := lay("w")
	for cycle := 0; cycle < 2; cycle++ {
		for i := 0; i < 3; i++ {
			cur, _ = m.Undo("c1", cur)
		}
		for i := 0; i < 3; i++ {
			cur, _ = m.Redo("c1", cur)
		}
	}
	if _, total := m.Stats(); total != 3 {
		t.Fatalf("expected 3 entries after undo/redo cycles, got %d", total)
	}
	depth := 0
	for m.CanUndo("c1") {
		cur, _ = m.Undo("c1", cur)
		depth++
	}
	if depth != 3 {
		t.Fatalf("expected undo depth 3, got %d", depth)
	}
}
