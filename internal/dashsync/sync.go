/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package dashsync keeps the layout store and the collections service in step: it
// hydrates the store on mount, writes layout changes back after a quiet period and
// implements the explicit save flow.
package dashsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"escapedash/internal/clock"
	"escapedash/internal/domain"
	"escapedash/internal/layout"
	applog "escapedash/internal/log"
)

// Service is the part of the collections client the synchronizer uses.
type Service interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	CreateCollection(ctx context.Context, draft domain.CollectionDraft) (domain.Collection, error)
	UpdateCollection(ctx context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error)
	ActivateCollection(ctx context.Context, id string) (domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) error
}

// Prompter asks the operator for a collection name. ok is false when they cancel.
type Prompter interface {
	PromptName(ctx context.Context, def string) (name string, ok bool)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, def string) (string, bool)

func (f PromptFunc) PromptName(ctx context.Context, def string) (string, bool) { return f(ctx, def) }

// Level is the severity of a transient notification.
type Level int

const (
	Info Level = iota
	Error
)

// Notifier shows short-lived messages (toasts) to the operator.
type Notifier interface {
	Notify(level Level, msg string)
}

type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// State is the synchronizer's lifecycle state.
type State int

const (
	Unsynced State = iota
	Synced
)

func (s State) String() string {
	if s == Synced {
		return "synced"
	}
	return "unsynced"
}

var (
	ErrClosed = errors.New("dashsync: closed")

	// ErrUnknownCollection is returned by Activate when the service has no layout for the id.
	ErrUnknownCollection = errors.New("dashsync: unknown collection")
)

// Options tunes a Synchronizer. Zero values take the defaults.
type Options struct {
	Debounce     time.Duration // 2s
	WriteTimeout time.Duration // 15s
	DefaultName  string        // "Mi Dashboard"
	Clock        clock.Clock
	Prompter     Prompter // nil: DefaultName is used without asking
	Notifier     Notifier
	Logger       *slog.Logger
	// OnEvent observes persistence events: "layout_saved", "collection_created",
	// "collection_activated", "collection_deleted".
	OnEvent func(name string, col domain.Collection)
}

// Synchronizer owns the persistence of one mounted dashboard.
type Synchronizer struct {
	store *layout.Store
	svc   Service
	opts  Options
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()

	mu       sync.Mutex
	state    State
	timer    *clock.Timer
	gen      uint64
	inflight int
	suppress int
	closed   bool
	writes   sync.WaitGroup

	// unactivated is a created collection whose activation failed; Save retries it.
	unactivated string
}

func New(store *layout.Store, svc Service, opts Options) *Synchronizer {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	if strings.TrimSpace(opts.DefaultName) == "" {
		opts.DefaultName = "Mi Dashboard"
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		store:  store,
		svc:    svc,
		opts:   opts,
		log:    applog.OrDefault(opts.Logger, "dashsync"),
		ctx:    ctx,
		cancel: cancel,
	}
	s.unsub = store.Subscribe(s.onChange)
	return s
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Saving reports whether a write is in flight.
func (s *Synchronizer) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Pending reports whether a debounced write is scheduled.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Synchronizer) onChange(c layout.Change) {
	if !c.Kind.AltersLayout() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.suppress > 0 || s.state != Synced || c.ActiveCollection == "" {
		return
	}
	s.scheduleLocked()
}

func (s *Synchronizer) scheduleLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	g := s.gen
	s.timer = s.opts.Clock.AfterFunc(s.opts.Debounce, func() { s.fire(g) })
}

// cancelPendingLocked drops the scheduled write, if any, and reports whether there was one.
func (s *Synchronizer) cancelPendingLocked() bool {
	s.gen++
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

func (s *Synchronizer) fire(g uint64) {
	s.mu.Lock()
	if s.closed || g != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	id := s.store.ActiveCollection()
	if id == "" {
		return
	}
	if _, err := s.write(s.ctx, id, s.store.Snapshot()); err != nil {
		s.log.Error("autosave failed", slog.String("collection", id), slog.Any("err", err))
	}
}

// write sends l as the layout of collection id.
func (s *Synchronizer) write(ctx context.Context, id string, l domain.Layout) (domain.Collection, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Collection{}, ErrClosed
	}
	s.inflight++
	s.writes.Add(1)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
		s.writes.Done()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	col, err := s.svc.UpdateCollection(ctx, id, domain.LayoutPatch(l))
	if err != nil {
		return domain.Collection{}, fmt.Errorf("update collection %s: %w", id, err)
	}
	if col.ID == "" {
		col.ID = id
	}
	if col.Layout == nil {
		col.Layout = l.Clone()
	}
	s.log.Debug("layout saved", slog.String("collection", id), slog.Int("widgets", len(l)))
	s.event("layout_saved", col)
	return col, nil
}

func (s *Synchronizer) event(name string, col domain.Collection) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(name, col)
	}
}

func (s *Synchronizer) notify(level Level, msg string) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(level, msg)
	}
}

// load replaces the store contents without scheduling a write back.
func (s *Synchronizer) load(l domain.Layout, active string) {
	s.mu.Lock()
	s.suppress++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.suppress--
		s.mu.Unlock()
	}()
	s.store.SetLayout(l)
	s.store.SetActiveCollection(active)
}

// Mount hydrates the store from the active collection and moves to Synced. A failed
// fetch is logged and leaves the store as it was; Mount always reaches Synced.
func (s *Synchronizer) Mount(ctx context.Context) {
	l := applog.WithOperation(s.log, "mount")
	cols, err := s.svc.ListCollections(ctx)
	switch {
	case err != nil:
		l.Warn("collections unavailable, keeping local layout", slog.Any("err", err))
	default:
		var active []domain.Collection
		for _, c := range cols {
			if c.IsActive {
				active = append(active, c)
			}
		}
		if len(active) > 1 {
			l.Warn("several collections marked active, using the first", slog.Int("active", len(active)), slog.String("collection", active[0].ID))
		}
		if len(active) > 0 {
			s.load(active[0].Layout, active[0].ID)
			l.Info("layout hydrated", slog.String("collection", active[0].ID), slog.Int("widgets", len(active[0].Layout)))
		} else {
			s.store.SetActiveCollection("")
		}
	}
	s.mu.Lock()
	s.state = Synced
	s.mu.Unlock()
}

// Save persists the layout now. With an active collection the layout is written
// immediately; otherwise the operator names a new collection which is created and
// activated. A cancelled prompt does nothing. Failures are logged and notified.
func (s *Synchronizer) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cancelPendingLocked()
	s.mu.Unlock()

	l := applog.WithOperation(s.log, "save")
	snapshot := s.store.Snapshot()
	if id := s.store.ActiveCollection(); id != "" {
		if _, err := s.write(ctx, id, snapshot); err != nil {
			l.Error("save failed", slog.String("collection", id), slog.Any("err", err))
			s.notify(Error, "No se pudo guardar el dashboard")
			return err
		}
		if err := s.retryActivation(ctx, id); err != nil {
			l.Warn("activation still failing", slog.String("collection", id), slog.Any("err", err))
		}
		s.notify(Info, "Dashboard guardado")
		return nil
	}

	name := s.opts.DefaultName
	if s.opts.Prompter != nil {
		got, ok := s.opts.Prompter.PromptName(ctx, s.opts.DefaultName)
		if !ok || strings.TrimSpace(got) == "" {
			l.Debug("save cancelled")
			return nil
		}
		name = strings.TrimSpace(got)
	}
	col, err := s.createAndActivate(ctx, name, snapshot)
	if err != nil {
		l.Error("create collection failed", slog.String("name", name), slog.Any("err", err))
		s.notify(Error, "No se pudo guardar el dashboard")
		return err
	}
	l.Info("collection created", slog.String("collection", col.ID), slog.String("name", name))
	s.notify(Info, "Dashboard guardado")
	return nil
}

func (s *Synchronizer) createAndActivate(ctx context.Context, name string, l domain.Layout) (domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	col, err := s.svc.CreateCollection(ctx, domain.CollectionDraft{Name: name, Layout: l})
	if err != nil {
		return domain.Collection{}, fmt.Errorf("create collection: %w", err)
	}
	if _, err := s.svc.ActivateCollection(ctx, col.ID); err != nil {
		// The collection exists remotely; keep writing to it instead of creating another.
		s.mu.Lock()
		s.unactivated = col.ID
		s.mu.Unlock()
		s.store.SetActiveCollection(col.ID)
		return col, fmt.Errorf("activate collection %s: %w", col.ID, err)
	}
	col.IsActive = true
	s.store.SetActiveCollection(col.ID)
	s.event("collection_created", col)
	return col, nil
}

// retryActivation activates id when an earlier create left it inactive.
func (s *Synchronizer) retryActivation(ctx context.Context, id string) error {
	s.mu.Lock()
	pending := s.unactivated == id
	s.mu.Unlock()
	if !pending {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	col, err := s.svc.ActivateCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("activate collection %s: %w", id, err)
	}
	s.mu.Lock()
	if s.unactivated == id {
		s.unactivated = ""
	}
	s.mu.Unlock()
	col.ID, col.IsActive = id, true
	s.event("collection_activated", col)
	return nil
}

// Flush writes a pending debounced change immediately.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	had := s.cancelPendingLocked()
	s.mu.Unlock()
	if !had {
		return nil
	}
	id := s.store.ActiveCollection()
	if id == "" {
		return nil
	}
	_, err := s.write(ctx, id, s.store.Snapshot())
	return err
}

// ApplyTemplate replaces the layout with a copy of t's layout under fresh instance ids.
// Persistence follows through the debounce or an explicit Save.
func (s *Synchronizer) ApplyTemplate(t domain.Template) domain.Layout {
	l := layout.WithFreshIDs(t.Layout, nil)
	s.store.SetLayout(l)
	return s.store.Snapshot()
}

// Activate switches the active collection to id and loads its layout. A pending write
// for the previous collection is flushed first.
func (s *Synchronizer) Activate(ctx context.Context, id string) error {
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("flush before activate failed", slog.Any("err", err))
	}
	col, err := s.svc.ActivateCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("activate collection %s: %w", id, err)
	}
	if col.Layout == nil {
		cols, err := s.svc.ListCollections(ctx)
		if err != nil {
			return fmt.Errorf("reload collections: %w", err)
		}
		found := false
		for _, c := range cols {
			if c.ID == id {
				col, found = c, true
				break
			}
		}
		if !found {
			return fmt.Errorf("activate collection %s: %w", id, ErrUnknownCollection)
		}
	}
	s.mu.Lock()
	if s.unactivated == id {
		s.unactivated = ""
	}
	s.mu.Unlock()
	col.ID, col.IsActive = id, true
	s.load(col.Layout, id)
	s.event("collection_activated", col)
	return nil
}

// Delete removes a collection. Deleting the active one leaves the dashboard unattached.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	if s.store.ActiveCollection() == id {
		s.mu.Lock()
		s.cancelPendingLocked()
		s.mu.Unlock()
		s.store.SetActiveCollection("")
	}
	s.event("collection_deleted", domain.Collection{ID: id})
	return nil
}

// Collections lists the operator's saved collections.
func (s *Synchronizer) Collections(ctx context.Context) ([]domain.Collection, error) {
	return s.svc.ListCollections(ctx)
}

// Close cancels the pending write, stops observing the store and waits for writes in flight.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelPendingLocked()
	s.mu.Unlock()
	s.unsub()
	s.cancel()
	s.writes.Wait()
}
