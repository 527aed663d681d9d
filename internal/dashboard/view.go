/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package dashboard assembles the layout engine behind one mounted view: the
// store, the synchronizer, the registry, the gesture controllers, undo
// history and the local cache.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"escapedash/internal/cache"
	"escapedash/internal/clock"
	"escapedash/internal/dashsync"
	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/gesture"
	"escapedash/internal/grid"
	applog "escapedash/internal/log"
	"escapedash/internal/layout"
	"escapedash/internal/registry"
	"escapedash/internal/telemetry"
	"escapedash/internal/undo"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownTemplate = errors.New("dashboard: unknown template")
	ErrUnmounted       = errors.New("dashboard: unmounted")
)

// Service is the remote side of the dashboard.
type Service interface {
	dashsync.Service
	registry.Source
	ListTemplates(ctx context.Context) ([]domain.Template, error)
}

// Options wires a View. Zero values take the defaults.
type Options struct {
	Surface  gesture.Surface // defaults to an in-memory 1280x800 viewport
	Registry *registry.Registry
	Cache    *cache.Cache // nil disables local persistence
	DataDir  string       // crash reports
	Clock    clock.Clock
	Prompter dashsync.Prompter
	Notifier dashsync.Notifier
	Logger   *slog.Logger
	// Telemetry is optional; a nil client drops events.
	Telemetry *telemetry.Client

	Debounce      time.Duration
	DefaultName   string
	Breakpoint    float32
	RowUnit       float32
	DragThreshold float32
	LimitPulse    time.Duration
	KeepSnapshots int
	Undo          undo.Config
	// StackedHeight estimates a cell's height below the breakpoint.
	StackedHeight func(grid.Cell) float32
	// OnLimit and OnBlink forward resize feedback to the host.
	OnLimit func(id string, axis domain.Axis)
	OnBlink func(id string, on bool)
}

// CatalogEntry is one row of the add-widget dialog.
type CatalogEntry struct {
	Definition registry.Definition
	// Placed reports whether the layout already holds an instance of the kind.
	Placed bool
}

type registryRef struct{ p atomic.Pointer[registry.Registry] }

func (r *registryRef) Resolve(typ string) (registry.Definition, bool) { return r.p.Load().Resolve(typ) }

// View is one mounted dashboard.
type View struct {
	opts Options
	log  *slog.Logger
	svc  Service

	reg     registryRef
	local   *registry.Registry
	store   *layout.Store
	sync    *dashsync.Synchronizer
	history *undo.Manager
	edit    *gesture.EditMode
	scope   *gesture.Scope
	reorder *gesture.ReorderController
	resize  *gesture.ResizeController

	quiet atomic.Int32
	unsub func()

	mu        sync.Mutex
	templates []domain.Template
	mounted   bool
	closed    bool
}

// New builds an unmounted view over svc.
func New(svc Service, opts Options) *View {
	if opts.Registry == nil {
		opts.Registry = registry.Builtin()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Surface == nil {
		opts.Surface = gesture.NewViewport(geom.R(0, 0, 1280, 800))
	}
	if opts.KeepSnapshots <= 0 {
		opts.KeepSnapshots = 20
	}
	v := &View{
		opts:    opts,
		log:     applog.OrDefault(opts.Logger, "dashboard"),
		svc:     svc,
		local:   opts.Registry,
		history: undo.NewManager(opts.Undo),
		edit:    gesture.NewEditMode(),
	}
	v.reg.p.Store(opts.Registry)
	v.store = layout.NewStore(&v.reg)
	v.sync = dashsync.New(v.store, svc, dashsync.Options{
		Debounce:    opts.Debounce,
		DefaultName: opts.DefaultName,
		Clock:       opts.Clock,
		Prompter:    opts.Prompter,
		Notifier:    opts.Notifier,
		Logger:      v.log,
		OnEvent:     v.onSyncEvent,
	})
	v.scope = gesture.NewScope(opts.Surface)
	v.reorder = gesture.NewReorderController(v.store, v.edit, v.scope, v.Targets, gesture.ReorderOptions{
		Threshold: opts.DragThreshold,
		OnDrop: func(id string, from, to int) {
			v.log.Debug("widget moved", slog.String("widget", id), slog.Int("from", from), slog.Int("to", to))
		},
	})
	v.resize = gesture.NewResizeController(v.store, v.edit, v.scope, gesture.ResizeOptions{
		RowUnit: opts.RowUnit,
		Pulse:   opts.LimitPulse,
		Clock:   opts.Clock,
		OnLimit: opts.OnLimit,
		OnBlink: opts.OnBlink,
	})
	v.unsub = v.store.Subscribe(v.recordHistory)
	return v
}

func (v *View) Store() *layout.Store { return v.store }
func (v *View) Edit() *gesture.EditMode { return v.edit }
func (v *View) Reorder() *gesture.ReorderController { return v.reorder }
func (v *View) Resize() *gesture.ResizeController { return v.resize }
func (v *View) SyncState() dashsync.State { return v.sync.State() }
func (v *View) Saving() bool { return v.sync.Saving() }
func (v *View) Resolve(t string) (registry.Definition, bool) { return v.reg.Resolve(t) }

// Mount seeds the store from the local cache (or the default layout), then
// fetches collections, templates and the registry overlay concurrently. No
// fetch failure is fatal.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrUnmounted
	}
	if v.mounted {
		v.mu.Unlock()
		return nil
	}
	v.mounted = true
	v.mu.Unlock()

	l := applog.WithOperation(v.log, "mount")
	v.quietly(func() { v.seed(ctx) })

	var g errgroup.Group
	g.Go(func() error {
		v.quietly(func() { v.sync.Mount(ctx) })
		return nil
	})
	g.Go(func() error {
		ts, err := v.svc.ListTemplates(ctx)
		if err != nil {
			l.Warn("templates unavailable", slog.Any("err", err))
			return nil
		}
		v.mu.Lock()
		v.templates = ts
		v.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		v.reg.p.Store(registry.Load(ctx, v.local, v.svc, v.log))
		return nil
	})
	_ = g.Wait()

	v.history.Clear(v.store.ActiveCollection())
	v.persistState(ctx)
	l.Info("dashboard mounted",
		slog.String("collection", v.store.ActiveCollection()),
		slog.Int("widgets", v.store.Len()),
	)
	return nil
}

func (v *View) seed(ctx context.Context) {
	if v.opts.Cache != nil {
		st, ok, err := v.opts.Cache.LoadState(ctx)
		if err != nil {
			v.log.Warn("cached layout unreadable", slog.Any("err", err))
		}
		if ok {
			v.store.Restore(st.Layout, st.ActiveCollection)
			return
		}
	}
	v.store.Restore(layout.DefaultLayout(), "")
}

// Unmount cancels gestures, stops the synchronizer and caches the layout. It
// is safe to call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.edit.Exit()
	v.scope.Close()
	v.sync.Close()
	v.unsub()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	v.persistState(ctx)
}

func (v *View) quietly(fn func()) {
	v.quiet.Add(1)
	defer v.quiet.Add(-1)
	fn()
}

func (v *View) recordHistory(c layout.Change) {
	if !c.Kind.AltersLayout() || v.quiet.Load() > 0 {
		return
	}
	v.history.Record(c.ActiveCollection, c.Prev, v.opts.Clock.Now())
	if v.log.Enabled(context.Background(), slog.LevelDebug) {
		scopes, entries := v.history.Stats()
		v.log.Debug("history recorded", slog.String("change", c.Kind.String()), slog.Int("scopes", scopes), slog.Int("entries", entries))
	}
}

func (v *View) onSyncEvent(name string, col domain.Collection) {
	v.opts.Telemetry.CollectionEvent(name, col)
	if v.opts.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	v.persistState(ctx)
	if name == telemetry.EventLayoutSaved || name == telemetry.EventCollectionCreated {
		if err := v.opts.Cache.SaveSnapshot(ctx, col.ID, col.Layout, v.opts.Clock.Now()); err != nil {
			v.log.Warn("snapshot failed", slog.Any("err", err))
			return
		}
		if _, err := v.opts.Cache.PruneSnapshots(ctx, col.ID, v.opts.KeepSnapshots); err != nil {
			v.log.Warn("prune snapshots failed", slog.Any("err", err))
		}
	}
}

func (v *View) persistState(ctx context.Context) {
	if v.opts.Cache == nil {
		return
	}
	st := cache.State{Layout: v.store.Snapshot(), ActiveCollection: v.store.ActiveCollection(), SavedAt: v.opts.Clock.Now()}
	if err := v.opts.Cache.SaveState(ctx, st); err != nil {
		v.log.Warn("cache write failed", slog.Any("err", err))
	}
}

func (v *View) requireEditing() error {
	if !v.edit.Editing() {
		return gesture.ErrNotEditing
	}
	return nil
}

// AddWidget appends a new instance of typ.
func (v *View) AddWidget(typ string) (domain.WidgetInstance, error) {
	if err := v.requireEditing(); err != nil {
		return domain.WidgetInstance{}, err
	}
	return v.store.AddWidget(typ)
}

// RemoveWidget drops the instance id.
func (v *View) RemoveWidget(id string) error {
	if err := v.requireEditing(); err != nil {
		return err
	}
	return v.store.RemoveWidget(id)
}

// Configure shallow-merges partial into the instance's configuration.
func (v *View) Configure(id string, partial domain.Config) error {
	if err := v.requireEditing(); err != nil {
		return err
	}
	return v.store.SetConfig(id, partial)
}

// EffectiveConfig is the definition default overlaid by the instance override.
func (v *View) EffectiveConfig(id string) (domain.Config, error) {
	w, err := v.store.Widget(id)
	if err != nil {
		return nil, err
	}
	def, ok := v.reg.Resolve(w.Type)
	if !ok {
		return w.Config.Clone(), nil
	}
	return def.EffectiveConfig(w.Config), nil
}

// Templates returns the templates fetched at mount.
func (v *View) Templates() []domain.Template {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.templates)
}

// ApplyTemplate replaces the layout with the template's under fresh ids.
func (v *View) ApplyTemplate(id string) (domain.Layout, error) {
	if err := v.requireEditing(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	idx := slices.IndexFunc(v.templates, func(t domain.Template) bool { return t.ID == id })
	var t domain.Template
	if idx >= 0 {
		t = v.templates[idx]
	}
	v.mu.Unlock()
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	l := v.sync.ApplyTemplate(t)
	v.opts.Telemetry.Event(telemetry.EventTemplateApplied, telemetry.LayoutProps(l))
	if v.opts.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := v.opts.Cache.SetMeta(ctx, cache.MetaLastTemplate, id); err != nil {
			v.log.Warn("remember template failed", slog.Any("err", err))
		}
	}
	return l, nil
}

// ResetLayout restores the default layout. The host confirms with the operator first.
func (v *View) ResetLayout() error {
	if err := v.requireEditing(); err != nil {
		return err
	}
	v.store.Reset(layout.DefaultLayout())
	v.opts.Telemetry.Event(telemetry.EventLayoutReset, nil)
	return nil
}

// Undo restores the layout before the last edit of the current collection.
func (v *View) Undo() bool {
	scope := v.store.ActiveCollection()
	l, ok := v.history.Undo(scope, v.store.Snapshot())
	if ok {
		v.quietly(func() { v.store.SetLayout(l) })
	}
	return ok
}

// Redo re-applies the last undone edit.
func (v *View) Redo() bool {
	scope := v.store.ActiveCollection()
	l, ok := v.history.Redo(scope, v.store.Snapshot())
	if ok {
		v.quietly(func() { v.store.SetLayout(l) })
	}
	return ok
}

func (v *View) CanUndo() bool { return v.history.CanUndo(v.store.ActiveCollection()) }
func (v *View) CanRedo() bool { return v.history.CanRedo(v.store.ActiveCollection()) }

// Save persists now, asking for a name when no collection is active.
func (v *View) Save(ctx context.Context) error { return v.sync.Save(ctx) }

// Collections lists saved collections.
func (v *View) Collections(ctx context.Context) ([]domain.Collection, error) {
	return v.sync.Collections(ctx)
}

// Activate switches to collection id.
func (v *View) Activate(ctx context.Context, id string) error {
	var err error
	v.quietly(func() { err = v.sync.Activate(ctx, id) })
	if err != nil {
		return err
	}
	v.history.Clear(id)
	return nil
}

// Delete removes collection id.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.sync.Delete(ctx, id); err != nil {
		return err
	}
	v.history.Clear(id)
	v.persistState(ctx)
	return nil
}

// Catalog lists every registered kind for the add-widget dialog.
func (v *View) Catalog() []CatalogEntry {
	placed := map[string]bool{}
	for _, w := range v.store.Snapshot() {
		placed[w.Type] = true
	}
	defs := v.reg.p.Load().Definitions()
	out := make([]CatalogEntry, 0, len(defs))
	for _, d := range defs {
		out = append(out, CatalogEntry{Definition: d, Placed: placed[d.Type]})
	}
	return out
}

// Plan places the current layout for a viewport width.
func (v *View) Plan(width float32) grid.Plan {
	return grid.Place(v.store.Snapshot(), &v.reg, width, grid.Options{Breakpoint: v.opts.Breakpoint, RowUnit: v.opts.RowUnit})
}

// Targets returns the bounding box of every widget on the surface, in
// layout order.
func (v *View) Targets() []gesture.Target {
	b := v.scope.Bounds()
	p := v.Plan(b.W)
	boxes := p.Boxes(b.W, v.opts.StackedHeight)
	out := make([]gesture.Target, len(p.Cells))
	for i, c := range p.Cells {
		out[i] = gesture.Target{ID: c.Widget.ID, Box: boxes[i].Translate(b.Min())}
	}
	return out
}

// Affordances returns the controls to show for widget id.
func (v *View) Affordances(id string) (gesture.WidgetAffordances, error) {
	w, err := v.store.Widget(id)
	if err != nil {
		return gesture.WidgetAffordances{}, err
	}
	def, known := v.reg.Resolve(w.Type)
	return v.edit.Widget(def, known), nil
}

// DataDir implements crash.Target.
func (v *View) DataDir() string { return v.opts.DataDir }

// Autosave implements crash.Target by writing the layout to the local cache.
func (v *View) Autosave(ctx context.Context) (string, error) {
	if v.opts.Cache == nil {
		return "", errors.New("local cache disabled")
	}
	st := cache.State{Layout: v.store.Snapshot(), ActiveCollection: v.store.ActiveCollection(), SavedAt: time.Now()}
	if err := v.opts.Cache.SaveState(ctx, st); err != nil {
		return "", err
	}
	return v.opts.Cache.FilePath(), nil
}

// Describe implements crash.Target.
func (v *View) Describe() map[string]string {
	return map[string]string{
		"ActiveCollection": v.store.ActiveCollection(),
		"Widgets":          strconv.Itoa(v.store.Len()),
		"Mode":             v.edit.Mode().String(),
	}
}
