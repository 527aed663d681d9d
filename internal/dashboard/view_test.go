/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escapedash/internal/cache"
	"escapedash/internal/clock"
	"escapedash/internal/dashsync"
	"escapedash/internal/domain"
	"escapedash/internal/geom"
	"escapedash/internal/gesture"
	"escapedash/internal/layout"
	applog "escapedash/internal/log"
	"escapedash/internal/registry"
)

type fakeService struct {
	mu        sync.Mutex
	cols      []domain.Collection
	templates []domain.Template
	defs      []domain.DefinitionRecord
	failAll   bool
	updates   []domain.Layout
	nextID    int
}

var errDown = errors.New("backend down")

func (f *fakeService) ListCollections(context.Context) ([]domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errDown
	}
	return append([]domain.Collection(nil), f.cols...), nil
}

func (f *fakeService) CreateCollection(_ context.Context, d domain.CollectionDraft) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := domain.Collection{ID: fmt.Sprintf("new-%d", f.nextID), Name: d.Name, Layout: d.Layout}
	f.cols = append(f.cols, c)
	return c, nil
}

func (f *fakeService) UpdateCollection(_ context.Context, id string, p domain.CollectionPatch) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *p.Layout)
	for i := range f.cols {
		if f.cols[i].ID == id {
			f.cols[i].Layout = *p.Layout
		}
	}
	return domain.Collection{ID: id, Layout: *p.Layout}, nil
}

func (f *fakeService) ActivateCollection(_ context.Context, id string) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cols {
		f.cols[i].IsActive = f.cols[i].ID == id
	}
	return domain.Collection{}, nil
}

func (f *fakeService) DeleteCollection(context.Context, string) error { return nil }

func (f *fakeService) ListTemplates(context.Context) ([]domain.Template, error) {
	if f.failAll {
		return nil, errDown
	}
	return f.templates, nil
}

func (f *fakeService) ListWidgetDefinitions(context.Context) ([]domain.DefinitionRecord, error) {
	if f.failAll {
		return nil, errDown
	}
	return f.defs, nil
}

func (f *fakeService) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func rowOfThree() domain.Layout {
	return domain.Layout{
		{ID: "A", Type: registry.TypeNotes, ColSpan: 16, RowSpan: 8},
		{ID: "B", Type: registry.TypeTeam, ColSpan: 16, RowSpan: 8},
		{ID: "C", Type: registry.TypeCalendar, ColSpan: 16, RowSpan: 8},
	}
}

type env struct {
	svc   *fakeService
	clk   *clock.FakeClock
	vp    *gesture.Viewport
	cache *cache.Cache
	view  *View
}

func newEnv(t *testing.T, svc *fakeService, c *cache.Cache) *env {
	t.Helper()
	e := &env{svc: svc, clk: clock.Fake(time.Unix(1700000000, 0)), vp: gesture.NewViewport(geom.R(0, 0, 960, 600)), cache: c}
	e.view = New(svc, Options{
		Surface:  e.vp,
		Cache:    c,
		Clock:    e.clk,
		Logger:   applog.Discard(),
		Prompter: dashsync.PromptFunc(func(_ context.Context, def string) (string, bool) { return def, true }),
	})
	t.Cleanup(e.view.Unmount)
	return e
}

func openCache(t *testing.T, dir string) *cache.Cache {
	t.Helper()
	c, err := cache.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMountWithoutCollectionsUsesDefaultLayout(t *testing.T) {
	svc := &fakeService{
		templates: []domain.Template{{ID: "t1", Name: "Compacto", Layout: rowOfThree()}},
		defs:      []domain.DefinitionRecord{{Slug: registry.TypeNotes, Name: "Notas del turno"}},
	}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))

	assert.Equal(t, dashsync.Synced, e.view.SyncState())
	assert.Equal(t, layout.DefaultLayout(), e.view.Store().Snapshot())
	assert.Empty(t, e.view.Store().ActiveCollection())
	assert.Len(t, e.view.Templates(), 1)

	def, ok := e.view.Resolve(registry.TypeNotes)
	require.True(t, ok)
	assert.Equal(t, "Notas del turno", def.Title)
	assert.False(t, e.view.CanUndo(), "hydration is not an undoable edit")
}

func TestMountHydratesAndCaches(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", Name: "Sala", Layout: rowOfThree(), IsActive: true}}}
	c := openCache(t, dir)
	e := newEnv(t, svc, c)
	require.NoError(t, e.view.Mount(context.Background()))
	assert.Equal(t, rowOfThree(), e.view.Store().Snapshot())

	st, ok, err := c.LoadState(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", st.ActiveCollection)
	assert.Equal(t, rowOfThree(), st.Layout)

	// A later session with the backend down starts from the cache.
	offline := newEnv(t, &fakeService{failAll: true}, c)
	require.NoError(t, offline.view.Mount(context.Background()))
	assert.Equal(t, rowOfThree(), offline.view.Store().Snapshot())
	assert.Equal(t, "c1", offline.view.Store().ActiveCollection())
	assert.Equal(t, dashsync.Synced, offline.view.SyncState())
}

func TestEditingGatesLayoutOperations(t *testing.T) {
	e := newEnv(t, &fakeService{}, nil)
	require.NoError(t, e.view.Mount(context.Background()))

	_, err := e.view.AddWidget(registry.TypeNotes)
	assert.ErrorIs(t, err, gesture.ErrNotEditing)
	assert.ErrorIs(t, e.view.RemoveWidget("stats-default"), gesture.ErrNotEditing)
	assert.ErrorIs(t, e.view.ResetLayout(), gesture.ErrNotEditing)
	_, err = e.view.ApplyTemplate("t1")
	assert.ErrorIs(t, err, gesture.ErrNotEditing)
	aff, err := e.view.Affordances("stats-default")
	require.NoError(t, err)
	assert.Equal(t, gesture.WidgetAffordances{}, aff)

	e.view.Edit().Enter()
	w, err := e.view.AddWidget(registry.TypeNotes)
	require.NoError(t, err)
	assert.Equal(t, 12, w.ColSpan)
	aff, err = e.view.Affordances(w.ID)
	require.NoError(t, err)
	assert.True(t, aff.Configure)

	require.NoError(t, e.view.Configure(w.ID, domain.Config{"maxNotes": 3}))
	cfg, err := e.view.EffectiveConfig(w.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg["maxNotes"])

	placed := map[string]bool{}
	for _, c := range e.view.Catalog() {
		placed[c.Definition.Type] = c.Placed
	}
	assert.True(t, placed[registry.TypeNotes])
	assert.False(t, placed[registry.TypeRevenueTable])
	assert.Len(t, placed, len(registry.Builtin().Types()))
}

func TestUndoRedo(t *testing.T) {
	e := newEnv(t, &fakeService{}, nil)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()

	before := e.view.Store().Snapshot()
	require.NoError(t, e.view.RemoveWidget("stats-default"))
	e.clk.Advance(time.Second)
	require.NoError(t, e.view.RemoveWidget("calendar-default"))
	require.Equal(t, len(before)-2, e.view.Store().Len())

	require.True(t, e.view.Undo())
	assert.Equal(t, len(before)-1, e.view.Store().Len())
	require.True(t, e.view.Undo())
	assert.Equal(t, before, e.view.Store().Snapshot())
	assert.False(t, e.view.Undo())

	require.True(t, e.view.CanRedo())
	require.True(t, e.view.Redo())
	assert.Equal(t, len(before)-1, e.view.Store().Len())
}

func TestTemplateAndReset(t *testing.T) {
	svc := &fakeService{templates: []domain.Template{{ID: "t1", Name: "Compacto", Layout: rowOfThree()}}}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()

	_, err := e.view.ApplyTemplate("nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	l, err := e.view.ApplyTemplate("t1")
	require.NoError(t, err)
	require.Len(t, l, 3)
	for i, w := range l {
		assert.NotEqual(t, rowOfThree()[i].ID, w.ID)
		assert.Equal(t, rowOfThree()[i].Type, w.Type)
	}

	require.NoError(t, e.view.ResetLayout())
	assert.Equal(t, layout.DefaultLayout(), e.view.Store().Snapshot())
}

func TestApplyTemplateRemembersLastTemplate(t *testing.T) {
	svc := &fakeService{templates: []domain.Template{{ID: "t1", Name: "Compacto", Layout: rowOfThree()}}}
	c := openCache(t, t.TempDir())
	e := newEnv(t, svc, c)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()

	_, err := e.view.ApplyTemplate("t1")
	require.NoError(t, err)
	got, ok, err := c.Meta(context.Background(), cache.MetaLastTemplate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", got)
}

func TestAutosaveWritesRemoteAndSnapshot(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", Layout: rowOfThree(), IsActive: true}}}
	c := openCache(t, t.TempDir())
	e := newEnv(t, svc, c)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()

	_, err := e.view.Store().Resize("A", 20, domain.AxisWidth)
	require.NoError(t, err)
	_, err = e.view.Store().Resize("A", 24, domain.AxisWidth)
	require.NoError(t, err)
	e.clk.Advance(2 * time.Second)

	require.Equal(t, 1, svc.updateCount())
	snap, err := c.LatestSnapshot(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 24, snap.Layout[0].ColSpan)
}

func TestDragReorderThroughView(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", Layout: rowOfThree(), IsActive: true}}}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))

	targets := e.view.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, geom.R(320, 0, 320, 80), targets[1].Box)

	e.view.Edit().Enter()
	require.NoError(t, e.view.Reorder().Press("A", geom.Pt{X: 160, Y: 40}))
	e.vp.Move(geom.Pt{X: 800, Y: 40})
	st, ok := e.view.Reorder().State()
	require.True(t, ok)
	assert.Equal(t, "C", st.Over)
	e.vp.Up(geom.Pt{X: 800, Y: 40})

	assert.Equal(t, []string{"B", "C", "A"}, e.view.Store().Snapshot().IDs())
	assert.Equal(t, gesture.CursorDefault, e.vp.Cursor())
}

func TestUnmountCancelsGestureAndPendingWrite(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", Layout: rowOfThree(), IsActive: true}}}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()

	require.NoError(t, e.view.Resize().Begin("A", domain.AxisHeight, geom.Pt{X: 0, Y: 0}, nil))
	e.vp.Move(geom.Pt{X: 0, Y: 30})
	require.Equal(t, 11, e.view.Store().Snapshot()[0].RowSpan)
	require.Equal(t, 1, e.vp.Captured())

	e.view.Unmount()
	assert.Zero(t, e.vp.Captured())
	e.clk.Advance(5 * time.Second)
	assert.Zero(t, svc.updateCount())
	assert.ErrorIs(t, e.view.Mount(context.Background()), ErrUnmounted)
}

func TestSaveCreatesCollectionWithDefaultName(t *testing.T) {
	svc := &fakeService{}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))
	require.NoError(t, e.view.Save(context.Background()))

	assert.Equal(t, "new-1", e.view.Store().ActiveCollection())
	cols, err := e.view.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "Mi Dashboard", cols[0].Name)
	assert.True(t, cols[0].IsActive)
}

func TestActivateSwitchesLayoutAndHistory(t *testing.T) {
	other := domain.Layout{{ID: "X", Type: registry.TypeStats, ColSpan: 48, RowSpan: 6}}
	svc := &fakeService{cols: []domain.Collection{
		{ID: "c1", Layout: rowOfThree(), IsActive: true},
		{ID: "c2", Layout: other},
	}}
	e := newEnv(t, svc, nil)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()
	require.NoError(t, e.view.RemoveWidget("B"))
	require.True(t, e.view.CanUndo())

	require.NoError(t, e.view.Activate(context.Background(), "c2"))
	assert.Equal(t, other, e.view.Store().Snapshot())
	assert.False(t, e.view.CanUndo())
	// The pending edit of c1 was flushed before switching.
	assert.Equal(t, 1, svc.updateCount())
}

func TestCrashTargetAutosave(t *testing.T) {
	dir := t.TempDir()
	c := openCache(t, dir)
	e := newEnv(t, &fakeService{}, c)
	require.NoError(t, e.view.Mount(context.Background()))
	e.view.Edit().Enter()
	require.NoError(t, e.view.RemoveWidget("stats-default"))

	where, err := e.view.Autosave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c.FilePath(), where)
	st, ok, err := c.LoadState(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, st.Layout, len(layout.DefaultLayout())-1)
	assert.Equal(t, "5", e.view.Describe()["Widgets"])

	noCache := newEnv(t, &fakeService{}, nil)
	_, err = noCache.view.Autosave(context.Background())
	assert.Error(t, err)
}
