/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package dashsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escapedash/internal/clock"
	"escapedash/internal/domain"
	"escapedash/internal/layout"
	applog "escapedash/internal/log"
	"escapedash/internal/registry"
)

type fakeService struct {
	mu        sync.Mutex
	cols      []domain.Collection
	listErr   error
	updateErr error
	creates   []domain.CollectionDraft
	updates   []domain.Layout
	updateIDs []string
	activated []string
	deleted   []string
	nextID    int
	// activateFails makes the next n ActivateCollection calls fail.
	activateFails int
}

func (f *fakeService) ListCollections(context.Context) ([]domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Collection, len(f.cols))
	copy(out, f.cols)
	return out, nil
}

func (f *fakeService) CreateCollection(_ context.Context, d domain.CollectionDraft) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.creates = append(f.creates, d)
	c := domain.Collection{ID: fmt.Sprintf("new-%d", f.nextID), Name: d.Name, Layout: d.Layout}
	f.cols = append(f.cols, c)
	return c, nil
}

func (f *fakeService) UpdateCollection(_ context.Context, id string, p domain.CollectionPatch) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Collection{}, f.updateErr
	}
	f.updateIDs = append(f.updateIDs, id)
	f.updates = append(f.updates, *p.Layout)
	return domain.Collection{ID: id, Layout: *p.Layout}, nil
}

func (f *fakeService) ActivateCollection(_ context.Context, id string) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, id)
	if f.activateFails > 0 {
		f.activateFails--
		return domain.Collection{}, errors.New("activate unavailable")
	}
	return domain.Collection{}, nil
}

func (f *fakeService) DeleteCollection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type toast struct {
	level Level
	msg   string
}

type harness struct {
	store  *layout.Store
	svc    *fakeService
	clk    *clock.FakeClock
	sync   *Synchronizer
	toasts []toast
}

func newHarness(t *testing.T, svc *fakeService, prompt Prompter) *harness {
	t.Helper()
	h := &harness{store: layout.NewStore(registry.Builtin()), svc: svc, clk: clock.Fake(time.Unix(1700000000, 0))}
	h.sync = New(h.store, svc, Options{
		Clock:    h.clk,
		Prompter: prompt,
		Logger:   applog.Discard(),
		Notifier: NotifierFunc(func(l Level, m string) { h.toasts = append(h.toasts, toast{l, m}) }),
	})
	t.Cleanup(h.sync.Close)
	return h
}

func mainLayout() domain.Layout {
	return domain.Layout{
		{ID: "s1", Type: registry.TypeStats, ColSpan: 48, RowSpan: 6},
		{ID: "n1", Type: registry.TypeNotes, ColSpan: 12, RowSpan: 8},
	}
}

func TestMountHydratesActiveCollection(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{
		{ID: "c0", Name: "Old", Layout: domain.Layout{}},
		{ID: "c1", Name: "Main", IsActive: true, Layout: mainLayout()},
	}}
	h := newHarness(t, svc, nil)
	assert.Equal(t, Unsynced, h.sync.State())
	h.sync.Mount(context.Background())
	assert.Equal(t, Synced, h.sync.State())
	assert.Equal(t, mainLayout(), h.store.Snapshot())
	assert.Equal(t, "c1", h.store.ActiveCollection())
	assert.False(t, h.sync.Pending(), "hydration must not schedule a write")
}

func TestMountSurvivesFetchFailure(t *testing.T) {
	svc := &fakeService{listErr: errors.New("offline")}
	h := newHarness(t, svc, nil)
	h.store.SetLayout(layout.DefaultLayout())
	h.sync.Mount(context.Background())
	assert.Equal(t, Synced, h.sync.State())
	assert.Len(t, h.store.Snapshot(), 6)
}

func TestMountPicksFirstOfSeveralActive(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{
		{ID: "a", IsActive: true, Layout: mainLayout()},
		{ID: "b", IsActive: true, Layout: domain.Layout{}},
	}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	assert.Equal(t, "a", h.store.ActiveCollection())
}

func TestDebounceCoalescesRapidMutations(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())

	for i := 0; i < 5; i++ {
		_, err := h.store.Resize("n1", 13+i, domain.AxisWidth)
		require.NoError(t, err)
		h.clk.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, svc.updates, "nothing written while edits keep coming")
	assert.True(t, h.sync.Pending())

	h.clk.Advance(1500 * time.Millisecond)
	require.Len(t, svc.updates, 1)
	assert.Equal(t, "c1", svc.updateIDs[0])
	assert.Equal(t, 17, svc.updates[0][1].ColSpan, "the final layout is written")
	assert.False(t, h.sync.Pending())

	h.clk.Advance(10 * time.Second)
	assert.Len(t, svc.updates, 1)
}

func TestNoAutosaveWithoutActiveCollection(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	_, err := h.store.AddWidget(registry.TypeNotes)
	require.NoError(t, err)
	h.clk.Advance(5 * time.Second)
	assert.Empty(t, svc.updates)
	assert.False(t, h.sync.Pending())
}

func TestNoAutosaveBeforeMount(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, nil)
	h.store.SetActiveCollection("c1")
	h.store.SetLayout(mainLayout())
	h.clk.Advance(5 * time.Second)
	assert.Empty(t, svc.updates)
}

func TestSaveWithoutActiveCreatesAndActivates(t *testing.T) {
	svc := &fakeService{}
	prompts := 0
	h := newHarness(t, svc, PromptFunc(func(_ context.Context, def string) (string, bool) {
		prompts++
		return def, true
	}))
	h.sync.Mount(context.Background())
	h.store.SetLayout(mainLayout())

	require.NoError(t, h.sync.Save(context.Background()))
	assert.Equal(t, 1, prompts)
	require.Len(t, svc.creates, 1)
	assert.Equal(t, "Mi Dashboard", svc.creates[0].Name)
	assert.Equal(t, mainLayout(), svc.creates[0].Layout)
	assert.Equal(t, []string{"new-1"}, svc.activated)
	assert.Equal(t, "new-1", h.store.ActiveCollection())
	assert.Equal(t, []toast{{Info, "Dashboard guardado"}}, h.toasts)
	assert.False(t, h.sync.Pending())
}

func TestSaveCancelledPromptIsNoop(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, PromptFunc(func(context.Context, string) (string, bool) { return "", false }))
	h.sync.Mount(context.Background())
	require.NoError(t, h.sync.Save(context.Background()))
	assert.Empty(t, svc.creates)
	assert.Empty(t, svc.activated)
	assert.Equal(t, "", h.store.ActiveCollection())
	assert.Empty(t, h.toasts)
}

func TestSaveWithActiveWritesImmediatelyAndCancelsTimer(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	require.NoError(t, h.store.RemoveWidget("n1"))
	require.True(t, h.sync.Pending())

	require.NoError(t, h.sync.Save(context.Background()))
	require.Len(t, svc.updates, 1)
	assert.Len(t, svc.updates[0], 1)
	assert.False(t, h.sync.Pending())
	h.clk.Advance(5 * time.Second)
	assert.Len(t, svc.updates, 1)
}

func TestSaveFailureNotifies(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}, updateErr: errors.New("boom")}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	err := h.sync.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, []toast{{Error, "No se pudo guardar el dashboard"}}, h.toasts)

	h.toasts = nil
	_, _ = h.store.Resize("n1", 20, domain.AxisWidth)
	h.clk.Advance(2 * time.Second)
	assert.Empty(t, h.toasts, "autosave failures are only logged")
}

func TestApplyTemplateUsesFreshIDs(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	tpl := domain.Template{ID: "t1", Layout: mainLayout()}
	got := h.sync.ApplyTemplate(tpl)
	require.Len(t, got, 2)
	for i := range got {
		assert.NotEqual(t, tpl.Layout[i].ID, got[i].ID)
		assert.Equal(t, tpl.Layout[i].Type, got[i].Type)
	}
	assert.Equal(t, "s1", tpl.Layout[0].ID, "template untouched")
	h.clk.Advance(2 * time.Second)
	assert.Len(t, svc.updates, 1)
}

func TestActivateFlushesAndLoads(t *testing.T) {
	other := domain.Layout{{ID: "q1", Type: registry.TypeQuarterlyStats, ColSpan: 24, RowSpan: 12}}
	svc := &fakeService{cols: []domain.Collection{
		{ID: "c1", IsActive: true, Layout: mainLayout()},
		{ID: "c2", Layout: other},
	}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	require.NoError(t, h.store.RemoveWidget("s1"))

	require.NoError(t, h.sync.Activate(context.Background(), "c2"))
	require.Len(t, svc.updates, 1, "pending edit flushed to the old collection")
	assert.Equal(t, "c1", svc.updateIDs[0])
	assert.Equal(t, other, h.store.Snapshot())
	assert.Equal(t, "c2", h.store.ActiveCollection())
	assert.False(t, h.sync.Pending())
}

func TestActivateUnknownKeepsLayout(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())

	err := h.sync.Activate(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownCollection)
	assert.Equal(t, mainLayout(), h.store.Snapshot())
	assert.Equal(t, "c1", h.store.ActiveCollection())
	assert.False(t, h.sync.Pending())
}

func TestSaveRetriesFailedActivation(t *testing.T) {
	svc := &fakeService{activateFails: 1}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	h.store.SetLayout(mainLayout())

	require.Error(t, h.sync.Save(context.Background()))
	require.Len(t, svc.creates, 1)
	assert.Equal(t, "new-1", h.store.ActiveCollection(), "created id kept locally")

	require.NoError(t, h.sync.Save(context.Background()))
	assert.Len(t, svc.creates, 1, "no second collection created")
	assert.Equal(t, []string{"new-1"}, svc.updateIDs)
	assert.Equal(t, []string{"new-1", "new-1"}, svc.activated)

	require.NoError(t, h.sync.Save(context.Background()))
	assert.Len(t, svc.activated, 2, "activation not repeated once it succeeded")
}

func TestDeleteActiveDetaches(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	require.NoError(t, h.sync.Delete(context.Background(), "c1"))
	assert.Equal(t, "", h.store.ActiveCollection())
	assert.Equal(t, []string{"c1"}, svc.deleted)
}

func TestCloseCancelsPendingWrite(t *testing.T) {
	svc := &fakeService{cols: []domain.Collection{{ID: "c1", IsActive: true, Layout: mainLayout()}}}
	h := newHarness(t, svc, nil)
	h.sync.Mount(context.Background())
	_, _ = h.store.Resize("n1", 30, domain.AxisWidth)
	h.sync.Close()
	h.clk.Advance(5 * time.Second)
	assert.Empty(t, svc.updates)
	assert.ErrorIs(t, h.sync.Save(context.Background()), ErrClosed)
}
