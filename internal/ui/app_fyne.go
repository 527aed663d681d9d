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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"escapedash/internal/collections"
	"escapedash/internal/crash"
	"escapedash/internal/dashboard"
	"escapedash/internal/dashsync"
	"escapedash/internal/gesture"
	"escapedash/internal/layout"
	applog "escapedash/internal/log"
	"escapedash/internal/session"
)

const requestTimeout = 20 * time.Second

// Run starts the desktop dashboard. A non-empty collection id is activated
// after the first hydration.
func Run(collection string) error {
	sess, err := session.Load()
	if err != nil {
		return err
	}
	defer sess.Close()
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("escapedash")
	w := fyneApp.NewWindow("EscapeDash")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Cargando…")
	board := NewDashboardCanvas()

	opts := sess.ViewOptions()
	opts.Surface = board
	opts.Prompter = promptName(w)
	opts.Notifier = dashsync.NotifierFunc(func(level dashsync.Level, msg string) {
		fyne.Do(func() {
			status.Importance = widget.MediumImportance
			if level == dashsync.Error {
				status.Importance = widget.DangerImportance
			}
			status.SetText(msg)
		})
	})
	opts.OnBlink = board.SetBlink
	v := dashboard.New(sess.Client, opts)
	board.Attach(v)
	defer crash.Recover(v)

	// background runs fn off the UI goroutine and reports its error in the status bar.
	background := func(op string, fn func(ctx context.Context) error) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				l.Warn(op+" failed", slog.Any("err", err))
				fyne.Do(func() { showError(w, status, err) })
			}
		}()
	}
	board.OnError = func(err error) { showError(w, status, err) }
	board.OnConfigure = func(id string) { showConfigure(w, v, id, status) }

	undoBtn := widget.NewButtonWithIcon("", theme.ContentUndoIcon(), nil)
	redoBtn := widget.NewButtonWithIcon("", theme.ContentRedoIcon(), nil)
	addBtn := widget.NewButtonWithIcon("Añadir widget", theme.ContentAddIcon(), func() { showCatalog(w, v, status) })
	tplBtn := widget.NewButtonWithIcon("Plantillas", theme.GridIcon(), func() { showTemplates(w, v, status) })
	resetBtn := widget.NewButtonWithIcon("Restablecer", theme.ViewRefreshIcon(), func() {
		dialog.ShowConfirm("Restablecer", "¿Volver al diseño por defecto?", func(ok bool) {
			if ok {
				if err := v.ResetLayout(); err != nil {
					showError(w, status, err)
				}
			}
		}, w)
	})
	saveBtn := widget.NewButtonWithIcon("Guardar", theme.DocumentSaveIcon(), func() {
		background("save", v.Save)
	})
	editBtn := widget.NewButtonWithIcon("Editar", theme.DocumentCreateIcon(), func() {
		if v.Edit().Editing() {
			v.Edit().Exit()
		} else {
			v.Edit().Enter()
		}
	})

	collSelect := widget.NewSelect(nil, nil)
	collSelect.PlaceHolder = "Colecciones"
	var collIDs map[string]string
	refreshCollections := func() {
		background("list collections", func(ctx context.Context) error {
			cols, err := v.Collections(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(cols))
			ids := make(map[string]string, len(cols))
			selected := ""
			for _, c := range cols {
				label := c.Name
				if _, dup := ids[label]; dup || label == "" {
					label = fmt.Sprintf("%s (%s)", c.Name, c.ID)
				}
				names = append(names, label)
				ids[label] = c.ID
				if c.ID == v.Store().ActiveCollection() {
					selected = label
				}
			}
			fyne.Do(func() {
				collIDs = ids
				collSelect.OnChanged = nil
				collSelect.Options = names
				collSelect.Selected = selected
				collSelect.Refresh()
				collSelect.OnChanged = func(label string) {
					id, ok := collIDs[label]
					if !ok || id == v.Store().ActiveCollection() {
						return
					}
					background("activate", func(ctx context.Context) error { return v.Activate(ctx, id) })
				}
			})
			return nil
		})
	}
	deleteBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		id := v.Store().ActiveCollection()
		if id == "" {
			return
		}
		dialog.ShowConfirm("Eliminar colección", "¿Eliminar la colección activa?", func(ok bool) {
			if ok {
				background("delete", func(ctx context.Context) error {
					if err := v.Delete(ctx, id); err != nil {
						return err
					}
					refreshCollections()
					return nil
				})
			}
		}, w)
	})

	refreshToolbar := func() {
		tb := v.Edit().Toolbar()
		setEnabled(addBtn, tb.AddWidget)
		setEnabled(tplBtn, tb.Templates)
		setEnabled(resetBtn, tb.Reset)
		setEnabled(saveBtn, tb.Save && !v.Saving())
		setEnabled(undoBtn, v.CanUndo())
		setEnabled(redoBtn, v.CanRedo())
		if v.Edit().Editing() {
			editBtn.SetText("Listo")
			editBtn.Importance = widget.HighImportance
		} else {
			editBtn.SetText("Editar")
			editBtn.Importance = widget.MediumImportance
		}
		editBtn.Refresh()
	}
	undoBtn.OnTapped = func() { v.Undo(); refreshToolbar() }
	redoBtn.OnTapped = func() { v.Redo(); refreshToolbar() }
	v.Edit().OnChange(func(gesture.Mode) { fyne.Do(refreshToolbar) })
	v.Store().Subscribe(storeListener(func() { fyne.Do(refreshToolbar) }))
	refreshToolbar()

	toolbar := container.NewHBox(editBtn, addBtn, tplBtn, resetBtn, widget.NewSeparator(),
		undoBtn, redoBtn, widget.NewSeparator(), saveBtn, collSelect, deleteBtn)
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, board))
	w.Canvas().Focus(board)

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		v.Unmount()
		w.Close()
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := v.Mount(ctx); err != nil {
			if !errors.Is(err, dashboard.ErrUnmounted) {
				l.Error("mount failed", slog.Any("err", err))
				fyne.Do(func() { showError(w, status, err) })
			}
			return
		}
		if collection != "" && collection != v.Store().ActiveCollection() {
			if err := v.Activate(ctx, collection); err != nil {
				fyne.Do(func() { showError(w, status, err) })
			}
		}
		fyne.Do(func() {
			status.SetText(fmt.Sprintf("%d widgets · %s", v.Store().Len(), v.SyncState()))
			refreshToolbar()
		})
		refreshCollections()
	}()

	w.ShowAndRun()
	return nil
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func showError(w fyne.Window, status *widget.Label, err error) {
	if err == nil {
		return
	}
	status.Importance = widget.DangerImportance
	status.SetText(err.Error())
	var se *collections.StatusError
	if errors.As(err, &se) {
		dialog.ShowError(err, w)
	}
}

// promptName asks for a collection name on the UI goroutine and blocks the
// caller until the dialog closes or ctx ends.
func promptName(w fyne.Window) dashsync.PromptFunc {
	return func(ctx context.Context, def string) (string, bool) {
		type answer struct {
			name string
			ok   bool
		}
		ch := make(chan answer, 1)
		fyne.Do(func() {
			entry := widget.NewEntry()
			entry.SetText(def)
			d := dialog.NewForm("Guardar dashboard", "Guardar", "Cancelar",
				[]*widget.FormItem{widget.NewFormItem("Nombre", entry)},
				func(ok bool) { ch <- answer{name: entry.Text, ok: ok} }, w)
			d.Resize(fyne.NewSize(380, 160))
			d.Show()
		})
		select {
		case a := <-ch:
			return a.name, a.ok
		case <-ctx.Done():
			return "", false
		}
	}
}

func showCatalog(w fyne.Window, v *dashboard.View, status *widget.Label) {
	entries := v.Catalog()
	var d dialog.Dialog
	list := widget.NewList(
		func() int { return len(entries) },
		func() fyne.CanvasObject {
			return container.NewVBox(widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			e := entries[i]
			box := o.(*fyne.Container)
			title := e.Definition.Title
			if e.Placed {
				title += " ✓"
			}
			box.Objects[0].(*widget.Label).SetText(title)
			box.Objects[1].(*widget.Label).SetText(e.Definition.Description)
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		if _, err := v.AddWidget(entries[i].Definition.Type); err != nil {
			showError(w, status, err)
		}
		d.Hide()
	}
	d = dialog.NewCustom("Añadir widget", "Cerrar", list, w)
	d.Resize(fyne.NewSize(460, 520))
	d.Show()
}

func showTemplates(w fyne.Window, v *dashboard.View, status *widget.Label) {
	tpls := v.Templates()
	if len(tpls) == 0 {
		dialog.ShowInformation("Plantillas", "No hay plantillas disponibles.", w)
		return
	}
	var d dialog.Dialog
	list := widget.NewList(
		func() int { return len(tpls) },
		func() fyne.CanvasObject {
			return container.NewVBox(widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			t := tpls[i]
			box := o.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(t.Name)
			box.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%s · %d widgets", t.Description, len(t.Layout)))
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		if _, err := v.ApplyTemplate(tpls[i].ID); err != nil {
			showError(w, status, err)
		}
		d.Hide()
	}
	d = dialog.NewCustom("Plantillas", "Cerrar", list, w)
	d.Resize(fyne.NewSize(460, 420))
	d.Show()
}

func showConfigure(w fyne.Window, v *dashboard.View, id string, status *widget.Label) {
	inst, err := v.Store().Widget(id)
	if err != nil {
		showError(w, status, err)
		return
	}
	def, ok := v.Resolve(inst.Type)
	if !ok {
		return
	}
	eff, err := v.EffectiveConfig(id)
	if err != nil {
		showError(w, status, err)
		return
	}
	fields := ConfigFields(def, eff)
	values := make(map[string]func() string, len(fields))
	items := make([]*widget.FormItem, 0, len(fields))
	for _, f := range fields {
		if f.Kind == FieldBool {
			chk := widget.NewCheck("", nil)
			chk.SetChecked(f.Value == "true")
			values[f.Key] = func() string { return strconv.FormatBool(chk.Checked) }
			items = append(items, widget.NewFormItem(f.Key, chk))
			continue
		}
		e := widget.NewEntry()
		e.SetText(f.Value)
		values[f.Key] = func() string { return e.Text }
		items = append(items, widget.NewFormItem(f.Key, e))
	}
	dialog.ShowForm("Configurar "+def.Title, "Aplicar", "Cancelar", items, func(ok bool) {
		if !ok {
			return
		}
		texts := make(map[string]string, len(values))
		for k, get := range values {
			texts[k] = get()
		}
		cfg, err := ParseConfig(fields, texts)
		if err == nil {
			err = v.Configure(id, cfg)
		}
		showError(w, status, err)
	}, w)
}

// storeListener adapts a plain callback to the store's change listener.
func storeListener(fn func()) func(layout.Change) {
	return func(layout.Change) { fn() }
}
