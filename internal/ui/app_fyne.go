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
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"mistipad/internal/config"
	"mistipad/internal/crash"
	"mistipad/internal/domain"
	"mistipad/internal/export"
	"mistipad/internal/journal"
	applog "mistipad/internal/log"
	"mistipad/internal/notes"
	"mistipad/internal/storage"
	"mistipad/internal/undo"
)

// Run starts the Fyne-based desktop shell: active sets on the left, a pair
// editor on the right, and a trash tab with restore/purge.
func Run(workspaceDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	journal.NewDefault(journal.Config{Enabled: cfg.Journal.Enabled, File: cfg.Journal.File})
	root := workspaceDir
	if root == "" {
		root = cfg.Storage.Root
	}
	if root == "" {
		return fmt.Errorf("no workspace directory: pass one or set storage.root in the config")
	}
	st, err := storage.OpenWorkspaceBackend(root, cfg.Storage.Backend, cfg.Storage.KeepSnapshots)
	if err != nil {
		return err
	}
	mgr := notes.NewManager(st, notes.Options{
		PurgeImages: cfg.Storage.PurgeImages,
		History:     undo.Config{MaxBytes: 8 * 1024 * 1024, MaxPerSet: 20, MinInterval: 300 * time.Millisecond},
	})
	defer crash.Recover(mgr, root)

	fyneApp := app.NewWithID("mistipad")
	w := fyneApp.NewWindow("Mistipad")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	// Active sets (left)
	activeDisplay := []string{}
	activeIDs := []string{}
	selectedSet := -1
	activeList := widget.NewList(
		func() int { return len(activeDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(activeDisplay) {
				o.(*widget.Label).SetText(activeDisplay[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)

	// Pair editor (right)
	titleEntry := widget.NewEntry()
	titleEntry.SetPlaceHolder("Set title")
	pairDisplay := []string{}
	selectedPair := -1
	pairList := widget.NewList(
		func() int { return len(pairDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(pairDisplay[i]) },
	)
	pairList.OnSelected = func(id widget.ListItemID) { selectedPair = int(id) }
	questionEntry := widget.NewMultiLineEntry()
	questionEntry.SetPlaceHolder("Question")
	answerEntry := widget.NewMultiLineEntry()
	answerEntry.SetPlaceHolder("Answer")

	currentSet := func() (domain.QuestionSet, bool) {
		if selectedSet < 0 || selectedSet >= len(activeIDs) {
			return domain.QuestionSet{}, false
		}
		return mgr.Find(activeIDs[selectedSet])
	}

	refreshPairs := func() {
		pairDisplay = pairDisplay[:0]
		set, ok := currentSet()
		if ok {
			for i := range set.Questions {
				q := strings.TrimSpace(set.Questions[i])
				a := strings.TrimSpace(set.Answers[i])
				line := fmt.Sprintf("%d. %s — %s", i+1, clip(q, 40), clip(a, 40))
				if set.ImagePaths[i] != "" {
					line += " [img]"
				}
				pairDisplay = append(pairDisplay, line)
			}
			titleEntry.SetText(set.Title)
		} else {
			titleEntry.SetText("")
		}
		pairList.Refresh()
	}

	refreshActive := func() {
		activeDisplay = activeDisplay[:0]
		activeIDs = activeIDs[:0]
		for _, s := range mgr.Active() {
			activeDisplay = append(activeDisplay, fmt.Sprintf("%s (%d)", s.Title, len(s.Questions)))
			activeIDs = append(activeIDs, s.ID)
		}
		activeList.Refresh()
		refreshPairs()
	}
	activeList.OnSelected = func(id widget.ListItemID) {
		selectedSet = int(id)
		selectedPair = -1
		refreshPairs()
	}

	saveSet := func(mutate func(*domain.QuestionSet)) {
		set, ok := currentSet()
		if !ok {
			return
		}
		mutate(&set)
		set.Normalize()
		mgr.Update(set)
		refreshActive()
	}

	btnNewSet := widget.NewButton("New Set", func() {
		nameEntry := widget.NewEntry()
		nameEntry.SetPlaceHolder("Title")
		dialog.NewForm("New Set", "Create", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Title", nameEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			title := strings.TrimSpace(nameEntry.Text)
			if title == "" {
				dialog.ShowInformation("New Set", "Please enter a title.", w)
				return
			}
			set := domain.New(title)
			mgr.Create(set)
			journal.Event("set_created", map[string]any{"id": set.ID})
			refreshActive()
			status.SetText("Set created.")
		}, w).Show()
	})
	btnRenameSet := widget.NewButton("Apply Title", func() {
		saveSet(func(s *domain.QuestionSet) { s.Title = strings.TrimSpace(titleEntry.Text) })
		status.SetText("Title updated.")
	})
	btnTrashSet := widget.NewButton("Move to Trash", func() {
		if selectedSet < 0 || selectedSet >= len(activeIDs) {
			return
		}
		id := activeIDs[selectedSet]
		mgr.SoftDelete(id)
		journal.Event("set_trashed", map[string]any{"id": id})
		selectedSet = -1
		refreshActive()
		status.SetText("Set moved to trash.")
	})
	btnUndo := widget.NewButton("Undo", func() {
		if selectedSet < 0 || selectedSet >= len(activeIDs) {
			return
		}
		if mgr.Undo(activeIDs[selectedSet]) {
			refreshActive()
			status.SetText("Undone.")
		} else {
			status.SetText("Nothing to undo.")
		}
	})

	btnAddPair := widget.NewButton("Add Pair", func() {
		q := strings.TrimSpace(questionEntry.Text)
		a := strings.TrimSpace(answerEntry.Text)
		if q == "" {
			dialog.ShowInformation("Add Pair", "Please enter a question.", w)
			return
		}
		saveSet(func(s *domain.QuestionSet) {
			s.Questions = append(s.Questions, q)
			s.Answers = append(s.Answers, a)
			s.ImagePaths = append(s.ImagePaths, "")
		})
		questionEntry.SetText("")
		answerEntry.SetText("")
		status.SetText("Pair added.")
	})
	btnRemovePair := widget.NewButton("Remove Pair", func() {
		idx := selectedPair
		saveSet(func(s *domain.QuestionSet) {
			if idx < 0 || idx >= len(s.Questions) {
				return
			}
			s.Questions = append(s.Questions[:idx], s.Questions[idx+1:]...)
			s.Answers = append(s.Answers[:idx], s.Answers[idx+1:]...)
			s.ImagePaths = append(s.ImagePaths[:idx], s.ImagePaths[idx+1:]...)
		})
		selectedPair = -1
		status.SetText("Pair removed.")
	})
	btnAttachImage := widget.NewButton("Attach Image…", func() {
		set, ok := currentSet()
		if !ok || selectedPair < 0 || selectedPair >= len(set.Questions) {
			dialog.ShowInformation("Attach Image", "Select a pair first.", w)
			return
		}
		idx := selectedPair
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer func() { _ = rc.Close() }()
			data, rerr := io.ReadAll(rc)
			if rerr != nil {
				dialog.ShowError(rerr, w)
				return
			}
			name, serr := mgr.SaveImageFor(set, idx, data)
			if serr != nil {
				dialog.ShowError(serr, w)
				return
			}
			refreshActive()
			status.SetText("Image attached: " + name)
		}, w)
		fd.Show()
	})
	btnExportPDF := widget.NewButton("Export PDF…", func() {
		set, ok := currentSet()
		if !ok {
			return
		}
		out := filepath.Join(root, "exports", set.ID+".pdf")
		if err := export.ExportSetPDF(st, set, out, export.PDFOptions{IncludeImages: true}); err != nil {
			dialog.ShowError(err, w)
			return
		}
		journal.Event("set_exported", map[string]any{"id": set.ID, "format": "pdf"})
		status.SetText("Exported: " + out)
	})

	// Search box over the derived index
	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search sets (Ctrl+K)…")
	searchEntry.OnSubmitted = func(q string) {
		qq := strings.TrimSpace(q)
		if qq == "" {
			return
		}
		status.SetText("Searching…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := storage.RebuildIndex(ctx, root, mgr.Active()); err != nil {
				fyne.Do(func() { status.SetText("Search failed.") })
				l.Error("rebuild index failed", slog.Any("err", err))
				return
			}
			res, err := storage.Search(ctx, root, qq, 50)
			fyne.Do(func() {
				if err != nil {
					l.Error("search failed", slog.Any("err", err))
					status.SetText("Search failed.")
					return
				}
				status.SetText(fmt.Sprintf("%d results", len(res)))
				if len(res) > 0 {
					for i, id := range activeIDs {
						if id == res[0].SetID {
							activeList.Select(i)
							break
						}
					}
				}
			})
		}()
	}

	notesPane := container.NewBorder(
		container.NewVBox(searchEntry),
		container.NewHBox(btnNewSet, btnTrashSet, btnUndo, btnExportPDF),
		container.NewVBox(widget.NewLabel("Sets"), widget.NewSeparator(), activeList),
		nil,
		container.NewBorder(
			titleEntry,
			container.NewVBox(questionEntry, answerEntry, container.NewHBox(btnRenameSet, btnAddPair, btnRemovePair, btnAttachImage)),
			nil, nil,
			pairList,
		),
	)

	// Trash tab
	trashDisplay := []string{}
	trashIDs := []string{}
	selectedTrash := -1
	trashList := widget.NewList(
		func() int { return len(trashDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(trashDisplay[i]) },
	)
	trashList.OnSelected = func(id widget.ListItemID) { selectedTrash = int(id) }
	refreshTrash := func() {
		trashDisplay = trashDisplay[:0]
		trashIDs = trashIDs[:0]
		for _, s := range mgr.Trashed() {
			trashDisplay = append(trashDisplay, fmt.Sprintf("%s (%d)", s.Title, len(s.Questions)))
			trashIDs = append(trashIDs, s.ID)
		}
		trashList.Refresh()
	}
	btnRestore := widget.NewButton("Restore", func() {
		if selectedTrash < 0 || selectedTrash >= len(trashIDs) {
			return
		}
		id := trashIDs[selectedTrash]
		mgr.Restore(id)
		journal.Event("set_restored", map[string]any{"id": id})
		selectedTrash = -1
		refreshTrash()
		refreshActive()
		status.SetText("Set restored.")
	})
	purgeOne := func(id string) {
		mgr.Purge(id)
		journal.Event("set_purged", map[string]any{"id": id})
		selectedTrash = -1
		refreshTrash()
		status.SetText("Set purged.")
	}
	btnPurge := widget.NewButton("Purge", func() {
		if selectedTrash < 0 || selectedTrash >= len(trashIDs) {
			return
		}
		id := trashIDs[selectedTrash]
		if cfg.General.ConfirmPurge {
			dialog.NewConfirm("Purge Set", "Permanently delete this set? This cannot be undone.", func(ok bool) {
				if ok {
					purgeOne(id)
				}
			}, w).Show()
			return
		}
		purgeOne(id)
	})
	btnEmptyTrash := widget.NewButton("Empty Trash", func() {
		emptyIt := func() {
			mgr.PurgeAll()
			journal.Event("trash_emptied", nil)
			selectedTrash = -1
			refreshTrash()
			status.SetText("Trash emptied.")
		}
		if cfg.General.ConfirmPurge {
			dialog.NewConfirm("Empty Trash", "Permanently delete all trashed sets?", func(ok bool) {
				if ok {
					emptyIt()
				}
			}, w).Show()
			return
		}
		emptyIt()
	})
	trashPane := container.NewBorder(
		widget.NewLabel("Trash"),
		container.NewHBox(btnRestore, btnPurge, btnEmptyTrash),
		nil, nil,
		trashList,
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Notes", notesPane),
		container.NewTabItem("Trash", trashPane),
	)
	tabs.OnSelected = func(*container.TabItem) { refreshTrash(); refreshActive() }
	w.SetContent(container.NewBorder(nil, status, nil, nil, tabs))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyK, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		w.Canvas().Focus(searchEntry)
	})

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		l.Info("UI closed")
	})

	refreshActive()
	refreshTrash()
	w.ShowAndRun()
	return nil
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}
