/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"mistipad/internal/config"
	"mistipad/internal/crash"
	"mistipad/internal/domain"
	"mistipad/internal/export"
	"mistipad/internal/journal"
	applog "mistipad/internal/log"
	"mistipad/internal/notes"
	"mistipad/internal/storage"
	"mistipad/internal/ui"
	"mistipad/internal/undo"
	"mistipad/internal/version"
)

func usage() {
	fmt.Println("Mistipad — question sets for cramming")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mistipad version|-v|--version              Show version")
	fmt.Println("  mistipad init <dir>                         Create a new workspace at <dir>")
	fmt.Println("  mistipad list <dir> [--trash]               List active (or trashed) sets")
	fmt.Println("  mistipad new <dir> <title>                  Create a new question set")
	fmt.Println("  mistipad show <dir> <id>                    Print one set with its pairs")
	fmt.Println("  mistipad trash <dir> <id>                   Move a set to the trash")
	fmt.Println("  mistipad restore <dir> <id>                 Restore a trashed set")
	fmt.Println("  mistipad purge <dir> <id>|--all             Permanently delete trashed set(s)")
	fmt.Println("  mistipad search <dir> <query>               Full-text search across sets")
	fmt.Println("  mistipad export-pdf <dir> <id> [<out>]      Export a set as flashcard PDF")
	fmt.Println("  mistipad export-png <dir> <id> [<outDir>]   Export a set as flashcard PNGs")
	fmt.Println("  mistipad ui [<dir>]                         Launch desktop UI (build with -tags fyne for full UI)")
}

func openManager(dir string, cfg config.AppConfig, l *slog.Logger) (*notes.Manager, *storage.Store, string) {
	root := dir
	if root == "" {
		root = cfg.Storage.Root
	}
	if root == "" {
		fmt.Println("Error: no workspace directory given and storage.root is unset")
		os.Exit(2)
	}
	abs, _ := filepath.Abs(root)
	st, err := storage.OpenWorkspaceBackend(abs, cfg.Storage.Backend, cfg.Storage.KeepSnapshots)
	if err != nil {
		l.Error("open workspace failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	m := notes.NewManager(st, notes.Options{
		PurgeImages: cfg.Storage.PurgeImages,
		History:     undo.Config{MinInterval: 300 * time.Millisecond},
	})
	return m, st, abs
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	journal.NewDefault(journal.Config{Enabled: cfg.Journal.Enabled, File: cfg.Journal.File})

	var mgr *notes.Manager
	var root string
	defer func() {
		if r := recover(); r != nil {
			crash.Report(r, debug.Stack(), mgr, root)
		}
	}()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Mistipad — question sets for cramming")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init workspace", slog.String("root", abs))
			st, err := storage.OpenWorkspaceBackend(abs, cfg.Storage.Backend, cfg.Storage.KeepSnapshots)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			// write the empty collections so the workspace is recognizable
			st.SaveCollection(storage.ActiveKey, nil)
			st.SaveCollection(storage.TrashKey, nil)
			fmt.Println("Created workspace at", abs)
			return
		case "list":
			if len(args) < 3 {
				fmt.Println("list requires <dir>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			sets := m.Active()
			header := "Active sets"
			if len(args) > 3 && args[3] == "--trash" {
				sets = m.Trashed()
				header = "Trashed sets"
			}
			fmt.Printf("%s: %d\n", header, len(sets))
			for _, s := range sets {
				fmt.Printf("  %s  %s (%d pairs)\n", s.ID, s.Title, len(s.Questions))
			}
			return
		case "new":
			if len(args) < 4 {
				fmt.Println("new requires <dir> and <title>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			set := domain.New(args[3])
			m.Create(set)
			journal.Event("set_created", map[string]any{"id": set.ID})
			fmt.Println("Created set", set.ID)
			return
		case "show":
			if len(args) < 4 {
				fmt.Println("show requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			set, ok := m.Find(args[3])
			if !ok {
				fmt.Println("No set with id", args[3])
				os.Exit(1)
			}
			fmt.Printf("%s — %s\n", set.ID, set.Title)
			for i := range set.Questions {
				img := ""
				if set.ImagePaths[i] != "" {
					img = "  [" + set.ImagePaths[i] + "]"
				}
				fmt.Printf("  %d. Q: %s\n     A: %s%s\n", i+1, set.Questions[i], set.Answers[i], img)
			}
			return
		case "trash":
			if len(args) < 4 {
				fmt.Println("trash requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			m.SoftDelete(args[3])
			journal.Event("set_trashed", map[string]any{"id": args[3]})
			fmt.Println("Moved to trash:", args[3])
			return
		case "restore":
			if len(args) < 4 {
				fmt.Println("restore requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			m.Restore(args[3])
			journal.Event("set_restored", map[string]any{"id": args[3]})
			fmt.Println("Restored:", args[3])
			return
		case "purge":
			if len(args) < 4 {
				fmt.Println("purge requires <dir> and <id> or --all")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			if args[3] == "--all" {
				m.PurgeAll()
				journal.Event("trash_emptied", nil)
				fmt.Println("Emptied trash.")
				return
			}
			m.Purge(args[3])
			journal.Event("set_purged", map[string]any{"id": args[3]})
			fmt.Println("Purged:", args[3])
			return
		case "search":
			if len(args) < 4 {
				fmt.Println("search requires <dir> and <query>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := storage.RebuildIndex(ctx, abs, m.Active()); err != nil {
				l.Error("rebuild index failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			res, err := storage.Search(ctx, abs, args[3], 100)
			if err != nil {
				l.Error("search failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("%d results\n", len(res))
			for _, r := range res {
				loc := "title"
				if r.QuestionIdx >= 0 {
					loc = fmt.Sprintf("%s %d", r.Kind, r.QuestionIdx+1)
				}
				fmt.Printf("  %s  %s: %s\n", r.SetID, loc, r.Text)
			}
			return
		case "export-pdf":
			if len(args) < 4 {
				fmt.Println("export-pdf requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			m, st, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			set, ok := m.Find(args[3])
			if !ok {
				fmt.Println("No set with id", args[3])
				os.Exit(1)
			}
			out := filepath.Join(abs, "exports", set.ID+".pdf")
			if len(args) > 4 {
				out = args[4]
			}
			if err := export.ExportSetPDF(st, set, out, export.PDFOptions{IncludeImages: true}); err != nil {
				l.Error("export pdf failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			journal.Event("set_exported", map[string]any{"id": set.ID, "format": "pdf"})
			fmt.Println("Wrote", out)
			return
		case "export-png":
			if len(args) < 4 {
				fmt.Println("export-png requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			m, _, abs := openManager(args[2], cfg, l)
			mgr, root = m, abs
			set, ok := m.Find(args[3])
			if !ok {
				fmt.Println("No set with id", args[3])
				os.Exit(1)
			}
			outDir := filepath.Join(abs, "exports")
			if len(args) > 4 {
				outDir = args[4]
			}
			if err := export.ExportSetPNGCards(set, outDir, export.PNGOptions{}); err != nil {
				l.Error("export png failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			journal.Event("set_exported", map[string]any{"id": set.ID, "format": "png"})
			fmt.Println("Wrote cards to", outDir)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
