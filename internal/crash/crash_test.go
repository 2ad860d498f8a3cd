/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mistipad/internal/domain"
	"mistipad/internal/storage"
)

type fakeCollections struct {
	active  []domain.QuestionSet
	trashed []domain.QuestionSet
}

func (f fakeCollections) Active() []domain.QuestionSet  { return f.active }
func (f fakeCollections) Trashed() []domain.QuestionSet { return f.trashed }

// TestRecoverWritesReportAndSnapshot ensures Recover handles a panic, writes a
// report and a collection snapshot, and does not terminate the test process
// due to injected exitFn.
func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(os.Stderr, r) // drain pipe
	}()

	// Override exitFn to avoid os.Exit during test and to assert it was called
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	c := fakeCollections{
		active:  []domain.QuestionSet{{ID: "a", Title: "Unsaved", Questions: []string{"Q?"}, Answers: []string{"A"}, ImagePaths: []string{""}}},
		trashed: []domain.QuestionSet{},
	}

	func() {
		defer Recover(c, root)
		panic("boom")
	}()

	// Allow time for filesystem writes
	time.Sleep(50 * time.Millisecond)

	bdir := filepath.Join(root, storage.BackupsDirName)
	files, _ := os.ReadDir(bdir)
	var report, snapshot string
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-snapshot-") && strings.HasSuffix(f.Name(), ".json"):
			snapshot = filepath.Join(bdir, f.Name())
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(bdir, f.Name())
		}
	}
	if report == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	if snapshot == "" {
		t.Fatalf("expected crash snapshot file under backups dir")
	}
	sb, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var payload map[string][]domain.QuestionSet
	if err := json.Unmarshal(sb, &payload); err != nil {
		t.Fatalf("snapshot not JSON: %v", err)
	}
	if got := payload[storage.ActiveKey]; len(got) != 1 || got[0].Title != "Unsaved" {
		t.Fatalf("snapshot missing active sets: %v", payload)
	}

	// Ensure exit was attempted with code 2 (but intercepted)
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverNoPanicIsNoOp(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(nil, "")
	}()
	if called {
		t.Fatalf("Recover exited without a panic")
	}
}
