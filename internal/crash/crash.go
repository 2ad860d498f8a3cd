/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash /*
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"mistipad/internal/domain"
	applog "mistipad/internal/log"
	"mistipad/internal/storage"
	"mistipad/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Collections is the minimal view Recover needs to snapshot in-memory state.
// *notes.Manager satisfies it.
type Collections interface {
	Active() []domain.QuestionSet
	Trashed() []domain.QuestionSet
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report file under the workspace's backups directory, and attempts a
// crash-safe JSON snapshot of both collections (if a manager is provided).
//
// Usage: defer crash.Recover(m, root)
// recover only works when called directly by the deferred function, so
// Recover must be deferred itself; from inside a deferred closure, call
// recover there and hand the value to Report.
func Recover(c Collections, root string) {
	if r := recover(); r != nil {
		Report(r, debug.Stack(), c, root)
	}
}

// Report handles an already-recovered panic value: log, report file,
// collection snapshot, stderr notice, exit.
func Report(r any, stack []byte, c Collections, root string) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, _ := writeReport(root, r, stack)
	if c != nil {
		if path, err := writeSnapshot(c, root); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// Exit with a non-zero code to indicate failure in CLI context.
	exitFn(2)
}

func reportDir(root string) string {
	if root == "" {
		return os.TempDir()
	}
	dir := filepath.Join(root, storage.BackupsDirName)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func writeReport(root string, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(root), fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Mistipad Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if root != "" {
		_, _ = fmt.Fprintf(&buf, "WorkspaceRoot: %s\n", root)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}

// writeSnapshot dumps both collections verbatim next to the crash report so
// that unsaved in-memory state survives even if the regular blobs are stale.
func writeSnapshot(c Collections, root string) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(root), fmt.Sprintf("crash-snapshot-%s.json", stamp))

	payload := map[string][]domain.QuestionSet{
		storage.ActiveKey: c.Active(),
		storage.TrashKey:  c.Trashed(),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return path, err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
