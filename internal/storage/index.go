/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "mistipad/internal/log"
	"mistipad/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace embedded/derived data under the root.
	IndexDirName  = ".mistipad"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded store.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 1
)

// IndexPath returns the full path to the workspace's embedded database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures the per-workspace SQLite database exists at
// .mistipad/index.sqlite, opens it, enables WAL mode, and ensures the
// meta/version tables plus the kv, documents and snapshots schema exist.
// Callers may close the returned *sql.DB when no longer needed.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .mistipad dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .mistipad dir: %w", err)
	}

	path := IndexPath(root)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: serialize access through a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Whole-document blobs for the sqlite blob store backend.
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// Derived search index over set titles, questions and answers.
		// Rebuildable from the canonical blobs at any time.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id       INTEGER PRIMARY KEY,
			set_id       TEXT    NOT NULL,
			question_idx INTEGER NOT NULL,
			kind         TEXT    NOT NULL,
			text         TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_set ON documents(set_id);`,
		// Collection history: one row per save through the sqlite backend.
		`CREATE TABLE IF NOT EXISTS snapshots (
			id   INTEGER PRIMARY KEY,
			key  TEXT NOT NULL,
			ts   TEXT NOT NULL,
			blob BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_key_ts ON snapshots(key, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SQLiteBlobStore implements BlobStore on top of the embedded kv table.
// Every Set also records a history snapshot and prunes old rows, mirroring
// the timestamped-backup story of the file backend.
type SQLiteBlobStore struct {
	Root string
	// KeepSnapshots caps history rows kept per key; <=0 applies the default.
	KeepSnapshots int
}

const defaultKeepSnapshots = 20

// NewSQLiteBlobStore validates the workspace by opening the database once.
func NewSQLiteBlobStore(root string, keepSnapshots int) (*SQLiteBlobStore, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	_ = db.Close()
	return &SQLiteBlobStore{Root: root, KeepSnapshots: keepSnapshots}, nil
}

// Get returns the blob at key; absence is reported via the boolean.
func (s *SQLiteBlobStore) Get(key string) ([]byte, bool, error) {
	db, err := InitOrOpenIndex(s.Root)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = db.Close() }()
	var value []byte
	err = db.QueryRow(`SELECT value FROM kv WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query kv %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the blob and appends a history snapshot.
func (s *SQLiteBlobStore) Set(key string, data []byte) error {
	db, err := InitOrOpenIndex(s.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := db.Exec(`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, data, now); err != nil {
		return fmt.Errorf("upsert kv %s: %w", key, err)
	}
	if _, err := db.Exec(insertSnapshotSQL, key, now, data); err != nil {
		return fmt.Errorf("record snapshot %s: %w", key, err)
	}
	keep := s.KeepSnapshots
	if keep <= 0 {
		keep = defaultKeepSnapshots
	}
	if _, err := db.Exec(pruneSnapshotsSQL, key, key, keep); err != nil {
		return fmt.Errorf("prune snapshots %s: %w", key, err)
	}
	return nil
}

// LatestBackup returns the newest history snapshot for key, so the store
// layer can fall back to it when the current value fails to decode.
func (s *SQLiteBlobStore) LatestBackup(key string) ([]byte, bool) {
	blob, _, err := LatestSnapshot(s.Root, key)
	if err != nil || blob == nil {
		return nil, false
	}
	return blob, true
}
