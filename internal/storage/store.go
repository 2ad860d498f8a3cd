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
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"mistipad/internal/domain"
	applog "mistipad/internal/log"
)

// Store offers whole-collection load/save of question-set lists plus
// per-image write/read. It is a best-effort local cache: load and save
// failures are swallowed by contract (logged, never surfaced), so on-disk
// state can fall behind in-memory state when a save fails. Image I/O does
// surface errors, since the caller must know whether a filename reference is
// valid.
type Store struct {
	blobs BlobStore
	files FileStore
	log   *slog.Logger
}

// NewStore wires a Store from the injected host stores.
func NewStore(blobs BlobStore, files FileStore) *Store {
	return &Store{blobs: blobs, files: files, log: applog.WithComponent("storage")}
}

// OpenWorkspace builds a file-backed Store rooted at dir, with images under
// dir/images.
func OpenWorkspace(dir string) (*Store, error) {
	blobs, err := NewFileBlobStore(dir)
	if err != nil {
		return nil, err
	}
	files, err := NewDirFileStore(filepath.Join(dir, ImagesDirName))
	if err != nil {
		return nil, err
	}
	return NewStore(blobs, files), nil
}

// OpenWorkspaceBackend builds a Store rooted at dir with the named blob
// backend, "file" or "sqlite". Images always live in dir/images regardless
// of backend.
func OpenWorkspaceBackend(dir, backend string, keepSnapshots int) (*Store, error) {
	if backend == "" || backend == "file" {
		return OpenWorkspace(dir)
	}
	if backend != "sqlite" {
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
	blobs, err := NewSQLiteBlobStore(dir, keepSnapshots)
	if err != nil {
		return nil, err
	}
	files, err := NewDirFileStore(filepath.Join(dir, ImagesDirName))
	if err != nil {
		return nil, err
	}
	return NewStore(blobs, files), nil
}

// LoadCollection reads and decodes the list stored at key. An absent key or
// an undecodable blob yields an empty list; when the primary blob is corrupt
// and the blob store keeps backups, the latest decodable backup wins.
func (s *Store) LoadCollection(key string) []domain.QuestionSet {
	data, ok, err := s.blobs.Get(key)
	if err != nil {
		s.log.Warn("load collection failed, treating as empty", slog.String("key", key), slog.Any("err", err))
		return []domain.QuestionSet{}
	}
	if !ok {
		return []domain.QuestionSet{}
	}
	var sets []domain.QuestionSet
	if err := json.Unmarshal(data, &sets); err != nil {
		s.log.Warn("collection blob undecodable", slog.String("key", key), slog.Any("err", err))
		if br, okBR := s.blobs.(backupReader); okBR {
			if bak, found := br.LatestBackup(key); found {
				var recovered []domain.QuestionSet
				if berr := json.Unmarshal(bak, &recovered); berr == nil {
					s.log.Info("recovered collection from backup", slog.String("key", key), slog.Int("sets", len(recovered)))
					return recovered
				}
			}
		}
		return []domain.QuestionSet{}
	}
	if sets == nil {
		sets = []domain.QuestionSet{}
	}
	return sets
}

// SaveCollection normalizes every set, encodes the whole list and writes it
// at key. Encode or write failure drops the save; the caller's in-memory
// state is then ahead of disk until the next successful save.
func (s *Store) SaveCollection(key string, sets []domain.QuestionSet) {
	out := make([]domain.QuestionSet, len(sets))
	for i := range sets {
		c := sets[i].Clone()
		c.Normalize()
		out[i] = c
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		s.log.Warn("encode collection failed, save skipped", slog.String("key", key), slog.Any("err", err))
		return
	}
	data = append(data, '\n')
	if err := s.blobs.Set(key, data); err != nil {
		s.log.Warn("write collection failed, save skipped", slog.String("key", key), slog.Any("err", err))
	}
}

// WriteImage writes raw image bytes under the given filename, overwriting if
// present.
func (s *Store) WriteImage(name string, data []byte) error {
	return s.files.WriteFile(name, data)
}

// ReadImage reads raw image bytes, or ErrImageNotFound.
func (s *Store) ReadImage(name string) ([]byte, error) {
	return s.files.ReadFile(name)
}

// RemoveImage deletes an image file best-effort.
func (s *Store) RemoveImage(name string) error {
	return s.files.Remove(name)
}
