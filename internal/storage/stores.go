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

import "errors"

// Fixed blob keys for the two persisted collections.
const (
	ActiveKey = "question_sets"
	TrashKey  = "trashed_sets"
)

// ErrImageNotFound reports a missing or unreadable image file.
var ErrImageNotFound = errors.New("image not found")

// BlobStore is the host key-value abstraction used for whole-document
// storage. Implementations are expected to be cheap to construct; the app
// ships a JSON-file and a SQLite backend, and tests inject in-memory fakes.
type BlobStore interface {
	// Get returns the blob at key. The boolean reports presence; a missing
	// key is not an error.
	Get(key string) ([]byte, bool, error)
	// Set writes the blob at key wholesale, overwriting any previous value.
	Set(key string, data []byte) error
}

// backupReader is implemented by blob stores that keep recoverable copies of
// previous values. The store layer consults it when the current blob fails to
// decode.
type backupReader interface {
	LatestBackup(key string) ([]byte, bool)
}

// FileStore is a flat-file directory abstraction used for binary image
// storage.
type FileStore interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	// Remove deletes a stored file; removing a missing file is not an error.
	Remove(name string) error
}
