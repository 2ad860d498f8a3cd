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
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// BackupsDirName holds timestamped copies of previous blob values.
	BackupsDirName = "backups"

	blobExt = ".json"
)

// FileBlobStore persists blobs as JSON files under a workspace root:
// <root>/<key>.json. Writes are transactional (temp file, fsync, rename) and
// the previous value is copied to a timestamped backup first, so a corrupted
// current file can be recovered from <root>/backups/.
type FileBlobStore struct {
	Root string
}

// NewFileBlobStore creates the workspace root (and backups dir) if needed.
func NewFileBlobStore(root string) (*FileBlobStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &FileBlobStore{Root: root}, nil
}

func (f *FileBlobStore) path(key string) string {
	return filepath.Join(f.Root, key+blobExt)
}

// Get reads the blob for key. A missing file reports absence, not an error.
func (f *FileBlobStore) Get(key string) ([]byte, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}
	return b, true, nil
}

// Set writes the blob with transactional semantics and a timestamped backup
// of the previous value (if present).
func (f *FileBlobStore) Set(key string, data []byte) error {
	target := f.path(key)
	bdir := filepath.Join(f.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current value exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bname := fmt.Sprintf("%s%s.%s.bak", key, blobExt, stamp)
		if cerr := copyFile(target, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current blob: %w", cerr)
		}
	}

	// Transactional write: temp file in same directory, then rename over target
	temp := filepath.Join(f.Root, fmt.Sprintf(".%s%s.tmp-%d-%d", key, blobExt, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp blob: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace blob: %w", rerr)
	}
	return nil
}

// LatestBackup returns the newest backed-up value for key, if any.
func (f *FileBlobStore) LatestBackup(key string) ([]byte, bool) {
	bdir := filepath.Join(f.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, false
	}
	prefix := key + blobExt + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return nil, false
	}
	return b, true
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return writeFileSync(dst, b)
}
