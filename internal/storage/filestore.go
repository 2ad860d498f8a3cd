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
	"os"
	"path/filepath"
	"strings"
)

// ImagesDirName is the flat image directory inside a workspace root.
const ImagesDirName = "images"

// DirFileStore stores binary files in a single flat directory, keyed by bare
// filename. Filenames with path separators are rejected so callers cannot
// escape the directory.
type DirFileStore struct {
	Dir string
}

// NewDirFileStore creates the directory if needed.
func NewDirFileStore(dir string) (*DirFileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &DirFileStore{Dir: dir}, nil
}

func (d *DirFileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(d.Dir, name), nil
}

// WriteFile writes raw bytes, overwriting any existing file of the same name.
func (d *DirFileStore) WriteFile(name string, data []byte) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	return writeFileSync(p, data)
}

// ReadFile reads raw bytes, or ErrImageNotFound when missing or unreadable.
func (d *DirFileStore) ReadFile(name string) ([]byte, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, ErrImageNotFound
	}
	return b, nil
}

// Remove deletes a stored file; removing a missing file is not an error.
func (d *DirFileStore) Remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
