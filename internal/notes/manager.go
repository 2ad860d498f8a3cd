/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package notes owns the in-memory question-set collections and their
// trash/restore lifecycle. Every mutating operation re-saves its whole owning
// collection through the storage layer; collections are expected to stay
// small (tens of sets), so wholesale rewrites are acceptable.
//
// A Manager is not safe for concurrent use. All operations are expected to
// run on the host's single UI-responsive thread.
package notes

import (
	"encoding/json"
	"log/slog"
	"time"

	"mistipad/internal/domain"
	applog "mistipad/internal/log"
	"mistipad/internal/storage"
	"mistipad/internal/undo"
)

// Options tunes manager behavior.
type Options struct {
	// PurgeImages enables best-effort removal of a set's image files on
	// permanent purge. Soft delete never touches files, so restore keeps
	// images intact.
	PurgeImages bool
	// History configures the per-set undo stacks for Update.
	History undo.Config
}

// Manager owns the active and trashed collections, loaded once at
// construction from the store under the fixed keys.
type Manager struct {
	store   *storage.Store
	opts    Options
	log     *slog.Logger
	history *undo.Manager

	active  []domain.QuestionSet
	trashed []domain.QuestionSet
}

// NewManager loads both collections and returns a ready manager.
func NewManager(store *storage.Store, opts Options) *Manager {
	m := &Manager{
		store:   store,
		opts:    opts,
		log:     applog.WithComponent("notes"),
		history: undo.NewManager(opts.History),
	}
	m.active = normalizeAll(store.LoadCollection(storage.ActiveKey))
	m.trashed = normalizeAll(store.LoadCollection(storage.TrashKey))
	m.log.Debug("collections loaded",
		slog.Int("active", len(m.active)), slog.Int("trashed", len(m.trashed)))
	return m
}

// Active returns a copy of the active collection in display order. Safe on a
// nil manager so crash handling can snapshot unconditionally.
func (m *Manager) Active() []domain.QuestionSet {
	if m == nil {
		return nil
	}
	return cloneAll(m.active)
}

// Trashed returns a copy of the trashed collection in append order.
func (m *Manager) Trashed() []domain.QuestionSet {
	if m == nil {
		return nil
	}
	return cloneAll(m.trashed)
}

// Find returns a copy of the set with the given id from either collection.
func (m *Manager) Find(id string) (domain.QuestionSet, bool) {
	if i := indexOf(m.active, id); i >= 0 {
		return m.active[i].Clone(), true
	}
	if i := indexOf(m.trashed, id); i >= 0 {
		return m.trashed[i].Clone(), true
	}
	return domain.QuestionSet{}, false
}

// Create appends the set to the active collection and saves it. The copy is
// normalized so the parallel arrays always line up in memory.
func (m *Manager) Create(set domain.QuestionSet) {
	c := set.Clone()
	c.Normalize()
	m.active = append(m.active, c)
	m.saveActive()
}

// Update replaces the active entry whose id matches set.ID. An unknown id is
// a silent no-op by contract. The previous content is pushed onto the set's
// undo history.
func (m *Manager) Update(set domain.QuestionSet) {
	i := indexOf(m.active, set.ID)
	if i < 0 {
		m.log.Debug("update of unknown set ignored", slog.String("id", set.ID))
		return
	}
	if blob, err := json.Marshal(m.active[i]); err == nil {
		m.history.PushSnapshot(undo.Snapshot{SetID: set.ID, Blob: blob, TS: time.Now()})
	}
	c := set.Clone()
	c.Normalize()
	m.active[i] = c
	m.saveActive()
}

// Undo restores the most recent pre-update content of the set and saves the
// active collection. It reports whether anything was undone.
func (m *Manager) Undo(id string) bool {
	i := indexOf(m.active, id)
	if i < 0 {
		return false
	}
	snap, ok := m.history.Undo(id)
	if !ok {
		return false
	}
	var prev domain.QuestionSet
	if err := json.Unmarshal(snap.Blob, &prev); err != nil {
		m.log.Warn("undo snapshot undecodable", slog.String("id", id), slog.Any("err", err))
		return false
	}
	m.active[i] = prev
	m.saveActive()
	return true
}

// Reorder moves the element at from to position to within the active
// collection, preserving the relative order of all others, and saves. Out of
// range indices are a no-op.
func (m *Manager) Reorder(from, to int) {
	n := len(m.active)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	set := m.active[from]
	rest := append(m.active[:from:from], m.active[from+1:]...)
	m.active = append(rest[:to:to], append([]domain.QuestionSet{set}, rest[to:]...)...)
	m.saveActive()
}

// SoftDelete moves the set from active to the end of trashed and saves both
// collections. An unknown id is a no-op.
func (m *Manager) SoftDelete(id string) {
	i := indexOf(m.active, id)
	if i < 0 {
		m.log.Debug("soft delete of unknown set ignored", slog.String("id", id))
		return
	}
	set := m.active[i]
	m.active = append(m.active[:i], m.active[i+1:]...)
	m.trashed = append(m.trashed, set)
	m.saveActive()
	m.saveTrashed()
}

// Restore moves the set from trashed back to active, appended at the end
// (its original position is not preserved), and saves both collections.
func (m *Manager) Restore(id string) {
	i := indexOf(m.trashed, id)
	if i < 0 {
		m.log.Debug("restore of unknown set ignored", slog.String("id", id))
		return
	}
	set := m.trashed[i]
	m.trashed = append(m.trashed[:i], m.trashed[i+1:]...)
	m.active = append(m.active, set)
	m.saveActive()
	m.saveTrashed()
}

// Purge removes the set from trashed permanently and saves. With PurgeImages
// enabled, the set's image files are removed best-effort.
func (m *Manager) Purge(id string) {
	i := indexOf(m.trashed, id)
	if i < 0 {
		m.log.Debug("purge of unknown set ignored", slog.String("id", id))
		return
	}
	set := m.trashed[i]
	m.trashed = append(m.trashed[:i], m.trashed[i+1:]...)
	m.saveTrashed()
	m.history.ClearSet(id)
	if m.opts.PurgeImages {
		m.removeImages(set)
	}
}

// PurgeAll empties the trashed collection and saves it.
func (m *Manager) PurgeAll() {
	purged := m.trashed
	m.trashed = []domain.QuestionSet{}
	m.saveTrashed()
	for _, set := range purged {
		m.history.ClearSet(set.ID)
		if m.opts.PurgeImages {
			m.removeImages(set)
		}
	}
}

// SaveImageFor writes imageBytes under the deterministic filename for
// (set.ID, questionIndex) and returns the filename. On success the filename
// is also recorded in the active entry's ImagePaths and active is saved; on
// failure the caller is expected to leave the question without an image
// reference.
func (m *Manager) SaveImageFor(set domain.QuestionSet, questionIndex int, imageBytes []byte) (string, error) {
	name := domain.ImageFileName(set.ID, questionIndex)
	if err := m.store.WriteImage(name, imageBytes); err != nil {
		m.log.Warn("image write failed", slog.String("file", name), slog.Any("err", err))
		return "", err
	}
	if i := indexOf(m.active, set.ID); i >= 0 && questionIndex >= 0 {
		s := &m.active[i]
		for len(s.ImagePaths) <= questionIndex {
			s.ImagePaths = append(s.ImagePaths, "")
		}
		s.ImagePaths[questionIndex] = name
		m.saveActive()
	}
	return name, nil
}

// LoadImage is a passthrough to the store.
func (m *Manager) LoadImage(filename string) ([]byte, error) {
	return m.store.ReadImage(filename)
}

func (m *Manager) saveActive() { m.store.SaveCollection(storage.ActiveKey, m.active) }

func (m *Manager) saveTrashed() { m.store.SaveCollection(storage.TrashKey, m.trashed) }

func (m *Manager) removeImages(set domain.QuestionSet) {
	for _, p := range set.ImagePaths {
		if p == "" {
			continue
		}
		if err := m.store.RemoveImage(p); err != nil {
			m.log.Debug("image cleanup failed", slog.String("file", p), slog.Any("err", err))
		}
	}
}

func indexOf(sets []domain.QuestionSet, id string) int {
	for i := range sets {
		if sets[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeAll(sets []domain.QuestionSet) []domain.QuestionSet {
	for i := range sets {
		sets[i].Normalize()
	}
	return sets
}

func cloneAll(sets []domain.QuestionSet) []domain.QuestionSet {
	out := make([]domain.QuestionSet, len(sets))
	for i := range sets {
		out[i] = sets[i].Clone()
	}
	return out
}
