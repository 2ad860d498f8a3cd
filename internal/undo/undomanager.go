/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot represents a reversible state blob for one question set.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	SetID string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerSet limits number of snapshots per set kept in memory (0 means unlimited).
	MaxPerSet int
	// MinInterval coalesces snapshots captured within the interval for the same set,
	// replacing the previous one instead of pushing a new entry.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per question set with
// performance safeguards. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-set stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024 // 8 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records a snapshot for a set. If within MinInterval from the
// last snapshot on the same set, it replaces the last one. Clears the redo
// stack for that set.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.SetID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.SetID] = stack
			m.redo[s.SetID] = nil
			m.enforceCapsLocked(s.SetID)
			return
		}
	}
	stack = append(stack, s)
	m.undo[s.SetID] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the set
	m.redo[s.SetID] = nil
	m.enforceCapsLocked(s.SetID)
}

// Undo pops from the set's undo stack and pushes to redo, returning the snapshot.
func (m *Manager) Undo(setID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[setID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[setID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[setID] = append(m.redo[setID], s)
	return s, true
}

// Redo pops from redo and pushes back to undo.
func (m *Manager) Redo(setID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[setID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[setID] = r[:len(r)-1]
	m.undo[setID] = append(m.undo[setID], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(setID)
	return s, true
}

// ClearSet clears undo/redo stacks for a set to free memory, e.g. after the
// set is purged.
func (m *Manager) ClearSet(setID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[setID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, setID)
	delete(m.redo, setID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, sets int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sets = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, sets, totalSnapshots
}

func (m *Manager) enforceCapsLocked(setID string) {
	// Per-set depth cap
	if m.cfg.MaxPerSet > 0 {
		stack := m.undo[setID]
		if len(stack) > m.cfg.MaxPerSet {
			toDrop := len(stack) - m.cfg.MaxPerSet
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[setID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all sets
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestSet := ""
		oldestIdx := -1
		var oldestTS time.Time
		for id, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestSet = id
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestSet]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestSet] = stack[1:]
		if len(m.undo[oldestSet]) == 0 {
			delete(m.undo, oldestSet)
		}
	}
}
