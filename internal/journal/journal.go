/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package journal provides an opt‑in, strictly local activity journal: small
// JSON events appended line by line to a file on the user's machine. Nothing
// ever leaves the device. Disabled by default.
package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "mistipad/internal/log"
	"mistipad/internal/version"
)

// Config holds runtime configuration for the journal.
//
// Environment variables (read by FromEnv):
// - MPD_JOURNAL: "1", "true", "yes" to enable the journal
// - MPD_JOURNAL_FILE: path of the JSON‑lines file to append to
//
// If no file is set, events are dropped (no‑ops), even if enabled.
type Config struct {
	Enabled bool
	File    string
}

func FromEnv() Config {
	return Config{
		Enabled: parseBool(os.Getenv("MPD_JOURNAL")),
		File:    strings.TrimSpace(os.Getenv("MPD_JOURNAL_FILE")),
	}
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Writer is a minimal async appender; it drops events silently on errors and
// never blocks the caller. The channel is bounded.
type Writer struct {
	cfg    Config
	log    *slog.Logger
	q      chan any
	once   sync.Once
	closed chan struct{}
}

var defaultWriter *Writer
var defaultOnce sync.Once

// InitDefault initializes the package‑level default writer from env when first used.
func InitDefault() {
	defaultOnce.Do(func() {
		defaultWriter = New(FromEnv())
	})
}

// NewDefault creates and installs the default writer with cfg. It stops any
// previously installed default and marks lazy initialization as done, so a
// later InitDefault cannot replace a config-installed writer with one built
// from env vars.
func NewDefault(cfg Config) {
	defaultOnce.Do(func() {})
	if defaultWriter != nil {
		defaultWriter.Close()
	}
	defaultWriter = New(cfg)
}

// New constructs a writer.
func New(cfg Config) *Writer {
	w := &Writer{
		cfg:    cfg,
		log:    applog.WithComponent("journal"),
		q:      make(chan any, 64),
		closed: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Enabled reports whether the journal is enabled and a target file is configured.
func (w *Writer) Enabled() bool { return w != nil && w.cfg.Enabled && w.cfg.File != "" }

// Enabled reports whether the default journal is enabled.
func Enabled() bool {
	InitDefault()
	return defaultWriter.Enabled()
}

// Event queues a small JSON event if enabled. Safe to call from anywhere.
func (w *Writer) Event(name string, props map[string]any) {
	if !w.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case w.q <- payload:
	default:
		// drop if queue full
	}
}

// Event using the default writer.
func Event(name string, props map[string]any) { InitDefault(); defaultWriter.Event(name, props) }

// Flush waits briefly for the queue to drain.
func (w *Writer) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(w.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (w *Writer) Close() { w.once.Do(func() { close(w.closed) }) }

func (w *Writer) loop() {
	for {
		select {
		case <-w.closed:
			return
		case item := <-w.q:
			w.append(item)
		}
	}
}

func (w *Writer) append(item any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	f, err := os.OpenFile(w.cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.log.Debug("journal append failed", slog.Any("err", err))
		return
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(buf, '\n')); err != nil {
		w.log.Debug("journal write failed", slog.Any("err", err))
	}
}
