/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the
// user scope. Environment variables are treated as read-only overrides at
// runtime.
//
// config_version: bump when the structure changes in a backward-incompatible
// way. Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	ConfirmPurge bool   `yaml:"confirm_purge"`
	Theme        string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

type StorageConfig struct {
	// Root is the workspace directory holding collection blobs and images.
	Root string `yaml:"root"`
	// Backend selects the blob store: "file" (JSON files) or "sqlite".
	Backend string `yaml:"backend"`
	// PurgeImages enables best-effort image cleanup on permanent purge.
	PurgeImages bool `yaml:"purge_images"`
	// KeepSnapshots caps collection history rows kept per key in the sqlite
	// store; 0 keeps the default.
	KeepSnapshots int `yaml:"keep_snapshots"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
	Journal       JournalConfig `yaml:"journal"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{ConfirmPurge: true, Theme: "system"},
		Storage:       StorageConfig{Root: "", Backend: "file", PurgeImages: false, KeepSnapshots: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Journal:       JournalConfig{Enabled: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvRoot           = "MPD_ROOT"
	EnvStorageBackend = "MPD_STORAGE_BACKEND"
	EnvPurgeImages    = "MPD_PURGE_IMAGES"
	EnvConfirmPurge   = "MPD_CONFIRM_PURGE"
	EnvJournalEnabled = "MPD_JOURNAL"
	EnvJournalFile    = "MPD_JOURNAL_FILE"
	// EnvLogLevel logging envs
	EnvLogLevel  = "MPD_LOG_LEVEL"
	EnvLogFormat = "MPD_LOG_FORMAT"
	EnvLogSource = "MPD_LOG_SOURCE"
	EnvLogFile   = "MPD_LOG_FILE"
)

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Mistipad")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Mistipad")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "mistipad")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.ConfirmPurge = src.General.ConfirmPurge
	dst.Storage.PurgeImages = src.Storage.PurgeImages
	dst.Journal.Enabled = src.Journal.Enabled
	if strings.TrimSpace(src.Storage.Root) != "" {
		dst.Storage.Root = strings.TrimSpace(src.Storage.Root)
	}
	if strings.TrimSpace(src.Storage.Backend) != "" {
		dst.Storage.Backend = strings.ToLower(strings.TrimSpace(src.Storage.Backend))
	}
	if src.Storage.KeepSnapshots != 0 {
		dst.Storage.KeepSnapshots = src.Storage.KeepSnapshots
	}
	if strings.TrimSpace(src.Journal.File) != "" {
		dst.Journal.File = strings.TrimSpace(src.Journal.File)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvRoot)); v != "" {
		cfg.Storage.Root = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPurgeImages)); v != "" {
		cfg.Storage.PurgeImages = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvConfirmPurge)); v != "" {
		cfg.General.ConfirmPurge = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalEnabled)); v != "" {
		cfg.Journal.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalFile)); v != "" {
		cfg.Journal.File = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(lv); err == nil {
		return b
	}
	return lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "storage.root":
		if os.Getenv(EnvRoot) != "" {
			return EnvRoot, true
		}
	case "storage.backend":
		if os.Getenv(EnvStorageBackend) != "" {
			return EnvStorageBackend, true
		}
	case "storage.purge_images":
		if os.Getenv(EnvPurgeImages) != "" {
			return EnvPurgeImages, true
		}
	case "general.confirm_purge":
		if os.Getenv(EnvConfirmPurge) != "" {
			return EnvConfirmPurge, true
		}
	case "journal.enabled":
		if os.Getenv(EnvJournalEnabled) != "" {
			return EnvJournalEnabled, true
		}
	case "journal.file":
		if os.Getenv(EnvJournalFile) != "" {
			return EnvJournalFile, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}
