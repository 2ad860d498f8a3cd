/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements Mistipad's persistence layer.
// It offers whole-collection load/save of question-set lists through an
// injectable key-value blob store, and per-image write/read through an
// injectable flat-file store. Two blob store backends ship with the app: JSON
// files with transactional writes and timestamped backups, and an embedded
// SQLite database at <root>/.mistipad/index.sqlite which also carries a
// rebuildable search index and collection history snapshots. The SQLite side
// is derived data and disposable by design; the JSON blobs are canonical.
package storage
