/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"mistipad/internal/domain"
)

func TestPersistedCollectionConformsToSchema(t *testing.T) {
	root := t.TempDir()
	st, err := OpenWorkspace(root)
	if err != nil {
		t.Fatalf("OpenWorkspace error: %v", err)
	}

	sets := []domain.QuestionSet{
		domain.New("Geography"),
		{ID: "B", Title: "Math", Questions: []string{"2+2", "3*3"}, Answers: []string{"4"}, ImagePaths: nil},
	}
	st.SaveCollection(ActiveKey, sets)

	data, err := os.ReadFile(filepath.Join(root, ActiveKey+".json"))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}

	schemaPath := filepath.Join("..", "..", "docs", "questionset.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("persisted collection does not conform to schema")
	}
}
