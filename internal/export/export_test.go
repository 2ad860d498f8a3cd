/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mistipad/internal/domain"
	"mistipad/internal/storage"
)

func testSet() domain.QuestionSet {
	s := domain.QuestionSet{
		ID:        "deck1",
		Title:     "Capitals",
		Questions: []string{"Capital of France?", "Capital of Japan?"},
		Answers:   []string{"Paris", "Tokyo"},
	}
	s.Normalize()
	return s
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExportSetPDFCreatesFile(t *testing.T) {
	root := t.TempDir()
	st, err := storage.OpenWorkspace(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	set := testSet()
	name := domain.ImageFileName(set.ID, 0)
	if err := st.WriteImage(name, tinyPNG(t)); err != nil {
		t.Fatalf("write image: %v", err)
	}
	set.ImagePaths[0] = name

	out := filepath.Join(root, "exports", "capitals.pdf")
	if err := ExportSetPDF(st, set, out, PDFOptions{IncludeImages: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size() <= 0 {
		t.Fatalf("pdf file empty")
	}
}

func TestExportSetPDFMissingImageIsNotFatal(t *testing.T) {
	root := t.TempDir()
	st, err := storage.OpenWorkspace(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	set := testSet()
	set.ImagePaths[1] = "gone.png"

	out := filepath.Join(root, "exports", "capitals.pdf")
	if err := ExportSetPDF(st, set, out, PDFOptions{IncludeImages: true}); err != nil {
		t.Fatalf("export with missing image: %v", err)
	}
}

func TestExportSetPDFEmptySetRejected(t *testing.T) {
	root := t.TempDir()
	st, err := storage.OpenWorkspace(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if err := ExportSetPDF(st, domain.QuestionSet{ID: "x", Title: "Empty"}, filepath.Join(root, "x.pdf"), PDFOptions{}); err == nil {
		t.Fatalf("expected error for empty set")
	}
}

func TestExportSetPNGCards(t *testing.T) {
	outDir := t.TempDir()
	set := testSet()
	if err := ExportSetPNGCards(set, outDir, PNGOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	for i := 1; i <= 2; i++ {
		name := filepath.Join(outDir, "deck1-card-1.png")
		if i == 2 {
			name = filepath.Join(outDir, "deck1-card-2.png")
		}
		f, err := os.Open(name)
		if err != nil {
			t.Fatalf("open card %d: %v", i, err)
		}
		cfg, err := png.DecodeConfig(f)
		_ = f.Close()
		if err != nil {
			t.Fatalf("card %d not a PNG: %v", i, err)
		}
		if cfg.Width != 640 || cfg.Height != 400 {
			t.Fatalf("card %d unexpected size %dx%d", i, cfg.Width, cfg.Height)
		}
	}
}
