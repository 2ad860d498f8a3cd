/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders question sets into printable artifacts: one
// flashcard per question/answer pair, as a multi-page PDF or as individual
// PNG images.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"mistipad/internal/domain"
	"mistipad/internal/storage"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt). Built-in Helvetica keeps text vector without font
// embedding.
//
// Card layout:
// - One page per question/answer pair, landscape A6 by default.
// - Question in the upper half, a hairline separator, answer below.
// - With IncludeImages, the question's image lands in the lower right corner.
type PDFOptions struct {
	IncludeImages bool
	CardWidth     float64 // pt; default 420 (A6 landscape)
	CardHeight    float64 // pt; default 298
}

// ExportSetPDF writes one flashcard page per question/answer pair of set to
// outPath. Images are read through st; a missing image file skips the image
// rather than failing the export.
func ExportSetPDF(st *storage.Store, set domain.QuestionSet, outPath string, opt PDFOptions) error {
	if len(set.Questions) == 0 {
		return fmt.Errorf("set %q has no questions", set.Title)
	}
	set = set.Clone()
	set.Normalize()

	cardW := opt.CardWidth
	if cardW <= 0 {
		cardW = 420
	}
	cardH := opt.CardHeight
	if cardH <= 0 {
		cardH = 298
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: cardW, Ht: cardH},
		OrientationStr: "",
	})
	pdf.SetTitle(set.Title, true)
	pdf.SetAuthor("Mistipad", false)
	pdf.SetFont("Helvetica", "", 12)

	margin := 24.0
	textW := cardW - 2*margin
	sepY := cardH / 2

	for i := range set.Questions {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: cardW, Ht: cardH})

		pdf.SetFont("Helvetica", "B", 9)
		pdf.Text(margin, margin-8, fmt.Sprintf("%s — card %d/%d", set.Title, i+1, len(set.Questions)))

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetXY(margin, margin)
		pdf.MultiCell(textW, 18, set.Questions[i], "", "L", false)

		pdf.SetDrawColor(128, 128, 128)
		pdf.SetLineWidth(0.4)
		pdf.Line(margin, sepY, cardW-margin, sepY)

		pdf.SetFont("Helvetica", "", 12)
		pdf.SetXY(margin, sepY+12)
		pdf.MultiCell(textW, 16, set.Answers[i], "", "L", false)

		if opt.IncludeImages && set.ImagePaths[i] != "" {
			placeImage(pdf, st, set.ImagePaths[i], cardW, cardH, margin)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// placeImage registers the PNG under its filename and anchors it to the lower
// right corner. Unreadable images are skipped silently.
func placeImage(pdf *gofpdf.Fpdf, st *storage.Store, filename string, cardW, cardH, margin float64) {
	data, err := st.ReadImage(filename)
	if err != nil {
		return
	}
	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader(filename, imgOpt, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		// not a decodable PNG; clear the error so remaining cards still render
		pdf.ClearError()
		return
	}
	maxW := cardW / 3
	maxH := cardH/2 - 2*margin
	w, h := fitInto(info.Width(), info.Height(), maxW, maxH)
	pdf.ImageOptions(filename, cardW-margin-w, cardH-margin-h, w, h, false, imgOpt, 0, "")
}

func fitInto(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	return w * scale, h * scale
}
