/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mistipad/internal/domain"
)

// PNGOptions controls PNG card export behavior.
// Zero values pick reasonable defaults (640x400 px, black on white).
type PNGOptions struct {
	CardWidth  int
	CardHeight int
	Foreground color.RGBA
	Background color.RGBA
}

// ExportSetPNGCards writes one PNG card per question/answer pair of set into
// outDir, named <set-id>-card-<n>.png. Text is rendered with the built-in
// bitmap face, wrapped to the card width; overly long content is clipped at
// the card edge.
func ExportSetPNGCards(set domain.QuestionSet, outDir string, opt PNGOptions) error {
	if len(set.Questions) == 0 {
		return fmt.Errorf("set %q has no questions", set.Title)
	}
	set = set.Clone()
	set.Normalize()

	w := opt.CardWidth
	if w <= 0 {
		w = 640
	}
	h := opt.CardHeight
	if h <= 0 {
		h = 400
	}
	fg := opt.Foreground
	if fg.A == 0 {
		fg = color.RGBA{0, 0, 0, 255}
	}
	bg := opt.Background
	if bg.A == 0 {
		bg = color.RGBA{255, 255, 255, 255}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	face := basicfont.Face7x13
	margin := 16
	lineH := face.Height + 4

	for i := range set.Questions {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

		sepY := h / 2
		for x := margin; x < w-margin; x++ {
			img.SetRGBA(x, sepY, color.RGBA{128, 128, 128, 255})
		}

		drawWrapped(img, face, fg, set.Questions[i], margin, margin+face.Ascent, w-2*margin, lineH)
		drawWrapped(img, face, fg, set.Answers[i], margin, sepY+margin+face.Ascent, w-2*margin, lineH)

		name := filepath.Join(outDir, fmt.Sprintf("%s-card-%d.png", set.ID, i+1))
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close png: %w", err)
		}
	}
	return nil
}

// drawWrapped renders text word-wrapped at maxW pixels starting at (x, y)
// baseline, returning the baseline after the last line.
func drawWrapped(img *image.RGBA, face font.Face, fg color.RGBA, text string, x, y, maxW, lineH int) int {
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: fg},
		Face: face,
	}
	var line string
	flush := func() {
		if line == "" {
			return
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		line = ""
		y += lineH
	}
	for _, word := range strings.Fields(text) {
		cand := word
		if line != "" {
			cand = line + " " + word
		}
		if d.MeasureString(cand).Ceil() > maxW && line != "" {
			flush()
			line = word
			continue
		}
		line = cand
	}
	flush()
	return y
}
