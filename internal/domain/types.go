/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// QuestionSet is the core record of Mistipad: a named, ordered list of
// question/answer pairs with optional per-question image references.
// The three slices are parallel; Normalize enforces equal lengths before the
// record is persisted. It serializes into a human-readable JSON array entry.
type QuestionSet struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Questions  []string `json:"questions"`
	Answers    []string `json:"answers"`
	ImagePaths []string `json:"imagePaths"`
}

// New creates a QuestionSet with a fresh id and a single blank
// question/answer pair, ready for editing.
func New(title string) QuestionSet {
	return QuestionSet{
		ID:         uuid.NewString(),
		Title:      title,
		Questions:  []string{""},
		Answers:    []string{""},
		ImagePaths: []string{""},
	}
}

// Normalize pads or truncates Answers and ImagePaths so that all three
// parallel slices share the length of Questions. An empty image path means
// "no image for this question".
func (s *QuestionSet) Normalize() {
	n := len(s.Questions)
	s.Answers = resize(s.Answers, n)
	s.ImagePaths = resize(s.ImagePaths, n)
}

func resize(xs []string, n int) []string {
	if len(xs) == n {
		return xs
	}
	if len(xs) > n {
		return xs[:n]
	}
	out := make([]string, n)
	copy(out, xs)
	return out
}

// Clone returns a deep copy, so callers can hand out sets without exposing
// internal slices to mutation.
func (s QuestionSet) Clone() QuestionSet {
	c := s
	c.Questions = append([]string(nil), s.Questions...)
	c.Answers = append([]string(nil), s.Answers...)
	c.ImagePaths = append([]string(nil), s.ImagePaths...)
	return c
}

// ImageFileName derives the deterministic image filename for a question of a
// set: <set-id>-q<question-index>.png.
func ImageFileName(setID string, questionIndex int) string {
	return fmt.Sprintf("%s-q%d.png", setID, questionIndex)
}
