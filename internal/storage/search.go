/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mistipad/internal/domain"
)

// Document kinds stored in the search index.
const (
	DocKindTitle    = "title"
	DocKindQuestion = "question"
	DocKindAnswer   = "answer"
)

// SearchResult represents a single match row. QuestionIdx is -1 for title
// matches.
type SearchResult struct {
	SetID       string
	QuestionIdx int
	Kind        string
	Text        string
}

// RebuildIndex repopulates the derived documents table from the given sets.
// The index is disposable: callers rebuild it after loading the canonical
// blobs, and search never feeds back into persistence.
func RebuildIndex(ctx context.Context, root string, sets []domain.QuestionSet) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	ins := `INSERT INTO documents(set_id, question_idx, kind, text) VALUES (?, ?, ?, ?)`
	for _, s := range sets {
		if strings.TrimSpace(s.Title) != "" {
			if _, err := tx.ExecContext(ctx, ins, s.ID, -1, DocKindTitle, s.Title); err != nil {
				return fmt.Errorf("index title: %w", err)
			}
		}
		for i, q := range s.Questions {
			if strings.TrimSpace(q) != "" {
				if _, err := tx.ExecContext(ctx, ins, s.ID, i, DocKindQuestion, q); err != nil {
					return fmt.Errorf("index question: %w", err)
				}
			}
			if i < len(s.Answers) && strings.TrimSpace(s.Answers[i]) != "" {
				if _, err := tx.ExecContext(ctx, ins, s.ID, i, DocKindAnswer, s.Answers[i]); err != nil {
					return fmt.Errorf("index answer: %w", err)
				}
			}
		}
	}
	return tx.Commit()
}

// Search performs a case-insensitive substring search over indexed titles,
// questions and answers. Limit <= 0 applies a default of 100.
func Search(ctx context.Context, root, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = 100
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		`SELECT set_id, question_idx, kind, text FROM documents
		 WHERE lower(text) LIKE ? ORDER BY set_id, question_idx LIMIT ?`,
		likeContains(strings.ToLower(q)), limit)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.SetID, &r.QuestionIdx, &r.Kind, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }
