package storage

import (
	"context"
	"testing"

	"mistipad/internal/domain"
)

func testSets() []domain.QuestionSet {
	return []domain.QuestionSet{
		{ID: "A", Title: "World Capitals", Questions: []string{"Capital of France?", "Capital of Japan?"}, Answers: []string{"Paris", "Tokyo"}, ImagePaths: []string{"", ""}},
		{ID: "B", Title: "Arithmetic", Questions: []string{"2+2", ""}, Answers: []string{"4", ""}, ImagePaths: []string{"", ""}},
	}
}

func TestRebuildIndexAndSearch(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := RebuildIndex(ctx, root, testSets()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	res, err := Search(ctx, root, "capital", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// title row + two question rows, all for set A
	if len(res) != 3 {
		t.Fatalf("expected 3 matches, got %d: %+v", len(res), res)
	}
	for _, r := range res {
		if r.SetID != "A" {
			t.Fatalf("unexpected set in results: %+v", r)
		}
	}

	res, err = Search(ctx, root, "Tokyo", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Kind != DocKindAnswer || res[0].QuestionIdx != 1 {
		t.Fatalf("answer match mismatch: %+v", res)
	}
}

func TestRebuildIndexReplacesPreviousDocuments(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := RebuildIndex(ctx, root, testSets()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	// Rebuild with only one set; old documents must be gone
	if err := RebuildIndex(ctx, root, testSets()[:1]); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	res, err := Search(ctx, root, "arithmetic", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("stale documents survived rebuild: %+v", res)
	}
}

func TestSearchSkipsBlankEntriesAndRequiresQuery(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := RebuildIndex(ctx, root, testSets()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if _, err := Search(ctx, root, "   ", 0); err == nil {
		t.Fatalf("expected error for blank query")
	}
	// the blank question/answer pair of set B must not be indexed
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer func() { _ = db.Close() }()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE set_id='B'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	// title + one question + one answer
	if n != 3 {
		t.Fatalf("expected 3 documents for set B, got %d", n)
	}
}
