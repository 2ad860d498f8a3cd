package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"mistipad/internal/domain"
)

func TestInitOrOpenIndexCreatesDatabase(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	var schema int
	if err := db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version row: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema version: got %d want %d", schema, schemaVersion)
	}
}

func TestSQLiteBlobStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	kv, err := NewSQLiteBlobStore(root, 0)
	if err != nil {
		t.Fatalf("NewSQLiteBlobStore: %v", err)
	}
	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := kv.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := kv.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "v2" {
		t.Fatalf("value mismatch: %q", got)
	}
}

func TestSQLiteBlobStoreRecordsSnapshots(t *testing.T) {
	root := t.TempDir()
	kv, err := NewSQLiteBlobStore(root, 3)
	if err != nil {
		t.Fatalf("NewSQLiteBlobStore: %v", err)
	}
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		if err := kv.Set("k", []byte(v)); err != nil {
			t.Fatalf("Set %q: %v", v, err)
		}
	}
	blob, ts, err := LatestSnapshot(root, "k")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if string(blob) != "e" {
		t.Fatalf("latest snapshot: got %q", blob)
	}
	if ts.IsZero() {
		t.Fatalf("snapshot timestamp not parsed")
	}
	snaps, err := ListSnapshots(context.Background(), root, "k", 50)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected prune to keep 3, got %d", len(snaps))
	}
}

func TestPruneSnapshots(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	for i := 0; i < 5; i++ {
		ts := time.Now().UTC().Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano)
		if _, err := db.Exec(insertSnapshotSQL, "k", ts, []byte{byte(i)}); err != nil {
			t.Fatalf("insert snapshot: %v", err)
		}
	}
	_ = db.Close()
	n, err := PruneSnapshots(context.Background(), root, "k", 2)
	if err != nil {
		t.Fatalf("PruneSnapshots: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
}

func TestStoreOverSQLiteBackend(t *testing.T) {
	root := t.TempDir()
	kv, err := NewSQLiteBlobStore(root, 0)
	if err != nil {
		t.Fatalf("NewSQLiteBlobStore: %v", err)
	}
	files, err := NewDirFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirFileStore: %v", err)
	}
	st := NewStore(kv, files)
	in := []domain.QuestionSet{{ID: "A", Title: "Math", Questions: []string{"2+2"}, Answers: []string{"4"}, ImagePaths: []string{""}}}
	st.SaveCollection(ActiveKey, in)
	out := st.LoadCollection(ActiveKey)
	if len(out) != 1 || out[0].Title != "Math" {
		t.Fatalf("sqlite-backed round trip failed: %+v", out)
	}
}
