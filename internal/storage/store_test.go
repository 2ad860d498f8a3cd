package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mistipad/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	st, err := OpenWorkspace(root)
	if err != nil {
		t.Fatalf("OpenWorkspace error: %v", err)
	}
	return st, root
}

func TestLoadCollectionAbsentKeyYieldsEmpty(t *testing.T) {
	st, _ := newTestStore(t)
	sets := st.LoadCollection(ActiveKey)
	if sets == nil {
		t.Fatalf("expected non-nil empty slice")
	}
	if len(sets) != 0 {
		t.Fatalf("expected empty collection, got %d", len(sets))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	in := []domain.QuestionSet{
		{ID: "A", Title: "Math", Questions: []string{"2+2"}, Answers: []string{"4"}, ImagePaths: []string{""}},
		{ID: "B", Title: "Geo", Questions: []string{"Capital of France?", "Longest river?"}, Answers: []string{"Paris", "Nile"}, ImagePaths: []string{"B-q0.png", ""}},
	}
	st.SaveCollection(ActiveKey, in)
	out := st.LoadCollection(ActiveKey)
	if len(out) != 2 {
		t.Fatalf("round trip length: got %d", len(out))
	}
	for i := range in {
		a, b := in[i], out[i]
		if a.ID != b.ID || a.Title != b.Title {
			t.Fatalf("set %d mismatch: %+v vs %+v", i, a, b)
		}
		for j := range a.Questions {
			if a.Questions[j] != b.Questions[j] || a.Answers[j] != b.Answers[j] || a.ImagePaths[j] != b.ImagePaths[j] {
				t.Fatalf("set %d pair %d mismatch", i, j)
			}
		}
	}
}

func TestSaveNormalizesParallelArrays(t *testing.T) {
	st, _ := newTestStore(t)
	in := []domain.QuestionSet{{
		ID:        "A",
		Questions: []string{"q1", "q2"},
		Answers:   []string{"a1"}, // short
		// ImagePaths nil
	}}
	st.SaveCollection(ActiveKey, in)
	out := st.LoadCollection(ActiveKey)
	if len(out) != 1 {
		t.Fatalf("expected one set")
	}
	if len(out[0].Answers) != 2 || len(out[0].ImagePaths) != 2 {
		t.Fatalf("persisted set not normalized: %d answers, %d images", len(out[0].Answers), len(out[0].ImagePaths))
	}
	// in-memory argument must not be mutated
	if len(in[0].Answers) != 1 {
		t.Fatalf("SaveCollection mutated caller slice")
	}
}

func TestLoadCollectionRecoversFromBackupOnCorruption(t *testing.T) {
	st, root := newTestStore(t)
	in := []domain.QuestionSet{{ID: "A", Title: "Math", Questions: []string{"2+2"}, Answers: []string{"4"}, ImagePaths: []string{""}}}
	st.SaveCollection(ActiveKey, in)
	// Save again so a backup of a decodable value exists
	in[0].Title = "Math II"
	st.SaveCollection(ActiveKey, in)

	// Corrupt the current blob
	blobPath := filepath.Join(root, ActiveKey+".json")
	if err := os.WriteFile(blobPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt blob: %v", err)
	}

	out := st.LoadCollection(ActiveKey)
	if len(out) != 1 || out[0].ID != "A" {
		t.Fatalf("expected recovery from backup, got %+v", out)
	}
}

func TestLoadCollectionCorruptWithoutBackupYieldsEmpty(t *testing.T) {
	st, root := newTestStore(t)
	blobPath := filepath.Join(root, TrashKey+".json")
	if err := os.WriteFile(blobPath, []byte("not json at all"), 0o644); err != nil {
		t.Fatalf("write corrupt blob: %v", err)
	}
	out := st.LoadCollection(TrashKey)
	if len(out) != 0 {
		t.Fatalf("expected empty collection, got %d", len(out))
	}
}

func TestPersistedBlobIsPlainJSONArray(t *testing.T) {
	st, root := newTestStore(t)
	st.SaveCollection(ActiveKey, []domain.QuestionSet{{ID: "A", Title: "Math", Questions: []string{"2+2"}, Answers: []string{"4"}, ImagePaths: []string{""}}})
	b, err := os.ReadFile(filepath.Join(root, ActiveKey+".json"))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	var arr []map[string]any
	if err := json.Unmarshal(b, &arr); err != nil {
		t.Fatalf("blob is not a JSON array: %v", err)
	}
	if len(arr) != 1 || arr[0]["id"] != "A" {
		t.Fatalf("unexpected blob content: %s", b)
	}
}

func TestImageWriteReadRemove(t *testing.T) {
	st, _ := newTestStore(t)
	name := domain.ImageFileName("A", 0)
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	if err := st.WriteImage(name, payload); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	got, err := st.ReadImage(name)
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("image bytes mismatch")
	}
	if err := st.RemoveImage(name); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if _, err := st.ReadImage(name); err == nil {
		t.Fatalf("expected ErrImageNotFound after remove")
	}
	// removing again is still not an error
	if err := st.RemoveImage(name); err != nil {
		t.Fatalf("second RemoveImage: %v", err)
	}
}

func TestDirFileStoreRejectsPathEscape(t *testing.T) {
	st, _ := newTestStore(t)
	if err := st.WriteImage(filepath.Join("..", "evil.png"), []byte("x")); err == nil {
		t.Fatalf("expected error for path separator in name")
	}
	if err := st.WriteImage("", []byte("x")); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestFileBlobStoreBackupNaming(t *testing.T) {
	_, root := newTestStore(t)
	fb, err := NewFileBlobStore(root)
	if err != nil {
		t.Fatalf("NewFileBlobStore: %v", err)
	}
	if err := fb.Set("k", []byte("[1]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fb.Set("k", []byte("[2]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var baks int
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "k.json.") && strings.HasSuffix(e.Name(), ".bak") {
			baks++
		}
	}
	if baks == 0 {
		t.Fatalf("expected at least one backup file")
	}
	bak, ok := fb.LatestBackup("k")
	if !ok || string(bak) != "[1]" {
		t.Fatalf("latest backup mismatch: %q %v", bak, ok)
	}
}
