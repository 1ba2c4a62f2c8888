package state

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "intraday-trader/internal/errors"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	want := payload{Name: "weights", Value: 0.35}
	if err := Save(path, 3, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got payload
	if err := Load(path, 3, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	var got payload
	err := Load(path, 1, &got)
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	if err := Save(path, 1, payload{Name: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got payload
	err := Load(path, 2, &got)
	if !apperrors.Is(err, ErrSchemaMismatch) {
		t.Errorf("error = %v, want ErrSchemaMismatch", err)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	if err := Save(path, 1, payload{Name: "first"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(path, 1, payload{Name: "second", Value: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got payload
	if err := Load(path, 1, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "second" || got.Value != 7 {
		t.Errorf("loaded %+v after overwrite", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the snapshot", len(entries))
	}
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "model.json")

	if err := Save(path, 1, payload{Name: "x"}); err != nil {
		t.Fatalf("Save into missing directory: %v", err)
	}
	var got payload
	if err := Load(path, 1, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var got payload
	if err := Load(path, 1, &got); err == nil {
		t.Error("expected error loading corrupt snapshot")
	}
}
