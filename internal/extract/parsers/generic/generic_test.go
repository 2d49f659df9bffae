package generic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/materialsio/internal/model"
)

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello world\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec, err := New().Parse(model.FileGroup{path}, model.Context{"checksum": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec["name"] != "notes.txt" {
		t.Errorf("expected name notes.txt, got %v", rec["name"])
	}
	if rec["extension"] != "txt" {
		t.Errorf("expected extension txt, got %v", rec["extension"])
	}
	if rec["size"] != float64(12) {
		t.Errorf("expected size 12, got %v", rec["size"])
	}
	if mt, _ := rec["mime_type"].(string); !strings.HasPrefix(mt, "text/plain") {
		t.Errorf("expected text/plain, got %v", rec["mime_type"])
	}
	if sum, _ := rec["sha256"].(string); len(sum) != 64 {
		t.Errorf("expected sha256 digest, got %v", rec["sha256"])
	}
}

func TestParser_RejectsMultiFileGroups(t *testing.T) {
	_, err := New().Parse(model.FileGroup{"/a", "/b"}, nil)
	if !errors.Is(err, model.ErrUnparsableGroup) {
		t.Errorf("expected ErrUnparsableGroup, got %v", err)
	}
}

func TestParser_MissingFile(t *testing.T) {
	_, err := New().Parse(model.FileGroup{filepath.Join(t.TempDir(), "missing")}, nil)
	if err == nil {
		t.Error("expected error for missing file")
	}
}
