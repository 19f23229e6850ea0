package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := WriteFileAtomic(fsys, "out/data.jsonl", []byte("line1\n"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := fsys.ReadFile("out/data.jsonl")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "line1\n" {
		t.Errorf("unexpected contents: %q", data)
	}
	if fsys.Exists("out/data.jsonl.tmp") {
		t.Error("temporary file left behind")
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.WriteFile("data.csv", []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := WriteFileAtomic(fsys, "data.csv", []byte("new"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := fsys.ReadFile("data.csv")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestMemoryFileSystemRename(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.WriteFile("a.txt", []byte("payload"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.Rename("a.txt", "b.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if fsys.Exists("a.txt") {
		t.Error("source still exists after rename")
	}
	data, err := fsys.ReadFile("b.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected contents after rename: %q", data)
	}

	if err := fsys.Rename("missing.txt", "c.txt"); err == nil {
		t.Error("expected error renaming a missing file")
	}
}

func TestOSFileSystemRename(t *testing.T) {
	dir := t.TempDir()
	fsys := OSFileSystem{}

	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.Rename(src, dst); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing after rename: %v", err)
	}
}
