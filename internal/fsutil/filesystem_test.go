package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := OSFileSystem{}

	exportDir := filepath.Join(dir, "exports")
	if err := fsys.MkdirAll(exportDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	path := filepath.Join(exportDir, "pilot-1.jsonl")
	payload := []byte(`{"id":"tweet-001","label":1}` + "\n")
	if err := fsys.WriteFile(path, payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if !fsys.Exists(path) {
		t.Error("Exists = false for a written file")
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("contents = %q, want %q", data, payload)
	}

	if err := fsys.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if fsys.Exists(path) {
		t.Error("Exists = true after Remove")
	}
}

func TestOSFileSystemReadMissing(t *testing.T) {
	fsys := OSFileSystem{}

	if _, err := fsys.ReadFile(filepath.Join(t.TempDir(), "absent.csv")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystemReadWrite(t *testing.T) {
	fsys := NewMemoryFileSystem()

	payload := []byte("task_id,text,votes,final_label\n")
	if err := fsys.WriteFile("exports/pilot-1.csv", payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fsys.ReadFile("exports/pilot-1.csv")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("contents = %q, want %q", data, payload)
	}

	if _, err := fsys.ReadFile("exports/pilot-2.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystemCopiesData(t *testing.T) {
	fsys := NewMemoryFileSystem()

	payload := []byte("original")
	if err := fsys.WriteFile("manifest.json", payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	payload[0] = 'X'

	data, err := fsys.ReadFile("manifest.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("stored contents mutated with the caller's slice: %q", data)
	}

	data[0] = 'Y'
	again, _ := fsys.ReadFile("manifest.json")
	if string(again) != "original" {
		t.Errorf("stored contents mutated through a read: %q", again)
	}
}

func TestMemoryFileSystemCleansPaths(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.WriteFile("exports/./pilot-1.jsonl", []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if !fsys.Exists("exports/pilot-1.jsonl") {
		t.Error("cleaned path not found after writing an uncleaned one")
	}
}

func TestMemoryFileSystemMkdirAll(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.MkdirAll("exports/2025/pilot-1", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	for _, dir := range []string{"exports", "exports/2025", "exports/2025/pilot-1"} {
		if !fsys.Exists(dir) {
			t.Errorf("Exists(%q) = false after MkdirAll", dir)
		}
	}
}

func TestMemoryFileSystemRemove(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.WriteFile("gold.json", []byte("[]"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.MkdirAll("exports", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	if err := fsys.Remove("gold.json"); err != nil {
		t.Fatalf("Remove file failed: %v", err)
	}
	if err := fsys.Remove("exports"); err != nil {
		t.Fatalf("Remove dir failed: %v", err)
	}
	if err := fsys.Remove("gold.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove on a missing file = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystemPreservesMode(t *testing.T) {
	fsys := NewMemoryFileSystem()

	if err := fsys.WriteFile("run.sh", []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fsys.mu.RLock()
	f := fsys.files["run.sh"]
	fsys.mu.RUnlock()
	if f == nil {
		t.Fatal("file missing from map")
	}
	if f.mode != os.FileMode(0755) {
		t.Errorf("mode = %v, want 0755", f.mode)
	}
}
